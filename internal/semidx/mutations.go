package semidx

import (
	"database/sql"
	"fmt"
)

// ReplaceChunksForFile atomically replaces every chunk (and its
// embeddings) belonging to path with chunks. On any
// error the transaction is rolled back and prior state is untouched.
func (s *Store) ReplaceChunksForFile(path string, chunks []ChunkRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin replace chunks: %w", err)
	}
	if err := cascadeDeleteChunksForPath(tx, path); err != nil {
		tx.Rollback()
		return err
	}

	for _, c := range chunks {
		if _, err := tx.Exec(
			`INSERT INTO chunks (chunkId, path, language, kind, name, parentName, startLine, endLine, content, fileHash) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ChunkID, c.Path, c.Language, c.Kind, c.Name, c.ParentName, c.StartLine, c.EndLine, c.Content, c.FileHash,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert chunk %s: %w", c.ChunkID, err)
		}
	}

	return tx.Commit()
}

// DeleteFile removes a file's chunks, their embeddings, and the file row
// itself, all in one transaction.
func (s *Store) DeleteFile(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin delete file: %w", err)
	}
	if err := cascadeDeleteChunksForPath(tx, path); err != nil {
		tx.Rollback()
		return err
	}
	if _, err := tx.Exec(`DELETE FROM files WHERE path = ?`, path); err != nil {
		tx.Rollback()
		return fmt.Errorf("delete file row: %w", err)
	}
	return tx.Commit()
}

// cascadeDeleteChunksForPath deletes embeddings whose chunkId belongs to
// path, then the chunks themselves, within an already-open transaction.
// foreign_keys is PRAGMA OFF (see schema.go), so this cascade is explicit.
func cascadeDeleteChunksForPath(tx *sql.Tx, path string) error {
	if _, err := tx.Exec(
		`DELETE FROM embeddings WHERE chunkId IN (SELECT chunkId FROM chunks WHERE path = ?)`, path,
	); err != nil {
		return fmt.Errorf("delete embeddings for path %s: %w", path, err)
	}
	if _, err := tx.Exec(`DELETE FROM chunks WHERE path = ?`, path); err != nil {
		return fmt.Errorf("delete chunks for path %s: %w", path, err)
	}
	return nil
}

// UpsertEmbeddings inserts or replaces embedding rows for the given
// chunkId -> vector map, in its own transaction.
func (s *Store) UpsertEmbeddings(embeddings map[string][]float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin upsert embeddings: %w", err)
	}
	for chunkID, vec := range embeddings {
		if _, err := tx.Exec(
			`INSERT INTO embeddings (chunkId, vectorB64) VALUES (?, ?)
			 ON CONFLICT(chunkId) DO UPDATE SET vectorB64 = excluded.vectorB64`,
			chunkID, encodeVector(vec),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("upsert embedding for chunk %s: %w", chunkID, err)
		}
	}
	return tx.Commit()
}
