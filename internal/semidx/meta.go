package semidx

import (
	"database/sql"
	"fmt"
)

// GetMeta returns the single meta row, or (nil, nil) if the index has
// never been built.
func (s *Store) GetMeta() (*Meta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRow(`SELECT repoId, repoRoot, embedderId, dims, builtAt, updatedAt, schemaVersion FROM meta LIMIT 1`)
	var m Meta
	err := row.Scan(&m.RepoID, &m.RepoRoot, &m.EmbedderID, &m.Dims, &m.BuiltAt, &m.UpdatedAt, &m.SchemaVersion)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get meta: %w", err)
	}
	return &m, nil
}

// SetMeta replaces the meta row. There is always at most one meta row:
// the table is keyed by repoId, but the store only ever holds one repo's
// index, so this clears and reinserts.
func (s *Store) SetMeta(m Meta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin set meta: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM meta`); err != nil {
		tx.Rollback()
		return fmt.Errorf("clear meta: %w", err)
	}
	if _, err := tx.Exec(
		`INSERT INTO meta (repoId, repoRoot, embedderId, dims, builtAt, updatedAt, schemaVersion) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.RepoID, m.RepoRoot, m.EmbedderID, m.Dims, m.BuiltAt, m.UpdatedAt, m.SchemaVersion,
	); err != nil {
		tx.Rollback()
		return fmt.Errorf("insert meta: %w", err)
	}
	return tx.Commit()
}

// GetAllFiles returns every file row.
func (s *Store) GetAllFiles() ([]FileRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT path, fileHash, language, mtimeMs, sizeBytes FROM files`)
	if err != nil {
		return nil, fmt.Errorf("get all files: %w", err)
	}
	defer rows.Close()

	var out []FileRow
	for rows.Next() {
		var f FileRow
		if err := rows.Scan(&f.Path, &f.FileHash, &f.Language, &f.MtimeMs, &f.SizeBytes); err != nil {
			return nil, fmt.Errorf("scan file row: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// UpsertFile inserts or replaces a file's metadata row.
func (s *Store) UpsertFile(f FileRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT INTO files (path, fileHash, language, mtimeMs, sizeBytes) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET fileHash=excluded.fileHash, language=excluded.language, mtimeMs=excluded.mtimeMs, sizeBytes=excluded.sizeBytes`,
		f.Path, f.FileHash, f.Language, f.MtimeMs, f.SizeBytes,
	)
	if err != nil {
		return fmt.Errorf("upsert file: %w", err)
	}
	return nil
}

// GetAllEmbeddings returns every embedding, skipping NULL vectors.
func (s *Store) GetAllEmbeddings() (map[string][]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT chunkId, vectorB64 FROM embeddings WHERE vectorB64 IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("get all embeddings: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]float32)
	for rows.Next() {
		var chunkID, b64 string
		if err := rows.Scan(&chunkID, &b64); err != nil {
			return nil, fmt.Errorf("scan embedding row: %w", err)
		}
		vec, err := decodeVector(b64)
		if err != nil {
			return nil, fmt.Errorf("decode embedding for chunk %s: %w", chunkID, err)
		}
		out[chunkID] = vec
	}
	return out, rows.Err()
}

// GetAllChunksWithEmbeddings returns every chunk that has a matching
// embedding row (inner join).
func (s *Store) GetAllChunksWithEmbeddings() ([]ChunkWithEmbedding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`
		SELECT c.chunkId, c.path, c.language, c.kind, c.name, c.parentName, c.startLine, c.endLine, c.content, c.fileHash, e.vectorB64
		FROM chunks c
		INNER JOIN embeddings e ON e.chunkId = c.chunkId
	`)
	if err != nil {
		return nil, fmt.Errorf("get all chunks with embeddings: %w", err)
	}
	defer rows.Close()

	var out []ChunkWithEmbedding
	for rows.Next() {
		var c ChunkRow
		var b64 string
		if err := rows.Scan(&c.ChunkID, &c.Path, &c.Language, &c.Kind, &c.Name, &c.ParentName, &c.StartLine, &c.EndLine, &c.Content, &c.FileHash, &b64); err != nil {
			return nil, fmt.Errorf("scan chunk-with-embedding row: %w", err)
		}
		vec, err := decodeVector(b64)
		if err != nil {
			return nil, fmt.Errorf("decode embedding for chunk %s: %w", c.ChunkID, err)
		}
		out = append(out, ChunkWithEmbedding{Chunk: c, Vector: vec})
	}
	return out, rows.Err()
}
