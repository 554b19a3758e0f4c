package semidx

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // pure Go SQLite driver, no CGO

	"github.com/ahmeddyounis/orchestrator-sub002/internal/errors"
)

// Store drives the semantic index database at a fixed path. Exclusive to
// one Store instance at a time.
type Store struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

// DefaultPath returns the default semantic database path for a repo root.
func DefaultPath(repoRoot string) string {
	return filepath.Join(repoRoot, filepath.FromSlash(DefaultRelPath))
}

// validateIntegrity runs PRAGMA integrity_check against an existing
// database file before Open accepts it, rather than silently overwriting
// a corrupt database.
func validateIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("cannot open for validation: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("database corrupted: %s", result)
	}
	return nil
}

// Open opens (creating if necessary) the semantic index database at path.
// An on-disk file that fails its integrity check is reported as
// IndexCorruptedError rather than silently overwritten.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create semantic index directory: %w", err)
		}
		if err := validateIntegrity(path); err != nil {
			return nil, errors.New(errors.ErrCodeIndexCorrupted, "semantic index database is corrupted", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open semantic index database: %w", err)
	}

	// Single writer: SQLite serializes writes anyway, and the repo engine
	// keeps one store instance per repo.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = OFF",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma %q: %w", p, err)
		}
	}

	if _, err := db.Exec(ddl); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize semantic index schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
