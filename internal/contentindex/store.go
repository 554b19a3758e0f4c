package contentindex

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio"

	engerrors "github.com/ahmeddyounis/orchestrator-sub002/internal/errors"
)

// Store loads and saves a single repository's Content Index File at a
// fixed path, atomically.
type Store struct {
	path string
}

// NewStore creates a Store backed by the file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// DefaultPath returns the default index path for a repo root.
func DefaultPath(repoRoot string) string {
	return filepath.Join(repoRoot, filepath.FromSlash(DefaultRelPath))
}

// Load reads and validates the index file. A missing file is reported as a
// plain os.IsNotExist error (callers distinguish "no index yet" from
// "corrupt index" this way); a parse failure, non-object root, or
// schemaVersion != 1 is reported as IndexCorruptedError.
func (s *Store) Load() (*Index, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}

	var raw json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, engerrors.New(engerrors.ErrCodeIndexCorrupted, "content index is not valid JSON", err)
	}
	// A JSON object unmarshals into map[string]interface{}; anything else
	// (array, string, number, bool, null) is a malformed index.
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, engerrors.New(engerrors.ErrCodeIndexCorrupted, "content index root is not an object", err)
	}

	var idx Index
	if err := json.Unmarshal(raw, &idx); err != nil {
		return nil, engerrors.New(engerrors.ErrCodeIndexCorrupted, "content index does not match the expected schema", err)
	}
	if idx.SchemaVersion != SchemaVersion {
		return nil, engerrors.New(engerrors.ErrCodeIndexCorrupted,
			fmt.Sprintf("content index schemaVersion %d is not supported (want %d)", idx.SchemaVersion, SchemaVersion), nil)
	}
	return &idx, nil
}

// Save persists idx atomically: write to a sibling temp file, then rename
// into place. The index is re-sorted and its stats recomputed before the
// write so callers never need to do so themselves.
func (s *Store) Save(idx *Index) error {
	normalize(idx)

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create content index directory: %w", err)
	}

	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal content index: %w", err)
	}

	return renameio.WriteFile(s.path, data, 0o644)
}

// Exists reports whether an index file is present at this store's path.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}
