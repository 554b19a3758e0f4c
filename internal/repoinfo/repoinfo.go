// Package repoinfo provides a read-only summary of a repo's content and
// semantic indexes. It adds no new index semantics: it only reads what
// contentindex and semidx already persist.
package repoinfo

import (
	"os"

	"github.com/ahmeddyounis/orchestrator-sub002/internal/contentindex"
	"github.com/ahmeddyounis/orchestrator-sub002/internal/semidx"
)

// Summary reports the current state of both indexes for a repo root.
type Summary struct {
	RepoRoot string

	ContentIndexPresent bool
	ContentIndexPath    string
	ContentFileCount    int
	ContentHashedCount  int
	ContentUpdatedAt    int64
	ContentSizeBytes    int64

	SemanticIndexPresent bool
	SemanticIndexPath    string
	SemanticFileCount    int
	SemanticChunkCount   int
	SemanticEmbedderID   string
	SemanticDims         int
	SemanticUpdatedAt    int64
	SemanticSizeBytes    int64

	// CurrentEmbedderID/CurrentDims, when set by the caller, are compared
	// against the stored semantic meta to report compatibility the same
	// way the Semantic Updater does before an incremental update.
	CurrentEmbedderID string
	CurrentDims       int
}

// Compatible reports whether CurrentEmbedderID/CurrentDims (if the caller
// populated them) match the stored semantic meta. True when no semantic
// index exists yet, or when no current embedder was supplied.
func (s Summary) Compatible() bool {
	if !s.SemanticIndexPresent || s.CurrentEmbedderID == "" {
		return true
	}
	return s.SemanticEmbedderID == s.CurrentEmbedderID && s.SemanticDims == s.CurrentDims
}

// Get builds a Summary for repoRoot. currentEmbedderID/currentDims may be
// zero-valued if the caller has no embedder to compare against yet.
func Get(repoRoot, currentEmbedderID string, currentDims int) (Summary, error) {
	s := Summary{
		RepoRoot:          repoRoot,
		CurrentEmbedderID: currentEmbedderID,
		CurrentDims:       currentDims,
	}

	ciPath := contentindex.DefaultPath(repoRoot)
	s.ContentIndexPath = ciPath
	if fi, err := os.Stat(ciPath); err == nil {
		s.ContentIndexPresent = true
		s.ContentSizeBytes = fi.Size()
		idx, err := contentindex.NewStore(ciPath).Load()
		if err != nil {
			return Summary{}, err
		}
		s.ContentFileCount = idx.Stats.FileCount
		s.ContentHashedCount = idx.Stats.HashedCount
		s.ContentUpdatedAt = idx.UpdatedAt
	}

	siPath := semidx.DefaultPath(repoRoot)
	s.SemanticIndexPath = siPath
	if fi, err := os.Stat(siPath); err == nil {
		s.SemanticIndexPresent = true
		s.SemanticSizeBytes = fi.Size()

		store, err := semidx.Open(siPath)
		if err != nil {
			return Summary{}, err
		}
		defer store.Close()

		meta, err := store.GetMeta()
		if err != nil {
			return Summary{}, err
		}
		if meta != nil {
			s.SemanticEmbedderID = meta.EmbedderID
			s.SemanticDims = meta.Dims
			s.SemanticUpdatedAt = meta.UpdatedAt
		}
		files, err := store.GetAllFiles()
		if err != nil {
			return Summary{}, err
		}
		s.SemanticFileCount = len(files)
		embeddings, err := store.GetAllEmbeddings()
		if err != nil {
			return Summary{}, err
		}
		s.SemanticChunkCount = len(embeddings)
	}

	return s, nil
}
