package contentindex

import (
	"context"
	"os"
	"time"

	"github.com/ahmeddyounis/orchestrator-sub002/internal/errors"
	"github.com/ahmeddyounis/orchestrator-sub002/internal/scanner"
)

// Updater computes and persists an incremental delta against a Store's
// prior index.
type Updater struct {
	store        *Store
	scanner      *scanner.Scanner
	hashCapBytes int64
}

// NewUpdater creates an Updater over store, using sc to re-scan the repo.
func NewUpdater(store *Store, sc *scanner.Scanner, hashCapBytes int64) *Updater {
	if hashCapBytes <= 0 {
		hashCapBytes = DefaultHashCapBytes
	}
	return &Updater{store: store, scanner: sc, hashCapBytes: hashCapBytes}
}

// Update loads the prior index, scans the repo, computes the delta, writes
// the new index atomically, and returns the delta. Fails with
// IndexNotFoundError if no prior index exists.
func (u *Updater) Update(ctx context.Context, repoRoot string, opts scanner.ScanOptions) (*UpdateResult, error) {
	prior, err := u.store.Load()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.ErrCodeIndexNotFound, "no prior content index to update", err)
		}
		return nil, err
	}

	snap, err := u.scanner.Scan(ctx, repoRoot, opts)
	if err != nil {
		return nil, err
	}

	priorByPath := make(map[string]FileRecord, len(prior.Files))
	for _, f := range prior.Files {
		priorByPath[f.RelPath] = f
	}

	result := &UpdateResult{}
	newFiles := make([]FileRecord, 0, len(snap.Files))
	seen := make(map[string]bool, len(snap.Files))

	for _, rec := range snap.Files {
		seen[rec.RelPath] = true
		priorRec, existed := priorByPath[rec.RelPath]

		if existed && priorRec.MtimeMs == rec.MtimeMs && priorRec.SizeBytes == rec.SizeBytes {
			newFiles = append(newFiles, priorRec)
			continue
		}

		fr, err := BuildRecord(rec, u.hashCapBytes)
		if err != nil {
			return nil, err
		}
		newFiles = append(newFiles, fr)
		result.RehashedCount++
		if existed {
			result.Changed = append(result.Changed, rec.RelPath)
		} else {
			result.Added = append(result.Added, rec.RelPath)
		}
	}

	for relPath := range priorByPath {
		if !seen[relPath] {
			result.Removed = append(result.Removed, relPath)
		}
	}

	now := time.Now().UnixMilli()
	newIdx := &Index{
		SchemaVersion: SchemaVersion,
		RepoID:        prior.RepoID,
		RepoRoot:      prior.RepoRoot,
		BuiltAt:       prior.BuiltAt,
		UpdatedAt:     now,
		Files:         newFiles,
	}
	normalize(newIdx)

	if err := u.store.Save(newIdx); err != nil {
		return nil, err
	}

	return result, nil
}
