package contentindex

import (
	"context"

	"github.com/ahmeddyounis/orchestrator-sub002/internal/scanner"
)

// CheckDrift re-scans repoRoot with the same ignore rules and compares the
// live filesystem against idx. Comparison is by
// mtimeMs and sizeBytes only -- an intentional heuristic, not a content
// hash comparison.
func CheckDrift(ctx context.Context, sc *scanner.Scanner, repoRoot string, opts scanner.ScanOptions, idx *Index) (Drift, error) {
	snap, err := sc.Scan(ctx, repoRoot, opts)
	if err != nil {
		return Drift{}, err
	}

	indexed := make(map[string]FileRecord, len(idx.Files))
	for _, f := range idx.Files {
		indexed[f.RelPath] = f
	}

	physical := make(map[string]scanner.FileRecord, len(snap.Files))
	for _, f := range snap.Files {
		physical[f.RelPath] = f
	}

	var drift Drift
	for relPath, rec := range physical {
		prior, ok := indexed[relPath]
		if !ok {
			drift.Added = append(drift.Added, relPath)
			continue
		}
		if prior.MtimeMs != rec.MtimeMs || prior.SizeBytes != rec.SizeBytes {
			drift.Modified = append(drift.Modified, relPath)
		}
	}
	for relPath := range indexed {
		if _, ok := physical[relPath]; !ok {
			drift.Removed = append(drift.Removed, relPath)
		}
	}

	return drift, nil
}
