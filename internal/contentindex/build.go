package contentindex

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"sort"

	"github.com/ahmeddyounis/orchestrator-sub002/internal/scanner"
)

// normalize sorts Files by RelPath and recomputes Stats in place.
func normalize(idx *Index) {
	sort.Slice(idx.Files, func(i, j int) bool { return idx.Files[i].RelPath < idx.Files[j].RelPath })
	idx.Stats = computeStats(idx.Files)
}

func computeStats(files []FileRecord) Stats {
	stats := Stats{ByLanguage: make(map[string]LanguageStats)}
	for _, f := range files {
		stats.FileCount++
		if f.IsText {
			stats.TextFileCount++
		}
		if f.SHA256 != "" {
			stats.HashedCount++
		}
		if f.LanguageHint == "" {
			continue
		}
		ls := stats.ByLanguage[f.LanguageHint]
		ls.Count++
		ls.Bytes += f.SizeBytes
		stats.ByLanguage[f.LanguageHint] = ls
	}
	return stats
}

// shouldHash reports whether a scanned file qualifies for content hashing:
// text, and at or below the hash cap.
func shouldHash(rec scanner.FileRecord, hashCapBytes int64) bool {
	return rec.IsText && rec.SizeBytes <= hashCapBytes
}

// hashFile computes the sha256 hex digest of a file's content.
func hashFile(absPath string) (string, error) {
	f, err := os.Open(absPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// BuildRecord converts one scanned file into a FileRecord, hashing its
// content when shouldHash permits.
func BuildRecord(rec scanner.FileRecord, hashCapBytes int64) (FileRecord, error) {
	if hashCapBytes <= 0 {
		hashCapBytes = DefaultHashCapBytes
	}
	out := FileRecord{
		RelPath:      rec.RelPath,
		SizeBytes:    rec.SizeBytes,
		MtimeMs:      rec.MtimeMs,
		IsText:       rec.IsText,
		LanguageHint: rec.LanguageHint,
	}
	if shouldHash(rec, hashCapBytes) {
		sum, err := hashFile(rec.AbsPath)
		if err != nil {
			return FileRecord{}, err
		}
		out.SHA256 = sum
	}
	return out, nil
}

// Build constructs a fresh Index from a snapshot, hashing every eligible
// file. now is the caller-supplied build/update timestamp (Unix millis).
func Build(repoID, repoRoot string, snap *scanner.Snapshot, hashCapBytes int64, now int64) (*Index, error) {
	files := make([]FileRecord, 0, len(snap.Files))
	for _, rec := range snap.Files {
		fr, err := BuildRecord(rec, hashCapBytes)
		if err != nil {
			return nil, err
		}
		files = append(files, fr)
	}

	idx := &Index{
		SchemaVersion: SchemaVersion,
		RepoID:        repoID,
		RepoRoot:      repoRoot,
		BuiltAt:       now,
		UpdatedAt:     now,
		Files:         files,
	}
	normalize(idx)
	return idx, nil
}
