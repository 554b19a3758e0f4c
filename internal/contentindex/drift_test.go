package contentindex

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmeddyounis/orchestrator-sub002/internal/scanner"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestCheckDrift_DetectsAddedModifiedRemoved(t *testing.T) {
	repoRoot := t.TempDir()
	writeFile(t, filepath.Join(repoRoot, "keep.go"), "package a\n")
	writeFile(t, filepath.Join(repoRoot, "change.go"), "package a\n")
	writeFile(t, filepath.Join(repoRoot, "remove.go"), "package a\n")

	sc, err := scanner.New()
	require.NoError(t, err)
	opts := scanner.ScanOptions{}

	snap, err := sc.Scan(context.Background(), repoRoot, opts)
	require.NoError(t, err)

	idx, err := Build("repo-1", repoRoot, snap, DefaultHashCapBytes, 1000)
	require.NoError(t, err)

	// Mutate the filesystem: modify one, remove one, add one.
	time.Sleep(10 * time.Millisecond)
	writeFile(t, filepath.Join(repoRoot, "change.go"), "package a\n\nfunc X() {}\n")
	require.NoError(t, os.Remove(filepath.Join(repoRoot, "remove.go")))
	writeFile(t, filepath.Join(repoRoot, "new.go"), "package a\n")

	sc.InvalidateCache()
	drift, err := CheckDrift(context.Background(), sc, repoRoot, opts, idx)
	require.NoError(t, err)

	assert.True(t, drift.HasDrift())
	assert.Contains(t, drift.Modified, "change.go")
	assert.Contains(t, drift.Removed, "remove.go")
	assert.Contains(t, drift.Added, "new.go")
	assert.NotContains(t, drift.Modified, "keep.go")
}

func TestCheckDrift_NoChanges_NoDrift(t *testing.T) {
	repoRoot := t.TempDir()
	writeFile(t, filepath.Join(repoRoot, "a.go"), "package a\n")

	sc, err := scanner.New()
	require.NoError(t, err)
	opts := scanner.ScanOptions{}

	snap, err := sc.Scan(context.Background(), repoRoot, opts)
	require.NoError(t, err)
	idx, err := Build("repo-1", repoRoot, snap, DefaultHashCapBytes, 1000)
	require.NoError(t, err)

	drift, err := CheckDrift(context.Background(), sc, repoRoot, opts, idx)
	require.NoError(t, err)
	assert.False(t, drift.HasDrift())
}
