package patch

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryRepair_InsertsMissingHeaders(t *testing.T) {
	diff := strings.Join([]string{
		"diff --git a/src/foo.go b/src/foo.go",
		"@@ -1,2 +1,3 @@",
		" package foo",
		"+// added",
		" func Foo() {}",
		"",
	}, "\n")

	result := TryRepair(diff, RepairOptions{})
	require.NotNil(t, result)
	assert.Contains(t, result.DiffText, "--- a/src/foo.go")
	assert.Contains(t, result.DiffText, "+++ b/src/foo.go")

	verr := Validate(result.DiffText, DefaultLimits())
	assert.Nil(t, verr)
}

func TestTryRepair_InsertsNewFileHeader(t *testing.T) {
	diff := strings.Join([]string{
		"diff --git a/src/new.go b/src/new.go",
		"new file mode 100644",
		"@@ -0,0 +1,2 @@",
		"+package foo",
		"+func Foo() {}",
		"",
	}, "\n")

	result := TryRepair(diff, RepairOptions{})
	require.NotNil(t, result)
	assert.Contains(t, result.DiffText, "--- /dev/null")
	assert.Contains(t, result.DiffText, "+++ b/src/new.go")
}

func TestTryRepair_InsertsDeletedFileHeader(t *testing.T) {
	diff := strings.Join([]string{
		"diff --git a/src/old.go b/src/old.go",
		"deleted file mode 100644",
		"@@ -1,2 +0,0 @@",
		"-package foo",
		"-func Foo() {}",
		"",
	}, "\n")

	result := TryRepair(diff, RepairOptions{})
	require.NotNil(t, result)
	assert.Contains(t, result.DiffText, "--- a/src/old.go")
	assert.Contains(t, result.DiffText, "+++ /dev/null")
}

func TestTryRepair_NoChangeForWellFormedDiff(t *testing.T) {
	result := TryRepair(validDiff(), RepairOptions{})
	assert.Nil(t, result)
}

func TestTryRepair_WrapsHunkOnlyFragmentWithSingleCandidate(t *testing.T) {
	diff := strings.Join([]string{
		"@@ -1,2 +1,3 @@",
		" package foo",
		"+// added",
		" func Foo() {}",
		"",
	}, "\n")

	result := TryRepair(diff, RepairOptions{StepHint: "update src/foo.go to add a comment"})
	require.NotNil(t, result)
	assert.Contains(t, result.DiffText, "diff --git a/src/foo.go b/src/foo.go")
	assert.Contains(t, result.DiffText, "--- a/src/foo.go")
	assert.Contains(t, result.DiffText, "+++ b/src/foo.go")
}

func TestTryRepair_HunkOnlyFragmentNoCandidateReturnsNil(t *testing.T) {
	diff := strings.Join([]string{
		"@@ -1,2 +1,3 @@",
		" package foo",
		"+// added",
		"",
	}, "\n")

	result := TryRepair(diff, RepairOptions{StepHint: "update the thing"})
	assert.Nil(t, result)
}

func TestTryRepair_HunkOnlyFragmentDisambiguatesByDiskExistence(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "foo.go"), []byte("package foo\n"), 0o644))

	diff := strings.Join([]string{
		"@@ -1,2 +1,3 @@",
		" package foo",
		"+// added",
		" func Foo() {}",
		"",
	}, "\n")

	result := TryRepair(diff, RepairOptions{
		RepoRoot: dir,
		StepHint: "could be src/foo.go or src/bar.go",
	})
	require.NotNil(t, result)
	assert.Contains(t, result.DiffText, "src/foo.go")
}

func TestInferMode_DetectsNewFile(t *testing.T) {
	mode := inferMode("@@ -0,0 +1,2 @@\n+a\n+b\n")
	assert.Equal(t, modeNewFile, mode)
}

func TestInferMode_DetectsDelete(t *testing.T) {
	mode := inferMode("@@ -1,2 +0,0 @@\n-a\n-b\n")
	assert.Equal(t, modeDelete, mode)
}

func TestInferMode_DetectsModify(t *testing.T) {
	mode := inferMode("@@ -1,2 +1,3 @@\n a\n+b\n c\n")
	assert.Equal(t, modeModify, mode)
}

func TestInferPath_RejectsTraversalCandidates(t *testing.T) {
	path := inferPath(RepairOptions{StepHint: "touches ../../etc/passwd.conf"})
	assert.Equal(t, "", path)
}
