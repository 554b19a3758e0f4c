package patch

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	engerr "github.com/ahmeddyounis/orchestrator-sub002/internal/errors"
)

func validDiff() string {
	return strings.Join([]string{
		"diff --git a/src/foo.go b/src/foo.go",
		"--- a/src/foo.go",
		"+++ b/src/foo.go",
		"@@ -1,2 +1,3 @@",
		" package foo",
		"+// added",
		" func Foo() {}",
		"",
	}, "\n")
}

func TestValidate_AcceptsWellFormedDiff(t *testing.T) {
	err := Validate(validDiff(), DefaultLimits())
	assert.Nil(t, err)
}

func TestValidate_RejectsEmptyDiff(t *testing.T) {
	err := Validate("   \n\n", DefaultLimits())
	require.NotNil(t, err)
	assert.Equal(t, engerr.CategoryValidation, err.Category)
}

func TestValidate_RejectsPlusPlusPlusWithoutMinusMinusMinus(t *testing.T) {
	diff := strings.Join([]string{
		"diff --git a/foo.go b/foo.go",
		"+++ b/foo.go",
		"@@ -1 +1 @@",
		"-old",
		"+new",
		"",
	}, "\n")
	err := Validate(diff, DefaultLimits())
	require.NotNil(t, err)
	assert.Equal(t, engerr.ErrCodeInvalidPatch, err.Code)
}

func TestValidate_RejectsHunkOutsideFileBlock(t *testing.T) {
	diff := strings.Join([]string{
		"diff --git a/foo.go b/foo.go",
		"@@ -1 +1 @@",
		"-old",
		"+new",
		"",
	}, "\n")
	err := Validate(diff, DefaultLimits())
	require.NotNil(t, err)
	assert.Equal(t, engerr.ErrCodeInvalidPatch, err.Code)
}

func TestValidate_RejectsUnsafePath(t *testing.T) {
	diff := strings.Join([]string{
		"diff --git a/../secret.go b/../secret.go",
		"--- a/../secret.go",
		"+++ b/../secret.go",
		"@@ -1 +1 @@",
		"-old",
		"+new",
		"",
	}, "\n")
	err := Validate(diff, DefaultLimits())
	require.NotNil(t, err)
	assert.Equal(t, engerr.CategorySecurity, err.Category)
}

func TestValidate_RejectsBinaryFileByDefault(t *testing.T) {
	diff := strings.Join([]string{
		"diff --git a/image.png b/image.png",
		"--- a/image.png",
		"+++ b/image.png",
		"@@ -1 +1 @@",
		"-old",
		"+new",
		"",
	}, "\n")
	err := Validate(diff, DefaultLimits())
	require.NotNil(t, err)
	assert.Equal(t, engerr.CategorySecurity, err.Category)
}

func TestValidate_AllowsBinaryFileWhenPermitted(t *testing.T) {
	diff := strings.Join([]string{
		"diff --git a/image.png b/image.png",
		"--- a/image.png",
		"+++ b/image.png",
		"@@ -1 +1 @@",
		"-old",
		"+new",
		"",
	}, "\n")
	limits := DefaultLimits()
	limits.AllowBinary = true
	err := Validate(diff, limits)
	assert.Nil(t, err)
}

func TestValidate_RejectsTooManyFilesChanged(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 3; i++ {
		b.WriteString("diff --git a/f")
		b.WriteString(string(rune('0' + i)))
		b.WriteString(".go b/f")
		b.WriteString(string(rune('0' + i)))
		b.WriteString(".go\n")
		b.WriteString("--- a/f")
		b.WriteString(string(rune('0' + i)))
		b.WriteString(".go\n")
		b.WriteString("+++ b/f")
		b.WriteString(string(rune('0' + i)))
		b.WriteString(".go\n")
		b.WriteString("@@ -1 +1 @@\n-old\n+new\n")
	}
	limits := DefaultLimits()
	limits.MaxFilesChanged = 2
	err := Validate(b.String(), limits)
	require.NotNil(t, err)
	assert.Equal(t, engerr.CategoryLimit, err.Category)
	assert.Equal(t, "3", err.Details["fileCount"])
}

func TestValidate_RejectsTooManyLinesTouched(t *testing.T) {
	diff := strings.Join([]string{
		"diff --git a/foo.go b/foo.go",
		"--- a/foo.go",
		"+++ b/foo.go",
		"@@ -1,2 +1,2 @@",
		"-a",
		"-b",
		"+c",
		"+d",
		"",
	}, "\n")
	limits := DefaultLimits()
	limits.MaxLinesTouched = 2
	err := Validate(diff, limits)
	require.NotNil(t, err)
	assert.Equal(t, engerr.CategoryLimit, err.Category)
}

func TestValidate_RejectsTruncatedFileBlock(t *testing.T) {
	diff := strings.Join([]string{
		"diff --git a/foo.go b/foo.go",
		"--- a/foo.go",
		"",
	}, "\n")
	err := Validate(diff, DefaultLimits())
	require.NotNil(t, err)
	assert.Equal(t, engerr.ErrCodeInvalidPatch, err.Code)
}

func TestValidate_RejectsDiffGitBlockWithNoHeaders(t *testing.T) {
	diff := strings.Join([]string{
		"diff --git a/foo.go b/foo.go",
		"diff --git a/bar.go b/bar.go",
		"--- a/bar.go",
		"+++ b/bar.go",
		"@@ -1 +1 @@",
		"-old",
		"+new",
		"",
	}, "\n")
	err := Validate(diff, DefaultLimits())
	require.NotNil(t, err)
	assert.Equal(t, engerr.ErrCodeInvalidPatch, err.Code)
}
