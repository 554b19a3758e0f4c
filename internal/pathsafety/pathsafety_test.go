package pathsafety

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheck_AcceptsOrdinaryPaths(t *testing.T) {
	for _, p := range []string{
		"src/foo.ts",
		"README.md",
		"a/b/c/d.go",
		"file-with-dashes.txt",
	} {
		assert.Equal(t, "", Check(p), "expected %q to be accepted", p)
	}
}

func TestCheck_RejectsNulByte(t *testing.T) {
	assert.NotEmpty(t, Check("foo\x00.txt"))
	assert.NotEmpty(t, Check("foo%00.txt"))
}

func TestCheck_RejectsTraversal(t *testing.T) {
	assert.NotEmpty(t, Check("../secret.txt"))
	assert.NotEmpty(t, Check("a/../../secret.txt"))
	assert.NotEmpty(t, Check(`..\secret.txt`))
	assert.NotEmpty(t, Check(".."))
}

func TestCheck_RejectsEncodedTraversal(t *testing.T) {
	// %2e%2e%2f decodes once to "../"
	assert.NotEmpty(t, Check("%2e%2e%2fsecret.txt"))
	// double-encoded: %252e%252e%252f -> %2e%2e%2f -> ../
	assert.NotEmpty(t, Check("%252e%252e%252fsecret.txt"))
}

func TestCheck_RejectsLeadingSlash(t *testing.T) {
	assert.NotEmpty(t, Check("/etc/passwd"))
	assert.NotEmpty(t, Check(`\etc\passwd`))
}

func TestCheck_RejectsDriveLetter(t *testing.T) {
	assert.NotEmpty(t, Check(`C:\Windows\system32`))
	assert.NotEmpty(t, Check("C:/Windows/system32"))
	assert.NotEmpty(t, Check("C:foo"))
}

func TestCheck_RejectsUNC(t *testing.T) {
	assert.NotEmpty(t, Check(`\\server\share`))
	assert.NotEmpty(t, Check("//server/share"))
}

func TestCheck_RejectsDeviceNames(t *testing.T) {
	for _, p := range []string{"con", "CON.txt", "prn", "aux", "nul", "com1", "lpt9", "a/com3/b.txt"} {
		assert.NotEmpty(t, Check(p), "expected %q to be rejected", p)
	}
}

func TestCheck_RejectsEncodedSeparators(t *testing.T) {
	assert.NotEmpty(t, Check("a%2fb"))
	assert.NotEmpty(t, Check("a%5Cb"))
}

func TestCheck_OrderingNulFirst(t *testing.T) {
	// A path with both a NUL byte and other issues still reports the NUL reason.
	reason := Check("/abs\x00path")
	assert.Contains(t, reason, "NUL")
}

func TestIsSafe(t *testing.T) {
	assert.True(t, IsSafe("src/foo.ts"))
	assert.False(t, IsSafe("../secret.txt"))
}
