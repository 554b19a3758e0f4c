// Package pathsafety validates candidate relative paths extracted from
// model-produced diffs before they ever touch the filesystem.
package pathsafety

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	driveLetterPattern = regexp.MustCompile(`^[A-Za-z]:[\\/]?`)
	deviceNamePattern  = regexp.MustCompile(`(?i)^(con|prn|aux|nul|com[0-9]|lpt[0-9])(\.[^/\\]*)?$`)
)

// maxDecodeRounds bounds the percent-decode loop so a pathological input
// (e.g. "%2525252e252e") cannot force unbounded work.
const maxDecodeRounds = 5

// Check inspects a candidate relative path P and returns a human-readable
// rejection reason, or "" if the path is safe to use. Checks are ordered for
// fast-fail on the cheapest, most common attacks first.
func Check(p string) string {
	// 1. NUL byte or its literal percent-encoding.
	if strings.ContainsRune(p, 0) || strings.Contains(p, "%00") {
		return "path contains a NUL byte"
	}

	// 2. Up to 5 rounds of URI-decoding must never reveal a traversal
	// sequence. Stop decoding at the first round that errors or stops
	// changing the string.
	decoded := p
	for i := 0; i < maxDecodeRounds; i++ {
		next, err := url.QueryUnescape(decoded)
		if err != nil {
			break
		}
		if containsTraversal(next) {
			return "path contains a traversal sequence"
		}
		if next == decoded {
			break
		}
		decoded = next
	}
	if containsTraversal(p) {
		return "path contains a traversal sequence"
	}

	normalized := strings.ReplaceAll(p, `\`, "/")

	// 3. Normalized form must not be absolute.
	if strings.HasPrefix(normalized, "/") {
		return "path is absolute"
	}

	// 4. Windows drive-letter prefix, checked on both original and
	// normalized forms.
	if driveLetterPattern.MatchString(p) || driveLetterPattern.MatchString(normalized) {
		return "path has a drive-letter prefix"
	}

	// 5. UNC-style prefix.
	if strings.HasPrefix(p, "//") || strings.HasPrefix(p, `\\`) {
		return "path is a UNC path"
	}

	// 6. Reserved Windows device names, checked per path segment.
	for _, seg := range strings.Split(normalized, "/") {
		if seg == "" {
			continue
		}
		if deviceNamePattern.MatchString(seg) {
			return "path segment is a reserved device name"
		}
	}

	// 7. Encoded path separators, case-insensitive.
	lower := strings.ToLower(p)
	if strings.Contains(lower, "%2f") || strings.Contains(lower, "%5c") {
		return "path contains an encoded path separator"
	}

	return ""
}

// IsSafe is a convenience wrapper returning true iff Check finds no issue.
func IsSafe(p string) bool {
	return Check(p) == ""
}

func containsTraversal(s string) bool {
	return strings.Contains(s, "../") || strings.Contains(s, `..\`) || s == ".." ||
		strings.HasSuffix(s, "/..") || strings.Contains(s, "/../")
}
