package patch

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/ahmeddyounis/orchestrator-sub002/internal/pathsafety"
)

var diffGitLine = regexp.MustCompile(`^diff --git a/(.+) b/(.+)$`)

// RepairOptions supplies the context the repair strategies need to resolve
// ambiguous or missing information.
type RepairOptions struct {
	RepoRoot string
	StepHint string
}

// TryRepair attempts the repair strategies in order and returns the first
// one that changes the input, or nil if none applies.
func TryRepair(diffText string, opts RepairOptions) *RepairResult {
	if r := repairMissingHeaders(diffText); r != nil {
		return r
	}
	if r := repairHunkOnlyFragment(diffText, opts); r != nil {
		return r
	}
	return nil
}

// repairMissingHeaders implements strategy 1: insert missing --- / +++
// headers into diff --git blocks that are missing one or both.
func repairMissingHeaders(diffText string) *RepairResult {
	if !strings.Contains(diffText, "diff --git ") {
		return nil
	}

	lines := strings.Split(diffText, "\n")
	var out []string
	changed := false

	i := 0
	for i < len(lines) {
		line := lines[i]
		m := diffGitLine.FindStringSubmatch(line)
		if m == nil {
			out = append(out, line)
			i++
			continue
		}

		pathA, pathB := m[1], m[2]

		// Find end of this block (next diff --git line, or EOF).
		end := i + 1
		for end < len(lines) && !diffGitLine.MatchString(lines[end]) {
			end++
		}
		block := lines[i:end]

		hasOld, hasNew := false, false
		isNewFile, isDeleted := false, false
		var metaEnd int
		inMeta := true
		for idx, l := range block {
			if strings.HasPrefix(l, "--- ") {
				hasOld = true
			}
			if strings.HasPrefix(l, "+++ ") {
				hasNew = true
			}
			if strings.HasPrefix(l, "new file mode") {
				isNewFile = true
			}
			if strings.HasPrefix(l, "deleted file mode") {
				isDeleted = true
			}
			if strings.HasPrefix(l, "--- ") || strings.HasPrefix(l, "+++ ") || strings.HasPrefix(l, "@@ ") {
				inMeta = false
			}
			if inMeta {
				metaEnd = idx + 1
			}
		}

		if hasOld && hasNew {
			out = append(out, block...)
			i = end
			continue
		}

		changed = true
		oldHeader := "--- a/" + pathA
		if isNewFile {
			oldHeader = "--- /dev/null"
		}
		newHeader := "+++ b/" + pathB
		if isDeleted {
			newHeader = "+++ /dev/null"
		}

		out = append(out, block[:metaEnd]...)
		if !hasOld {
			out = append(out, oldHeader)
		}
		if !hasNew {
			out = append(out, newHeader)
		}
		out = append(out, block[metaEnd:]...)

		i = end
	}

	if !changed {
		return nil
	}
	return &RepairResult{
		DiffText: strings.Join(out, "\n"),
		Reason:   "inserted missing file headers into one or more diff --git blocks",
	}
}

var candidatePathPattern = regexp.MustCompile(`[A-Za-z0-9_.-]+(/[A-Za-z0-9_.-]+)+\.[A-Za-z0-9]+`)

// repairHunkOnlyFragment implements strategy 2: wrap a bare hunk fragment
// with synthetic diff --git / --- / +++ headers, inferring the target path
// from a free-form step hint.
func repairHunkOnlyFragment(diffText string, opts RepairOptions) *RepairResult {
	if !strings.Contains(diffText, "@@ ") {
		return nil
	}
	if strings.Contains(diffText, "diff --git ") || strings.Contains(diffText, "--- ") || strings.Contains(diffText, "+++ ") {
		return nil
	}

	path := inferPath(opts)
	if path == "" {
		return nil
	}

	mode := inferMode(diffText)

	var oldHeader, newHeader string
	switch mode {
	case modeNewFile:
		oldHeader, newHeader = "--- /dev/null", "+++ b/"+path
	case modeDelete:
		oldHeader, newHeader = "--- a/"+path, "+++ /dev/null"
	default:
		oldHeader, newHeader = "--- a/"+path, "+++ b/"+path
	}

	header := strings.Join([]string{
		"diff --git a/" + path + " b/" + path,
		oldHeader,
		newHeader,
	}, "\n")

	return &RepairResult{
		DiffText: header + "\n" + diffText,
		Reason:   "wrapped a hunk-only fragment using an inferred target path",
	}
}

type applyMode int

const (
	modeModify applyMode = iota
	modeNewFile
	modeDelete
)

var hunkHeaderPattern = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)

func inferMode(diffText string) applyMode {
	for _, line := range strings.Split(diffText, "\n") {
		m := hunkHeaderPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		oldStart := m[1]
		oldCount := m[2]
		newStart := m[3]
		newCount := m[4]
		if oldStart == "0" && (oldCount == "" || oldCount == "0") {
			return modeNewFile
		}
		if newStart == "0" && (newCount == "" || newCount == "0") {
			return modeDelete
		}
		return modeModify
	}
	return modeModify
}

func inferPath(opts RepairOptions) string {
	matches := candidatePathPattern.FindAllString(opts.StepHint, -1)

	seen := make(map[string]bool)
	var candidates []string
	for _, m := range matches {
		if strings.HasPrefix(m, "/") || strings.Contains(m, "..") {
			continue
		}
		if seen[m] {
			continue
		}
		seen[m] = true
		candidates = append(candidates, m)
	}

	if len(candidates) == 0 {
		return ""
	}
	if len(candidates) == 1 {
		return candidates[0]
	}

	// Multiple candidates: prefer the one that exists on disk, iff exactly
	// one does.
	sort.Strings(candidates)
	existing := 0
	var onDisk string
	for _, c := range candidates {
		if opts.RepoRoot == "" {
			continue
		}
		if pathsafety.Check(c) != "" {
			continue
		}
		if _, err := os.Stat(filepath.Join(opts.RepoRoot, c)); err == nil {
			existing++
			onDisk = c
		}
	}
	if existing == 1 {
		return onDisk
	}
	return ""
}
