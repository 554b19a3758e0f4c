package patch

import (
	"bytes"
	"context"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	engerr "github.com/ahmeddyounis/orchestrator-sub002/internal/errors"
)

// execCommandFunc matches exec.CommandContext's signature so tests can
// substitute a fake VCS binary.
type execCommandFunc func(ctx context.Context, name string, args ...string) *exec.Cmd

// Applier drives an external VCS binary to apply validated diffs.
type Applier struct {
	repoRoot    string
	vcsBinary   string
	execCommand execCommandFunc
}

// NewApplier creates an Applier that shells out to vcsBinary (typically
// "git") with cwd = repoRoot.
func NewApplier(repoRoot, vcsBinary string) *Applier {
	return &Applier{
		repoRoot:    repoRoot,
		vcsBinary:   vcsBinary,
		execCommand: exec.CommandContext,
	}
}

// ApplyUnifiedDiff runs the normalize → validate → no-op shortcut → apply →
// classify pipeline.
func (a *Applier) ApplyUnifiedDiff(ctx context.Context, diffText string, limits Limits) ApplyResult {
	normalized := normalize(diffText)

	if verr := Validate(normalized, limits); verr != nil {
		return ApplyResult{Applied: false, Err: verr}
	}

	if isNoOp(normalized) {
		return ApplyResult{Applied: true, FilesChanged: nil}
	}

	filesChanged := filesChangedIn(normalized)

	stderr, err := a.runApply(ctx, normalized, limits.DryRun, false)
	if err == nil {
		return ApplyResult{Applied: true, FilesChanged: filesChanged}
	}

	if strings.Contains(stderr, "corrupt patch at line") {
		recounted := stripBlankLines(normalized)
		stderr2, err2 := a.runApply(ctx, recounted, limits.DryRun, true)
		if err2 == nil {
			return ApplyResult{Applied: true, FilesChanged: filesChangedIn(recounted)}
		}
		stderr = stderr2
	}

	return ApplyResult{Applied: false, Err: classify(stderr)}
}

func (a *Applier) runApply(ctx context.Context, diffText string, dryRun, recount bool) (string, error) {
	args := []string{"apply", "--whitespace=nowarn", "--ignore-space-change", "--ignore-whitespace"}
	if dryRun {
		args = append(args, "--check")
	}
	if recount {
		args = append(args, "--recount")
	}
	args = append(args, "-")

	cmd := a.execCommand(ctx, a.vcsBinary, args...)
	cmd.Dir = a.repoRoot
	cmd.Stdin = strings.NewReader(diffText)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stderr.String(), err
}

// normalize removes completely empty leading/trailing lines (preserving
// space-only and interior blank lines) and ensures exactly one trailing
// newline.
func normalize(diffText string) string {
	lines := strings.Split(diffText, "\n")

	start := 0
	for start < len(lines) && lines[start] == "" {
		start++
	}
	end := len(lines)
	for end > start && lines[end-1] == "" {
		end--
	}

	return strings.Join(lines[start:end], "\n") + "\n"
}

// stripBlankLines removes all completely empty lines, used for the
// corrupt-patch --recount retry.
func stripBlankLines(diffText string) string {
	lines := strings.Split(diffText, "\n")
	var out []string
	for _, l := range lines {
		if l == "" {
			continue
		}
		out = append(out, l)
	}
	return strings.Join(out, "\n") + "\n"
}

// isNoOp reports whether diffText has file headers but no hunks and no
// content lines -- a header-only patch, treated as a successful apply-no-op.
func isNoOp(diffText string) bool {
	hasOld, hasNew, hasHunk := false, false, false
	for _, line := range strings.Split(diffText, "\n") {
		switch {
		case strings.HasPrefix(line, "--- "):
			hasOld = true
		case strings.HasPrefix(line, "+++ "):
			hasNew = true
		case strings.HasPrefix(line, "@@ "):
			hasHunk = true
		case strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++"):
			return false
		case strings.HasPrefix(line, "-") && !strings.HasPrefix(line, "---"):
			return false
		}
	}
	return hasOld && hasNew && !hasHunk
}

func filesChangedIn(diffText string) []string {
	var files []string
	seen := make(map[string]bool)
	for _, line := range strings.Split(diffText, "\n") {
		if !strings.HasPrefix(line, "+++ b/") {
			continue
		}
		p := strings.TrimPrefix(line, "+++ b/")
		if !seen[p] {
			seen[p] = true
			files = append(files, p)
		}
	}
	return files
}

var (
	fragmentWithoutHeaderPattern = regexp.MustCompile(`error: patch fragment without header at line (\d+)(?::\s*(.*))?`)
	corruptPatchPattern          = regexp.MustCompile(`error: corrupt patch at line (\d+)`)
	patchFailedPattern           = regexp.MustCompile(`error: patch failed: ([^:]+):(\d+)`)
	noSuchFilePattern            = regexp.MustCompile(`error: (.+): No such file or directory`)
	alreadyExistsPattern         = regexp.MustCompile(`error: (.+): already exists`)
)

var suggestionFor = map[engerr.PatchErrorKind]string{
	engerr.PatchErrorInvalidPatch:  "regenerate the diff; it is missing a required header",
	engerr.PatchErrorCorruptPatch:  "regenerate the diff with correct hunk line counts",
	engerr.PatchErrorHunkFailed:    "the file content no longer matches the hunk context; re-read the file and regenerate the diff",
	engerr.PatchErrorFileNotFound:  "the target file does not exist; check the path or mark the hunk as a new file",
	engerr.PatchErrorAlreadyExists: "the target file already exists; do not mark it as a new file",
	engerr.PatchErrorWhitespace:    "whitespace-only mismatch; this is usually harmless but worth reviewing",
	engerr.PatchErrorUnknown:       "inspect the raw VCS output for details",
}

// classify parses stderr line-by-line, matching each line against an
// ordered set of patterns. The overall error kind is the first recognized
// kind; every recognized line is still recorded as a detail entry, except
// whitespace-error lines, which are recorded only while no other kind has
// been seen.
func classify(stderr string) *engerr.EngineError {
	var details []engerr.PatchErrorDetail
	overallKind := engerr.PatchErrorUnknown
	kindSet := false

	for _, line := range strings.Split(stderr, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var d *engerr.PatchErrorDetail

		switch {
		case fragmentWithoutHeaderPattern.MatchString(line):
			m := fragmentWithoutHeaderPattern.FindStringSubmatch(line)
			lineNo, _ := strconv.Atoi(m[1])
			d = &engerr.PatchErrorDetail{Kind: engerr.PatchErrorInvalidPatch, Line: lineNo, Message: line}

		case corruptPatchPattern.MatchString(line):
			m := corruptPatchPattern.FindStringSubmatch(line)
			lineNo, _ := strconv.Atoi(m[1])
			d = &engerr.PatchErrorDetail{Kind: engerr.PatchErrorCorruptPatch, Line: lineNo, Message: line}

		case patchFailedPattern.MatchString(line):
			m := patchFailedPattern.FindStringSubmatch(line)
			lineNo, _ := strconv.Atoi(m[2])
			d = &engerr.PatchErrorDetail{Kind: engerr.PatchErrorHunkFailed, File: m[1], Line: lineNo, Message: line}

		case noSuchFilePattern.MatchString(line):
			m := noSuchFilePattern.FindStringSubmatch(line)
			d = &engerr.PatchErrorDetail{Kind: engerr.PatchErrorFileNotFound, File: m[1], Message: line}

		case alreadyExistsPattern.MatchString(line):
			m := alreadyExistsPattern.FindStringSubmatch(line)
			d = &engerr.PatchErrorDetail{Kind: engerr.PatchErrorAlreadyExists, File: m[1], Message: line}

		case strings.Contains(line, "whitespace error"):
			if !kindSet {
				d = &engerr.PatchErrorDetail{Kind: engerr.PatchErrorWhitespace, Message: line}
			}
		}

		if d == nil {
			continue
		}
		d.Suggestion = suggestionFor[d.Kind]
		details = append(details, *d)
		if !kindSet {
			overallKind = d.Kind
			kindSet = true
		}
	}

	if len(details) == 0 {
		details = append(details, engerr.PatchErrorDetail{
			Kind:       engerr.PatchErrorUnknown,
			Message:    strings.TrimSpace(stderr),
			Suggestion: suggestionFor[engerr.PatchErrorUnknown],
		})
	}

	code := engerr.ErrCodeApplyFailed
	if overallKind == engerr.PatchErrorInvalidPatch {
		code = engerr.ErrCodeInvalidPatch
	} else if overallKind == engerr.PatchErrorCorruptPatch {
		code = engerr.ErrCodeCorruptPatch
	}

	return engerr.New(code, "patch application failed: "+string(overallKind), nil).
		WithPatchErrors(details).
		WithDetail("rawStderr", stderr)
}
