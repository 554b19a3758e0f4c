package patch

import (
	"path/filepath"
	"strconv"
	"strings"

	engerr "github.com/ahmeddyounis/orchestrator-sub002/internal/errors"
	"github.com/ahmeddyounis/orchestrator-sub002/internal/pathsafety"
)

type fileBlockState struct {
	hasOldHeader bool
	hasNewHeader bool
	inFileBlock  bool
}

type gitBlockState struct {
	startLine      int
	hasFileHeaders bool
}

// Validate runs a single-pass structural validator over diffText and
// returns a classified *errors.EngineError, or nil if the diff is
// structurally valid under limits.
func Validate(diffText string, limits Limits) *engerr.EngineError {
	trimmed := strings.TrimSpace(diffText)
	if trimmed == "" {
		return engerr.ValidationError("Empty diff", nil)
	}

	lines := strings.Split(diffText, "\n")

	var file fileBlockState
	var git *gitBlockState
	fileCount, added, removed := 0, 0, 0

	for lineNo, line := range lines {
		switch {
		case strings.HasPrefix(line, "diff --git"):
			if git != nil && !git.hasFileHeaders {
				return engerr.New(engerr.ErrCodeInvalidPatch,
					"diff --git block starting at line "+strconv.Itoa(git.startLine)+" has no file headers", nil)
			}
			git = &gitBlockState{startLine: lineNo}
			file = fileBlockState{}

		case strings.HasPrefix(line, "--- "):
			file.hasOldHeader = true
			if git != nil {
				git.hasFileHeaders = true
			}

		case strings.HasPrefix(line, "+++ "):
			if !file.hasOldHeader {
				return engerr.New(engerr.ErrCodeInvalidPatch, "'+++' header without preceding '---' header", nil)
			}
			file.hasNewHeader = true
			file.inFileBlock = true
			if git != nil {
				git.hasFileHeaders = true
			}

			if strings.HasPrefix(line, "+++ b/") {
				fileCount++
				p := strings.TrimPrefix(line, "+++ b/")
				if reason := pathsafety.Check(p); reason != "" {
					return engerr.SecurityError("Path traversal: "+reason, nil).WithDetail("path", p)
				}
				ext := strings.ToLower(filepath.Ext(p))
				if !limits.AllowBinary && binaryExtensions[ext] {
					return engerr.SecurityError("Binary file patch detected", nil).WithDetail("path", p)
				}
			}

		case strings.HasPrefix(line, "@@ "):
			if !file.hasOldHeader || !file.hasNewHeader {
				return engerr.New(engerr.ErrCodeInvalidPatch, "hunk header outside a valid file block", nil)
			}

		default:
			if strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++") {
				added++
			} else if strings.HasPrefix(line, "-") && !strings.HasPrefix(line, "---") {
				removed++
			}
		}
	}

	if fileCount > limits.MaxFilesChanged {
		return engerr.LimitError("Too many files changed", nil).
			WithDetail("fileCount", strconv.Itoa(fileCount)).
			WithDetail("maxFilesChanged", strconv.Itoa(limits.MaxFilesChanged))
	}
	if added+removed > limits.MaxLinesTouched {
		return engerr.LimitError("Too many lines touched", nil).
			WithDetail("linesTouched", strconv.Itoa(added+removed)).
			WithDetail("maxLinesTouched", strconv.Itoa(limits.MaxLinesTouched))
	}
	if file.hasOldHeader && !file.hasNewHeader {
		return engerr.New(engerr.ErrCodeInvalidPatch, "final file block has '---' without '+++'", nil)
	}
	if git != nil && !git.hasFileHeaders {
		return engerr.New(engerr.ErrCodeInvalidPatch, "final diff --git block has no file headers", nil)
	}

	return nil
}

