// Package patch repairs, validates, and applies unified diffs produced by a
// model, driving an external VCS apply command and classifying its failures
// into structured errors.
package patch

// Limits bounds what a single patch application is allowed to touch.
type Limits struct {
	MaxFilesChanged int
	MaxLinesTouched int
	AllowBinary     bool
	DryRun          bool
}

// DefaultLimits returns the engine's default patch limits.
func DefaultLimits() Limits {
	return Limits{
		MaxFilesChanged: 50,
		MaxLinesTouched: 1000,
		AllowBinary:     false,
		DryRun:          false,
	}
}

// RepairResult is returned by TryRepair when a repair strategy changed the
// input.
type RepairResult struct {
	DiffText string
	Reason   string
}

// ApplyResult is the outcome of ApplyUnifiedDiff.
type ApplyResult struct {
	Applied      bool
	FilesChanged []string
	Err          error
}

var binaryExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".bmp": true,
	".ico": true, ".webp": true, ".pdf": true, ".zip": true, ".tar": true,
	".gz": true, ".exe": true, ".dll": true, ".so": true, ".dylib": true,
	".woff": true, ".woff2": true, ".ttf": true, ".otf": true, ".mp3": true,
	".mp4": true, ".mov": true, ".avi": true, ".bin": true, ".class": true,
}
