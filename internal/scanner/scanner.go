package scanner

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ahmeddyounis/orchestrator-sub002/internal/gitignore"
)

const snapshotCacheSize = 64

// Scanner discovers indexable files under a repository root, producing a
// deterministic Snapshot cached by (repoRoot, options).
type Scanner struct {
	mu    sync.Mutex
	cache *lru.Cache[string, *Snapshot]
}

// New creates a Scanner with a bounded snapshot cache.
func New() (*Scanner, error) {
	cache, err := lru.New[string, *Snapshot](snapshotCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create scanner cache: %w", err)
	}
	return &Scanner{cache: cache}, nil
}

// InvalidateCache drops every cached snapshot. Callers must invoke this
// after changing anything a scan depends on that isn't captured by
// ScanOptions (e.g. the working tree's .gitignore content).
func (s *Scanner) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Purge()
}

// Scan walks repoRoot and returns a Snapshot, sorted by RelPath, along with
// any guardrail warnings. Scans are cached: an identical (repoRoot, opts)
// call returns the cached snapshot without re-walking.
func (s *Scanner) Scan(ctx context.Context, repoRoot string, opts ScanOptions) (*Snapshot, error) {
	absRoot, err := filepath.Abs(repoRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve repo root: %w", err)
	}

	key := cacheKey(absRoot, opts)

	s.mu.Lock()
	if cached, ok := s.cache.Get(key); ok {
		s.mu.Unlock()
		return cached, nil
	}
	s.mu.Unlock()

	snap, err := s.scan(ctx, absRoot, opts)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cache.Add(key, snap)
	s.mu.Unlock()

	return snap, nil
}

func cacheKey(absRoot string, opts ScanOptions) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%d|%d|%v", absRoot, opts.MaxFileSize, opts.MaxFiles, opts.Excludes)
	if opts.Submodules != nil {
		fmt.Fprintf(h, "|%+v", *opts.Submodules)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (s *Scanner) scan(ctx context.Context, absRoot string, opts ScanOptions) (*Snapshot, error) {
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to stat repo root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("repo root is not a directory: %s", absRoot)
	}

	maxFileSize := opts.MaxFileSize
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}

	stack := newIgnoreStack(absRoot, opts.Excludes)

	var files []FileRecord
	var warnings []string
	stopped := false

	walkErr := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if stopped {
			return filepath.SkipAll
		}
		if err != nil {
			return nil // inaccessible entries are skipped silently
		}

		relPath, relErr := filepath.Rel(absRoot, path)
		if relErr != nil || relPath == "." {
			return nil
		}
		relPath = filepath.ToSlash(relPath)

		if d.IsDir() {
			if stack.ignored(relPath+"/", true) {
				return filepath.SkipDir
			}
			return nil
		}

		if stack.ignored(relPath, false) {
			return nil
		}

		fi, infoErr := d.Info()
		if infoErr != nil {
			return nil // inaccessible entries are skipped silently
		}

		if fi.Size() > maxFileSize {
			warnings = append(warnings, fmt.Sprintf("skipped %s: size %d exceeds maxFileSize %d", relPath, fi.Size(), maxFileSize))
			return nil
		}

		ext := extension(relPath)
		isText := !binaryExtensions[strings.ToLower(ext)]
		if isText {
			isText = looksLikeText(path)
		}

		files = append(files, FileRecord{
			RelPath:      relPath,
			AbsPath:      path,
			SizeBytes:    fi.Size(),
			MtimeMs:      fi.ModTime().UnixMilli(),
			Ext:          ext,
			IsText:       isText,
			LanguageHint: DetectLanguage(relPath),
		})

		if opts.MaxFiles > 0 && len(files) >= opts.MaxFiles {
			warnings = append(warnings, fmt.Sprintf("stopped scan: reached maxFiles limit of %d", opts.MaxFiles))
			stopped = true
		}

		return nil
	})
	if walkErr != nil && walkErr != context.Canceled {
		return nil, walkErr
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	if opts.Submodules != nil && opts.Submodules.Enabled {
		submodules, discoverErr := DiscoverSubmodules(absRoot, *opts.Submodules)
		if discoverErr != nil {
			slog.Warn("failed to discover submodules", slog.String("error", discoverErr.Error()))
		}
		for _, sm := range submodules {
			if !sm.Initialized {
				warnings = append(warnings, fmt.Sprintf("skipping uninitialized submodule %s", sm.Name))
				continue
			}
			smFiles, smWarnings := s.scanSubmodule(ctx, absRoot, sm.Path, opts, maxFileSize)
			files = append(files, smFiles...)
			warnings = append(warnings, smWarnings...)
		}
	}

	sort.Slice(files, func(i, j int) bool { return files[i].RelPath < files[j].RelPath })

	return &Snapshot{Files: files, Warnings: warnings}, nil
}

// scanSubmodule walks a single submodule directory, recording files with
// their path relative to absRoot (i.e. prefixed by the submodule's path).
func (s *Scanner) scanSubmodule(ctx context.Context, absRoot, submodulePath string, opts ScanOptions, maxFileSize int64) ([]FileRecord, []string) {
	smAbsPath := filepath.Join(absRoot, submodulePath)
	stack := newIgnoreStack(smAbsPath, opts.Excludes)

	var files []FileRecord
	var warnings []string

	_ = filepath.WalkDir(smAbsPath, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			return nil
		}

		relFromSM, relErr := filepath.Rel(smAbsPath, path)
		if relErr != nil || relFromSM == "." {
			return nil
		}
		relFromSM = filepath.ToSlash(relFromSM)

		if d.IsDir() {
			if d.Name() == ".git" || stack.ignored(relFromSM+"/", true) {
				return filepath.SkipDir
			}
			return nil
		}
		if stack.ignored(relFromSM, false) {
			return nil
		}

		fi, infoErr := d.Info()
		if infoErr != nil {
			return nil
		}
		if fi.Size() > maxFileSize {
			warnings = append(warnings, fmt.Sprintf("skipped %s: size %d exceeds maxFileSize %d", filepath.Join(submodulePath, relFromSM), fi.Size(), maxFileSize))
			return nil
		}

		relPath := filepath.ToSlash(filepath.Join(submodulePath, relFromSM))
		ext := extension(relPath)
		isText := !binaryExtensions[strings.ToLower(ext)]
		if isText {
			isText = looksLikeText(path)
		}

		files = append(files, FileRecord{
			RelPath:      relPath,
			AbsPath:      path,
			SizeBytes:    fi.Size(),
			MtimeMs:      fi.ModTime().UnixMilli(),
			Ext:          ext,
			IsText:       isText,
			LanguageHint: DetectLanguage(relPath),
		})
		return nil
	})

	return files, warnings
}

// looksLikeText reads the first 1024 bytes of a file and reports false if
// a NUL byte is found.
func looksLikeText(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return true
	}
	defer func() { _ = f.Close() }()

	buf := make([]byte, 1024)
	n, _ := f.Read(buf)
	return !bytes.Contains(buf[:n], []byte{0})
}

// ignoreStack layers the four ignore sources: built-in directory names, the
// root .gitignore and .orchestratorignore (loaded in that order into one
// matcher), and the caller's excludes (a separate matcher). A path matched
// by any layer is ignored. Because .gitignore and .orchestratorignore share
// a matcher, a "!" rule in .orchestratorignore re-includes a path that
// .gitignore ignores; nothing re-includes a built-in directory, an excluded
// path, or anything under a directory already pruned from the walk.
type ignoreStack struct {
	builtinDirs []string
	gitignore   *gitignore.Matcher
	excludes    *gitignore.Matcher
}

func newIgnoreStack(absRoot string, excludes []string) *ignoreStack {
	stack := &ignoreStack{builtinDirs: builtinIgnoreDirs}

	combined := gitignore.New()
	if data, err := os.ReadFile(filepath.Join(absRoot, ".gitignore")); err == nil {
		for _, line := range strings.Split(string(data), "\n") {
			combined.AddPattern(line)
		}
	}
	if data, err := os.ReadFile(filepath.Join(absRoot, ".orchestratorignore")); err == nil {
		for _, line := range strings.Split(string(data), "\n") {
			combined.AddPattern(line)
		}
	}
	stack.gitignore = combined

	ex := gitignore.New()
	for _, p := range excludes {
		ex.AddPattern(p)
	}
	stack.excludes = ex

	return stack
}

func (s *ignoreStack) ignored(relPath string, isDir bool) bool {
	trimmed := strings.TrimSuffix(relPath, "/")
	base := baseName(trimmed)
	for _, dir := range s.builtinDirs {
		if base == dir {
			return true
		}
	}
	if s.gitignore.Match(relPath, isDir) {
		return true
	}
	if s.excludes.Match(relPath, isDir) {
		return true
	}
	return false
}
