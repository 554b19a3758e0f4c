// Package vcs adapts an external git binary into the checkpoint/rollback
// contract the repo engine drives: status, branch lifecycle, commit-based
// checkpoints, and hard-reset recovery that preserves a designated artifact
// subtree.
package vcs

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DefaultPreservedSubtree is excluded from Rollback-to's clean step so the
// engine's own bookkeeping directory survives a hard reset.
const DefaultPreservedSubtree = ".orchestrator/"

// DefaultTimeout bounds a single git invocation.
const DefaultTimeout = 30 * time.Second

// execCommandFunc matches exec.CommandContext's signature so tests can
// substitute a fake git binary.
type execCommandFunc func(ctx context.Context, name string, args ...string) *exec.Cmd

// Error wraps a failed git invocation with its message and captured
// stderr as a single failure-mapping type.
type Error struct {
	Message string
	Stderr  string
}

func (e *Error) Error() string {
	if e.Stderr == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, e.Stderr)
}

// Adapter drives a git binary with cwd = repoRoot.
type Adapter struct {
	repoRoot string
	binary   string
	timeout  time.Duration

	execCommand execCommandFunc
	lookPath    func(file string) (string, error)
}

// New creates an Adapter that shells out to "git" with cwd = repoRoot.
func New(repoRoot string) *Adapter {
	return &Adapter{
		repoRoot:    repoRoot,
		binary:      "git",
		timeout:     DefaultTimeout,
		execCommand: exec.CommandContext,
		lookPath:    exec.LookPath,
	}
}

// Available reports whether the configured VCS binary can be found on PATH.
func (a *Adapter) Available() bool {
	_, err := a.lookPath(a.binary)
	return err == nil
}

func (a *Adapter) run(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	cmd := a.execCommand(ctx, a.binary, args...)
	cmd.Dir = a.repoRoot

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", &Error{
			Message: fmt.Sprintf("git %s failed", strings.Join(args, " ")),
			Stderr:  strings.TrimSpace(stderr.String()),
		}
	}
	return stdout.String(), nil
}

// Status returns the porcelain-format status string, possibly empty.
func (a *Adapter) Status(ctx context.Context) (string, error) {
	out, err := a.run(ctx, "status", "--porcelain")
	if err != nil {
		return "", err
	}
	return strings.TrimRight(out, "\n"), nil
}

// EnsureClean fails with a message embedding the status if the working tree
// is dirty and allowDirty is false.
func (a *Adapter) EnsureClean(ctx context.Context, allowDirty bool) error {
	status, err := a.Status(ctx)
	if err != nil {
		return err
	}
	if status != "" && !allowDirty {
		return &Error{Message: "working tree is not clean", Stderr: status}
	}
	return nil
}

// CurrentBranch returns the short ref name of HEAD.
func (a *Adapter) CurrentBranch(ctx context.Context) (string, error) {
	out, err := a.run(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// CreateAndCheckoutBranch checks out branch b, creating it from HEAD first
// if it does not already exist.
func (a *Adapter) CreateAndCheckoutBranch(ctx context.Context, b string) error {
	if _, err := a.run(ctx, "rev-parse", "--verify", b); err == nil {
		_, err := a.run(ctx, "checkout", b)
		return err
	}
	_, err := a.run(ctx, "checkout", "-b", b)
	return err
}

// StageAll stages every change in the working tree.
func (a *Adapter) StageAll(ctx context.Context) error {
	_, err := a.run(ctx, "add", ".")
	return err
}

// Commit records a commit with the given message.
func (a *Adapter) Commit(ctx context.Context, message string) error {
	_, err := a.run(ctx, "commit", "-m", message)
	return err
}

// HeadSHA returns the full SHA of HEAD.
func (a *Adapter) HeadSHA(ctx context.Context) (string, error) {
	out, err := a.run(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// DiffToHead returns a unified diff between the working tree (including
// staged changes) and HEAD.
func (a *Adapter) DiffToHead(ctx context.Context) (string, error) {
	return a.run(ctx, "diff", "HEAD")
}

// CreateCheckpoint returns the current HEAD if the working tree is already
// clean, otherwise stages everything, commits "Checkpoint: <label>", and
// returns the new HEAD.
func (a *Adapter) CreateCheckpoint(ctx context.Context, label string) (string, error) {
	status, err := a.Status(ctx)
	if err != nil {
		return "", err
	}
	if status == "" {
		return a.HeadSHA(ctx)
	}

	if err := a.StageAll(ctx); err != nil {
		return "", err
	}
	if err := a.Commit(ctx, "Checkpoint: "+label); err != nil {
		return "", err
	}
	return a.HeadSHA(ctx)
}

// RollbackTo hard-resets to ref, then cleans untracked files/directories
// excluding the preserved subtree, so the working tree equals ref except
// for that subtree.
func (a *Adapter) RollbackTo(ctx context.Context, ref string, preservedSubtree string) error {
	if preservedSubtree == "" {
		preservedSubtree = DefaultPreservedSubtree
	}

	if _, err := a.run(ctx, "reset", "--hard", ref); err != nil {
		return err
	}
	_, err := a.run(ctx, "clean", "-fd", "-e", preservedSubtree)
	return err
}
