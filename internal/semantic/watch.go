package semantic

import (
	"context"
	"log/slog"

	"github.com/ahmeddyounis/orchestrator-sub002/internal/scanner"
	"github.com/ahmeddyounis/orchestrator-sub002/internal/watcher"
)

// Watch enriches the Updater with fsnotify-driven incremental updates:
// debounced filesystem events trigger Update instead of requiring a
// caller to poll. It blocks until ctx is cancelled or the watcher reports
// a fatal error.
func (u *Updater) Watch(ctx context.Context, repoID, repoRoot string, opts scanner.ScanOptions, watchOpts watcher.Options) error {
	w, err := watcher.NewHybridWatcher(watchOpts.WithDefaults())
	if err != nil {
		return err
	}

	// Start runs its own event loop and only returns once ctx is
	// cancelled or the watcher stops, so it must run in the background --
	// otherwise nothing would ever drain w.Events()/w.Errors() below.
	startErr := make(chan error, 1)
	go func() { startErr <- w.Start(ctx, repoRoot) }()
	defer w.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-startErr:
			return err
		case werr, ok := <-w.Errors():
			if !ok {
				return nil
			}
			slog.Warn("semantic watch: watcher error", slog.String("error", werr.Error()))
		case _, ok := <-w.Events():
			if !ok {
				return nil
			}
			if _, err := u.Update(ctx, repoID, repoRoot, opts); err != nil {
				slog.Warn("semantic watch: update failed", slog.String("error", err.Error()))
			}
		}
	}
}
