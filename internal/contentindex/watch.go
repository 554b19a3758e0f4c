package contentindex

import (
	"context"
	"log/slog"

	"github.com/ahmeddyounis/orchestrator-sub002/internal/scanner"
	"github.com/ahmeddyounis/orchestrator-sub002/internal/watcher"
)

// Watch re-runs Update whenever the filesystem watcher reports a debounced
// change under repoRoot, enriching the polling-only Updater with an
// fsnotify-driven mode. It blocks until ctx is cancelled or the watcher's
// event channel closes.
func (u *Updater) Watch(ctx context.Context, repoRoot string, opts scanner.ScanOptions, watchOpts watcher.Options) error {
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
			slog.Warn("content index watch: watcher error", slog.String("error", werr.Error()))
		case _, ok := <-w.Events():
			if !ok {
				return nil
			}
			if _, err := u.Update(ctx, repoRoot, opts); err != nil {
				slog.Warn("content index watch: update failed", slog.String("error", err.Error()))
			}
		}
	}
}
