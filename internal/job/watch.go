package job

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// watchDebounce coalesces the burst of events editors emit per save.
const watchDebounce = 150 * time.Millisecond

// Watch calls run once, then again after every change to input, until
// ctx is done. The parent directory is watched so that files replaced by
// rename are still seen. Errors from run are logged, not returned.
func (r *Runner) Watch(ctx context.Context, input string, run func() error) error {
	target, err := filepath.Abs(input)
	if err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watching %s: %w", input, err)
	}

	rerun := func(reason string) {
		r.log.Info("running pipeline", zap.String("input", input), zap.String("reason", reason))
		if err := run(); err != nil {
			r.log.Error("pipeline failed", zap.String("input", input), zap.Error(err))
		}
	}
	rerun("start")

	timer := time.NewTimer(watchDebounce)
	timer.Stop()
	for {
		select {
		case e, ok := <-w.Events:
			if !ok {
				return nil
			}
			if e.Name != target || !e.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			r.log.Debug("input changed", zap.String("path", e.Name), zap.Stringer("op", e.Op))
			timer.Reset(watchDebounce)

		case <-timer.C:
			rerun("changed")

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			r.log.Warn("watcher error", zap.Error(err))

		case <-ctx.Done():
			return nil
		}
	}
}
