package policywatch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/lorrc/service-desk-sla/internal/core/sla"
)

// Watcher reloads the policy file into a Store whenever it changes on disk.
// A file that fails to parse or validate is logged and the previous policy stays in force.
type Watcher struct {
	path     string
	base     sla.Policy
	store    *Store
	logger   *slog.Logger
	onReload func(sla.Policy)
}

// NewWatcher creates a watcher for path. base supplies thresholds the file omits.
func NewWatcher(path string, base sla.Policy, store *Store, logger *slog.Logger) *Watcher {
	return &Watcher{
		path:   filepath.Clean(path),
		base:   base,
		store:  store,
		logger: logger.With("component", "policy_watcher", "path", path),
	}
}

// OnReload registers a callback invoked after every successful reload.
func (w *Watcher) OnReload(fn func(sla.Policy)) {
	w.onReload = fn
}

// Reload loads the file once and stores the result.
func (w *Watcher) Reload() error {
	policy, err := Load(w.path, w.base)
	if err != nil {
		return err
	}
	w.store.Set(policy)
	if w.onReload != nil {
		w.onReload(policy)
	}
	return nil
}

// Run watches the file's directory until ctx is cancelled. Watching the
// directory keeps the watch alive across editors that replace the file.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fs watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if err := w.Reload(); err != nil {
				w.logger.Warn("policy reload rejected, keeping previous policy", "error", err)
				continue
			}
			w.logger.Info("sla policy reloaded")
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("fs watcher error", "error", err)
		}
	}
}
