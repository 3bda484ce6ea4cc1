package rulestore

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/razvanmacovei/untrack-operator/internal/metrics"
	"github.com/razvanmacovei/untrack-operator/internal/registry"
)

const defaultDebounce = 500 * time.Millisecond

// FileWatcher reloads the base rules when the rules file changes. It
// implements manager.Runnable.
type FileWatcher struct {
	// Path is the rules file to watch.
	Path string
	// Builtin rules are kept ahead of the file's rules on every reload.
	Builtin []registry.Rule
	Store   *Store
	// Debounce collapses bursts of events into one reload.
	Debounce time.Duration
}

// Reload reads the file and replaces the store's base rules. On error the
// previous rules stay active.
func (w *FileWatcher) Reload() error {
	rules, err := registry.LoadFile(w.Path)
	if err != nil {
		return err
	}
	base := make([]registry.Rule, 0, len(w.Builtin)+len(rules))
	base = append(base, w.Builtin...)
	base = append(base, rules...)
	if err := w.Store.SetBase(base); err != nil {
		return fmt.Errorf("apply %s: %w", w.Path, err)
	}
	return nil
}

// NeedLeaderElection lets every replica follow its own copy of the file.
func (w *FileWatcher) NeedLeaderElection() bool {
	return false
}

// Start watches the file until ctx is cancelled.
func (w *FileWatcher) Start(ctx context.Context) error {
	logger := log.FromContext(ctx).WithName("rules-file").WithValues("path", w.Path)

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create rules file watcher: %w", err)
	}
	defer fsw.Close()

	// Editors and mounted ConfigMaps replace the file rather than write to
	// it, so the directory is watched.
	dir := filepath.Dir(w.Path)
	if err := fsw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	logger.Info("watching rules file")

	debounce := w.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	timer := time.NewTimer(debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if w.affects(ev) {
				timer.Reset(debounce)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Error(err, "rules file watcher error")

		case <-timer.C:
			if err := w.Reload(); err != nil {
				logger.Error(err, "reload failed, keeping previous rules")
				continue
			}
			metrics.RuleStoreUpdatesTotal.Inc()
			metrics.ActiveRules.Set(float64(w.Store.Len()))
			logger.Info("rules file reloaded", "registryRules", w.Store.Len())
		}
	}
}

func (w *FileWatcher) affects(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
		return false
	}
	name := filepath.Clean(ev.Name)
	// ConfigMap volumes swap a "..data" symlink on update.
	return name == filepath.Clean(w.Path) || filepath.Base(name) == "..data"
}
