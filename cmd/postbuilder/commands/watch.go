package commands

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	ferrors "git.home.luguber.info/inful/postbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/postbuilder/internal/logfields"
)

const rebuildDebounce = 300 * time.Millisecond

// rebuildWatcher runs a full rebuild whenever anything under dirs changes.
// Bursts of events within debounce collapse into one rebuild.
type rebuildWatcher struct {
	dirs     []string
	ignore   string
	debounce time.Duration
	logger   *slog.Logger
}

// Run builds once, then watches until ctx is canceled. Build failures are
// logged and do not stop the watch.
func (w *rebuildWatcher) Run(ctx context.Context, rebuild func(context.Context) error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryRuntime, "create file watcher").Build()
	}
	defer func() { _ = watcher.Close() }()

	for _, dir := range w.dirs {
		if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
			w.logger.Warn("Not watching missing directory", logfields.Path(dir))
			continue
		}
		w.addDirsRecursive(watcher, dir)
	}

	w.rebuild(ctx, rebuild)

	rebuildReq, trigger := newDebouncer(w.debounce)
	w.logger.Info("Watching for changes", slog.Any("dirs", w.dirs))
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Stopping watch")
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if w.shouldIgnore(ev.Name) {
				continue
			}
			if ev.Has(fsnotify.Create) {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					w.addDirsRecursive(watcher, ev.Name)
				}
			}
			w.logger.Debug("File change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
			trigger()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Watcher error", logfields.Error(err))
		case <-rebuildReq:
			w.logger.Info("Change detected; rebuilding site")
			w.rebuild(ctx, rebuild)
		}
	}
}

func (w *rebuildWatcher) rebuild(ctx context.Context, rebuild func(context.Context) error) {
	if err := rebuild(ctx); err != nil && ctx.Err() == nil {
		w.logger.Warn("Rebuild failed", logfields.Error(err))
	}
}

func (w *rebuildWatcher) shouldIgnore(path string) bool {
	if shouldIgnoreEvent(path) {
		return true
	}
	if w.ignore == "" {
		return false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	root, err := filepath.Abs(w.ignore)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(root, abs)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (w *rebuildWatcher) addDirsRecursive(watcher *fsnotify.Watcher, root string) {
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if err := watcher.Add(path); err != nil {
				w.logger.Warn("Watch add failed", logfields.Path(path), logfields.Error(err))
			}
		}
		return nil
	})
}

// newDebouncer returns a channel that receives once per burst of trigger
// calls, d after the last call.
func newDebouncer(d time.Duration) (<-chan struct{}, func()) {
	var mu sync.Mutex
	var timer *time.Timer
	req := make(chan struct{}, 1)

	trigger := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(d, func() {
			select {
			case req <- struct{}{}:
			default:
			}
		})
	}
	return req, trigger
}

// shouldIgnoreEvent returns true for hidden, swap and lock files.
func shouldIgnoreEvent(path string) bool {
	base := filepath.Base(path)

	if strings.HasPrefix(base, ".") {
		return true
	}
	if strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#") {
		return true
	}
	return base == "Thumbs.db"
}
