package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"imageset-go/internal/app/runner"
	"imageset-go/internal/domain/eventbus"
	"imageset-go/internal/platform/config"
	"imageset-go/internal/platform/errors"
	"imageset-go/internal/platform/logging"
	"imageset-go/internal/util/work"
)

// rebuildPriority ranks smaller sources ahead of large ones so quick
// rebuilds are not stuck behind a multi-megabyte photo.
func rebuildPriority(path string) int {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return -int(info.Size() / 1024)
}

// Watcher rebuilds derivatives whenever a source image changes. Events
// are debounced per path so editors that write in bursts trigger one
// rebuild.
type Watcher struct {
	cfg    *config.Config
	logger *logging.Logger
	runner *runner.Runner

	watcher *fsnotify.Watcher
	queue   *work.Queue[string]

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// New creates a watcher over the configured source directory.
func New(cfg *config.Config, logger *logging.Logger, run *runner.Runner) (*Watcher, error) {
	if cfg == nil {
		return nil, errors.New(errors.KindConfig, "watch.new", "config is required")
	}
	if logger == nil {
		return nil, errors.New(errors.KindConfig, "watch.new", "logger is required")
	}
	if run == nil {
		return nil, errors.New(errors.KindConfig, "watch.new", "runner is required")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(errors.KindWatch, "watch.new", "create fsnotify watcher", err)
	}

	return &Watcher{
		cfg:     cfg,
		logger:  logger,
		runner:  run,
		watcher: fsw,
		pending: make(map[string]*time.Timer),
	}, nil
}

// Run watches until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	workers := w.cfg.Watch.Workers
	if workers <= 0 {
		workers = 2
	}
	w.queue = work.NewQueue[string](workers, func(path string) {
		w.rebuild(ctx, path)
	})
	defer w.queue.Close()
	defer w.watcher.Close()

	if err := w.addRecursive(w.cfg.Source.Dir); err != nil {
		return err
	}
	w.logger.Info("watching %s for changes", w.cfg.Source.Dir)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error: %v", err)
		}
	}
}

// addRecursive registers dir and every subdirectory with fsnotify, which
// only watches single directories.
func (w *Watcher) addRecursive(dir string) error {
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(errors.KindWatch, "watch.add", "register source directories", err)
	}
	return nil
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	// new directories need their own watch
	if event.Op.Has(fsnotify.Create) && isDir(event.Name) {
		if err := w.watcher.Add(event.Name); err != nil {
			w.logger.Warn("watch new directory %s: %v", event.Name, err)
		}
		return
	}

	if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
		return
	}
	if !w.isSourceImage(event.Name) {
		return
	}

	eventbus.PublishAsync(eventbus.EventSourceChanged, eventbus.SourceChangedEvent{
		Path: event.Name,
		Op:   event.Op.String(),
	})
	w.debounce(event.Name)
}

func (w *Watcher) isSourceImage(path string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	for _, allowed := range w.cfg.Source.Extensions {
		if strings.ToLower(allowed) == ext {
			return true
		}
	}
	return false
}

// debounce coalesces change bursts per path; the trailing edge submits
// the rebuild.
func (w *Watcher) debounce(path string) {
	delay := w.cfg.Watch.Debounce
	if delay <= 0 {
		delay = 250 * time.Millisecond
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.pending[path]; ok {
		timer.Reset(delay)
		return
	}
	w.pending[path] = time.AfterFunc(delay, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()

		if err := w.queue.Submit(path, rebuildPriority(path)); err != nil {
			w.logger.Warn("rebuild for %s not queued: %v", path, err)
		}
	})
}

func (w *Watcher) rebuild(ctx context.Context, path string) {
	w.logger.Info("source changed, rebuilding %s", path)
	if _, err := w.runner.Generate(ctx, path, runner.Overrides{}); err != nil {
		w.logger.Error("rebuild failed for %s: %v", path, err)
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
