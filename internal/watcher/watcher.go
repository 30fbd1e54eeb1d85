package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/mindbridge/mindbridge/internal/logger"
)

var log = logger.ForComponent("watcher")

type Config struct {
	Enabled        bool
	DebounceWindow time.Duration
	MaxBatchSize   int
	// Patterns are matched against paths relative to the data root;
	// only matching files trigger a flush.
	Patterns []string
}

func DefaultConfig() Config {
	return Config{
		Enabled:        true,
		DebounceWindow: 300 * time.Millisecond,
		MaxBatchSize:   100,
		Patterns: []string{
			"*.json",
			"convert/*/*.json",
		},
	}
}

// Watcher observes the data directory and reports batches of changed
// document paths (relative to the root) through onChange.
type Watcher struct {
	config    Config
	root      string
	fsWatcher *fsnotify.Watcher
	debouncer *Debouncer
	onChange  func(paths []string)

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
}

func New(root string, config Config, onChange func(paths []string)) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		config:    config,
		root:      root,
		fsWatcher: fsWatcher,
		onChange:  onChange,
	}
	w.debouncer = NewDebouncer(config.DebounceWindow, config.MaxBatchSize, w.flush)
	return w, nil
}

func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	if err := w.addRoots(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.running = true
	go w.loop(ctx)

	log.Info("watching data directory", "root", w.root)
	return nil
}

// addRoots watches the data root plus the section subdirectories;
// fsnotify does not recurse on its own.
func (w *Watcher) addRoots() error {
	if err := w.fsWatcher.Add(w.root); err != nil {
		return err
	}
	for _, dir := range []string{
		filepath.Join(w.root, "convert"),
		filepath.Join(w.root, "convert", "consistent"),
		filepath.Join(w.root, "convert", "diff"),
	} {
		if _, err := os.Stat(dir); err != nil {
			continue
		}
		if err := w.fsWatcher.Add(dir); err != nil {
			log.Debug("failed to watch directory", "path", dir, "error", err)
		}
	}
	return nil
}

func (w *Watcher) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			rel, err := filepath.Rel(w.root, event.Name)
			if err != nil {
				continue
			}
			rel = filepath.ToSlash(rel)
			if !w.matches(rel) {
				continue
			}
			log.Debug("document changed", "path", rel, "op", event.Op.String())
			w.debouncer.Add(rel)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.Warn("watch error", "error", err)
		}
	}
}

func (w *Watcher) matches(rel string) bool {
	for _, pattern := range w.config.Patterns {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

func (w *Watcher) flush(paths []string) {
	log.Info("data documents changed", "count", len(paths))
	if w.onChange != nil {
		w.onChange(paths)
	}
}

func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	w.running = false
	if w.cancel != nil {
		w.cancel()
	}
	w.debouncer.Stop()
	w.fsWatcher.Close()
}
