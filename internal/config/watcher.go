package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 500 * time.Millisecond

// Watcher reloads the YAML overlay when it changes and hands the new
// dynamic settings to subscribers. Other sections need a restart.
type Watcher struct {
	path     string
	logger   *zap.Logger
	debounce time.Duration
	load     func() (*Config, error)

	mu        sync.RWMutex
	current   Dynamic
	callbacks []func(Dynamic)

	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	once    sync.Once
}

// NewWatcher watches cfg.File. It returns nil when no file was loaded.
func NewWatcher(cfg *Config, logger *zap.Logger) (*Watcher, error) {
	return newWatcher(cfg, logger, defaultDebounce)
}

func newWatcher(cfg *Config, logger *zap.Logger, debounce time.Duration) (*Watcher, error) {
	if cfg.File == "" {
		return nil, nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	// Editors replace files on save, so watch the directory.
	if err := fsWatcher.Add(filepath.Dir(cfg.File)); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", cfg.File, err)
	}

	w := &Watcher{
		path:     filepath.Clean(cfg.File),
		logger:   logger,
		debounce: debounce,
		load:     Load,
		current:  cfg.Dynamic,
		watcher:  fsWatcher,
		stopCh:   make(chan struct{}),
	}
	go w.watchLoop()

	logger.Info("Configuration hot reloading enabled", zap.String("file", cfg.File))
	return w, nil
}

// OnChange registers a callback for changed dynamic settings.
func (w *Watcher) OnChange(callback func(Dynamic)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

// Current returns the latest dynamic settings.
func (w *Watcher) Current() Dynamic {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Stop ends the watch loop.
func (w *Watcher) Stop() {
	w.once.Do(func() {
		close(w.stopCh)
		w.watcher.Close()
	})
}

func (w *Watcher) watchLoop() {
	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(w.debounce, w.reload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("File watcher error", zap.Error(err))

		case <-w.stopCh:
			return
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := w.load()
	if err != nil {
		w.logger.Error("Invalid configuration after reload, keeping previous settings", zap.Error(err))
		return
	}

	w.mu.Lock()
	old := w.current
	if old == cfg.Dynamic {
		w.mu.Unlock()
		w.logger.Debug("Configuration unchanged after reload")
		return
	}
	w.current = cfg.Dynamic
	callbacks := make([]func(Dynamic), len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.Unlock()

	w.logger.Info("Configuration reloaded",
		zap.String("logLevel", cfg.Dynamic.LogLevel),
		zap.Int("summariesPerMinute", cfg.Dynamic.SummariesPerMinute),
		zap.Bool("summariesEnabled", cfg.Dynamic.SummariesEnabled),
	)
	for i, cb := range callbacks {
		w.notify(i, cb, cfg.Dynamic)
	}
}

func (w *Watcher) notify(idx int, cb func(Dynamic), d Dynamic) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("Configuration callback panicked", zap.Int("callback", idx), zap.Any("panic", r))
		}
	}()
	cb(d)
}
