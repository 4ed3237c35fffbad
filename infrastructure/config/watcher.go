package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const debounceDuration = 100 * time.Millisecond

// Watcher reloads the YAML overlay when it changes and applies the new log
// level. Other settings take effect on restart; listeners registered with
// OnChange see every accepted reload.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	level    zap.AtomicLevel
	logger   *zap.Logger
	stopCh   chan struct{}
	stopOnce sync.Once

	mu       sync.RWMutex
	current  *Config
	onChange []func(*Config)
}

// NewWatcher watches cfg.ConfigFile. The directory is watched as well so
// editors that save by rename are noticed.
func NewWatcher(cfg *Config, level zap.AtomicLevel, logger *zap.Logger) (*Watcher, error) {
	if cfg.ConfigFile == "" {
		return nil, fmt.Errorf("no config file to watch")
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fw.Add(cfg.ConfigFile); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch config file: %w", err)
	}
	if err := fw.Add(filepath.Dir(cfg.ConfigFile)); err != nil {
		logger.Warn("Failed to watch config directory", zap.Error(err))
	}

	return &Watcher{
		path:    cfg.ConfigFile,
		watcher: fw,
		level:   level,
		logger:  logger,
		stopCh:  make(chan struct{}),
		current: cfg,
	}, nil
}

// Start begins watching for configuration changes
func (w *Watcher) Start() {
	go w.watchLoop()
	w.logger.Info("Configuration watcher started", zap.String("path", w.path))
}

// Stop stops watching. It is safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.watcher.Close()
		w.logger.Info("Configuration watcher stopped")
	})
}

// OnChange registers a callback for accepted reloads.
func (w *Watcher) OnChange(handler func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = append(w.onChange, handler)
}

// Current returns the last accepted configuration.
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

func (w *Watcher) watchLoop() {
	var debounceTimer *time.Timer

	for {
		select {
		case <-w.stopCh:
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(debounceDuration, w.reload)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("File watcher error", zap.Error(err))
		}
	}
}

// reload re-reads the file. An invalid file keeps the current configuration.
func (w *Watcher) reload() {
	w.logger.Info("Configuration file changed, reloading", zap.String("path", w.path))

	next := Defaults()
	next.ConfigFile = w.path
	if err := next.applyFile(w.path); err != nil {
		w.logger.Error("Failed to reload configuration", zap.Error(err))
		return
	}
	next.applyEnv()
	if err := next.Validate(); err != nil {
		w.logger.Error("Invalid configuration, keeping current", zap.Error(err))
		return
	}

	level, err := zapcore.ParseLevel(next.LogLevel)
	if err != nil {
		w.logger.Error("Invalid log level, keeping current", zap.String("log_level", next.LogLevel))
		return
	}

	w.mu.Lock()
	previous := w.current
	w.current = next
	handlers := append([]func(*Config){}, w.onChange...)
	w.mu.Unlock()

	if previous.LogLevel != next.LogLevel {
		w.level.SetLevel(level)
		w.logger.Info("Log level changed",
			zap.String("from", previous.LogLevel),
			zap.String("to", next.LogLevel))
	}
	for _, handler := range handlers {
		handler(next)
	}
}
