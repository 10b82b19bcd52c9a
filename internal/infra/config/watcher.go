package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"webmcpd/internal/domain"
)

const defaultReloadDebounce = 200 * time.Millisecond

// Watcher reloads the config file when it changes on disk and hands
// each successfully loaded config to OnChange. A reload that fails to
// parse or validate is logged and dropped; the last good config stays
// in effect.
type Watcher struct {
	logger   *zap.Logger
	loader   *Loader
	path     string
	onChange func(domain.ServerConfig)
	debounce time.Duration
}

type WatcherOptions struct {
	Path     string
	OnChange func(domain.ServerConfig)
	Loader   *Loader
	Logger   *zap.Logger
	Debounce time.Duration
}

func NewWatcher(opts WatcherOptions) *Watcher {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	loader := opts.Loader
	if loader == nil {
		loader = NewLoader(opts.Logger)
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = defaultReloadDebounce
	}
	onChange := opts.OnChange
	if onChange == nil {
		onChange = func(domain.ServerConfig) {}
	}
	return &Watcher{
		logger:   logger.Named("config_watcher"),
		loader:   loader,
		path:     opts.Path,
		onChange: onChange,
		debounce: debounce,
	}
}

// Run watches the config file until ctx is canceled. The parent
// directory is watched rather than the file itself so atomic
// rename-into-place saves keep working.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("start config watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch config directory: %w", err)
	}
	w.logger.Info("watching config file", zap.String("path", w.path))

	var timer *time.Timer
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-watcher.Errors:
			if err != nil {
				w.logger.Warn("config watcher error", zap.Error(err))
			}
		case event := <-watcher.Events:
			if !w.matches(event.Name) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				continue
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(w.debounce)
		case <-timerChan(timer):
			timer = nil
			w.reload(ctx)
		}
	}
}

func (w *Watcher) matches(path string) bool {
	if path == "" || w.path == "" {
		return false
	}
	return filepath.Clean(path) == filepath.Clean(w.path)
}

func (w *Watcher) reload(ctx context.Context) {
	cfg, err := w.loader.Load(ctx, w.path)
	if err != nil {
		w.logger.Warn("config reload failed", zap.String("path", w.path), zap.Error(err))
		return
	}
	w.logger.Info("config reloaded", zap.String("path", w.path))
	w.onChange(cfg)
}

func timerChan(timer *time.Timer) <-chan time.Time {
	if timer == nil {
		return nil
	}
	return timer.C
}
