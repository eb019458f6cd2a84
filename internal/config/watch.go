package config

import (
	"sync"

	"go.uber.org/zap"

	"github.com/fsnotify/fsnotify"

	"github.com/abdoElHodaky/tradSys/internal/logging"
)

// Watcher reloads the whole Config on config file writes and hands it to
// onWrite, grounded on the teacher's fsnotify usage in the original
// internal/config/manager.go. It applies no field itself: which reloaded
// fields take effect at runtime is decided by onWrite.
type Watcher struct {
	logger  *logging.Logger
	fsw     *fsnotify.Watcher
	onWrite func(*Config)
}

// NewWatcher starts watching configPath for writes and invokes onWrite
// with a freshly reloaded Config after each one.
func NewWatcher(logger *logging.Logger, configPath string, onWrite func(*Config)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(configPath); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	w := &Watcher{logger: logger, fsw: fsw, onWrite: onWrite}
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Write == fsnotify.Write {
				once = sync.Once{}
				config = nil
				cfg, err := Load("")
				if err != nil {
					w.logger.Error("config reload failed", zap.Error(err))
					continue
				}
				w.onWrite(cfg)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", zap.Error(err))
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error { return w.fsw.Close() }
