package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/armazcape/armazd/internal/logfields"
)

// Watcher monitors the configuration layers for edits. The daemon does
// not reload configuration at runtime; onChange only records the fact
// (a machine.config_changed trigger) so operators know a restart is
// pending.
type Watcher struct {
	watcher  *fsnotify.Watcher
	files    map[string]struct{}
	onChange func()
	debounce time.Duration

	changeChan chan struct{}
	stopChan   chan struct{}
	wg         sync.WaitGroup
}

// NewWatcher watches the directories containing the given files.
// Watching directories instead of files survives editors that replace
// on save.
func NewWatcher(paths []string, debounce time.Duration, onChange func()) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config watcher: %w", err)
	}

	w := &Watcher{
		watcher:    fsw,
		files:      make(map[string]struct{}, len(paths)),
		onChange:   onChange,
		debounce:   debounce,
		changeChan: make(chan struct{}, 1),
		stopChan:   make(chan struct{}),
	}

	dirs := make(map[string]struct{})
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			fsw.Close()
			return nil, fmt.Errorf("config watcher: resolve %s: %w", p, err)
		}
		w.files[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("config watcher: watch %s: %w", dir, err)
		}
	}
	return w, nil
}

// Start begins monitoring until Stop or context cancellation.
func (w *Watcher) Start(ctx context.Context) {
	slog.Info("Starting configuration watcher", slog.Int("files", len(w.files)))
	w.wg.Add(2)
	go w.watchLoop(ctx)
	go w.notifyLoop(ctx)
}

// Stop ends monitoring. It joins both loops before returning, so an
// in-flight onChange has completed by the time Stop is back and the
// caller can safely tear down whatever onChange touches.
func (w *Watcher) Stop() {
	close(w.stopChan)
	w.wg.Wait()
	if err := w.watcher.Close(); err != nil {
		slog.Error("Error closing config watcher", logfields.Error(err))
	}
}

func (w *Watcher) watchLoop(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
				continue
			}
			if _, watched := w.files[event.Name]; !watched {
				continue
			}
			slog.Debug("Configuration file changed", logfields.Path(event.Name))
			select {
			case w.changeChan <- struct{}{}:
			default:
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("Config watcher error", logfields.Error(err))
		}
	}
}

// notifyLoop debounces bursts of writes into a single onChange call.
func (w *Watcher) notifyLoop(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case <-w.changeChan:
			timer := time.NewTimer(w.debounce)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-w.stopChan:
				timer.Stop()
				return
			case <-timer.C:
			}
			// Collapse anything that arrived during the quiet window.
			select {
			case <-w.changeChan:
			default:
			}
			w.onChange()
		}
	}
}
