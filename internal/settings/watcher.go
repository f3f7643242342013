package settings

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher observes the hide-indicator preference and calls onChange once
// per actual change of value. Writes that leave the value unchanged are
// ignored. It carries no radio semantics.
type Watcher struct {
	store    *FileStore
	onChange func(hidden bool)
	logger   *slog.Logger

	mu      sync.Mutex
	value   bool
	fsw     *fsnotify.Watcher
	started bool
	closed  bool
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewWatcher creates a watcher for the store's file.
func NewWatcher(store *FileStore, onChange func(hidden bool), logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		store:    store,
		onChange: onChange,
		logger:   logger.With("watcher", "preferences"),
		done:     make(chan struct{}),
	}
}

// Start reads the initial value and begins watching. The initial value
// does not trigger onChange. A malformed file is logged and read as the
// default; only failing to install the watch is an error.
func (w *Watcher) Start() (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return false, errors.New("preference watcher closed")
	}
	if w.started {
		return w.value, errors.New("preference watcher already started")
	}

	// An unreadable file leaves the default in place; the watch still
	// goes in so a corrected write is picked up by reload.
	p, err := w.store.Load()
	if err != nil {
		w.logger.Warn("loading preferences, using defaults", "error", err)
		p = Preferences{}
	}
	w.value = p.HideIndicator

	if err := os.MkdirAll(filepath.Dir(w.store.Path), 0o755); err != nil {
		return false, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return false, fmt.Errorf("creating file watcher: %w", err)
	}
	// Watch the directory: editors and FileStore.Save replace the file
	// by rename, which drops a watch held on the file itself.
	if err := fsw.Add(filepath.Dir(w.store.Path)); err != nil {
		fsw.Close()
		return false, fmt.Errorf("watching %s: %w", filepath.Dir(w.store.Path), err)
	}
	w.fsw = fsw
	w.started = true

	w.wg.Add(1)
	go w.loop()
	return w.value, nil
}

// Value returns the last observed value.
func (w *Watcher) Value() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.value
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	target := filepath.Clean(w.store.Path)
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			w.reload()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", "error", err)
		}
	}
}

func (w *Watcher) reload() {
	// A truncating writer produces an empty file before the content lands.
	if info, err := os.Stat(w.store.Path); err == nil && info.Size() == 0 {
		return
	}
	p, err := w.store.Load()
	if err != nil {
		// A partially written file from a non-atomic editor; the next
		// write event will carry the final content.
		w.logger.Debug("preference reload failed", "error", err)
		return
	}

	w.mu.Lock()
	if w.closed || p.HideIndicator == w.value {
		w.mu.Unlock()
		return
	}
	w.value = p.HideIndicator
	w.mu.Unlock()

	w.logger.Debug("hide_indicator changed", "value", p.HideIndicator)
	if w.onChange != nil {
		w.onChange(p.HideIndicator)
	}
}

// Close deregisters the watch. It returns nil whether or not a change was
// ever observed and is safe to call more than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.done)
	fsw := w.fsw
	w.mu.Unlock()

	var err error
	if fsw != nil {
		err = fsw.Close()
	}
	w.wg.Wait()
	return err
}
