package boot

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces bursts of writes into one reload.
const DefaultDebounce = 100 * time.Millisecond

// Watcher reloads a boot file whenever it changes on disk.
type Watcher struct {
	path     string
	logger   *slog.Logger
	debounce time.Duration
	fs       *fsnotify.Watcher
}

// WatchOption configures a Watcher.
type WatchOption func(*Watcher)

// WithWatchLogger sets the logger. Nil means slog.Default().
func WithWatchLogger(logger *slog.Logger) WatchOption {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) WatchOption {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// NewWatcher watches the boot file at path. The parent directory is
// watched so that editors replacing the file are noticed.
func NewWatcher(path string, opts ...WatchOption) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{path: abs, debounce: DefaultDebounce, fs: fsw}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}
	return w, nil
}

// Run delivers each successfully reloaded document to onChange until ctx
// is done. Documents that fail to load are logged and skipped.
func (w *Watcher) Run(ctx context.Context, onChange func(*Data)) error {
	defer w.fs.Close()

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path || !event.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			timer.Reset(w.debounce)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("boot watcher error", "path", w.path, "error", err)
		case <-timer.C:
			data, err := Load(ctx, FileSource{Path: w.path})
			if err != nil {
				w.logger.Error("boot reload failed", "path", w.path, "error", err)
				continue
			}
			w.logger.Info("boot data reloaded", "path", w.path, "doctypes", len(data.CanRead))
			onChange(data)
		}
	}
}

// Watch is NewWatcher followed by Run.
func Watch(ctx context.Context, path string, onChange func(*Data), opts ...WatchOption) error {
	w, err := NewWatcher(path, opts...)
	if err != nil {
		return err
	}
	return w.Run(ctx, onChange)
}
