// Package twwatch follows a project directory on disk and announces every
// change of its volume.
package twwatch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/gotailwindcss/windpress/twbus"
	"github.com/gotailwindcss/windpress/twfiles"
	"github.com/gotailwindcss/windpress/twvfs"
)

// Source is the bus source name of watcher messages.
const Source = "watch"

// DefaultDelay is how long the watcher waits for changes to settle.
const DefaultDelay = 100 * time.Millisecond

// Watcher reloads the project in a directory when files change and hands
// out the new volume when its content differs from the previous one.
type Watcher struct {
	dir      string
	delay    time.Duration
	bus      *twbus.Bus
	handlers []func(*twvfs.Volume)
	load     []twfiles.Option
	logger   *slog.Logger

	volume *twvfs.Volume
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDelay sets the debounce delay.
func WithDelay(d time.Duration) Option { return func(w *Watcher) { w.delay = d } }

// WithBus publishes vfs.updated on b for every change.
func WithBus(b *twbus.Bus) Option { return func(w *Watcher) { w.bus = b } }

// WithHandler calls fn with every new volume.
func WithHandler(fn func(*twvfs.Volume)) Option {
	return func(w *Watcher) { w.handlers = append(w.handlers, fn) }
}

// WithLoadOptions sets how the directory is read.
func WithLoadOptions(opts ...twfiles.Option) Option { return func(w *Watcher) { w.load = opts } }

// WithLogger sets the logger.
func WithLogger(lg *slog.Logger) Option { return func(w *Watcher) { w.logger = lg } }

// New returns a watcher for dir. The project is loaded once so Volume is
// usable before Run.
func New(dir string, opts ...Option) (*Watcher, error) {
	w := &Watcher{dir: dir, delay: DefaultDelay, logger: slog.Default()}
	for _, opt := range opts {
		opt(w)
	}
	vol, err := twfiles.LoadDir(dir, w.load...)
	if err != nil {
		return nil, err
	}
	w.volume = vol
	return w, nil
}

// Volume returns the last loaded project. It is only safe to call from
// handlers or before Run.
func (w *Watcher) Volume() *twvfs.Volume { return w.volume }

// Run watches until ctx ends.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()
	if err := w.addRecursive(fw, w.dir); err != nil {
		return err
	}

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return ctx.Err()
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Create != 0 {
				if st, err := os.Stat(ev.Name); err == nil && st.IsDir() {
					if err := w.addRecursive(fw, ev.Name); err != nil {
						w.logger.Warn("watch directory failed", "path", ev.Name, "err", err)
					}
				}
			}
			w.logger.Debug("file event", "path", ev.Name, "op", ev.Op.String())
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.delay)
			fire = timer.C
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", "err", err)
		case <-fire:
			timer, fire = nil, nil
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	vol, err := twfiles.LoadDir(w.dir, w.load...)
	if err != nil {
		w.logger.Error("project reload failed", "dir", w.dir, "err", err)
		return
	}
	if vol.Hash() == w.volume.Hash() {
		return
	}
	w.volume = vol
	w.logger.Info("project changed", "dir", w.dir, "files", vol.Len())
	if w.bus != nil {
		m, err := twbus.VFSUpdated(Source, vol)
		if err != nil {
			w.logger.Error("encode volume failed", "err", err)
		} else {
			w.bus.Publish(m)
		}
	}
	for _, fn := range w.handlers {
		fn(vol)
	}
}

func (w *Watcher) addRecursive(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		switch d.Name() {
		case "node_modules", ".git":
			if p != root {
				return filepath.SkipDir
			}
		}
		if err := fw.Add(p); err != nil {
			return fmt.Errorf("watch %s: %w", p, err)
		}
		return nil
	})
}
