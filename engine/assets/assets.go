// Package assets watches directory archives and reloads resources whose
// backing files change on disk.
package assets

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/spaghettifunk/anima-assets/engine/archive"
	"github.com/spaghettifunk/anima-assets/engine/core"
)

// Reloader refreshes every loaded resource backed by an archive path.
// *resources.Manager satisfies it.
type Reloader interface {
	Reload(ctx context.Context, path string) (int, error)
}

// Event reports one reload triggered by a file change.
type Event struct {
	Path     string
	Reloaded int
	Err      error
}

type mount struct {
	name string
	dir  *archive.Dir
}

// Watcher maps file system events under mounted directory archives back to
// archive paths and hands them to a Reloader.
type Watcher struct {
	reloader Reloader
	logger   *log.Logger
	mounts   []mount

	mutex    sync.Mutex
	started  bool
	isClosed bool
	done     chan struct{}
	stopped  chan struct{}
	fsnotify *fsnotify.Watcher
	events   chan Event
}

// NewWatcher watches every *archive.Dir mounted in fs. Other archive kinds
// have no local files and are skipped.
func NewWatcher(fs *archive.FS, reloader Reloader, logger *log.Logger) (*Watcher, error) {
	if logger == nil {
		logger = core.Logger()
	}
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, core.Wrap(core.KindIO, "assets.NewWatcher", err)
	}

	w := &Watcher{
		reloader: reloader,
		logger:   logger.WithPrefix("assets"),
		fsnotify: fsWatch,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
		events:   make(chan Event, 64),
	}
	for _, name := range fs.Mounts() {
		a, _ := fs.Archive(name)
		if dir, ok := a.(*archive.Dir); ok {
			w.mounts = append(w.mounts, mount{name: name, dir: dir})
		}
	}
	return w, nil
}

// Start adds every watched directory and begins dispatching events.
func (w *Watcher) Start() error {
	for _, m := range w.mounts {
		if err := w.addRecursive(m.dir.Root()); err != nil {
			return core.Wrap(core.KindIO, "assets.Start", err).WithPath(m.dir.Root())
		}
	}
	w.mutex.Lock()
	w.started = true
	w.mutex.Unlock()

	go w.start()
	w.logger.Info("Watching archives for changes", "mounts", len(w.mounts))
	return nil
}

// Events delivers reload results. Results are dropped when nobody keeps up.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Close stops the watcher and waits for the event loop to exit.
func (w *Watcher) Close() error {
	w.mutex.Lock()
	if w.isClosed {
		w.mutex.Unlock()
		return nil
	}
	w.isClosed = true
	started := w.started
	w.mutex.Unlock()

	if !started {
		close(w.events)
		return w.fsnotify.Close()
	}
	close(w.done)
	<-w.stopped
	return nil
}

func (w *Watcher) closed() bool {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.isClosed
}

// addRecursive starts watching the named directory and all sub-directories.
func (w *Watcher) addRecursive(name string) error {
	if w.closed() {
		return errors.New("watcher already closed")
	}
	return filepath.Walk(name, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			return w.fsnotify.Add(walkPath)
		}
		return nil
	})
}

func (w *Watcher) start() {
	defer func() {
		close(w.events)
		close(w.stopped)
	}()
	for {
		select {
		case e, ok := <-w.fsnotify.Events:
			if !ok {
				return
			}
			if e.Op&fsnotify.Create != 0 {
				if s, err := os.Stat(e.Name); err == nil && s.IsDir() {
					if err := w.addRecursive(e.Name); err != nil {
						w.logger.Error("Couldn't watch new directory", "path", e.Name, "err", err)
					}
					continue
				}
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				w.handleFileEvent(e.Name)
			}

		case err, ok := <-w.fsnotify.Errors:
			if !ok {
				return
			}
			w.logger.Error("File watcher error", "err", err)

		case <-w.done:
			w.fsnotify.Close()
			return
		}
	}
}

// archivePath maps a local file to "<mount>/<name>".
func (w *Watcher) archivePath(local string) (string, bool) {
	for _, m := range w.mounts {
		if rel, ok := m.dir.Rel(local); ok {
			return m.name + "/" + rel, true
		}
	}
	return "", false
}

func (w *Watcher) handleFileEvent(local string) {
	path, ok := w.archivePath(local)
	if !ok {
		return
	}

	n, err := w.reloader.Reload(context.Background(), path)
	if err != nil {
		w.logger.Warn("Couldn't reload resources", "path", path, "err", err)
	} else if n > 0 {
		w.logger.Debug("Reloaded resources after change", "path", path, "count", n)
	}

	select {
	case w.events <- Event{Path: path, Reloaded: n, Err: err}:
	default:
	}
}
