// Package archive is the byte-stream provider resources are read from.
//
// An FS maps the first segment of a path to a mounted Archive, so
// "data/text.mri" opens "text.mri" inside whatever is mounted as "data".
// Archives only read; producing them is left to offline tooling.
package archive

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/spaghettifunk/anima-assets/engine/core"
)

// Stream is a seekable read handle on a single file.
type Stream interface {
	io.Reader
	io.Seeker
	io.Closer
}

// Archive opens named files for reading.
//
// Implementations should return an error satisfying errors.Is(err, core.ErrIO)
// when a name does not exist.
type Archive interface {
	Open(ctx context.Context, name string) (Stream, error)
}

// FS is a mount table of archives.
type FS struct {
	mu     sync.RWMutex
	mounts map[string]Archive
}

func NewFS() *FS {
	return &FS{mounts: make(map[string]Archive)}
}

// Mount registers a under name. Names must be unique and contain no slash.
func (fs *FS) Mount(name string, a Archive) error {
	if name == "" || strings.Contains(name, "/") {
		return core.Errorf(core.KindFormat, "archive.Mount", "invalid mount name %q", name)
	}
	if a == nil {
		return core.Errorf(core.KindState, "archive.Mount", "nil archive for mount %q", name)
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if _, ok := fs.mounts[name]; ok {
		return core.Errorf(core.KindState, "archive.Mount", "mount %q already registered", name)
	}
	fs.mounts[name] = a
	return nil
}

func (fs *FS) Unmount(name string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if _, ok := fs.mounts[name]; !ok {
		return core.Errorf(core.KindLookup, "archive.Unmount", "mount %q not registered", name)
	}
	delete(fs.mounts, name)
	return nil
}

// Mounts returns the registered mount names in order.
func (fs *FS) Mounts() []string {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	names := make([]string, 0, len(fs.mounts))
	for n := range fs.mounts {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Archive returns the archive mounted under name.
func (fs *FS) Archive(name string) (Archive, bool) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	a, ok := fs.mounts[name]
	return a, ok
}

// Find resolves path to its archive and the name inside it.
func (fs *FS) Find(path string) (Archive, string, error) {
	mount, rest, ok := strings.Cut(path, "/")
	if !ok || rest == "" {
		return nil, "", core.Errorf(core.KindIO, "archive.Find", "path has no mount prefix").WithPath(path)
	}
	a, found := fs.Archive(mount)
	if !found {
		return nil, "", core.Errorf(core.KindIO, "archive.Find", "no archive mounted as %q", mount).WithPath(path)
	}
	return a, rest, nil
}

// Open finds and opens path.
func (fs *FS) Open(ctx context.Context, path string) (Stream, error) {
	a, name, err := fs.Find(path)
	if err != nil {
		return nil, err
	}
	s, err := a.Open(ctx, name)
	if err != nil {
		return nil, core.Wrap(core.KindIO, "archive.Open", err).WithPath(path)
	}
	return s, nil
}
