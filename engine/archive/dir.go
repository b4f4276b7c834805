package archive

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/spaghettifunk/anima-assets/engine/core"
)

// Dir serves files from a local directory.
type Dir struct {
	root string
}

// NewDir creates a Dir rooted at root. The root is made absolute so watcher
// events can be mapped back to archive names.
func NewDir(root string) (*Dir, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, core.Wrap(core.KindIO, "archive.NewDir", err).WithPath(root)
	}
	return &Dir{root: abs}, nil
}

func (d *Dir) Root() string { return d.root }

// Resolve returns the local path of name.
func (d *Dir) Resolve(name string) (string, error) {
	local := filepath.FromSlash(name)
	if !filepath.IsLocal(local) {
		return "", core.Errorf(core.KindIO, "archive.Dir", "name escapes archive root").WithPath(name)
	}
	return filepath.Join(d.root, local), nil
}

// Rel maps a local path under the root back to an archive name.
func (d *Dir) Rel(local string) (string, bool) {
	rel, err := filepath.Rel(d.root, local)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func (d *Dir) Open(_ context.Context, name string) (Stream, error) {
	p, err := d.Resolve(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, core.Wrap(core.KindIO, "archive.Dir", err).WithPath(name)
	}
	return f, nil
}
