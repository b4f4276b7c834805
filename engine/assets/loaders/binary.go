// Package loaders materializes resource payloads from archive streams.
//
// Every loader here follows the same shape: open the backing path, seek to
// the resource offset, read a length-prefixed blob into one block taken
// from the caller's allocator, and remember that allocator so the block is
// released through it on unload.
package loaders

import (
	"context"
	"errors"
	"io"

	"github.com/spaghettifunk/anima-assets/engine/archive"
	"github.com/spaghettifunk/anima-assets/engine/core"
	"github.com/spaghettifunk/anima-assets/engine/memory"
)

// Opener opens archive paths. *archive.FS satisfies it.
type Opener interface {
	Open(ctx context.Context, path string) (archive.Stream, error)
}

// Source locates a payload: a path inside the archive mount table and a byte
// offset into that file.
type Source struct {
	Name   string
	Path   string
	Offset uint64
}

// Blob is a length-prefixed byte payload. The block holds Size bytes followed
// by a single NUL so callers handing it to C-style consumers need no copy.
//
// Releasing a blob returns its block to the allocator but leaves the bytes
// reachable, so views handed out earlier stay readable.
type Blob struct {
	Allocator memory.Allocator
	Size      uint64
	block     []byte
	released  bool
}

// Bytes returns the payload without the trailing NUL.
func (b *Blob) Bytes() []byte {
	return b.block[:b.Size]
}

// CString returns the payload including its trailing NUL.
func (b *Blob) CString() []byte {
	return b.block[:b.Size+1]
}

func (b *Blob) String() string {
	return string(b.Bytes())
}

func (b *Blob) release() error {
	if b.released {
		return core.Errorf(core.KindState, "loaders.Unload", "payload already released")
	}
	b.released = true
	return b.Allocator.Free(b.block)
}

// loadBlob reads `u64 size` followed by size bytes at src.Offset.
func loadBlob(ctx context.Context, fs Opener, alloc memory.Allocator, src Source, op string) (*Blob, error) {
	if err := ctx.Err(); err != nil {
		return nil, core.Wrap(core.KindIO, op, err).WithResource(src.Name).WithPath(src.Path)
	}

	stream, err := fs.Open(ctx, src.Path)
	if err != nil {
		return nil, core.Wrap(core.KindIO, op, err).WithResource(src.Name).WithPath(src.Path)
	}
	defer stream.Close()

	end, err := stream.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, core.Wrap(core.KindIO, op, err).WithResource(src.Name).WithPath(src.Path).WithField("offset")
	}
	if _, err := stream.Seek(int64(src.Offset), io.SeekStart); err != nil {
		return nil, core.Wrap(core.KindIO, op, err).WithResource(src.Name).WithPath(src.Path).WithField("offset")
	}

	size, err := core.ReadUint[uint64](stream)
	if err != nil {
		return nil, readError(op, src, "size", err)
	}
	// Guard the allocation against corrupt sizes before asking for memory.
	if avail := uint64(end) - min(uint64(end), src.Offset+8); size > avail {
		return nil, core.Errorf(core.KindFormat, op, "payload size %d exceeds the %d bytes left in the file", size, avail).
			WithResource(src.Name).WithPath(src.Path).WithField("size")
	}

	block, err := alloc.Allocate(size + 1)
	if err != nil {
		return nil, core.Wrap(core.KindAlloc, op, err).WithResource(src.Name).WithPath(src.Path)
	}
	if _, err := io.ReadFull(stream, block[:size]); err != nil {
		_ = alloc.Free(block)
		return nil, readError(op, src, "data", err)
	}
	block[size] = 0

	return &Blob{Allocator: alloc, Size: size, block: block}, nil
}

func readError(op string, src Source, field string, err error) error {
	e := core.Wrap(core.KindIO, op, err).WithResource(src.Name).WithPath(src.Path).WithField(field)
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		e.Msg = "truncated read"
	}
	return e
}
