package loaders

import (
	"context"

	"github.com/spaghettifunk/anima-assets/engine/memory"
)

// TextData is the payload of a text resource.
type TextData struct {
	Blob
}

// Text returns the content as a string.
func (t *TextData) Text() string {
	return t.String()
}

// LoadText reads the text payload described by src.
func LoadText(ctx context.Context, fs Opener, alloc memory.Allocator, src Source) (*TextData, error) {
	b, err := loadBlob(ctx, fs, alloc, src, "loaders.LoadText")
	if err != nil {
		return nil, err
	}
	return &TextData{Blob: *b}, nil
}

// UnloadText returns the payload block to the allocator it came from.
func UnloadText(t *TextData) error {
	return t.release()
}
