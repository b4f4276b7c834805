package loaders

import (
	"context"

	"github.com/spaghettifunk/anima-assets/engine/memory"
)

// ShaderData holds shader source or bytecode. It uses the same
// length-prefixed layout as text; compiling it is up to the renderer.
type ShaderData struct {
	Blob
}

// Code returns the shader bytes without the trailing NUL.
func (s *ShaderData) Code() []byte {
	return s.Bytes()
}

func LoadShader(ctx context.Context, fs Opener, alloc memory.Allocator, src Source) (*ShaderData, error) {
	b, err := loadBlob(ctx, fs, alloc, src, "loaders.LoadShader")
	if err != nil {
		return nil, err
	}
	return &ShaderData{Blob: *b}, nil
}

func UnloadShader(s *ShaderData) error {
	return s.release()
}
