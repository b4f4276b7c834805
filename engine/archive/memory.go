package archive

import (
	"bytes"
	"context"
	"sync"

	"github.com/spaghettifunk/anima-assets/engine/core"
)

// Memory is an in-memory archive, mostly for tests and generated content.
// Thread-safe for concurrent reads and writes.
type Memory struct {
	mu    sync.RWMutex
	files map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{files: make(map[string][]byte)}
}

// Put stores a copy of data under name, replacing any previous content.
func (m *Memory) Put(name string, data []byte) {
	copied := make([]byte, len(data))
	copy(copied, data)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[name] = copied
}

func (m *Memory) Delete(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, name)
}

func (m *Memory) Open(_ context.Context, name string) (Stream, error) {
	m.mu.RLock()
	data, ok := m.files[name]
	m.mu.RUnlock()
	if !ok {
		return nil, core.Errorf(core.KindIO, "archive.Memory", "file not found").WithPath(name)
	}
	// Put replaces the slice rather than mutating it, so readers can share it.
	return &memoryStream{Reader: bytes.NewReader(data)}, nil
}

type memoryStream struct {
	*bytes.Reader
}

func (memoryStream) Close() error { return nil }
