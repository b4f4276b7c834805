package resources

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/spaghettifunk/anima-assets/engine/core"
)

// Strict wraps a Manager for callers that treat every resource error as
// fatal: authored content is expected to be correct, so a bad manifest, a
// missing name or a type mismatch logs its context and exits the process.
type Strict struct {
	m      *Manager
	logger *log.Logger
	fatal  func(*log.Logger, error)
}

func NewStrict(m *Manager) *Strict {
	return &Strict{m: m, logger: m.logger, fatal: core.Fatal}
}

// Manager returns the wrapped manager.
func (s *Strict) Manager() *Manager { return s.m }

func (s *Strict) check(err error) bool {
	if err == nil {
		return true
	}
	s.fatal(s.logger, err)
	return false
}

func (s *Strict) AddManifest(ctx context.Context, path string) {
	s.check(s.m.AddManifest(ctx, path))
}

func (s *Strict) Find(name string) Ref {
	ref, err := s.m.Find(name)
	if !s.check(err) {
		return InvalidRef
	}
	return ref
}

func (s *Strict) Open(ctx context.Context, ref Ref, expected Type) *Access {
	a, err := s.m.Open(ctx, ref, expected)
	if !s.check(err) {
		return nil
	}
	return a
}

func (s *Strict) Close(a *Access) {
	s.check(s.m.Close(a))
}

func (s *Strict) Terminate() {
	s.check(s.m.Terminate())
}
