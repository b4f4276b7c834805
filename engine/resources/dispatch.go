package resources

import (
	"context"

	"github.com/spaghettifunk/anima-assets/engine/assets/loaders"
	"github.com/spaghettifunk/anima-assets/engine/core"
)

// emptyPayload marks an Empty resource as loaded. Empty resources hold no
// data, but without a marker every dependent transition would walk their
// dependencies again while close only walks them once.
type emptyPayload struct{}

func (s *slot) source() loaders.Source {
	return loaders.Source{Name: s.name, Path: s.path, Offset: s.offset}
}

func unsupported(op string, s *slot) error {
	return core.Errorf(core.KindUnsupported, op, "unsupported resource type %s", s.typ).WithResource(s.name).WithPath(s.path)
}

// materialize runs the type's loader and returns the new payload.
func (m *Manager) materialize(ctx context.Context, s *slot) (any, error) {
	const op = "resources.load"
	switch s.typ {
	case TypeEmpty:
		return emptyPayload{}, nil
	case TypeText:
		return loaders.LoadText(ctx, m.fs, m.alloc, s.source())
	case TypeShader:
		return loaders.LoadShader(ctx, m.fs, m.alloc, s.source())
	case TypeMesh, TypeSkeleton, TypeAnimation, TypeSound, TypeStreamingSound, TypeMaterial:
		return nil, unsupported(op, s)
	default:
		return nil, unsupported(op, s)
	}
}

// release hands a payload back to its loader.
func release(s *slot, payload any) error {
	const op = "resources.unload"
	switch p := payload.(type) {
	case emptyPayload:
		return nil
	case *loaders.TextData:
		return loaders.UnloadText(p)
	case *loaders.ShaderData:
		return loaders.UnloadShader(p)
	default:
		return core.Errorf(core.KindUnsupported, op, "no unloader for payload %T", payload).WithResource(s.name)
	}
}

// load materializes s. The caller holds s.mu, or is the single startup writer.
func (m *Manager) load(ctx context.Context, s *slot) error {
	clock := core.NewClock()
	clock.Start()

	payload, err := m.materialize(ctx, s)
	if err != nil {
		m.logger.Error("Couldn't load resource", "name", s.name, "type", s.typ, "err", err)
		return err
	}
	clock.Stop()

	s.payload = payload
	s.loadedBy = m.alloc
	m.stats.loaded(clock.Elapsed())
	m.logger.Debug("Loaded resource", "name", s.name, "type", s.typ, "took", clock.Elapsed())
	return nil
}

// unload releases the payload of s. The caller holds s.mu.
func (m *Manager) unload(s *slot) error {
	err := release(s, s.payload)
	s.payload = nil
	s.loadedBy = nil
	if err != nil {
		m.logger.Error("Couldn't unload resource", "name", s.name, "type", s.typ, "err", err)
		return err
	}
	m.stats.unloaded()
	m.logger.Debug("Unloaded resource", "name", s.name, "type", s.typ)
	return nil
}

// checkAccess reports whether handles can be opened on s. It only looks at
// the declared type, so it runs before anything is locked or loaded.
func checkAccess(s *slot) error {
	const op = "resources.access"
	switch s.typ {
	case TypeText, TypeShader:
		return nil
	case TypeEmpty:
		return core.Errorf(core.KindUnsupported, op, "EMPTY type resources cannot be accessed (they do not store data)").WithResource(s.name)
	case TypeMesh, TypeSkeleton, TypeAnimation, TypeSound, TypeStreamingSound, TypeMaterial:
		return unsupported(op, s)
	default:
		return unsupported(op, s)
	}
}
