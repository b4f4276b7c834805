package resources

import (
	"context"
	"errors"
	"maps"
	"path"
	"slices"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/spaghettifunk/anima-assets/engine/assets/loaders"
	"github.com/spaghettifunk/anima-assets/engine/core"
)

// Access is a view of a loaded resource, returned by Open and consumed by
// Close.
//
// The handle keeps its own reference to the payload it was opened on. Once
// the resource is unloaded or reloaded the manager forgets that payload, but
// a reader still holding the handle keeps seeing the bytes it was given.
type Access struct {
	manager *Manager
	ref     Ref
	name    string
	typ     Type
	lease   string
	view    any
	closed  atomic.Bool
}

func (a *Access) Ref() Ref     { return a.ref }
func (a *Access) Name() string { return a.name }
func (a *Access) Type() Type   { return a.typ }

// Lease identifies this open/close pairing in log output.
func (a *Access) Lease() string { return a.lease }

// Closed reports whether Close has been called on the handle.
func (a *Access) Closed() bool { return a.closed.Load() }

// Payload returns the loader payload the handle was opened on.
func (a *Access) Payload() any { return a.view }

// Text returns the text payload, or nil if the handle is not a text handle.
func (a *Access) Text() *loaders.TextData {
	t, _ := a.view.(*loaders.TextData)
	return t
}

// Shader returns the shader payload, or nil if the handle is not a shader handle.
func (a *Access) Shader() *loaders.ShaderData {
	s, _ := a.view.(*loaders.ShaderData)
	return s
}

func (m *Manager) newAccess(ref Ref, s *slot) *Access {
	a := &Access{
		manager: m,
		ref:     ref,
		name:    s.name,
		typ:     s.typ,
		lease:   core.NewLeaseID(),
		view:    s.payload,
	}
	m.stats.opens.Add(1)
	m.logger.Debug("Opened resource", "name", s.name, "lease", a.lease, "refs", s.refs)
	return a
}

func (m *Manager) fail(err error) error {
	m.stats.failures.Add(1)
	return err
}

// Open returns an access handle on the resource at ref, loading it and its
// dependencies if it is not loaded yet.
//
// Dependencies are only walked when the reference count of a resource goes
// from zero to one, so reopening a held resource touches nothing but its own
// count. A permanent resource loaded with the manifest still acquires its
// dependencies on its first open. If the transition fails, every count and
// load it performed is undone.
func (m *Manager) Open(ctx context.Context, ref Ref, expected Type) (*Access, error) {
	const op = "resources.Open"
	if err := m.checkAlive(op); err != nil {
		return nil, m.fail(err)
	}
	s, err := m.slot(ref, op)
	if err != nil {
		return nil, m.fail(err)
	}
	if s.typ != expected {
		return nil, m.fail(core.Errorf(core.KindTypeMismatch, op, "resource is %s, expected %s", s.typ, expected).WithResource(s.name))
	}
	if err := checkAccess(s); err != nil {
		return nil, m.fail(err)
	}
	if err := ctx.Err(); err != nil {
		return nil, m.fail(core.Wrap(core.KindIO, op, err).WithResource(s.name))
	}

	s.mu.Lock()
	if s.refs > 0 {
		s.refs++
		a := m.newAccess(ref, s)
		s.mu.Unlock()
		return a, nil
	}
	s.mu.Unlock()

	closure, err := m.closure(ref, op)
	if err != nil {
		return nil, m.fail(err)
	}
	m.lockAll(closure)
	defer m.unlockAll(closure)

	var j journal
	if err := m.activate(ctx, s, &j); err != nil {
		m.rollback(&j)
		return nil, m.fail(err)
	}
	return m.newAccess(ref, s), nil
}

// Close releases a handle. When the last reference to a resource goes away
// its dependencies are released the same way, and it is unloaded unless it
// is permanent.
//
// The handle is only marked closed once the release is accepted, so a
// rejected Close leaves it usable.
func (m *Manager) Close(a *Access) error {
	const op = "resources.Close"
	if a == nil || a.manager == nil {
		return m.fail(core.Errorf(core.KindState, op, "access handle has no resource"))
	}
	if a.manager != m {
		return m.fail(core.Errorf(core.KindState, op, "access handle belongs to another manager").WithResource(a.name))
	}
	if err := m.checkAlive(op); err != nil {
		return m.fail(err)
	}
	s, err := m.slot(a.ref, op)
	if err != nil {
		return m.fail(err)
	}

	s.mu.Lock()
	if err := m.claim(a, s, op); err != nil {
		s.mu.Unlock()
		return m.fail(err)
	}
	if s.refs > 1 {
		a.closed.Store(true)
		s.refs--
		m.closed(a, s)
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	closure, err := m.closure(a.ref, op)
	if err != nil {
		return m.fail(err)
	}
	m.lockAll(closure)
	defer m.unlockAll(closure)

	if err := m.claim(a, s, op); err != nil {
		return m.fail(err)
	}
	a.closed.Store(true)
	err = m.deactivate(s)
	m.closed(a, s)
	if err != nil {
		return m.fail(core.Wrap(core.KindState, op, err).WithResource(s.name))
	}
	return nil
}

// claim checks that a can still give back a reference of s. The caller
// holds s.mu, which every Close of a takes, so the check and the following
// store of a.closed cannot interleave with another Close of a.
func (m *Manager) claim(a *Access, s *slot, op string) error {
	if a.closed.Load() {
		return core.Errorf(core.KindState, op, "access handle already closed").WithResource(a.name)
	}
	if s.refs == 0 {
		return underflow(op, s)
	}
	return nil
}

func (m *Manager) closed(a *Access, s *slot) {
	m.stats.closes.Add(1)
	m.logger.Debug("Closed resource", "name", s.name, "lease", a.lease, "refs", s.refs)
}

func underflow(op string, s *slot) error {
	return core.Errorf(core.KindState, op, "reference count underflow").WithResource(s.name)
}

// journal records what a transition changed so a failure can undo it.
type journal struct {
	incs  []*slot
	loads []*slot
}

// activate counts one reference to s. On the zero to one transition it
// activates every dependency of s, then loads s unless it is already loaded.
// Every slot in the closure of s is locked by the caller.
func (m *Manager) activate(ctx context.Context, s *slot, j *journal) error {
	s.refs++
	j.incs = append(j.incs, s)
	if s.refs > 1 {
		return nil
	}
	for _, d := range s.deps {
		if err := m.activate(ctx, &m.slots[d.ref()], j); err != nil {
			return err
		}
	}
	if s.payload != nil {
		return nil
	}
	if err := m.load(ctx, s); err != nil {
		return err
	}
	j.loads = append(j.loads, s)
	return nil
}

func (m *Manager) rollback(j *journal) {
	for i := len(j.loads) - 1; i >= 0; i-- {
		s := j.loads[i]
		if err := m.unload(s); err != nil {
			m.logger.Error("Failed to unload resource while rolling back open", "name", s.name, "err", err)
		}
	}
	for i := len(j.incs) - 1; i >= 0; i-- {
		j.incs[i].refs--
	}
}

// deactivate drops one reference to s. On the one to zero transition s is
// unloaded unless it is permanent, then its dependencies are deactivated the
// same way. Every slot in the closure of s is locked by the caller.
func (m *Manager) deactivate(s *slot) error {
	if s.refs == 0 {
		return underflow("resources.Close", s)
	}
	s.refs--
	if s.refs > 0 {
		return nil
	}

	var errs []error
	if !s.permanent() && s.payload != nil {
		if err := m.unload(s); err != nil {
			errs = append(errs, err)
		}
	}
	for _, d := range s.deps {
		if err := m.deactivate(&m.slots[d.ref()]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (d *dependency) ref() Ref {
	return Ref(d.slot.Load())
}

// resolve returns the slot d names, caching it on first success.
func (m *Manager) resolve(d *dependency, owner *slot, op string) (Ref, error) {
	if r := d.ref(); r != InvalidRef {
		return r, nil
	}
	for i := range m.slots {
		if m.slots[i].occupied && m.slots[i].name == d.name {
			d.slot.Store(int32(i))
			return Ref(i), nil
		}
	}
	return InvalidRef, core.Errorf(core.KindLookup, op, "dependency %q not found", d.name).WithResource(owner.name).WithField("dependency")
}

// closure returns root and every slot reachable through its dependencies,
// in ascending order. That order is the lock order for every transition.
func (m *Manager) closure(root Ref, op string) ([]Ref, error) {
	seen := map[Ref]struct{}{root: {}}
	stack := []Ref{root}
	for len(stack) > 0 {
		r := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		owner := &m.slots[r]
		for _, d := range owner.deps {
			dr, err := m.resolve(d, owner, op)
			if err != nil {
				return nil, err
			}
			if _, ok := seen[dr]; !ok {
				seen[dr] = struct{}{}
				stack = append(stack, dr)
			}
		}
	}
	return slices.Sorted(maps.Keys(seen)), nil
}

func (m *Manager) lockAll(refs []Ref) {
	for _, r := range refs {
		m.slots[r].mu.Lock()
	}
}

func (m *Manager) unlockAll(refs []Ref) {
	for i := len(refs) - 1; i >= 0; i-- {
		m.slots[refs[i]].mu.Unlock()
	}
}

// OpenAll opens refs concurrently. If any open fails, the handles that did
// succeed are closed again and the first error is returned.
func (m *Manager) OpenAll(ctx context.Context, refs []Ref, expected Type) ([]*Access, error) {
	handles := make([]*Access, len(refs))
	g, gctx := errgroup.WithContext(ctx)
	for i, ref := range refs {
		g.Go(func() error {
			a, err := m.Open(gctx, ref, expected)
			if err != nil {
				return err
			}
			handles[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for _, a := range handles {
			if a == nil {
				continue
			}
			if cerr := m.Close(a); cerr != nil {
				m.logger.Error("Failed to close resource after a failed batch open", "name", a.name, "err", cerr)
			}
		}
		return nil, err
	}
	return handles, nil
}

// Reload replaces the payload of every loaded resource backed by p with a
// fresh read. Reference counts are untouched and open handles keep the
// payload they were opened on. It returns how many resources were reloaded.
func (m *Manager) Reload(ctx context.Context, p string) (int, error) {
	const op = "resources.Reload"
	if err := m.checkAlive(op); err != nil {
		return 0, m.fail(err)
	}
	p = path.Clean(p)

	var (
		count int
		errs  []error
	)
	for i := range m.slots {
		s := &m.slots[i]
		if !s.occupied || s.typ == TypeEmpty || path.Clean(s.path) != p {
			continue
		}
		ok, err := m.reload(ctx, s)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			count++
		}
	}
	if len(errs) > 0 {
		return count, m.fail(errors.Join(errs...))
	}
	if count > 0 {
		m.logger.Info("Reloaded resources", "path", p, "count", count)
	}
	return count, nil
}

func (m *Manager) reload(ctx context.Context, s *slot) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.payload == nil {
		return false, nil
	}

	old := s.payload
	if err := m.load(ctx, s); err != nil {
		return false, err
	}
	if err := release(s, old); err != nil {
		m.logger.Error("Failed to release replaced payload", "name", s.name, "err", err)
	}
	m.stats.reloads.Add(1)
	return true, nil
}
