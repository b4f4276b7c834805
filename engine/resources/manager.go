package resources

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/spaghettifunk/anima-assets/engine/archive"
	"github.com/spaghettifunk/anima-assets/engine/core"
	"github.com/spaghettifunk/anima-assets/engine/memory"
)

/** @brief The configuration for the resource manager */
type Config struct {
	/** @brief The maximum number of resources that can be registered. Fixed for the manager's lifetime. */
	MaxResourceCount uint32
	/** @brief Allocator payloads are created with. Defaults to memory.Heap. */
	Allocator memory.Allocator
	/** @brief Logger for load, unload and manifest events. Nil discards them. */
	Logger *log.Logger
	/** @brief Archives manifests and payloads are read from. */
	FS *archive.FS
}

type dependency struct {
	name string
	// slot caches the resolved Ref; -1 until the first traversal resolves it.
	slot atomic.Int32
}

type slot struct {
	occupied bool

	typ    Type
	hints  Hint
	name   string
	path   string
	offset uint64
	deps   []*dependency

	mu       sync.Mutex
	refs     uint64
	payload  any
	loadedBy memory.Allocator
}

func (s *slot) permanent() bool {
	return s.hints.Has(HintPermanent)
}

// Manager is a fixed-capacity registry of named, typed resources whose
// payloads are loaded on first open and unloaded once the last reference
// is closed.
//
// Slots are claimed by AddManifest, which must finish before any goroutine
// calls Find, Open or Close. After that phase every operation is safe for
// concurrent use.
type Manager struct {
	alloc  memory.Allocator
	logger *log.Logger
	fs     *archive.FS

	slots      []slot
	count      int
	terminated atomic.Bool

	stats counters
}

// New allocates the slot table. The capacity never changes afterwards.
func New(cfg Config) (*Manager, error) {
	if cfg.MaxResourceCount == 0 {
		return nil, core.Errorf(core.KindCapacity, "resources.New", "MaxResourceCount must be > 0")
	}
	if cfg.Allocator == nil {
		cfg.Allocator = memory.Heap
	}
	if cfg.Logger == nil {
		cfg.Logger = core.DiscardLogger()
	}
	if cfg.FS == nil {
		cfg.FS = archive.NewFS()
	}

	m := &Manager{
		alloc:  cfg.Allocator,
		logger: cfg.Logger.WithPrefix("resources"),
		fs:     cfg.FS,
		slots:  make([]slot, cfg.MaxResourceCount),
	}
	m.logger.Info("Successfully initialized resource manager", "capacity", cfg.MaxResourceCount)
	return m, nil
}

// FS returns the archives the manager reads from.
func (m *Manager) FS() *archive.FS { return m.fs }

// Capacity returns the size of the slot table.
func (m *Manager) Capacity() int { return len(m.slots) }

// Len returns the number of occupied slots.
func (m *Manager) Len() int { return m.count }

func (m *Manager) checkAlive(op string) error {
	if m.terminated.Load() {
		return core.Errorf(core.KindState, op, "resource manager terminated")
	}
	return nil
}

func (m *Manager) slot(ref Ref, op string) (*slot, error) {
	if ref < 0 || int(ref) >= len(m.slots) || !m.slots[ref].occupied {
		return nil, core.Errorf(core.KindLookup, op, "invalid resource reference %d", ref)
	}
	return &m.slots[ref], nil
}

// allocateSlot claims the first free slot for name. Startup only; not synchronized.
func (m *Manager) allocateSlot(name string) (Ref, error) {
	for i := range m.slots {
		if !m.slots[i].occupied {
			m.slots[i].occupied = true
			m.count++
			return Ref(i), nil
		}
	}
	return InvalidRef, core.Errorf(core.KindCapacity, "resources.allocateSlot", "max resource count surpassed (%d)", len(m.slots)).WithResource(name)
}

func (m *Manager) releaseSlot(ref Ref) {
	m.slots[ref] = slot{}
	m.count--
}

// Find returns the resource registered under name.
func (m *Manager) Find(name string) (Ref, error) {
	if err := m.checkAlive("resources.Find"); err != nil {
		return InvalidRef, err
	}
	for i := range m.slots {
		if m.slots[i].occupied && m.slots[i].name == name {
			return Ref(i), nil
		}
	}
	return InvalidRef, core.Errorf(core.KindLookup, "resources.Find", "resource not found").WithResource(name)
}

// Info is a point-in-time snapshot of a resource.
type Info struct {
	Ref          Ref
	Name         string
	Type         Type
	Hints        Hint
	Path         string
	Offset       uint64
	Dependencies []string
	RefCount     uint64
	Loaded       bool
}

func (m *Manager) Info(ref Ref) (Info, error) {
	s, err := m.slot(ref, "resources.Info")
	if err != nil {
		return Info{}, err
	}
	deps := make([]string, len(s.deps))
	for i, d := range s.deps {
		deps[i] = d.name
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return Info{
		Ref:          ref,
		Name:         s.name,
		Type:         s.typ,
		Hints:        s.hints,
		Path:         s.path,
		Offset:       s.offset,
		Dependencies: deps,
		RefCount:     s.refs,
		Loaded:       s.payload != nil,
	}, nil
}

// Resources returns snapshots of every occupied slot in slot order.
func (m *Manager) Resources() []Info {
	out := make([]Info, 0, m.count)
	for i := range m.slots {
		if !m.slots[i].occupied {
			continue
		}
		if info, err := m.Info(Ref(i)); err == nil {
			out = append(out, info)
		}
	}
	return out
}

// AddManifest registers every resource described by the manifest at path.
// Permanent resources are loaded immediately, outside the reference count.
//
// Like slot allocation this is a startup operation. If any entry fails, the
// slots claimed for this manifest are released again.
func (m *Manager) AddManifest(ctx context.Context, path string) error {
	const op = "resources.AddManifest"
	if err := m.checkAlive(op); err != nil {
		return err
	}

	stream, err := m.fs.Open(ctx, path)
	if err != nil {
		return core.Wrap(core.KindIO, op, err).WithPath(path)
	}
	defer stream.Close()

	manifest, err := DecodeManifest(stream)
	if err != nil {
		var e *core.Error
		if errors.As(err, &e) && e.Path == "" {
			e.Path = path
			return e
		}
		return core.Wrap(core.KindFormat, op, err).WithPath(path)
	}

	claimed := make([]Ref, 0, len(manifest.Entries))
	for _, entry := range manifest.Entries {
		ref, err := m.register(ctx, entry)
		if err != nil {
			m.rollbackManifest(claimed)
			var e *core.Error
			if errors.As(err, &e) && e.Path == "" {
				e.Path = path
			}
			return err
		}
		claimed = append(claimed, ref)
	}

	m.logger.Info("Added resource manifest", "path", path, "resources", len(claimed))
	return nil
}

func (m *Manager) register(ctx context.Context, e Entry) (Ref, error) {
	const op = "resources.AddManifest"
	if len(e.Dependencies) > MaxDependencyCount {
		return InvalidRef, core.Errorf(core.KindFormat, op, "too many dependencies: %d, the maximum dependency count supported is %d", len(e.Dependencies), MaxDependencyCount).
			WithResource(e.Name).WithField("dependency_count")
	}
	for i := range m.slots {
		if m.slots[i].occupied && m.slots[i].name == e.Name {
			return InvalidRef, core.Errorf(core.KindFormat, op, "duplicate resource name").WithResource(e.Name).WithField("name")
		}
	}

	ref, err := m.allocateSlot(e.Name)
	if err != nil {
		return InvalidRef, err
	}

	s := &m.slots[ref]
	s.typ = e.Type
	s.hints = e.Hints
	s.name = e.Name
	s.path = e.Path
	s.offset = e.Offset
	s.deps = make([]*dependency, len(e.Dependencies))
	for i, name := range e.Dependencies {
		d := &dependency{name: name}
		d.slot.Store(int32(InvalidRef))
		s.deps[i] = d
	}
	s.refs = 0
	s.payload = nil

	if s.permanent() {
		if err := m.load(ctx, s); err != nil {
			m.releaseSlot(ref)
			return InvalidRef, err
		}
	}
	return ref, nil
}

func (m *Manager) rollbackManifest(claimed []Ref) {
	for i := len(claimed) - 1; i >= 0; i-- {
		s := &m.slots[claimed[i]]
		if s.payload != nil {
			if err := m.unload(s); err != nil {
				m.logger.Error("Failed to unload resource while rolling back manifest", "name", s.name, "err", err)
			}
		}
		m.releaseSlot(claimed[i])
	}
}

// Terminate force-unloads every loaded resource and releases the slot table.
// The manager cannot be used afterwards.
func (m *Manager) Terminate() error {
	const op = "resources.Terminate"
	if !m.terminated.CompareAndSwap(false, true) {
		return core.Errorf(core.KindState, op, "resource manager terminated")
	}

	var errs []error
	for i := range m.slots {
		s := &m.slots[i]
		if !s.occupied {
			continue
		}
		s.mu.Lock()
		if s.payload != nil {
			if err := m.unload(s); err != nil {
				errs = append(errs, err)
			}
		}
		s.mu.Unlock()
	}
	m.slots = nil
	m.count = 0

	if len(errs) > 0 {
		return core.Wrap(core.KindState, op, errors.Join(errs...))
	}
	m.logger.Info("Successfully terminated resource manager")
	return nil
}

func (m *Manager) String() string {
	return fmt.Sprintf("resources.Manager{resources: %d/%d}", m.count, len(m.slots))
}
