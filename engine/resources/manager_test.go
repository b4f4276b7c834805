package resources

import (
	"bytes"
	"context"
	"encoding/binary"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/anima-assets/engine/archive"
	"github.com/spaghettifunk/anima-assets/engine/core"
	"github.com/spaghettifunk/anima-assets/engine/memory"
)

const dataPath = "data/data.bin"

// fixture packs text payloads into data/data.bin and manifests next to it,
// all inside an in-memory archive mounted as "data".
type fixture struct {
	t       *testing.T
	mem     *archive.Memory
	fs      *archive.FS
	data    bytes.Buffer
	tracker *memory.Tracker
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		t:       t,
		mem:     archive.NewMemory(),
		fs:      archive.NewFS(),
		tracker: memory.NewTracker(nil, 0),
	}
	require.NoError(t, f.fs.Mount("data", f.mem))
	return f
}

// text appends a length-prefixed payload and returns its offset.
func (f *fixture) text(content string) uint64 {
	off := uint64(f.data.Len())
	_ = binary.Write(&f.data, binary.LittleEndian, uint64(len(content)))
	f.data.WriteString(content)
	f.mem.Put("data.bin", f.data.Bytes())
	return off
}

func (f *fixture) textEntry(name, content string, deps ...string) Entry {
	return Entry{Type: TypeText, Name: name, Path: dataPath, Offset: f.text(content), Dependencies: deps}
}

func (f *fixture) manifest(name string, entries ...Entry) string {
	f.t.Helper()
	var buf bytes.Buffer
	require.NoError(f.t, EncodeManifest(&buf, &Manifest{Entries: entries}))
	f.mem.Put(name, buf.Bytes())
	return "data/" + name
}

func (f *fixture) manager(capacity uint32) *Manager {
	f.t.Helper()
	m, err := New(Config{
		MaxResourceCount: capacity,
		Allocator:        f.tracker,
		Logger:           core.DiscardLogger(),
		FS:               f.fs,
	})
	require.NoError(f.t, err)
	return m
}

func (f *fixture) load(capacity uint32, entries ...Entry) *Manager {
	f.t.Helper()
	m := f.manager(capacity)
	require.NoError(f.t, m.AddManifest(context.Background(), f.manifest("test.mri", entries...)))
	return m
}

func info(t *testing.T, m *Manager, name string) Info {
	t.Helper()
	ref, err := m.Find(name)
	require.NoError(t, err)
	i, err := m.Info(ref)
	require.NoError(t, err)
	return i
}

func TestNew_ZeroCapacity(t *testing.T) {
	_, err := New(Config{MaxResourceCount: 0})
	require.ErrorIs(t, err, core.ErrCapacity)
}

func TestNew_Defaults(t *testing.T) {
	m, err := New(Config{MaxResourceCount: 2})
	require.NoError(t, err)
	assert.Equal(t, log.FatalLevel, m.logger.GetLevel())
	assert.Equal(t, memory.Heap, m.alloc)
	assert.Empty(t, m.FS().Mounts())
	require.NoError(t, m.Terminate())
}

func TestAddManifest_Empty(t *testing.T) {
	f := newFixture(t)
	m := f.load(4)

	assert.Zero(t, m.Len())
	assert.Equal(t, 4, m.Capacity())
	assert.Empty(t, m.Resources())

	_, err := m.Find("anything")
	require.ErrorIs(t, err, core.ErrNotFound)

	// Still usable: a second manifest layers on top.
	require.NoError(t, m.AddManifest(context.Background(), f.manifest("more.mri", f.textEntry("a", "A"))))
	assert.Equal(t, 1, m.Len())
}

func TestAddManifest_Registers(t *testing.T) {
	f := newFixture(t)
	m := f.load(8,
		f.textEntry("greeting", "hello"),
		Entry{Type: TypeEmpty, Name: "group", Hints: HintCpuOnly, Dependencies: []string{"greeting"}},
	)
	assert.Equal(t, 2, m.Len())

	g := info(t, m, "greeting")
	assert.Equal(t, TypeText, g.Type)
	assert.Equal(t, dataPath, g.Path)
	assert.Zero(t, g.RefCount)
	assert.False(t, g.Loaded)

	grp := info(t, m, "group")
	assert.Equal(t, TypeEmpty, grp.Type)
	assert.Equal(t, HintCpuOnly, grp.Hints)
	assert.Equal(t, []string{"greeting"}, grp.Dependencies)
	assert.Zero(t, f.tracker.Stats().LiveBytes)
}

func TestAddManifest_Layering(t *testing.T) {
	f := newFixture(t)
	m := f.manager(4)
	ctx := context.Background()

	require.NoError(t, m.AddManifest(ctx, f.manifest("one.mri", f.textEntry("base", "base"))))
	require.NoError(t, m.AddManifest(ctx, f.manifest("two.mri", f.textEntry("top", "top", "base"))))

	ref, err := m.Find("top")
	require.NoError(t, err)
	a, err := m.Open(ctx, ref, TypeText)
	require.NoError(t, err)
	assert.Equal(t, "top", a.Text().Text())
	assert.True(t, info(t, m, "base").Loaded)
	require.NoError(t, m.Close(a))
}

func TestAddManifest_PermanentLoadsEagerly(t *testing.T) {
	f := newFixture(t)
	m := f.load(4,
		f.textEntry("dep", "dep"),
		Entry{Type: TypeText, Hints: HintPermanent, Name: "sticky", Path: dataPath, Offset: f.text("sticky"), Dependencies: []string{"dep"}},
	)

	s := info(t, m, "sticky")
	assert.True(t, s.Loaded)
	assert.Zero(t, s.RefCount)
	// Only the permanent resource itself is forced in.
	assert.False(t, info(t, m, "dep").Loaded)
	assert.Equal(t, uint64(len("sticky")+1), f.tracker.Stats().LiveBytes)
}

func TestAddManifest_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("missing file", func(t *testing.T) {
		f := newFixture(t)
		err := f.manager(4).AddManifest(ctx, "data/nope.mri")
		require.ErrorIs(t, err, core.ErrIO)
		assert.Contains(t, err.Error(), `path "data/nope.mri"`)
	})

	t.Run("unsupported version", func(t *testing.T) {
		f := newFixture(t)
		var buf bytes.Buffer
		_ = binary.Write(&buf, binary.LittleEndian, uint32(2))
		_ = binary.Write(&buf, binary.LittleEndian, uint32(0))
		f.mem.Put("v2.mri", buf.Bytes())

		err := f.manager(4).AddManifest(ctx, "data/v2.mri")
		require.ErrorIs(t, err, core.ErrFormat)
		assert.Contains(t, err.Error(), "field version")
		assert.Contains(t, err.Error(), `path "data/v2.mri"`)
	})

	t.Run("capacity exceeded", func(t *testing.T) {
		f := newFixture(t)
		m := f.manager(2)
		err := m.AddManifest(ctx, f.manifest("big.mri",
			f.textEntry("a", "a"), f.textEntry("b", "b"), f.textEntry("c", "c")))
		require.ErrorIs(t, err, core.ErrCapacity)
		assert.Contains(t, err.Error(), `resource "c"`)
		// Claimed slots are handed back.
		assert.Zero(t, m.Len())
	})

	t.Run("duplicate name", func(t *testing.T) {
		f := newFixture(t)
		m := f.manager(4)
		err := m.AddManifest(ctx, f.manifest("dup.mri", f.textEntry("a", "a"), f.textEntry("a", "again")))
		require.ErrorIs(t, err, core.ErrFormat)
		assert.Zero(t, m.Len())
	})

	t.Run("permanent load fails", func(t *testing.T) {
		f := newFixture(t)
		m := f.manager(4)
		err := m.AddManifest(ctx, f.manifest("perm.mri",
			Entry{Type: TypeText, Hints: HintPermanent, Name: "ok", Path: dataPath, Offset: f.text("ok")},
			Entry{Type: TypeText, Hints: HintPermanent, Name: "broken", Path: "data/missing.bin"},
		))
		require.ErrorIs(t, err, core.ErrIO)
		assert.Zero(t, m.Len())
		assert.Zero(t, f.tracker.Stats().LiveBytes)
	})
}

func TestFind(t *testing.T) {
	f := newFixture(t)
	m := f.load(4, f.textEntry("a", "a"), f.textEntry("b", "b"))

	ref, err := m.Find("b")
	require.NoError(t, err)
	assert.Equal(t, Ref(1), ref)

	ref, err = m.Find("nonexistent")
	require.ErrorIs(t, err, core.ErrNotFound)
	assert.Equal(t, InvalidRef, ref)
	assert.Contains(t, err.Error(), "not found")
}

func TestTerminate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.load(4,
		f.textEntry("a", "aaaa"),
		Entry{Type: TypeText, Hints: HintPermanent, Name: "p", Path: dataPath, Offset: f.text("pppp")},
	)
	ref, err := m.Find("a")
	require.NoError(t, err)
	_, err = m.Open(ctx, ref, TypeText)
	require.NoError(t, err)
	require.NotZero(t, f.tracker.Stats().LiveBytes)

	require.NoError(t, m.Terminate())
	assert.Zero(t, f.tracker.Stats().LiveBytes)
	assert.Zero(t, f.tracker.Stats().LiveBlocks)

	require.ErrorIs(t, m.Terminate(), core.ErrState)
	_, err = m.Find("a")
	require.ErrorIs(t, err, core.ErrState)
	_, err = m.Open(ctx, ref, TypeText)
	require.ErrorIs(t, err, core.ErrState)
	require.ErrorIs(t, m.AddManifest(ctx, "data/test.mri"), core.ErrState)
}

func TestInfo_InvalidRef(t *testing.T) {
	f := newFixture(t)
	m := f.load(4, f.textEntry("a", "a"))

	for _, ref := range []Ref{InvalidRef, 1, 99} {
		_, err := m.Info(ref)
		require.ErrorIs(t, err, core.ErrNotFound, "ref %d", ref)
	}
}
