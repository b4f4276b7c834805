package resources

import (
	"bufio"
	"errors"
	"io"

	"github.com/spaghettifunk/anima-assets/engine/core"
)

// Manifest is a decoded resource description file.
//
// Layout (little-endian):
//
//	u32 version              // must be 1
//	u32 resource_count
//	repeat resource_count times:
//	  u32 type
//	  u32 hints
//	  u64 data_offset
//	  [64]byte name
//	  [256]byte data_path
//	  u32 dependency_count   // <= 8
//	  [64]byte dependency_name * dependency_count
type Manifest struct {
	Version uint32
	Entries []Entry
}

// Entry describes one resource in a manifest.
type Entry struct {
	Type         Type
	Hints        Hint
	Offset       uint64
	Name         string
	Path         string
	Dependencies []string
}

const opDecode = "resources.DecodeManifest"

// DecodeManifest reads a manifest. Version and dependency count are checked
// here; names are checked against a registry when the manifest is added.
func DecodeManifest(r io.Reader) (*Manifest, error) {
	br := bufio.NewReader(r)

	version, err := core.ReadUint[uint32](br)
	if err != nil {
		return nil, decodeError("version", err)
	}
	if version != ManifestVersion {
		return nil, core.Errorf(core.KindFormat, opDecode, "unsupported manifest version %d (only %d is supported)", version, ManifestVersion).WithField("version")
	}

	count, err := core.ReadUint[uint32](br)
	if err != nil {
		return nil, decodeError("resource_count", err)
	}

	m := &Manifest{
		Version: version,
		// Bounded so a corrupt count cannot force a huge allocation up front.
		Entries: make([]Entry, 0, min(count, 1024)),
	}
	for i := uint32(0); i < count; i++ {
		e, err := decodeEntry(br)
		if err != nil {
			return nil, err
		}
		m.Entries = append(m.Entries, e)
	}
	return m, nil
}

func decodeEntry(r io.Reader) (Entry, error) {
	var e Entry

	t, err := core.ReadUint[uint32](r)
	if err != nil {
		return e, decodeError("type", err)
	}
	e.Type = Type(t)

	h, err := core.ReadUint[uint32](r)
	if err != nil {
		return e, decodeError("hints", err)
	}
	e.Hints = Hint(h)

	if e.Offset, err = core.ReadUint[uint64](r); err != nil {
		return e, decodeError("data_offset", err)
	}
	if e.Name, err = core.ReadFixedString(r, MaxNameSize); err != nil {
		return e, decodeError("name", err)
	}
	if e.Path, err = core.ReadFixedString(r, MaxDataPathSize); err != nil {
		return e, decodeError("data_path", err).WithResource(e.Name)
	}

	depCount, err := core.ReadUint[uint32](r)
	if err != nil {
		return e, decodeError("dependency_count", err).WithResource(e.Name)
	}
	if depCount > MaxDependencyCount {
		return e, core.Errorf(core.KindFormat, opDecode, "too many dependencies: %d, the maximum dependency count supported is %d", depCount, MaxDependencyCount).
			WithResource(e.Name).WithField("dependency_count")
	}

	e.Dependencies = make([]string, 0, depCount)
	for j := uint32(0); j < depCount; j++ {
		dep, err := core.ReadFixedString(r, MaxNameSize)
		if err != nil {
			return e, decodeError("dependency_name", err).WithResource(e.Name)
		}
		e.Dependencies = append(e.Dependencies, dep)
	}
	return e, nil
}

func decodeError(field string, err error) *core.Error {
	e := core.Wrap(core.KindIO, opDecode, err).WithField(field)
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		e.Msg = "truncated read"
	}
	return e
}

const opEncode = "resources.EncodeManifest"

// EncodeManifest writes m. Names must be shorter than MaxNameSize and paths
// shorter than MaxDataPathSize so the NUL terminator fits.
func EncodeManifest(w io.Writer, m *Manifest) error {
	version := m.Version
	if version == 0 {
		version = ManifestVersion
	}
	for _, e := range m.Entries {
		if err := checkEntryWidths(e, opEncode); err != nil {
			return err
		}
	}

	bw := bufio.NewWriter(w)
	if err := core.WriteUint(bw, version); err != nil {
		return core.Wrap(core.KindIO, opEncode, err).WithField("version")
	}
	if err := core.WriteUint(bw, uint32(len(m.Entries))); err != nil {
		return core.Wrap(core.KindIO, opEncode, err).WithField("resource_count")
	}
	for _, e := range m.Entries {
		if err := encodeEntry(bw, e); err != nil {
			return core.Wrap(core.KindIO, opEncode, err).WithResource(e.Name)
		}
	}
	if err := bw.Flush(); err != nil {
		return core.Wrap(core.KindIO, opEncode, err)
	}
	return nil
}

func encodeEntry(w io.Writer, e Entry) error {
	if err := core.WriteUint(w, uint32(e.Type)); err != nil {
		return err
	}
	if err := core.WriteUint(w, uint32(e.Hints)); err != nil {
		return err
	}
	if err := core.WriteUint(w, e.Offset); err != nil {
		return err
	}
	if err := core.WriteFixedString(w, e.Name, MaxNameSize); err != nil {
		return err
	}
	if err := core.WriteFixedString(w, e.Path, MaxDataPathSize); err != nil {
		return err
	}
	if err := core.WriteUint(w, uint32(len(e.Dependencies))); err != nil {
		return err
	}
	for _, d := range e.Dependencies {
		if err := core.WriteFixedString(w, d, MaxNameSize); err != nil {
			return err
		}
	}
	return nil
}

func checkEntryWidths(e Entry, op string) error {
	if len(e.Name) >= MaxNameSize {
		return core.Errorf(core.KindFormat, op, "name is %d bytes, limit is %d", len(e.Name), MaxNameSize-1).WithResource(e.Name).WithField("name")
	}
	if len(e.Path) >= MaxDataPathSize {
		return core.Errorf(core.KindFormat, op, "data path is %d bytes, limit is %d", len(e.Path), MaxDataPathSize-1).WithResource(e.Name).WithField("data_path")
	}
	if len(e.Dependencies) > MaxDependencyCount {
		return core.Errorf(core.KindFormat, op, "too many dependencies: %d, the maximum dependency count supported is %d", len(e.Dependencies), MaxDependencyCount).
			WithResource(e.Name).WithField("dependency_count")
	}
	for _, d := range e.Dependencies {
		if len(d) >= MaxNameSize {
			return core.Errorf(core.KindFormat, op, "dependency name %q is %d bytes, limit is %d", d, len(d), MaxNameSize-1).WithResource(e.Name).WithField("dependency_name")
		}
	}
	return nil
}
