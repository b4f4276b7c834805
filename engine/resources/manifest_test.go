package resources

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/anima-assets/engine/core"
)

func le(t *testing.T, buf *bytes.Buffer, vs ...any) {
	t.Helper()
	for _, v := range vs {
		require.NoError(t, binary.Write(buf, binary.LittleEndian, v))
	}
}

func fixed(s string, n int) []byte {
	b := make([]byte, n)
	copy(b, s)
	return b
}

func TestDecodeManifest(t *testing.T) {
	var buf bytes.Buffer
	le(t, &buf, uint32(1), uint32(2))
	le(t, &buf, uint32(TypeText), uint32(HintPermanent|HintCpuOnly), uint64(24))
	buf.Write(fixed("text_resource", MaxNameSize))
	buf.Write(fixed("data/text_resource.bin", MaxDataPathSize))
	le(t, &buf, uint32(1))
	buf.Write(fixed("group", MaxNameSize))
	le(t, &buf, uint32(TypeEmpty), uint32(0), uint64(0))
	buf.Write(fixed("group", MaxNameSize))
	buf.Write(fixed("", MaxDataPathSize))
	le(t, &buf, uint32(0))

	m, err := DecodeManifest(&buf)
	require.NoError(t, err)
	assert.Equal(t, ManifestVersion, m.Version)
	require.Len(t, m.Entries, 2)

	e := m.Entries[0]
	assert.Equal(t, TypeText, e.Type)
	assert.True(t, e.Hints.Has(HintPermanent))
	assert.True(t, e.Hints.Has(HintCpuOnly))
	assert.False(t, e.Hints.Has(HintGpuOnly))
	assert.Equal(t, uint64(24), e.Offset)
	assert.Equal(t, "text_resource", e.Name)
	assert.Equal(t, "data/text_resource.bin", e.Path)
	assert.Equal(t, []string{"group"}, e.Dependencies)

	assert.Equal(t, TypeEmpty, m.Entries[1].Type)
	assert.Empty(t, m.Entries[1].Dependencies)
}

func TestDecodeManifest_EmptyVersionOne(t *testing.T) {
	var buf bytes.Buffer
	le(t, &buf, uint32(1), uint32(0))
	m, err := DecodeManifest(&buf)
	require.NoError(t, err)
	assert.Empty(t, m.Entries)
}

func TestDecodeManifest_Errors(t *testing.T) {
	t.Run("version 2", func(t *testing.T) {
		var buf bytes.Buffer
		le(t, &buf, uint32(2), uint32(0))
		_, err := DecodeManifest(&buf)
		require.ErrorIs(t, err, core.ErrFormat)
		assert.Contains(t, err.Error(), "version")
	})

	t.Run("too many dependencies", func(t *testing.T) {
		var buf bytes.Buffer
		le(t, &buf, uint32(1), uint32(1), uint32(TypeText), uint32(0), uint64(0))
		buf.Write(fixed("crowded", MaxNameSize))
		buf.Write(fixed("data/x.bin", MaxDataPathSize))
		le(t, &buf, uint32(MaxDependencyCount+1))
		_, err := DecodeManifest(&buf)
		require.ErrorIs(t, err, core.ErrFormat)
		assert.Contains(t, err.Error(), `resource "crowded"`)
		assert.Contains(t, err.Error(), "field dependency_count")
	})

	t.Run("truncated entry", func(t *testing.T) {
		var buf bytes.Buffer
		le(t, &buf, uint32(1), uint32(1), uint32(TypeText), uint32(0), uint64(0))
		buf.Write(fixed("short", 10))
		_, err := DecodeManifest(&buf)
		require.ErrorIs(t, err, core.ErrIO)
		assert.Contains(t, err.Error(), "truncated read")
		assert.Contains(t, err.Error(), "field name")
	})

	t.Run("count larger than entries", func(t *testing.T) {
		var buf bytes.Buffer
		le(t, &buf, uint32(1), uint32(3))
		_, err := DecodeManifest(&buf)
		require.ErrorIs(t, err, core.ErrIO)
		assert.Contains(t, err.Error(), "field type")
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := DecodeManifest(bytes.NewReader(nil))
		require.ErrorIs(t, err, core.ErrIO)
		assert.Contains(t, err.Error(), "field version")
	})
}

func TestEncodeManifest(t *testing.T) {
	in := &Manifest{Entries: []Entry{
		{Type: TypeShader, Hints: HintGpuOnly, Offset: 7, Name: "basic", Path: "data/shaders.bin", Dependencies: []string{"common", "lights"}},
	}}
	var buf bytes.Buffer
	require.NoError(t, EncodeManifest(&buf, in))
	assert.Equal(t, 4+4+4+4+8+MaxNameSize+MaxDataPathSize+4+2*MaxNameSize, buf.Len())

	out, err := DecodeManifest(&buf)
	require.NoError(t, err)
	assert.Equal(t, ManifestVersion, out.Version)
	assert.Equal(t, in.Entries, out.Entries)
}

func TestEncodeManifest_FieldWidths(t *testing.T) {
	cases := map[string]Entry{
		"name":             {Name: strings.Repeat("n", MaxNameSize)},
		"data_path":        {Name: "p", Path: strings.Repeat("p", MaxDataPathSize)},
		"dependency_name":  {Name: "d", Dependencies: []string{strings.Repeat("d", MaxNameSize)}},
		"dependency_count": {Name: "c", Dependencies: []string{"1", "2", "3", "4", "5", "6", "7", "8", "9"}},
	}
	for field, e := range cases {
		t.Run(field, func(t *testing.T) {
			var buf bytes.Buffer
			err := EncodeManifest(&buf, &Manifest{Entries: []Entry{e}})
			require.ErrorIs(t, err, core.ErrFormat)
			assert.Contains(t, err.Error(), "field "+field)
			assert.Zero(t, buf.Len())
		})
	}
}

func TestTypeAndHintNames(t *testing.T) {
	for typ := TypeEmpty; typ <= TypeShader; typ++ {
		parsed, err := ParseType(typ.String())
		require.NoError(t, err)
		assert.Equal(t, typ, parsed)
	}
	assert.Equal(t, "type(42)", Type(42).String())
	_, err := ParseType("texture")
	require.Error(t, err)

	h, err := ParseHints([]string{"permanent", "gpu_only"})
	require.NoError(t, err)
	assert.Equal(t, HintPermanent|HintGpuOnly, h)
	assert.Equal(t, "gpu_only|permanent", h.String())
	assert.Equal(t, "none", Hint(0).String())
	_, err = ParseHints([]string{"sticky"})
	require.Error(t, err)
}
