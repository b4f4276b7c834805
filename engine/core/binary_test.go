package core

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBinary_Uints(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteUint(&buf, uint32(0x01020304)))
	require.NoError(t, WriteUint(&buf, uint64(7)))
	assert.Equal(t, []byte{4, 3, 2, 1}, buf.Bytes()[:4])

	v32, err := ReadUint[uint32](&buf)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x01020304), v32)
	v64, err := ReadUint[uint64](&buf)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), v64)

	_, err = ReadUint[uint32](&buf)
	assert.ErrorIs(t, err, io.EOF)
}

func TestBinary_FixedStrings(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFixedString(&buf, "hero", 8))
	assert.Equal(t, 8, buf.Len())

	s, err := ReadFixedString(&buf, 8)
	require.NoError(t, err)
	assert.Equal(t, "hero", s)

	// A full buffer has no terminator and is returned whole.
	s, err = ReadFixedString(bytes.NewReader([]byte("abcd")), 4)
	require.NoError(t, err)
	assert.Equal(t, "abcd", s)

	_, err = ReadFixedString(bytes.NewReader([]byte("ab")), 4)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}
