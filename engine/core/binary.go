package core

import (
	"encoding/binary"
	"io"

	"golang.org/x/exp/constraints"
)

// ReadUint reads a fixed-width little-endian unsigned integer.
// T must be one of the sized unsigned types.
func ReadUint[T constraints.Unsigned](r io.Reader) (T, error) {
	var v T
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}

// WriteUint writes v as a fixed-width little-endian unsigned integer.
func WriteUint[T constraints.Unsigned](w io.Writer, v T) error {
	return binary.Write(w, binary.LittleEndian, v)
}

// ReadFixedString reads a NUL-padded buffer of n bytes and returns the
// content up to the first NUL.
func ReadFixedString(r io.Reader, n int) (string, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		if b == 0 {
			return string(buf[:i]), nil
		}
	}
	return string(buf), nil
}

// WriteFixedString writes s into an n byte NUL-padded buffer. Callers check
// that s fits.
func WriteFixedString(w io.Writer, s string, n int) error {
	buf := make([]byte, n)
	copy(buf, s)
	_, err := w.Write(buf)
	return err
}
