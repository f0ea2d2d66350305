package wire

import (
	"bytes"
	"encoding/binary"
	"math"
)

// Reader is a forward-only cursor over a byte buffer of known length.
// A failed read does not advance the cursor, but callers must not retry on
// the same Reader after an error.
type Reader struct {
	buf []byte
	off int
}

func NewReader(b []byte) *Reader {
	return &Reader{buf: b}
}

// Offset returns the number of bytes consumed so far.
func (r *Reader) Offset() int {
	return r.off
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.buf) - r.off
}

func (r *Reader) take(n int) ([]byte, error) {
	if r.Remaining() < n {
		return nil, &TruncatedInputError{Offset: r.off, Need: n, Have: r.Remaining()}
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *Reader) ReadUint8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *Reader) ReadUint16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (r *Reader) ReadUint32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (r *Reader) ReadFloat32() (float32, error) {
	bits, err := r.ReadUint32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(bits), nil
}

// ReadNullTerminatedString reads bytes up to a single 0x00 terminator. The
// terminator is consumed and excluded from the result. A missing terminator
// is a truncation.
func (r *Reader) ReadNullTerminatedString() (string, error) {
	end := bytes.IndexByte(r.buf[r.off:], 0)
	if end < 0 {
		return "", &TruncatedInputError{Offset: r.off, Need: r.Remaining() + 1, Have: r.Remaining()}
	}
	s := string(r.buf[r.off : r.off+end])
	r.off += end + 1
	return s, nil
}
