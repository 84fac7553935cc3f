package a2s

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// Reader consumes a byte buffer field by field. Every Read method advances
// the internal cursor and fails with ErrBufferExhausted if the buffer runs
// short; callers never see partial field values.
//
// This is the "composable field decoder" from the design notes: arrays are
// built by calling a Reader method in a loop and stopping gracefully at an
// element boundary when Remaining() runs out, rather than failing the whole
// message.
type Reader struct {
	buf []byte
	off int
}

// NewReader wraps buf for sequential field reads starting at offset 0.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Remaining reports how many bytes are left to read.
func (r *Reader) Remaining() int {
	return len(r.buf) - r.off
}

// ReadByte reads a single byte.
func (r *Reader) ReadByte() (byte, error) {
	if r.Remaining() < 1 {
		return 0, fmt.Errorf("%w: byte", ErrBufferExhausted)
	}
	b := r.buf[r.off]
	r.off++
	return b, nil
}

// ReadInt16LE reads a little-endian signed 16-bit integer.
func (r *Reader) ReadInt16LE() (int16, error) {
	if r.Remaining() < 2 {
		return 0, fmt.Errorf("%w: int16", ErrBufferExhausted)
	}
	v := int16(binary.LittleEndian.Uint16(r.buf[r.off : r.off+2]))
	r.off += 2
	return v, nil
}

// ReadInt32LE reads a little-endian signed 32-bit integer.
func (r *Reader) ReadInt32LE() (int32, error) {
	if r.Remaining() < 4 {
		return 0, fmt.Errorf("%w: int32", ErrBufferExhausted)
	}
	v := int32(binary.LittleEndian.Uint32(r.buf[r.off : r.off+4]))
	r.off += 4
	return v, nil
}

// ReadFloat32LE reads a little-endian IEEE-754 32-bit float.
func (r *Reader) ReadFloat32LE() (float32, error) {
	if r.Remaining() < 4 {
		return 0, fmt.Errorf("%w: float32", ErrBufferExhausted)
	}
	v := math.Float32frombits(binary.LittleEndian.Uint32(r.buf[r.off : r.off+4]))
	r.off += 4
	return v, nil
}

// ReadCString reads a NUL-terminated string and decodes it as UTF-8,
// replacing invalid byte sequences rather than failing: real game servers
// occasionally emit non-UTF-8 player names.
func (r *Reader) ReadCString() (string, error) {
	idx := indexByte(r.buf[r.off:], 0)
	if idx < 0 {
		return "", fmt.Errorf("%w: unterminated string", ErrBufferExhausted)
	}
	raw := r.buf[r.off : r.off+idx]
	r.off += idx + 1
	return strings.ToValidUTF8(string(raw), "�"), nil
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}

// Writer accumulates encoded field bytes in wire order.
type Writer struct {
	buf []byte
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Bytes returns the accumulated buffer.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int {
	return len(w.buf)
}

// WriteByte appends a single byte.
func (w *Writer) WriteByte(b byte) {
	w.buf = append(w.buf, b)
}

// WriteInt16LE appends a little-endian signed 16-bit integer.
func (w *Writer) WriteInt16LE(v int16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], uint16(v))
	w.buf = append(w.buf, b[:]...)
}

// WriteInt32LE appends a little-endian signed 32-bit integer.
func (w *Writer) WriteInt32LE(v int32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	w.buf = append(w.buf, b[:]...)
}

// WriteFloat32LE appends a little-endian IEEE-754 32-bit float.
func (w *Writer) WriteFloat32LE(v float32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], math.Float32bits(v))
	w.buf = append(w.buf, b[:]...)
}

// WriteCString appends s followed by a terminating NUL byte.
func (w *Writer) WriteCString(s string) {
	w.buf = append(w.buf, s...)
	w.buf = append(w.buf, 0)
}
