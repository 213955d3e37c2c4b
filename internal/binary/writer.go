// Package binary provides byte-level writers for packed script data and for
// the wasm modules that back linear heaps.
package binary

import (
	"encoding/binary"
)

// Writer appends encoded values to a buffer. A Writer created with
// NewFixedWriter never reallocates; writing past the end of its buffer panics.
type Writer struct {
	buf   []byte
	pos   int
	fixed bool
}

// NewWriter creates a growable Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// NewFixedWriter creates a Writer that fills buf in place.
func NewFixedWriter(buf []byte) *Writer {
	return &Writer{buf: buf, fixed: true}
}

// Bytes returns the written bytes.
func (w *Writer) Bytes() []byte {
	return w.buf[:w.pos]
}

// Len returns the number of bytes written.
func (w *Writer) Len() int {
	return w.pos
}

// Remaining returns the free space left in a fixed buffer.
func (w *Writer) Remaining() int {
	return len(w.buf) - w.pos
}

func (w *Writer) next(n int) []byte {
	end := w.pos + n
	if end > len(w.buf) {
		if w.fixed {
			panic("binary: write past end of fixed buffer")
		}
		w.buf = append(w.buf, make([]byte, end-len(w.buf))...)
	}
	b := w.buf[w.pos:end]
	w.pos = end
	return b
}

// Byte writes a single byte.
func (w *Writer) Byte(b byte) {
	w.next(1)[0] = b
}

// WriteBytes writes a byte slice.
func (w *Writer) WriteBytes(data []byte) {
	copy(w.next(len(data)), data)
}

// WriteU32 writes an unsigned LEB128 encoded uint32.
func (w *Writer) WriteU32(v uint32) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		w.Byte(b)
		if v == 0 {
			break
		}
	}
}

// WriteName writes a UTF-8 encoded name (length-prefixed).
func (w *Writer) WriteName(s string) {
	w.WriteU32(uint32(len(s)))
	w.WriteBytes([]byte(s))
}

// WriteU16LE writes a little-endian uint16 (fixed 2 bytes).
func (w *Writer) WriteU16LE(v uint16) {
	binary.LittleEndian.PutUint16(w.next(2), v)
}

// WriteU32LE writes a little-endian uint32 (fixed 4 bytes).
func (w *Writer) WriteU32LE(v uint32) {
	binary.LittleEndian.PutUint32(w.next(4), v)
}

// Section writes a length-prefixed section with the given id. The payload is
// produced by fn into a scratch writer.
func (w *Writer) Section(id byte, fn func(*Writer)) {
	payload := NewWriter()
	fn(payload)
	w.Byte(id)
	w.WriteU32(uint32(payload.Len()))
	w.WriteBytes(payload.Bytes())
}
