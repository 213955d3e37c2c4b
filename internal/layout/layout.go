// Package layout computes contiguous region layouts for packed buffers.
//
// A Builder hands out regions by running sum: each region starts at the
// current offset rounded up to the region's alignment. Adding regions in
// order of non-increasing alignment therefore produces a layout without
// padding, whose size is the exact sum of the region sizes.
//
//	var b layout.Builder
//	header := b.Add(1, 48, 4)
//	notes := b.Add(n, 16, 4)
//	code := b.Add(len(code), 1, 1)
//	size, ok := b.Size()
package layout

import "math"

func SafeMulU32(a, b uint32) (uint32, bool) {
	if b != 0 && a > math.MaxUint32/b {
		return 0, false
	}
	return a * b, true
}

func SafeAddU32(a, b uint32) (uint32, bool) {
	if a > math.MaxUint32-b {
		return 0, false
	}
	return a + b, true
}

func AlignTo(offset, align uint32) uint32 {
	if align == 0 {
		return offset
	}
	return (offset + align - 1) &^ (align - 1)
}

// Region is a byte range inside a packed buffer.
type Region struct {
	Offset uint32
	Size   uint32
}

// End returns the offset one past the last byte of the region.
func (r Region) End() uint32 {
	return r.Offset + r.Size
}

// Builder assigns regions by running sum. The zero value is ready to use.
type Builder struct {
	offset   uint32
	maxAlign uint32
	overflow bool
}

// Add reserves count elements of elemSize bytes aligned to align. After an
// overflow every further region is empty and Size reports failure.
func (b *Builder) Add(count int, elemSize, align uint32) Region {
	if b.overflow {
		return Region{}
	}
	if count < 0 || uint64(count) > math.MaxUint32 {
		b.overflow = true
		return Region{}
	}
	size, ok := SafeMulU32(uint32(count), elemSize)
	if !ok {
		b.overflow = true
		return Region{}
	}
	start := AlignTo(b.offset, align)
	if start < b.offset {
		b.overflow = true
		return Region{}
	}
	end, ok := SafeAddU32(start, size)
	if !ok {
		b.overflow = true
		return Region{}
	}
	if align > b.maxAlign {
		b.maxAlign = align
	}
	b.offset = end
	return Region{Offset: start, Size: size}
}

// Size returns the total size of all regions. ok is false if any region
// overflowed uint32.
func (b *Builder) Size() (size uint32, ok bool) {
	if b.overflow {
		return 0, false
	}
	return b.offset, true
}

// Align returns the largest alignment requested so far, at least 1.
func (b *Builder) Align() uint32 {
	if b.maxAlign == 0 {
		return 1
	}
	return b.maxAlign
}
