package stencil

// Memory is the storage behind regions handed out by an Allocator.
type Memory interface {
	Read(offset uint32, length uint32) ([]byte, error)
	Write(offset uint32, data []byte) error
	// View returns a slice aliasing [offset, offset+length). It stays valid
	// until the region is freed.
	View(offset uint32, length uint32) ([]byte, error)
}

// MemorySizer provides the current size of a Memory in bytes.
type MemorySizer interface {
	Size() uint32
}

// Allocator reserves regions of a Memory. Alloc reports exhaustion as an
// error; offset 0 is never a valid region.
type Allocator interface {
	Alloc(size, align uint32) (uint32, error)
	Free(ptr, size, align uint32)
}
