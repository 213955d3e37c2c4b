package heap

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/stencil/internal/layout"
)

var (
	ErrOutOfMemory = errors.New("heap: out of memory")
	ErrOutOfBounds = errors.New("heap: access out of bounds")
)

// minAddr keeps offset 0 free so it can mean "no region".
const minAddr = 8

const defaultSlabSize = 64 << 10

// Arena is a bump allocator over Go slabs. Live bytes are capped by the
// limit given to NewArena; freeing every region resets the arena.
type Arena struct {
	slabs    []slab
	next     uint32
	live     uint32
	limit    uint32
	slabSize uint32
	mu       sync.Mutex
}

type slab struct {
	data []byte
	base uint32
}

// NewArena creates an arena that holds at most limit live bytes.
func NewArena(limit uint32) *Arena {
	return &Arena{
		next:     minAddr,
		limit:    limit,
		slabSize: defaultSlabSize,
	}
}

// Alloc reserves size bytes aligned to align.
func (a *Arena) Alloc(size, align uint32) (uint32, error) {
	if align == 0 {
		align = 1
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if size > a.limit-a.live {
		Logger().Warn("arena exhausted",
			zap.Uint32("size", size),
			zap.Uint32("live", a.live),
			zap.Uint32("limit", a.limit))
		return 0, ErrOutOfMemory
	}

	ptr := layout.AlignTo(a.next, align)
	end, ok := layout.SafeAddU32(ptr, size)
	if !ok || ptr < a.next {
		return 0, ErrOutOfMemory
	}

	if n := len(a.slabs); n == 0 || end > a.slabs[n-1].base+uint32(len(a.slabs[n-1].data)) {
		slabLen := a.slabSize
		if size > slabLen {
			slabLen = size
		}
		if _, ok := layout.SafeAddU32(ptr, slabLen); !ok {
			return 0, ErrOutOfMemory
		}
		a.slabs = append(a.slabs, slab{base: ptr, data: make([]byte, slabLen)})
	}

	a.next = end
	a.live += size
	return ptr, nil
}

// Free releases a region. The arena only reclaims memory once every region
// has been freed.
func (a *Arena) Free(ptr, size, align uint32) {
	if ptr == 0 {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if size > a.live {
		size = a.live
	}
	a.live -= size
	if a.live == 0 {
		a.slabs = nil
		a.next = minAddr
	}
}

// View returns a slice aliasing [offset, offset+length).
func (a *Arena) View(offset, length uint32) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	i := sort.Search(len(a.slabs), func(i int) bool {
		return a.slabs[i].base > offset
	}) - 1
	if i < 0 {
		return nil, fmt.Errorf("%w: offset=%d, length=%d", ErrOutOfBounds, offset, length)
	}
	s := a.slabs[i]
	rel := uint64(offset - s.base)
	if rel+uint64(length) > uint64(len(s.data)) {
		return nil, fmt.Errorf("%w: offset=%d, length=%d", ErrOutOfBounds, offset, length)
	}
	return s.data[rel : rel+uint64(length) : rel+uint64(length)], nil
}

// Read copies length bytes starting at offset.
func (a *Arena) Read(offset, length uint32) ([]byte, error) {
	view, err := a.View(offset, length)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(view))
	copy(out, view)
	return out, nil
}

// Write copies data to offset.
func (a *Arena) Write(offset uint32, data []byte) error {
	view, err := a.View(offset, uint32(len(data)))
	if err != nil {
		return err
	}
	copy(view, data)
	return nil
}

// Size returns the number of slab bytes currently backing the arena.
func (a *Arena) Size() uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()

	var total uint32
	for _, s := range a.slabs {
		total += uint32(len(s.data))
	}
	return total
}

// Live returns the number of bytes in regions that have not been freed.
func (a *Arena) Live() uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.live
}

// Limit returns the live byte budget.
func (a *Arena) Limit() uint32 {
	return a.limit
}
