package heap

import (
	"context"
	"fmt"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/stencil/internal/binary"
	"github.com/wippyai/stencil/internal/layout"
)

// PageSize is the size of a wasm linear memory page.
const PageSize = 65536

const memoryExportName = "memory"

// Linear allocates from the linear memory of a wazero module instance. The
// memory is created with equal minimum and maximum page counts and never
// grows, so views stay valid for the lifetime of the heap.
type Linear struct {
	rt   wazero.Runtime
	mod  api.Module
	mem  api.Memory
	next uint32
	live uint32
	mu   sync.Mutex
}

// NewLinear instantiates a module exporting a memory of the given number of
// pages and returns an allocator over it.
func NewLinear(ctx context.Context, pages uint32) (*Linear, error) {
	if pages == 0 || pages > 65535 {
		return nil, fmt.Errorf("heap: invalid page count %d", pages)
	}

	rt := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig().WithMemoryLimitPages(pages))
	mod, err := rt.InstantiateWithConfig(ctx, memoryModule(pages),
		wazero.NewModuleConfig().WithName("stencil-heap"))
	if err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("heap: instantiate memory module: %w", err)
	}

	mem := mod.ExportedMemory(memoryExportName)
	if mem == nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("heap: module has no %q export", memoryExportName)
	}

	Logger().Debug("linear heap created",
		zap.Uint32("pages", pages),
		zap.Uint32("bytes", mem.Size()))

	return &Linear{rt: rt, mod: mod, mem: mem, next: minAddr}, nil
}

// memoryModule encodes a wasm module with a single exported memory of
// exactly pages pages.
func memoryModule(pages uint32) []byte {
	w := binary.NewWriter()
	w.WriteBytes([]byte{0x00, 0x61, 0x73, 0x6d}) // \0asm
	w.WriteBytes([]byte{0x01, 0x00, 0x00, 0x00}) // version 1

	w.Section(0x05, func(s *binary.Writer) {
		s.WriteU32(1)
		s.Byte(0x01) // limits with maximum
		s.WriteU32(pages)
		s.WriteU32(pages)
	})

	w.Section(0x07, func(s *binary.Writer) {
		s.WriteU32(1)
		s.WriteName(memoryExportName)
		s.Byte(0x02) // memory
		s.WriteU32(0)
	})

	return w.Bytes()
}

// Alloc reserves size bytes aligned to align.
func (l *Linear) Alloc(size, align uint32) (uint32, error) {
	if align == 0 {
		align = 1
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	ptr := layout.AlignTo(l.next, align)
	end, ok := layout.SafeAddU32(ptr, size)
	if !ok || ptr < l.next || end > l.mem.Size() {
		Logger().Warn("linear heap exhausted",
			zap.Uint32("size", size),
			zap.Uint32("next", l.next),
			zap.Uint32("capacity", l.mem.Size()))
		return 0, ErrOutOfMemory
	}

	l.next = end
	l.live += size
	return ptr, nil
}

// Free releases a region. Space is reclaimed once every region is freed.
func (l *Linear) Free(ptr, size, align uint32) {
	if ptr == 0 {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if size > l.live {
		size = l.live
	}
	l.live -= size
	if l.live == 0 {
		l.next = minAddr
	}
}

// View returns a slice aliasing linear memory.
func (l *Linear) View(offset, length uint32) ([]byte, error) {
	data, ok := l.mem.Read(offset, length)
	if !ok {
		return nil, fmt.Errorf("%w: offset=%d, length=%d", ErrOutOfBounds, offset, length)
	}
	return data, nil
}

// Read copies length bytes starting at offset.
func (l *Linear) Read(offset, length uint32) ([]byte, error) {
	view, err := l.View(offset, length)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(view))
	copy(out, view)
	return out, nil
}

// Write copies data to offset.
func (l *Linear) Write(offset uint32, data []byte) error {
	if !l.mem.Write(offset, data) {
		return fmt.Errorf("%w: offset=%d, length=%d", ErrOutOfBounds, offset, len(data))
	}
	return nil
}

// Size returns the size of the linear memory in bytes.
func (l *Linear) Size() uint32 {
	return l.mem.Size()
}

// Live returns the number of bytes in regions that have not been freed.
func (l *Linear) Live() uint32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.live
}

// Module returns the wazero module owning the memory.
func (l *Linear) Module() api.Module {
	return l.mod
}

// Close releases the wazero runtime. Views obtained from the heap must not
// be used afterwards.
func (l *Linear) Close(ctx context.Context) error {
	return l.rt.Close(ctx)
}
