// Package heap provides the allocators that packed script data lives in.
//
// Two implementations satisfy stencil.Memory and stencil.Allocator:
//
//   - Arena is an in-process bump allocator over Go slabs with a budget on
//     live bytes. It is the default for compilers that keep stencils in the
//     Go heap.
//   - Linear allocates from the linear memory of a wazero module instance
//     whose size is fixed at creation. Stencils packed there can be handed
//     to code running inside the same wazero runtime.
//
// Both report exhaustion with ErrOutOfMemory, which the packer surfaces as
// an allocation failure. Views returned by View stay valid until the region
// is freed; neither allocator moves memory.
//
//	arena := heap.NewArena(1 << 20)
//	ptr, err := arena.Alloc(64, 4)
//	buf, _ := arena.View(ptr, 64)
package heap
