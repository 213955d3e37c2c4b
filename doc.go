// Package stencil finalizes per-script compiler output into immutable,
// relocatable compiled-script artifacts ("stencils").
//
// A bytecode emitter accumulates mutable per-script state: bytecode, source
// notes, try and scope notes, resume offsets, interned atoms and the list of
// heap entities the bytecode refers to. Finalization turns that state into a
// stencil in two phases:
//
//   - Phase 1 packs every table into a single allocation and records
//     references to heap entities as placeholders.
//   - Phase 2 runs once the embedding runtime can allocate heap cells and
//     replaces the placeholders with real cell handles, depth-first over the
//     nested function tree.
//
// # Architecture Overview
//
//	stencil/            Root package with the Memory and Allocator interfaces
//	├── emitter/        Emission state handed over by the bytecode emitter
//	├── scriptdata/     Single-allocation packing of bytecode and side tables
//	├── script/         Stencil data model, builder and two-phase protocol
//	├── heap/           Arena and wazero linear-memory allocators
//	├── gcheap/         Handle table of materialized runtime cells
//	├── errors/         Structured error types
//	└── cmd/stencil/    CLI that finalizes fixtures and inspects the result
//
// # Quick Start
//
//	arena := heap.NewArena(1 << 20)
//	cells := gcheap.NewTable()
//	b := script.NewBuilderWithDefaults(comp, arena, arena, cells)
//
//	top, err := b.FinalizeTree(ctx, comp.TopLevel())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(top.Stencil().Data().Size())
package stencil
