// Package script turns completed emission contexts into immutable script
// stencils.
//
// Finalization runs in two phases. Init (phase 1) packs the bytecode and
// side tables into a single buffer, computes the script flags and takes
// ownership of the GC-thing list, returning an Unfinalized script. Phase 2
// runs once the embedder can allocate runtime cells:
//
//	u, err := b.Init(ctx, nslots)
//	err = u.FinishInnerFunctions()
//	err = u.FinishGCThings(make([]gcheap.Handle, u.Stencil().GCThingCount()))
//	u.InitAtomMap(make([]string, u.Stencil().AtomCount()))
//	s := u.Finalize()
//
// Only Unfinalized carries phase-2 operations and only Finalize produces a
// Script. Every phase-2 operation may run once per script; repeating one
// panics with a precondition error, as do other contract violations such as
// a target slice of the wrong length.
//
// Nested functions are referenced by arena index and resolved in phase 2, so
// every nested context must finish Init before its parent's phase 2 starts.
// Builder.FinalizeTree drives both phases over a whole function tree.
//
// Allocation failure is the only error. A script whose phase 2 failed is
// poisoned and must be discarded.
package script
