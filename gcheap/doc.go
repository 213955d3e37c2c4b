// Package gcheap provides the handle table that phase 2 of stencil
// finalization materializes runtime cells into.
//
// The finalization core does not implement a garbage collector; it only
// consumes an allocation interface. A Table plays that role: every function
// object, scope object and template object created for a stencil's
// GC-things gets a Handle, and allocation fails once the table's cell
// budget is spent.
//
//	cells := gcheap.NewTableWithLimit(1024)
//
//	h, err := cells.Alloc(gcheap.KindScope, scopeValue)
//	if err != nil {
//	    // out of cells: discard the script being finalized
//	}
//	v, ok := cells.GetTyped(h, gcheap.KindScope)
//
// # Observers
//
// Register observers to track cell lifecycle events:
//
//	cells.Subscribe(observer)
//	// observer.OnCellEvent(gcheap.Event{Type: gcheap.EventAllocated, ...})
//
// Handle 0 is reserved and always invalid.
package gcheap
