package script

import (
	"github.com/wippyai/stencil/emitter"
	"github.com/wippyai/stencil/gcheap"
)

// CellStore materializes GC-things as runtime cells. gcheap.Table
// implements it.
type CellStore interface {
	Alloc(kind gcheap.Kind, value any) (gcheap.Handle, error)
	Remove(handle gcheap.Handle) (any, bool)
}

// FunctionCell is the runtime cell of a nested function.
type FunctionCell struct {
	Box     *emitter.FunctionBox
	Stencil *Stencil
}

// ScopeCell is the runtime cell of a scope. Enclosing is 0 at the root of the
// chain.
type ScopeCell struct {
	Index     emitter.ScopeIndex
	Data      emitter.ScopeData
	Enclosing gcheap.Handle
}

// TemplateCell is the runtime cell of a call-site object.
type TemplateCell struct {
	Index emitter.TemplateIndex
	Data  emitter.TemplateData
}
