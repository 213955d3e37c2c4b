package emitter

import (
	"github.com/wippyai/stencil/errors"
)

// FunctionIndex is a position in a compilation's function arena.
type FunctionIndex uint32

// TemplateIndex is a position in a compilation's template arena.
type TemplateIndex uint32

// FunctionBox describes a function being compiled. Context is set once
// emission for the function body has started.
type FunctionBox struct {
	Name        string
	Length      uint16
	NamedLambda bool
	Index       FunctionIndex
	Context     *Context
}

// TemplateData is the call-site object of a tagged template literal.
type TemplateData struct {
	Raw    []string
	Cooked []string
}

// Compilation owns the arenas shared by every script of one compilation
// unit. It is not safe for concurrent mutation; finalizers only read it.
type Compilation struct {
	scopes    []ScopeData
	functions []*FunctionBox
	templates []TemplateData
	contexts  []*Context
	top       *Context
}

func NewCompilation() *Compilation {
	return &Compilation{}
}

// AddScope appends a scope. The enclosing scope must already exist.
func (c *Compilation) AddScope(s ScopeData) ScopeIndex {
	errors.Violate(s.Enclosing == NoScope || int(s.Enclosing) < len(c.scopes), errors.PhaseEmit,
		"enclosing scope %d not in arena of %d", s.Enclosing, len(c.scopes))
	c.scopes = append(c.scopes, s)
	return ScopeIndex(len(c.scopes) - 1)
}

func (c *Compilation) Scope(i ScopeIndex) ScopeData {
	errors.Violate(int64(i) < int64(len(c.scopes)), errors.PhaseEmit,
		"scope %d not in arena of %d", i, len(c.scopes))
	return c.scopes[i]
}

func (c *Compilation) NumScopes() int {
	return len(c.scopes)
}

// HasOnChain reports whether a scope of the given kind encloses from,
// from itself included.
func (c *Compilation) HasOnChain(from ScopeIndex, kind ScopeKind) bool {
	for i := from; i != NoScope; i = c.Scope(i).Enclosing {
		if c.scopes[i].Kind == kind {
			return true
		}
	}
	return false
}

func (c *Compilation) AddFunction(name string, length uint16, namedLambda bool) *FunctionBox {
	fn := &FunctionBox{
		Name:        name,
		Length:      length,
		NamedLambda: namedLambda,
		Index:       FunctionIndex(len(c.functions)),
	}
	c.functions = append(c.functions, fn)
	return fn
}

func (c *Compilation) Function(i FunctionIndex) *FunctionBox {
	errors.Violate(int64(i) < int64(len(c.functions)), errors.PhaseEmit,
		"function %d not in arena of %d", i, len(c.functions))
	return c.functions[i]
}

func (c *Compilation) NumFunctions() int {
	return len(c.functions)
}

func (c *Compilation) AddTemplate(t TemplateData) TemplateIndex {
	c.templates = append(c.templates, t)
	return TemplateIndex(len(c.templates) - 1)
}

func (c *Compilation) Template(i TemplateIndex) TemplateData {
	errors.Violate(int64(i) < int64(len(c.templates)), errors.PhaseEmit,
		"template %d not in arena of %d", i, len(c.templates))
	return c.templates[i]
}

func (c *Compilation) NumTemplates() int {
	return len(c.templates)
}

// NewContext starts emission of a script. fn is nil for the top-level
// script, which must be created first and only once.
func (c *Compilation) NewContext(fn *FunctionBox) *Context {
	ctx := &Context{
		comp:           c,
		fn:             fn,
		atoms:          NewAtomIndexMap(),
		bodyScopeIndex: NoBodyScope,
		bodyScope:      NoScope,
		outermost:      NoScope,
	}
	if fn == nil {
		errors.Violate(c.top == nil, errors.PhaseEmit, "compilation already has a top-level script")
		c.top = ctx
	} else {
		errors.Violate(fn.Context == nil, errors.PhaseEmit, "function %q already has a context", fn.Name)
		fn.Context = ctx
	}
	c.contexts = append(c.contexts, ctx)
	return ctx
}

// TopLevel returns the context of the top-level script, or nil.
func (c *Compilation) TopLevel() *Context {
	return c.top
}

// Contexts returns every context in creation order.
func (c *Compilation) Contexts() []*Context {
	return c.contexts
}
