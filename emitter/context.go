package emitter

import (
	"math"
	"sync/atomic"

	"github.com/wippyai/stencil/errors"
	"github.com/wippyai/stencil/scriptdata"
)

// NoBodyScope is the body scope index of a script without a body scope.
const NoBodyScope = math.MaxUint32

// SharedContext holds the semantic properties the parser determined for a
// script.
type SharedContext struct {
	Strict                      bool
	BindingsAccessedDynamically bool
	HasCallSiteObj              bool
	IsEvalContext               bool
	IsModuleContext             bool
	HasModuleGoal               bool
	HasInnerFunctions           bool
}

// Context is the emission state of one script.
type Context struct {
	Shared SharedContext

	comp    *Compilation
	fn      *FunctionBox
	name    string
	section BytecodeSection
	atoms   *AtomIndexMap
	things  GCThingList

	firstLine      uint32
	firstColumn    uint32
	mainOffset     uint32
	maxFixedSlots  uint32
	maxStackDepth  uint32
	bodyScopeIndex uint32
	bodyScope      ScopeIndex
	outermost      ScopeIndex

	complete bool
	consumed atomic.Bool
}

func (c *Context) mutable() {
	errors.Violate(!c.complete, errors.PhaseEmit, "context modified after completion")
}

// SetName labels the script in diagnostics. Function scripts default to the
// function name.
func (c *Context) SetName(name string) {
	c.mutable()
	c.name = name
}

// SetPosition records where the script starts in source.
func (c *Context) SetPosition(line, column uint32) {
	c.mutable()
	c.firstLine = line
	c.firstColumn = column
}

// Emit appends bytecode and returns the offset of its first byte.
func (c *Context) Emit(code ...byte) uint32 {
	c.mutable()
	off := c.section.Offset()
	c.section.code = append(c.section.code, code...)
	return off
}

// EmitNote appends to the source notes stream.
func (c *Context) EmitNote(notes ...byte) {
	c.mutable()
	c.section.notes = append(c.section.notes, notes...)
}

// MarkMain records the current offset as the main entry point.
func (c *Context) MarkMain() {
	c.mutable()
	c.mainOffset = c.section.Offset()
}

// SetMainOffset sets the main entry point explicitly.
func (c *Context) SetMainOffset(off uint32) {
	c.mutable()
	c.mainOffset = off
}

// UpdateFixedSlots raises the fixed slot count to at least n.
func (c *Context) UpdateFixedSlots(n uint32) {
	c.mutable()
	if n > c.maxFixedSlots {
		c.maxFixedSlots = n
	}
}

// UpdateStackDepth raises the maximum operand stack depth to at least n.
func (c *Context) UpdateStackDepth(n uint32) {
	c.mutable()
	if n > c.maxStackDepth {
		c.maxStackDepth = n
	}
}

// AddAtom interns name and returns its index.
func (c *Context) AddAtom(name string) uint32 {
	c.mutable()
	return c.atoms.Add(name)
}

func (c *Context) AddResumeOffset(off uint32) uint32 {
	c.mutable()
	c.section.resumeOffsets = append(c.section.resumeOffsets, off)
	return uint32(len(c.section.resumeOffsets) - 1)
}

func (c *Context) AddTryNote(n scriptdata.TryNote) {
	c.mutable()
	c.section.tryNotes = append(c.section.tryNotes, n)
}

// AddScopeNote records that the scope at GC-thing index thing is active in
// [start, start+length). It returns the note index for use as a parent.
func (c *Context) AddScopeNote(thing, start, length, parent uint32) uint32 {
	c.mutable()
	c.section.scopeNotes = append(c.section.scopeNotes, scriptdata.ScopeNote{
		Index:  thing,
		Start:  start,
		Length: length,
		Parent: parent,
	})
	return uint32(len(c.section.scopeNotes) - 1)
}

// AddICEntry reserves an inline cache entry.
func (c *Context) AddICEntry() {
	c.mutable()
	c.section.numICEntries++
}

// AddTypeSet reserves a type set.
func (c *Context) AddTypeSet() {
	c.mutable()
	c.section.numTypeSets++
}

// AppendScope references a scope from bytecode and returns its GC-thing index.
// The first scope appended is the outermost scope unless one was set.
func (c *Context) AppendScope(s ScopeIndex) uint32 {
	c.mutable()
	c.comp.Scope(s)
	if c.outermost == NoScope {
		c.outermost = s
	}
	return c.things.Append(GCThing{Kind: ThingScope, Index: uint32(s)})
}

// AppendFunction references a nested function and returns its GC-thing index.
func (c *Context) AppendFunction(fn *FunctionBox) uint32 {
	c.mutable()
	c.comp.Function(fn.Index)
	c.Shared.HasInnerFunctions = true
	return c.things.Append(GCThing{Kind: ThingFunction, Index: uint32(fn.Index)})
}

// AppendTemplate references a call-site object and returns its GC-thing index.
func (c *Context) AppendTemplate(t TemplateIndex) uint32 {
	c.mutable()
	c.comp.Template(t)
	c.Shared.HasCallSiteObj = true
	return c.things.Append(GCThing{Kind: ThingTemplate, Index: uint32(t)})
}

// SetBodyScope marks the scope at GC-thing index thing as the body scope.
func (c *Context) SetBodyScope(thing uint32) {
	c.mutable()
	errors.Violate(int(thing) < c.things.Len() && c.things.At(int(thing)).Kind == ThingScope,
		errors.PhaseEmit, "body scope %d is not a scope gc-thing", thing)
	c.bodyScopeIndex = thing
	c.bodyScope = ScopeIndex(c.things.At(int(thing)).Index)
}

// SetOutermostScope sets the scope enclosing the whole script. It is needed
// when that scope belongs to an enclosing script.
func (c *Context) SetOutermostScope(s ScopeIndex) {
	c.mutable()
	c.comp.Scope(s)
	c.outermost = s
}

// Complete ends emission. The context is read-only afterwards.
func (c *Context) Complete() {
	c.mutable()
	n := c.section.Offset()
	errors.Violate(c.mainOffset <= n, errors.PhaseEmit,
		"main offset %d past end of bytecode (%d bytes)", c.mainOffset, n)
	for i, tn := range c.section.tryNotes {
		errors.Violate(uint64(tn.Start)+uint64(tn.Length) <= uint64(n), errors.PhaseEmit,
			"try note %d outside bytecode", i)
	}
	for i, sn := range c.section.scopeNotes {
		errors.Violate(int(sn.Index) < c.things.Len() && c.things.At(int(sn.Index)).Kind == ThingScope,
			errors.PhaseEmit, "scope note %d does not name a scope gc-thing", i)
		errors.Violate(uint64(sn.Start)+uint64(sn.Length) <= uint64(n), errors.PhaseEmit,
			"scope note %d outside bytecode", i)
	}
	c.complete = true
}

func (c *Context) Completed() bool { return c.complete }

// Acquire hands the context to a finalizer. It panics unless the context is
// complete and has not been acquired before.
func (c *Context) Acquire() {
	errors.Violate(c.complete, errors.PhaseInit, "context is not complete")
	errors.Violate(c.consumed.CompareAndSwap(false, true), errors.PhaseInit, "context already finalized")
}

// Consumed reports whether Acquire has been called.
func (c *Context) Consumed() bool { return c.consumed.Load() }

func (c *Context) Compilation() *Compilation       { return c.comp }
func (c *Context) Section() *BytecodeSection       { return &c.section }
func (c *Context) Atoms() *AtomIndexMap            { return c.atoms }
func (c *Context) GCThings() *GCThingList          { return &c.things }
func (c *Context) FirstLine() uint32               { return c.firstLine }
func (c *Context) FirstColumn() uint32             { return c.firstColumn }
func (c *Context) MainOffset() uint32              { return c.mainOffset }
func (c *Context) MaxFixedSlots() uint32           { return c.maxFixedSlots }
func (c *Context) MaxStackDepth() uint32           { return c.maxStackDepth }
func (c *Context) BodyScopeIndex() uint32          { return c.bodyScopeIndex }
func (c *Context) Function() *FunctionBox          { return c.fn }
func (c *Context) IsFunction() bool                { return c.fn != nil }
func (c *Context) OutermostScopeIndex() ScopeIndex { return c.outermost }

// BodyScope returns the body scope, if the script has one.
func (c *Context) BodyScope() (ScopeData, bool) {
	if c.bodyScope == NoScope {
		return ScopeData{}, false
	}
	return c.comp.Scope(c.bodyScope), true
}

// OutermostScope returns the scope enclosing the whole script, if any.
func (c *Context) OutermostScope() (ScopeData, bool) {
	if c.outermost == NoScope {
		return ScopeData{}, false
	}
	return c.comp.Scope(c.outermost), true
}

// Name returns the name set with SetName, else the function name, else
// "<top-level>".
func (c *Context) Name() string {
	if c.name != "" {
		return c.name
	}
	if c.fn == nil {
		return "<top-level>"
	}
	if c.fn.Name == "" {
		return "<anonymous>"
	}
	return c.fn.Name
}
