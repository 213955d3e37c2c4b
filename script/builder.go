package script

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wippyai/stencil"
	"github.com/wippyai/stencil/emitter"
	"github.com/wippyai/stencil/errors"
	"github.com/wippyai/stencil/gcheap"
	"github.com/wippyai/stencil/internal/layout"
	"github.com/wippyai/stencil/scriptdata"
)

// Options configures a Builder.
type Options struct {
	// Logger receives builder events. nil uses the package logger.
	Logger *zap.Logger

	// Workers bounds how many sibling scripts FinalizeTree processes at
	// once. Values below 1 mean 1.
	Workers int
}

// DefaultOptions returns the default builder configuration.
func DefaultOptions() Options {
	return Options{Workers: 1}
}

// Builder finalizes the scripts of one compilation. Its methods are safe
// for concurrent use on distinct scripts.
type Builder struct {
	comp    *emitter.Compilation
	mem     stencil.Memory
	alloc   stencil.Allocator
	cells   CellStore
	log     *zap.Logger
	id      uuid.UUID
	workers int

	mu         sync.Mutex
	units      map[*emitter.Context]*Unfinalized
	order      []*Unfinalized
	scopeCells map[emitter.ScopeIndex]gcheap.Handle
}

// NewBuilder creates a builder that packs script data into mem through alloc
// and materializes GC-things in cells.
func NewBuilder(comp *emitter.Compilation, mem stencil.Memory, alloc stencil.Allocator, cells CellStore, opts Options) *Builder {
	id := uuid.New()
	log := opts.Logger
	if log == nil {
		log = Logger()
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	return &Builder{
		comp:       comp,
		mem:        mem,
		alloc:      alloc,
		cells:      cells,
		log:        log.With(zap.String("compilation", id.String())),
		id:         id,
		workers:    workers,
		units:      make(map[*emitter.Context]*Unfinalized),
		scopeCells: make(map[emitter.ScopeIndex]gcheap.Handle),
	}
}

// NewBuilderWithDefaults creates a builder with DefaultOptions.
func NewBuilderWithDefaults(comp *emitter.Compilation, mem stencil.Memory, alloc stencil.Allocator, cells CellStore) *Builder {
	return NewBuilder(comp, mem, alloc, cells, DefaultOptions())
}

// ID identifies the builder in log entries.
func (b *Builder) ID() uuid.UUID {
	return b.id
}

// Compilation returns the compilation whose scripts the builder finalizes.
func (b *Builder) Compilation() *emitter.Compilation {
	return b.comp
}

// Init runs phase 1 for ctx. nslots is the total frame slot count and must
// cover the fixed slots. The context is consumed even when packing fails.
func (b *Builder) Init(ctx *emitter.Context, nslots uint32) (*Unfinalized, error) {
	errors.Violate(ctx.Compilation() == b.comp, errors.PhaseInit,
		"context %s belongs to another compilation", ctx.Name())
	errors.Violate(nslots >= ctx.MaxFixedSlots(), errors.PhaseInit,
		"nslots %d below fixed slots %d", nslots, ctx.MaxFixedSlots())
	ctx.Acquire()

	name := ctx.Name()
	sec := ctx.Section()
	fn := ctx.Function()

	var funLength uint16
	if fn != nil {
		funLength = fn.Length
	}

	data, err := scriptdata.New(b.mem, b.alloc, scriptdata.Params{
		Code:           sec.Code(),
		Notes:          sec.Notes(),
		ResumeOffsets:  sec.ResumeOffsets(),
		ScopeNotes:     sec.ScopeNotes(),
		TryNotes:       sec.TryNotes(),
		MainOffset:     ctx.MainOffset(),
		NumFixed:       ctx.MaxFixedSlots(),
		NumSlots:       nslots,
		BodyScopeIndex: ctx.BodyScopeIndex(),
		NumICEntries:   sec.NumICEntries(),
		NumTypeSets:    sec.NumTypeSets(),
		FunLength:      funLength,
		IsFunction:     fn != nil,
	})
	if err != nil {
		b.log.Warn("script data allocation failed", zap.String("script", name), zap.Error(err))
		return nil, errors.New(errors.PhaseInit, errors.KindAllocation).
			Script(name).
			Cause(err).
			Detail("pack script data").
			Build()
	}

	s := &Stencil{
		name:         name,
		line:         ctx.FirstLine(),
		column:       ctx.FirstColumn(),
		nfixed:       ctx.MaxFixedSlots(),
		nslots:       nslots,
		atomCount:    uint32(ctx.Atoms().Count()),
		gcThingCount: uint32(ctx.GCThings().Len()),
		flags:        scriptFlags(ctx),
		data:         data,
	}
	if fn != nil {
		s.function = &FunctionInfo{
			Name:        fn.Name,
			Length:      fn.Length,
			NamedLambda: fn.NamedLambda,
			Index:       fn.Index,
		}
	}
	s.things = ctx.GCThings().Steal()

	u := &Unfinalized{b: b, ctx: ctx, stencil: s}
	b.mu.Lock()
	b.units[ctx] = u
	b.order = append(b.order, u)
	b.mu.Unlock()

	b.log.Debug("script initialized",
		zap.String("script", name),
		zap.Uint32("size", data.Size()),
		zap.Uint32("atoms", s.atomCount),
		zap.Uint32("gcthings", s.gcThingCount),
		zap.Stringer("flags", s.flags))
	return u, nil
}

// FrameSlots returns the slot count FinalizeTree passes to Init: the fixed
// slots plus the maximum stack depth.
func FrameSlots(ctx *emitter.Context) uint32 {
	n, ok := layout.SafeAddU32(ctx.MaxFixedSlots(), ctx.MaxStackDepth())
	errors.Violate(ok, errors.PhaseInit, "frame slot count of %s overflows", ctx.Name())
	return n
}

func scriptFlags(ctx *emitter.Context) Flags {
	sc := ctx.Shared
	var f Flags
	f = f.with(FlagStrict, sc.Strict)
	f = f.with(FlagBindingsAccessedDynamically, sc.BindingsAccessedDynamically)
	f = f.with(FlagHasCallSiteObject, sc.HasCallSiteObj)
	f = f.with(FlagIsForEval, sc.IsEvalContext)
	f = f.with(FlagIsModule, sc.IsModuleContext)
	f = f.with(FlagIsFunction, ctx.IsFunction())
	f = f.with(FlagHasNonSyntacticScope,
		ctx.Compilation().HasOnChain(ctx.OutermostScopeIndex(), emitter.ScopeNonSyntactic))
	f = f.with(FlagNeedsHeapEnvironment, NeedsHeapEnvironment(ctx))
	f = f.with(FlagHasModuleGoal, sc.HasModuleGoal)
	f = f.with(FlagHasInnerFunctions, sc.HasInnerFunctions)
	return f
}

// NeedsHeapEnvironment reports whether running the script requires a heap
// environment record: either its body scope is a function scope with an
// environment, or its outermost scope is a named-lambda scope with one.
func NeedsHeapEnvironment(ctx *emitter.Context) bool {
	if body, ok := ctx.BodyScope(); ok && body.Kind == emitter.ScopeFunction && body.HasEnvironment {
		return true
	}

	if outer, ok := ctx.OutermostScope(); ok && outer.Kind.IsNamedLambda() {
		fn := ctx.Function()
		errors.Violate(fn != nil && fn.NamedLambda, errors.PhaseInit,
			"%s has a %s scope but is not a named lambda", ctx.Name(), outer.Kind)
		if outer.HasEnvironment {
			return true
		}
	}

	return false
}

func (b *Builder) unit(ctx *emitter.Context) *Unfinalized {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.units[ctx]
}

// innerUnit returns the phase-1 result of a nested function.
func (b *Builder) innerUnit(index uint32) *Unfinalized {
	fn := b.comp.Function(emitter.FunctionIndex(index))
	var u *Unfinalized
	if fn.Context != nil {
		u = b.unit(fn.Context)
	}
	errors.Violate(u != nil, errors.PhaseFinish,
		"nested function %d (%s) has not completed phase 1", index, fn.Name)
	return u
}

// materialize allocates the runtime cell of t. Scope cells are shared by all
// scripts of the compilation; owned reports whether the caller owns the cell.
func (b *Builder) materialize(t emitter.GCThing) (h gcheap.Handle, owned bool, err error) {
	switch t.Kind {
	case emitter.ThingFunction:
		child := b.innerUnit(t.Index)
		h, err = b.cells.Alloc(gcheap.KindFunction, &FunctionCell{
			Box:     b.comp.Function(emitter.FunctionIndex(t.Index)),
			Stencil: child.stencil,
		})
		return h, true, err
	case emitter.ThingScope:
		h, err = b.scopeCell(emitter.ScopeIndex(t.Index))
		return h, false, err
	case emitter.ThingTemplate:
		idx := emitter.TemplateIndex(t.Index)
		h, err = b.cells.Alloc(gcheap.KindTemplate, &TemplateCell{
			Index: idx,
			Data:  b.comp.Template(idx),
		})
		return h, true, err
	default:
		panic(errors.Precondition(errors.PhaseFinish, "unknown gc-thing kind %d", t.Kind))
	}
}

// scopeCell returns the memoized cell of scope i, creating the cells of its
// enclosing scopes first.
func (b *Builder) scopeCell(i emitter.ScopeIndex) (gcheap.Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.scopeCellLocked(i)
}

func (b *Builder) scopeCellLocked(i emitter.ScopeIndex) (gcheap.Handle, error) {
	if h, ok := b.scopeCells[i]; ok {
		return h, nil
	}

	data := b.comp.Scope(i)
	var enclosing gcheap.Handle
	if data.Enclosing != emitter.NoScope {
		var err error
		enclosing, err = b.scopeCellLocked(data.Enclosing)
		if err != nil {
			return 0, err
		}
	}

	h, err := b.cells.Alloc(gcheap.KindScope, &ScopeCell{
		Index:     i,
		Data:      data,
		Enclosing: enclosing,
	})
	if err != nil {
		return 0, err
	}
	b.scopeCells[i] = h
	return h, nil
}

// Discard releases the packed buffers and owned cells of every script that
// has not been finalized. Those scripts are unusable afterwards. Nested
// scripts already finalized by FinishInnerFunctions keep their buffers; use
// DiscardAll to drop a tree whose top level failed.
func (b *Builder) Discard() {
	b.discard(false)
}

// DiscardAll releases every script of the builder, finalized or not, and
// the shared scope cells. FinalizeTree does this on failure.
func (b *Builder) DiscardAll() {
	b.discard(true)
}

// discard drops scripts; with all set it also drops finalized scripts and
// the shared scope cells.
func (b *Builder) discard(all bool) {
	b.mu.Lock()
	units := append([]*Unfinalized(nil), b.order...)
	b.mu.Unlock()

	n := 0
	for _, u := range units {
		if u.release(b.alloc, b.cells, all) {
			n++
		}
	}

	if all {
		b.mu.Lock()
		for i, h := range b.scopeCells {
			b.cells.Remove(h)
			delete(b.scopeCells, i)
		}
		b.mu.Unlock()
	}

	if n > 0 {
		b.log.Debug("scripts discarded", zap.Int("count", n))
	}
}
