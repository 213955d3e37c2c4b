package script

import (
	"context"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/stencil"
	"github.com/wippyai/stencil/emitter"
	"github.com/wippyai/stencil/errors"
	"github.com/wippyai/stencil/gcheap"
)

// Unfinalized is a script that completed phase 1. Phase-2 operations exist
// only on this type.
type Unfinalized struct {
	b       *Builder
	ctx     *emitter.Context
	stencil *Stencil

	mu        sync.Mutex
	owned     []gcheap.Handle
	gcDone    bool
	atomsDone bool
	innerDone bool
	visited   bool
	failed    bool
	discarded bool
	script    *Script
}

// Stencil returns the stencil being finalized. Its cell and atom slots are
// empty until the matching phase-2 operation has run.
func (u *Unfinalized) Stencil() *Stencil {
	return u.stencil
}

// Failed reports whether a phase-2 operation failed. A failed script must
// not be installed.
func (u *Unfinalized) Failed() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.failed
}

func (u *Unfinalized) usableLocked() {
	name := u.stencil.name
	errors.Violate(!u.discarded, errors.PhaseFinish, "script %s was discarded", name)
	errors.Violate(!u.failed, errors.PhaseFinish, "script %s failed finalization", name)
	errors.Violate(u.script == nil, errors.PhaseFinish, "script %s already finalized", name)
}

// FinishGCThings materializes every GC-thing of the script into out, which
// must hold exactly GCThingCount entries. Nested functions must have
// completed phase 1. On allocation failure out is partially written and the
// script is poisoned.
func (u *Unfinalized) FinishGCThings(out []gcheap.Handle) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.usableLocked()
	s := u.stencil
	errors.Violate(!u.gcDone, errors.PhaseFinish, "gc-things of %s already resolved", s.name)
	errors.Violate(len(out) == int(s.gcThingCount), errors.PhaseFinish,
		"gc-thing target of %s has %d entries, want %d", s.name, len(out), s.gcThingCount)
	u.gcDone = true

	for i, t := range s.things {
		h, owned, err := u.b.materialize(t)
		if err != nil {
			u.failed = true
			u.b.log.Warn("gc-thing allocation failed",
				zap.String("script", s.name),
				zap.Int("index", i),
				zap.Stringer("thing", t),
				zap.Error(err))
			return errors.New(errors.PhaseFinish, errors.KindAllocation).
				Script(s.name).
				Path("gcthings", strconv.Itoa(i)).
				Value(t).
				Cause(err).
				Detail("materialize %s", t).
				Build()
		}
		out[i] = h
		if owned {
			u.owned = append(u.owned, h)
		}
	}

	s.setCells(out)
	return nil
}

// InitAtomMap writes every atom of the script to its index in out, which
// must hold exactly AtomCount entries.
func (u *Unfinalized) InitAtomMap(out []string) {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.usableLocked()
	s := u.stencil
	errors.Violate(!u.atomsDone, errors.PhaseFinish, "atoms of %s already initialized", s.name)
	errors.Violate(len(out) == int(s.atomCount), errors.PhaseFinish,
		"atom target of %s has %d entries, want %d", s.name, len(out), s.atomCount)

	u.ctx.Atoms().Each(func(atom string, index uint32) {
		errors.Violate(index < s.atomCount, errors.PhaseFinish,
			"atom index %d of %s out of range", index, s.name)
		out[index] = atom
	})

	u.atomsDone = true
	s.setAtoms(out)
}

// FinishInnerFunctions completes both phases for every nested function,
// depth first. Each nested script is visited once.
func (u *Unfinalized) FinishInnerFunctions() error {
	return u.finishInner(context.Background())
}

func (u *Unfinalized) finishInner(ctx context.Context) error {
	u.claimInner()
	things := u.stencil.things

	var children []*Unfinalized
	for _, t := range things {
		if t.Kind == emitter.ThingFunction {
			children = append(children, u.b.innerUnit(t.Index))
		}
	}

	err := forEach(ctx, u.b.workers, children, func(ctx context.Context, child *Unfinalized) error {
		return child.finishNested(ctx)
	})
	if err != nil {
		u.mu.Lock()
		u.failed = true
		u.mu.Unlock()
	}
	return err
}

func (u *Unfinalized) claimInner() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.usableLocked()
	errors.Violate(!u.innerDone, errors.PhaseFinish,
		"inner functions of %s already finished", u.stencil.name)
	u.innerDone = true
}

func (u *Unfinalized) claimVisit() {
	u.mu.Lock()
	defer u.mu.Unlock()
	errors.Violate(!u.visited, errors.PhaseFinish, "nested function %s visited twice", u.stencil.name)
	u.visited = true
}

func (u *Unfinalized) finishNested(ctx context.Context) error {
	u.claimVisit()

	if err := ctx.Err(); err != nil {
		return errors.Canceled(errors.PhaseFinish, err)
	}
	if err := u.finishInner(ctx); err != nil {
		return err
	}
	if err := u.FinishGCThings(make([]gcheap.Handle, u.stencil.gcThingCount)); err != nil {
		return err
	}
	u.InitAtomMap(make([]string, u.stencil.atomCount))
	u.Finalize()
	return nil
}

func (u *Unfinalized) finalized() *Script {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.script
}

// Finalize freezes the stencil. Both slots must have been written and every
// nested function finalized.
func (u *Unfinalized) Finalize() *Script {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.usableLocked()
	s := u.stencil
	errors.Violate(u.gcDone && u.atomsDone, errors.PhaseFinish,
		"%s finalized before its gc-thing and atom slots were written", s.name)

	var inner []*Script
	for _, t := range s.things {
		if t.Kind != emitter.ThingFunction {
			continue
		}
		child := u.b.innerUnit(t.Index).finalized()
		errors.Violate(child != nil, errors.PhaseFinish,
			"%s finalized before nested function %d", s.name, t.Index)
		inner = append(inner, child)
	}

	u.script = &Script{stencil: s, inner: inner}
	u.b.log.Debug("script finalized", zap.String("script", s.name), zap.Int("inner", len(inner)))
	return u.script
}

// release frees the packed buffer and owned cells. Finalized scripts are kept
// unless all is set.
func (u *Unfinalized) release(alloc stencil.Allocator, cells CellStore, all bool) bool {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.discarded || (u.script != nil && !all) {
		return false
	}
	u.stencil.data.Release(alloc)
	for _, h := range u.owned {
		cells.Remove(h)
	}
	u.owned = nil
	u.discarded = true
	return true
}
