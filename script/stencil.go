package script

import (
	"slices"

	"github.com/wippyai/stencil/emitter"
	"github.com/wippyai/stencil/errors"
	"github.com/wippyai/stencil/gcheap"
	"github.com/wippyai/stencil/scriptdata"
)

// FunctionInfo describes the function a stencil was compiled from.
type FunctionInfo struct {
	Name        string
	Length      uint16
	NamedLambda bool
	Index       emitter.FunctionIndex
}

// Stencil is the immutable result of finalizing one script. The cell and
// atom slots are each written exactly once during phase 2.
type Stencil struct {
	name         string
	line         uint32
	column       uint32
	nfixed       uint32
	nslots       uint32
	atomCount    uint32
	gcThingCount uint32
	flags        Flags
	data         *scriptdata.ImmutableScriptData
	things       []emitter.GCThing
	function     *FunctionInfo

	cells    []gcheap.Handle
	atoms    []string
	cellsSet bool
	atomsSet bool
}

func (s *Stencil) Name() string                          { return s.name }
func (s *Stencil) Line() uint32                          { return s.line }
func (s *Stencil) Column() uint32                        { return s.column }
func (s *Stencil) NumFixed() uint32                      { return s.nfixed }
func (s *Stencil) NumSlots() uint32                      { return s.nslots }
func (s *Stencil) AtomCount() uint32                     { return s.atomCount }
func (s *Stencil) GCThingCount() uint32                  { return s.gcThingCount }
func (s *Stencil) Flags() Flags                          { return s.flags }
func (s *Stencil) Data() *scriptdata.ImmutableScriptData { return s.data }

// Function returns the function descriptor, nil unless FlagIsFunction is set.
func (s *Stencil) Function() *FunctionInfo {
	return s.function
}

// GCThings returns a copy of the GC-thing descriptors.
func (s *Stencil) GCThings() []emitter.GCThing {
	return append([]emitter.GCThing(nil), s.things...)
}

// Cells returns the resolved GC-things, nil before FinishGCThings.
func (s *Stencil) Cells() []gcheap.Handle {
	return slices.Clone(s.cells)
}

// CellAt returns the cell handle of GC-thing i.
func (s *Stencil) CellAt(i int) gcheap.Handle {
	return s.cells[i]
}

// Atoms returns the atom array, nil before InitAtomMap.
func (s *Stencil) Atoms() []string {
	return slices.Clone(s.atoms)
}

// AtomAt returns atom i.
func (s *Stencil) AtomAt(i int) string {
	return s.atoms[i]
}

func (s *Stencil) setCells(cells []gcheap.Handle) {
	errors.Violate(!s.cellsSet, errors.PhaseFinish, "gc-thing slot of %s written twice", s.name)
	s.cells = slices.Clone(cells)
	s.cellsSet = true
}

func (s *Stencil) setAtoms(atoms []string) {
	errors.Violate(!s.atomsSet, errors.PhaseFinish, "atom slot of %s written twice", s.name)
	s.atoms = slices.Clone(atoms)
	s.atomsSet = true
}
