package emitter

import "github.com/wippyai/stencil/scriptdata"

// BytecodeSection is the bytecode of one script with the tables that index
// into it.
type BytecodeSection struct {
	code          []byte
	notes         []byte
	resumeOffsets []uint32
	scopeNotes    []scriptdata.ScopeNote
	tryNotes      []scriptdata.TryNote
	numICEntries  uint32
	numTypeSets   uint32
}

func (s *BytecodeSection) Code() []byte                       { return s.code }
func (s *BytecodeSection) Notes() []byte                      { return s.notes }
func (s *BytecodeSection) ResumeOffsets() []uint32            { return s.resumeOffsets }
func (s *BytecodeSection) ScopeNotes() []scriptdata.ScopeNote { return s.scopeNotes }
func (s *BytecodeSection) TryNotes() []scriptdata.TryNote     { return s.tryNotes }
func (s *BytecodeSection) NumICEntries() uint32               { return s.numICEntries }
func (s *BytecodeSection) NumTypeSets() uint32                { return s.numTypeSets }

// Offset returns the offset of the next emitted byte.
func (s *BytecodeSection) Offset() uint32 {
	return uint32(len(s.code))
}
