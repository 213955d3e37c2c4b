package scriptdata

import (
	"github.com/wippyai/stencil/errors"
	"github.com/wippyai/stencil/internal/layout"
)

// Align is the alignment of a packed buffer.
const Align = 4

const (
	HeaderSize       = 48
	ResumeOffsetSize = 4
	ScopeNoteSize    = 16
	TryNoteSize      = 16
)

// Header field offsets.
const (
	offCodeLength       = 0
	offNoteLength       = 4
	offMainOffset       = 8
	offNumFixed         = 12
	offNumSlots         = 16
	offBodyScopeIndex   = 20
	offNumICEntries     = 24
	offNumTypeSets      = 28
	offFunLength        = 32
	offFlags            = 34
	offNumResumeOffsets = 36
	offNumScopeNotes    = 40
	offNumTryNotes      = 44
)

const flagIsFunction uint16 = 1 << 0

// Layout assigns every region of a packed buffer.
type Layout struct {
	Header        layout.Region
	ResumeOffsets layout.Region
	ScopeNotes    layout.Region
	TryNotes      layout.Region
	Code          layout.Region
	Notes         layout.Region
	Size          uint32
}

type tableCounts struct {
	resumeOffsets int
	scopeNotes    int
	tryNotes      int
	code          int
	notes         int
}

// ComputeLayout computes the layout of the buffer New would allocate for p.
// A layout that does not fit in uint32 is reported as an allocation failure.
func ComputeLayout(p Params) (Layout, error) {
	return computeLayout(tableCounts{
		resumeOffsets: len(p.ResumeOffsets),
		scopeNotes:    len(p.ScopeNotes),
		tryNotes:      len(p.TryNotes),
		code:          len(p.Code),
		notes:         len(p.Notes),
	})
}

func computeLayout(c tableCounts) (Layout, error) {
	var b layout.Builder
	l := Layout{
		Header:        b.Add(1, HeaderSize, Align),
		ResumeOffsets: b.Add(c.resumeOffsets, ResumeOffsetSize, Align),
		ScopeNotes:    b.Add(c.scopeNotes, ScopeNoteSize, Align),
		TryNotes:      b.Add(c.tryNotes, TryNoteSize, Align),
		Code:          b.Add(c.code, 1, 1),
		Notes:         b.Add(c.notes, 1, 1),
	}
	size, ok := b.Size()
	if !ok {
		return Layout{}, errors.New(errors.PhasePack, errors.KindAllocation).
			Cause(errors.Overflow(errors.PhasePack, nil, "script data size")).
			Detail("script data too large").
			Build()
	}
	l.Size = size
	return l, nil
}
