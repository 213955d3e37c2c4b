package scriptdata

import (
	"encoding/binary"

	"github.com/wippyai/stencil"
	"github.com/wippyai/stencil/errors"
	wbinary "github.com/wippyai/stencil/internal/binary"
)

// Params is everything packed into an ImmutableScriptData. Slices are copied.
type Params struct {
	Code           []byte
	Notes          []byte
	ResumeOffsets  []uint32
	ScopeNotes     []ScopeNote
	TryNotes       []TryNote
	MainOffset     uint32
	NumFixed       uint32
	NumSlots       uint32
	BodyScopeIndex uint32
	NumICEntries   uint32
	NumTypeSets    uint32
	FunLength      uint16
	IsFunction     bool
}

// ImmutableScriptData is a packed script buffer. It is never modified after
// New returns.
type ImmutableScriptData struct {
	buf    []byte
	ptr    uint32
	layout Layout
	owned  bool
}

// New packs p into a single region of mem obtained from alloc. Allocation
// failure is the only error.
func New(mem stencil.Memory, alloc stencil.Allocator, p Params) (*ImmutableScriptData, error) {
	errors.Violate(p.MainOffset <= uint32(len(p.Code)), errors.PhasePack,
		"main offset %d past end of bytecode (%d bytes)", p.MainOffset, len(p.Code))
	errors.Violate(p.NumSlots >= p.NumFixed, errors.PhasePack,
		"nslots %d below nfixed %d", p.NumSlots, p.NumFixed)

	l, err := ComputeLayout(p)
	if err != nil {
		return nil, err
	}

	ptr, err := alloc.Alloc(l.Size, Align)
	if err != nil {
		return nil, errors.AllocationFailed(errors.PhasePack, l.Size, Align, err)
	}
	buf, err := mem.View(ptr, l.Size)
	if err != nil {
		alloc.Free(ptr, l.Size, Align)
		return nil, errors.AllocationFailed(errors.PhasePack, l.Size, Align, err)
	}

	w := wbinary.NewFixedWriter(buf)
	writeHeader(w, p)
	for _, off := range p.ResumeOffsets {
		w.WriteU32LE(off)
	}
	for _, sn := range p.ScopeNotes {
		w.WriteU32LE(sn.Index)
		w.WriteU32LE(sn.Start)
		w.WriteU32LE(sn.Length)
		w.WriteU32LE(sn.Parent)
	}
	for _, tn := range p.TryNotes {
		w.WriteU32LE(uint32(tn.Kind))
		w.WriteU32LE(tn.StackDepth)
		w.WriteU32LE(tn.Start)
		w.WriteU32LE(tn.Length)
	}
	w.WriteBytes(p.Code)
	w.WriteBytes(p.Notes)

	return &ImmutableScriptData{buf: buf, ptr: ptr, layout: l, owned: true}, nil
}

func writeHeader(w *wbinary.Writer, p Params) {
	var flags uint16
	if p.IsFunction {
		flags |= flagIsFunction
	}
	w.WriteU32LE(uint32(len(p.Code)))
	w.WriteU32LE(uint32(len(p.Notes)))
	w.WriteU32LE(p.MainOffset)
	w.WriteU32LE(p.NumFixed)
	w.WriteU32LE(p.NumSlots)
	w.WriteU32LE(p.BodyScopeIndex)
	w.WriteU32LE(p.NumICEntries)
	w.WriteU32LE(p.NumTypeSets)
	w.WriteU16LE(p.FunLength)
	w.WriteU16LE(flags)
	w.WriteU32LE(uint32(len(p.ResumeOffsets)))
	w.WriteU32LE(uint32(len(p.ScopeNotes)))
	w.WriteU32LE(uint32(len(p.TryNotes)))
}

// FromBytes reinterprets a packed buffer produced by Bytes, typically a copy
// made elsewhere. The result aliases buf and does not own any allocation.
func FromBytes(buf []byte) (*ImmutableScriptData, error) {
	if len(buf) < HeaderSize {
		return nil, errors.InvalidData(errors.PhaseLoad, []string{"header"},
			"buffer shorter than header")
	}
	u32 := func(off int) uint32 { return binary.LittleEndian.Uint32(buf[off:]) }

	l, err := computeLayout(tableCounts{
		resumeOffsets: int(u32(offNumResumeOffsets)),
		scopeNotes:    int(u32(offNumScopeNotes)),
		tryNotes:      int(u32(offNumTryNotes)),
		code:          int(u32(offCodeLength)),
		notes:         int(u32(offNoteLength)),
	})
	if err != nil {
		return nil, errors.InvalidData(errors.PhaseLoad, []string{"header"},
			"table sizes overflow")
	}
	if uint64(l.Size) != uint64(len(buf)) {
		return nil, errors.New(errors.PhaseLoad, errors.KindInvalidData).
			Path("header").
			Value(len(buf)).
			Detail("tables account for %d bytes, buffer has %d", l.Size, len(buf)).
			Build()
	}

	d := &ImmutableScriptData{buf: buf, layout: l}
	if d.MainOffset() > d.CodeLength() {
		return nil, errors.InvalidData(errors.PhaseLoad, []string{"header", "main_offset"},
			"main offset past end of bytecode")
	}
	for i := 0; i < d.NumTryNotes(); i++ {
		tn := d.TryNoteAt(i)
		if uint64(tn.Start)+uint64(tn.Length) > uint64(d.CodeLength()) {
			return nil, errors.OutOfBounds(errors.PhaseLoad, []string{"try_notes"}, i, d.NumTryNotes())
		}
	}
	return d, nil
}

// Release returns the buffer to alloc. Buffers from FromBytes own nothing and
// Release is a no-op for them.
func (d *ImmutableScriptData) Release(alloc stencil.Allocator) {
	if !d.owned {
		return
	}
	alloc.Free(d.ptr, d.layout.Size, Align)
	d.owned = false
	d.buf = nil
}

// Released reports whether Release has returned the buffer.
func (d *ImmutableScriptData) Released() bool {
	return d.buf == nil
}

func (d *ImmutableScriptData) u32(off uint32) uint32 {
	return binary.LittleEndian.Uint32(d.buf[off:])
}

func (d *ImmutableScriptData) u16(off uint32) uint16 {
	return binary.LittleEndian.Uint16(d.buf[off:])
}

// Ptr returns the offset of the buffer in its memory, 0 for FromBytes buffers.
func (d *ImmutableScriptData) Ptr() uint32        { return d.ptr }
func (d *ImmutableScriptData) Size() uint32       { return d.layout.Size }
func (d *ImmutableScriptData) Layout() Layout     { return d.layout }
func (d *ImmutableScriptData) Bytes() []byte      { return d.buf }
func (d *ImmutableScriptData) CodeLength() uint32 { return d.u32(offCodeLength) }
func (d *ImmutableScriptData) NoteLength() uint32 { return d.u32(offNoteLength) }
func (d *ImmutableScriptData) MainOffset() uint32 { return d.u32(offMainOffset) }
func (d *ImmutableScriptData) NumFixed() uint32   { return d.u32(offNumFixed) }
func (d *ImmutableScriptData) NumSlots() uint32   { return d.u32(offNumSlots) }
func (d *ImmutableScriptData) BodyScopeIndex() uint32 {
	return d.u32(offBodyScopeIndex)
}
func (d *ImmutableScriptData) NumICEntries() uint32 { return d.u32(offNumICEntries) }
func (d *ImmutableScriptData) NumTypeSets() uint32  { return d.u32(offNumTypeSets) }
func (d *ImmutableScriptData) FunLength() uint16    { return d.u16(offFunLength) }
func (d *ImmutableScriptData) IsFunction() bool {
	return d.u16(offFlags)&flagIsFunction != 0
}

func (d *ImmutableScriptData) NumResumeOffsets() int { return int(d.u32(offNumResumeOffsets)) }
func (d *ImmutableScriptData) NumScopeNotes() int    { return int(d.u32(offNumScopeNotes)) }
func (d *ImmutableScriptData) NumTryNotes() int      { return int(d.u32(offNumTryNotes)) }

// Code returns the bytecode. The slice aliases the packed buffer.
func (d *ImmutableScriptData) Code() []byte {
	r := d.layout.Code
	return d.buf[r.Offset:r.End():r.End()]
}

// Notes returns the source notes. The slice aliases the packed buffer.
func (d *ImmutableScriptData) Notes() []byte {
	r := d.layout.Notes
	return d.buf[r.Offset:r.End():r.End()]
}

func (d *ImmutableScriptData) ResumeOffsetAt(i int) uint32 {
	return d.u32(d.layout.ResumeOffsets.Offset + uint32(i)*ResumeOffsetSize)
}

func (d *ImmutableScriptData) ScopeNoteAt(i int) ScopeNote {
	base := d.layout.ScopeNotes.Offset + uint32(i)*ScopeNoteSize
	return ScopeNote{
		Index:  d.u32(base),
		Start:  d.u32(base + 4),
		Length: d.u32(base + 8),
		Parent: d.u32(base + 12),
	}
}

func (d *ImmutableScriptData) TryNoteAt(i int) TryNote {
	base := d.layout.TryNotes.Offset + uint32(i)*TryNoteSize
	return TryNote{
		Kind:       TryNoteKind(d.u32(base)),
		StackDepth: d.u32(base + 4),
		Start:      d.u32(base + 8),
		Length:     d.u32(base + 12),
	}
}

// ResumeOffsets copies the resume-offset table.
func (d *ImmutableScriptData) ResumeOffsets() []uint32 {
	out := make([]uint32, d.NumResumeOffsets())
	for i := range out {
		out[i] = d.ResumeOffsetAt(i)
	}
	return out
}

// ScopeNotes copies the scope-note table.
func (d *ImmutableScriptData) ScopeNotes() []ScopeNote {
	out := make([]ScopeNote, d.NumScopeNotes())
	for i := range out {
		out[i] = d.ScopeNoteAt(i)
	}
	return out
}

// TryNotes copies the try-note table.
func (d *ImmutableScriptData) TryNotes() []TryNote {
	out := make([]TryNote, d.NumTryNotes())
	for i := range out {
		out[i] = d.TryNoteAt(i)
	}
	return out
}
