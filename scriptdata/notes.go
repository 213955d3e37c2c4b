package scriptdata

import (
	"fmt"
	"math"
)

// TryNoteKind identifies the construct a try note covers.
type TryNoteKind uint8

const (
	TryNoteCatch TryNoteKind = iota
	TryNoteFinally
	TryNoteForIn
	TryNoteForOf
	TryNoteLoop
	TryNoteDestructuring
)

func (k TryNoteKind) String() string {
	switch k {
	case TryNoteCatch:
		return "catch"
	case TryNoteFinally:
		return "finally"
	case TryNoteForIn:
		return "for-in"
	case TryNoteForOf:
		return "for-of"
	case TryNoteLoop:
		return "loop"
	case TryNoteDestructuring:
		return "destructuring"
	default:
		return fmt.Sprintf("try-note(%d)", uint8(k))
	}
}

// ParseTryNoteKind is the inverse of TryNoteKind.String.
func ParseTryNoteKind(s string) (TryNoteKind, bool) {
	for k := TryNoteCatch; k <= TryNoteDestructuring; k++ {
		if k.String() == s {
			return k, true
		}
	}
	return 0, false
}

// TryNote maps a bytecode range to an exception-handling construct.
type TryNote struct {
	Kind       TryNoteKind
	StackDepth uint32
	Start      uint32
	Length     uint32
}

// NoParent marks a scope note without an enclosing note.
const NoParent = math.MaxUint32

// ScopeNote maps a bytecode range to the lexical scope active in it. Index
// is the position of the scope in the script's GC-thing list; Parent is the
// index of the enclosing note or NoParent.
type ScopeNote struct {
	Index  uint32
	Start  uint32
	Length uint32
	Parent uint32
}
