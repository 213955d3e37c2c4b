package emitter

import (
	"fmt"

	"github.com/wippyai/stencil/errors"
)

// ThingKind selects the compilation arena a GC-thing refers to.
type ThingKind uint8

const (
	ThingFunction ThingKind = iota + 1
	ThingScope
	ThingTemplate
)

func (k ThingKind) String() string {
	switch k {
	case ThingFunction:
		return "function"
	case ThingScope:
		return "scope"
	case ThingTemplate:
		return "template"
	default:
		return fmt.Sprintf("thing(%d)", uint8(k))
	}
}

// ParseThingKind is the inverse of ThingKind.String.
func ParseThingKind(s string) (ThingKind, bool) {
	for k := ThingFunction; k <= ThingTemplate; k++ {
		if k.String() == s {
			return k, true
		}
	}
	return 0, false
}

// GCThing is a reference from bytecode to an entry of a compilation arena.
type GCThing struct {
	Kind  ThingKind
	Index uint32
}

func (t GCThing) String() string {
	return fmt.Sprintf("%s#%d", t.Kind, t.Index)
}

// GCThingList is the ordered list of GC-things a script references. Its
// contents can be moved out once with Steal; the list is unusable after.
type GCThingList struct {
	things []GCThing
	stolen bool
}

// Append adds t and returns its index in the list.
func (l *GCThingList) Append(t GCThing) uint32 {
	errors.Violate(!l.stolen, errors.PhaseEmit, "append to a stolen gc-thing list")
	l.things = append(l.things, t)
	return uint32(len(l.things) - 1)
}

func (l *GCThingList) Len() int {
	return len(l.things)
}

func (l *GCThingList) At(i int) GCThing {
	return l.things[i]
}

// Stolen reports whether Steal has moved the contents out.
func (l *GCThingList) Stolen() bool {
	return l.stolen
}

// Steal transfers ownership of the list contents to the caller and leaves
// the list empty. It may be called once.
func (l *GCThingList) Steal() []GCThing {
	errors.Violate(!l.stolen, errors.PhaseEmit, "gc-thing list stolen twice")
	things := l.things
	l.things = nil
	l.stolen = true
	return things
}
