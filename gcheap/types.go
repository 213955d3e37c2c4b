package gcheap

import "fmt"

// Handle is an opaque reference to a cell in a table.
// Handle 0 is reserved and always invalid.
type Handle uint32

// Kind identifies what a cell holds.
type Kind uint8

const (
	KindFunction Kind = iota + 1
	KindScope
	KindTemplate
)

func (k Kind) String() string {
	switch k {
	case KindFunction:
		return "function"
	case KindScope:
		return "scope"
	case KindTemplate:
		return "template"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// EventType identifies a cell lifecycle notification.
type EventType uint8

const (
	EventAllocated EventType = iota
	EventReleased
)

// Event represents a cell lifecycle event.
type Event struct {
	Value  any
	Handle Handle
	Kind   Kind
	Type   EventType
}

// Observer receives notifications about cell lifecycle events.
type Observer interface {
	OnCellEvent(Event)
}

// Backend provides the underlying storage for cells.
type Backend interface {
	// Create stores a value and returns a handle.
	Create(kind Kind, value any) (Handle, error)

	// Get retrieves a value by handle.
	Get(handle Handle) (any, bool)

	// Kind returns the kind of the cell behind handle.
	Kind(handle Handle) (Kind, bool)

	// Drop removes a cell and returns its value.
	Drop(handle Handle) (any, bool)

	// Len returns the number of live cells.
	Len() int

	// Each visits live cells in handle order until fn returns false.
	Each(fn func(Handle, Kind, any) bool)

	// Close releases all cells held by the backend. Create fails with
	// ErrClosed afterwards.
	Close() error
}

var _ Backend = (*LocalBackend)(nil)

// Releaser is optionally implemented by cell values that need cleanup.
type Releaser interface {
	Release()
}
