package gcheap

import (
	"sync"
)

// Table is the cell heap finalized scripts point into. It tags every cell
// with its kind and reports allocations and releases to observers.
type Table struct {
	backend   Backend
	observers []Observer
	obsMu     sync.RWMutex
}

// NewTable creates a table without a cell budget.
func NewTable() *Table {
	return NewTableWithLimit(0)
}

// NewTableWithLimit creates a table holding at most limit live cells.
func NewTableWithLimit(limit int) *Table {
	return NewTableWithBackend(NewLocalBackend(limit))
}

// NewTableWithBackend creates a table over an existing backend.
func NewTableWithBackend(b Backend) *Table {
	return &Table{backend: b}
}

// Alloc stores a value and returns its handle. It fails with ErrOutOfCells
// once the budget is spent and with ErrClosed after Close.
func (t *Table) Alloc(kind Kind, value any) (Handle, error) {
	handle, err := t.backend.Create(kind, value)
	if err != nil {
		return 0, err
	}

	t.notify(Event{
		Type:   EventAllocated,
		Handle: handle,
		Kind:   kind,
		Value:  value,
	})

	return handle, nil
}

// Get retrieves a value by handle.
func (t *Table) Get(handle Handle) (any, bool) {
	return t.backend.Get(handle)
}

// GetTyped retrieves a value only if it matches the expected kind.
func (t *Table) GetTyped(handle Handle, kind Kind) (any, bool) {
	actual, ok := t.backend.Kind(handle)
	if !ok || actual != kind {
		return nil, false
	}
	return t.backend.Get(handle)
}

// Remove drops a cell and returns (value, true) if found.
func (t *Table) Remove(handle Handle) (any, bool) {
	kind, _ := t.backend.Kind(handle)
	value, ok := t.backend.Drop(handle)
	if !ok {
		return nil, false
	}

	if r, ok := value.(Releaser); ok {
		r.Release()
	}

	t.notify(Event{
		Type:   EventReleased,
		Handle: handle,
		Kind:   kind,
		Value:  value,
	})

	return value, true
}

// Subscribe adds an observer for lifecycle events.
func (t *Table) Subscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
}

// Unsubscribe removes an observer.
func (t *Table) Unsubscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	for i, obs := range t.observers {
		if obs == o {
			t.observers = append(t.observers[:i], t.observers[i+1:]...)
			return
		}
	}
}

// Len returns the number of live cells.
func (t *Table) Len() int {
	return t.backend.Len()
}

// Each iterates over all live cells in handle order.
func (t *Table) Each(fn func(Handle, Kind, any) bool) {
	t.backend.Each(fn)
}

// Counts returns the number of live cells per kind.
func (t *Table) Counts() map[Kind]int {
	counts := make(map[Kind]int, 3)
	t.backend.Each(func(_ Handle, k Kind, _ any) bool {
		counts[k]++
		return true
	})
	return counts
}

// Clear drops all cells.
func (t *Table) Clear() {
	var handles []Handle
	t.backend.Each(func(h Handle, _ Kind, _ any) bool {
		handles = append(handles, h)
		return true
	})
	for _, h := range handles {
		t.Remove(h)
	}
}

// Close releases all cells and stops accepting allocations.
func (t *Table) Close() error {
	return t.backend.Close()
}

func (t *Table) notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, o := range t.observers {
		o.OnCellEvent(e)
	}
}
