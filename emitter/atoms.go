package emitter

// AtomIndexMap assigns dense indices to interned names in order of first use.
type AtomIndexMap struct {
	indices map[string]uint32
	order   []string
}

func NewAtomIndexMap() *AtomIndexMap {
	return &AtomIndexMap{indices: make(map[string]uint32)}
}

// Add returns the index of atom, assigning the next one on first use.
func (m *AtomIndexMap) Add(atom string) uint32 {
	if idx, ok := m.indices[atom]; ok {
		return idx
	}
	idx := uint32(len(m.order))
	m.indices[atom] = idx
	m.order = append(m.order, atom)
	return idx
}

func (m *AtomIndexMap) Index(atom string) (uint32, bool) {
	idx, ok := m.indices[atom]
	return idx, ok
}

func (m *AtomIndexMap) Count() int {
	return len(m.order)
}

// Each calls fn for every atom with its index.
func (m *AtomIndexMap) Each(fn func(atom string, index uint32)) {
	for atom, idx := range m.indices {
		fn(atom, idx)
	}
}
