package script

// Script is a fully finalized stencil together with its finalized nested
// functions.
type Script struct {
	stencil *Stencil
	inner   []*Script
}

// Stencil returns the finalized stencil.
func (s *Script) Stencil() *Stencil {
	return s.stencil
}

// Name returns the script name used in diagnostics.
func (s *Script) Name() string {
	return s.stencil.name
}

// Inner returns the nested functions in GC-thing order.
func (s *Script) Inner() []*Script {
	return s.inner
}

// Walk visits s and its nested functions depth first. Returning false from
// fn skips the children of that script.
func (s *Script) Walk(fn func(s *Script, depth int) bool) {
	s.walk(fn, 0)
}

func (s *Script) walk(fn func(*Script, int) bool, depth int) {
	if !fn(s, depth) {
		return
	}
	for _, c := range s.inner {
		c.walk(fn, depth+1)
	}
}

// Count returns the number of scripts in the tree rooted at s.
func (s *Script) Count() int {
	n := 0
	s.Walk(func(*Script, int) bool {
		n++
		return true
	})
	return n
}
