package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/wippyai/stencil/gcheap"
	"github.com/wippyai/stencil/script"
	"github.com/wippyai/stencil/scriptdata"
)

type entry struct {
	script *script.Script
	depth  int
}

func flatten(top *script.Script) []entry {
	var out []entry
	top.Walk(func(s *script.Script, depth int) bool {
		out = append(out, entry{script: s, depth: depth})
		return true
	})
	return out
}

func writeReport(w io.Writer, filename string, res *result, dump bool) error {
	entries := flatten(res.top)
	fmt.Fprintf(w, "Fixture: %s\n", filename)
	fmt.Fprintf(w, "Scripts: %d\n", len(entries))
	fmt.Fprintf(w, "Heap live: %d bytes\n", res.heap.Live())
	counts := res.cells.Counts()
	fmt.Fprintf(w, "Cells: %d (function %d, scope %d, template %d)\n", res.cells.Len(),
		counts[gcheap.KindFunction], counts[gcheap.KindScope], counts[gcheap.KindTemplate])

	for _, e := range entries {
		fmt.Fprintln(w)
		for _, line := range strings.Split(strings.TrimRight(describe(e.script, dump), "\n"), "\n") {
			fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", e.depth), line)
		}
	}
	return nil
}

func describe(s *script.Script, dump bool) string {
	var b strings.Builder
	st := s.Stencil()
	d := st.Data()

	fmt.Fprintf(&b, "%s (line %d, column %d)\n", s.Name(), st.Line(), st.Column())
	if fn := st.Function(); fn != nil {
		lambda := ""
		if fn.NamedLambda {
			lambda = " named-lambda"
		}
		fmt.Fprintf(&b, "  function: #%d length %d%s\n", fn.Index, fn.Length, lambda)
	}
	fmt.Fprintf(&b, "  slots: fixed %d, total %d\n", st.NumFixed(), st.NumSlots())
	fmt.Fprintf(&b, "  flags: %s\n", st.Flags())
	fmt.Fprintf(&b, "  packed: %d bytes (code %d, notes %d)\n", d.Size(), d.CodeLength(), d.NoteLength())
	fmt.Fprintf(&b, "  main offset: %d, ic entries: %d, type sets: %d\n",
		d.MainOffset(), d.NumICEntries(), d.NumTypeSets())

	if n := int(st.AtomCount()); n > 0 {
		b.WriteString("  atoms:\n")
		for i := 0; i < n; i++ {
			fmt.Fprintf(&b, "    [%d] %q\n", i, st.AtomAt(i))
		}
	}

	if things := st.GCThings(); len(things) > 0 {
		b.WriteString("  gc things:\n")
		for i, t := range things {
			fmt.Fprintf(&b, "    [%d] %s -> cell %d\n", i, t, st.CellAt(i))
		}
	}

	if n := d.NumTryNotes(); n > 0 {
		b.WriteString("  try notes:\n")
		for i := 0; i < n; i++ {
			tn := d.TryNoteAt(i)
			fmt.Fprintf(&b, "    %s depth %d [%d, %d)\n", tn.Kind, tn.StackDepth, tn.Start, tn.Start+tn.Length)
		}
	}

	if n := d.NumScopeNotes(); n > 0 {
		b.WriteString("  scope notes:\n")
		for i := 0; i < n; i++ {
			sn := d.ScopeNoteAt(i)
			parent := "-"
			if sn.Parent != scriptdata.NoParent {
				parent = fmt.Sprintf("#%d", sn.Parent)
			}
			fmt.Fprintf(&b, "    #%d thing %d [%d, %d) parent %s\n", i, sn.Index, sn.Start, sn.Start+sn.Length, parent)
		}
	}

	if offs := d.ResumeOffsets(); len(offs) > 0 {
		parts := make([]string, len(offs))
		for i, o := range offs {
			parts[i] = fmt.Sprint(o)
		}
		fmt.Fprintf(&b, "  resume offsets: %s\n", strings.Join(parts, ", "))
	}

	if dump {
		b.WriteString("  data:\n")
		for _, line := range strings.Split(strings.TrimRight(hex.Dump(d.Bytes()), "\n"), "\n") {
			fmt.Fprintf(&b, "    %s\n", line)
		}
	}

	return b.String()
}
