// Package emitter holds the state a bytecode emitter accumulates for one
// compilation: arenas of scopes, function boxes and template objects shared
// by every script, and a Context per script with its bytecode section, atom
// indices and GC-thing list.
//
// Scripts never point at each other directly. A GC-thing names an entry in
// one of the compilation arenas by kind and index, and the finalizer
// resolves those entries once the referenced objects can exist.
//
// A Context is written by a single emitter goroutine until Complete is
// called; afterwards it is read-only apart from the one-time transfer of its
// GC-thing list.
package emitter
