// Package scriptdata packs a script's bytecode and side tables into one
// immutable, relocatable buffer.
//
// # Layout
//
// The buffer is a fixed header followed by each table, fixed-width tables
// first so every region starts 4-byte aligned without padding:
//
//	header          48 bytes
//	resume offsets  4  × n   (u32)
//	scope notes     16 × n   (index, start, length, parent)
//	try notes       16 × n   (kind, stack depth, start, length)
//	bytecode        code length bytes
//	source notes    note length bytes
//
// All integers are little-endian. The total size is the exact sum of the
// region sizes and is computed before the single allocation; New never
// resizes a buffer or exposes a partially written one.
//
// # Relocation
//
// The packed bytes contain no pointers. Bytes returns them and FromBytes
// reinterprets a copy made anywhere else, validating that the header's
// table sizes account for every byte.
package scriptdata
