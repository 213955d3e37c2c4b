// Package fixture describes the emitter output of one compilation in TOML
// and rebuilds it as an emitter.Compilation.
//
//	[[scopes]]
//	name = "global"
//	kind = "global"
//
//	[[scripts]]
//	name = "main"
//	code = "01020304"
//	atoms = ["x"]
//	gcthings = ["scope:global", "function:inner"]
//
//	[[scripts]]
//	name = "inner"
//	code = "00"
//	[scripts.function]
//	length = 1
//
// Exactly one script has no function table; it is the top-level script.
// Every function script must be referenced by exactly one gcthings entry.
package fixture

import (
	"os"

	"github.com/BurntSushi/toml"

	"github.com/wippyai/stencil/errors"
)

// File is a decoded fixture.
type File struct {
	Scopes    []Scope    `toml:"scopes"`
	Templates []Template `toml:"templates"`
	Scripts   []Script   `toml:"scripts"`
}

// Scope is one entry of the scope arena. Enclosing names an earlier scope.
type Scope struct {
	Name        string `toml:"name"`
	Kind        string `toml:"kind"`
	Enclosing   string `toml:"enclosing"`
	Environment bool   `toml:"environment"`
	Slots       uint32 `toml:"slots"`
}

// Template is a call-site object.
type Template struct {
	Name   string   `toml:"name"`
	Raw    []string `toml:"raw"`
	Cooked []string `toml:"cooked"`
}

// Script is the emission output of one script. Code and Notes are hex.
type Script struct {
	Name       string `toml:"name"`
	Line       uint32 `toml:"line"`
	Column     uint32 `toml:"column"`
	Code       string `toml:"code"`
	Notes      string `toml:"notes"`
	MainOffset uint32 `toml:"main_offset"`
	FixedSlots uint32 `toml:"fixed_slots"`
	StackDepth uint32 `toml:"stack_depth"`
	ICEntries  uint32 `toml:"ic_entries"`
	TypeSets   uint32 `toml:"type_sets"`

	Strict                      bool `toml:"strict"`
	BindingsAccessedDynamically bool `toml:"bindings_accessed_dynamically"`
	Eval                        bool `toml:"eval"`
	Module                      bool `toml:"module"`
	ModuleGoal                  bool `toml:"module_goal"`

	Atoms         []string `toml:"atoms"`
	ResumeOffsets []uint32 `toml:"resume_offsets"`
	GCThings      []string `toml:"gcthings"`

	// BodyScope is the gcthings index of the body scope.
	BodyScope *int `toml:"body_scope"`
	// OuterScope names the outermost scope when it is not the first scope
	// in gcthings.
	OuterScope string `toml:"outer_scope"`

	TryNotes   []TryNote   `toml:"try_notes"`
	ScopeNotes []ScopeNote `toml:"scope_notes"`
	Function   *Function   `toml:"function"`
}

type TryNote struct {
	Kind   string `toml:"kind"`
	Depth  uint32 `toml:"depth"`
	Start  uint32 `toml:"start"`
	Length uint32 `toml:"length"`
}

// ScopeNote refers to its scope by gcthings index. Parent is the index of
// the enclosing note, or -1.
type ScopeNote struct {
	Thing  uint32 `toml:"thing"`
	Start  uint32 `toml:"start"`
	Length uint32 `toml:"length"`
	Parent int    `toml:"parent"`
}

type Function struct {
	Length      uint16 `toml:"length"`
	NamedLambda bool   `toml:"named_lambda"`
}

// Load reads and validates a fixture file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.PhaseLoad, errors.KindNotFound).
			Cause(err).
			Detail("cannot read fixture %s", path).
			Build()
	}
	return Parse(data)
}

// Parse decodes and validates a fixture.
func Parse(data []byte) (*File, error) {
	var f File
	md, err := toml.Decode(string(data), &f)
	if err != nil {
		return nil, errors.Load("parse fixture", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, errors.New(errors.PhaseLoad, errors.KindInvalidInput).
			Value(undecoded).
			Detail("unknown key %s", undecoded[0]).
			Build()
	}
	if err := f.Validate(); err != nil {
		return nil, errors.Load("invalid fixture", err)
	}
	return &f, nil
}
