package fixture

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/wippyai/stencil/emitter"
	"github.com/wippyai/stencil/errors"
	"github.com/wippyai/stencil/scriptdata"
)

type thingRef struct {
	kind emitter.ThingKind
	name string
}

func parseThing(s string) (thingRef, bool) {
	kind, name, ok := strings.Cut(s, ":")
	if !ok || name == "" {
		return thingRef{}, false
	}
	k, ok := emitter.ParseThingKind(kind)
	if !ok {
		return thingRef{}, false
	}
	return thingRef{kind: k, name: name}, true
}

type validator struct {
	result     *multierror.Error
	scopeKinds map[string]emitter.ScopeKind
}

func (v *validator) fail(path []string, format string, args ...any) {
	v.result = multierror.Append(v.result,
		errors.InvalidData(errors.PhaseLoad, path, fmt.Sprintf(format, args...)))
}

// Validate reports every structural problem in the fixture.
func (f *File) Validate() error {
	v := &validator{scopeKinds: make(map[string]emitter.ScopeKind)}

	scopes := make(map[string]bool)
	for i, s := range f.Scopes {
		path := []string{"scopes", strconv.Itoa(i)}
		if s.Name == "" {
			v.fail(path, "scope without name")
		} else if scopes[s.Name] {
			v.fail(path, "duplicate scope %q", s.Name)
		}
		if kind, ok := emitter.ParseScopeKind(s.Kind); ok {
			v.scopeKinds[s.Name] = kind
		} else {
			v.fail(path, "unknown scope kind %q", s.Kind)
		}
		if s.Enclosing != "" && !scopes[s.Enclosing] {
			v.fail(path, "enclosing scope %q is not defined before %q", s.Enclosing, s.Name)
		}
		scopes[s.Name] = true
	}

	templates := make(map[string]bool)
	for i, t := range f.Templates {
		path := []string{"templates", strconv.Itoa(i)}
		if t.Name == "" {
			v.fail(path, "template without name")
		} else if templates[t.Name] {
			v.fail(path, "duplicate template %q", t.Name)
		}
		templates[t.Name] = true
	}

	functions := make(map[string]bool)
	names := make(map[string]bool)
	top := 0
	for i, s := range f.Scripts {
		path := []string{"scripts", strconv.Itoa(i)}
		if s.Name == "" {
			v.fail(path, "script without name")
		} else if names[s.Name] {
			v.fail(path, "duplicate script %q", s.Name)
		}
		names[s.Name] = true
		if s.Function == nil {
			top++
		} else {
			functions[s.Name] = true
		}
	}
	if top != 1 {
		v.fail([]string{"scripts"}, "want exactly one top-level script, got %d", top)
	}

	refs := make(map[string]int)
	for i, s := range f.Scripts {
		v.script([]string{"scripts", strconv.Itoa(i)}, s, scopes, templates, functions, refs)
	}
	for i, s := range f.Scripts {
		if s.Function != nil && refs[s.Name] != 1 {
			v.fail([]string{"scripts", strconv.Itoa(i)},
				"function %q referenced %d times, want 1", s.Name, refs[s.Name])
		}
	}
	if top == 1 && len(f.Scripts) > 0 {
		v.reachable(f)
	}

	return v.result.ErrorOrNil()
}

func (v *validator) script(path []string, s Script, scopes, templates, functions map[string]bool, refs map[string]int) {
	at := func(field string, rest ...string) []string {
		return append(append(append([]string(nil), path...), field), rest...)
	}

	code, err := hex.DecodeString(s.Code)
	if err != nil {
		v.fail(at("code"), "invalid hex: %v", err)
	}
	if _, err := hex.DecodeString(s.Notes); err != nil {
		v.fail(at("notes"), "invalid hex: %v", err)
	}
	n := uint64(len(code))

	if uint64(s.MainOffset) > n {
		v.fail(at("main_offset"), "main offset %d past end of bytecode (%d bytes)", s.MainOffset, n)
	}

	for i, off := range s.ResumeOffsets {
		if uint64(off) >= n {
			v.fail(at("resume_offsets", strconv.Itoa(i)), "resume offset %d outside bytecode", off)
		}
	}

	things := make([]thingRef, len(s.GCThings))
	for i, raw := range s.GCThings {
		ref, ok := parseThing(raw)
		if !ok {
			v.fail(at("gcthings", strconv.Itoa(i)), "malformed gc-thing %q, want kind:name", raw)
			continue
		}
		things[i] = ref
		var known bool
		switch ref.kind {
		case emitter.ThingScope:
			known = scopes[ref.name]
		case emitter.ThingTemplate:
			known = templates[ref.name]
		case emitter.ThingFunction:
			known = functions[ref.name]
			refs[ref.name]++
		}
		if !known {
			v.fail(at("gcthings", strconv.Itoa(i)), "undefined %s %q", ref.kind, ref.name)
		}
	}

	isScope := func(idx int) bool {
		return idx >= 0 && idx < len(things) && things[idx].kind == emitter.ThingScope
	}
	if s.BodyScope != nil && !isScope(*s.BodyScope) {
		v.fail(at("body_scope"), "gc-thing %d is not a scope", *s.BodyScope)
	}
	if s.OuterScope != "" && !scopes[s.OuterScope] {
		v.fail(at("outer_scope"), "undefined scope %q", s.OuterScope)
	}

	v.outermost(path, s, things)

	for i, tn := range s.TryNotes {
		if _, ok := scriptdata.ParseTryNoteKind(tn.Kind); !ok {
			v.fail(at("try_notes", strconv.Itoa(i)), "unknown try note kind %q", tn.Kind)
		}
		if uint64(tn.Start)+uint64(tn.Length) > n {
			v.fail(at("try_notes", strconv.Itoa(i)), "range [%d, %d) outside bytecode", tn.Start, uint64(tn.Start)+uint64(tn.Length))
		}
	}
	for i, sn := range s.ScopeNotes {
		if !isScope(int(sn.Thing)) {
			v.fail(at("scope_notes", strconv.Itoa(i)), "gc-thing %d is not a scope", sn.Thing)
		}
		if uint64(sn.Start)+uint64(sn.Length) > n {
			v.fail(at("scope_notes", strconv.Itoa(i)), "range [%d, %d) outside bytecode", sn.Start, uint64(sn.Start)+uint64(sn.Length))
		}
		if sn.Parent < -1 || sn.Parent >= i {
			v.fail(at("scope_notes", strconv.Itoa(i)), "parent %d must be -1 or an earlier note", sn.Parent)
		}
	}
}

// outermost checks that only named lambdas start in a named-lambda scope.
// The outermost scope is outer_scope if set, else the first scope gc-thing.
func (v *validator) outermost(path []string, s Script, things []thingRef) {
	field, name := []string{"outer_scope"}, s.OuterScope
	if name == "" {
		for i, t := range things {
			if t.kind == emitter.ThingScope {
				field, name = []string{"gcthings", strconv.Itoa(i)}, t.name
				break
			}
		}
	}
	kind, ok := v.scopeKinds[name]
	if !ok || !kind.IsNamedLambda() {
		return
	}
	if s.Function == nil || !s.Function.NamedLambda {
		v.fail(append(append([]string(nil), path...), field...),
			"outermost scope %q is a %s scope but %q is not a named lambda", name, kind, s.Name)
	}
}

// reachable checks that every function is nested, directly or not, in the
// top-level script.
func (v *validator) reachable(f *File) {
	byName := make(map[string]Script, len(f.Scripts))
	var top string
	for _, s := range f.Scripts {
		byName[s.Name] = s
		if s.Function == nil {
			top = s.Name
		}
	}

	seen := map[string]bool{top: true}
	stack := []string{top}
	for len(stack) > 0 {
		name := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, raw := range byName[name].GCThings {
			ref, ok := parseThing(raw)
			if !ok || ref.kind != emitter.ThingFunction || seen[ref.name] {
				continue
			}
			seen[ref.name] = true
			stack = append(stack, ref.name)
		}
	}

	for i, s := range f.Scripts {
		if !seen[s.Name] {
			v.fail([]string{"scripts", strconv.Itoa(i)}, "function %q is not reachable from %q", s.Name, top)
		}
	}
}
