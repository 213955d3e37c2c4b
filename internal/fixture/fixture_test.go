package fixture

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/stencil/emitter"
	"github.com/wippyai/stencil/errors"
	"github.com/wippyai/stencil/scriptdata"
)

func TestLoad_Nested(t *testing.T) {
	f, err := Load(filepath.Join("testdata", "nested.toml"))
	require.NoError(t, err)
	require.Len(t, f.Scopes, 5)
	require.Len(t, f.Scripts, 3)
	assert.Equal(t, []string{"hello ", "\n"}, f.Templates[0].Cooked)

	comp := f.Build()
	assert.Equal(t, 5, comp.NumScopes())
	assert.Equal(t, 2, comp.NumFunctions())
	assert.Equal(t, 1, comp.NumTemplates())

	top := comp.TopLevel()
	require.NotNil(t, top)
	assert.True(t, top.Completed())
	assert.Equal(t, "main", top.Name())
	assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, top.Section().Code())
	assert.Equal(t, []byte{0xaa}, top.Section().Notes())
	assert.Equal(t, uint32(2), top.Section().NumICEntries())
	assert.Equal(t, 2, top.Atoms().Count())
	assert.True(t, top.Shared.HasInnerFunctions)
	assert.True(t, top.Shared.HasCallSiteObj)
	assert.Equal(t, []scriptdata.TryNote{
		{Kind: scriptdata.TryNoteCatch, StackDepth: 1, Start: 0, Length: 3},
	}, top.Section().TryNotes())

	outer := comp.Function(0)
	assert.Equal(t, "outer", outer.Name)
	assert.True(t, outer.NamedLambda)
	octx := outer.Context
	require.NotNil(t, octx)
	assert.Equal(t, uint32(3), octx.FirstLine())
	assert.Equal(t, uint32(9), octx.FirstColumn())
	assert.Equal(t, uint32(1), octx.MainOffset())
	assert.Equal(t, uint32(2), octx.MaxFixedSlots())
	assert.Equal(t, uint32(2), octx.MaxStackDepth())
	assert.Equal(t, 2, octx.Atoms().Count())
	assert.True(t, octx.Shared.Strict)

	body, ok := octx.BodyScope()
	require.True(t, ok)
	assert.Equal(t, emitter.ScopeFunction, body.Kind)
	outerScope, ok := octx.OutermostScope()
	require.True(t, ok)
	assert.Equal(t, emitter.ScopeNamedLambda, outerScope.Kind)
	assert.Equal(t, []scriptdata.ScopeNote{
		{Index: 2, Start: 1, Length: 3, Parent: scriptdata.NoParent},
	}, octx.Section().ScopeNotes())

	gen := comp.Function(1).Context
	assert.Equal(t, []uint32{2, 3}, gen.Section().ResumeOffsets())
	assert.Equal(t, uint32(1), gen.Section().NumTypeSets())
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name: "scopes",
			input: `
[[scopes]]
name = "a"
kind = "planet"
enclosing = "b"

[[scopes]]
name = "a"
kind = "global"

[[scripts]]
name = "main"
`,
			want: []string{
				`unknown scope kind "planet"`,
				`enclosing scope "b" is not defined before "a"`,
				`duplicate scope "a"`,
			},
		},
		{
			name: "top-level count",
			input: `
[[scripts]]
name = "f"
[scripts.function]
length = 0
`,
			want: []string{
				"want exactly one top-level script, got 0",
				`function "f" referenced 0 times, want 1`,
			},
		},
		{
			name: "script tables",
			input: `
[[scopes]]
name = "g"
kind = "global"

[[scripts]]
name = "main"
code = "0102"
notes = "zz"
main_offset = 3
resume_offsets = [2]
gcthings = ["scope:g", "template:none", "bogus"]
body_scope = 1

[[scripts.try_notes]]
kind = "retry"
start = 1
length = 2

[[scripts.scope_notes]]
thing = 1
start = 0
length = 1
parent = 0
`,
			want: []string{
				"notes: invalid hex",
				"main offset 3 past end of bytecode",
				"resume offset 2 outside bytecode",
				`undefined template "none"`,
				`malformed gc-thing "bogus"`,
				"body_scope: gc-thing 1 is not a scope",
				"scope_notes.0: gc-thing 1 is not a scope",
				`unknown try note kind "retry"`,
				"range [1, 3) outside bytecode",
				"parent 0 must be -1 or an earlier note",
			},
		},
		{
			name: "named lambda scope",
			input: `
[[scopes]]
name = "self"
kind = "named-lambda"
environment = true

[[scopes]]
name = "strict-self"
kind = "strict-named-lambda"

[[scripts]]
name = "main"
gcthings = ["scope:self", "function:f", "function:g"]

[[scripts]]
name = "f"
outer_scope = "strict-self"
[scripts.function]
length = 0

[[scripts]]
name = "g"
gcthings = ["scope:self"]
[scripts.function]
named_lambda = true
`,
			want: []string{
				`outermost scope "self" is a named-lambda scope but "main" is not a named lambda`,
				`outermost scope "strict-self" is a strict-named-lambda scope but "f" is not a named lambda`,
			},
		},
		{
			name: "function references",
			input: `
[[scripts]]
name = "main"
gcthings = ["function:f", "function:f", "function:ghost"]

[[scripts]]
name = "f"
[scripts.function]

[[scripts]]
name = "a"
gcthings = ["function:b"]
[scripts.function]

[[scripts]]
name = "b"
gcthings = ["function:a"]
[scripts.function]
`,
			want: []string{
				`undefined function "ghost"`,
				`function "f" referenced 2 times, want 1`,
				`function "a" is not reachable from "main"`,
				`function "b" is not reachable from "main"`,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input))
			require.Error(t, err)

			var merr *multierror.Error
			require.ErrorAs(t, err, &merr)
			for _, want := range tt.want {
				found := false
				for _, e := range merr.Errors {
					if strings.Contains(e.Error(), want) {
						found = true
						break
					}
				}
				assert.True(t, found, "missing error %q in %v", want, merr.Errors)
			}
			assert.Len(t, merr.Errors, len(tt.want))
		})
	}
}

func TestParse_Syntax(t *testing.T) {
	_, err := Parse([]byte("[[scripts]\n"))
	require.Error(t, err)
	var e *errors.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, errors.PhaseLoad, e.Phase)
}

func TestParse_UnknownKey(t *testing.T) {
	_, err := Parse([]byte("[[scripts]]\nname = \"main\"\nbytecode = \"00\"\n"))
	require.Error(t, err)
	var e *errors.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, errors.KindInvalidInput, e.Kind)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "none.toml"))
	require.Error(t, err)
	var e *errors.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, errors.KindNotFound, e.Kind)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
