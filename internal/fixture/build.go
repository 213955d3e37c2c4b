package fixture

import (
	"encoding/hex"

	"github.com/wippyai/stencil/emitter"
	"github.com/wippyai/stencil/scriptdata"
)

// Build replays the fixture through the emitter API. Every context is
// complete on return. The fixture must have passed Validate.
func (f *File) Build() *emitter.Compilation {
	comp := emitter.NewCompilation()

	scopes := make(map[string]emitter.ScopeIndex, len(f.Scopes))
	for _, s := range f.Scopes {
		kind, _ := emitter.ParseScopeKind(s.Kind)
		enclosing := emitter.NoScope
		if s.Enclosing != "" {
			enclosing = scopes[s.Enclosing]
		}
		scopes[s.Name] = comp.AddScope(emitter.ScopeData{
			Kind:           kind,
			Enclosing:      enclosing,
			HasEnvironment: s.Environment,
			FixedSlots:     s.Slots,
		})
	}

	templates := make(map[string]emitter.TemplateIndex, len(f.Templates))
	for _, t := range f.Templates {
		templates[t.Name] = comp.AddTemplate(emitter.TemplateData{Raw: t.Raw, Cooked: t.Cooked})
	}

	contexts := make([]*emitter.Context, len(f.Scripts))
	functions := make(map[string]*emitter.FunctionBox)
	for i, s := range f.Scripts {
		if s.Function == nil {
			contexts[i] = comp.NewContext(nil)
			contexts[i].SetName(s.Name)
		}
	}
	for i, s := range f.Scripts {
		if s.Function != nil {
			fn := comp.AddFunction(s.Name, s.Function.Length, s.Function.NamedLambda)
			functions[s.Name] = fn
			contexts[i] = comp.NewContext(fn)
		}
	}

	for i, s := range f.Scripts {
		emit(contexts[i], s, scopes, templates, functions)
	}
	return comp
}

func emit(ctx *emitter.Context, s Script, scopes map[string]emitter.ScopeIndex,
	templates map[string]emitter.TemplateIndex, functions map[string]*emitter.FunctionBox) {
	code, _ := hex.DecodeString(s.Code)
	notes, _ := hex.DecodeString(s.Notes)

	ctx.SetPosition(s.Line, s.Column)
	ctx.Shared.Strict = s.Strict
	ctx.Shared.BindingsAccessedDynamically = s.BindingsAccessedDynamically
	ctx.Shared.IsEvalContext = s.Eval
	ctx.Shared.IsModuleContext = s.Module
	ctx.Shared.HasModuleGoal = s.ModuleGoal

	if s.OuterScope != "" {
		ctx.SetOutermostScope(scopes[s.OuterScope])
	}
	for _, raw := range s.GCThings {
		ref, _ := parseThing(raw)
		switch ref.kind {
		case emitter.ThingScope:
			ctx.AppendScope(scopes[ref.name])
		case emitter.ThingTemplate:
			ctx.AppendTemplate(templates[ref.name])
		case emitter.ThingFunction:
			ctx.AppendFunction(functions[ref.name])
		}
	}
	if s.BodyScope != nil {
		ctx.SetBodyScope(uint32(*s.BodyScope))
	}

	ctx.Emit(code...)
	ctx.EmitNote(notes...)
	ctx.SetMainOffset(s.MainOffset)
	ctx.UpdateFixedSlots(s.FixedSlots)
	ctx.UpdateStackDepth(s.StackDepth)
	for i := uint32(0); i < s.ICEntries; i++ {
		ctx.AddICEntry()
	}
	for i := uint32(0); i < s.TypeSets; i++ {
		ctx.AddTypeSet()
	}
	for _, a := range s.Atoms {
		ctx.AddAtom(a)
	}
	for _, off := range s.ResumeOffsets {
		ctx.AddResumeOffset(off)
	}
	for _, tn := range s.TryNotes {
		kind, _ := scriptdata.ParseTryNoteKind(tn.Kind)
		ctx.AddTryNote(scriptdata.TryNote{
			Kind:       kind,
			StackDepth: tn.Depth,
			Start:      tn.Start,
			Length:     tn.Length,
		})
	}
	for _, sn := range s.ScopeNotes {
		parent := uint32(scriptdata.NoParent)
		if sn.Parent >= 0 {
			parent = uint32(sn.Parent)
		}
		ctx.AddScopeNote(sn.Thing, sn.Start, sn.Length, parent)
	}

	ctx.Complete()
}
