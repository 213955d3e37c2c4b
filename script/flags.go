package script

import "strings"

// Flags is the set of boolean properties of a script.
type Flags uint16

const (
	FlagStrict Flags = 1 << iota
	FlagIsFunction
	FlagIsModule
	FlagIsForEval
	FlagHasNonSyntacticScope
	FlagNeedsHeapEnvironment
	FlagHasModuleGoal
	FlagHasInnerFunctions
	FlagBindingsAccessedDynamically
	FlagHasCallSiteObject
)

var flagNames = []struct {
	flag Flags
	name string
}{
	{FlagStrict, "strict"},
	{FlagIsFunction, "is-function"},
	{FlagIsModule, "is-module"},
	{FlagIsForEval, "is-for-eval"},
	{FlagHasNonSyntacticScope, "has-non-syntactic-scope"},
	{FlagNeedsHeapEnvironment, "needs-heap-environment"},
	{FlagHasModuleGoal, "has-module-goal"},
	{FlagHasInnerFunctions, "has-inner-functions"},
	{FlagBindingsAccessedDynamically, "bindings-accessed-dynamically"},
	{FlagHasCallSiteObject, "has-call-site-object"},
}

// Has reports whether every flag in mask is set.
func (f Flags) Has(mask Flags) bool {
	return f&mask == mask
}

func (f Flags) with(mask Flags, on bool) Flags {
	if on {
		return f | mask
	}
	return f
}

// Names returns the names of the set flags in declaration order.
func (f Flags) Names() []string {
	var names []string
	for _, fn := range flagNames {
		if f.Has(fn.flag) {
			names = append(names, fn.name)
		}
	}
	return names
}

func (f Flags) String() string {
	if f == 0 {
		return "none"
	}
	return strings.Join(f.Names(), "|")
}
