package emitter

import (
	"fmt"
	"math"
)

// ScopeKind is the kind of a lexical scope.
type ScopeKind uint8

const (
	ScopeFunction ScopeKind = iota
	ScopeFunctionBodyVar
	ScopeLexical
	ScopeCatch
	ScopeWith
	ScopeNamedLambda
	ScopeStrictNamedLambda
	ScopeEval
	ScopeStrictEval
	ScopeGlobal
	ScopeNonSyntactic
	ScopeModule
)

var scopeKindNames = [...]string{
	ScopeFunction:          "function",
	ScopeFunctionBodyVar:   "function-body-var",
	ScopeLexical:           "lexical",
	ScopeCatch:             "catch",
	ScopeWith:              "with",
	ScopeNamedLambda:       "named-lambda",
	ScopeStrictNamedLambda: "strict-named-lambda",
	ScopeEval:              "eval",
	ScopeStrictEval:        "strict-eval",
	ScopeGlobal:            "global",
	ScopeNonSyntactic:      "non-syntactic",
	ScopeModule:            "module",
}

func (k ScopeKind) String() string {
	if int(k) < len(scopeKindNames) {
		return scopeKindNames[k]
	}
	return fmt.Sprintf("scope(%d)", uint8(k))
}

// IsNamedLambda reports whether k is the scope holding a named lambda's
// self-reference binding.
func (k ScopeKind) IsNamedLambda() bool {
	return k == ScopeNamedLambda || k == ScopeStrictNamedLambda
}

// ParseScopeKind is the inverse of ScopeKind.String.
func ParseScopeKind(s string) (ScopeKind, bool) {
	for i, name := range scopeKindNames {
		if name == s {
			return ScopeKind(i), true
		}
	}
	return 0, false
}

// ScopeIndex is a position in a compilation's scope arena.
type ScopeIndex uint32

// NoScope terminates a scope chain.
const NoScope ScopeIndex = math.MaxUint32

// ScopeData describes one scope.
type ScopeData struct {
	Kind           ScopeKind
	Enclosing      ScopeIndex
	HasEnvironment bool
	FixedSlots     uint32
}
