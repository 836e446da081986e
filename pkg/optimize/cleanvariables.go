package optimize

import (
	"github.com/raymyers/ralph-cc/pkg/mtac"
	"github.com/raymyers/ralph-cc/pkg/types"
)

// CleanVariables drops every context-declared variable no longer mentioned
// by any statement in the function, the final sweep after the propagation
// and dead-code passes have had a chance to eliminate everything that used
// it (spec §4.3). Parameters are never removed: their slot is part of the
// calling convention regardless of use.
var CleanVariables = FunctionPass{
	Name: "clean variables",
	Kind: FunctionKind,
	Run: func(f *mtac.Function) bool {
		params := map[*types.Variable]bool{}
		for _, p := range f.Params {
			params[p.Var] = true
		}

		used := map[*types.Variable]bool{}
		for _, b := range f.Blocks {
			for _, s := range b.Stmts {
				markUsed(s, used)
			}
		}

		changed := false
		for _, v := range f.Context.Variables() {
			if params[v] || used[v] {
				continue
			}
			f.Context.Remove(v)
			changed = true
		}
		return changed
	},
}

func markUsed(s mtac.Statement, used map[*types.Variable]bool) {
	mark := func(a mtac.Arg) {
		if v, ok := mtac.AsVariable(a); ok {
			used[v] = true
		}
	}
	switch st := s.(type) {
	case mtac.Quadruple:
		mark(st.Arg1)
		mark(st.Arg2)
		if st.Result != nil {
			used[st.Result] = true
		}
	case mtac.If:
		mark(st.Arg1)
		mark(st.Arg2)
	case mtac.Param:
		mark(st.Value)
	case mtac.Call:
		if st.Return1 != nil {
			used[st.Return1] = true
		}
		if st.Return2 != nil {
			used[st.Return2] = true
		}
	case mtac.Return:
		for _, v := range st.Values {
			mark(v)
		}
	}
}
