package mtac

import (
	"fmt"
	"strings"
)

// Print renders a function's MTAC in a flat, debugger-friendly form, used
// by the -dmtac CLI flag. Mirrors the teacher's pkg/rtl/printer.go
// convention of one instruction per line, block labels as headers.
func Print(f *Function) string {
	var b strings.Builder
	fmt.Fprintf(&b, "function %s {\n", f.Name)
	for _, blk := range f.Blocks {
		label := blk.Label
		if label == "" {
			label = fmt.Sprintf("B%d", blk.Index)
		}
		fmt.Fprintf(&b, "%s:\n", label)
		for _, s := range blk.Stmts {
			fmt.Fprintf(&b, "    %s\n", stmtString(s))
		}
	}
	b.WriteString("}\n")
	return b.String()
}

func stmtString(s Statement) string {
	switch st := s.(type) {
	case Quadruple:
		result := "_"
		if st.Result != nil {
			result = st.Result.Name
		}
		if st.Arg2 != nil {
			return fmt.Sprintf("%s %s %s, %s", result, st.Op, argString(st.Arg1), argString(st.Arg2))
		}
		return fmt.Sprintf("%s %s %s", result, st.Op, argString(st.Arg1))
	case If:
		kind := "if"
		if st.Negated {
			kind = "if_false"
		}
		return fmt.Sprintf("%s %s %s %s goto %s", kind, argString(st.Arg1), st.Op, argString(st.Arg2), st.Label)
	case Goto:
		return "goto " + st.Label
	case Param:
		suffix := ""
		if st.AddressTaken {
			suffix = " &"
		}
		return fmt.Sprintf("param %s%s", argString(st.Value), suffix)
	case Call:
		return fmt.Sprintf("call %s, %d", st.Callee, st.ArgBytes)
	case Return:
		parts := make([]string, len(st.Values))
		for i, v := range st.Values {
			parts[i] = argString(v)
		}
		return "return " + strings.Join(parts, ", ")
	case Label:
		return st.Name + ":"
	}
	return "?"
}

func argString(a Arg) string {
	if a == nil {
		return "_"
	}
	return a.String()
}
