package ltac

import (
	"fmt"
	"strings"
)

// Print renders a function's LTAC in a flat, debugger-friendly form, used by
// the -dltac CLI flag. Mirrors pkg/mtac's Print: one instruction per line,
// labels as bare headers since LTAC carries no basic-block structure of its
// own.
func Print(f *Function) string {
	var b strings.Builder
	fmt.Fprintf(&b, "function %s {\n", f.Name)
	for _, inst := range f.Code {
		if lm, ok := inst.(LabelMark); ok {
			fmt.Fprintf(&b, "L%d:\n", lm.Lbl)
			continue
		}
		fmt.Fprintf(&b, "    %s\n", instString(inst))
	}
	b.WriteString("}\n")
	return b.String()
}

func instString(inst Instruction) string {
	switch in := inst.(type) {
	case Insn:
		if in.Arg2 == nil {
			return fmt.Sprintf("%s %s", in.Op, argString(in.Arg1))
		}
		if in.Arg3 == nil {
			return fmt.Sprintf("%s %s, %s", in.Op, argString(in.Arg1), argString(in.Arg2))
		}
		return fmt.Sprintf("%s %s, %s, %s", in.Op, argString(in.Arg1), argString(in.Arg2), argString(in.Arg3))
	case Jump:
		return fmt.Sprintf("jmp L%d", in.Target)
	case CondJump:
		return fmt.Sprintf("j%s L%d", in.Cond, in.Target)
	case JumpTable:
		targets := make([]string, len(in.Targets))
		for i, t := range in.Targets {
			targets[i] = fmt.Sprintf("L%d", t)
		}
		return fmt.Sprintf("jmptab %s, [%s]", argString(in.Index), strings.Join(targets, ", "))
	case Enter:
		return fmt.Sprintf("enter %d", in.FrameSize)
	case Leave:
		return "leave"
	case Push:
		return "push " + argString(in.Arg)
	case Pop:
		return "pop " + argString(in.Arg)
	case Call:
		return fmt.Sprintf("call %s, %d", funRefString(in.Callee), in.ArgBytes)
	case Ret:
		return "ret"
	case FreeStack:
		return fmt.Sprintf("free_stack %d", in.Bytes)
	case Nop:
		return "nop"
	}
	return "?"
}

func funRefString(fr FunRef) string {
	switch f := fr.(type) {
	case FunSymbol:
		return f.Name
	case FunReg:
		return argString(f.Reg)
	}
	return "?"
}

func argString(a Arg) string {
	if a == nil {
		return "_"
	}
	switch v := a.(type) {
	case HardReg:
		return v.String()
	case PseudoReg:
		if v.Hint != nil {
			return fmt.Sprintf("%%%d(%s)", v.ID, v.Hint)
		}
		return fmt.Sprintf("%%%d", v.ID)
	case Address:
		return addressString(v)
	case IntImmediate:
		return fmt.Sprintf("%d", v.Value)
	case FloatImmediate:
		return fmt.Sprintf("%g", v.Value)
	case LabelArg:
		return v.Name
	}
	return "?"
}

func addressString(a Address) string {
	if a.AbsLabel != "" {
		if a.Disp != 0 {
			return fmt.Sprintf("[%s+%d]", a.AbsLabel, a.Disp)
		}
		return fmt.Sprintf("[%s]", a.AbsLabel)
	}
	var b strings.Builder
	b.WriteByte('[')
	b.WriteString(argString(a.Base))
	if a.Index != nil && a.Scale != 0 {
		fmt.Fprintf(&b, "+%s*%d", argString(a.Index), a.Scale)
	}
	if a.Disp != 0 {
		fmt.Fprintf(&b, "+%d", a.Disp)
	}
	b.WriteByte(']')
	return b.String()
}
