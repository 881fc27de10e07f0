package mir

import (
	"fmt"
	"strconv"
	"strings"
)

// Print renders the MIR in a compact deterministic textual form for the
// `mir` subcommand.
func Print(p *Program) string {
	var sb strings.Builder
	for i := range p.Functions {
		printFunc(&sb, &p.Functions[i])
		sb.WriteByte('\n')
	}
	return sb.String()
}

func printFunc(sb *strings.Builder, fn *Func) {
	params := make([]string, 0, len(fn.Params))
	for _, param := range fn.Params {
		params = append(params, fmt.Sprintf("%s: %s", param.Name, param.Type.String()))
	}
	fmt.Fprintf(sb, "fn %s(%s) -> %s", fn.Name, strings.Join(params, ", "), fn.ReturnType.String())
	if len(fn.Effects) > 0 {
		fmt.Fprintf(sb, " !{%s}", strings.Join(fn.Effects, ", "))
	}
	if len(fn.Blocks) == 0 {
		sb.WriteString(" (extern)\n")
		return
	}
	sb.WriteString(" {\n")

	for li, local := range fn.Locals {
		fmt.Fprintf(sb, "  local %%%d %s: %s\n", li, local.Name, local.Type.String())
	}
	for bi := range fn.Blocks {
		block := &fn.Blocks[bi]
		fmt.Fprintf(sb, "%s:\n", block.Label)
		for ii := range block.Instrs {
			instr := &block.Instrs[ii]
			if instr.Kind == InstrAssign {
				fmt.Fprintf(sb, "  %%%d = %s\n", instr.Dst, formatRvalue(&instr.Rvalue))
			} else {
				fmt.Fprintf(sb, "  eval %s\n", formatRvalue(&instr.Rvalue))
			}
		}
		fmt.Fprintf(sb, "  %s\n", formatTerm(fn, &block.Term))
	}
	sb.WriteString("}\n")
}

func formatOperand(op Operand) string {
	switch op.Kind {
	case OperandConstInt:
		return strconv.FormatInt(op.Int, 10)
	case OperandConstBool:
		if op.Bool {
			return "true"
		}
		return "false"
	case OperandConstText:
		return strconv.Quote(op.Text)
	case OperandConstUnit:
		return "unit"
	default:
		return "%" + strconv.Itoa(int(op.Local))
	}
}

func formatRvalue(rv *Rvalue) string {
	switch rv.Kind {
	case RvUse:
		return formatOperand(rv.Operand)
	case RvBinary:
		return fmt.Sprintf("%s %s %s", formatOperand(rv.Left), rv.Op.String(), formatOperand(rv.Right))
	case RvCall:
		args := make([]string, 0, len(rv.Args))
		for _, arg := range rv.Args {
			args = append(args, formatOperand(arg))
		}
		return fmt.Sprintf("call %s(%s)", rv.Callee, strings.Join(args, ", "))
	case RvRecordNew:
		fields := make([]string, 0, len(rv.Fields))
		for _, field := range rv.Fields {
			fields = append(fields, formatOperand(field))
		}
		return fmt.Sprintf("record %s { %s }", rv.TypeName, strings.Join(fields, ", "))
	case RvEnumNew:
		if rv.Payload != nil {
			return fmt.Sprintf("enum %s::%s#%d(%s)", rv.EnumName, rv.Variant, rv.Tag, formatOperand(*rv.Payload))
		}
		return fmt.Sprintf("enum %s::%s#%d", rv.EnumName, rv.Variant, rv.Tag)
	case RvFieldLoad:
		return fmt.Sprintf("field %s.%d", formatOperand(rv.Operand), rv.FieldIndex)
	case RvEnumTag:
		return fmt.Sprintf("tag %s", formatOperand(rv.Operand))
	case RvEnumPayload:
		return fmt.Sprintf("payload %s: %s", formatOperand(rv.Operand), rv.PayloadType.String())
	}
	return "?"
}

func formatTerm(fn *Func, term *Terminator) string {
	switch term.Kind {
	case TermReturn:
		if term.Value != nil {
			return "return " + formatOperand(*term.Value)
		}
		return "return default"
	case TermGoto:
		return "jump " + fn.Blocks[term.Target].Label
	case TermIf:
		return fmt.Sprintf("branch %s %s %s",
			formatOperand(term.Cond), fn.Blocks[term.Then].Label, fn.Blocks[term.Else].Label)
	}
	return "<missing terminator>"
}
