// Package llvm converts MIR into LLVM IR text. Emission is deliberately
// textual so the only toolchain requirement at build time is llc plus a C
// compiler. Output is fully deterministic: functions, globals, and string
// literals emit in declaration / first-use order, and no step iterates a
// map without sorting.
package llvm

import (
	"fmt"
	"strconv"

	"kooix/internal/mir"
)

// Emitter converts one MIR program to IR text.
type Emitter struct {
	program *mir.Program
	funcs   map[string]*mir.Func

	strings     map[string]int
	stringOrder []string
}

// Emit renders the whole program.
func Emit(program *mir.Program) string {
	e := &Emitter{
		program: program,
		funcs:   make(map[string]*mir.Func, len(program.Functions)),
		strings: make(map[string]int),
	}
	for i := range program.Functions {
		fn := &program.Functions[i]
		if _, exists := e.funcs[fn.Name]; !exists {
			e.funcs[fn.Name] = fn
		}
	}
	e.collectStrings()

	var out Chunks
	out.Line("; ModuleID = 'kooix'")
	out.Line("source_filename = \"kooix\"")
	out.Line("")

	e.emitStringGlobals(&out)
	out.Line("declare i8* @malloc(i64)")
	out.Line("")

	for i := range program.Functions {
		fn := &program.Functions[i]
		if len(fn.Blocks) == 0 {
			out.Line(e.declareLine(fn))
		}
	}
	out.Line("")

	for i := range program.Functions {
		fn := &program.Functions[i]
		if len(fn.Blocks) == 0 {
			continue
		}
		fe := &funcEmitter{emitter: e, fn: fn}
		out.Append(fe.emit())
		out.Line("")
	}

	return out.Join()
}

// collectStrings interns every text literal in first-use order, scanning
// functions and instructions in declaration order.
func (e *Emitter) collectStrings() {
	intern := func(op mir.Operand) {
		if op.Kind == mir.OperandConstText {
			if _, exists := e.strings[op.Text]; !exists {
				e.strings[op.Text] = len(e.stringOrder)
				e.stringOrder = append(e.stringOrder, op.Text)
			}
		}
	}

	for i := range e.program.Functions {
		fn := &e.program.Functions[i]
		for bi := range fn.Blocks {
			block := &fn.Blocks[bi]
			for ii := range block.Instrs {
				for _, op := range rvalueOperandsForIntern(&block.Instrs[ii].Rvalue) {
					intern(op)
				}
			}
			if block.Term.Value != nil {
				intern(*block.Term.Value)
			}
			intern(block.Term.Cond)
		}
	}
}

func rvalueOperandsForIntern(rv *mir.Rvalue) []mir.Operand {
	switch rv.Kind {
	case mir.RvUse, mir.RvFieldLoad, mir.RvEnumTag, mir.RvEnumPayload:
		return []mir.Operand{rv.Operand}
	case mir.RvBinary:
		return []mir.Operand{rv.Left, rv.Right}
	case mir.RvCall:
		return rv.Args
	case mir.RvRecordNew:
		return rv.Fields
	case mir.RvEnumNew:
		if rv.Payload != nil {
			return []mir.Operand{*rv.Payload}
		}
	}
	return nil
}

func (e *Emitter) emitStringGlobals(out *Chunks) {
	for i, literal := range e.stringOrder {
		body, length := escapeIRString(literal)
		out.Line(fmt.Sprintf("@.str.%d = private unnamed_addr constant [%d x i8] c\"%s\"",
			i, length, body))
	}
	if len(e.stringOrder) > 0 {
		out.Line("")
	}
}

// stringConstant renders the inline getelementptr expression addressing
// an interned literal.
func (e *Emitter) stringConstant(literal string) string {
	index := e.strings[literal]
	length := len(literal) + 1
	return fmt.Sprintf(
		"getelementptr inbounds ([%d x i8], [%d x i8]* @.str.%d, i64 0, i64 0)",
		length, length, index)
}

// declareLine renders an extern declaration for a body-less function;
// host intrinsics surface this way.
func (e *Emitter) declareLine(fn *mir.Func) string {
	params := ""
	for i, param := range fn.Params {
		if i > 0 {
			params += ", "
		}
		params += llvmType(param.Type)
	}
	return fmt.Sprintf("declare %s @%s(%s)", llvmType(fn.ReturnType), sanitizeSymbol(fn.Name), params)
}

func returnDefault(returnType string) string {
	switch returnType {
	case "void":
		return "ret void"
	case "i64":
		return "ret i64 0"
	case "i1":
		return "ret i1 0"
	default:
		return "ret i8* null"
	}
}

func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}
