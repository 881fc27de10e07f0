package llvm

import (
	"fmt"
	"strings"

	"kooix/internal/ast"
	"kooix/internal/mir"
)

// funcEmitter renders one function definition. Every local gets an
// alloca; block-level joins play the role of phi nodes. The function body
// is assembled through the chunked balanced join.
type funcEmitter struct {
	emitter *Emitter
	fn      *mir.Func
	chunks  Chunks
	nextTmp int
}

// localType maps a local slot's Kooix type to its stored LLVM type.
// Unit-typed slots store the i64 zero word.
func localType(ty ast.TypeRef) string {
	t := llvmType(ty)
	if t == "void" {
		return "i64"
	}
	return t
}

func (fe *funcEmitter) emit() string {
	fn := fe.fn

	params := ""
	for i, param := range fn.Params {
		if i > 0 {
			params += ", "
		}
		params += llvmType(param.Type) + " %" + sanitizeSymbol(param.Name)
	}
	fe.chunks.Line(fmt.Sprintf("define %s @%s(%s) {",
		llvmType(fn.ReturnType), sanitizeSymbol(fn.Name), params))

	for bi := range fn.Blocks {
		fe.emitBlock(bi)
	}

	fe.chunks.Line("}")
	return fe.chunks.Join()
}

func (fe *funcEmitter) line(s string) {
	fe.chunks.Line("  " + s)
}

func (fe *funcEmitter) fresh() string {
	name := "%t" + formatInt(int64(fe.nextTmp))
	fe.nextTmp++
	return name
}

func (fe *funcEmitter) localPtr(id mir.LocalID) string {
	return "%l" + formatInt(int64(id))
}

func (fe *funcEmitter) emitBlock(index int) {
	block := &fe.fn.Blocks[index]
	fe.chunks.Line(sanitizeLabel(block.Label) + ":")

	if index == 0 {
		fe.emitAllocas()
		if len(fe.fn.Effects) > 0 {
			fe.line("; effects: " + strings.Join(fe.fn.Effects, ", "))
		}
	}

	for ii := range block.Instrs {
		fe.emitInstr(&block.Instrs[ii])
	}
	fe.emitTerm(&block.Term)
}

func (fe *funcEmitter) emitAllocas() {
	for id, local := range fe.fn.Locals {
		fe.line(fmt.Sprintf("%s = alloca %s", fe.localPtr(mir.LocalID(id)), localType(local.Type))) // #nosec G115
	}
	for _, param := range fe.fn.Params {
		ty := llvmType(param.Type)
		fe.line(fmt.Sprintf("store %s %%%s, %s* %s",
			ty, sanitizeSymbol(param.Name), ty, fe.localPtr(param.Local)))
	}
}

// operand renders an operand as an SSA value, loading locals from their
// slots.
func (fe *funcEmitter) operand(op mir.Operand) (value, ty string) {
	switch op.Kind {
	case mir.OperandConstInt:
		return formatInt(op.Int), "i64"
	case mir.OperandConstBool:
		if op.Bool {
			return "1", "i1"
		}
		return "0", "i1"
	case mir.OperandConstText:
		return fe.emitter.stringConstant(op.Text), "i8*"
	case mir.OperandConstUnit:
		return "0", "i64"
	default:
		slotType := localType(fe.fn.Locals[op.Local].Type)
		tmp := fe.fresh()
		fe.line(fmt.Sprintf("%s = load %s, %s* %s", tmp, slotType, slotType, fe.localPtr(op.Local)))
		return tmp, slotType
	}
}

// toWord widens a value to the i64 payload word used at value boundaries
// (enum payloads, record fields).
func (fe *funcEmitter) toWord(value, ty string) string {
	switch ty {
	case "i64":
		return value
	case "i1":
		tmp := fe.fresh()
		fe.line(fmt.Sprintf("%s = zext i1 %s to i64", tmp, value))
		return tmp
	default: // i8*
		tmp := fe.fresh()
		fe.line(fmt.Sprintf("%s = ptrtoint i8* %s to i64", tmp, value))
		return tmp
	}
}

// fromWord narrows an i64 word back to the target type.
func (fe *funcEmitter) fromWord(word, targetType string) string {
	switch targetType {
	case "i64":
		return word
	case "i1":
		tmp := fe.fresh()
		fe.line(fmt.Sprintf("%s = trunc i64 %s to i1", tmp, word))
		return tmp
	default:
		tmp := fe.fresh()
		fe.line(fmt.Sprintf("%s = inttoptr i64 %s to i8*", tmp, word))
		return tmp
	}
}

// convert coerces a value between LLVM types through the word form.
func (fe *funcEmitter) convert(value, from, to string) string {
	if from == to {
		return value
	}
	return fe.fromWord(fe.toWord(value, from), to)
}

func (fe *funcEmitter) emitInstr(instr *mir.Instr) {
	if instr.Kind == mir.InstrEval {
		fe.emitRvalue(&instr.Rvalue, "")
		return
	}

	dstType := localType(fe.fn.Locals[instr.Dst].Type)
	value := fe.emitRvalue(&instr.Rvalue, dstType)
	if value == "" {
		return
	}
	fe.line(fmt.Sprintf("store %s %s, %s* %s", dstType, value, dstType, fe.localPtr(instr.Dst)))
}

// emitRvalue renders an rvalue; expected is the destination LLVM type
// ("" when the result is discarded). Returns the SSA value or "".
func (fe *funcEmitter) emitRvalue(rv *mir.Rvalue, expected string) string {
	switch rv.Kind {
	case mir.RvUse:
		value, ty := fe.operand(rv.Operand)
		if expected == "" {
			return value
		}
		return fe.convert(value, ty, expected)

	case mir.RvBinary:
		left, leftType := fe.operand(rv.Left)
		right, rightType := fe.operand(rv.Right)
		right = fe.convert(right, rightType, leftType)
		tmp := fe.fresh()
		switch rv.Op {
		case ast.BinAdd:
			fe.line(fmt.Sprintf("%s = add i64 %s, %s", tmp, left, right))
		case ast.BinEq:
			fe.line(fmt.Sprintf("%s = icmp eq %s %s, %s", tmp, leftType, left, right))
		default:
			fe.line(fmt.Sprintf("%s = icmp ne %s %s, %s", tmp, leftType, left, right))
		}
		return tmp

	case mir.RvCall:
		return fe.emitCall(rv, expected)

	case mir.RvRecordNew:
		ptr := fe.fresh()
		fe.line(fmt.Sprintf("%s = call i8* @malloc(i64 %d)", ptr, len(rv.Fields)*8))
		words := fe.fresh()
		fe.line(fmt.Sprintf("%s = bitcast i8* %s to i64*", words, ptr))
		for i, field := range rv.Fields {
			value, ty := fe.operand(field)
			word := fe.toWord(value, ty)
			addr := fe.fresh()
			fe.line(fmt.Sprintf("%s = getelementptr i64, i64* %s, i64 %d", addr, words, i))
			fe.line(fmt.Sprintf("store i64 %s, i64* %s", word, addr))
		}
		return ptr

	case mir.RvEnumNew:
		ptr := fe.fresh()
		fe.line(fmt.Sprintf("%s = call i8* @malloc(i64 16)", ptr))
		fe.line(fmt.Sprintf("store i8 %d, i8* %s", rv.Tag, ptr))
		if rv.Payload != nil {
			value, ty := fe.operand(*rv.Payload)
			word := fe.toWord(value, ty)
			addr := fe.fresh()
			fe.line(fmt.Sprintf("%s = getelementptr i8, i8* %s, i64 8", addr, ptr))
			cast := fe.fresh()
			fe.line(fmt.Sprintf("%s = bitcast i8* %s to i64*", cast, addr))
			fe.line(fmt.Sprintf("store i64 %s, i64* %s", word, cast))
		}
		return ptr

	case mir.RvFieldLoad:
		base, baseType := fe.operand(rv.Operand)
		base = fe.convert(base, baseType, "i8*")
		words := fe.fresh()
		fe.line(fmt.Sprintf("%s = bitcast i8* %s to i64*", words, base))
		addr := fe.fresh()
		fe.line(fmt.Sprintf("%s = getelementptr i64, i64* %s, i64 %d", addr, words, rv.FieldIndex))
		word := fe.fresh()
		fe.line(fmt.Sprintf("%s = load i64, i64* %s", word, addr))
		if expected == "" {
			return word
		}
		return fe.fromWord(word, expected)

	case mir.RvEnumTag:
		base, baseType := fe.operand(rv.Operand)
		base = fe.convert(base, baseType, "i8*")
		tag := fe.fresh()
		fe.line(fmt.Sprintf("%s = load i8, i8* %s", tag, base))
		wide := fe.fresh()
		fe.line(fmt.Sprintf("%s = zext i8 %s to i64", wide, tag))
		return wide

	case mir.RvEnumPayload:
		base, baseType := fe.operand(rv.Operand)
		base = fe.convert(base, baseType, "i8*")
		addr := fe.fresh()
		fe.line(fmt.Sprintf("%s = getelementptr i8, i8* %s, i64 8", addr, base))
		cast := fe.fresh()
		fe.line(fmt.Sprintf("%s = bitcast i8* %s to i64*", cast, addr))
		word := fe.fresh()
		fe.line(fmt.Sprintf("%s = load i64, i64* %s", word, cast))
		target := expected
		if target == "" {
			target = localType(rv.PayloadType)
		}
		return fe.fromWord(word, target)
	}
	return ""
}

func (fe *funcEmitter) emitCall(rv *mir.Rvalue, expected string) string {
	callee, known := fe.emitter.funcs[rv.Callee]

	args := ""
	for i, arg := range rv.Args {
		if i > 0 {
			args += ", "
		}
		value, ty := fe.operand(arg)
		paramType := ty
		if known && i < len(callee.Params) {
			paramType = llvmType(callee.Params[i].Type)
		}
		args += paramType + " " + fe.convert(value, ty, paramType)
	}

	returnType := "i64"
	if known {
		returnType = llvmType(callee.ReturnType)
	}

	if returnType == "void" {
		fe.line(fmt.Sprintf("call void @%s(%s)", sanitizeSymbol(rv.Callee), args))
		return ""
	}

	tmp := fe.fresh()
	fe.line(fmt.Sprintf("%s = call %s @%s(%s)", tmp, returnType, sanitizeSymbol(rv.Callee), args))
	if expected == "" {
		return tmp
	}
	return fe.convert(tmp, returnType, expected)
}

func (fe *funcEmitter) emitTerm(term *mir.Terminator) {
	switch term.Kind {
	case mir.TermReturn:
		returnType := llvmType(fe.fn.ReturnType)
		if returnType == "void" {
			fe.line("ret void")
			return
		}
		if term.Value == nil {
			fe.line(returnDefault(returnType))
			return
		}
		value, ty := fe.operand(*term.Value)
		fe.line(fmt.Sprintf("ret %s %s", returnType, fe.convert(value, ty, returnType)))

	case mir.TermGoto:
		fe.line("br label %" + sanitizeLabel(fe.fn.Blocks[term.Target].Label))

	case mir.TermIf:
		cond, condType := fe.operand(term.Cond)
		cond = fe.convert(cond, condType, "i1")
		fe.line(fmt.Sprintf("br i1 %s, label %%%s, label %%%s",
			cond,
			sanitizeLabel(fe.fn.Blocks[term.Then].Label),
			sanitizeLabel(fe.fn.Blocks[term.Else].Label)))
	}
}
