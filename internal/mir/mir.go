// Package mir defines the control-flow-graph form the code generators
// consume: per function, a sequence of typed basic blocks, each a list of
// straight-line instructions ending in exactly one terminator. Cross
// references (callees, blocks, locals) are stable indices, never owning
// pointers.
package mir

import (
	"kooix/internal/ast"
)

// LocalID indexes a function's Locals.
type LocalID uint32

// BlockID indexes a function's Blocks.
type BlockID uint32

// Program is the lowered module: functions in declaration order plus the
// record and enum layouts code generation needs.
type Program struct {
	Functions []Func
	Records   []RecordLayout
	Enums     []EnumLayout
}

// RecordLayout fixes a record's field order: field i lives at word
// offset i.
type RecordLayout struct {
	Name   string
	Fields []string
}

// EnumLayout fixes variant tags by declaration order.
type EnumLayout struct {
	Name     string
	Variants []VariantLayout
}

// VariantLayout is one enum variant's runtime shape.
type VariantLayout struct {
	Name       string
	HasPayload bool
}

// Func is one lowered function. Body-less declarations have no blocks and
// lower to extern declarations in the backend.
type Func struct {
	Name       string
	Params     []Param
	ReturnType ast.TypeRef
	Effects    []string
	Locals     []Local
	Blocks     []Block
}

// Param is a formal parameter and the local slot holding it.
type Param struct {
	Name  string
	Type  ast.TypeRef
	Local LocalID
}

// Local is one stack slot.
type Local struct {
	Name string // diagnostic aid; temporaries are named t<N>
	Type ast.TypeRef
}

// Block is a basic block: instructions plus exactly one terminator.
type Block struct {
	Label  string
	Instrs []Instr
	Term   Terminator
}

// InstrKind discriminates Instr.
type InstrKind uint8

const (
	// InstrAssign evaluates Rvalue into Dst.
	InstrAssign InstrKind = iota
	// InstrEval evaluates Rvalue for effect, discarding the result.
	InstrEval
)

// Instr is one straight-line operation.
type Instr struct {
	Kind   InstrKind
	Dst    LocalID
	Rvalue Rvalue
}

// OperandKind discriminates Operand.
type OperandKind uint8

const (
	OperandConstInt OperandKind = iota
	OperandConstBool
	OperandConstText
	OperandConstUnit
	OperandLocal
)

// Operand is a value usable by an instruction.
type Operand struct {
	Kind  OperandKind
	Int   int64
	Bool  bool
	Text  string
	Local LocalID
}

func ConstInt(v int64) Operand  { return Operand{Kind: OperandConstInt, Int: v} }
func ConstBool(v bool) Operand  { return Operand{Kind: OperandConstBool, Bool: v} }
func ConstText(v string) Operand { return Operand{Kind: OperandConstText, Text: v} }
func ConstUnit() Operand        { return Operand{Kind: OperandConstUnit} }
func UseLocal(id LocalID) Operand {
	return Operand{Kind: OperandLocal, Local: id}
}

// RvalueKind discriminates Rvalue.
type RvalueKind uint8

const (
	RvUse RvalueKind = iota
	RvBinary
	RvCall
	RvRecordNew
	RvEnumNew
	RvFieldLoad
	RvEnumTag
	RvEnumPayload
)

// Rvalue is the right-hand side of an instruction.
type Rvalue struct {
	Kind RvalueKind

	// RvUse / RvFieldLoad / RvEnumTag / RvEnumPayload
	Operand Operand

	// RvBinary
	Op    ast.BinaryOp
	Left  Operand
	Right Operand

	// RvCall
	Callee string
	Args   []Operand

	// RvRecordNew: field operands in layout order
	TypeName string
	Fields   []Operand

	// RvEnumNew
	EnumName string
	Variant  string
	Tag      int64
	Payload  *Operand

	// RvFieldLoad
	FieldIndex int

	// RvEnumPayload
	PayloadType ast.TypeRef
}

// TermKind discriminates Terminator.
type TermKind uint8

const (
	// TermNone marks a block whose terminator was never set; validation
	// rejects it.
	TermNone TermKind = iota
	// TermReturn returns Value, or the return type's default when absent.
	TermReturn
	// TermGoto jumps unconditionally to Target.
	TermGoto
	// TermIf branches on Cond to Then or Else.
	TermIf
)

// Terminator ends a basic block.
type Terminator struct {
	Kind   TermKind
	Value  *Operand
	Cond   Operand
	Then   BlockID
	Else   BlockID
	Target BlockID
}

// RecordByName finds a record layout.
func (p *Program) RecordByName(name string) (*RecordLayout, bool) {
	for i := range p.Records {
		if p.Records[i].Name == name {
			return &p.Records[i], true
		}
	}
	return nil, false
}

// EnumByName finds an enum layout.
func (p *Program) EnumByName(name string) (*EnumLayout, bool) {
	for i := range p.Enums {
		if p.Enums[i].Name == name {
			return &p.Enums[i], true
		}
	}
	return nil, false
}

// VariantTag returns the declaration-order tag of a variant.
func (l *EnumLayout) VariantTag(name string) (int64, bool) {
	for i, variant := range l.Variants {
		if variant.Name == name {
			return int64(i), true
		}
	}
	return 0, false
}
