package ast

// Expr is a function-body expression.
type Expr interface {
	Node
	isExpr()
}

func (*IntLitExpr) isExpr()    {}
func (*TextLitExpr) isExpr()   {}
func (*BoolLitExpr) isExpr()   {}
func (*PathExpr) isExpr()      {}
func (*CallExpr) isExpr()      {}
func (*RecordLitExpr) isExpr() {}
func (*BinaryExpr) isExpr()    {}
func (*IfExpr) isExpr()        {}
func (*WhileExpr) isExpr()     {}
func (*MatchExpr) isExpr()     {}

// IntLitExpr is a decimal integer literal. Value holds the raw digits.
type IntLitExpr struct {
	node
	Value string
}

// TextLitExpr is a string literal with escapes already resolved.
type TextLitExpr struct {
	node
	Value string
}

// BoolLitExpr is `true` or `false`.
type BoolLitExpr struct {
	node
	Value bool
}

// PathExpr is a possibly-qualified name: a variable, a bare enum variant,
// `Enum::Variant`, `Alias::name`, or a member projection chain `x.field.sub`.
// Resolution happens in the semantic analyzer.
type PathExpr struct {
	node
	Segments []string
}

// CallExpr is `target(args)` or `target<T, ...>(args)`. Target may be
// qualified (`Alias::f`, `Enum::Variant`, `Alias::Enum::Variant`).
type CallExpr struct {
	node
	Target   []string
	TypeArgs []TypeRef
	Args     []Expr
}

// RecordLitExpr is `Type { field: value, ... }`.
type RecordLitExpr struct {
	node
	Type   TypeRef
	Fields []RecordLitField
}

// RecordLitField is one named initializer of a record literal.
type RecordLitField struct {
	Name  string
	Value Expr
}

// BinaryOp is a function-body binary operator. Comparison and logical
// operators are deliberately absent: they exist only in predicate contexts.
type BinaryOp uint8

const (
	BinAdd BinaryOp = iota
	BinEq
	BinNotEq
)

func (op BinaryOp) String() string {
	switch op {
	case BinAdd:
		return "+"
	case BinEq:
		return "=="
	case BinNotEq:
		return "!="
	}
	return "?"
}

// BinaryExpr is `left op right`.
type BinaryExpr struct {
	node
	Op    BinaryOp
	Left  Expr
	Right Expr
}

// IfExpr is `if cond { ... } [else { ... }]`. When both branches are
// present the expression's type is their unified type.
type IfExpr struct {
	node
	Cond Expr
	Then *Block
	Else *Block // nil when no else branch
}

// WhileExpr is `while cond { ... }`; its value is Unit.
type WhileExpr struct {
	node
	Cond Expr
	Body *Block
}

// MatchExpr is `match value { pattern => arm, ... }`.
type MatchExpr struct {
	node
	Value Expr
	Arms  []MatchArm
}

// MatchArm is one `pattern => expr` or `pattern => { block }` arm.
// Exactly one of Expr and Block is set.
type MatchArm struct {
	Pattern Pattern
	Expr    Expr
	Block   *Block
}
