package ast

// CapabilityDecl is a top-level `cap Type<args>;` declaration.
type CapabilityDecl struct {
	node
	Capability TypeRef
}

// RecordDecl declares a named record with optional generics and bounds.
// Where-clause bounds are merged into the owning parameter's bound list
// during parsing; Generics therefore carries the complete bound set.
type RecordDecl struct {
	node
	Name     string
	Generics []GenericParam
	Fields   []RecordField
}

// RecordField is one ordered, named record field.
type RecordField struct {
	Name string
	Type TypeRef
}

// EnumDecl declares a named enum with optional generics.
type EnumDecl struct {
	node
	Name     string
	Generics []GenericParam
	Variants []EnumVariant
}

// EnumVariant is one variant with an optional single payload type.
type EnumVariant struct {
	Name    string
	Payload *TypeRef
}

// FunctionDecl declares a function. All contract blocks are optional, as
// is the body (body-less declarations act as signatures/stubs).
type FunctionDecl struct {
	node
	Name       string
	Generics   []GenericParam
	Params     []Param
	ReturnType TypeRef
	Intent     *string
	Effects    []EffectSpec
	Requires   []TypeRef
	Ensures    []EnsureClause
	Failure    *FailurePolicy
	Evidence   *EvidenceSpec
	Body       *Block
}

// ImportDecl is an `import "path";` or `import "path" as Alias;` directive.
type ImportDecl struct {
	node
	Path  string
	Alias string // "" when no alias
}
