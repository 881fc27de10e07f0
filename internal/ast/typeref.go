package ast

import (
	"strings"

	"kooix/internal/source"
)

// TypeRef is a syntactic type reference: a head name plus optional
// angle-bracket arguments, each of which may itself be a type, a string,
// or an integer (capability shapes use the latter two).
type TypeRef struct {
	Name string
	Args []TypeArg
	Loc  source.Span
}

// TypeArgKind discriminates TypeArg.
type TypeArgKind uint8

const (
	TypeArgType TypeArgKind = iota
	TypeArgString
	TypeArgNumber
)

// TypeArg is one generic argument of a TypeRef.
type TypeArg struct {
	Kind  TypeArgKind
	Type  *TypeRef // set when Kind == TypeArgType
	Value string   // set when Kind is TypeArgString or TypeArgNumber
}

// Head returns the type's head name.
func (t *TypeRef) Head() string { return t.Name }

// Span returns the source range of the reference.
func (t *TypeRef) Span() source.Span { return t.Loc }

// String renders the reference in source form, e.g. Model<"openai", "gpt", 1000>.
func (t *TypeRef) String() string {
	if len(t.Args) == 0 {
		return t.Name
	}
	var sb strings.Builder
	sb.WriteString(t.Name)
	sb.WriteByte('<')
	for i, arg := range t.Args {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(arg.String())
	}
	sb.WriteByte('>')
	return sb.String()
}

func (a TypeArg) String() string {
	switch a.Kind {
	case TypeArgType:
		return a.Type.String()
	case TypeArgString:
		return `"` + a.Value + `"`
	default:
		return a.Value
	}
}

// GenericParam is a declared generic parameter with optional bounds.
type GenericParam struct {
	Name   string
	Bounds []TypeRef
	Loc    source.Span
}

// Param is a named formal parameter.
type Param struct {
	Name string
	Type TypeRef
	Loc  source.Span
}
