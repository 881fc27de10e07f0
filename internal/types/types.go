// Package types implements the semantic type algebra over syntactic type
// references: structural equality, the record-as-trait compatibility rule,
// generic substitution, bound satisfaction, and the fixed member
// projection rules for container types.
package types

import (
	"kooix/internal/ast"
)

// RecordSchema is the analyzed shape of a record declaration.
type RecordSchema struct {
	Name       string
	Generics   []ast.GenericParam
	Fields     map[string]ast.TypeRef
	FieldOrder []string
}

// EnumSchema is the analyzed shape of an enum declaration.
type EnumSchema struct {
	Name         string
	Generics     []ast.GenericParam
	Variants     map[string]*ast.TypeRef // nil payload for unit variants
	VariantOrder []string
}

// VariantTag returns the declaration-order index of a variant, used as the
// runtime tag. The second result is false for unknown variants.
func (s *EnumSchema) VariantTag(name string) (int, bool) {
	for i, v := range s.VariantOrder {
		if v == name {
			return i, true
		}
	}
	return 0, false
}

// Equal reports structural equality of two type references.
func Equal(a, b ast.TypeRef) bool {
	if a.Name != b.Name || len(a.Args) != len(b.Args) {
		return false
	}
	for i := range a.Args {
		if !typeArgEqual(a.Args[i], b.Args[i]) {
			return false
		}
	}
	return true
}

func typeArgEqual(a, b ast.TypeArg) bool {
	if a.Kind != b.Kind {
		return false
	}
	if a.Kind == ast.TypeArgType {
		return Equal(*a.Type, *b.Type)
	}
	return a.Value == b.Value
}

// Compatible reports whether actual may flow where expected is declared.
// Besides equality it admits the legacy head spellings the bootstrap
// sources still use (String for Text, Num/Number/Float for Int).
func Compatible(expected, actual ast.TypeRef) bool {
	if Equal(expected, actual) {
		return true
	}
	if IsNever(expected) || IsNever(actual) {
		return true
	}

	switch [2]string{expected.Head(), actual.Head()} {
	case [2]string{"Text", "String"},
		[2]string{"String", "Text"},
		[2]string{"Num", "Int"},
		[2]string{"Float", "Int"},
		[2]string{"Number", "Int"}:
		return true
	}
	return false
}

// Substitute replaces generic parameter references in ty with the
// corresponding concrete arguments, recursively.
func Substitute(ty ast.TypeRef, generics []ast.GenericParam, args []ast.TypeArg) ast.TypeRef {
	if len(ty.Args) == 0 {
		for i, param := range generics {
			if param.Name == ty.Head() {
				if i < len(args) && args[i].Kind == ast.TypeArgType {
					return *args[i].Type
				}
			}
		}
	}

	out := ast.TypeRef{Name: ty.Name, Loc: ty.Loc}
	for _, arg := range ty.Args {
		if arg.Kind == ast.TypeArgType {
			inner := Substitute(*arg.Type, generics, args)
			out.Args = append(out.Args, ast.TypeArg{Kind: ast.TypeArgType, Type: &inner})
		} else {
			out.Args = append(out.Args, arg)
		}
	}
	return out
}

// TypeArgAt returns the index-th argument when it is a type.
func TypeArgAt(base ast.TypeRef, index int) (ast.TypeRef, bool) {
	if index < len(base.Args) && base.Args[index].Kind == ast.TypeArgType {
		return *base.Args[index].Type, true
	}
	return ast.TypeRef{}, false
}

// SatisfiesBound reports whether actual satisfies bound. Named bounds are
// satisfied by equality; record bounds by the record-as-trait rule: every
// field the bound declares must exist on the actual record with a type
// that itself satisfies the bound's field type after substitution.
func SatisfiesBound(actual, bound ast.TypeRef, records map[string]RecordSchema) bool {
	seen := make(map[[2]string]bool)
	return satisfiesBound(actual, bound, records, seen)
}

func satisfiesBound(actual, bound ast.TypeRef, records map[string]RecordSchema, seen map[[2]string]bool) bool {
	if Compatible(bound, actual) {
		return true
	}

	if bound.Head() == actual.Head() {
		if len(bound.Args) != len(actual.Args) {
			return false
		}
		for i := range bound.Args {
			expectedArg, actualArg := bound.Args[i], actual.Args[i]
			switch {
			case expectedArg.Kind == ast.TypeArgType && actualArg.Kind == ast.TypeArgType:
				if !satisfiesBound(*actualArg.Type, *expectedArg.Type, records, seen) {
					return false
				}
			case expectedArg.Kind == actualArg.Kind && expectedArg.Value == actualArg.Value:
				// literal arguments must match exactly
			default:
				return false
			}
		}
		return true
	}

	// Cycle guard for mutually recursive record shapes.
	key := [2]string{actual.String(), bound.String()}
	if seen[key] {
		return true
	}
	seen[key] = true

	actualSchema, ok := records[actual.Head()]
	if !ok {
		return false
	}
	boundSchema, ok := records[bound.Head()]
	if !ok {
		return false
	}
	if len(actualSchema.Generics) != len(actual.Args) || len(boundSchema.Generics) != len(bound.Args) {
		return false
	}

	for _, fieldName := range boundSchema.FieldOrder {
		actualField, ok := actualSchema.Fields[fieldName]
		if !ok {
			return false
		}
		expected := Substitute(boundSchema.Fields[fieldName], boundSchema.Generics, bound.Args)
		got := Substitute(actualField, actualSchema.Generics, actual.Args)
		if !satisfiesBound(got, expected, records, seen) {
			return false
		}
	}
	return true
}

// ArgsSatisfyBounds checks a concrete instantiation against the declared
// generic bounds of the base's schema.
func ArgsSatisfyBounds(base ast.TypeRef, schema RecordSchema, records map[string]RecordSchema) bool {
	for i, param := range schema.Generics {
		if len(param.Bounds) == 0 {
			continue
		}
		if i >= len(base.Args) || base.Args[i].Kind != ast.TypeArgType {
			return false
		}
		for _, bound := range param.Bounds {
			if !SatisfiesBound(*base.Args[i].Type, bound, records) {
				return false
			}
		}
	}
	return true
}

// ProjectionFailure records why a member projection failed.
type ProjectionFailure struct {
	Member   string
	BaseType ast.TypeRef
}

// ProjectMember resolves `base.member` to a type: record fields after
// substitution, or the fixed projections on the container types
// (Option, Result, List, Vec, Array, Map).
func ProjectMember(base ast.TypeRef, member string, records map[string]RecordSchema) (ast.TypeRef, bool) {
	if schema, ok := records[base.Head()]; ok {
		if len(schema.Generics) != len(base.Args) {
			return ast.TypeRef{}, false
		}
		if !ArgsSatisfyBounds(base, schema, records) {
			return ast.TypeRef{}, false
		}
		if fieldType, ok := schema.Fields[member]; ok {
			return Substitute(fieldType, schema.Generics, base.Args), true
		}
	}

	switch base.Head() {
	case "Option":
		if member == "some" || member == "value" {
			return TypeArgAt(base, 0)
		}
	case "Result":
		switch member {
		case "ok", "value":
			return TypeArgAt(base, 0)
		case "err", "error":
			return TypeArgAt(base, 1)
		}
	case "List", "Vec", "Array":
		if member == "item" || member == "first" {
			return TypeArgAt(base, 0)
		}
	case "Map":
		switch member {
		case "key":
			return TypeArgAt(base, 0)
		case "value":
			return TypeArgAt(base, 1)
		}
	}
	return ast.TypeRef{}, false
}

// ProjectPath folds ProjectMember over a member chain.
func ProjectPath(root ast.TypeRef, members []string, records map[string]RecordSchema) (ast.TypeRef, *ProjectionFailure) {
	current := root
	for _, member := range members {
		next, ok := ProjectMember(current, member, records)
		if !ok {
			return ast.TypeRef{}, &ProjectionFailure{Member: member, BaseType: current}
		}
		current = next
	}
	return current, nil
}

// Named constructs an argument-less type reference.
func Named(name string) ast.TypeRef {
	return ast.TypeRef{Name: name}
}

// Unit, Int, Bool, and Text are the primitive references used throughout
// the analyzer and lowering. Never is the type of diverging blocks (a
// block ending in return); it unifies with everything.
var (
	Unit  = Named("Unit")
	Int   = Named("Int")
	Bool  = Named("Bool")
	Text  = Named("Text")
	Never = Named("Never")
)

// IsNever reports whether ty is the diverging type.
func IsNever(ty ast.TypeRef) bool {
	return ty.Head() == "Never"
}

// IsPrimitive reports whether head names one of the built-in primitives.
func IsPrimitive(head string) bool {
	switch head {
	case "Int", "Bool", "Text", "Unit":
		return true
	default:
		return false
	}
}
