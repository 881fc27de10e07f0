package types

import (
	"testing"

	"kooix/internal/ast"
)

func named(name string, args ...ast.TypeRef) ast.TypeRef {
	ref := ast.TypeRef{Name: name}
	for i := range args {
		ref.Args = append(ref.Args, ast.TypeArg{Kind: ast.TypeArgType, Type: &args[i]})
	}
	return ref
}

func recordSchema(name string, generics []string, fields map[string]ast.TypeRef, order []string) RecordSchema {
	schema := RecordSchema{Name: name, Fields: fields, FieldOrder: order}
	for _, g := range generics {
		schema.Generics = append(schema.Generics, ast.GenericParam{Name: g})
	}
	return schema
}

func TestEqualAndCompatible(t *testing.T) {
	if !Equal(named("Option", Int), named("Option", Int)) {
		t.Fatal("identical types not equal")
	}
	if Equal(named("Option", Int), named("Option", Text)) {
		t.Fatal("different args equal")
	}
	if !Compatible(Text, Named("String")) {
		t.Fatal("Text/String aliasing broken")
	}
	if Compatible(Int, Text) {
		t.Fatal("Int compatible with Text")
	}
}

func TestSubstitute(t *testing.T) {
	generics := []ast.GenericParam{{Name: "T"}}
	args := []ast.TypeArg{{Kind: ast.TypeArgType, Type: &Int}}

	got := Substitute(Named("T"), generics, args)
	if got.Name != "Int" {
		t.Fatalf("T -> %s", got.Name)
	}

	nested := Substitute(named("Option", Named("T")), generics, args)
	if nested.String() != "Option<Int>" {
		t.Fatalf("Option<T> -> %s", nested.String())
	}
}

func TestRecordAsTraitBound(t *testing.T) {
	records := map[string]RecordSchema{
		"Point3": recordSchema("Point3", nil,
			map[string]ast.TypeRef{"x": Int, "y": Int, "z": Int}, []string{"x", "y", "z"}),
		"Point2": recordSchema("Point2", nil,
			map[string]ast.TypeRef{"x": Int, "y": Int}, []string{"x", "y"}),
		"Labeled": recordSchema("Labeled", nil,
			map[string]ast.TypeRef{"label": Text}, []string{"label"}),
	}

	// Point3's fields are a superset of Point2's, so Point3 satisfies Point2.
	if !SatisfiesBound(Named("Point3"), Named("Point2"), records) {
		t.Fatal("Point3 should satisfy Point2")
	}
	// The reverse fails: Point2 lacks z.
	if SatisfiesBound(Named("Point2"), Named("Point3"), records) {
		t.Fatal("Point2 should not satisfy Point3")
	}
	if SatisfiesBound(Named("Point2"), Named("Labeled"), records) {
		t.Fatal("Point2 should not satisfy Labeled")
	}
}

func TestGenericBoundSubstitution(t *testing.T) {
	records := map[string]RecordSchema{
		"Box": recordSchema("Box", []string{"T"},
			map[string]ast.TypeRef{"value": Named("T")}, []string{"value"}),
		"IntBox": recordSchema("IntBox", nil,
			map[string]ast.TypeRef{"value": Int}, []string{"value"}),
	}

	if !SatisfiesBound(Named("IntBox"), named("Box", Int), records) {
		t.Fatal("IntBox should satisfy Box<Int>")
	}
	if SatisfiesBound(Named("IntBox"), named("Box", Text), records) {
		t.Fatal("IntBox should not satisfy Box<Text>")
	}
}

func TestProjectMemberRecord(t *testing.T) {
	records := map[string]RecordSchema{
		"Pair": recordSchema("Pair", []string{"A", "B"},
			map[string]ast.TypeRef{"first": Named("A"), "second": Named("B")},
			[]string{"first", "second"}),
	}

	got, ok := ProjectMember(named("Pair", Int, Text), "second", records)
	if !ok || got.Name != "Text" {
		t.Fatalf("second -> %v ok=%v", got, ok)
	}
	if _, ok := ProjectMember(named("Pair", Int, Text), "third", records); ok {
		t.Fatal("unknown field projected")
	}
}

func TestProjectMemberContainers(t *testing.T) {
	records := map[string]RecordSchema{}

	cases := []struct {
		base   ast.TypeRef
		member string
		want   string
	}{
		{named("Option", Int), "value", "Int"},
		{named("Result", Int, Text), "ok", "Int"},
		{named("Result", Int, Text), "error", "Text"},
		{named("List", Text), "item", "Text"},
		{named("Map", Text, Int), "value", "Int"},
		{named("Map", Text, Int), "key", "Text"},
	}
	for _, tc := range cases {
		got, ok := ProjectMember(tc.base, tc.member, records)
		if !ok || got.Name != tc.want {
			t.Errorf("%s.%s = %v ok=%v, want %s", tc.base.String(), tc.member, got, ok, tc.want)
		}
	}

	if _, ok := ProjectMember(named("Option", Int), "err", records); ok {
		t.Fatal("Option.err should not project")
	}
}

func TestProjectPath(t *testing.T) {
	records := map[string]RecordSchema{
		"Resp": recordSchema("Resp", nil,
			map[string]ast.TypeRef{"body": named("Option", Text)}, []string{"body"}),
	}

	got, failure := ProjectPath(Named("Resp"), []string{"body", "value"}, records)
	if failure != nil || got.Name != "Text" {
		t.Fatalf("Resp.body.value = %v failure=%v", got, failure)
	}

	_, failure = ProjectPath(Named("Resp"), []string{"nope"}, records)
	if failure == nil || failure.Member != "nope" {
		t.Fatalf("expected projection failure, got %v", failure)
	}
}
