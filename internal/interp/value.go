// Package interp is the minimal tree-walking evaluator used before the
// LLVM path exists. It executes the typed function-body subset over the
// HIR, enforces the no-effects contract, and guards against runaway loops
// and recursion. Evaluation is deterministic and single-threaded.
package interp

import (
	"fmt"
)

// ValueKind discriminates Value.
type ValueKind uint8

const (
	ValueUnit ValueKind = iota
	ValueInt
	ValueBool
	ValueText
	ValueRecord
	ValueEnum
)

// Value is one runtime value.
type Value struct {
	Kind    ValueKind
	Int     int64
	Bool    bool
	Text    string
	Name    string // record or enum type name
	Fields  map[string]Value
	Variant string
	Payload *Value
}

func UnitValue() Value       { return Value{Kind: ValueUnit} }
func IntValue(v int64) Value { return Value{Kind: ValueInt, Int: v} }
func BoolValue(v bool) Value { return Value{Kind: ValueBool, Bool: v} }
func TextValue(v string) Value {
	return Value{Kind: ValueText, Text: v}
}

// TypeName reports the value's type for diagnostics.
func (v Value) TypeName() string {
	switch v.Kind {
	case ValueUnit:
		return "Unit"
	case ValueInt:
		return "Int"
	case ValueBool:
		return "Bool"
	case ValueText:
		return "Text"
	default:
		return v.Name
	}
}

// String renders the value for `run` output.
func (v Value) String() string {
	switch v.Kind {
	case ValueUnit:
		return "()"
	case ValueInt:
		return fmt.Sprintf("%d", v.Int)
	case ValueBool:
		return fmt.Sprintf("%t", v.Bool)
	case ValueText:
		return v.Text
	case ValueRecord:
		return "<" + v.Name + ">"
	default:
		return "<" + v.Name + "::" + v.Variant + ">"
	}
}

// Equal is deep structural equality, used by == and !=.
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case ValueUnit:
		return true
	case ValueInt:
		return v.Int == other.Int
	case ValueBool:
		return v.Bool == other.Bool
	case ValueText:
		return v.Text == other.Text
	case ValueRecord:
		if v.Name != other.Name || len(v.Fields) != len(other.Fields) {
			return false
		}
		for name, field := range v.Fields {
			otherField, ok := other.Fields[name]
			if !ok || !field.Equal(otherField) {
				return false
			}
		}
		return true
	default:
		if v.Name != other.Name || v.Variant != other.Variant {
			return false
		}
		if (v.Payload == nil) != (other.Payload == nil) {
			return false
		}
		return v.Payload == nil || v.Payload.Equal(*other.Payload)
	}
}

// env is a scope stack mirroring block structure: a let inside a block is
// not visible after it, assignments walk outward to the defining scope.
type env struct {
	scopes []map[string]Value
}

func newEnv() *env {
	return &env{scopes: []map[string]Value{make(map[string]Value)}}
}

func (e *env) push() {
	e.scopes = append(e.scopes, make(map[string]Value))
}

func (e *env) pop() {
	e.scopes = e.scopes[:len(e.scopes)-1]
}

func (e *env) get(name string) (Value, bool) {
	for i := len(e.scopes) - 1; i >= 0; i-- {
		if value, ok := e.scopes[i][name]; ok {
			return value, true
		}
	}
	return Value{}, false
}

func (e *env) declare(name string, value Value) {
	e.scopes[len(e.scopes)-1][name] = value
}

func (e *env) assign(name string, value Value) bool {
	for i := len(e.scopes) - 1; i >= 0; i-- {
		if _, ok := e.scopes[i][name]; ok {
			e.scopes[i][name] = value
			return true
		}
	}
	return false
}
