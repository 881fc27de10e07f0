// Package hir holds the resolved, desugared declaration set the semantic
// analyzer produces. Contract blocks (intent, ensures, failure, evidence)
// are retained as annotations for analysis and reporting; codegen reads
// only the typed core. All names in module-aware mode are already fully
// qualified, so cross-module collisions cannot occur downstream.
package hir

import (
	"kooix/internal/ast"
	"kooix/internal/source"
)

// FuncID is a stable index into Program.Functions.
type FuncID uint32

// Program is the HIR of one module (or of the combined include-mode source).
type Program struct {
	Capabilities []Capability
	Records      []Record
	Enums        []Enum
	Functions    []Function
	Workflows    []Workflow
	Agents       []Agent

	funcIndex map[string]FuncID
}

// Capability is a declared top-level authority instance.
type Capability struct {
	Type ast.TypeRef
	Span source.Span
}

// Param is a typed formal parameter.
type Param struct {
	Name string
	Type ast.TypeRef
}

// Effect is one declared effect of a function.
type Effect struct {
	Name     string
	Argument string
	HasArg   bool
}

// String renders the effect as written, e.g. model(openai).
func (e Effect) String() string {
	if e.HasArg {
		return e.Name + "(" + e.Argument + ")"
	}
	return e.Name
}

// Function is a lowered function declaration.
type Function struct {
	Name       string
	Generics   []ast.GenericParam
	Params     []Param
	ReturnType ast.TypeRef
	Intent     *string
	Effects    []Effect
	Requires   []ast.TypeRef
	Ensures    []ast.EnsureClause
	Failure    *ast.FailurePolicy
	Evidence   *ast.EvidenceSpec
	Body       *ast.Block
	Span       source.Span
}

// Record is a lowered record declaration.
type Record struct {
	Name     string
	Generics []ast.GenericParam
	Fields   []ast.RecordField
	Span     source.Span
}

// Enum is a lowered enum declaration.
type Enum struct {
	Name     string
	Generics []ast.GenericParam
	Variants []EnumVariant
	Span     source.Span
}

// EnumVariant is one lowered variant.
type EnumVariant struct {
	Name    string
	Payload *ast.TypeRef
}

// Workflow is a lowered workflow declaration.
type Workflow struct {
	Name       string
	Params     []Param
	ReturnType ast.TypeRef
	Intent     *string
	Requires   []ast.TypeRef
	Steps      []WorkflowStep
	Output     []ast.OutputField
	Evidence   *ast.EvidenceSpec
	Span       source.Span
}

// WorkflowStep is one lowered step.
type WorkflowStep struct {
	ID      string
	Call    ast.WorkflowCall
	Ensures []ast.EnsureClause
	OnFail  *ast.FailureAction
}

// Agent is a lowered agent declaration.
type Agent struct {
	Name       string
	Params     []Param
	ReturnType ast.TypeRef
	Intent     *string
	StateRules []ast.StateRule
	Policy     ast.AgentPolicy
	Requires   []ast.TypeRef
	Loop       ast.LoopSpec
	Ensures    []ast.EnsureClause
	Evidence   *ast.EvidenceSpec
	Span       source.Span
}

// FuncByName resolves a function by its (fully qualified) name.
func (p *Program) FuncByName(name string) (*Function, bool) {
	id, ok := p.funcIndex[name]
	if !ok {
		return nil, false
	}
	return &p.Functions[id], true
}

// FuncIDByName returns the stable id for a function name.
func (p *Program) FuncIDByName(name string) (FuncID, bool) {
	id, ok := p.funcIndex[name]
	return id, ok
}

func (p *Program) buildIndex() {
	p.funcIndex = make(map[string]FuncID, len(p.Functions))
	for i := range p.Functions {
		name := p.Functions[i].Name
		if _, exists := p.funcIndex[name]; !exists {
			p.funcIndex[name] = FuncID(i) // #nosec G115 -- bounded by item count
		}
	}
}
