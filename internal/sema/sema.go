// Package sema implements the Kooix semantic analyzer. It runs a fixed
// pass order over a module's AST: top-level collection, generic
// correctness, capability checking, per-function effect and body type
// checking, workflow analysis, and agent analysis (state reachability, SCC
// liveness, termination). The result is the typed HIR; diagnostics go to
// the reporter passed in, never to global state.
package sema

import (
	"kooix/internal/ast"
	"kooix/internal/diag"
	"kooix/internal/hir"
	"kooix/internal/source"
	"kooix/internal/types"
)

// signature is the callable surface of a function, workflow, or agent.
type signature struct {
	Generics []ast.GenericParam
	Params   []ast.TypeRef
	Return   ast.TypeRef
}

// Checker carries the shared state of one analysis run.
type Checker struct {
	program  *hir.Program
	reporter diag.Reporter

	records map[string]types.RecordSchema
	enums   map[string]types.EnumSchema

	capabilityHeads     map[string]bool
	capabilityInstances map[string]bool

	invocableTargets map[string]bool
	signatures       map[string]signature
}

// Check lowers the program to HIR and runs every analysis pass.
// The returned HIR is usable for later stages only when no
// error-severity diagnostic was reported.
func Check(program *ast.Program, reporter diag.Reporter) *hir.Program {
	c := &Checker{
		program:             hir.Lower(program),
		reporter:            reporter,
		records:             make(map[string]types.RecordSchema),
		enums:               make(map[string]types.EnumSchema),
		capabilityHeads:     make(map[string]bool),
		capabilityInstances: make(map[string]bool),
		invocableTargets:    make(map[string]bool),
		signatures:          make(map[string]signature),
	}

	c.collectInvocables()
	c.checkRecordDecls()
	c.checkEnumDecls()
	c.checkDeclaredTypeArity()
	c.checkCapabilities()
	c.checkFunctions()
	c.checkWorkflows()
	c.checkAgents()

	return c.program
}

func (c *Checker) error(code diag.Code, span source.Span, msg string) {
	diag.Error(c.reporter, code, span, msg)
}

func (c *Checker) warn(code diag.Code, span source.Span, msg string) {
	diag.Warning(c.reporter, code, span, msg)
}

// collectInvocables records every callable top-level name with its
// signature. First declaration wins; duplicates are reported later by the
// per-kind passes.
func (c *Checker) collectInvocables() {
	for i := range c.program.Functions {
		fn := &c.program.Functions[i]
		c.invocableTargets[fn.Name] = true
		if _, exists := c.signatures[fn.Name]; !exists {
			c.signatures[fn.Name] = signature{
				Generics: fn.Generics,
				Params:   paramTypes(fn.Params),
				Return:   fn.ReturnType,
			}
		}
	}
	for i := range c.program.Workflows {
		w := &c.program.Workflows[i]
		c.invocableTargets[w.Name] = true
		if _, exists := c.signatures[w.Name]; !exists {
			c.signatures[w.Name] = signature{Params: paramTypes(w.Params), Return: w.ReturnType}
		}
	}
	for i := range c.program.Agents {
		a := &c.program.Agents[i]
		c.invocableTargets[a.Name] = true
		if _, exists := c.signatures[a.Name]; !exists {
			c.signatures[a.Name] = signature{Params: paramTypes(a.Params), Return: a.ReturnType}
		}
	}
}

func paramTypes(params []hir.Param) []ast.TypeRef {
	out := make([]ast.TypeRef, 0, len(params))
	for _, p := range params {
		out = append(out, p.Type)
	}
	return out
}

func (c *Checker) checkFunctions() {
	declared := make(map[string]bool)
	for i := range c.program.Functions {
		fn := &c.program.Functions[i]
		if declared[fn.Name] {
			c.error(diag.SemaDuplicateDecl, fn.Span,
				"duplicate function declaration '"+fn.Name+"'")
		}
		declared[fn.Name] = true

		c.checkIntent("function", fn.Name, fn.Intent, fn.Span)
		c.checkFunctionContract(fn)
		c.checkEnsures("function", fn.Name, fn.Params, fn.Ensures, fn.Span)
		c.checkFailure(fn)
		c.checkEvidence("function", fn.Name, fn.Evidence, fn.Span)
		c.checkFunctionBody(fn)
	}
}

func (c *Checker) checkIntent(kind, name string, intent *string, span source.Span) {
	if intent == nil {
		return
	}
	if isBlank(*intent) {
		c.warn(diag.SemaIntentEmpty, span, kind+" '"+name+"' declares an empty intent")
	}
}

func isBlank(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}
