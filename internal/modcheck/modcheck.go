package modcheck

import (
	"sort"
	"strings"

	"kooix/internal/ast"
	"kooix/internal/diag"
	"kooix/internal/loader"
	"kooix/internal/source"
)

// ExportIndex maps module paths to their exported top-level declarations.
type ExportIndex struct {
	Functions map[string]map[string]*ast.FunctionDecl
	Records   map[string]map[string]*ast.RecordDecl
	Enums     map[string]map[string]*ast.EnumDecl
}

// BuildExportIndex collects the exported declarations of every loaded
// module.
func BuildExportIndex(modules []loader.LoadedModule) *ExportIndex {
	index := &ExportIndex{
		Functions: make(map[string]map[string]*ast.FunctionDecl),
		Records:   make(map[string]map[string]*ast.RecordDecl),
		Enums:     make(map[string]map[string]*ast.EnumDecl),
	}

	for _, module := range modules {
		for _, item := range module.Program.Items {
			switch decl := item.(type) {
			case *ast.FunctionDecl:
				bucket(index.Functions, module.Path)[decl.Name] = decl
			case *ast.RecordDecl:
				bucket(index.Records, module.Path)[decl.Name] = decl
			case *ast.EnumDecl:
				bucket(index.Enums, module.Path)[decl.Name] = decl
			}
		}
	}
	return index
}

func bucket[T any](m map[string]map[string]*T, key string) map[string]*T {
	if m[key] == nil {
		m[key] = make(map[string]*T)
	}
	return m[key]
}

// neededStubs accumulates imported symbols a module references, keyed by
// their internal (alias__name) spelling.
type neededStubs struct {
	functions map[string][2]string // internal -> (original, module path)
	records   map[string][2]string
	enums     map[string][2]string
}

// Prepare rewrites a module's qualified references (Alias::name,
// Alias::Type, Alias::Enum::Variant) to flat internal names and appends
// signature stubs for the referenced exports, so semantic analysis can
// run on the module in isolation. The program is modified in place.
func Prepare(module loader.LoadedModule, graph *loader.ModuleGraph, exports *ExportIndex, reporter diag.Reporter) {
	aliasTo := aliasMap(module.Path, graph)
	if len(aliasTo) == 0 {
		return
	}

	r := &rewriter{
		aliasTo:  aliasTo,
		exports:  exports,
		reporter: reporter,
		needed: neededStubs{
			functions: make(map[string][2]string),
			records:   make(map[string][2]string),
			enums:     make(map[string][2]string),
		},
	}

	for _, item := range module.Program.Items {
		switch decl := item.(type) {
		case *ast.FunctionDecl:
			r.rewriteFunction(decl)
		case *ast.RecordDecl:
			for i := range decl.Fields {
				r.rewriteTypeRef(&decl.Fields[i].Type, decl.Span())
			}
		case *ast.EnumDecl:
			for i := range decl.Variants {
				if decl.Variants[i].Payload != nil {
					r.rewriteTypeRef(decl.Variants[i].Payload, decl.Span())
				}
			}
		case *ast.WorkflowDecl:
			r.rewriteWorkflowDecl(decl)
		}
	}

	r.appendStubs(module.Program)
}

func aliasMap(modulePath string, graph *loader.ModuleGraph) map[string]string {
	out := make(map[string]string)
	node, ok := graph.Node(modulePath)
	if !ok {
		return out
	}
	for _, edge := range node.Imports {
		if edge.Alias != "" {
			out[edge.Alias] = edge.Resolved
		}
	}
	return out
}

type rewriter struct {
	aliasTo  map[string]string
	exports  *ExportIndex
	reporter diag.Reporter
	needed   neededStubs
}

func internalName(alias, name string) string {
	return alias + "__" + name
}

func (r *rewriter) unknownSymbol(alias, name, modulePath string, span source.Span) {
	diag.Error(r.reporter, diag.SemaQualifiedUnknownSymbol, span,
		"unknown imported symbol '"+alias+"::"+name+"' (from '"+modulePath+"')")
}

func (r *rewriter) rewriteFunction(fn *ast.FunctionDecl) {
	r.rewriteTypeRef(&fn.ReturnType, fn.Span())
	for i := range fn.Params {
		r.rewriteTypeRef(&fn.Params[i].Type, fn.Span())
	}
	if fn.Body != nil {
		r.rewriteBlock(fn.Body)
	}
}

func (r *rewriter) rewriteWorkflowDecl(w *ast.WorkflowDecl) {
	r.rewriteTypeRef(&w.ReturnType, w.Span())
	for i := range w.Params {
		r.rewriteTypeRef(&w.Params[i].Type, w.Span())
	}
	for i := range w.Output {
		r.rewriteTypeRef(&w.Output[i].Type, w.Span())
	}
}

func (r *rewriter) rewriteBlock(block *ast.Block) {
	for _, stmt := range block.Stmts {
		switch s := stmt.(type) {
		case *ast.LetStmt:
			if s.Type != nil {
				r.rewriteTypeRef(s.Type, s.Span())
			}
			r.rewriteExpr(s.Value)
		case *ast.AssignStmt:
			r.rewriteExpr(s.Value)
		case *ast.ReturnStmt:
			if s.Value != nil {
				r.rewriteExpr(s.Value)
			}
		case *ast.ExprStmt:
			r.rewriteExpr(s.X)
		}
	}
	if block.Tail != nil {
		r.rewriteExpr(block.Tail)
	}
}

func (r *rewriter) rewriteExpr(expr ast.Expr) {
	switch e := expr.(type) {
	case *ast.PathExpr:
		r.rewriteQualifiedPath(&e.Segments, e.Span())
	case *ast.CallExpr:
		r.rewriteQualifiedPath(&e.Target, e.Span())
		for i := range e.TypeArgs {
			r.rewriteTypeRef(&e.TypeArgs[i], e.Span())
		}
		for _, arg := range e.Args {
			r.rewriteExpr(arg)
		}
	case *ast.RecordLitExpr:
		r.rewriteTypeRef(&e.Type, e.Span())
		for _, field := range e.Fields {
			r.rewriteExpr(field.Value)
		}
	case *ast.BinaryExpr:
		r.rewriteExpr(e.Left)
		r.rewriteExpr(e.Right)
	case *ast.IfExpr:
		r.rewriteExpr(e.Cond)
		r.rewriteBlock(e.Then)
		if e.Else != nil {
			r.rewriteBlock(e.Else)
		}
	case *ast.WhileExpr:
		r.rewriteExpr(e.Cond)
		r.rewriteBlock(e.Body)
	case *ast.MatchExpr:
		r.rewriteExpr(e.Value)
		for i := range e.Arms {
			arm := &e.Arms[i]
			if arm.Pattern.Kind == ast.PatternVariant {
				r.rewriteQualifiedPath(&arm.Pattern.Path, arm.Pattern.Span())
			}
			if arm.Expr != nil {
				r.rewriteExpr(arm.Expr)
			}
			if arm.Block != nil {
				r.rewriteBlock(arm.Block)
			}
		}
	case *ast.IntLitExpr, *ast.TextLitExpr, *ast.BoolLitExpr:
	}
}

// rewriteQualifiedPath folds Alias::name into alias__name, and
// Alias::Enum::Variant into alias__Enum::Variant, recording the stub the
// module needs.
func (r *rewriter) rewriteQualifiedPath(segments *[]string, span source.Span) {
	segs := *segments
	if len(segs) < 2 {
		return
	}
	modulePath, ok := r.aliasTo[segs[0]]
	if !ok {
		return
	}
	alias := segs[0]

	switch len(segs) {
	case 2:
		name := segs[1]
		internal := internalName(alias, name)
		if r.exports.Functions[modulePath][name] != nil {
			r.needed.functions[internal] = [2]string{name, modulePath}
			*segments = []string{internal}
			return
		}
		if r.exports.Records[modulePath][name] != nil {
			r.needed.records[internal] = [2]string{name, modulePath}
			*segments = []string{internal}
			return
		}
		if r.exports.Enums[modulePath][name] != nil {
			r.needed.enums[internal] = [2]string{name, modulePath}
			*segments = []string{internal}
			return
		}
		r.unknownSymbol(alias, name, modulePath, span)

	case 3:
		enumName := segs[1]
		internal := internalName(alias, enumName)
		if r.exports.Enums[modulePath][enumName] != nil {
			r.needed.enums[internal] = [2]string{enumName, modulePath}
			*segments = []string{internal, segs[2]}
			return
		}
		r.unknownSymbol(alias, enumName, modulePath, span)
	}
}

// rewriteTypeRef folds Alias::Type heads into alias__Type and records the
// record or enum stub.
func (r *rewriter) rewriteTypeRef(ty *ast.TypeRef, span source.Span) {
	if alias, rest, found := strings.Cut(ty.Name, "::"); found {
		if modulePath, ok := r.aliasTo[alias]; ok && !strings.Contains(rest, "::") {
			internal := internalName(alias, rest)
			switch {
			case r.exports.Records[modulePath][rest] != nil:
				r.needed.records[internal] = [2]string{rest, modulePath}
				ty.Name = internal
			case r.exports.Enums[modulePath][rest] != nil:
				r.needed.enums[internal] = [2]string{rest, modulePath}
				ty.Name = internal
			default:
				r.unknownSymbol(alias, rest, modulePath, span)
			}
		}
	}

	for i := range ty.Args {
		if ty.Args[i].Kind == ast.TypeArgType {
			r.rewriteTypeRef(ty.Args[i].Type, span)
		}
	}
}

// appendStubs injects renamed signature stubs for every needed import so
// the module checks standalone. Function stubs drop bodies and contracts;
// record and enum stubs keep their full shape under the internal name.
func (r *rewriter) appendStubs(program *ast.Program) {
	for _, internal := range sortedKeys(r.needed.functions) {
		ref := r.needed.functions[internal]
		template := r.exports.Functions[ref[1]][ref[0]]
		stub := &ast.FunctionDecl{
			Name:       internal,
			Generics:   template.Generics,
			Params:     template.Params,
			ReturnType: template.ReturnType,
		}
		program.Items = append(program.Items, stub)
	}
	for _, internal := range sortedKeys(r.needed.records) {
		ref := r.needed.records[internal]
		template := r.exports.Records[ref[1]][ref[0]]
		stub := &ast.RecordDecl{
			Name:     internal,
			Generics: template.Generics,
			Fields:   template.Fields,
		}
		program.Items = append(program.Items, stub)
	}
	for _, internal := range sortedKeys(r.needed.enums) {
		ref := r.needed.enums[internal]
		template := r.exports.Enums[ref[1]][ref[0]]
		stub := &ast.EnumDecl{
			Name:     internal,
			Generics: template.Generics,
			Variants: template.Variants,
		}
		program.Items = append(program.Items, stub)
	}
}

// sortedKeys yields map keys in order so stub injection is deterministic.
func sortedKeys(m map[string][2]string) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
