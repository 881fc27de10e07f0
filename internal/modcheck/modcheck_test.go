package modcheck

import (
	"os"
	"path/filepath"
	"testing"

	"kooix/internal/ast"
	"kooix/internal/diag"
	"kooix/internal/loader"
	"kooix/internal/parser"
	"kooix/internal/source"
)

func parseProgram(t *testing.T, input string) *ast.Program {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("test.kooix", []byte(input))
	reporter := diag.NewBagReporter(50)
	program := parser.ParseFile(fs, id, parser.Options{Reporter: reporter})
	if reporter.Bag.HasErrors() {
		t.Fatalf("parse errors: %v", reporter.Bag.Items())
	}
	return program
}

func TestNormalizeStripsAliases(t *testing.T) {
	program := parseProgram(t, `
import "lib" as Foo;
fn main() -> Int {
    let x: Foo::Option<Int> = Foo::Option::Some(1);
    match x {
        Foo::Option::Some(v) => v,
        Foo::Option::None => Foo::fallback(),
    }
}
`)
	Normalize(program)

	fn := program.Items[1].(*ast.FunctionDecl)
	let := fn.Body.Stmts[0].(*ast.LetStmt)
	if let.Type.Name != "Option" {
		t.Fatalf("type alias not stripped: %s", let.Type.Name)
	}
	call := let.Value.(*ast.CallExpr)
	if len(call.Target) != 2 || call.Target[0] != "Option" {
		t.Fatalf("call target not stripped: %v", call.Target)
	}

	m := fn.Body.Tail.(*ast.MatchExpr)
	if got := m.Arms[0].Pattern.Path; len(got) != 2 || got[0] != "Option" {
		t.Fatalf("pattern not stripped: %v", got)
	}
	armCall := m.Arms[1].Expr.(*ast.CallExpr)
	if len(armCall.Target) != 1 || armCall.Target[0] != "fallback" {
		t.Fatalf("arm call not stripped: %v", armCall.Target)
	}
}

func loadModules(t *testing.T, dir, entryName string) (*loader.Result, []loader.LoadedModule) {
	t.Helper()
	fs := source.NewFileSet()
	reporter := diag.NewBagReporter(50)
	result, modules, ok := loader.LoadModules(fs, filepath.Join(dir, entryName), reporter, 0)
	if !ok || reporter.Bag.HasErrors() {
		t.Fatalf("load failed: %v", reporter.Bag.Items())
	}
	return result, modules
}

func TestPrepareRewritesAndStubs(t *testing.T) {
	dir := t.TempDir()
	mustWrite(t, dir, "lib.kooix", `
enum Option<T> { Some(T), None };
fn helper(n: Int) -> Int { n }
record Box { value: Int; };
`)
	mustWrite(t, dir, "main.kooix", `
import "lib" as Foo;
fn main() -> Int {
    let h = Foo::helper(1);
    match Foo::Option::Some(h) {
        Foo::Option::Some(x) => x,
        Foo::Option::None => 0,
    }
}
`)

	result, modules := loadModules(t, dir, "main.kooix")
	exports := BuildExportIndex(modules)

	var mainModule loader.LoadedModule
	for _, module := range modules {
		if filepath.Base(module.Path) == "main.kooix" {
			mainModule = module
		}
	}

	reporter := diag.NewBagReporter(50)
	Prepare(mainModule, result.Graph, exports, reporter)
	if reporter.Bag.HasErrors() {
		t.Fatalf("prepare errors: %v", reporter.Bag.Items())
	}

	// The call target was flattened to the collision-free internal name.
	fn := findFunction(t, mainModule.Program, "main")
	let := fn.Body.Stmts[0].(*ast.LetStmt)
	call := let.Value.(*ast.CallExpr)
	if len(call.Target) != 1 || call.Target[0] != "Foo__helper" {
		t.Fatalf("call not rewritten: %v", call.Target)
	}

	// Stubs were appended: a body-less function and the enum shape.
	stub := findFunction(t, mainModule.Program, "Foo__helper")
	if stub.Body != nil {
		t.Fatal("function stub must not carry a body")
	}
	foundEnum := false
	for _, item := range mainModule.Program.Items {
		if enum, ok := item.(*ast.EnumDecl); ok && enum.Name == "Foo__Option" {
			foundEnum = true
			if len(enum.Variants) != 2 {
				t.Fatalf("enum stub variants = %d", len(enum.Variants))
			}
		}
	}
	if !foundEnum {
		t.Fatal("enum stub missing")
	}
}

func TestPrepareUnknownImportErrors(t *testing.T) {
	dir := t.TempDir()
	mustWrite(t, dir, "lib.kooix", `fn helper() -> Int { 1 }`)
	mustWrite(t, dir, "main.kooix", `
import "lib" as Foo;
fn main() -> Int { Foo::absent() }
`)

	result, modules := loadModules(t, dir, "main.kooix")
	exports := BuildExportIndex(modules)

	var mainModule loader.LoadedModule
	for _, module := range modules {
		if filepath.Base(module.Path) == "main.kooix" {
			mainModule = module
		}
	}

	reporter := diag.NewBagReporter(50)
	Prepare(mainModule, result.Graph, exports, reporter)
	if !reporter.Bag.HasErrors() {
		t.Fatal("unknown imported symbol not reported")
	}
	if reporter.Bag.Items()[0].Code != diag.SemaQualifiedUnknownSymbol {
		t.Fatalf("code = %v", reporter.Bag.Items()[0].Code)
	}
}

func findFunction(t *testing.T, program *ast.Program, name string) *ast.FunctionDecl {
	t.Helper()
	for _, item := range program.Items {
		if fn, ok := item.(*ast.FunctionDecl); ok && fn.Name == name {
			return fn
		}
	}
	t.Fatalf("function %s not found", name)
	return nil
}

func mustWrite(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
