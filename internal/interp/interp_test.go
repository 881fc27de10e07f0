package interp

import (
	"strings"
	"testing"

	"kooix/internal/diag"
	"kooix/internal/hir"
	"kooix/internal/parser"
	"kooix/internal/sema"
	"kooix/internal/source"
)

func compile(t *testing.T, input string) *hir.Program {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("test.kooix", []byte(input))
	reporter := diag.NewBagReporter(100)
	program := parser.ParseFile(fs, id, parser.Options{Reporter: reporter})
	checked := sema.Check(program, reporter)
	if reporter.Bag.HasErrors() {
		t.Fatalf("errors before interpretation: %v", reporter.Bag.Items())
	}
	return checked
}

func run(t *testing.T, input string) Value {
	t.Helper()
	in := New(compile(t, input), Options{})
	value, err := in.RunMain()
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	return value
}

func TestRunMinimal(t *testing.T) {
	value := run(t, `fn main() -> Int { return 42; }`)
	if value.Kind != ValueInt || value.Int != 42 {
		t.Fatalf("main = %v", value)
	}
}

func TestRunArithmeticAndCalls(t *testing.T) {
	value := run(t, `
fn double(x: Int) -> Int { x + x }
fn main() -> Int { double(10) + double(11) }
`)
	if value.Int != 42 {
		t.Fatalf("main = %v", value)
	}
}

func TestRunWhileLoop(t *testing.T) {
	value := run(t, `
fn main() -> Int {
    let i = 0;
    let total = 0;
    while i != 5 {
        total = total + i;
        i = i + 1;
    }
    total
}`)
	if value.Int != 10 {
		t.Fatalf("main = %v", value)
	}
}

func TestRunMatchEnum(t *testing.T) {
	value := run(t, `
enum Option<T> { Some(T), None };
fn unwrap_or(o: Option<Int>, fallback: Int) -> Int {
    match o {
        Some(x) => x,
        None => fallback,
    }
}
fn main() -> Int { unwrap_or(Some(42), 0) }
`)
	if value.Int != 42 {
		t.Fatalf("main = %v", value)
	}
}

func TestRunRecordProjection(t *testing.T) {
	value := run(t, `
record Point { x: Int; y: Int; };
fn main() -> Int {
    let p = Point { x: 40, y: 2 };
    p.x + p.y
}`)
	if value.Int != 42 {
		t.Fatalf("main = %v", value)
	}
}

func TestRunReturnInsideNestedBlock(t *testing.T) {
	value := run(t, `
fn classify(n: Int) -> Int {
    if n == 0 {
        return 100;
    }
    1
}
fn main() -> Int { classify(0) + classify(5) }
`)
	if value.Int != 101 {
		t.Fatalf("main = %v", value)
	}
}

func TestRunScopesAssignOuter(t *testing.T) {
	value := run(t, `
fn main() -> Int {
    let x = 1;
    if true {
        let y = 10;
        x = x + y;
    }
    x
}`)
	if value.Int != 11 {
		t.Fatalf("main = %v", value)
	}
}

func TestRefusesEffects(t *testing.T) {
	program := compile(t, `
cap Io;
fn write() -> Unit !{io} requires [Io];
fn main() -> Unit { write() }
`)
	in := New(program, Options{})
	_, err := in.RunMain()
	if err == nil || !strings.Contains(err.Error(), "declares effects") {
		t.Fatalf("effectful call not refused: %v", err)
	}
}

func TestLoopGuard(t *testing.T) {
	program := compile(t, `
fn main() -> Int {
    while true { }
    0
}`)
	in := New(program, Options{MaxLoopIters: 100})
	_, err := in.RunMain()
	if err == nil || !strings.Contains(err.Error(), "exceeded 100 iterations") {
		t.Fatalf("loop guard did not fire: %v", err)
	}
}

func TestCallDepthGuard(t *testing.T) {
	program := compile(t, `
fn forever(n: Int) -> Int { forever(n + 1) }
fn main() -> Int { forever(0) }
`)
	in := New(program, Options{MaxCallDepth: 16})
	_, err := in.RunMain()
	if err == nil || !strings.Contains(err.Error(), "call stack overflow") {
		t.Fatalf("depth guard did not fire: %v", err)
	}
}

func TestMissingMain(t *testing.T) {
	program := compile(t, `fn helper() -> Int { 1 }`)
	in := New(program, Options{})
	_, err := in.RunMain()
	if err == nil || !strings.Contains(err.Error(), "missing function 'main'") {
		t.Fatalf("missing main not reported: %v", err)
	}
}

func TestEnumEquality(t *testing.T) {
	value := run(t, `
enum Status { Ready, Busy };
fn main() -> Int {
    let a = Ready;
    let b = Ready;
    if a == b { 1 } else { 0 }
}`)
	if value.Int != 1 {
		t.Fatalf("main = %v", value)
	}
}
