package llvm

import (
	"strings"
	"testing"

	"kooix/internal/diag"
	"kooix/internal/mir"
	"kooix/internal/parser"
	"kooix/internal/sema"
	"kooix/internal/source"
)

func emit(t *testing.T, input string) string {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("test.kooix", []byte(input))
	reporter := diag.NewBagReporter(100)
	program := parser.ParseFile(fs, id, parser.Options{Reporter: reporter})
	checked := sema.Check(program, reporter)
	if reporter.Bag.HasErrors() {
		t.Fatalf("errors before emission: %v", reporter.Bag.Items())
	}
	lowered := mir.Lower(checked)
	if err := mir.Validate(lowered); err != nil {
		t.Fatalf("mir validation: %v", err)
	}
	return Emit(lowered)
}

func TestEmitMinimalMain(t *testing.T) {
	ir := emit(t, `fn main() -> Int { return 42; }`)

	if !strings.Contains(ir, "define i64 @kx_program_main()") {
		t.Fatalf("main not renamed for the runtime wrapper:\n%s", ir)
	}
	if !strings.Contains(ir, "ret i64 42") {
		t.Fatalf("missing return of 42:\n%s", ir)
	}
	if !strings.Contains(ir, "; ModuleID = 'kooix'") {
		t.Fatal("missing module header")
	}
}

func TestEmitDeterminism(t *testing.T) {
	input := `
enum Option<T> { Some(T), None };
record Point { x: Int; y: Int; };
fn origin() -> Point { Point { x: 0, y: 0 } }
fn pick(o: Option<Int>) -> Int {
    match o {
        Some(v) => v,
        None => 0,
    }
}
fn greet(name: Text) -> Text { name }
fn main() -> Int {
    let p = origin();
    pick(Some(p.x))
}`
	first := emit(t, input)
	second := emit(t, input)
	if first != second {
		t.Fatal("two emissions of the same program differ")
	}
}

func TestEmitStringInterning(t *testing.T) {
	ir := emit(t, `
fn greet() -> Text { "hello" }
fn greet2() -> Text { "hello" }
fn other() -> Text { "world" }
fn main() -> Int { 0 }
`)
	if strings.Count(ir, `c"hello\00"`) != 1 {
		t.Fatalf("identical literals not interned once:\n%s", ir)
	}
	if strings.Count(ir, `c"world\00"`) != 1 {
		t.Fatalf("world literal missing:\n%s", ir)
	}
}

func TestEmitExternDeclaration(t *testing.T) {
	ir := emit(t, `
fn text_concat(a: Text, b: Text) -> Text;
fn host_argc() -> Int;
fn main() -> Int { host_argc() }
`)
	if !strings.Contains(ir, "declare i8* @text_concat(i8*, i8*)") {
		t.Fatalf("missing text_concat declaration:\n%s", ir)
	}
	if !strings.Contains(ir, "declare i64 @host_argc()") {
		t.Fatalf("missing host_argc declaration:\n%s", ir)
	}
	if !strings.Contains(ir, "call i64 @host_argc()") {
		t.Fatalf("missing intrinsic call:\n%s", ir)
	}
}

func TestEmitEnumLayout(t *testing.T) {
	ir := emit(t, `
enum Option<T> { Some(T), None };
fn main() -> Int {
    match Some(42) {
        Some(v) => v,
        None => 0,
    }
}`)
	// Enum construction: 16-byte malloc, tag byte, payload word at +8.
	if !strings.Contains(ir, "call i8* @malloc(i64 16)") {
		t.Fatalf("enum not heap allocated:\n%s", ir)
	}
	if !strings.Contains(ir, "store i8 0, i8*") {
		t.Fatalf("Some tag not stored:\n%s", ir)
	}
	if !strings.Contains(ir, "getelementptr i8, i8*") {
		t.Fatalf("payload address not computed:\n%s", ir)
	}
}

func TestEmitRecordLayout(t *testing.T) {
	ir := emit(t, `
record Pair { a: Int; b: Int; };
fn main() -> Int {
    let p = Pair { a: 1, b: 2 };
    p.b
}`)
	if !strings.Contains(ir, "call i8* @malloc(i64 16)") {
		t.Fatalf("record not heap allocated with 2 words:\n%s", ir)
	}
	if !strings.Contains(ir, "getelementptr i64, i64*") {
		t.Fatalf("field address not computed:\n%s", ir)
	}
}

func TestEmitBranches(t *testing.T) {
	ir := emit(t, `
fn pick(flag: Bool) -> Int {
    if flag { 1 } else { 2 }
}
fn main() -> Int { pick(true) }
`)
	if !strings.Contains(ir, "br i1") {
		t.Fatalf("missing conditional branch:\n%s", ir)
	}
	if !strings.Contains(ir, "br label") {
		t.Fatalf("missing join jump:\n%s", ir)
	}
}

func TestChunksJoinEquivalence(t *testing.T) {
	var c Chunks
	var naive strings.Builder
	for i := 0; i < 1000; i++ {
		part := "line" + string(rune('a'+i%26)) + "\n"
		c.Append(part)
		naive.WriteString(part)
	}
	if c.Join() != naive.String() {
		t.Fatal("balanced join does not match naive concatenation")
	}
}

func TestChunksJoinEmptyAndSingle(t *testing.T) {
	var empty Chunks
	if empty.Join() != "" {
		t.Fatal("empty join not empty")
	}
	var single Chunks
	single.Append("only")
	if single.Join() != "only" {
		t.Fatal("single join wrong")
	}
}
