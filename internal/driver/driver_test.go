package driver

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"kooix/internal/interp"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// A malformed capability shape must fail the check with a Model
// diagnostic.
func TestCheckCapabilityShapeMismatch(t *testing.T) {
	dir := t.TempDir()
	entry := writeFile(t, dir, "main.kooix", `
cap Model<"openai", "gpt", "x">;
fn f() -> Unit !{model(openai)} requires [Model<"openai", "gpt", "x">];
`)

	s := NewSession()
	if s.Check(entry) {
		t.Fatal("check passed on malformed capability")
	}
	found := false
	for _, d := range s.Bag().Items() {
		if strings.Contains(d.Message, "Model") {
			found = true
		}
	}
	if !found {
		t.Fatalf("no Model diagnostic: %v", s.Bag().Items())
	}
}

func TestCheckCleanProgram(t *testing.T) {
	dir := t.TempDir()
	entry := writeFile(t, dir, "main.kooix", `fn main() -> Int { return 42; }`)

	s := NewSession()
	if !s.Check(entry) {
		t.Fatalf("clean program failed: %v", s.Bag().Items())
	}
}

func TestRunInterpretsMain(t *testing.T) {
	dir := t.TempDir()
	entry := writeFile(t, dir, "main.kooix", `fn main() -> Int { return 42; }`)

	s := NewSession()
	value, ok := s.Run(entry, interp.Options{})
	if !ok {
		t.Fatalf("run failed: %v", s.Bag().Items())
	}
	if value.Kind != interp.ValueInt || value.Int != 42 {
		t.Fatalf("main = %v", value)
	}
}

// Include mode resolves cross-file calls after alias stripping.
func TestIncludeModeCrossFileCalls(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "lib.kooix", `fn helper() -> Int { 40 }`)
	entry := writeFile(t, dir, "main.kooix", `
import "lib" as Lib;
fn main() -> Int { Lib::helper() + 2 }
`)

	s := NewSession()
	value, ok := s.Run(entry, interp.Options{})
	if !ok {
		t.Fatalf("run failed: %v", s.Bag().Items())
	}
	if value.Int != 42 {
		t.Fatalf("main = %v", value)
	}
}

// Qualified variants across modules check cleanly in module-aware mode.
func TestCheckModulesQualifiedVariant(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "import_variant_lib.kooix", `enum Option<T> { Some(T), None };`)
	entry := writeFile(t, dir, "import_variant_main.kooix", `
import "import_variant_lib" as Foo;
fn main() -> Int {
    match Foo::Option::Some(42) {
        Foo::Option::Some(x) => x,
        Foo::Option::None => 0,
    }
}
`)

	s := NewSession()
	report := s.CheckModules(entry, ModulesOptions{})
	if !report.OK {
		raw, _ := json.MarshalIndent(report, "", "  ")
		t.Fatalf("check-modules not ok:\n%s", raw)
	}
	if len(report.Modules) != 2 {
		t.Fatalf("module count = %d", len(report.Modules))
	}
}

func TestCheckModulesJSONShape(t *testing.T) {
	dir := t.TempDir()
	entry := writeFile(t, dir, "main.kooix", `fn main() -> Int { unknown() }`)

	s := NewSession()
	report := s.CheckModules(entry, ModulesOptions{})
	if report.OK {
		t.Fatal("broken module reported ok")
	}

	raw, err := json.Marshal(report)
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"ok", "modules", "errors"} {
		if _, present := decoded[key]; !present {
			t.Fatalf("key %q missing from JSON: %s", key, raw)
		}
	}

	modules := decoded["modules"].([]any)
	first := modules[0].(map[string]any)
	diags := first["diagnostics"].([]any)
	if len(diags) == 0 {
		t.Fatalf("no diagnostics in JSON: %s", raw)
	}
	d := diags[0].(map[string]any)
	for _, key := range []string{"severity", "message", "file", "line", "col"} {
		if _, present := d[key]; !present {
			t.Fatalf("diagnostic key %q missing: %s", key, raw)
		}
	}
}

func TestCheckModulesStrictWarnings(t *testing.T) {
	dir := t.TempDir()
	entry := writeFile(t, dir, "main.kooix", `
workflow w(topic: Text) -> Text
    steps {
        s1: missing(topic);
    }
    output { result: Text = topic; };
`)

	s := NewSession()
	relaxed := s.CheckModules(entry, ModulesOptions{})
	if !relaxed.OK {
		raw, _ := json.Marshal(relaxed)
		t.Fatalf("warnings must not fail by default: %s", raw)
	}

	s2 := NewSession()
	strict := s2.CheckModules(entry, ModulesOptions{StrictWarnings: true})
	if strict.OK {
		t.Fatal("strict-warnings did not elevate warnings")
	}
}

// Module-aware and include mode agree on error presence for qualified
// programs.
func TestModuleAwareAgreesWithInclude(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "lib.kooix", `enum Option<T> { Some(T), None };`)
	entry := writeFile(t, dir, "main.kooix", `
import "lib" as Foo;
fn main() -> Int {
    match Foo::Option::Some(42) {
        Foo::Option::Some(x) => x,
        Foo::Option::None => 0,
    }
}
`)

	include := NewSession()
	includeOK := include.Check(entry)

	modules := NewSession()
	report := modules.CheckModules(entry, ModulesOptions{})

	if includeOK != report.OK {
		t.Fatalf("modes disagree: include=%v modules=%v", includeOK, report.OK)
	}
}

// Determinism: two LLVM emissions of the same entry are byte-identical.
func TestEmitLLVMDeterministic(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "lib.kooix", `
enum Option<T> { Some(T), None };
fn helper(n: Int) -> Int { n + 1 }
`)
	entry := writeFile(t, dir, "main.kooix", `
import "lib";
fn main() -> Int {
    let greeting = "hello";
    match Some(helper(1)) {
        Some(v) => v,
        None => 0,
    }
}
`)

	first := NewSession()
	irA, ok := first.EmitLLVM(entry)
	if !ok {
		t.Fatalf("first emission failed: %v", first.Bag().Items())
	}
	second := NewSession()
	irB, ok := second.EmitLLVM(entry)
	if !ok {
		t.Fatalf("second emission failed: %v", second.Bag().Items())
	}
	if irA != irB {
		t.Fatal("emissions differ across invocations")
	}
	if !strings.Contains(irA, "@kx_program_main") {
		t.Fatal("entry point missing from IR")
	}
}

// An agent closed cycle plus an unknown stop-target state warns but
// does not error.
func TestCheckAgentClosedCycleWarns(t *testing.T) {
	dir := t.TempDir()
	entry := writeFile(t, dir, "agent.kooix", `
agent spinner(input: Text) -> Text
    state {
        A -> B;
        B -> A;
    }
    policy { allow_tools ["search"]; }
    loop {
        observe -> act;
        stop when state == C;
    };
`)

	s := NewSession()
	if !s.Check(entry) {
		t.Fatalf("warnings must not fail check: %v", s.Bag().Items())
	}

	var sawCycle, sawUnknownStop bool
	for _, d := range s.Bag().Items() {
		if strings.Contains(d.Message, "closed state cycle") {
			sawCycle = true
		}
		if strings.Contains(d.Message, "unknown state 'C'") {
			sawUnknownStop = true
		}
	}
	if !sawCycle || !sawUnknownStop {
		t.Fatalf("missing warnings (cycle=%v unknownStop=%v): %v",
			sawCycle, sawUnknownStop, s.Bag().Items())
	}
}

func TestPipelineAbortsOnParseError(t *testing.T) {
	dir := t.TempDir()
	entry := writeFile(t, dir, "broken.kooix", `fn main( -> Int;`)

	s := NewSession()
	if _, ok := s.EmitLLVM(entry); ok {
		t.Fatal("emission succeeded on unparsable input")
	}
	if !s.Bag().HasErrors() {
		t.Fatal("no diagnostics recorded")
	}
}
