package parser

import (
	"testing"

	"kooix/internal/ast"
	"kooix/internal/diag"
	"kooix/internal/source"
)

func parse(t *testing.T, input string) (*ast.Program, *diag.Bag) {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("test.kooix", []byte(input))
	reporter := diag.NewBagReporter(100)
	program := ParseFile(fs, id, Options{Reporter: reporter})
	return program, reporter.Bag
}

func parseOK(t *testing.T, input string) *ast.Program {
	t.Helper()
	program, bag := parse(t, input)
	if bag.HasErrors() {
		t.Fatalf("unexpected parse errors: %v", bag.Items())
	}
	return program
}

func TestParseCapability(t *testing.T) {
	program := parseOK(t, `cap Model<"openai", "gpt-4", 1000>;`)
	if len(program.Items) != 1 {
		t.Fatalf("item count = %d", len(program.Items))
	}
	decl, ok := program.Items[0].(*ast.CapabilityDecl)
	if !ok {
		t.Fatalf("item is %T", program.Items[0])
	}
	if got := decl.Capability.String(); got != `Model<"openai", "gpt-4", 1000>` {
		t.Fatalf("capability = %s", got)
	}
}

func TestParseFunctionWithContracts(t *testing.T) {
	program := parseOK(t, `
cap Model<"openai", "gpt", 1000>;
fn summarize(text: Text) -> Text
    intent "Summarize the given text"
    !{model(openai)}
    requires [Model<"openai", "gpt", 1000>]
    ensures [output.len <= 500]
    failure { timeout -> retry(backoff, max=3); }
    evidence { trace "run"; metrics [latency, tokens]; };
`)
	if len(program.Items) != 2 {
		t.Fatalf("item count = %d", len(program.Items))
	}
	fn, ok := program.Items[1].(*ast.FunctionDecl)
	if !ok {
		t.Fatalf("item is %T", program.Items[1])
	}
	if fn.Name != "summarize" || fn.Intent == nil || len(fn.Effects) != 1 ||
		len(fn.Requires) != 1 || len(fn.Ensures) != 1 || fn.Failure == nil || fn.Evidence == nil {
		t.Fatalf("contract blocks not all captured: %+v", fn)
	}
	if fn.Effects[0].Name != "model" || fn.Effects[0].Argument != "openai" {
		t.Fatalf("effect = %+v", fn.Effects[0])
	}
	if fn.Failure.Rules[0].Action.Name != "retry" || len(fn.Failure.Rules[0].Action.Args) != 2 {
		t.Fatalf("failure action = %+v", fn.Failure.Rules[0].Action)
	}
}

func TestParseContractBlocksAnyOrder(t *testing.T) {
	program := parseOK(t, `fn f() -> Int requires [Io] !{io} intent "io fn";
cap Io;`)
	fn := program.Items[0].(*ast.FunctionDecl)
	if fn.Intent == nil || len(fn.Effects) != 1 || len(fn.Requires) != 1 {
		t.Fatalf("out-of-order contract blocks not parsed: %+v", fn)
	}
}

func TestParseDuplicateContractBlock(t *testing.T) {
	_, bag := parse(t, `fn f() -> Int intent "a" intent "b";`)
	if !bag.HasErrors() {
		t.Fatal("expected duplicate-intent error")
	}
	if bag.Items()[0].Code != diag.SynDuplicateContractBlock {
		t.Fatalf("code = %v", bag.Items()[0].Code)
	}
}

func TestParseFunctionBody(t *testing.T) {
	program := parseOK(t, `
fn main() -> Int {
    let x = 1;
    let y: Int = x + 2;
    x = y;
    if x == 3 {
        return x;
    }
    while x != 10 {
        x = x + 1;
    }
    x
}`)
	fn := program.Items[0].(*ast.FunctionDecl)
	if fn.Body == nil {
		t.Fatal("body missing")
	}
	if len(fn.Body.Stmts) != 5 {
		t.Fatalf("stmt count = %d", len(fn.Body.Stmts))
	}
	if _, ok := fn.Body.Tail.(*ast.PathExpr); !ok {
		t.Fatalf("tail = %T", fn.Body.Tail)
	}
	let := fn.Body.Stmts[1].(*ast.LetStmt)
	if let.Type == nil || let.Type.Name != "Int" {
		t.Fatalf("let type = %v", let.Type)
	}
}

func TestParseMatch(t *testing.T) {
	program := parseOK(t, `
fn pick(o: Option<Int>) -> Int {
    match o {
        Some(x) => x,
        Option::None => 0,
        _ => 1,
    }
}`)
	fn := program.Items[0].(*ast.FunctionDecl)
	m := fn.Body.Tail.(*ast.MatchExpr)
	if len(m.Arms) != 3 {
		t.Fatalf("arm count = %d", len(m.Arms))
	}
	if m.Arms[0].Pattern.Kind != ast.PatternVariant || m.Arms[0].Pattern.Bind != "x" {
		t.Fatalf("arm 0 pattern = %+v", m.Arms[0].Pattern)
	}
	if got := m.Arms[1].Pattern.Path; len(got) != 2 || got[0] != "Option" || got[1] != "None" {
		t.Fatalf("arm 1 path = %v", got)
	}
	if m.Arms[2].Pattern.Kind != ast.PatternWildcard {
		t.Fatalf("arm 2 pattern = %+v", m.Arms[2].Pattern)
	}
}

func TestParseExplicitTypeArgs(t *testing.T) {
	program := parseOK(t, `fn main() -> Int { wrap<Int>(1) }`)
	fn := program.Items[0].(*ast.FunctionDecl)
	call := fn.Body.Tail.(*ast.CallExpr)
	if len(call.TypeArgs) != 1 || call.TypeArgs[0].Name != "Int" {
		t.Fatalf("type args = %v", call.TypeArgs)
	}
}

func TestComparisonInExpressionRejected(t *testing.T) {
	_, bag := parse(t, `fn main() -> Bool { 1 < 2 }`)
	if !bag.HasErrors() {
		t.Fatal("expected comparison rejection")
	}
	found := false
	for _, d := range bag.Items() {
		if d.Code == diag.SynComparisonOutsidePredicate {
			found = true
		}
	}
	if !found {
		t.Fatalf("no SynComparisonOutsidePredicate in %v", bag.Items())
	}
}

func TestRecordLiteralNeedsParensInCondition(t *testing.T) {
	// `if p { ... }` treats `{` as the then-block; the record literal form
	// must be parenthesized.
	parseOK(t, `
record Point { x: Int; y: Int; };
fn main() -> Int {
    let p = Point { x: 1, y: 2 };
    if (Point { x: 1, y: 2 }) == p { 1 } else { 0 }
}`)
}

func TestParseRecordGenericsAndWhere(t *testing.T) {
	program := parseOK(t, `record Pair<T: Show, U> where [U: Ord] { first: T; second: U; };`)
	decl := program.Items[0].(*ast.RecordDecl)
	if len(decl.Generics) != 2 {
		t.Fatalf("generic count = %d", len(decl.Generics))
	}
	if len(decl.Generics[0].Bounds) != 1 || decl.Generics[0].Bounds[0].Name != "Show" {
		t.Fatalf("T bounds = %v", decl.Generics[0].Bounds)
	}
	if len(decl.Generics[1].Bounds) != 1 || decl.Generics[1].Bounds[0].Name != "Ord" {
		t.Fatalf("U bounds (where-merged) = %v", decl.Generics[1].Bounds)
	}
}

func TestParseEnum(t *testing.T) {
	program := parseOK(t, `enum Option<T> { Some(T), None };`)
	decl := program.Items[0].(*ast.EnumDecl)
	if len(decl.Variants) != 2 {
		t.Fatalf("variant count = %d", len(decl.Variants))
	}
	if decl.Variants[0].Payload == nil || decl.Variants[0].Payload.Name != "T" {
		t.Fatalf("Some payload = %v", decl.Variants[0].Payload)
	}
	if decl.Variants[1].Payload != nil {
		t.Fatal("None should have no payload")
	}
}

func TestParseImports(t *testing.T) {
	program := parseOK(t, `
import "lib/util";
import "lib/shapes" as Shapes;
`)
	imports := program.Imports()
	if len(imports) != 2 {
		t.Fatalf("import count = %d", len(imports))
	}
	if imports[0].Alias != "" || imports[1].Alias != "Shapes" {
		t.Fatalf("aliases = %q %q", imports[0].Alias, imports[1].Alias)
	}
}

func TestParseWorkflow(t *testing.T) {
	program := parseOK(t, `
workflow research(topic: Text) -> Text
    intent "Research a topic"
    steps {
        gather: fetch(topic) on_fail -> retry(backoff, max=2);
        summary: summarize(gather.body) ensures [output.len <= 500];
    }
    output {
        summary: Text = summary;
        raw: Text;
    };
`)
	decl := program.Items[0].(*ast.WorkflowDecl)
	if len(decl.Steps) != 2 {
		t.Fatalf("step count = %d", len(decl.Steps))
	}
	if decl.Steps[0].OnFail == nil || decl.Steps[0].OnFail.Name != "retry" {
		t.Fatalf("on_fail = %+v", decl.Steps[0].OnFail)
	}
	if len(decl.Steps[1].Ensures) != 1 {
		t.Fatalf("step ensures = %+v", decl.Steps[1].Ensures)
	}
	arg := decl.Steps[1].Call.Args[0]
	if arg.Kind != ast.WorkflowArgPath || len(arg.Segments) != 2 {
		t.Fatalf("call arg = %+v", arg)
	}
	if len(decl.Output) != 2 || decl.Output[0].Source == nil || decl.Output[1].Source != nil {
		t.Fatalf("output = %+v", decl.Output)
	}
}

func TestParseAgent(t *testing.T) {
	program := parseOK(t, `
agent triage(ticket: Text) -> Text
    intent "Route a ticket"
    state {
        INIT -> CLASSIFY;
        CLASSIFY -> ROUTE, ESCALATE;
        any -> FAILED;
        ROUTE -> DONE;
    }
    policy {
        allow_tools ["search", "route"];
        deny_tools ["delete"];
        max_iterations = 10;
        human_in_loop when state == ESCALATE;
    }
    loop {
        observe -> decide -> act;
        stop when state == DONE;
    };
`)
	decl := program.Items[0].(*ast.AgentDecl)
	if len(decl.StateRules) != 4 {
		t.Fatalf("state rule count = %d", len(decl.StateRules))
	}
	if decl.StateRules[2].From != "any" {
		t.Fatalf("wildcard rule = %+v", decl.StateRules[2])
	}
	if decl.Policy.MaxIterations != "10" || decl.Policy.HumanInLoopWhen == nil {
		t.Fatalf("policy = %+v", decl.Policy)
	}
	if len(decl.Loop.Stages) != 3 {
		t.Fatalf("loop stages = %v", decl.Loop.Stages)
	}
	if decl.Loop.StopWhen.Left.Root() != "state" {
		t.Fatalf("stop when = %+v", decl.Loop.StopWhen)
	}
}

func TestItemLevelRecovery(t *testing.T) {
	program, bag := parse(t, `
fn broken( -> Int;
fn ok() -> Int { 1 }
`)
	if !bag.HasErrors() {
		t.Fatal("expected error from broken item")
	}
	found := false
	for _, item := range program.Items {
		if fn, ok := item.(*ast.FunctionDecl); ok && fn.Name == "ok" {
			found = true
		}
	}
	if !found {
		t.Fatal("parser did not recover to parse the following item")
	}
}
