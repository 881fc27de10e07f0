package lexer

import (
	"testing"

	"kooix/internal/diag"
	"kooix/internal/source"
	"kooix/internal/token"
)

func tokenize(t *testing.T, input string) ([]token.Token, *diag.Bag) {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("test.kooix", []byte(input))
	reporter := diag.NewBagReporter(100)
	toks := Tokenize(fs.Get(id), Options{Reporter: reporter})
	return toks, reporter.Bag
}

func kinds(toks []token.Token) []token.Kind {
	out := make([]token.Kind, 0, len(toks))
	for _, tok := range toks {
		out = append(out, tok.Kind)
	}
	return out
}

func TestTokenizeFunctionHeader(t *testing.T) {
	toks, bag := tokenize(t, `fn main() -> Int { return 42; }`)
	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Items())
	}

	want := []token.Kind{
		token.KwFn, token.Ident, token.LParen, token.RParen, token.Arrow,
		token.Ident, token.LBrace, token.KwReturn, token.IntLit,
		token.Semicolon, token.RBrace, token.EOF,
	}
	got := kinds(toks)
	if len(got) != len(want) {
		t.Fatalf("token count = %d, want %d (%v)", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestLongestMatchOperators(t *testing.T) {
	toks, bag := tokenize(t, `:: -> => == != <= >= !{ .. < > ! = . :`)
	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Items())
	}
	want := []token.Kind{
		token.ColonColon, token.Arrow, token.FatArrow, token.EqEq, token.NotEq,
		token.LtEq, token.GtEq, token.BangBrace, token.DotDot, token.Lt,
		token.Gt, token.Bang, token.Eq, token.Dot, token.Colon, token.EOF,
	}
	got := kinds(toks)
	if len(got) != len(want) {
		t.Fatalf("token count = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestStringEscapes(t *testing.T) {
	toks, bag := tokenize(t, `"a\n\t\"b\\"`)
	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Items())
	}
	if toks[0].Kind != token.StringLit {
		t.Fatalf("kind = %v", toks[0].Kind)
	}
	if toks[0].Text != "a\n\t\"b\\" {
		t.Fatalf("text = %q", toks[0].Text)
	}
}

func TestBadEscape(t *testing.T) {
	toks, bag := tokenize(t, `"a\q"`)
	if !bag.HasErrors() {
		t.Fatal("expected bad escape error")
	}
	if toks[0].Kind != token.Invalid {
		t.Fatalf("kind = %v, want Invalid", toks[0].Kind)
	}
	if bag.Items()[0].Code != diag.LexBadEscape {
		t.Fatalf("code = %v", bag.Items()[0].Code)
	}
}

func TestUnterminatedString(t *testing.T) {
	_, bag := tokenize(t, `"never closed`)
	if !bag.HasErrors() {
		t.Fatal("expected unterminated string error")
	}
	if bag.Items()[0].Code != diag.LexUnterminatedString {
		t.Fatalf("code = %v", bag.Items()[0].Code)
	}
}

func TestUnknownChar(t *testing.T) {
	_, bag := tokenize(t, `fn @`)
	if !bag.HasErrors() {
		t.Fatal("expected unknown char error")
	}
	if bag.Items()[0].Code != diag.LexUnknownChar {
		t.Fatalf("code = %v", bag.Items()[0].Code)
	}
}

func TestCommentsSkipped(t *testing.T) {
	toks, bag := tokenize(t, "// leading\nlet x = 1; // trailing\n")
	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Items())
	}
	want := []token.Kind{token.KwLet, token.Ident, token.Eq, token.IntLit, token.Semicolon, token.EOF}
	got := kinds(toks)
	if len(got) != len(want) {
		t.Fatalf("token count = %d, want %d", len(got), len(want))
	}
}

func TestSpansMonotonic(t *testing.T) {
	toks, _ := tokenize(t, `workflow w(x: Int) -> Int { steps { s1: f(x); } };`)
	var prev uint32
	for i, tok := range toks {
		if tok.Span.Start < prev {
			t.Fatalf("token %d span start %d went backwards (prev %d)", i, tok.Span.Start, prev)
		}
		prev = tok.Span.Start
	}
}

// Round-trip property: serializing tokens with single spaces between them
// re-lexes to the same kind/text sequence.
func TestRoundTrip(t *testing.T) {
	input := `cap Model<"openai", "gpt", 1000>;
fn fetch(q: Text) -> Int !{model(openai)} requires [Model<"openai", "gpt", 1000>];
fn main() -> Int { let x = 1; x = x + 1; return x; }`

	first, bag := tokenize(t, input)
	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Items())
	}

	rendered := ""
	for _, tok := range first {
		if tok.Kind == token.EOF {
			break
		}
		rendered += renderToken(tok) + " "
	}

	second, bag2 := tokenize(t, rendered)
	if bag2.HasErrors() {
		t.Fatalf("re-lex errors: %v", bag2.Items())
	}
	if len(first) != len(second) {
		t.Fatalf("token count changed: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Kind != second[i].Kind || first[i].Text != second[i].Text {
			t.Errorf("token %d: %v %q vs %v %q",
				i, first[i].Kind, first[i].Text, second[i].Kind, second[i].Text)
		}
	}
}

func renderToken(tok token.Token) string {
	switch tok.Kind {
	case token.Ident, token.IntLit:
		return tok.Text
	case token.StringLit:
		out := `"`
		for _, r := range tok.Text {
			switch r {
			case '\n':
				out += `\n`
			case '\r':
				out += `\r`
			case '\t':
				out += `\t`
			case '"':
				out += `\"`
			case '\\':
				out += `\\`
			default:
				out += string(r)
			}
		}
		return out + `"`
	default:
		name := tok.Kind.String()
		// Kind names are quoted ('fn'); strip the quotes for rendering.
		if len(name) >= 2 && name[0] == '\'' && name[len(name)-1] == '\'' {
			return name[1 : len(name)-1]
		}
		return name
	}
}
