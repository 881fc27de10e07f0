// Package parser implements the recursive-descent Kooix parser with
// one-token lookahead and shallow backtracking (explicit type arguments
// on calls and record literals only). Error recovery is item-level: a failed item skips to
// the next plausible top-level boundary.
package parser

import (
	"kooix/internal/ast"
	"kooix/internal/diag"
	"kooix/internal/lexer"
	"kooix/internal/source"
	"kooix/internal/token"
)

// Options configure a single-file parse.
type Options struct {
	MaxErrors uint // 0 means unlimited
	Reporter  diag.Reporter
}

// Parser holds the state for parsing one file's token stream.
type Parser struct {
	toks     []token.Token
	pos      int
	file     *source.File
	opts     Options
	errs     uint
	lastSpan source.Span
}

// ParseFile tokenizes and parses a single file into a Program.
func ParseFile(fs *source.FileSet, id source.FileID, opts Options) *ast.Program {
	file := fs.Get(id)
	toks := lexer.Tokenize(file, lexer.Options{Reporter: opts.Reporter})
	return ParseTokens(file, toks, opts)
}

// ParseTokens parses an already-lexed token stream.
func ParseTokens(file *source.File, toks []token.Token, opts Options) *ast.Program {
	p := &Parser{
		toks: toks,
		file: file,
		opts: opts,
	}
	return p.parseProgram()
}

func (p *Parser) parseProgram() *ast.Program {
	program := &ast.Program{}
	for !p.at(token.EOF) && !p.enough() {
		item, ok := p.parseItem()
		if !ok {
			p.resyncTop()
			continue
		}
		program.Items = append(program.Items, item)
	}
	return program
}

// parseItem dispatches on the leading keyword of a top-level declaration.
func (p *Parser) parseItem() (ast.Item, bool) {
	switch p.cur().Kind {
	case token.KwCap:
		return p.parseCapability()
	case token.KwRecord:
		return p.parseRecord()
	case token.KwEnum:
		return p.parseEnum()
	case token.KwFn:
		return p.parseFunction()
	case token.KwWorkflow:
		return p.parseWorkflow()
	case token.KwAgent:
		return p.parseAgent()
	case token.KwImport:
		return p.parseImport()
	default:
		p.err(diag.SynUnexpectedTopLevel,
			"expected top-level declaration, found "+p.cur().Kind.String())
		return nil, false
	}
}

// resyncTop skips to the next `;` at nesting depth zero, or the next
// top-level keyword, so one broken item does not poison the rest.
func (p *Parser) resyncTop() {
	depth := 0
	for !p.at(token.EOF) {
		switch p.cur().Kind {
		case token.LBrace, token.LParen, token.LBracket:
			depth++
		case token.RBrace, token.RParen, token.RBracket:
			if depth > 0 {
				depth--
			}
		case token.Semicolon:
			if depth == 0 {
				p.advance()
				return
			}
		case token.KwCap, token.KwRecord, token.KwEnum, token.KwFn,
			token.KwWorkflow, token.KwAgent, token.KwImport:
			if depth == 0 {
				return
			}
		}
		p.advance()
	}
}

func (p *Parser) cur() token.Token {
	return p.toks[p.pos]
}

func (p *Parser) peekAt(offset int) token.Token {
	idx := p.pos + offset
	if idx >= len(p.toks) {
		return p.toks[len(p.toks)-1] // EOF
	}
	return p.toks[idx]
}

func (p *Parser) at(k token.Kind) bool {
	return p.cur().Kind == k
}

func (p *Parser) advance() token.Token {
	tok := p.cur()
	if tok.Kind != token.EOF {
		p.pos++
		if tok.Kind != token.Invalid {
			p.lastSpan = tok.Span
		}
	}
	return tok
}

// accept consumes the token when it matches.
func (p *Parser) accept(k token.Kind) bool {
	if p.at(k) {
		p.advance()
		return true
	}
	return false
}

// diagSpan picks the best span for a diagnostic: the current token, or
// just past the last consumed token at EOF.
func (p *Parser) diagSpan() source.Span {
	tok := p.cur()
	if tok.Kind == token.EOF && p.lastSpan.End > 0 {
		return source.Span{File: p.lastSpan.File, Start: p.lastSpan.End, End: p.lastSpan.End}
	}
	return tok.Span
}

func (p *Parser) report(code diag.Code, sev diag.Severity, span source.Span, msg string) {
	if sev == diag.SevError {
		p.errs++
	}
	if p.opts.Reporter != nil {
		p.opts.Reporter.Report(diag.Diagnostic{Severity: sev, Code: code, Message: msg, Primary: span})
	}
}

func (p *Parser) err(code diag.Code, msg string) {
	p.report(code, diag.SevError, p.diagSpan(), msg)
}

func (p *Parser) enough() bool {
	return p.opts.MaxErrors != 0 && p.errs >= p.opts.MaxErrors
}

// expect consumes a token of the given kind or reports an error.
func (p *Parser) expect(k token.Kind, code diag.Code, msg string) (token.Token, bool) {
	if p.at(k) {
		return p.advance(), true
	}
	span := p.diagSpan()
	p.report(code, diag.SevError, span, msg+", found "+p.cur().Kind.String())
	return token.Token{Kind: token.Invalid, Span: span}, false
}

func (p *Parser) expectIdent() (string, source.Span, bool) {
	if p.at(token.Ident) {
		tok := p.advance()
		return tok.Text, tok.Span, true
	}
	span := p.diagSpan()
	p.report(diag.SynExpectIdentifier, diag.SevError, span,
		"expected identifier, found "+p.cur().Kind.String())
	return "", span, false
}

func (p *Parser) expectSemicolon() (token.Token, bool) {
	return p.expect(token.Semicolon, diag.SynExpectSemicolon, "expected ';'")
}

// spanFrom covers from a start span to the last consumed token.
func (p *Parser) spanFrom(start source.Span) source.Span {
	return start.Cover(p.lastSpan)
}
