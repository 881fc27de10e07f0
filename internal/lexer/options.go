package lexer

import (
	"kooix/internal/diag"
	"kooix/internal/source"
)

// Options configure a Lexer. Reporter may be nil, in which case lexical
// errors still produce Invalid tokens but are not reported anywhere.
type Options struct {
	Reporter diag.Reporter
}

func (lx *Lexer) report(code diag.Code, span source.Span, msg string) {
	if lx.opts.Reporter != nil {
		diag.Error(lx.opts.Reporter, code, span, msg)
	}
}
