package lexer

import (
	"strings"

	"kooix/internal/diag"
	"kooix/internal/token"
)

// scanString scans a double-quoted string literal. Supported escapes are
// \n \r \t \" and \\; any other escape is a lexical error.
func (lx *Lexer) scanString() token.Token {
	start := lx.cursor.Off
	lx.cursor.Bump() // opening quote

	var out strings.Builder
	bad := false

	for !lx.cursor.EOF() {
		ch := lx.cursor.Bump()
		switch ch {
		case '"':
			if bad {
				return lx.makeToken(token.Invalid, start, out.String())
			}
			return lx.makeToken(token.StringLit, start, out.String())
		case '\n':
			lx.report(diag.LexUnterminatedString, lx.span(start), "unterminated string literal")
			return lx.makeToken(token.Invalid, start, out.String())
		case '\\':
			if lx.cursor.EOF() {
				lx.report(diag.LexUnterminatedString, lx.span(start), "unterminated string literal")
				return lx.makeToken(token.Invalid, start, out.String())
			}
			esc := lx.cursor.Bump()
			switch esc {
			case 'n':
				out.WriteByte('\n')
			case 'r':
				out.WriteByte('\r')
			case 't':
				out.WriteByte('\t')
			case '"':
				out.WriteByte('"')
			case '\\':
				out.WriteByte('\\')
			default:
				lx.report(diag.LexBadEscape, lx.span(start),
					"unsupported escape '\\"+string(esc)+"' in string literal")
				bad = true
			}
		default:
			out.WriteByte(ch)
		}
	}

	lx.report(diag.LexUnterminatedString, lx.span(start), "unterminated string literal")
	return lx.makeToken(token.Invalid, start, out.String())
}
