package lexer

import (
	"kooix/internal/token"
)

func (lx *Lexer) scanIdentOrKeyword() token.Token {
	start := lx.cursor.Off
	for !lx.cursor.EOF() && isIdentContinue(lx.cursor.Peek()) {
		lx.cursor.Bump()
	}

	text := string(lx.cursor.Slice(start, lx.cursor.Off))
	kind := token.LookupKeyword(text)
	if kind != token.Ident {
		return lx.makeToken(kind, start, "")
	}
	return lx.makeToken(token.Ident, start, text)
}
