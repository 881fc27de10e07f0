package lexer

import (
	"kooix/internal/diag"
	"kooix/internal/token"
)

// scanNumber scans a decimal integer literal. Kooix has no float, hex, or
// underscore-separated forms.
func (lx *Lexer) scanNumber() token.Token {
	start := lx.cursor.Off
	for !lx.cursor.EOF() && isDec(lx.cursor.Peek()) {
		lx.cursor.Bump()
	}

	// A digit run immediately followed by an identifier character is a
	// malformed literal, not two tokens.
	if !lx.cursor.EOF() && isIdentStart(lx.cursor.Peek()) {
		for !lx.cursor.EOF() && isIdentContinue(lx.cursor.Peek()) {
			lx.cursor.Bump()
		}
		text := string(lx.cursor.Slice(start, lx.cursor.Off))
		lx.report(diag.LexBadNumber, lx.span(start), "malformed number literal '"+text+"'")
		return lx.makeToken(token.Invalid, start, text)
	}

	return lx.makeToken(token.IntLit, start, string(lx.cursor.Slice(start, lx.cursor.Off)))
}
