// Package diagfmt renders diagnostics for humans (colored text) and
// machines (the check-modules JSON shape is assembled in the driver from
// the positions resolved here).
package diagfmt

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"kooix/internal/diag"
	"kooix/internal/source"
)

var (
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	infoColor    = color.New(color.FgCyan)
)

// Position is a resolved diagnostic location.
type Position struct {
	File string
	Line uint32
	Col  uint32
}

// Resolve maps a diagnostic's primary span to a file/line/col position.
func Resolve(fs *source.FileSet, d *diag.Diagnostic) Position {
	if fs == nil || fs.Len() == 0 || int(d.Primary.File) >= fs.Len() {
		return Position{File: "<unknown>", Line: 1, Col: 1}
	}
	file := fs.Get(d.Primary.File)
	start, _ := fs.Resolve(d.Primary)
	return Position{File: file.Path, Line: start.Line, Col: start.Col}
}

// RenderText renders one diagnostic in the canonical
// `<path>:<line>:<col>: <severity>: <message>` form.
func RenderText(fs *source.FileSet, d *diag.Diagnostic, colorize bool) string {
	pos := Resolve(fs, d)
	severity := d.Severity.Label()
	if colorize {
		switch d.Severity {
		case diag.SevError:
			severity = errorColor.Sprint(severity)
		case diag.SevWarning:
			severity = warningColor.Sprint(severity)
		default:
			severity = infoColor.Sprint(severity)
		}
	}
	return fmt.Sprintf("%s:%d:%d: %s: %s", pos.File, pos.Line, pos.Col, severity, d.Message)
}

// WriteBag renders a sorted bag to w, one diagnostic per line.
func WriteBag(w io.Writer, fs *source.FileSet, bag *diag.Bag, colorize bool) {
	bag.Sort()
	for i := range bag.Items() {
		fmt.Fprintln(w, RenderText(fs, &bag.Items()[i], colorize))
	}
}
