package diag

import (
	"kooix/internal/source"
)

// Reporter receives diagnostics as stages produce them.
type Reporter interface {
	Report(d Diagnostic)
}

// BagReporter collects diagnostics into a Bag.
type BagReporter struct {
	Bag *Bag
}

func NewBagReporter(max int) *BagReporter {
	return &BagReporter{Bag: NewBag(max)}
}

func (r *BagReporter) Report(d Diagnostic) {
	r.Bag.Add(d)
}

// Error is a convenience for reporting an error-severity diagnostic.
func Error(r Reporter, code Code, span source.Span, msg string) {
	r.Report(Diagnostic{Severity: SevError, Code: code, Message: msg, Primary: span})
}

// Warning is a convenience for reporting a warning-severity diagnostic.
func Warning(r Reporter, code Code, span source.Span, msg string) {
	r.Report(Diagnostic{Severity: SevWarning, Code: code, Message: msg, Primary: span})
}
