// Package ast defines the Kooix syntax tree. The node sets are closed
// sums: every Item, Expr, Stmt, and Pattern variant is declared here and
// consumers are expected to switch exhaustively over them.
package ast

import (
	"kooix/internal/source"
)

// node carries the source span shared by every syntax node.
type node struct {
	Loc source.Span
}

// Span returns the source range covered by the node.
func (n node) Span() source.Span { return n.Loc }

// Node is implemented by every syntax node.
type Node interface {
	Span() source.Span
}

// Program is the ordered item list of a single module.
type Program struct {
	Items []Item
}

// Item is a top-level declaration.
type Item interface {
	Node
	isItem()
}

func (*CapabilityDecl) isItem() {}
func (*RecordDecl) isItem()     {}
func (*EnumDecl) isItem()       {}
func (*FunctionDecl) isItem()   {}
func (*WorkflowDecl) isItem()   {}
func (*AgentDecl) isItem()      {}
func (*ImportDecl) isItem()     {}

// Imports returns the module's import declarations in source order.
func (p *Program) Imports() []*ImportDecl {
	var out []*ImportDecl
	for _, item := range p.Items {
		if imp, ok := item.(*ImportDecl); ok {
			out = append(out, imp)
		}
	}
	return out
}
