// Package dag provides the module graph used by the loader: directed
// import edges between modules, Kahn toposort with independent batches,
// and cycle detection.
package dag

import (
	"fmt"

	"fortio.org/safecast"
)

// ModuleID indexes a module inside a Graph.
type ModuleID uint32

// Graph is a dense directed graph over module ids. Edges point from a
// module to its importers, so the topological order yields dependencies
// before dependents.
type Graph struct {
	Edges [][]ModuleID // adjacency: Edges[from] = successors
	Indeg []int
}

// NewGraph creates a graph with n nodes and no edges.
func NewGraph(n int) *Graph {
	return &Graph{
		Edges: make([][]ModuleID, n),
		Indeg: make([]int, n),
	}
}

// AddEdge inserts from -> to, ignoring duplicates.
func (g *Graph) AddEdge(from, to ModuleID) {
	for _, existing := range g.Edges[from] {
		if existing == to {
			return
		}
	}
	g.Edges[from] = append(g.Edges[from], to)
	g.Indeg[to]++
}

// Len reports the number of nodes.
func (g *Graph) Len() int {
	return len(g.Edges)
}

func convID(i int) ModuleID {
	id, err := safecast.Conv[ModuleID](i)
	if err != nil {
		panic(fmt.Errorf("module id overflow: %w", err))
	}
	return id
}
