package dag

import (
	"slices"
)

// Topo is the result of a Kahn toposort.
type Topo struct {
	Order   []ModuleID   // linear order
	Batches [][]ModuleID // waves of mutually independent modules
	Cyclic  bool
	Cycles  []ModuleID // nodes on or downstream of a cycle
}

// ToposortKahn runs Kahn's algorithm, collecting each wave of
// zero-indegree nodes as a batch (sorted for determinism). Nodes left
// with positive indegree afterwards lie on a cycle or downstream of one.
func ToposortKahn(g *Graph) *Topo {
	nodeCount := g.Len()
	indeg := make([]int, nodeCount)
	copy(indeg, g.Indeg)

	topo := &Topo{
		Order:   make([]ModuleID, 0, nodeCount),
		Batches: make([][]ModuleID, 0),
	}

	current := make([]ModuleID, 0, nodeCount)
	for i := range nodeCount {
		if indeg[i] == 0 {
			current = append(current, convID(i))
		}
	}
	slices.Sort(current)

	visited := 0
	for len(current) > 0 {
		batch := make([]ModuleID, len(current))
		copy(batch, current)
		topo.Batches = append(topo.Batches, batch)

		next := make([]ModuleID, 0)
		for _, id := range batch {
			topo.Order = append(topo.Order, id)
			visited++
			for _, to := range g.Edges[int(id)] {
				indeg[int(to)]--
				if indeg[int(to)] == 0 {
					next = append(next, to)
				}
			}
		}
		slices.Sort(next)
		current = next
	}

	if visited != nodeCount {
		topo.Cyclic = true
		for i := range nodeCount {
			if indeg[i] > 0 {
				topo.Cycles = append(topo.Cycles, convID(i))
			}
		}
		slices.Sort(topo.Cycles)
	}

	return topo
}
