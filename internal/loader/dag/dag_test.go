package dag

import (
	"testing"
)

func TestToposortLinear(t *testing.T) {
	g := NewGraph(3)
	g.AddEdge(0, 1)
	g.AddEdge(1, 2)

	topo := ToposortKahn(g)
	if topo.Cyclic {
		t.Fatal("linear graph reported cyclic")
	}
	want := []ModuleID{0, 1, 2}
	for i, id := range want {
		if topo.Order[i] != id {
			t.Fatalf("order = %v, want %v", topo.Order, want)
		}
	}
}

func TestToposortBatches(t *testing.T) {
	// 0 -> 2, 1 -> 2: nodes 0 and 1 are an independent first wave.
	g := NewGraph(3)
	g.AddEdge(0, 2)
	g.AddEdge(1, 2)

	topo := ToposortKahn(g)
	if len(topo.Batches) != 2 {
		t.Fatalf("batch count = %d", len(topo.Batches))
	}
	if len(topo.Batches[0]) != 2 || topo.Batches[0][0] != 0 || topo.Batches[0][1] != 1 {
		t.Fatalf("first batch = %v", topo.Batches[0])
	}
	if len(topo.Batches[1]) != 1 || topo.Batches[1][0] != 2 {
		t.Fatalf("second batch = %v", topo.Batches[1])
	}
}

func TestToposortCycle(t *testing.T) {
	g := NewGraph(3)
	g.AddEdge(0, 1)
	g.AddEdge(1, 0)
	g.AddEdge(0, 2)

	topo := ToposortKahn(g)
	if !topo.Cyclic {
		t.Fatal("cycle not detected")
	}
	if len(topo.Cycles) < 2 {
		t.Fatalf("cycle nodes = %v", topo.Cycles)
	}
}

func TestDuplicateEdgeIgnored(t *testing.T) {
	g := NewGraph(2)
	g.AddEdge(0, 1)
	g.AddEdge(0, 1)
	if g.Indeg[1] != 1 {
		t.Fatalf("indeg = %d after duplicate edge", g.Indeg[1])
	}
}
