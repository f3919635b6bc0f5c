package heap

import "testing"

// nodeSpec declares one node for test graphs: its type name, shallow
// size, and child handles. Handles are assigned in declaration order.
type nodeSpec struct {
	typ      string
	size     uint64
	children []NodeID
}

func buildTestSnapshot(t *testing.T, nodes []nodeSpec, root NodeID) *Snapshot {
	t.Helper()
	g := buildTestGraph(t, nodes, root)
	return NewSnapshot(g, nil)
}

func buildTestGraph(t *testing.T, nodes []nodeSpec, root NodeID) *Graph {
	t.Helper()
	b := NewBuilder()
	types := make(map[string]TypeID)
	for i, n := range nodes {
		ty, ok := types[n.typ]
		if !ok {
			ty = b.AddType(n.typ)
			types[n.typ] = ty
		}
		b.AddNode(ty, n.size, 0x1000+uint64(i)*0x10, n.children)
	}
	b.SetRoot(root)
	g, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return g
}

func TestSnapshotLinearChain(t *testing.T) {
	// 0(0) -> 1(10) -> 2(20) -> 3(30)
	s := buildTestSnapshot(t, []nodeSpec{
		{typ: "Root", size: 0, children: []NodeID{1}},
		{typ: "A", size: 10, children: []NodeID{2}},
		{typ: "B", size: 20, children: []NodeID{3}},
		{typ: "C", size: 30},
	}, 0)

	wantRetained := []uint64{60, 60, 50, 30}
	for n, want := range wantRetained {
		if got := s.RetainedSize(NodeID(n)); got != want {
			t.Errorf("retained[%d] = %d, want %d", n, got, want)
		}
	}

	wantIdom := []NodeID{InvalidNode, 0, 1, 2}
	for n, want := range wantIdom {
		if got := s.ImmediateDominator(NodeID(n)); got != want {
			t.Errorf("idom[%d] = %d, want %d", n, got, want)
		}
	}
}

func TestSnapshotDiamond(t *testing.T) {
	// 0(0) -> {1(10), 2(10)}; 1 -> 3(100); 2 -> 3
	s := buildTestSnapshot(t, []nodeSpec{
		{typ: "Root", size: 0, children: []NodeID{1, 2}},
		{typ: "Left", size: 10, children: []NodeID{3}},
		{typ: "Right", size: 10, children: []NodeID{3}},
		{typ: "Shared", size: 100},
	}, 0)

	wantRetained := []uint64{120, 10, 10, 100}
	for n, want := range wantRetained {
		if got := s.RetainedSize(NodeID(n)); got != want {
			t.Errorf("retained[%d] = %d, want %d", n, got, want)
		}
	}

	// The shared node is dominated by the root, not either branch.
	if got := s.ImmediateDominator(3); got != 0 {
		t.Errorf("idom[3] = %d, want 0", got)
	}
}

func TestSnapshotCycle(t *testing.T) {
	// 0(0) -> 1(5); 1 -> 2(5); 2 -> 1
	s := buildTestSnapshot(t, []nodeSpec{
		{typ: "Root", size: 0, children: []NodeID{1}},
		{typ: "A", size: 5, children: []NodeID{2}},
		{typ: "B", size: 5, children: []NodeID{1}},
	}, 0)

	wantRetained := []uint64{10, 10, 5}
	for n, want := range wantRetained {
		if got := s.RetainedSize(NodeID(n)); got != want {
			t.Errorf("retained[%d] = %d, want %d", n, got, want)
		}
	}
}

func TestSnapshotSelfLoop(t *testing.T) {
	s := buildTestSnapshot(t, []nodeSpec{
		{typ: "Root", size: 0, children: []NodeID{1}},
		{typ: "A", size: 8, children: []NodeID{1}},
	}, 0)

	if got := s.ImmediateDominator(1); got != 0 {
		t.Errorf("idom[1] = %d, want 0", got)
	}
	if got := s.RetainedSize(0); got != 8 {
		t.Errorf("retained[root] = %d, want 8", got)
	}
}

func TestSnapshotUnreachable(t *testing.T) {
	// Node 2 exists but is not referenced from the root.
	s := buildTestSnapshot(t, []nodeSpec{
		{typ: "Root", size: 0, children: []NodeID{1}},
		{typ: "A", size: 10},
		{typ: "B", size: 99},
	}, 0)

	if s.Reachable(2) {
		t.Error("Reachable(2) = true, want false")
	}
	if got := s.ImmediateDominator(2); got != InvalidNode {
		t.Errorf("idom[2] = %d, want InvalidNode", got)
	}
	if got := s.RetainedSize(0); got != 10 {
		t.Errorf("retained[root] = %d, want 10", got)
	}
	if got := s.HeapStatistics().TotalObjects; got != 1 {
		t.Errorf("TotalObjects = %d, want 1", got)
	}
}

func TestPostOrderProperties(t *testing.T) {
	tests := []struct {
		name  string
		nodes []nodeSpec
		root  NodeID
	}{
		{
			name: "Chain",
			nodes: []nodeSpec{
				{typ: "R", size: 0, children: []NodeID{1}},
				{typ: "A", size: 1, children: []NodeID{2}},
				{typ: "A", size: 1},
			},
			root: 0,
		},
		{
			name: "Diamond",
			nodes: []nodeSpec{
				{typ: "R", size: 0, children: []NodeID{1, 2}},
				{typ: "A", size: 1, children: []NodeID{3}},
				{typ: "A", size: 1, children: []NodeID{3}},
				{typ: "B", size: 1},
			},
			root: 0,
		},
		{
			name: "Cycle",
			nodes: []nodeSpec{
				{typ: "R", size: 0, children: []NodeID{1}},
				{typ: "A", size: 1, children: []NodeID{2}},
				{typ: "A", size: 1, children: []NodeID{1}},
			},
			root: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := buildTestSnapshot(t, tt.nodes, tt.root)
			order := s.PostOrder()

			if got := order[len(order)-1]; got != tt.root {
				t.Errorf("last of post-order = %d, want root %d", got, tt.root)
			}

			seen := make(map[NodeID]bool, len(order))
			for _, v := range order {
				if seen[v] {
					t.Fatalf("node %d appears twice in post-order", v)
				}
				seen[v] = true
			}

			// Every reachable node's dominator appears later.
			pos := make(map[NodeID]int, len(order))
			for i, v := range order {
				pos[v] = i
			}
			for _, v := range order {
				d := s.ImmediateDominator(v)
				if d == InvalidNode {
					continue
				}
				if pos[d] <= pos[v] {
					t.Errorf("idom[%d]=%d at post-order %d, not after %d", v, d, pos[d], pos[v])
				}
			}
		})
	}
}

func TestPostOrderSiblingsAfterVisitedChild(t *testing.T) {
	// Node 3 is reached first through node 1. When the walk later
	// descends into node 2 and sees 3 already visited, it must still
	// continue to sibling 4 rather than abandoning the frame.
	s := buildTestSnapshot(t, []nodeSpec{
		{typ: "R", size: 0, children: []NodeID{1, 2}},
		{typ: "A", size: 1, children: []NodeID{3}},
		{typ: "A", size: 1, children: []NodeID{3, 4}},
		{typ: "B", size: 1},
		{typ: "B", size: 1},
	}, 0)

	order := s.PostOrder()
	if len(order) != 5 {
		t.Fatalf("post-order has %d nodes, want all 5: %v", len(order), order)
	}
	seen := make(map[NodeID]bool, len(order))
	for _, v := range order {
		seen[v] = true
	}
	if !seen[4] {
		t.Errorf("node 4 missing from post-order %v", order)
	}
}

func TestRetainedInvariants(t *testing.T) {
	s := buildTestSnapshot(t, []nodeSpec{
		{typ: "R", size: 0, children: []NodeID{1, 2, 5}},
		{typ: "A", size: 16, children: []NodeID{3}},
		{typ: "A", size: 16, children: []NodeID{3, 4}},
		{typ: "B", size: 24},
		{typ: "B", size: 24, children: []NodeID{1}},
		{typ: "C", size: 8, children: []NodeID{5}},
	}, 0)

	var total uint64
	for _, v := range s.PostOrder() {
		total += s.ShallowSize(v)
		if s.RetainedSize(v) < s.ShallowSize(v) {
			t.Errorf("retained[%d] = %d < shallow %d", v, s.RetainedSize(v), s.ShallowSize(v))
		}
	}
	if got := s.RetainedSize(s.Root()); got != total {
		t.Errorf("retained[root] = %d, want total shallow %d", got, total)
	}

	// A node's retained size never exceeds its dominator's.
	for _, v := range s.PostOrder() {
		d := s.ImmediateDominator(v)
		if d == InvalidNode {
			continue
		}
		if s.RetainedSize(v) > s.RetainedSize(d) {
			t.Errorf("retained[%d] = %d exceeds dominator %d's %d", v, s.RetainedSize(v), d, s.RetainedSize(d))
		}
	}
}

func TestPredecessorsStable(t *testing.T) {
	s := buildTestSnapshot(t, []nodeSpec{
		{typ: "R", size: 0, children: []NodeID{1, 2}},
		{typ: "A", size: 1, children: []NodeID{3}},
		{typ: "A", size: 1, children: []NodeID{3}},
		{typ: "B", size: 1},
	}, 0)

	first := append([]NodeID(nil), s.Predecessors(3)...)
	for i := 0; i < 3; i++ {
		again := s.Predecessors(3)
		if len(again) != len(first) {
			t.Fatalf("predecessors(3) len = %d, want %d", len(again), len(first))
		}
		for j := range again {
			if again[j] != first[j] {
				t.Errorf("predecessors(3)[%d] = %d, want %d", j, again[j], first[j])
			}
		}
	}

	if len(first) != 2 || first[0] != 1 || first[1] != 2 {
		t.Errorf("predecessors(3) = %v, want [1 2]", first)
	}
}

func TestHeapStatistics(t *testing.T) {
	counters := map[string]float64{"gc.collections": 12}
	g := buildTestGraph(t, []nodeSpec{
		{typ: "R", size: 0, children: []NodeID{1, 2}},
		{typ: "A", size: 100},
		{typ: "B", size: 50},
	}, 0)
	s := NewSnapshot(g, counters)

	stats := s.HeapStatistics()
	if stats.TotalObjects != 2 {
		t.Errorf("TotalObjects = %d, want 2", stats.TotalObjects)
	}
	if stats.TotalShallow != 150 {
		t.Errorf("TotalShallow = %d, want 150", stats.TotalShallow)
	}
	if stats.TotalRetained != 150 {
		t.Errorf("TotalRetained = %d, want 150", stats.TotalRetained)
	}
	if stats.Counters["gc.collections"] != 12 {
		t.Errorf("Counters[gc.collections] = %v, want 12", stats.Counters["gc.collections"])
	}
}
