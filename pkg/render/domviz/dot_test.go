package domviz

import (
	"strings"
	"testing"

	"github.com/matzehuels/heapscope/pkg/heap"
)

// buildTestSnapshot builds a small snapshot:
//
//	0 Root(0) -> 1 Cache(64) -> {2 String(24), 3 String(32)}
func buildTestSnapshot(t *testing.T) *heap.Snapshot {
	t.Helper()
	b := heap.NewBuilder()
	root := b.AddType("Root")
	cache := b.AddType("MyApp.Cache")
	str := b.AddType("System.String")

	b.AddNode(root, 0, 0x1000, []heap.NodeID{1})
	b.AddNode(cache, 64, 0x1010, []heap.NodeID{2, 3})
	b.AddNode(str, 24, 0x1020, nil)
	b.AddNode(str, 32, 0x1030, nil)
	b.SetRoot(0)

	g, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return heap.NewSnapshot(g, nil)
}

func TestToDOT(t *testing.T) {
	s := buildTestSnapshot(t)

	dot := ToDOT(s, Options{})

	if !strings.HasPrefix(dot, "digraph dominators {") {
		t.Errorf("DOT should start with digraph header, got:\n%s", dot)
	}
	if !strings.HasSuffix(strings.TrimSpace(dot), "}") {
		t.Error("DOT should end with a closing brace")
	}

	// Every node appears with its display name, address and retained size.
	for _, want := range []string{"Cache", "0x1010", "retains"} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q:\n%s", want, dot)
		}
	}

	// Dominator edges: root -> cache, cache -> both strings.
	for _, edge := range []string{"0 -> 1;", "1 -> 2;", "1 -> 3;"} {
		if !strings.Contains(dot, edge) {
			t.Errorf("DOT missing edge %q:\n%s", edge, dot)
		}
	}
}

func TestToDOTDepthLimit(t *testing.T) {
	s := buildTestSnapshot(t)

	dot := ToDOT(s, Options{Depth: 1})

	if !strings.Contains(dot, "0 -> 1;") {
		t.Error("depth 1 should include the first level")
	}
	if strings.Contains(dot, "1 -> 2;") {
		t.Error("depth 1 should not include the second level")
	}
}

func TestToDOTSubtreeRoot(t *testing.T) {
	s := buildTestSnapshot(t)

	dot := ToDOT(s, Options{Root: 1})

	if strings.Contains(dot, "0 [") {
		t.Error("subtree render should not include the snapshot root")
	}
	for _, edge := range []string{"1 -> 2;", "1 -> 3;"} {
		if !strings.Contains(dot, edge) {
			t.Errorf("DOT missing edge %q:\n%s", edge, dot)
		}
	}
}

func TestToDOTFoldsFanout(t *testing.T) {
	b := heap.NewBuilder()
	root := b.AddType("Root")
	item := b.AddType("Item")

	children := make([]heap.NodeID, 12)
	for i := range children {
		children[i] = heap.NodeID(i + 1)
	}
	b.AddNode(root, 0, 0x1000, children)
	for i := range children {
		b.AddNode(item, 8, 0x2000+uint64(i)*0x10, nil)
	}
	b.SetRoot(0)

	g, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	s := heap.NewSnapshot(g, nil)

	dot := ToDOT(s, Options{MaxChildren: 10})

	if !strings.Contains(dot, "more_0") {
		t.Errorf("fanout above the cap should fold into a summary node:\n%s", dot)
	}
	if !strings.Contains(dot, "2 more") {
		t.Errorf("summary node should carry the folded count:\n%s", dot)
	}
}
