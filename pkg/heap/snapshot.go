package heap

import "sync"

// Snapshot is an immutable, fully indexed heap graph: the graph store
// plus all derived tables (post-order, reverse references, dominator
// tree, retained sizes), computed eagerly at construction.
//
// The snapshot exclusively owns its tables; queries borrow them
// read-only. A constructed snapshot is safe for concurrent readers.
type Snapshot struct {
	graph    *Graph
	counters map[string]float64

	order    []NodeID // post-order of reachable nodes, root last
	postIdx  []int32  // node -> post-order index, -1 if unreachable
	reverse  *reverseIndex
	idom     []NodeID
	retained []uint64

	totalObjects int    // reachable nodes with shallow size > 0
	totalShallow uint64 // total shallow bytes of reachable nodes

	typesOnce sync.Once
	typeStats []TypeStats
	names     *nameFormatter
}

// HeapStatistics summarizes a snapshot: live object count, total
// shallow bytes, total retained bytes, and the loader's free-form
// counters passed through verbatim.
type HeapStatistics struct {
	TotalObjects  int
	TotalShallow  uint64
	TotalRetained uint64
	Counters      map[string]float64
}

// NewSnapshot constructs a snapshot from a validated graph and an
// optional counter map (free-form runtime metrics supplied by the
// loader; may be nil).
//
// Construction runs the forward DFS, builds the reverse-reference
// index and the dominator tree, and propagates retained sizes: three
// linear passes plus the dominator build. Memory footprint is O(N+E).
func NewSnapshot(g *Graph, counters map[string]float64) *Snapshot {
	order, _ := postOrder(g)
	rev := buildReverse(g)
	idom, postIdx := buildDominators(g, order, rev)
	retained := computeRetained(g, order, idom)

	objects := 0
	for _, v := range order {
		if g.Size(v) > 0 {
			objects++
		}
	}

	return &Snapshot{
		graph:        g,
		counters:     counters,
		order:        order,
		postIdx:      postIdx,
		reverse:      rev,
		idom:         idom,
		retained:     retained,
		totalObjects: objects,
		totalShallow: retained[g.Root()],
	}
}

// Graph returns the underlying graph store.
func (s *Snapshot) Graph() *Graph { return s.graph }

// NumNodes returns the node count N of the underlying graph.
func (s *Snapshot) NumNodes() int { return s.graph.NumNodes() }

// Root returns the designated root handle.
func (s *Snapshot) Root() NodeID { return s.graph.Root() }

// RetainedSize returns the retained size of node n in bytes: the memory
// that would be reclaimed if n were collected. An out-of-range handle
// panics; query paths assume a validated snapshot.
func (s *Snapshot) RetainedSize(n NodeID) uint64 { return s.retained[n] }

// ShallowSize returns the shallow size of node n in bytes.
func (s *Snapshot) ShallowSize(n NodeID) uint64 { return s.graph.Size(n) }

// ImmediateDominator returns the immediate dominator of n, or
// InvalidNode for the root and for unreachable nodes.
func (s *Snapshot) ImmediateDominator(n NodeID) NodeID { return s.idom[n] }

// Predecessors returns the nodes referencing n directly (its
// retainers). Enumeration order is stable across calls on the same
// snapshot. The slice aliases snapshot storage and must not be
// modified.
func (s *Snapshot) Predecessors(n NodeID) []NodeID {
	return s.reverse.predecessors(n)
}

// PostOrder returns the post-order permutation of the reachable nodes,
// root last. The slice aliases snapshot storage and must not be
// modified.
func (s *Snapshot) PostOrder() []NodeID { return s.order }

// Reachable reports whether n is reachable from the root.
func (s *Snapshot) Reachable(n NodeID) bool { return s.postIdx[n] >= 0 }

// HeapStatistics returns the snapshot's aggregate figures. Placeholder
// nodes (shallow size 0, used for synthetic roots) are excluded from
// the object count; their zero bytes cannot affect the size totals.
func (s *Snapshot) HeapStatistics() HeapStatistics {
	return HeapStatistics{
		TotalObjects:  s.totalObjects,
		TotalShallow:  s.totalShallow,
		TotalRetained: s.retained[s.graph.Root()],
		Counters:      s.counters,
	}
}
