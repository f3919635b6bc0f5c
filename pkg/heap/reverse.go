package heap

// reverseIndex is the predecessor (retainer) index: for every node, the
// handles of the nodes that reference it directly. It is the exact
// multiset inverse of the forward child relation, stored in CSR form:
// node n's predecessors occupy preds[offsets[n]:offsets[n+1]].
//
// The index is a separate table, not a back-pointer inside the node;
// both forward and reverse edges borrow handles from the graph store.
type reverseIndex struct {
	offsets []int32
	preds   []NodeID
}

// buildReverse constructs the predecessor index in two linear passes
// over the forward edges: one counting pass to size each bucket and one
// fill pass to place the predecessors. O(N+E) time and storage.
//
// Within a bucket, predecessors appear in ascending order of their
// forward-edge position, so enumeration order is stable across repeated
// calls on the same graph.
func buildReverse(g *Graph) *reverseIndex {
	n := g.NumNodes()
	offsets := make([]int32, n+1)

	for _, c := range g.children {
		offsets[c+1]++
	}
	for i := 0; i < n; i++ {
		offsets[i+1] += offsets[i]
	}

	preds := make([]NodeID, len(g.children))
	cursor := make([]int32, n)
	for p := NodeID(0); int(p) < n; p++ {
		for _, c := range g.Children(p) {
			preds[offsets[c]+cursor[c]] = p
			cursor[c]++
		}
	}

	return &reverseIndex{offsets: offsets, preds: preds}
}

// predecessors returns the nodes that reference n directly. The slice
// aliases the index's storage and must not be modified.
func (r *reverseIndex) predecessors(n NodeID) []NodeID {
	return r.preds[r.offsets[n]:r.offsets[n+1]]
}
