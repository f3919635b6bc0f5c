package heap

// buildDominators assigns every reachable non-root node its immediate
// dominator: the closest strict ancestor through which every path from
// the root must pass. The root and all unreachable nodes map to
// InvalidNode.
//
// The implementation is the iterative data-flow algorithm of Cooper,
// Harvey and Kennedy ("A Simple, Fast Dominance Algorithm", 2001),
// running over the post-order produced by the forward DFS. Iteration
// proceeds in reverse post-order until a fixed point; for heap graphs
// convergence is near-linear in practice. Self-edges carry no dominance
// information and are skipped. All auxiliary state is O(N) flat arrays,
// and the result is deterministic under fixed child order.
func buildDominators(g *Graph, order []NodeID, rev *reverseIndex) (idom []NodeID, postIdx []int32) {
	n := g.NumNodes()

	postIdx = make([]int32, n)
	for i := range postIdx {
		postIdx[i] = -1
	}
	for i, v := range order {
		postIdx[v] = int32(i)
	}

	idom = make([]NodeID, n)
	for i := range idom {
		idom[i] = InvalidNode
	}

	root := g.Root()
	// The root temporarily dominates itself so intersect walks can
	// terminate at it.
	idom[root] = root

	for changed := true; changed; {
		changed = false
		// Reverse post-order, root (the last entry) excluded.
		for i := len(order) - 2; i >= 0; i-- {
			b := order[i]

			newIdom := InvalidNode
			for _, p := range rev.predecessors(b) {
				if p == b {
					continue
				}
				if postIdx[p] < 0 || idom[p] == InvalidNode {
					// Unreachable, or not yet processed this round.
					continue
				}
				if newIdom == InvalidNode {
					newIdom = p
				} else {
					newIdom = intersect(p, newIdom, postIdx, idom)
				}
			}

			if newIdom != InvalidNode && idom[b] != newIdom {
				idom[b] = newIdom
				changed = true
			}
		}
	}

	idom[root] = InvalidNode
	return idom, postIdx
}

// intersect walks two dominator-tree fingers upward until they meet,
// using post-order indices as the height measure. Lower post-order
// index means deeper in the DFS tree.
func intersect(a, b NodeID, postIdx []int32, idom []NodeID) NodeID {
	for a != b {
		for postIdx[a] < postIdx[b] {
			a = idom[a]
		}
		for postIdx[b] < postIdx[a] {
			b = idom[b]
		}
	}
	return a
}
