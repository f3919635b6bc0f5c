package heap

import (
	"fmt"
	"strings"
)

// Path-finder tunables. The defaults are load-bearing for reproducible
// output; callers override the path cap per call, not globally.
const (
	// DefaultMaxPaths is the number of reference paths returned when the
	// caller passes max <= 0.
	DefaultMaxPaths = 5

	// MaxPathDepth caps the reverse-DFS depth. A reported path holds at
	// most MaxPathDepth+1 nodes (target plus up to MaxPathDepth hops).
	MaxPathDepth = 50
)

// Path is one retention chain from a target node back to the root.
// Nodes[0] is the target; successive entries are predecessors; the last
// entry is the root. A Rootless path has exactly one node: the target
// itself, which no chain of predecessors connects to the root within
// the depth cap.
type Path struct {
	Nodes    []NodeID
	Rootless bool
}

// pathFrame is one level of the reverse DFS: a node on the current
// chain and the cursor into its predecessor list.
type pathFrame struct {
	node NodeID
	next int
}

// FindPaths enumerates up to max acyclic predecessor chains from target
// to the root. max <= 0 means DefaultMaxPaths. Paths come back in
// discovery order, which is deterministic because predecessor
// enumeration order is stable per snapshot.
//
// Cycles are cut by tracking the nodes on the current chain only, so
// two reported paths may share interior nodes. If target is the root
// the single path [root] is returned. If no chain reaches the root
// within MaxPathDepth hops the result is one rootless path.
func (s *Snapshot) FindPaths(target NodeID, max int) []Path {
	if max <= 0 {
		max = DefaultMaxPaths
	}
	root := s.graph.Root()
	if target == root {
		return []Path{{Nodes: []NodeID{root}}}
	}

	onPath := newBitset(s.graph.NumNodes())
	stack := make([]pathFrame, 1, MaxPathDepth+1)
	stack[0] = pathFrame{node: target}
	onPath.set(target)

	var paths []Path
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		preds := s.reverse.predecessors(top.node)

		if top.next >= len(preds) || len(stack) > MaxPathDepth {
			onPath.clear(top.node)
			stack = stack[:len(stack)-1]
			continue
		}

		p := preds[top.next]
		top.next++
		if onPath.get(p) {
			continue
		}

		if p == root {
			path := make([]NodeID, 0, len(stack)+1)
			for _, f := range stack {
				path = append(path, f.node)
			}
			path = append(path, root)
			paths = append(paths, Path{Nodes: path})
			if len(paths) >= max {
				return paths
			}
			continue
		}

		stack = append(stack, pathFrame{node: p})
		onPath.set(p)
	}

	if len(paths) == 0 {
		return []Path{{Nodes: []NodeID{target}, Rootless: true}}
	}
	return paths
}

// ReferencePaths renders up to max retention chains for target as
// display strings, one per path, elements joined by " ← " from the
// target outward. A rootless target renders as a single line carrying
// an explicit marker.
func (s *Snapshot) ReferencePaths(target NodeID, max int) []string {
	paths := s.FindPaths(target, max)
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = s.renderPath(p)
	}
	return out
}

func (s *Snapshot) renderPath(p Path) string {
	var b strings.Builder
	for i, n := range p.Nodes {
		if i > 0 {
			b.WriteString(" ← ")
		}
		b.WriteString(s.DisplayName(n))
		b.WriteString(fmt.Sprintf(" @ 0x%x", s.graph.Address(n)))
	}
	if p.Rootless {
		b.WriteString(" (no path to root)")
	}
	return b.String()
}
