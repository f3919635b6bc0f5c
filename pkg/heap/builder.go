package heap

import (
	"errors"
	"fmt"
	"math"
)

// Sentinel errors returned by [Builder.Build] when the loaded graph is
// malformed. Construction validates the graph exactly once; query paths
// assume a validated snapshot and perform no further checks.
var (
	// ErrNoNodes is returned when the builder holds no nodes at all.
	ErrNoNodes = errors.New("graph has no nodes")

	// ErrNoRoot is returned when no root handle was designated.
	ErrNoRoot = errors.New("graph has no designated root")

	// ErrRootOutOfRange is returned when the designated root is not a
	// valid node handle.
	ErrRootOutOfRange = errors.New("root handle out of range")

	// ErrChildOutOfRange is returned when a node references a child
	// handle outside [0, N).
	ErrChildOutOfRange = errors.New("child handle out of range")

	// ErrTypeOutOfRange is returned when a node carries a type handle
	// outside [0, T).
	ErrTypeOutOfRange = errors.New("type handle out of range")

	// ErrEmptyTypeName is returned when a type was registered with an
	// empty name.
	ErrEmptyTypeName = errors.New("type name must not be empty")

	// ErrSizeOverflow is returned when the total shallow size of all
	// nodes does not fit in 64 bits.
	ErrSizeOverflow = errors.New("total shallow size overflows uint64")
)

// Builder accumulates loader output and produces a validated, immutable
// [Graph]. It is the write side of the loader contract: an external
// loader registers types, appends nodes with their outgoing references,
// designates the root, and calls Build exactly once.
//
// The builder is not safe for concurrent use.
type Builder struct {
	typeNames []string
	nodeTypes []TypeID
	sizes     []uint64
	addrs     []uint64

	childOffsets []int32
	children     []NodeID

	root    NodeID
	hasRoot bool
}

// NewBuilder returns an empty builder. If the loader knows the node and
// edge counts up front, NewBuilderSized avoids reallocation.
func NewBuilder() *Builder {
	return &Builder{root: InvalidNode}
}

// NewBuilderSized returns a builder with capacity preallocated for
// nodes node records and edges outgoing references.
func NewBuilderSized(nodes, edges int) *Builder {
	b := &Builder{
		nodeTypes:    make([]TypeID, 0, nodes),
		sizes:        make([]uint64, 0, nodes),
		addrs:        make([]uint64, 0, nodes),
		childOffsets: make([]int32, 0, nodes+1),
		children:     make([]NodeID, 0, edges),
		root:         InvalidNode,
	}
	return b
}

// AddType registers a type name and returns its dense handle. Names are
// not deduplicated: distinct handles may share a name, and the
// aggregation layer preserves that distinction.
func (b *Builder) AddType(name string) TypeID {
	b.typeNames = append(b.typeNames, name)
	return TypeID(len(b.typeNames) - 1)
}

// AddNode appends a node with the given type handle, shallow size,
// display address, and outgoing references (in reference order), and
// returns the node's dense handle. Handles are assigned sequentially
// starting at 0.
func (b *Builder) AddNode(t TypeID, size uint64, addr uint64, children []NodeID) NodeID {
	b.nodeTypes = append(b.nodeTypes, t)
	b.sizes = append(b.sizes, size)
	b.addrs = append(b.addrs, addr)
	b.childOffsets = append(b.childOffsets, int32(len(b.children)))
	b.children = append(b.children, children...)
	return NodeID(len(b.nodeTypes) - 1)
}

// SetRoot designates the root handle. Every node reachable from the
// root is considered live.
func (b *Builder) SetRoot(root NodeID) {
	b.root = root
	b.hasRoot = true
}

// NumNodes returns the number of nodes added so far.
func (b *Builder) NumNodes() int { return len(b.nodeTypes) }

// Build validates the accumulated graph and freezes it. It returns a
// single structured error for the first malformation found; a returned
// Graph is fully validated and immutable.
func (b *Builder) Build() (*Graph, error) {
	n := len(b.nodeTypes)
	if n == 0 {
		return nil, ErrNoNodes
	}
	if !b.hasRoot {
		return nil, ErrNoRoot
	}
	if b.root < 0 || int(b.root) >= n {
		return nil, fmt.Errorf("%w: root %d, %d nodes", ErrRootOutOfRange, b.root, n)
	}

	for i, name := range b.typeNames {
		if name == "" {
			return nil, fmt.Errorf("%w: type handle %d", ErrEmptyTypeName, i)
		}
	}
	for i, t := range b.nodeTypes {
		if t < 0 || int(t) >= len(b.typeNames) {
			return nil, fmt.Errorf("%w: node %d has type %d, %d types", ErrTypeOutOfRange, i, t, len(b.typeNames))
		}
	}
	for i, c := range b.children {
		if c < 0 || int(c) >= n {
			return nil, fmt.Errorf("%w: edge %d targets node %d, %d nodes", ErrChildOutOfRange, i, c, n)
		}
	}

	var total uint64
	for i, s := range b.sizes {
		if total > math.MaxUint64-s {
			return nil, fmt.Errorf("%w: at node %d", ErrSizeOverflow, i)
		}
		total += s
	}

	// Seal the CSR offsets with the final edge count.
	offsets := make([]int32, n+1)
	copy(offsets, b.childOffsets)
	offsets[n] = int32(len(b.children))

	return &Graph{
		typeNames:    b.typeNames,
		nodeTypes:    b.nodeTypes,
		sizes:        b.sizes,
		addrs:        b.addrs,
		childOffsets: offsets,
		children:     b.children,
		root:         b.root,
	}, nil
}
