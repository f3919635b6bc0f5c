package dump

import (
	"bytes"
	"encoding/json"

	"github.com/matzehuels/heapscope/pkg/heap"
)

// Marshal serializes a graph and its counters to the canonical JSON
// snapshot form, suitable for caching and interchange. Object ids equal
// node handles. A size-0 root node is folded back into the "roots"
// list, so parsing the output reproduces the graph exactly for
// loader-built graphs.
func Marshal(g *heap.Graph, counters map[string]float64) ([]byte, error) {
	root := g.Root()
	foldRoot := g.Size(root) == 0

	d := jsonDump{
		Objects:  make([]jsonObject, 0, g.NumNodes()),
		Counters: counters,
	}

	for n := heap.NodeID(0); int(n) < g.NumNodes(); n++ {
		if foldRoot && n == root {
			continue
		}
		children := g.Children(n)
		refs := make([]uint64, len(children))
		for i, c := range children {
			refs[i] = uint64(c)
		}
		d.Objects = append(d.Objects, jsonObject{
			ID:   uint64(n),
			Type: g.TypeName(g.TypeOf(n)),
			Size: g.Size(n),
			Addr: g.Address(n),
			Refs: refs,
		})
	}

	if foldRoot {
		for _, c := range g.Children(root) {
			d.Roots = append(d.Roots, uint64(c))
		}
	} else {
		d.Roots = []uint64{uint64(root)}
	}

	return json.Marshal(d)
}

// Unmarshal parses canonical JSON snapshot bytes back into a graph.
func Unmarshal(data []byte) (*heap.Graph, map[string]float64, error) {
	p := &JSONParser{}
	return p.Parse(bytes.NewReader(data))
}
