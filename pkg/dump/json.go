package dump

import (
	"encoding/json"
	"io"

	"github.com/matzehuels/heapscope/pkg/errors"
	"github.com/matzehuels/heapscope/pkg/heap"
)

// JSONParser reads the JSON snapshot interchange format:
//
//	{
//	  "objects": [
//	    {"id": 1, "type": "System.String", "size": 24, "addr": 123456, "refs": [2, 3]}
//	  ],
//	  "roots": [1],
//	  "counters": {"gc.heap_size": 4096}
//	}
//
// Object ids are arbitrary; the parser maps them to dense handles in
// file order. A synthetic size-0 root node referencing every listed
// root is appended, so the graph always has a single designated root.
type JSONParser struct{}

// rootTypeName types the synthetic root node.
const rootTypeName = "[.NET Roots]"

type jsonDump struct {
	Objects  []jsonObject       `json:"objects"`
	Roots    []uint64           `json:"roots"`
	Counters map[string]float64 `json:"counters"`
}

type jsonObject struct {
	ID   uint64   `json:"id"`
	Type string   `json:"type"`
	Size uint64   `json:"size"`
	Addr uint64   `json:"addr"`
	Refs []uint64 `json:"refs"`
}

// Name returns the format name.
func (p *JSONParser) Name() string { return "json" }

// CanParse checks if the input looks like the JSON snapshot format by
// probing for a non-null "objects" key.
func (p *JSONParser) CanParse(r io.Reader) bool {
	buf := make([]byte, 1024)
	n, err := r.Read(buf)
	if n == 0 || (err != nil && err != io.EOF) {
		return false
	}

	var probe struct {
		Objects json.RawMessage `json:"objects"`
	}
	if err := json.Unmarshal(buf[:n], &probe); err != nil {
		// A partial read truncates the JSON document; fall back to a
		// cheap prefix check on the objects key.
		return containsObjectsKey(buf[:n])
	}
	return probe.Objects != nil
}

func containsObjectsKey(buf []byte) bool {
	const key = `"objects"`
	for i := 0; i+len(key) <= len(buf); i++ {
		if string(buf[i:i+len(key)]) == key {
			return true
		}
	}
	return false
}

// Parse reads the JSON dump and builds a validated graph.
func (p *JSONParser) Parse(r io.Reader) (*heap.Graph, map[string]float64, error) {
	var d jsonDump
	if err := json.NewDecoder(r).Decode(&d); err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeInvalidDump, err, "failed to decode JSON dump")
	}

	if len(d.Objects) == 0 {
		return nil, nil, errors.New(errors.ErrCodeInvalidDump, "dump contains no objects")
	}
	if len(d.Roots) == 0 {
		return nil, nil, errors.New(errors.ErrCodeInvalidDump, "dump lists no roots")
	}

	// First pass: assign dense handles in file order.
	handles := make(map[uint64]heap.NodeID, len(d.Objects))
	for i, obj := range d.Objects {
		if _, dup := handles[obj.ID]; dup {
			return nil, nil, errors.New(errors.ErrCodeInvalidDump, "duplicate object id %d", obj.ID)
		}
		handles[obj.ID] = heap.NodeID(i)
	}

	b := heap.NewBuilderSized(len(d.Objects)+1, countRefs(d)+len(d.Roots))
	types := make(map[string]heap.TypeID)

	// Second pass: append nodes with mapped references.
	for _, obj := range d.Objects {
		ty, ok := types[obj.Type]
		if !ok {
			ty = b.AddType(obj.Type)
			types[obj.Type] = ty
		}

		children := make([]heap.NodeID, 0, len(obj.Refs))
		for _, ref := range obj.Refs {
			target, ok := handles[ref]
			if !ok {
				return nil, nil, errors.New(errors.ErrCodeInvalidDump, "object %d references unknown id %d", obj.ID, ref)
			}
			children = append(children, target)
		}
		b.AddNode(ty, obj.Size, obj.Addr, children)
	}

	// Synthetic root referencing every listed root object.
	rootRefs := make([]heap.NodeID, 0, len(d.Roots))
	for _, id := range d.Roots {
		target, ok := handles[id]
		if !ok {
			return nil, nil, errors.New(errors.ErrCodeInvalidDump, "root references unknown id %d", id)
		}
		rootRefs = append(rootRefs, target)
	}
	rootType, ok := types[rootTypeName]
	if !ok {
		rootType = b.AddType(rootTypeName)
	}
	root := b.AddNode(rootType, 0, 0, rootRefs)
	b.SetRoot(root)

	g, err := b.Build()
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeInvalidGraph, err, "dump produced an invalid graph")
	}
	return g, d.Counters, nil
}

func countRefs(d jsonDump) int {
	total := 0
	for _, obj := range d.Objects {
		total += len(obj.Refs)
	}
	return total
}

// init registers the JSON parser.
func init() {
	Register(&JSONParser{})
}
