package domviz

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/heapscope/pkg/heap"
	"github.com/matzehuels/heapscope/pkg/render"
)

// Default rendering caps. A full dominator tree of a production heap
// has millions of nodes; the caps keep the diagram readable.
const (
	// DefaultDepth is the number of dominator-tree levels below the
	// subtree root included when the caller passes Depth <= 0.
	DefaultDepth = 3

	// DefaultMaxChildren is the per-node fanout cap when the caller
	// passes MaxChildren <= 0. Children beyond the cap are folded into
	// a single summary node.
	DefaultMaxChildren = 10
)

// Options configures dominator-tree rendering.
type Options struct {
	// Root selects the subtree to render. Zero value renders from the
	// snapshot root.
	Root heap.NodeID

	// Depth limits the number of levels below Root (0 = DefaultDepth).
	Depth int

	// MaxChildren caps the fanout per node, keeping the biggest
	// retainers (0 = DefaultMaxChildren).
	MaxChildren int
}

// ToDOT renders the dominator subtree under opts.Root as Graphviz DOT.
// Each node is labeled with its display type name, address, and
// retained size; children are ordered by retained size descending so
// the heaviest retainers read left to right. The resulting string can
// be rendered with [RenderSVG], [RenderPDF], or [RenderPNG].
func ToDOT(s *heap.Snapshot, opts Options) string {
	depth := opts.Depth
	if depth <= 0 {
		depth = DefaultDepth
	}
	maxChildren := opts.MaxChildren
	if maxChildren <= 0 {
		maxChildren = DefaultMaxChildren
	}
	root := opts.Root
	if root == 0 {
		root = s.Root()
	}

	children := dominatorChildren(s)

	var buf bytes.Buffer
	buf.WriteString("digraph dominators {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	emitSubtree(&buf, s, children, root, depth, maxChildren)

	buf.WriteString("}\n")
	return buf.String()
}

// dominatorChildren inverts the immediate-dominator relation into
// child lists, restricted to reachable nodes.
func dominatorChildren(s *heap.Snapshot) map[heap.NodeID][]heap.NodeID {
	children := make(map[heap.NodeID][]heap.NodeID)
	root := s.Root()
	for _, n := range s.PostOrder() {
		if n == root {
			continue
		}
		idom := s.ImmediateDominator(n)
		children[idom] = append(children[idom], n)
	}
	for _, kids := range children {
		sort.Slice(kids, func(i, j int) bool {
			ri, rj := s.RetainedSize(kids[i]), s.RetainedSize(kids[j])
			if ri != rj {
				return ri > rj
			}
			return kids[i] < kids[j]
		})
	}
	return children
}

func emitSubtree(buf *bytes.Buffer, s *heap.Snapshot, children map[heap.NodeID][]heap.NodeID, n heap.NodeID, depth, maxChildren int) {
	fmt.Fprintf(buf, "  %d [label=%q];\n", n, nodeLabel(s, n))
	if depth == 0 {
		return
	}

	kids := children[n]
	shown := kids
	if len(shown) > maxChildren {
		shown = shown[:maxChildren]
	}

	for _, k := range shown {
		emitSubtree(buf, s, children, k, depth-1, maxChildren)
		fmt.Fprintf(buf, "  %d -> %d;\n", n, k)
	}

	if folded := len(kids) - len(shown); folded > 0 {
		var rest uint64
		for _, k := range kids[len(shown):] {
			rest += s.RetainedSize(k)
		}
		id := fmt.Sprintf("more_%d", n)
		label := fmt.Sprintf("%d more\n%s", folded, humanBytes(rest))
		fmt.Fprintf(buf, "  %q [label=%q, style=\"rounded,filled,dashed\", fillcolor=lightgrey];\n", id, label)
		fmt.Fprintf(buf, "  %d -> %q;\n", n, id)
	}
}

func nodeLabel(s *heap.Snapshot, n heap.NodeID) string {
	var b strings.Builder
	b.WriteString(s.DisplayName(n))
	fmt.Fprintf(&b, "\n0x%x", s.Graph().Address(n))
	fmt.Fprintf(&b, "\nretains %s", humanBytes(s.RetainedSize(n)))
	return b.String()
}

func humanBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
// Returns the SVG bytes ready for display or further conversion with
// [render.ToPDF] or [render.ToPNG].
func RenderSVG(dot string) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}

// RenderPDF renders a DOT graph as PDF via SVG conversion.
// This is a convenience wrapper around [RenderSVG] and [render.ToPDF].
//
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
func RenderPDF(dot string) ([]byte, error) {
	svg, err := RenderSVG(dot)
	if err != nil {
		return nil, err
	}
	return render.ToPDF(svg)
}

// RenderPNG renders a DOT graph as PNG via SVG conversion.
// This is a convenience wrapper around [RenderSVG] and [render.ToPNG].
//
// A scale of 2.0 produces a 2x resolution image suitable for high-DPI displays.
//
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
func RenderPNG(dot string, scale float64) ([]byte, error) {
	svg, err := RenderSVG(dot)
	if err != nil {
		return nil, err
	}
	return render.ToPNG(svg, scale)
}
