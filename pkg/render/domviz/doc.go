// Package domviz renders dominator trees as Graphviz diagrams.
//
// # Overview
//
// This package produces directed graph visualizations of a snapshot's
// dominator tree, where each box is an object and an edge means the
// parent is the sole retainer of the child. Subtree depth and per-node
// fanout are capped so that production heaps stay readable; children
// cut by the fanout cap are folded into a dashed summary node carrying
// their combined retained size.
//
// # Usage
//
// Convert a snapshot to DOT format, then render to SVG:
//
//	dot := domviz.ToDOT(snapshot, domviz.Options{Depth: 3})
//	svg, err := domviz.RenderSVG(dot)
//
// For PDF or PNG output, use the render functions:
//
//	pdf, err := domviz.RenderPDF(dot)
//	png, err := domviz.RenderPNG(dot, 2.0)  // 2x scale
//
// # Options
//
// The [Options] struct controls diagram generation:
//
//   - Root: the subtree root (zero value renders from the snapshot root)
//   - Depth: levels below the root (default 3)
//   - MaxChildren: fanout cap per node, keeping the heaviest retainers (default 10)
//
// # DOT Format
//
// The [ToDOT] function produces Graphviz DOT source that can be:
//
//   - Rendered directly via [RenderSVG]
//   - Saved and processed with external Graphviz tools
//   - Customized before rendering
//
// The generated DOT uses top-to-bottom layout (rankdir=TB) with rounded
// box nodes; children are ordered by retained size descending.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering. PDF and PNG conversion requires librsvg (rsvg-convert).
package domviz
