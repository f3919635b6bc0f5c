// Package render provides visualization rendering for heap snapshots.
//
// # Overview
//
// This package contains the rendering pipeline that turns analyzed
// snapshots into visual outputs. It provides:
//
//   - Generic format conversion (SVG to PDF/PNG)
//   - Dominator-tree diagrams (in [domviz] subpackage)
//
// # Format Conversion
//
// The [ToPDF] and [ToPNG] functions convert any SVG to other formats using
// the external rsvg-convert tool (from librsvg).
//
//	svg, err := domviz.RenderSVG(dot)
//	pdf, err := render.ToPDF(svg)
//	png, err := render.ToPNG(svg, 2.0)  // 2x scale
//
// # Dominator-Tree Diagrams
//
// The [domviz] subpackage renders the dominator tree of a snapshot as a
// Graphviz diagram. Each box is an object labeled with its type,
// address, and retained size; an edge means the parent is the sole
// retainer of the child.
//
//	dot := domviz.ToDOT(snapshot, domviz.Options{Depth: 3})
//	svg, err := domviz.RenderSVG(dot)
//
// [domviz]: github.com/matzehuels/heapscope/pkg/render/domviz
package render
