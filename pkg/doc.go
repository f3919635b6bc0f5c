// Package pkg provides the core libraries for Heapscope heap analysis.
//
// # Overview
//
// Heapscope indexes managed-runtime heap snapshots into a queryable
// object graph: who points at what, who keeps what alive, and how much
// each object really costs. The pkg directory is organized into five
// main areas:
//
//  1. [heap] - Domain logic (object graph, dominators, retained sizes,
//     type aggregation, path finding, snapshot comparison)
//  2. [dump] - Snapshot loading (format detection, parsers, canonical
//     serialization)
//  3. [pipeline] - Orchestration (load → index) with content-addressed
//     caching
//  4. [cache] - Cache backends (file, redis, null) and key derivation
//  5. [render] - Visualization (dominator-tree diagrams via Graphviz)
//
// # Architecture
//
// The typical data flow through Heapscope:
//
//	Heap Dump File
//	         ↓
//	    [dump] package (parse into an object graph)
//	         ↓
//	    [heap] package (index: dominators, retained sizes, aggregates)
//	         ↓
//	    [pipeline] package (cache + orchestrate)
//	         ↓
//	    CLI tables / HTTP API / SVG diagrams
//
// # Quick Start
//
// Load a dump and find what keeps the biggest type alive:
//
//	import (
//	    "github.com/matzehuels/heapscope/pkg/dump"
//	)
//
//	// 1. Parse and index
//	s, _ := dump.Load("app.heapdump.json", "")
//
//	// 2. Aggregate by type
//	for _, ts := range s.TypeStatistics(10) {
//	    fmt.Printf("%-40s %d objects, %d bytes retained\n", ts.DisplayName, ts.Count, ts.Retained)
//	}
//
//	// 3. Trace retention chains
//	for _, p := range s.ReferencePaths(target, 5) {
//	    fmt.Println(p)
//	}
//
// # Main Packages
//
// [heap] - The snapshot index. Builds the immutable object graph,
// computes the dominator tree and retained sizes, aggregates per-type
// statistics, renders reference paths, and diffs snapshots.
//
// [dump] - Format registry and parsers. Formats self-register; the
// loader sniffs the input when no format is forced. Also provides the
// canonical graph serialization used by the cache.
//
// [pipeline] - The load → index pipeline shared by the CLI and the
// HTTP API, with content-addressed graph caching so reanalyzing an
// unchanged dump is instant.
//
// [cache] - Cache interface with file, redis, and null backends, plus
// key derivation (dump content hash → graph key).
//
// [errors] - Coded errors shared across the module; codes map onto
// exit statuses and HTTP statuses.
//
// [observability] - Pluggable hooks for pipeline, cache, and API
// events.
//
// [render] and [render/domviz] - Dominator-tree diagrams via Graphviz,
// with SVG/PDF/PNG conversion.
//
// [buildinfo] - Version metadata injected at build time.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...            # All tests
//	go test ./pkg/heap/...       # Specific package
//
// [heap]: https://pkg.go.dev/github.com/matzehuels/heapscope/pkg/heap
// [dump]: https://pkg.go.dev/github.com/matzehuels/heapscope/pkg/dump
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/heapscope/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/matzehuels/heapscope/pkg/cache
// [errors]: https://pkg.go.dev/github.com/matzehuels/heapscope/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/heapscope/pkg/observability
// [render]: https://pkg.go.dev/github.com/matzehuels/heapscope/pkg/render
// [render/domviz]: https://pkg.go.dev/github.com/matzehuels/heapscope/pkg/render/domviz
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/heapscope/pkg/buildinfo
package pkg
