// Package heap implements the core heap-snapshot analysis engine.
//
// The engine answers the question "why is this memory retained?" for a
// managed-runtime heap snapshot. Given an object graph (nodes, sizes,
// outgoing references) and a designated root, it computes per-object
// retained sizes via dominator-tree analysis and supports queries over
// types and reference chains.
//
// # Architecture
//
// A snapshot is built from a validated [Graph] and eagerly derives four
// tables, in dependency order:
//
//  1. Post-order: an iterative DFS permutation of the reachable nodes
//     with the root last (postorder.go).
//  2. Reverse references: a CSR predecessor index, the exact inverse of
//     the forward child relation (reverse.go).
//  3. Dominator tree: immediate dominators via the Cooper-Harvey-Kennedy
//     iterative algorithm over the post-order (dominators.go).
//  4. Retained sizes: one post-order fold of each node's retained bytes
//     into its immediate dominator (retained.go).
//
// Queries (type statistics, reference paths, snapshot comparison) are
// lazy and read-only on top of the derived tables.
//
// # Handles
//
// Nodes and types are addressed by dense integer handles ([NodeID],
// [TypeID]), never by pointers. All derived tables are flat arrays
// indexed by handle. Snapshots routinely hold millions of nodes, so the
// engine never recurses on the call stack and allocates its auxiliary
// arrays once at construction.
//
// # Concurrency
//
// Construction is single-threaded. A constructed [Snapshot] is frozen;
// any number of goroutines may query it concurrently.
package heap
