// Package dump loads heap dumps into analyzable graphs.
//
// Dump formats are pluggable: each format implements [Parser] and
// registers itself, and [Open] picks the first parser whose format
// detection accepts the input. The package ships a JSON snapshot
// format suitable for tool interchange and test fixtures.
package dump

import (
	"io"

	"github.com/matzehuels/heapscope/pkg/heap"
)

// Parser is the interface for heap dump formats.
type Parser interface {
	// Name returns the format name used for --format selection.
	Name() string

	// CanParse checks if this parser can handle the given dump format.
	// The reader is a preview of the first few KiB; implementations
	// must not assume the full stream is available.
	CanParse(r io.Reader) bool

	// Parse reads the dump and builds a validated graph plus the
	// dump's free-form runtime counters (may be nil). The reader is
	// positioned at the start of the stream.
	Parse(r io.Reader) (*heap.Graph, map[string]float64, error)
}
