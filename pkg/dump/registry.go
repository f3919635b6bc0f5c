package dump

import (
	"bytes"
	"io"
	"os"
	"sync"

	"github.com/matzehuels/heapscope/pkg/errors"
	"github.com/matzehuels/heapscope/pkg/heap"
)

// detectSize is how much of the stream format detection may inspect.
const detectSize = 4096

// parserRegistry holds registered parsers.
type parserRegistry struct {
	mu      sync.RWMutex
	parsers []Parser
}

// Global registry instance.
var registry = &parserRegistry{}

// Register adds a parser to the registry. Parsers are tried in
// registration order.
func Register(p Parser) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.parsers = append(registry.parsers, p)
}

// Formats returns the names of all registered parsers.
func Formats() []string {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	names := make([]string, len(registry.parsers))
	for i, p := range registry.parsers {
		names[i] = p.Name()
	}
	return names
}

// Open reads a heap dump and returns its graph and counters. When
// format is empty, each registered parser previews the stream until one
// accepts; otherwise the named parser is used directly.
func Open(r io.Reader, format string) (*heap.Graph, map[string]float64, error) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	if format != "" {
		for _, p := range registry.parsers {
			if p.Name() == format {
				return p.Parse(r)
			}
		}
		return nil, nil, errors.New(errors.ErrCodeUnsupportedFormat, "unknown dump format: %q", format)
	}

	// Buffer a preview so each parser can inspect the stream start.
	preview := make([]byte, detectSize)
	n, err := io.ReadFull(r, preview)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, nil, errors.Wrap(errors.ErrCodeInvalidDump, err, "failed to read dump")
	}
	preview = preview[:n]

	for _, p := range registry.parsers {
		if p.CanParse(bytes.NewReader(preview)) {
			full := io.MultiReader(bytes.NewReader(preview), r)
			return p.Parse(full)
		}
	}

	return nil, nil, errors.New(errors.ErrCodeUnsupportedFormat, "no parser found for dump format")
}

// OpenFile loads a heap dump from disk.
func OpenFile(path, format string) (*heap.Graph, map[string]float64, error) {
	if err := errors.ValidateDumpPath(path); err != nil {
		return nil, nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "dump file not found: %s", path)
		}
		return nil, nil, errors.Wrap(errors.ErrCodeInvalidDump, err, "failed to open dump: %s", path)
	}
	defer f.Close()

	return Open(f, format)
}

// Load opens a dump file and constructs the fully indexed snapshot.
func Load(path, format string) (*heap.Snapshot, error) {
	g, counters, err := OpenFile(path, format)
	if err != nil {
		return nil, err
	}
	return heap.NewSnapshot(g, counters), nil
}
