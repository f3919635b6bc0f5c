// Package pipeline provides the core analysis pipeline for Heapscope.
//
// This package implements the complete load → index pipeline that can
// be used by CLI and API components. By centralizing this logic, we
// ensure consistent behavior across all entry points and avoid code
// duplication.
//
// # Architecture
//
// The pipeline consists of two stages:
//
//  1. Load: Parse a heap dump into a validated graph, cached by the
//     dump's content hash
//  2. Index: Construct the fully indexed snapshot (post-order, reverse
//     references, dominator tree, retained sizes)
//
// Indexing is pure computation and always runs; loading is the stage
// worth caching because dump parsing dominates for large files.
//
// # Usage
//
// Create a Runner and execute the pipeline:
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.Options{DumpPath: "app.heapdump.json"}
//	result, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	stats := result.Snapshot.HeapStatistics()
package pipeline

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/heapscope/pkg/cache"
	"github.com/matzehuels/heapscope/pkg/errors"
	"github.com/matzehuels/heapscope/pkg/heap"
)

// Output format constants shared by CLI and API.
const (
	OutputTable = "table"
	OutputJSON  = "json"
	OutputCSV   = "csv"
)

// ValidOutputs is the set of supported output formats.
var ValidOutputs = map[string]bool{
	OutputTable: true,
	OutputJSON:  true,
	OutputCSV:   true,
}

// ValidateOutput checks that an output format is valid.
func ValidateOutput(output string) error {
	if !ValidOutputs[output] {
		return errors.New(errors.ErrCodeInvalidFormat, "invalid output: %q (must be one of: table, json, csv)", output)
	}
	return nil
}

// Options contains all configuration for the analysis pipeline.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Load options
	DumpPath string `json:"dump_path"`
	Format   string `json:"format,omitempty"` // dump format, "" for auto-detection
	Refresh  bool   `json:"refresh,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Snapshot is the fully indexed heap snapshot.
	Snapshot *heap.Snapshot

	// GraphHash is the content hash of the normalized graph.
	GraphHash string

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	NodeCount   int
	EdgeCount   int
	ObjectCount int
	LoadTime    time.Duration
	IndexTime   time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	GraphHit bool // Whether the normalized graph came from cache
}

// ValidateAndSetDefaults checks required fields and applies defaults.
// This method is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForLoad(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// ValidateForLoad checks required fields for loading a dump.
func (o *Options) ValidateForLoad() error {
	if err := errors.ValidateDumpPath(o.DumpPath); err != nil {
		return err
	}

	// Logger default
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}

	return nil
}

// GraphKeyOpts returns cache key options for the normalized graph.
func (o *Options) GraphKeyOpts() cache.GraphKeyOpts {
	return cache.GraphKeyOpts{
		Format: o.Format,
	}
}
