package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/heapscope/pkg/cache"
	"github.com/matzehuels/heapscope/pkg/dump"
	"github.com/matzehuels/heapscope/pkg/errors"
	"github.com/matzehuels/heapscope/pkg/heap"
	"github.com/matzehuels/heapscope/pkg/observability"
	"github.com/matzehuels/heapscope/pkg/render/domviz"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API can use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete load → index pipeline with caching.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	r.applyLogger(&opts)

	result := &Result{}

	// Stage 1: Load
	loadStart := time.Now()
	observability.Pipeline().OnLoadStart(ctx, opts.DumpPath, opts.Format)
	g, counters, graphHash, graphHit, err := r.LoadWithCacheInfo(ctx, opts)
	if err != nil {
		observability.Pipeline().OnLoadComplete(ctx, opts.DumpPath, 0, time.Since(loadStart), err)
		return nil, fmt.Errorf("load: %w", err)
	}
	result.GraphHash = graphHash
	result.Stats.LoadTime = time.Since(loadStart)
	result.Stats.NodeCount = g.NumNodes()
	result.Stats.EdgeCount = g.NumEdges()
	result.CacheInfo.GraphHit = graphHit
	observability.Pipeline().OnLoadComplete(ctx, opts.DumpPath, g.NumNodes(), result.Stats.LoadTime, nil)

	r.Logger.Info("loaded heap dump",
		"nodes", g.NumNodes(),
		"edges", g.NumEdges(),
		"cached", graphHit,
		"duration", result.Stats.LoadTime)

	// Stage 2: Index
	indexStart := time.Now()
	observability.Pipeline().OnIndexStart(ctx, g.NumNodes())
	snapshot := heap.NewSnapshot(g, counters)
	result.Snapshot = snapshot
	result.Stats.IndexTime = time.Since(indexStart)
	result.Stats.ObjectCount = snapshot.HeapStatistics().TotalObjects
	observability.Pipeline().OnIndexComplete(ctx, result.Stats.ObjectCount, result.Stats.IndexTime, nil)

	r.Logger.Info("indexed snapshot",
		"objects", result.Stats.ObjectCount,
		"duration", result.Stats.IndexTime)

	return result, nil
}

// LoadWithCacheInfo parses a heap dump with caching and returns the
// graph, its counters, the canonical graph hash, and cache hit info.
func (r *Runner) LoadWithCacheInfo(ctx context.Context, opts Options) (*heap.Graph, map[string]float64, string, bool, error) {
	if err := opts.ValidateForLoad(); err != nil {
		return nil, nil, "", false, err
	}
	r.applyLogger(&opts)

	raw, err := os.ReadFile(opts.DumpPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, "", false, errors.Wrap(errors.ErrCodeFileNotFound, err, "dump file not found: %s", opts.DumpPath)
		}
		return nil, nil, "", false, errors.Wrap(errors.ErrCodeInvalidInput, err, "failed to read dump file: %s", opts.DumpPath)
	}

	// The cache key is derived from the dump's content, so renaming or
	// moving a dump file still hits the cached graph.
	dumpHash := cache.Hash(raw)
	cacheKey := r.Keyer.GraphKey(dumpHash, opts.GraphKeyOpts())

	// Try cache first (unless refresh requested)
	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			g, counters, err := dump.Unmarshal(data)
			if err == nil {
				observability.Cache().OnCacheHit(ctx, "graph")
				return g, counters, cache.Hash(data), true, nil // Cache hit
			}
			// If deserialization fails, fall through to reparse
		}
		observability.Cache().OnCacheMiss(ctx, "graph")
	}

	// Parse
	g, counters, err := dump.Open(bytes.NewReader(raw), opts.Format)
	if err != nil {
		return nil, nil, "", false, err
	}

	// Cache the canonical form
	canonical, err := dump.Marshal(g, counters)
	if err != nil {
		return nil, nil, "", false, errors.Wrap(errors.ErrCodeInternal, err, "failed to serialize graph")
	}
	if !opts.Refresh {
		_ = r.Cache.Set(ctx, cacheKey, canonical, cache.TTLGraph)
		observability.Cache().OnCacheSet(ctx, "graph", len(canonical))
	}

	return g, counters, cache.Hash(canonical), false, nil // Cache miss
}

// RenderDominatorsWithCacheInfo renders the dominator-tree diagram for
// a snapshot with report caching and returns the artifact bytes plus
// cache hit info. The cache key covers the graph hash, the subtree
// root, the depth and fanout caps, and the render format, so any
// option change produces a fresh artifact.
func (r *Runner) RenderDominatorsWithCacheInfo(ctx context.Context, s *heap.Snapshot, graphHash string, viz domviz.Options, format string, refresh bool) ([]byte, bool, error) {
	cacheKey := r.Keyer.ReportKey(graphHash, cache.ReportKeyOpts{
		Kind:   "dominators",
		Limit:  viz.MaxChildren,
		Depth:  viz.Depth,
		Target: fmt.Sprintf("%d", viz.Root),
		Output: format,
	})

	if !refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			observability.Cache().OnCacheHit(ctx, "report")
			return data, true, nil // Cache hit
		}
		observability.Cache().OnCacheMiss(ctx, "report")
	}

	dot := domviz.ToDOT(s, viz)

	var data []byte
	var err error
	switch format {
	case "dot":
		data = []byte(dot)
	case "svg":
		data, err = domviz.RenderSVG(dot)
	case "png":
		data, err = domviz.RenderPNG(dot, 2.0)
	case "pdf":
		data, err = domviz.RenderPDF(dot)
	default:
		return nil, false, errors.New(errors.ErrCodeInvalidFormat,
			"invalid render format %q (valid: dot, svg, png, pdf)", format)
	}
	if err != nil {
		return nil, false, err
	}

	if !refresh {
		_ = r.Cache.Set(ctx, cacheKey, data, cache.TTLReport)
		observability.Cache().OnCacheSet(ctx, "report", len(data))
	}

	return data, false, nil // Cache miss
}

// RenderDominators is a convenience wrapper that calls RenderDominatorsWithCacheInfo and discards the cache hit info.
func (r *Runner) RenderDominators(ctx context.Context, s *heap.Snapshot, graphHash string, viz domviz.Options, format string) ([]byte, error) {
	data, _, err := r.RenderDominatorsWithCacheInfo(ctx, s, graphHash, viz, format, false)
	return data, err
}

// Load is a convenience wrapper that calls LoadWithCacheInfo and discards the cache hit info.
func (r *Runner) Load(ctx context.Context, opts Options) (*heap.Graph, map[string]float64, error) {
	g, counters, _, _, err := r.LoadWithCacheInfo(ctx, opts)
	return g, counters, err
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
