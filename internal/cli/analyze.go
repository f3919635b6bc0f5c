package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/matzehuels/heapscope/pkg/pipeline"
)

// analyzeOpts holds the command-line flags for the analyze command.
type analyzeOpts struct {
	top     int    // number of top types to show
	output  string // output format: table, json, csv
	format  string // dump format override ("" for auto-detection)
	noCache bool   // disable the graph cache
	refresh bool   // bypass the graph cache
}

// analyzeCommand creates the analyze command, the default entry point
// for inspecting a single heap dump: summary statistics plus the
// largest types by retained size.
func (c *CLI) analyzeCommand() *cobra.Command {
	opts := analyzeOpts{}

	cmd := &cobra.Command{
		Use:   "analyze <dump>",
		Short: "Analyze a heap dump: summary statistics and top types by retained size",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.top == 0 {
				opts.top = c.Config.TopTypes
			}
			if err := pipeline.ValidateOutput(opts.output); err != nil {
				return err
			}
			return c.runAnalyze(cmd, args[0], &opts)
		},
	}

	cmd.Flags().IntVarP(&opts.top, "top", "t", 0, "number of top types to show")
	cmd.Flags().StringVarP(&opts.output, "output", "o", pipeline.OutputTable, "output format: table, json, csv")
	cmd.Flags().StringVar(&opts.format, "format", "", "dump format (auto-detected if empty)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the graph cache")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "reparse the dump, bypassing the cache")

	return cmd
}

func (c *CLI) runAnalyze(cmd *cobra.Command, dumpPath string, opts *analyzeOpts) error {
	result, err := c.loadSnapshot(cmd, dumpPath, opts.format, opts.noCache, opts.refresh)
	if err != nil {
		return err
	}
	s := result.Snapshot
	stats := s.HeapStatistics()

	if opts.output == pipeline.OutputTable {
		printStats(stats.TotalObjects, stats.TotalShallow, result.CacheInfo.GraphHit)
		printNewline()
		printKeyValue("Objects", fmt.Sprintf("%d", stats.TotalObjects))
		printKeyValue("Shallow total", humanBytes(stats.TotalShallow))
		printKeyValue("Retained total", humanBytes(stats.TotalRetained))
		for _, k := range sortedCounterKeys(stats.Counters) {
			printKeyValue(k, fmt.Sprintf("%g", stats.Counters[k]))
		}
		printNewline()
	}

	out, err := openOutput("")
	if err != nil {
		return err
	}
	defer out.Close()

	if err := writeTypeStats(out, s.TypeStatistics(opts.top), opts.output); err != nil {
		return err
	}

	if opts.output == pipeline.OutputTable {
		printNextStep("Browse interactively", fmt.Sprintf("heapscope browse %s", dumpPath))
	}
	return nil
}

// loadSnapshot runs the pipeline with a spinner and returns the result.
func (c *CLI) loadSnapshot(cmd *cobra.Command, dumpPath, format string, noCache, refresh bool) (*pipeline.Result, error) {
	runner, err := c.newRunner(noCache)
	if err != nil {
		return nil, err
	}
	defer runner.Close()
	return c.loadSnapshotWith(runner, cmd, dumpPath, format, refresh)
}

// loadSnapshotWith runs the pipeline on an existing runner, for
// commands that keep using the runner after the load stage.
func (c *CLI) loadSnapshotWith(runner *pipeline.Runner, cmd *cobra.Command, dumpPath, format string, refresh bool) (*pipeline.Result, error) {
	spin := newSpinnerWithContext(cmd.Context(), fmt.Sprintf("Loading %s", dumpPath))
	spin.Start()

	result, err := runner.Execute(cmd.Context(), pipeline.Options{
		DumpPath: dumpPath,
		Format:   format,
		Refresh:  refresh,
		Logger:   c.Logger,
	})
	if err != nil {
		spin.Stop()
		return nil, err
	}
	spin.StopWithSuccess(fmt.Sprintf("Indexed %d objects", result.Stats.ObjectCount))
	return result, nil
}

func sortedCounterKeys(counters map[string]float64) []string {
	keys := make([]string, 0, len(counters))
	for k := range counters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
