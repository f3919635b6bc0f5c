package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/heapscope/pkg/heap"
	"github.com/matzehuels/heapscope/pkg/pipeline"
)

// typesOpts holds the command-line flags for the types command.
type typesOpts struct {
	limit   int    // maximum records (0 = all)
	filter  string // case-insensitive substring filter on the raw name
	output  string // output format: table, json, csv
	outFile string // output file path (stdout if empty)
	format  string // dump format override
	noCache bool
	refresh bool
}

// typesCommand creates the types command for per-type heap aggregation.
func (c *CLI) typesCommand() *cobra.Command {
	opts := typesOpts{}

	cmd := &cobra.Command{
		Use:   "types <dump>",
		Short: "List per-type statistics sorted by retained size",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := pipeline.ValidateOutput(opts.output); err != nil {
				return err
			}
			return c.runTypes(cmd, args[0], &opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "l", 0, "maximum number of types (0 = all)")
	cmd.Flags().StringVar(&opts.filter, "filter", "", "only show types whose name contains this substring")
	cmd.Flags().StringVarP(&opts.output, "output", "o", pipeline.OutputTable, "output format: table, json, csv")
	cmd.Flags().StringVar(&opts.outFile, "out", "", "write output to file (stdout if empty)")
	cmd.Flags().StringVar(&opts.format, "format", "", "dump format (auto-detected if empty)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the graph cache")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "reparse the dump, bypassing the cache")

	return cmd
}

func (c *CLI) runTypes(cmd *cobra.Command, dumpPath string, opts *typesOpts) error {
	result, err := c.loadSnapshot(cmd, dumpPath, opts.format, opts.noCache, opts.refresh)
	if err != nil {
		return err
	}

	// Filter before applying the limit so the cap counts matches.
	stats := result.Snapshot.TypeStatistics(0)
	if opts.filter != "" {
		stats = filterTypeStats(stats, opts.filter)
	}
	if opts.limit > 0 && len(stats) > opts.limit {
		stats = stats[:opts.limit]
	}

	out, err := openOutput(opts.outFile)
	if err != nil {
		return err
	}
	defer out.Close()

	return writeTypeStats(out, stats, opts.output)
}

func filterTypeStats(stats []heap.TypeStats, filter string) []heap.TypeStats {
	needle := strings.ToLower(filter)
	matched := stats[:0:0]
	for _, ts := range stats {
		if strings.Contains(strings.ToLower(ts.Name), needle) {
			matched = append(matched, ts)
		}
	}
	return matched
}
