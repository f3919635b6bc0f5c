package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matzehuels/heapscope/pkg/heap"
	"github.com/matzehuels/heapscope/pkg/pipeline"
)

// compareOpts holds the command-line flags for the compare command.
type compareOpts struct {
	typeName     string // drill into one type's instances
	maxInstances int    // instance cap for --type
	output       string // output format: table, json, csv
	outFile      string // output file path (stdout if empty)
	format       string // dump format override
	noCache      bool
	refresh      bool
}

// compareCommand creates the compare command for diffing two heap
// dumps, the primary workflow for hunting leaks across a test run.
func (c *CLI) compareCommand() *cobra.Command {
	opts := compareOpts{}

	cmd := &cobra.Command{
		Use:   "compare <baseline> <current>",
		Short: "Compare two heap dumps and report per-type growth",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := pipeline.ValidateOutput(opts.output); err != nil {
				return err
			}
			return c.runCompare(cmd, args[0], args[1], &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.typeName, "type", "t", "", "show per-instance detail for one type")
	cmd.Flags().IntVar(&opts.maxInstances, "max-instances", 10, "maximum instances per side with --type")
	cmd.Flags().StringVarP(&opts.output, "output", "o", pipeline.OutputTable, "output format: table, json, csv")
	cmd.Flags().StringVar(&opts.outFile, "out", "", "write output to file (stdout if empty)")
	cmd.Flags().StringVar(&opts.format, "format", "", "dump format (auto-detected if empty)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the graph cache")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "reparse the dumps, bypassing the cache")

	return cmd
}

func (c *CLI) runCompare(cmd *cobra.Command, baselinePath, currentPath string, opts *compareOpts) error {
	baseline, err := c.loadSnapshot(cmd, baselinePath, opts.format, opts.noCache, opts.refresh)
	if err != nil {
		return err
	}
	current, err := c.loadSnapshot(cmd, currentPath, opts.format, opts.noCache, opts.refresh)
	if err != nil {
		return err
	}

	out, err := openOutput(opts.outFile)
	if err != nil {
		return err
	}
	defer out.Close()

	if opts.typeName != "" {
		return c.runCompareInstances(out, baseline.Snapshot, current.Snapshot, opts)
	}

	result := heap.Compare(baseline.Snapshot, current.Snapshot)

	if opts.output == pipeline.OutputTable {
		printNewline()
		printKeyValue("Objects", signedCount(result.ObjectCountDelta))
		printKeyValue("Shallow", signedBytes(result.ShallowDelta))
		printKeyValue("Retained", signedBytes(result.RetainedDelta))
		if len(result.NewTypes) > 0 {
			printKeyValue("New types", strconv.Itoa(len(result.NewTypes)))
		}
		if len(result.RemovedTypes) > 0 {
			printKeyValue("Removed types", strconv.Itoa(len(result.RemovedTypes)))
		}
		printNewline()
	}

	if err := writeComparison(out, result, opts.output); err != nil {
		return err
	}

	if opts.output == pipeline.OutputTable && len(result.Types) > 0 {
		grown := biggestGrowth(result)
		if grown != "" {
			printNextStep("Inspect the biggest growth",
				fmt.Sprintf("heapscope compare %s %s --type %q", baselinePath, currentPath, grown))
		}
	}
	return nil
}

// runCompareInstances prints a side-by-side instance listing for one
// type across both snapshots.
func (c *CLI) runCompareInstances(out io.Writer, baseline, current *heap.Snapshot, opts *compareOpts) error {
	base, cur := heap.CompareInstances(baseline, current, opts.typeName, opts.maxInstances)

	if opts.output == pipeline.OutputJSON {
		return writeInstanceDetails(out, base, cur)
	}

	printKeyValue("Type", opts.typeName)
	printKeyValue("Baseline", fmt.Sprintf("%d instances shown", len(base)))
	printKeyValue("Current", fmt.Sprintf("%d instances shown", len(cur)))
	printNewline()

	if _, err := fmt.Fprintln(out, StyleDim.Render("Baseline")); err != nil {
		return err
	}
	if err := writeInstanceTable(out, base); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(out, StyleDim.Render("Current")); err != nil {
		return err
	}
	return writeInstanceTable(out, cur)
}

func writeInstanceTable(w io.Writer, details []heap.InstanceDetail) error {
	t := newTable("Node", "Address", "Shallow", "Retained")
	for _, d := range details {
		t.Row(
			strconv.Itoa(int(d.Node)),
			fmt.Sprintf("0x%x", d.Address),
			humanBytes(d.Size),
			humanBytes(d.Retained),
		)
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

// biggestGrowth returns the raw name of the type with the largest
// positive retained delta, or "" when nothing grew.
func biggestGrowth(result *heap.ComparisonResult) string {
	var name string
	var best int64
	for _, d := range result.Types {
		if d.RetainedDelta > best {
			best = d.RetainedDelta
			name = d.Name
		}
	}
	return name
}
