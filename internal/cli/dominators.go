package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/heapscope/pkg/errors"
	"github.com/matzehuels/heapscope/pkg/render/domviz"
)

// dominatorsOpts holds the command-line flags for the dominators command.
type dominatorsOpts struct {
	root        string // subtree root target ("" = snapshot root)
	depth       int    // levels below the root
	maxChildren int    // fanout cap per node
	renderAs    string // render format: dot, svg, png, pdf
	outFile     string // output file path
	format      string // dump format override
	noCache     bool
	refresh     bool
}

// dominatorsCommand creates the dominators command, which renders the
// dominator tree as a diagram.
func (c *CLI) dominatorsCommand() *cobra.Command {
	opts := dominatorsOpts{}

	cmd := &cobra.Command{
		Use:   "dominators <dump>",
		Short: "Render the dominator tree as a DOT, SVG, PNG, or PDF diagram",
		Long: `Render the dominator tree as a DOT, SVG, PNG, or PDF diagram.

Each box is an object labeled with its type, address, and retained
size; an edge means the parent is the sole retainer of the child. Use
--root to zoom into a subtree, addressed the same way as the paths
command targets (node handle, 0x address, or type name).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateRenderFormat(opts.renderAs); err != nil {
				return err
			}
			return c.runDominators(cmd, args[0], &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.root, "root", "r", "", "subtree root: node handle, 0x address, or type name")
	cmd.Flags().IntVarP(&opts.depth, "depth", "d", 0, "levels below the root (0 = default)")
	cmd.Flags().IntVar(&opts.maxChildren, "max-children", 0, "fanout cap per node (0 = default)")
	cmd.Flags().StringVarP(&opts.renderAs, "format", "f", "svg", "render format: dot, svg, png, pdf")
	cmd.Flags().StringVarP(&opts.outFile, "out", "o", "", "output file (derived from the dump name if empty)")
	cmd.Flags().StringVar(&opts.format, "dump-format", "", "dump format (auto-detected if empty)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the graph cache")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "reparse the dump, bypassing the cache")

	return cmd
}

func validateRenderFormat(format string) error {
	switch format {
	case "dot", "svg", "png", "pdf":
		return nil
	default:
		return errors.New(errors.ErrCodeInvalidFormat,
			"invalid render format %q (valid: dot, svg, png, pdf)", format)
	}
}

func (c *CLI) runDominators(cmd *cobra.Command, dumpPath string, opts *dominatorsOpts) error {
	runner, err := c.newRunner(opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	result, err := c.loadSnapshotWith(runner, cmd, dumpPath, opts.format, opts.refresh)
	if err != nil {
		return err
	}
	s := result.Snapshot

	vizOpts := domviz.Options{
		Root:        s.Root(),
		Depth:       opts.depth,
		MaxChildren: opts.maxChildren,
	}
	if opts.root != "" {
		node, err := resolveTarget(s, opts.root)
		if err != nil {
			return err
		}
		vizOpts.Root = node
	}

	data, _, err := runner.RenderDominatorsWithCacheInfo(
		cmd.Context(), s, result.GraphHash, vizOpts, opts.renderAs, opts.refresh)
	if err != nil {
		return fmt.Errorf("render dominator tree: %w", err)
	}

	outPath := opts.outFile
	if outPath == "" {
		base := strings.TrimSuffix(filepath.Base(dumpPath), filepath.Ext(dumpPath))
		outPath = base + ".dominators." + opts.renderAs
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}

	printSuccess("Rendered dominator tree")
	printFile(outPath)
	return nil
}
