package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/heapscope/pkg/errors"
	"github.com/matzehuels/heapscope/pkg/heap"
	"github.com/matzehuels/heapscope/pkg/pipeline"
)

// pathsOpts holds the command-line flags for the paths command.
type pathsOpts struct {
	max     int    // maximum paths per target (0 = config default)
	output  string // output format: table (plain lines), json
	format  string // dump format override
	noCache bool
	refresh bool
}

// pathsCommand creates the paths command, which renders retention
// chains from a target object back to the root set.
func (c *CLI) pathsCommand() *cobra.Command {
	opts := pathsOpts{}

	cmd := &cobra.Command{
		Use:   "paths <dump> <target>",
		Short: "Show reference paths from an object back to the roots",
		Long: `Show reference paths from an object back to the roots.

The target is a node handle (as printed by other commands), an object
address with a 0x prefix, or a type name. A type name resolves to the
instance with the largest retained size.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.max == 0 {
				opts.max = c.Config.MaxPaths
			}
			if err := pipeline.ValidateOutput(opts.output); err != nil {
				return err
			}
			return c.runPaths(cmd, args[0], args[1], &opts)
		},
	}

	cmd.Flags().IntVarP(&opts.max, "max", "m", 0, "maximum number of paths per target")
	cmd.Flags().StringVarP(&opts.output, "output", "o", pipeline.OutputTable, "output format: table, json")
	cmd.Flags().StringVar(&opts.format, "format", "", "dump format (auto-detected if empty)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the graph cache")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "reparse the dump, bypassing the cache")

	return cmd
}

func (c *CLI) runPaths(cmd *cobra.Command, dumpPath, target string, opts *pathsOpts) error {
	result, err := c.loadSnapshot(cmd, dumpPath, opts.format, opts.noCache, opts.refresh)
	if err != nil {
		return err
	}
	s := result.Snapshot

	node, err := resolveTarget(s, target)
	if err != nil {
		return err
	}

	if opts.output == pipeline.OutputTable {
		printKeyValue("Target", fmt.Sprintf("%s @ 0x%x", s.DisplayName(node), s.Graph().Address(node)))
		printKeyValue("Shallow", humanBytes(s.ShallowSize(node)))
		printKeyValue("Retained", humanBytes(s.RetainedSize(node)))
		printNewline()
	}

	out, err := openOutput("")
	if err != nil {
		return err
	}
	defer out.Close()

	return writePaths(out, s.ReferencePaths(node, opts.max), opts.output)
}

// resolveTarget maps a user-supplied target string to a node handle.
// Decimal input is a node handle, 0x-prefixed input is an object
// address, anything else is a type name resolved to its heaviest
// instance by retained size.
func resolveTarget(s *heap.Snapshot, target string) (heap.NodeID, error) {
	if n, err := strconv.Atoi(target); err == nil {
		if n < 0 || n >= s.NumNodes() {
			return 0, errors.New(errors.ErrCodeInvalidNode,
				"node handle %d out of range [0, %d)", n, s.NumNodes())
		}
		return heap.NodeID(n), nil
	}

	if strings.HasPrefix(target, "0x") || strings.HasPrefix(target, "0X") {
		addr, err := strconv.ParseUint(target[2:], 16, 64)
		if err != nil {
			return 0, errors.New(errors.ErrCodeInvalidInput, "invalid address %q", target)
		}
		g := s.Graph()
		for n := 0; n < g.NumNodes(); n++ {
			if g.Address(heap.NodeID(n)) == addr {
				return heap.NodeID(n), nil
			}
		}
		return 0, errors.New(errors.ErrCodeNotFound, "no object at address %s", target)
	}

	return resolveTypeTarget(s, target)
}

// resolveTypeTarget finds the heaviest instance of the named type.
// Exact raw-name matches win; otherwise a unique case-insensitive
// substring match is accepted.
func resolveTypeTarget(s *heap.Snapshot, name string) (heap.NodeID, error) {
	stats := s.TypeStatistics(0)

	var candidates []heap.TypeStats
	for _, ts := range stats {
		if ts.Name == name || ts.DisplayName == name {
			candidates = []heap.TypeStats{ts}
			break
		}
		if strings.Contains(strings.ToLower(ts.Name), strings.ToLower(name)) {
			candidates = append(candidates, ts)
		}
	}

	switch len(candidates) {
	case 0:
		return 0, errors.New(errors.ErrCodeTypeNotFound, "no type matches %q", name)
	case 1:
	default:
		names := make([]string, 0, len(candidates))
		for _, ts := range candidates {
			names = append(names, ts.Name)
		}
		return 0, errors.New(errors.ErrCodeInvalidInput,
			"type %q is ambiguous: %s", name, strings.Join(names, ", "))
	}

	best := candidates[0].Instances[0]
	for _, n := range candidates[0].Instances[1:] {
		if s.RetainedSize(n) > s.RetainedSize(best) {
			best = n
		}
	}
	return best, nil
}
