package cli

import (
	"io"
	"os"

	"github.com/spf13/cobra"
)

// completionGenerators maps a shell name to the cobra generator that
// emits its completion script for the root command.
var completionGenerators = map[string]func(*cobra.Command, io.Writer) error{
	"bash": func(root *cobra.Command, w io.Writer) error {
		return root.GenBashCompletion(w)
	},
	"zsh": func(root *cobra.Command, w io.Writer) error {
		return root.GenZshCompletion(w)
	},
	"fish": func(root *cobra.Command, w io.Writer) error {
		return root.GenFishCompletion(w, true)
	},
	"powershell": func(root *cobra.Command, w io.Writer) error {
		return root.GenPowerShellCompletionWithDesc(w)
	},
}

// completionCommand creates the completion command. Completions cover
// subcommand names and flags; dump paths complete through the shell's
// normal file completion.
func (c *CLI) completionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion <bash|zsh|fish|powershell>",
		Short: "Generate a shell completion script",
		Long: `Generate a completion script for the named shell and print it to
stdout. Load it directly for the current session:

  source <(heapscope completion bash)
  heapscope completion fish | source

or install it where the shell picks it up at startup, for example:

  heapscope completion bash > /etc/bash_completion.d/heapscope
  heapscope completion zsh  > "${fpath[1]}/_heapscope"
  heapscope completion fish > ~/.config/fish/completions/heapscope.fish
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return completionGenerators[args[0]](cmd.Root(), os.Stdout)
		},
	}
}
