package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/matzehuels/heapscope/internal/cli"
	"github.com/matzehuels/heapscope/pkg/errors"
)

// Exit statuses, so scripts can tell a bad dump from a missing file
// without parsing stderr. 130 follows the shell convention for SIGINT.
const (
	exitOK          = 0
	exitError       = 1
	exitInvalid     = 2
	exitNotFound    = 3
	exitUnsupported = 4
	exitInterrupted = 130
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err := newRootCommand().ExecuteContext(ctx)
	if err == nil {
		os.Exit(exitOK)
	}
	if stderrors.Is(err, context.Canceled) {
		os.Exit(exitInterrupted)
	}
	fmt.Fprintln(os.Stderr, errors.UserMessage(err))
	os.Exit(exitCode(err))
}

func newRootCommand() *cobra.Command {
	var verbose bool

	c := cli.New(os.Stderr, cli.LogInfo)
	root := c.RootCommand()
	root.SilenceErrors = true
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	// The logger level has to follow the flag, which is only known
	// after cobra parses it.
	chained := root.PersistentPreRunE
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if verbose {
			c.SetLogLevel(cli.LogDebug)
		}
		if chained != nil {
			return chained(cmd, args)
		}
		return nil
	}

	return root
}

// exitCode maps an error's code family to an exit status.
func exitCode(err error) int {
	code := string(errors.GetCode(err))
	switch {
	case code == "":
		return exitError
	case strings.HasPrefix(code, "INVALID_"):
		return exitInvalid
	case strings.HasSuffix(code, "NOT_FOUND"):
		return exitNotFound
	case strings.HasPrefix(code, "UNSUPPORTED"):
		return exitUnsupported
	default:
		return exitError
	}
}
