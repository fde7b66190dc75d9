package main

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/fmueller/enscribe/internal/cli"
	"github.com/spf13/cobra"
)

// usageErrors are the cobra messages that mean the command line itself was
// wrong, as opposed to a failure while running.
var usageErrors = []string{
	"unknown command",
	"unknown flag",
	"unknown shorthand flag",
	"accepts ",
	"requires at least",
	"requires at most",
	"requires between",
	"required flag",
	"missing required",
	"invalid argument",
}

func main() {
	os.Exit(run(cli.NewRootCmd(), os.Args[1:], os.Stderr))
}

// run executes root with args and returns the process exit code. The
// interactive session reports its own failures and exits 0.
func run(root *cobra.Command, args []string, stderr io.Writer) int {
	root.SetArgs(args)
	err := root.Execute()
	if err == nil {
		return 0
	}

	fmt.Fprintln(stderr, err)
	if isUsageError(err) {
		fmt.Fprintf(stderr, "Run '%s --help' for usage.\n", helpTarget(root, args))
	}
	return 1
}

func isUsageError(err error) bool {
	if err == nil {
		return false
	}
	message := strings.ToLower(err.Error())
	return slices.ContainsFunc(usageErrors, func(marker string) bool {
		return strings.Contains(message, marker)
	})
}

// helpTarget names the subcommand whose help is most useful for args.
func helpTarget(root *cobra.Command, args []string) string {
	if root == nil {
		return "enscribe"
	}
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return root.CommandPath()
	}
	if found, _, err := root.Find(args); err == nil && found != nil {
		return found.CommandPath()
	}
	return root.CommandPath()
}
