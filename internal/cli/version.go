package cli

import (
	"github.com/fmueller/enscribe/internal/version"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := version.Current()
			writef(cmd.OutOrStdout(), "enscribe v%s\n", info.String())
			if verbose {
				writef(cmd.OutOrStdout(), "commit: %s\nbuilt:  %s\n", orUnknown(info.Commit), orUnknown(info.Date))
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Also print commit and build date")
	return cmd
}

func orUnknown(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
