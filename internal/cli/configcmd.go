package cli

import (
	"github.com/spf13/cobra"
)

func newConfigCmd(app *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rendered, err := app.cfg.Sample()
			if err != nil {
				return err
			}

			source := "not found, using defaults"
			if app.cfgExists {
				source = "loaded"
			}
			writef(cmd.OutOrStdout(), "# %s (%s)\n%s", app.cfgPath, source, rendered)
			return nil
		},
	}
}
