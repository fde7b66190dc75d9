package cli

import (
	"fmt"
	"io"

	"github.com/fmueller/enscribe/internal/platform"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newDevicesCmd(app *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List recording devices and backend diagnostics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			backends := app.captureBackends()
			if len(backends) == 0 {
				return fmt.Errorf("unsupported OS: %s", platform.CurrentRuntime().OS)
			}

			out := cmd.OutOrStdout()
			summary := table.NewWriter()
			summary.SetStyle(table.StyleLight)
			summary.AppendHeader(table.Row{"Backend", "Available", "Selected"})
			for _, backend := range backends {
				selected := ""
				if backend.Name() == app.cfg.Recording.Backend {
					selected = "yes"
				}
				summary.AppendRow(table.Row{backend.Name(), yesNo(backend.Available()), selected})
			}
			writef(out, "%s\n\n", summary.Render())

			for _, backend := range backends {
				writef(out, "== %s ==\n", backend.Name())
				if !backend.Available() {
					writeSection(out, "not available on PATH")
					continue
				}

				listing, err := backend.ListDevices(commandContext(cmd))
				if err != nil {
					writeSection(out, fmt.Sprintf("failed to list devices: %v", err))
					continue
				}
				if listing == "" {
					writeSection(out, "no output")
					continue
				}
				writeSection(out, listing)
			}

			return nil
		},
	}
}

func writeSection(w io.Writer, body string) {
	writef(w, "%s\n\n", body)
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
