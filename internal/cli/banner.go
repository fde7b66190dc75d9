package cli

import (
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/fmueller/enscribe/internal/platform"
	"github.com/fmueller/enscribe/internal/record"
	"github.com/fmueller/enscribe/internal/version"
	"github.com/fmueller/enscribe/internal/whisper"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type checkRow struct {
	name   string
	status string
	detail string
}

// printBanner summarises what the session will use, so a missing engine or
// capture tool is visible before the menu appears.
func (a *appState) printBanner(w io.Writer) {
	rt := platform.CurrentRuntime()
	title := fmt.Sprintf("enscribe v%s (%s/%s)", version.Resolve(), rt.OS, rt.Arch)
	writef(w, "%s\n", renderChecks(title, a.environmentChecks()))
}

func (a *appState) environmentChecks() []checkRow {
	var rows []checkRow

	if engine, err := whisper.NewBundledEngine(a.cfg.Model.WhisperPath, nil); err != nil {
		rows = append(rows, checkRow{name: "whisper engine", status: "missing", detail: err.Error()})
	} else {
		rows = append(rows, checkRow{name: "whisper engine", status: "ok", detail: engine.Executable})
	}

	rows = append(rows, a.modelCheck())

	if path, err := exec.LookPath("ffmpeg"); err != nil {
		rows = append(rows, checkRow{name: "ffmpeg", status: "missing", detail: "non-WAV files depend on whisper-cli's own decoder"})
	} else {
		rows = append(rows, checkRow{name: "ffmpeg", status: "ok", detail: path})
	}

	var available, missing []string
	for _, backend := range a.captureBackends() {
		if backend.Available() {
			available = append(available, backend.Name())
		} else {
			missing = append(missing, backend.Name())
		}
	}
	switch {
	case len(available) > 0:
		rows = append(rows, checkRow{name: "capture", status: "ok", detail: strings.Join(available, ", ")})
	case len(missing) > 0:
		rows = append(rows, checkRow{name: "capture", status: "missing", detail: "install one of: " + strings.Join(missing, ", ")})
	default:
		rows = append(rows, checkRow{name: "capture", status: "missing", detail: "recording is not supported on this platform"})
	}

	return rows
}

func (a *appState) modelCheck() checkRow {
	dir, err := platform.ResolveModelDir(a.cfg.Model.Dir)
	if err != nil {
		return checkRow{name: "model", status: "error", detail: err.Error()}
	}

	resolved, err := whisper.ResolveModel(a.cfg.Model.Name, dir)
	switch {
	case err != nil:
		return checkRow{name: "model", status: "error", detail: err.Error()}
	case !resolved.NeedsDownload:
		return checkRow{name: "model", status: "ok", detail: resolved.Path}
	case a.cfg.Model.AutoDownload:
		return checkRow{name: "model", status: "download", detail: "fetched on first start into " + dir}
	default:
		return checkRow{name: "model", status: "missing", detail: "run `enscribe setup`"}
	}
}

func (a *appState) captureBackends() []record.Backend {
	if a.backends != nil {
		return a.backends
	}
	return record.DefaultBackends(platform.CurrentRuntime().OS)
}

func renderChecks(title string, rows []checkRow) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.SetTitle(title)
	tw.AppendHeader(table.Row{"Component", "Status", "Detail"})
	for _, row := range rows {
		tw.AppendRow(table.Row{row.name, row.status, row.detail})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignCenter, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}
