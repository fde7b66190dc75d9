package cli

import (
	"testing"

	"github.com/fmueller/enscribe/internal/config"
	"github.com/fmueller/enscribe/internal/record"
	"github.com/stretchr/testify/require"
)

func TestEnvironmentChecksWithoutFFmpeg(t *testing.T) {
	dir := isolateEnv(t)
	engine := writeEngineStub(t, dir, "unused")
	t.Setenv("PATH", t.TempDir())

	app := &appState{cfg: config.Default(), backends: []record.Backend{}}
	app.cfg.Model.Dir = dir
	app.cfg.Model.WhisperPath = engine

	rows := map[string]checkRow{}
	for _, row := range app.environmentChecks() {
		rows[row.name] = row
	}

	require.Equal(t, "ok", rows["whisper engine"].status)
	require.Equal(t, engine, rows["whisper engine"].detail)
	require.Equal(t, "missing", rows["ffmpeg"].status)
	require.Equal(t, "non-WAV files depend on whisper-cli's own decoder", rows["ffmpeg"].detail)
	require.Equal(t, "download", rows["model"].status)
	require.Equal(t, "recording is not supported on this platform", rows["capture"].detail)
}
