package record

import (
	"context"
	"strconv"
)

type alsaBackend struct{}

func newALSARecorderBackend() Backend {
	return &alsaBackend{}
}

func (b *alsaBackend) Name() string {
	return "arecord"
}

func (b *alsaBackend) Available() bool {
	return commandAvailable("arecord")
}

func (b *alsaBackend) Open(_ context.Context, cfg Config) (Source, error) {
	args := []string{
		"-q", "-t", "raw", "-f", "S16_LE",
		"-r", strconv.Itoa(defaultSampleRate(cfg.SampleRate)),
		"-c", strconv.Itoa(defaultChannels(cfg.Channels)),
	}
	if cfg.Input != "" {
		args = append(args, "-D", cfg.Input)
	}

	return startCommand("arecord", args...)
}

func (b *alsaBackend) ListDevices(ctx context.Context) (string, error) {
	return commandOutput(ctx, "arecord", "-L")
}
