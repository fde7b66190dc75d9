package record

import (
	"context"
	"strings"
)

type ffmpegLinuxBackend struct{}

func newFFMPEGLinuxBackend() Backend {
	return &ffmpegLinuxBackend{}
}

func (b *ffmpegLinuxBackend) Name() string {
	return "ffmpeg"
}

func (b *ffmpegLinuxBackend) Available() bool {
	return commandAvailable("ffmpeg")
}

// Open captures from PulseAudio unless another ffmpeg input format is
// configured. Plain ALSA hosts are served by the arecord backend.
func (b *ffmpegLinuxBackend) Open(_ context.Context, cfg Config) (Source, error) {
	format := cfg.Format
	if format == "" {
		format = "pulse"
	}
	input := cfg.Input
	if input == "" {
		input = "default"
	}

	return startCommand("ffmpeg", ffmpegCaptureArgs(format, input, cfg)...)
}

func (b *ffmpegLinuxBackend) ListDevices(ctx context.Context) (string, error) {
	var sections []string
	if out, err := commandOutput(ctx, "ffmpeg", "-hide_banner", "-sources", "pulse"); err == nil && out != "" {
		sections = append(sections, "pulse:\n"+out)
	}
	if out, err := commandOutput(ctx, "ffmpeg", "-hide_banner", "-sources", "alsa"); err == nil && out != "" {
		sections = append(sections, "alsa:\n"+out)
	}
	if len(sections) == 0 {
		return "", errNoListing
	}
	return strings.Join(sections, "\n\n"), nil
}
