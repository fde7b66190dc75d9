package record

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

type ffmpegMacBackend struct{}

func newFFMPEGMacOSBackend() Backend {
	return &ffmpegMacBackend{}
}

func (b *ffmpegMacBackend) Name() string {
	return "ffmpeg"
}

func (b *ffmpegMacBackend) Available() bool {
	return commandAvailable("ffmpeg")
}

func (b *ffmpegMacBackend) Open(_ context.Context, cfg Config) (Source, error) {
	input := cfg.Input
	if input == "" {
		input = ":0"
	}
	format := cfg.Format
	if format == "" {
		format = "avfoundation"
	}

	return startCommand("ffmpeg", ffmpegCaptureArgs(format, input, cfg)...)
}

func (b *ffmpegMacBackend) ListDevices(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, "ffmpeg", "-hide_banner", "-f", "avfoundation", "-list_devices", "true", "-i", "")
	out, _ := cmd.CombinedOutput()
	trimmed := strings.TrimSpace(string(out))
	if trimmed == "" {
		return "", fmt.Errorf("ffmpeg returned no device output")
	}
	return trimmed, nil
}

// ffmpegCaptureArgs streams raw s16le from the given input to stdout.
func ffmpegCaptureArgs(format, input string, cfg Config) []string {
	return []string{
		"-nostdin", "-hide_banner", "-loglevel", "error",
		"-f", format, "-i", input,
		"-ac", strconv.Itoa(defaultChannels(cfg.Channels)),
		"-ar", strconv.Itoa(defaultSampleRate(cfg.SampleRate)),
		"-f", "s16le", "-",
	}
}
