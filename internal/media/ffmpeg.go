package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrDecoderUnavailable means no ffmpeg binary could be found.
var ErrDecoderUnavailable = errors.New("ffmpeg is not installed")

// FFmpegDecoder converts audio files with an external ffmpeg binary.
type FFmpegDecoder struct {
	Binary     string
	SampleRate int
	Channels   int
}

func NewFFmpegDecoder(sampleRate, channels int) *FFmpegDecoder {
	return &FFmpegDecoder{Binary: "ffmpeg", SampleRate: sampleRate, Channels: channels}
}

func (d *FFmpegDecoder) binary() string {
	if strings.TrimSpace(d.Binary) == "" {
		return "ffmpeg"
	}
	return d.Binary
}

// Available reports whether the ffmpeg binary can be resolved.
func (d *FFmpegDecoder) Available() bool {
	_, err := exec.LookPath(d.binary())
	return err == nil
}

// Decode writes src as PCM WAV into dstDir and returns the new path.
func (d *FFmpegDecoder) Decode(ctx context.Context, src, dstDir string) (string, error) {
	binary, err := exec.LookPath(d.binary())
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDecoderUnavailable, err)
	}

	base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	out := filepath.Join(dstDir, base+"_16k.wav")

	rate := d.SampleRate
	if rate <= 0 {
		rate = 16000
	}
	channels := d.Channels
	if channels <= 0 {
		channels = 1
	}

	cmd := exec.CommandContext(ctx, binary,
		"-nostdin", "-hide_banner", "-loglevel", "error",
		"-y", "-i", src,
		"-vn",
		"-ac", strconv.Itoa(channels), "-ar", strconv.Itoa(rate),
		"-c:a", "pcm_s16le",
		"-f", "wav",
		out,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if detail := strings.TrimSpace(stderr.String()); detail != "" {
			return "", fmt.Errorf("ffmpeg: %w (%s)", err, detail)
		}
		return "", fmt.Errorf("ffmpeg: %w", err)
	}
	return out, nil
}
