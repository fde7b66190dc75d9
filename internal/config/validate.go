package config

import (
	"errors"
	"fmt"

	"go.uber.org/zap/zapcore"
	"golang.org/x/text/language"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateModel(); err != nil {
		return err
	}
	if err := c.validateRecording(); err != nil {
		return err
	}
	if err := c.validateTranscription(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateModel() error {
	if c.Model.Name == "" {
		return errors.New("model.name must be set")
	}
	return nil
}

func (c *Config) validateRecording() error {
	r := c.Recording
	if r.MaxSeconds <= 0 {
		return fmt.Errorf("recording.max_seconds must be positive, got %d", r.MaxSeconds)
	}
	if r.DefaultSeconds <= 0 || r.DefaultSeconds > r.MaxSeconds {
		return fmt.Errorf("recording.default_seconds must be within 1..%d, got %d", r.MaxSeconds, r.DefaultSeconds)
	}
	if r.SampleRate <= 0 {
		return fmt.Errorf("recording.sample_rate must be positive, got %d", r.SampleRate)
	}
	if r.Channels != 1 {
		return fmt.Errorf("recording.channels must be 1, got %d", r.Channels)
	}
	if r.ArtifactPath == "" || r.ArtifactPath == "." {
		return errors.New("recording.artifact_path must be set")
	}
	if r.StallGraceSeconds < 0 {
		return fmt.Errorf("recording.stall_grace_seconds must not be negative, got %d", r.StallGraceSeconds)
	}
	return nil
}

func (c *Config) validateTranscription() error {
	code, err := NormalizeLanguage(c.Transcription.Language)
	if err != nil {
		return err
	}
	c.Transcription.Language = code
	return nil
}

func (c *Config) validateLogging() error {
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	return nil
}

// NormalizeLanguage maps a language code to the two-letter base whisper
// expects. Auto-detection is rejected: transcription is always pinned.
func NormalizeLanguage(code string) (string, error) {
	if code == "" || code == "auto" {
		return "", fmt.Errorf("transcription.language must name a language, got %q", code)
	}

	base, err := language.ParseBase(code)
	if err != nil {
		return "", fmt.Errorf("transcription.language %q: %w", code, err)
	}
	return base.String(), nil
}
