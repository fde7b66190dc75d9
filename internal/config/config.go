package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fmueller/enscribe/internal/platform"
	"github.com/pelletier/go-toml/v2"
)

// Model selects the whisper model variant and where it is stored.
type Model struct {
	Name         string `toml:"name"`
	Dir          string `toml:"dir"`
	AutoDownload bool   `toml:"auto_download"`
	// WhisperPath overrides the bundled whisper-cli lookup.
	WhisperPath string `toml:"whisper_path"`
}

// Recording controls microphone capture and the temporary artifact.
type Recording struct {
	DefaultSeconds int `toml:"default_seconds"`
	MaxSeconds     int `toml:"max_seconds"`
	SampleRate     int `toml:"sample_rate"`
	Channels       int `toml:"channels"`
	// ArtifactPath is the fixed temporary WAV, relative to the working directory.
	ArtifactPath string `toml:"artifact_path"`
	// UniqueArtifact puts the session ID into the artifact name.
	UniqueArtifact    bool   `toml:"unique_artifact"`
	Backend           string `toml:"backend"`
	Input             string `toml:"input"`
	InputFormat       string `toml:"input_format"`
	StallGraceSeconds int    `toml:"stall_grace_seconds"`
}

// Transcription pins the language passed to the engine.
type Transcription struct {
	Language string `toml:"language"`
}

// Logging contains configuration for diagnostic log output.
type Logging struct {
	Level string `toml:"level"`
	JSON  bool   `toml:"json"`
}

// UI toggles terminal decorations.
type UI struct {
	NoProgress bool `toml:"no_progress"`
	Banner     bool `toml:"banner"`
}

// Config encapsulates every setting the session needs.
type Config struct {
	Model         Model         `toml:"model"`
	Recording     Recording     `toml:"recording"`
	Transcription Transcription `toml:"transcription"`
	Logging       Logging       `toml:"logging"`
	UI            UI            `toml:"ui"`
}

// StallGrace is how long capture may overrun the requested duration before
// the device is considered stuck.
func (c Config) StallGrace() time.Duration {
	return time.Duration(c.Recording.StallGraceSeconds) * time.Second
}

// Load reads the config file (if any), applies environment overrides, and
// validates the result. An empty path falls back to ENSCRIBE_CONFIG and then
// the platform default location. It reports the resolved path and whether a
// file was read.
func Load(path string) (Config, string, bool, error) {
	cfg := Default()

	if strings.TrimSpace(path) == "" {
		path = strings.TrimSpace(os.Getenv(envConfig))
	}

	resolved, err := platform.ResolveConfigPath(path)
	if err != nil {
		return Config{}, "", false, err
	}

	exists, err := decodeFile(resolved, &cfg)
	if err != nil {
		return Config{}, "", false, err
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, "", false, err
	}

	if err := cfg.normalize(); err != nil {
		return Config{}, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, "", false, err
	}

	return cfg, resolved, exists, nil
}

func decodeFile(path string, cfg *Config) (bool, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	decoder := toml.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return false, fmt.Errorf("parse config %s: %s", path, strings.TrimSpace(strict.String()))
		}
		return false, fmt.Errorf("parse config %s: %w", path, err)
	}

	return true, nil
}

func (c *Config) normalize() error {
	c.Model.Name = strings.TrimSpace(c.Model.Name)
	c.Transcription.Language = strings.ToLower(strings.TrimSpace(c.Transcription.Language))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Recording.Backend = strings.ToLower(strings.TrimSpace(c.Recording.Backend))
	if c.Recording.Backend == "" {
		c.Recording.Backend = defaultBackend
	}

	for _, p := range []*string{&c.Model.Dir, &c.Model.WhisperPath} {
		expanded, err := ExpandPath(*p)
		if err != nil {
			return err
		}
		*p = expanded
	}

	c.Recording.ArtifactPath = filepath.Clean(strings.TrimSpace(c.Recording.ArtifactPath))
	return nil
}

// ExpandPath resolves a leading ~ to the user's home directory.
func ExpandPath(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" || !strings.HasPrefix(value, "~") {
		return value, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	if value == "~" {
		return home, nil
	}
	if value[1] == '/' || value[1] == '\\' {
		return filepath.Join(home, value[2:]), nil
	}
	return value, nil
}

// Sample renders the effective configuration as TOML.
func (c Config) Sample() (string, error) {
	out, err := toml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("render config: %w", err)
	}
	return string(out), nil
}
