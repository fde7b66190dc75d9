package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	envConfig       = "ENSCRIBE_CONFIG"
	envModel        = "ENSCRIBE_MODEL"
	envModelDir     = "ENSCRIBE_MODEL_DIR"
	envAutoDownload = "ENSCRIBE_AUTO_DOWNLOAD"
	envWhisperPath  = "ENSCRIBE_WHISPER_PATH"
	envLanguage     = "ENSCRIBE_LANGUAGE"
	envBackend      = "ENSCRIBE_BACKEND"
	envInput        = "ENSCRIBE_INPUT"
	envArtifact     = "ENSCRIBE_ARTIFACT"
	envUnique       = "ENSCRIBE_UNIQUE_ARTIFACT"
	envLogLevel     = "ENSCRIBE_LOG_LEVEL"
	envLogJSON      = "ENSCRIBE_LOG_JSON"
	envNoProgress   = "ENSCRIBE_NO_PROGRESS"
)

// LoadDotEnv reads KEY=value pairs from path into the process environment.
// Variables that are already set win. A missing file is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}

	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

type lookupFunc func(string) (string, bool)

func applyEnv(cfg *Config, lookup lookupFunc) error {
	strs := []struct {
		key    string
		target *string
	}{
		{envModel, &cfg.Model.Name},
		{envModelDir, &cfg.Model.Dir},
		{envWhisperPath, &cfg.Model.WhisperPath},
		{envLanguage, &cfg.Transcription.Language},
		{envBackend, &cfg.Recording.Backend},
		{envInput, &cfg.Recording.Input},
		{envArtifact, &cfg.Recording.ArtifactPath},
		{envLogLevel, &cfg.Logging.Level},
	}
	for _, s := range strs {
		if value, ok := lookupNonEmpty(lookup, s.key); ok {
			*s.target = value
		}
	}

	bools := []struct {
		key    string
		target *bool
	}{
		{envAutoDownload, &cfg.Model.AutoDownload},
		{envUnique, &cfg.Recording.UniqueArtifact},
		{envLogJSON, &cfg.Logging.JSON},
		{envNoProgress, &cfg.UI.NoProgress},
	}
	for _, b := range bools {
		value, ok := lookupNonEmpty(lookup, b.key)
		if !ok {
			continue
		}
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s: expected a boolean, got %q", b.key, value)
		}
		*b.target = parsed
	}

	return nil
}

func lookupNonEmpty(lookup lookupFunc, key string) (string, bool) {
	value, ok := lookup(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}
