package transcribe

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fmueller/enscribe/internal/audio"
	"github.com/fmueller/enscribe/internal/whisper"
	"go.uber.org/zap"
)

var (
	ErrFileNotFound      = errors.New("audio file not found")
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrDecode            = errors.New("could not decode audio")
	ErrInference         = errors.New("transcription failed")
)

// Decoder converts arbitrary audio into the PCM WAV layout the engine reads.
type Decoder interface {
	Available() bool
	Decode(ctx context.Context, src, dstDir string) (string, error)
}

type Options struct {
	Decoder    Decoder
	SampleRate int
	Channels   int
	Logger     *zap.Logger
}

type Service struct {
	decoder    Decoder
	sampleRate int
	channels   int
	logger     *zap.Logger
}

type Result struct {
	Text     string
	Language string
}

func NewService(opts Options) *Service {
	if opts.SampleRate <= 0 {
		opts.SampleRate = 16000
	}
	if opts.Channels <= 0 {
		opts.Channels = 1
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &Service{
		decoder:    opts.Decoder,
		sampleRate: opts.SampleRate,
		channels:   opts.Channels,
		logger:     opts.Logger,
	}
}

// Transcribe converts the audio at path to text in the given language. A
// missing or unreadable file fails before the decoder or engine is touched. Empty text is a valid
// result for silent audio.
func (s *Service) Transcribe(ctx context.Context, handle whisper.Handle, path, language string) (Result, error) {
	language = strings.TrimSpace(language)
	if language == "" || language == "auto" {
		return Result{}, fmt.Errorf("an explicit language is required, got %q", language)
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Result{}, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return Result{}, fmt.Errorf("%w: %s: %w", ErrFileNotFound, path, err)
	}
	if info.IsDir() {
		return Result{}, fmt.Errorf("%w: %s is a directory", ErrFileNotFound, path)
	}
	if err := checkReadable(path); err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrFileNotFound, err)
	}

	input, cleanup, err := s.prepare(ctx, path)
	if err != nil {
		return Result{}, err
	}
	defer cleanup()

	s.logger.Debug("transcribing", zap.String("path", path), zap.String("input", input), zap.String("language", language), zap.String("model", handle.Name()))
	text, err := handle.Transcribe(ctx, input, language)
	if err != nil {
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return Result{}, err
		case errors.Is(err, whisper.ErrAudioUnreadable):
			return Result{}, fmt.Errorf("%w: %w", ErrUnsupportedFormat, err)
		default:
			return Result{}, fmt.Errorf("%w: %w", ErrInference, err)
		}
	}

	return Result{Text: strings.TrimSpace(text), Language: language}, nil
}

func checkReadable(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	return f.Close()
}

// prepare returns the path the engine should read and a func that removes
// any intermediate file.
func (s *Service) prepare(ctx context.Context, path string) (string, func(), error) {
	noop := func() {}

	if strings.EqualFold(filepath.Ext(path), ".wav") {
		info, err := audio.Inspect(path)
		switch {
		case err == nil && info.Matches(s.sampleRate, s.channels):
			return path, noop, nil
		case errors.Is(err, audio.ErrInvalidWAV):
			return "", noop, fmt.Errorf("%w: %s: %w", ErrUnsupportedFormat, path, err)
		case err != nil && !errors.Is(err, audio.ErrUnsupportedWAV):
			return "", noop, fmt.Errorf("%w: %s: %w", ErrFileNotFound, path, err)
		}
		s.logger.Debug("wav layout needs conversion", zap.String("path", path), zap.Int("sample_rate", info.SampleRate), zap.Int("channels", info.Channels))
	}

	// whisper-cli reads common containers itself when ffmpeg is absent.
	if s.decoder == nil || !s.decoder.Available() {
		s.logger.Debug("no decoder available, passing file to engine as is", zap.String("path", path))
		return path, noop, nil
	}

	dir, err := os.MkdirTemp("", "enscribe-decode-")
	if err != nil {
		return "", noop, fmt.Errorf("%w: create temp dir: %w", ErrDecode, err)
	}
	cleanup := func() {
		if err := os.RemoveAll(dir); err != nil {
			s.logger.Warn("failed to remove decoded audio", zap.String("dir", dir), zap.Error(err))
		}
	}

	decoded, err := s.decoder.Decode(ctx, path, dir)
	if err != nil {
		cleanup()
		return "", noop, fmt.Errorf("%w: %s: %w", ErrDecode, path, err)
	}

	return decoded, cleanup, nil
}
