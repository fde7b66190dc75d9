package whisper

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/fmueller/enscribe/internal/download"
	"go.uber.org/zap"
)

// ErrModelLoad is fatal for a session: nothing can be transcribed without a
// model and an engine.
var ErrModelLoad = errors.New("failed to load speech recognition model")

// Handle is a loaded model bound to the engine that runs it. It is created
// once and never changes.
type Handle struct {
	name      string
	modelPath string
	engine    Engine
}

func NewHandle(name, modelPath string, engine Engine) Handle {
	return Handle{name: name, modelPath: modelPath, engine: engine}
}

func (h Handle) Name() string      { return h.name }
func (h Handle) ModelPath() string { return h.modelPath }
func (h Handle) Engine() Engine    { return h.engine }

// Loaded reports whether the handle came from a successful load.
func (h Handle) Loaded() bool {
	return h.engine != nil && h.modelPath != ""
}

// Transcribe runs the bound engine on one audio file.
func (h Handle) Transcribe(ctx context.Context, audioPath, language string) (string, error) {
	if !h.Loaded() {
		return "", errors.New("model is not loaded")
	}
	return h.engine.Transcribe(ctx, TranscriptionRequest{
		AudioPath: audioPath,
		ModelPath: h.modelPath,
		Language:  language,
	})
}

type Fetcher interface {
	Fetch(ctx context.Context, req download.Request) error
}

type LoaderOptions struct {
	ModelName    string
	ModelDir     string
	AutoDownload bool
	WhisperPath  string
	Fetcher      Fetcher
	Logger       *zap.Logger
	// NewEngine replaces engine discovery, mainly for tests.
	NewEngine func() (Engine, error)
}

type Loader struct {
	modelName    string
	modelDir     string
	autoDownload bool
	fetcher      Fetcher
	newEngine    func() (Engine, error)
	logger       *zap.Logger
}

func NewLoader(opts LoaderOptions) *Loader {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Fetcher == nil {
		opts.Fetcher = download.New(download.Options{Logger: opts.Logger})
	}
	if opts.NewEngine == nil {
		whisperPath, logger := opts.WhisperPath, opts.Logger
		opts.NewEngine = func() (Engine, error) {
			return NewBundledEngine(whisperPath, logger)
		}
	}

	return &Loader{
		modelName:    opts.ModelName,
		modelDir:     opts.ModelDir,
		autoDownload: opts.AutoDownload,
		fetcher:      opts.Fetcher,
		newEngine:    opts.NewEngine,
		logger:       opts.Logger,
	}
}

// Load resolves the engine and the configured model, downloading the model
// when it is missing and auto-download is on. Every failure wraps
// ErrModelLoad.
func (l *Loader) Load(ctx context.Context) (Handle, error) {
	engine, err := l.newEngine()
	if err != nil {
		return Handle{}, fmt.Errorf("%w: %w", ErrModelLoad, err)
	}

	resolved, err := l.Prepare(ctx, l.autoDownload)
	if err != nil {
		return Handle{}, fmt.Errorf("%w: %w", ErrModelLoad, err)
	}

	l.logger.Info("model loaded", zap.String("model", resolved.Name), zap.String("path", resolved.Path))
	return NewHandle(resolved.Name, resolved.Path, engine), nil
}

// Prepare makes sure the model file is present and non-empty. With fetch
// set a missing named model is downloaded and checksum-verified.
func (l *Loader) Prepare(ctx context.Context, fetch bool) (ResolvedModel, error) {
	resolved, err := ResolveModel(l.modelName, l.modelDir)
	if err != nil {
		return ResolvedModel{}, err
	}

	if resolved.NeedsDownload {
		if !fetch {
			return ResolvedModel{}, fmt.Errorf("model %q is not downloaded (expected at %s); run `enscribe setup` or enable model.auto_download", resolved.Name, resolved.Path)
		}

		l.logger.Info("downloading model", zap.String("model", resolved.Name), zap.String("url", resolved.URL))
		if err := l.fetcher.Fetch(ctx, download.Request{
			URL:         resolved.URL,
			Destination: resolved.Path,
			SHA256:      resolved.SHA256,
		}); err != nil {
			return ResolvedModel{}, fmt.Errorf("download model %q: %w", resolved.Name, err)
		}
		resolved.NeedsDownload = false
	}

	info, err := os.Stat(resolved.Path)
	if err != nil {
		return ResolvedModel{}, fmt.Errorf("stat model: %w", err)
	}
	if info.Size() == 0 {
		return ResolvedModel{}, fmt.Errorf("model file %s is empty", resolved.Path)
	}

	return resolved, nil
}

// Verify checks an existing named model against its pinned checksum.
func (l *Loader) Verify(resolved ResolvedModel) error {
	if resolved.IsCustomPath || resolved.SHA256 == "" {
		return nil
	}
	return download.VerifyFileChecksum(resolved.Path, resolved.SHA256)
}
