package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fmueller/enscribe/internal/config"
	"github.com/fmueller/enscribe/internal/console"
	"github.com/fmueller/enscribe/internal/download"
	"github.com/fmueller/enscribe/internal/logging"
	"github.com/fmueller/enscribe/internal/media"
	"github.com/fmueller/enscribe/internal/platform"
	"github.com/fmueller/enscribe/internal/record"
	"github.com/fmueller/enscribe/internal/session"
	"github.com/fmueller/enscribe/internal/transcribe"
	"github.com/fmueller/enscribe/internal/version"
	"github.com/fmueller/enscribe/internal/whisper"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
)

type appState struct {
	configPath   string
	model        string
	modelDir     string
	whisperPath  string
	autoDownload bool
	backend      string
	input        string
	inputFormat  string
	logLevel     string
	jsonLogs     bool
	noProgress   bool
	noBanner     bool

	cfg       config.Config
	cfgPath   string
	cfgExists bool
	sessionID string
	logger    *zap.Logger

	// backends replaces platform discovery in tests.
	backends []record.Backend
}

func NewRootCmd() *cobra.Command {
	return newRootCmd(&appState{})
}

func newRootCmd(app *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "enscribe",
		Short:         "Transcribe English speech from audio files or the microphone",
		Long:          "enscribe loads a whisper model once and offers a menu to transcribe an audio file or a short microphone recording.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.Resolve(),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.prepare(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.runSession(cmd)
		},
	}

	cmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")

	flags := cmd.PersistentFlags()
	flags.StringVar(&app.configPath, "config", "", "Config file path (default: platform config dir)")
	flags.StringVar(&app.model, "model", "", "Model name or model file path (known: "+strings.Join(whisper.ModelNames(), ", ")+")")
	flags.StringVar(&app.modelDir, "model-dir", "", "Directory where models are stored")
	flags.StringVar(&app.whisperPath, "whisper-path", "", "Path to the whisper-cli executable")
	flags.BoolVar(&app.autoDownload, "auto-download", true, "Download the model on first start when it is missing")
	flags.StringVar(&app.backend, "backend", "", "Recording backend: auto|pw-record|arecord|ffmpeg")
	flags.StringVar(&app.input, "input", "", "Input device (run \"enscribe devices\" to list); e.g. node-ID (pw-record), hw:1,0 (arecord), :1 (ffmpeg)")
	flags.StringVar(&app.inputFormat, "input-format", "", "Input format for the ffmpeg backend (pulse|alsa)")
	flags.StringVar(&app.logLevel, "log-level", "", "Log level: debug|info|warn|error")
	flags.BoolVar(&app.jsonLogs, "json", false, "Enable JSON logging")
	flags.BoolVar(&app.noProgress, "no-progress", false, "Disable progress indicators")
	cmd.Flags().BoolVar(&app.noBanner, "no-banner", false, "Skip the environment summary shown before the menu")

	cmd.AddCommand(newSetupCmd(app))
	cmd.AddCommand(newDevicesCmd(app))
	cmd.AddCommand(newConfigCmd(app))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// prepare resolves the effective configuration (defaults, file, environment,
// then flags) and builds the session logger.
func (a *appState) prepare(cmd *cobra.Command) error {
	if err := config.LoadDotEnv(".env"); err != nil {
		return err
	}

	cfg, path, exists, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.applyFlags(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	a.cfg, a.cfgPath, a.cfgExists = cfg, path, exists
	a.sessionID = uuid.NewString()

	logger, err := logging.New(logging.Options{
		Level:     cfg.Logging.Level,
		JSON:      cfg.Logging.JSON,
		SessionID: a.sessionID,
	})
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	a.logger = logger
	a.logger.Debug("configuration resolved", zap.String("path", path), zap.Bool("file", exists))
	return nil
}

func (a *appState) applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	set := func(name string, target *string, value string) {
		if flags.Changed(name) {
			*target = strings.TrimSpace(value)
		}
	}

	set("model", &cfg.Model.Name, a.model)
	set("model-dir", &cfg.Model.Dir, a.modelDir)
	set("whisper-path", &cfg.Model.WhisperPath, a.whisperPath)
	set("backend", &cfg.Recording.Backend, a.backend)
	set("input", &cfg.Recording.Input, a.input)
	set("input-format", &cfg.Recording.InputFormat, a.inputFormat)
	set("log-level", &cfg.Logging.Level, a.logLevel)

	if flags.Changed("auto-download") {
		cfg.Model.AutoDownload = a.autoDownload
	}
	if flags.Changed("json") {
		cfg.Logging.JSON = a.jsonLogs
	}
	if flags.Changed("no-progress") {
		cfg.UI.NoProgress = a.noProgress
	}
	if flags.Changed("no-banner") {
		cfg.UI.Banner = !a.noBanner
	}
}

func (a *appState) runSession(cmd *cobra.Command) error {
	defer func() { _ = a.log().Sync() }()

	if a.cfg.UI.Banner {
		a.printBanner(cmd.ErrOrStderr())
	}

	loader, err := a.newLoader()
	if err != nil {
		return err
	}

	rec := record.NewRecorder(record.Options{
		Backends:     a.backends,
		Preferred:    a.cfg.Recording.Backend,
		Input:        a.cfg.Recording.Input,
		Format:       a.cfg.Recording.InputFormat,
		ArtifactPath: a.artifactPath(),
		StallGrace:   a.cfg.StallGrace(),
		Logger:       a.log().Named("record"),
	})

	svc := transcribe.NewService(transcribe.Options{
		Decoder:    media.NewFFmpegDecoder(a.cfg.Recording.SampleRate, a.cfg.Recording.Channels),
		SampleRate: a.cfg.Recording.SampleRate,
		Channels:   a.cfg.Recording.Channels,
		Logger:     a.log().Named("transcribe"),
	})

	progress := a.progressEnabled()
	controller := session.New(session.Deps{
		Loader:      loader,
		Recorder:    withRecordingProgress(session.WrapRecorder(rec), progress),
		Transcriber: withTranscriptionProgress(svc, progress),
		Console:     console.NewTerminal(cmd.InOrStdin(), cmd.OutOrStdout()),
		Logger:      a.log().Named("session"),
	}, session.Settings{
		ModelName:      a.cfg.Model.Name,
		DefaultSeconds: a.cfg.Recording.DefaultSeconds,
		MaxSeconds:     a.cfg.Recording.MaxSeconds,
		SampleRate:     a.cfg.Recording.SampleRate,
		Channels:       a.cfg.Recording.Channels,
		Language:       a.cfg.Transcription.Language,
	})

	return controller.Run(commandContext(cmd))
}

func (a *appState) newLoader() (*whisper.Loader, error) {
	modelDir, err := a.modelStorageDir()
	if err != nil {
		return nil, err
	}

	return whisper.NewLoader(whisper.LoaderOptions{
		ModelName:    a.cfg.Model.Name,
		ModelDir:     modelDir,
		AutoDownload: a.cfg.Model.AutoDownload,
		WhisperPath:  a.cfg.Model.WhisperPath,
		Fetcher: download.New(download.Options{
			NoProgress: a.cfg.UI.NoProgress,
			Logger:     a.log().Named("download"),
		}),
		Logger: a.log().Named("whisper"),
	}), nil
}

func (a *appState) modelStorageDir() (string, error) {
	dir, err := platform.ResolveModelDir(a.cfg.Model.Dir)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create model directory %s: %w", dir, err)
	}
	return dir, nil
}

// artifactPath is the fixed recording path, or a per-session variant of it
// when unique artifacts are enabled.
func (a *appState) artifactPath() string {
	path := a.cfg.Recording.ArtifactPath
	if !a.cfg.Recording.UniqueArtifact || a.sessionID == "" {
		return path
	}

	ext := filepath.Ext(path)
	short := strings.SplitN(a.sessionID, "-", 2)[0]
	return strings.TrimSuffix(path, ext) + "-" + short + ext
}

func (a *appState) log() *zap.Logger {
	if a.logger == nil {
		return zap.NewNop()
	}
	return a.logger
}

func (a *appState) progressEnabled() bool {
	if a.cfg.UI.NoProgress {
		return false
	}
	return term.IsTerminal(int(os.Stderr.Fd()))
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func writef(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
