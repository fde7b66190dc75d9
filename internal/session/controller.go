package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fmueller/enscribe/internal/record"
	"github.com/fmueller/enscribe/internal/transcribe"
	"github.com/fmueller/enscribe/internal/whisper"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

type ModelLoader interface {
	Load(ctx context.Context) (whisper.Handle, error)
}

// Artifact is a recorded clip that must be removed once transcribed.
type Artifact interface {
	Path() string
	Remove() error
}

type Recorder interface {
	Record(ctx context.Context, req record.Request) (Artifact, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, handle whisper.Handle, path, language string) (transcribe.Result, error)
}

// Console is the line-oriented terminal the menu runs on. ReadLine returns
// io.EOF once input is exhausted.
type Console interface {
	ReadLine(prompt string) (string, error)
	WriteLine(line string) error
}

// Settings are the fixed parameters of one session.
type Settings struct {
	ModelName      string
	DefaultSeconds int
	MaxSeconds     int
	SampleRate     int
	Channels       int
	Language       string
}

type Deps struct {
	Loader      ModelLoader
	Recorder    Recorder
	Transcriber Transcriber
	Console     Console
	Logger      *zap.Logger
}

type Controller struct {
	loader      ModelLoader
	recorder    Recorder
	transcriber Transcriber
	console     Console
	settings    Settings
	logger      *zap.Logger

	state  State
	handle whisper.Handle
}

func New(deps Deps, settings Settings) *Controller {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	return &Controller{
		loader:      deps.Loader,
		recorder:    deps.Recorder,
		transcriber: deps.Transcriber,
		console:     deps.Console,
		settings:    settings,
		logger:      deps.Logger,
		state:       Idle,
	}
}

func (c *Controller) State() State {
	return c.state
}

// Run loads the model and serves the menu until the user exits or input
// ends. A model that cannot be loaded ends the session without showing the
// menu; that is reported to the user, not returned. Only console failures
// are returned.
func (c *Controller) Run(ctx context.Context) error {
	if c.state == Exited {
		return nil
	}

	if err := c.printHeader(); err != nil {
		return err
	}

	if ok, err := c.load(ctx); err != nil || !ok {
		return err
	}

	for c.state != Exited {
		if err := c.step(ctx); err != nil {
			c.transition(Exited)
			return err
		}
	}

	return nil
}

func (c *Controller) printHeader() error {
	return c.writeLines(
		"-------------------------------------------------",
		"    ENGLISH-ONLY SPEECH RECOGNITION SYSTEM",
		fmt.Sprintf("         (Using Whisper '%s' Model)", c.settings.ModelName),
		"-------------------------------------------------",
	)
}

func (c *Controller) load(ctx context.Context) (bool, error) {
	c.transition(Loading)
	if err := c.writeLines("", fmt.Sprintf("Loading Whisper model (%s)...", c.settings.ModelName)); err != nil {
		return false, err
	}

	handle, err := c.loader.Load(ctx)
	if err != nil {
		c.logger.Error("model load failed", zap.Error(err))
		c.transition(Exited)

		lines := []string{"Error loading Whisper model: " + err.Error()}
		for _, hint := range Describe(err) {
			lines = append(lines, "   "+hint)
		}
		lines = append(lines, "", "Exiting due to model loading failure. Please check messages above.")
		return false, c.writeLines(lines...)
	}

	c.handle = handle
	c.transition(Ready)
	return true, c.writeLines(fmt.Sprintf("Whisper model (%s) loaded successfully.", handle.Name()))
}

// step shows the menu once and handles a single choice.
func (c *Controller) step(ctx context.Context) error {
	if err := c.writeLines(
		"",
		"Choose an option:",
		"  1. Transcribe an existing ENGLISH audio file",
		fmt.Sprintf("  2. Record a new short ENGLISH audio clip (up to %ds)", c.settings.MaxSeconds),
		"  3. Exit",
	); err != nil {
		return err
	}

	choice, err := c.console.ReadLine("Enter your choice (1, 2, or 3): ")
	if err != nil {
		return c.endOfInput(err)
	}

	switch strings.TrimSpace(choice) {
	case "1":
		return c.transcribeFile(ctx)
	case "2":
		return c.recordAndTranscribe(ctx)
	case "3":
		return c.exit()
	default:
		return c.writeLines("Invalid choice. Please enter 1, 2, or 3.")
	}
}

func (c *Controller) transcribeFile(ctx context.Context) error {
	c.transition(TranscribingFile)
	defer c.transitionIfActive(Ready)

	input, err := c.console.ReadLine("Enter the path to your ENGLISH audio file: ")
	if err != nil {
		return c.endOfInput(err)
	}

	path := CleanPath(input)
	if path == "" {
		c.logger.Debug("empty path entered", zap.Error(ErrInvalidInput))
		return c.writeLines("No file path entered. Please try again.")
	}

	return c.transcribe(ctx, path)
}

func (c *Controller) recordAndTranscribe(ctx context.Context) error {
	c.transition(Recording)
	defer c.transitionIfActive(Ready)

	input, err := c.console.ReadLine(fmt.Sprintf("Enter recording duration in seconds (1-%d, default %d): ", c.settings.MaxSeconds, c.settings.DefaultSeconds))
	if err != nil {
		return c.endOfInput(err)
	}

	seconds, err := ParseDuration(input, c.settings.DefaultSeconds, c.settings.MaxSeconds)
	if err != nil {
		c.logger.Debug("duration rejected", zap.Error(err))
		if werr := c.writeLines(fmt.Sprintf("Invalid duration. Using default: %ds.", c.settings.DefaultSeconds)); werr != nil {
			return werr
		}
	}

	if err := c.writeLines("", fmt.Sprintf("Recording for %d seconds. Please speak clearly in ENGLISH...", seconds)); err != nil {
		return err
	}

	artifact, err := c.recorder.Record(ctx, record.Request{
		Seconds:    seconds,
		SampleRate: c.settings.SampleRate,
		Channels:   c.settings.Channels,
	})
	if err != nil {
		c.logger.Warn("recording failed", zap.Error(err))
		return c.reportFailure("Error during recording", err)
	}

	if err := c.writeLines("Recording saved as " + artifact.Path()); err != nil {
		c.cleanup(artifact)
		return err
	}

	transcribeErr := c.transcribe(ctx, artifact.Path())
	c.cleanup(artifact)
	return transcribeErr
}

func (c *Controller) transcribe(ctx context.Context, path string) error {
	if err := c.writeLines("", fmt.Sprintf("Transcribing audio (expecting %s) from: %s...", strings.ToUpper(c.languageName()), path)); err != nil {
		return err
	}

	result, err := c.transcriber.Transcribe(ctx, c.handle, path, c.settings.Language)
	if err != nil {
		c.logger.Warn("transcription failed", zap.String("path", path), zap.Error(err))
		return c.reportFailure("Error during transcription", err)
	}

	return c.writeLines(
		"",
		"Target Language: "+c.languageName(),
		"Transcription: "+result.Text,
	)
}

// cleanup removes the recorded clip. Failure is logged and the loop goes on.
func (c *Controller) cleanup(artifact Artifact) {
	if err := artifact.Remove(); err != nil {
		c.logger.Warn("could not remove temporary recording", zap.String("path", artifact.Path()), zap.Error(err))
		return
	}
	if err := c.writeLines(fmt.Sprintf("Temporary file %s removed.", artifact.Path())); err != nil {
		c.logger.Debug("console write failed", zap.Error(err))
	}
}

func (c *Controller) reportFailure(prefix string, err error) error {
	lines := []string{fmt.Sprintf("%s: %v", prefix, err)}
	for _, hint := range Describe(err) {
		lines = append(lines, "   "+hint)
	}
	return c.writeLines(lines...)
}

func (c *Controller) exit() error {
	c.transition(Exited)
	return c.writeLines("", "Exiting the Speech Recognition System. Goodbye!")
}

// endOfInput treats a closed input stream like choosing Exit.
func (c *Controller) endOfInput(err error) error {
	if errors.Is(err, io.EOF) {
		c.logger.Debug("input closed, exiting")
		return c.exit()
	}
	return fmt.Errorf("read input: %w", err)
}

func (c *Controller) transition(next State) {
	if c.state == next {
		return
	}
	c.logger.Debug("session state", zap.Stringer("from", c.state), zap.Stringer("to", next))
	c.state = next
}

func (c *Controller) transitionIfActive(next State) {
	if c.state != Exited {
		c.transition(next)
	}
}

func (c *Controller) languageName() string {
	tag, err := language.Parse(c.settings.Language)
	if err != nil {
		return c.settings.Language
	}
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return c.settings.Language
}

func (c *Controller) writeLines(lines ...string) error {
	for _, line := range lines {
		if err := c.console.WriteLine(line); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	}
	return nil
}
