package whisper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/fmueller/enscribe/internal/platform"
	"go.uber.org/zap"
)

const blankAudioMarker = "[BLANK_AUDIO]"

// BundledEngine runs whisper-cli as a subprocess, one invocation per
// transcription.
type BundledEngine struct {
	Executable string
	Logger     *zap.Logger
}

// NewBundledEngine uses override when set and otherwise looks for the
// whisper-cli shipped next to the running binary, then on PATH.
func NewBundledEngine(override string, logger *zap.Logger) (*BundledEngine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if override = strings.TrimSpace(override); override != "" {
		if err := ensureExecutable(override); err != nil {
			return nil, fmt.Errorf("configured whisper engine is not executable: %w", err)
		}
		return &BundledEngine{Executable: override, Logger: logger}, nil
	}

	self, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("resolve enscribe executable path: %w", err)
	}

	whisperExe, err := ResolveBundledEnginePath(self)
	if err != nil {
		return nil, err
	}

	return &BundledEngine{Executable: whisperExe, Logger: logger}, nil
}

func ResolveBundledEnginePath(selfExecutable string) (string, error) {
	for _, candidate := range EnginePathCandidates(selfExecutable) {
		if err := ensureExecutable(candidate); err == nil {
			return candidate, nil
		}
	}

	if onPath, err := exec.LookPath(engineBinaryName()); err == nil {
		return onPath, nil
	}

	return "", fmt.Errorf("whisper engine not found near %s or on PATH; install whisper-cli or set ENSCRIBE_WHISPER_PATH (expected at ../libexec/whisper/%s)", selfExecutable, engineBinaryName())
}

func EnginePathCandidates(selfExecutable string) []string {
	binDir := filepath.Dir(selfExecutable)
	engineName := engineBinaryName()
	host := platform.CurrentRuntime()
	hostTarget := fmt.Sprintf("%s_%s", host.OS, host.Arch)

	return []string{
		filepath.Join(binDir, "..", "libexec", "whisper", engineName),
		filepath.Join(binDir, "libexec", "whisper", engineName),
		filepath.Join(binDir, "packaging", "whisper", hostTarget, engineName),
		filepath.Join(binDir, engineName),
	}
}

// Transcribe runs whisper-cli with the language pinned and GPU disabled,
// writing the transcript to a private temp directory.
func (b *BundledEngine) Transcribe(ctx context.Context, req TranscriptionRequest) (string, error) {
	if strings.TrimSpace(req.AudioPath) == "" {
		return "", errors.New("audio path is required")
	}
	if strings.TrimSpace(req.ModelPath) == "" {
		return "", errors.New("model path is required")
	}
	lang := strings.TrimSpace(req.Language)
	if lang == "" || lang == "auto" {
		return "", fmt.Errorf("an explicit language is required, got %q", req.Language)
	}

	if err := ensureExecutable(b.Executable); err != nil {
		return "", fmt.Errorf("whisper engine missing or not executable: %w", err)
	}

	outDir, err := os.MkdirTemp("", "enscribe-whisper-")
	if err != nil {
		return "", fmt.Errorf("create transcript directory: %w", err)
	}
	defer os.RemoveAll(outDir)

	outBase := filepath.Join(outDir, "transcript")
	args := []string{"-m", req.ModelPath, "-f", req.AudioPath, "-l", lang, "-ng", "-nt", "-np", "-otxt", "-of", outBase}

	cmd := exec.CommandContext(ctx, b.Executable, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	logger := b.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Debug("running whisper engine", zap.String("engine", b.Executable), zap.Strings("args", args))

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", classifyEngineFailure(b.Executable, err, strings.TrimSpace(stderr.String()))
	}

	content, err := os.ReadFile(outBase + ".txt")
	if err != nil {
		return "", fmt.Errorf("read whisper output: %w", err)
	}

	return cleanTranscript(string(content)), nil
}

func classifyEngineFailure(executable string, err error, errText string) error {
	switch {
	case isMissingSharedLibraryError(errText):
		return fmt.Errorf("whisper engine at %s is missing required shared libraries (%s); reinstall it or rebuild whisper-cli with BUILD_SHARED_LIBS=OFF", executable, errText)
	case isIllegalInstructionError(errText) || isIllegalInstructionError(err.Error()):
		return errors.New("whisper engine crashed with an illegal CPU instruction; " +
			"your CPU may lack required instruction set extensions; " +
			"set ENSCRIBE_WHISPER_PATH to a whisper-cli binary built for your CPU")
	case isAudioReadError(errText):
		return fmt.Errorf("%w: %s", ErrAudioUnreadable, errText)
	case errText != "":
		return fmt.Errorf("whisper transcribe failed: %w (%s)", err, errText)
	default:
		return fmt.Errorf("whisper transcribe failed: %w", err)
	}
}

// cleanTranscript joins whisper's per-segment lines and drops the marker it
// emits for silence.
func cleanTranscript(raw string) string {
	var parts []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(strings.ReplaceAll(line, blankAudioMarker, ""))
		if line != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, " ")
}

func engineBinaryName() string {
	if runtime.GOOS == "windows" {
		return "whisper-cli.exe"
	}
	return "whisper-cli"
}

func ensureExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	if runtime.GOOS != "windows" && info.Mode()&0o111 == 0 {
		return fmt.Errorf("%s is not executable", path)
	}
	return nil
}

func isMissingSharedLibraryError(stderr string) bool {
	return containsAny(stderr,
		"error while loading shared libraries",
		"cannot open shared object file",
		"dyld: library not loaded",
		"image not found",
	)
}

func isIllegalInstructionError(stderr string) bool {
	return containsAny(stderr, "illegal instruction")
}

func isAudioReadError(stderr string) bool {
	return containsAny(stderr,
		"failed to read audio",
		"failed to open",
		"failed to read wav",
		"unsupported audio format",
	)
}

func containsAny(text string, patterns ...string) bool {
	value := strings.ToLower(strings.TrimSpace(text))
	if value == "" {
		return false
	}
	for _, pattern := range patterns {
		if strings.Contains(value, pattern) {
			return true
		}
	}
	return false
}
