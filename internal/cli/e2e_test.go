//go:build e2e

package cli

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"unicode"

	"github.com/stretchr/testify/require"
)

const (
	e2eWhisperPathEnv = "ENSCRIBE_E2E_WHISPER_PATH"
	e2eModelDirEnv    = "ENSCRIBE_E2E_MODEL_DIR"
	e2eFixtureDirEnv  = "ENSCRIBE_E2E_FSDD_DIR"
)

// prepareEndToEnd downloads the tiny model into a shared directory so
// repeated runs only pay for it once.
func prepareEndToEnd(t *testing.T) (whisperPath, modelDir string) {
	t.Helper()

	whisperPath = strings.TrimSpace(os.Getenv(e2eWhisperPathEnv))
	if whisperPath == "" {
		t.Skip("set ENSCRIBE_E2E_WHISPER_PATH to run e2e test")
	}

	modelDir = strings.TrimSpace(os.Getenv(e2eModelDirEnv))
	isolateEnv(t)
	if modelDir == "" {
		modelDir = t.TempDir()
	}

	_, setupStderr, err := runCommand(t, []string{
		"setup",
		"--model", "tiny",
		"--model-dir", modelDir,
		"--whisper-path", whisperPath,
		"--no-progress",
	})
	require.NoErrorf(t, err, "setup command failed: %s", setupStderr)
	return whisperPath, modelDir
}

func TestSilentFileEndToEnd(t *testing.T) {
	whisperPath, modelDir := prepareEndToEnd(t)

	silentWAV := filepath.Join(t.TempDir(), "silent.wav")
	writeSilentWAV(t, silentWAV, 1)

	stdout, stderr, err := runCommandWithInput(t, []string{
		"--no-banner",
		"--no-progress",
		"--model", "tiny",
		"--model-dir", modelDir,
		"--whisper-path", whisperPath,
	}, "1\n"+silentWAV+"\n3\n")
	require.NoErrorf(t, err, "session failed: %s", stderr)
	require.Contains(t, stdout, "Whisper model (tiny) loaded successfully.")
	require.Contains(t, stdout, "Target Language: English")
	require.Contains(t, stdout, "Transcription:")
	require.NotContains(t, stdout, "[BLANK_AUDIO]")
	require.NotContains(t, stdout, "Error during transcription")
}

func TestSetupIsIdempotentEndToEnd(t *testing.T) {
	whisperPath, modelDir := prepareEndToEnd(t)

	stdout, stderr, err := runCommand(t, []string{
		"setup",
		"--model", "tiny",
		"--model-dir", modelDir,
		"--whisper-path", whisperPath,
		"--no-progress",
	})
	require.NoErrorf(t, err, "setup command failed: %s", stderr)
	require.Contains(t, stdout, "Model tiny ready at "+filepath.Join(modelDir, "ggml-tiny.bin"))
}

func TestSpokenDigitsEndToEnd(t *testing.T) {
	whisperPath, modelDir := prepareEndToEnd(t)
	fixtureDir := fsddFixtureDir(t)

	fixtures := []struct {
		file     string
		expected []string
	}{
		{file: "0_jackson_0.wav", expected: []string{"zero", "0"}},
		{file: "1_jackson_0.wav", expected: []string{"one", "1"}},
		{file: "2_jackson_0.wav", expected: []string{"two", "2"}},
		{file: "3_jackson_0.wav", expected: []string{"three", "3"}},
		{file: "4_jackson_0.wav", expected: []string{"four", "4"}},
		{file: "5_jackson_0.wav", expected: []string{"five", "5"}},
		{file: "6_jackson_0.wav", expected: []string{"six", "6"}},
		{file: "7_jackson_0.wav", expected: []string{"seven", "7"}},
		{file: "8_jackson_0.wav", expected: []string{"eight", "8"}},
		{file: "9_jackson_0.wav", expected: []string{"nine", "9"}},
	}

	matches := 0
	for _, fixture := range fixtures {
		clip := filepath.Join(fixtureDir, fixture.file)
		require.FileExistsf(t, clip, "missing fixture %s", clip)

		stdout, stderr, err := runCommandWithInput(t, []string{
			"--no-banner",
			"--no-progress",
			"--model", "tiny",
			"--model-dir", modelDir,
			"--whisper-path", whisperPath,
		}, "1\n"+clip+"\n3\n")
		require.NoErrorf(t, err, "session failed for %s: %s", fixture.file, stderr)

		transcript := transcriptLine(stdout)
		require.NotEmptyf(t, transcript, "empty transcript for %s; output:\n%s", fixture.file, stdout)

		normalized := normalizeTranscript(transcript)
		if containsAnyToken(normalized, fixture.expected) {
			matches++
			continue
		}
		t.Logf("fixture %s did not match %q; transcript=%q", fixture.file, fixture.expected[0], transcript)
	}

	require.GreaterOrEqual(t, matches, 7, "expected at least 7/10 spoken digits to be recognized")
}

// fsddFixtureDir locates clips from the Free Spoken Digit Dataset, either
// from ENSCRIBE_E2E_FSDD_DIR or testdata/audio/fsdd at the module root.
func fsddFixtureDir(t *testing.T) string {
	t.Helper()

	dir := strings.TrimSpace(os.Getenv(e2eFixtureDirEnv))
	if dir == "" {
		_, thisFile, _, ok := runtime.Caller(0)
		require.True(t, ok, "resolve current test file path")
		dir = filepath.Join(filepath.Dir(thisFile), "..", "..", "testdata", "audio", "fsdd")
	}

	if _, err := os.Stat(filepath.Join(dir, "0_jackson_0.wav")); err != nil {
		t.Skipf("spoken digit clips not found in %s (see testdata/audio/fsdd/README.md)", dir)
	}
	return dir
}

// transcriptLine returns the text printed after the last "Transcription:".
func transcriptLine(stdout string) string {
	const marker = "Transcription:"
	idx := strings.LastIndex(stdout, marker)
	if idx < 0 {
		return ""
	}
	line, _, _ := strings.Cut(stdout[idx+len(marker):], "\n")
	return strings.TrimSpace(line)
}

func normalizeTranscript(input string) string {
	var b strings.Builder
	b.Grow(len(input))

	for _, r := range strings.ToLower(input) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

func containsAnyToken(normalized string, expected []string) bool {
	fields := strings.Fields(normalized)
	for _, token := range expected {
		for _, field := range fields {
			if field == token {
				return true
			}
		}
	}
	return false
}
