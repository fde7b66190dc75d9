package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/fmueller/enscribe/internal/audio"
	"github.com/stretchr/testify/require"
)

func runCommand(t *testing.T, args []string) (stdout string, stderr string, err error) {
	t.Helper()
	return runCommandWithInput(t, args, "")
}

func runCommandWithInput(t *testing.T, args []string, stdin string) (stdout string, stderr string, err error) {
	t.Helper()

	cmd := NewRootCmd()
	outBuf := new(bytes.Buffer)
	errBuf := new(bytes.Buffer)

	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(outBuf)
	cmd.SetErr(errBuf)
	cmd.SetArgs(args)

	err = cmd.Execute()
	return outBuf.String(), errBuf.String(), err
}

// isolateEnv points configuration at an empty temp directory so the
// developer's own settings never leak into a test.
func isolateEnv(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	t.Setenv("ENSCRIBE_CONFIG", filepath.Join(dir, "config.toml"))
	t.Setenv("ENSCRIBE_MODEL_DIR", filepath.Join(dir, "models"))
	for _, key := range []string{
		"ENSCRIBE_MODEL", "ENSCRIBE_AUTO_DOWNLOAD", "ENSCRIBE_WHISPER_PATH", "ENSCRIBE_LANGUAGE",
		"ENSCRIBE_BACKEND", "ENSCRIBE_INPUT", "ENSCRIBE_ARTIFACT", "ENSCRIBE_UNIQUE_ARTIFACT",
		"ENSCRIBE_LOG_LEVEL", "ENSCRIBE_LOG_JSON", "ENSCRIBE_NO_PROGRESS",
	} {
		t.Setenv(key, "")
	}
	return dir
}

func writeStub(t *testing.T, dir, name, content string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stubs are shell scripts")
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o755))
	return path
}

// writeEngineStub creates a whisper-cli that writes text as the transcript.
func writeEngineStub(t *testing.T, dir, text string) string {
	t.Helper()
	script := "#!/bin/sh\n" +
		"while [ $# -gt 0 ]; do\n  if [ \"$1\" = \"-of\" ]; then OUT=\"$2\"; fi\n  shift\ndone\n" +
		"printf '%s\\n' '" + text + "' > \"$OUT.txt\"\n"
	return writeStub(t, dir, "whisper-cli", script)
}

func writeSilentWAV(t *testing.T, path string, seconds int) {
	t.Helper()
	pcm := make([]byte, seconds*16000*2)
	require.NoError(t, audio.WritePCM16(path, pcm, 16000, 1))
}
