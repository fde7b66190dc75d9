package record

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"
)

const stopGrace = 2 * time.Second

// commandSource streams PCM from a helper process's stdout.
type commandSource struct {
	name   string
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr *bytes.Buffer

	closeOnce sync.Once
	closeErr  error
}

func startCommand(name string, args ...string) (*commandSource, error) {
	cmd := exec.Command(name, args...)
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr
	cmd.WaitDelay = stopGrace

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%s stdout: %w", name, err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", name, err)
	}

	return &commandSource{name: name, cmd: cmd, stdout: stdout, stderr: stderr}, nil
}

func (s *commandSource) Read(p []byte) (int, error) {
	return s.stdout.Read(p)
}

// Close interrupts the helper, escalating to a kill after stopGrace. Dying
// from a signal is the expected way for the helper to end and is not an
// error.
func (s *commandSource) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.stop()
	})
	return s.closeErr
}

func (s *commandSource) stop() error {
	_ = s.cmd.Process.Signal(os.Interrupt)

	done := make(chan error, 1)
	go func() {
		done <- s.cmd.Wait()
	}()

	timer := time.NewTimer(stopGrace)
	defer timer.Stop()

	var err error
	select {
	case err = <-done:
	case <-timer.C:
		_ = s.cmd.Process.Kill()
		err = <-done
	}

	if err == nil || stoppedBySignal(err) {
		return nil
	}

	if detail := strings.TrimSpace(s.stderr.String()); detail != "" {
		return fmt.Errorf("%s exited: %w (%s)", s.name, err, detail)
	}
	return fmt.Errorf("%s exited: %w", s.name, err)
}

func stoppedBySignal(err error) bool {
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return false
	}
	status, ok := exitErr.Sys().(syscall.WaitStatus)
	return ok && status.Signaled()
}

func commandAvailable(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

func commandOutput(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.CombinedOutput()
	trimmed := strings.TrimSpace(string(out))
	if err != nil {
		if trimmed != "" {
			return "", fmt.Errorf("%s %s failed: %w (%s)", name, strings.Join(args, " "), err, trimmed)
		}
		return "", fmt.Errorf("%s %s failed: %w", name, strings.Join(args, " "), err)
	}
	return trimmed, nil
}
