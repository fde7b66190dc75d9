package record

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/fmueller/enscribe/internal/audio"
	"go.uber.org/zap"
)

const defaultStallGrace = 5 * time.Second

var (
	// ErrDevice marks every capture failure; callers recover by returning to
	// the menu.
	ErrDevice             = errors.New("audio capture failed")
	ErrNoBackendAvailable = errors.New("no recording backend available")
	ErrArtifactBusy       = errors.New("recording artifact is in use by another session")
	ErrStalled            = errors.New("input device stopped delivering audio")
	ErrStreamEnded        = errors.New("input device stream ended early")

	errNoListing = errors.New("no device listing command available")
)

// Request is one fixed-length mono capture.
type Request struct {
	Seconds    int
	SampleRate int
	Channels   int
}

func (r Request) Samples() int {
	return r.Seconds * r.SampleRate * r.Channels
}

func (r Request) Duration() time.Duration {
	return time.Duration(r.Seconds) * time.Second
}

// Config is what a backend needs to open the input device.
type Config struct {
	SampleRate int
	Channels   int
	Input      string
	Format     string
}

// Backend opens an input device as a stream of raw little-endian signed
// 16-bit PCM.
type Backend interface {
	Name() string
	Available() bool
	Open(ctx context.Context, cfg Config) (Source, error)
	ListDevices(ctx context.Context) (string, error)
}

// Source is an open capture stream. Close stops the device and reports how
// the producer ended.
type Source interface {
	io.Reader
	Close() error
}

type Options struct {
	Backends     []Backend
	Preferred    string
	Input        string
	Format       string
	ArtifactPath string
	StallGrace   time.Duration
	Logger       *zap.Logger
}

type Recorder struct {
	backends     []Backend
	preferred    string
	input        string
	format       string
	artifactPath string
	stallGrace   time.Duration
	logger       *zap.Logger
}

func NewRecorder(opts Options) *Recorder {
	if opts.Backends == nil {
		opts.Backends = DefaultBackends(runtime.GOOS)
	}
	if opts.StallGrace <= 0 {
		opts.StallGrace = defaultStallGrace
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &Recorder{
		backends:     opts.Backends,
		preferred:    opts.Preferred,
		input:        opts.Input,
		format:       opts.Format,
		artifactPath: opts.ArtifactPath,
		stallGrace:   opts.StallGrace,
		logger:       opts.Logger,
	}
}

// Record blocks until req.Samples() samples have been captured and written
// to the artifact path. The duration is not re-validated here. On error no
// artifact is left behind and the artifact lock is released.
func (r *Recorder) Record(ctx context.Context, req Request) (*Artifact, error) {
	if req.Samples() <= 0 {
		return nil, fmt.Errorf("%w: empty capture request", ErrDevice)
	}

	artifact, err := acquireArtifact(r.artifactPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDevice, err)
	}

	cfg := Config{
		SampleRate: req.SampleRate,
		Channels:   req.Channels,
		Input:      r.input,
		Format:     r.format,
	}

	r.logger.Info("recording started", zap.Int("seconds", req.Seconds), zap.String("output", artifact.Path()))
	pcm, backend, err := r.captureWithFallback(ctx, cfg, req)
	if err != nil {
		_ = artifact.Remove()
		return nil, fmt.Errorf("%w: %w", ErrDevice, err)
	}

	if err := audio.WritePCM16(artifact.Path(), pcm, req.SampleRate, req.Channels); err != nil {
		_ = artifact.Remove()
		return nil, fmt.Errorf("%w: write recording: %w", ErrDevice, err)
	}

	r.logger.Info("recording finished", zap.String("backend", backend), zap.String("path", artifact.Path()))
	return artifact, nil
}

func (r *Recorder) captureWithFallback(ctx context.Context, cfg Config, req Request) ([]byte, string, error) {
	ordered, err := orderBackends(r.backends, r.preferred)
	if err != nil {
		return nil, "", err
	}

	var errs []error
	for _, backend := range ordered {
		if !backend.Available() {
			errs = append(errs, fmt.Errorf("%s: backend is not available", backend.Name()))
			continue
		}

		r.logger.Debug("opening input device", zap.String("backend", backend.Name()))
		pcm, err := r.capture(ctx, backend, cfg, req)
		if err == nil {
			return pcm, backend.Name(), nil
		}

		err = fmt.Errorf("%s: %w", backend.Name(), err)
		errs = append(errs, err)

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, "", err
		}
	}

	if len(errs) == 0 {
		return nil, "", ErrNoBackendAvailable
	}

	return nil, "", errors.Join(errs...)
}

func (r *Recorder) capture(ctx context.Context, backend Backend, cfg Config, req Request) ([]byte, error) {
	src, err := backend.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, req.Samples()*2)
	readDone := make(chan error, 1)
	go func() {
		_, err := io.ReadFull(src, buf)
		readDone <- err
	}()

	timer := time.NewTimer(req.Duration() + r.stallGrace)
	defer timer.Stop()

	var readErr error
	finished := false
	select {
	case readErr = <-readDone:
		finished = true
	case <-timer.C:
		readErr = ErrStalled
	case <-ctx.Done():
		readErr = ctx.Err()
	}

	closeErr := src.Close()
	if !finished {
		<-readDone
	}

	if readErr != nil {
		if errors.Is(readErr, io.EOF) || errors.Is(readErr, io.ErrUnexpectedEOF) {
			readErr = ErrStreamEnded
		}
		if closeErr != nil {
			return nil, errors.Join(readErr, closeErr)
		}
		return nil, readErr
	}

	if closeErr != nil {
		r.logger.Debug("input device closed with error after full capture", zap.String("backend", backend.Name()), zap.Error(closeErr))
	}
	return buf, nil
}

func SelectBackend(backends []Backend, preferred string) (Backend, error) {
	if len(backends) == 0 {
		return nil, errors.New("no backends configured")
	}

	if preferred != "" && preferred != "auto" {
		for _, backend := range backends {
			if backend.Name() == preferred {
				if !backend.Available() {
					return nil, fmt.Errorf("requested backend %q is not available", preferred)
				}
				return backend, nil
			}
		}
		return nil, fmt.Errorf("unknown backend %q", preferred)
	}

	for _, backend := range backends {
		if backend.Available() {
			return backend, nil
		}
	}

	return nil, ErrNoBackendAvailable
}

// inProcessBackends is filled by build-tagged backends that capture without
// a helper process.
var inProcessBackends []func() Backend

func DefaultBackends(goos string) []Backend {
	var backends []Backend
	for _, newBackend := range inProcessBackends {
		backends = append(backends, newBackend())
	}

	switch goos {
	case "linux":
		return append(backends, newPipeWireBackend(), newALSARecorderBackend(), newFFMPEGLinuxBackend())
	case "darwin":
		return append(backends, newFFMPEGMacOSBackend())
	default:
		return backends
	}
}

func orderBackends(backends []Backend, preferred string) ([]Backend, error) {
	if len(backends) == 0 {
		return nil, fmt.Errorf("%w: unsupported OS %s", ErrNoBackendAvailable, runtime.GOOS)
	}

	if preferred == "" || preferred == "auto" {
		return backends, nil
	}

	preferredIndex := -1
	for i, backend := range backends {
		if backend.Name() == preferred {
			preferredIndex = i
			break
		}
	}
	if preferredIndex == -1 {
		return nil, fmt.Errorf("unknown backend %q", preferred)
	}

	ordered := make([]Backend, 0, len(backends))
	ordered = append(ordered, backends[preferredIndex])
	for i, backend := range backends {
		if i == preferredIndex {
			continue
		}
		ordered = append(ordered, backend)
	}

	return ordered, nil
}

func defaultSampleRate(value int) int {
	if value <= 0 {
		return 16000
	}
	return value
}

func defaultChannels(value int) int {
	if value <= 0 {
		return 1
	}
	return value
}
