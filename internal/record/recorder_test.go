package record

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fmueller/enscribe/internal/audio"
	"github.com/gofrs/flock"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	name      string
	available bool
	open      func(cfg Config) (Source, error)
	opened    int
}

func (f *fakeBackend) Name() string { return f.name }

func (f *fakeBackend) Available() bool { return f.available }

func (f *fakeBackend) Open(_ context.Context, cfg Config) (Source, error) {
	f.opened++
	return f.open(cfg)
}

func (f *fakeBackend) ListDevices(context.Context) (string, error) { return "", nil }

type readerSource struct {
	io.Reader
	closed bool
}

func (r *readerSource) Close() error {
	r.closed = true
	return nil
}

// blockingSource never delivers a sample until closed.
type blockingSource struct {
	done chan struct{}
}

func (b *blockingSource) Read([]byte) (int, error) {
	<-b.done
	return 0, io.EOF
}

func (b *blockingSource) Close() error {
	close(b.done)
	return nil
}

func zeroBackend(name string) *fakeBackend {
	return &fakeBackend{
		name:      name,
		available: true,
		open: func(Config) (Source, error) {
			return &readerSource{Reader: zeroReader{}}, nil
		},
	}
}

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	clear(p)
	return len(p), nil
}

func newTestRecorder(t *testing.T, backends ...Backend) (*Recorder, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "temp_recorded_audio.wav")
	return NewRecorder(Options{Backends: backends, ArtifactPath: path}), path
}

func TestRecordWritesExactSampleCount(t *testing.T) {
	t.Parallel()

	for _, seconds := range []int{1, 2, 3} {
		rec, path := newTestRecorder(t, zeroBackend("fake"))

		artifact, err := rec.Record(context.Background(), Request{Seconds: seconds, SampleRate: 16000, Channels: 1})
		require.NoError(t, err)
		require.Equal(t, path, artifact.Path())

		info, err := audio.Inspect(path)
		require.NoError(t, err)
		require.Equal(t, int64(seconds*16000), info.Frames)
		require.True(t, info.Matches(16000, 1))
		require.NoError(t, artifact.Remove())
	}
}

func TestRecordPassesCaptureConfig(t *testing.T) {
	t.Parallel()

	var got Config
	backend := &fakeBackend{
		name:      "fake",
		available: true,
		open: func(cfg Config) (Source, error) {
			got = cfg
			return &readerSource{Reader: zeroReader{}}, nil
		},
	}
	path := filepath.Join(t.TempDir(), "out.wav")
	rec := NewRecorder(Options{Backends: []Backend{backend}, ArtifactPath: path, Input: "hw:1,0", Format: "alsa"})

	artifact, err := rec.Record(context.Background(), Request{Seconds: 1, SampleRate: 16000, Channels: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = artifact.Remove() })

	require.Equal(t, Config{SampleRate: 16000, Channels: 1, Input: "hw:1,0", Format: "alsa"}, got)
}

func TestRecordFallsBackToNextBackend(t *testing.T) {
	t.Parallel()

	broken := &fakeBackend{
		name:      "broken",
		available: true,
		open: func(Config) (Source, error) {
			return nil, errors.New("device busy")
		},
	}
	missing := &fakeBackend{name: "missing", available: false}
	working := zeroBackend("working")

	rec, path := newTestRecorder(t, missing, broken, working)
	artifact, err := rec.Record(context.Background(), Request{Seconds: 1, SampleRate: 16000, Channels: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = artifact.Remove() })

	require.Equal(t, 0, missing.opened)
	require.Equal(t, 1, broken.opened)
	require.Equal(t, 1, working.opened)
	require.FileExists(t, path)
}

func TestRecordPreferredBackendGoesFirst(t *testing.T) {
	t.Parallel()

	first := zeroBackend("first")
	second := zeroBackend("second")
	path := filepath.Join(t.TempDir(), "out.wav")
	rec := NewRecorder(Options{Backends: []Backend{first, second}, Preferred: "second", ArtifactPath: path})

	artifact, err := rec.Record(context.Background(), Request{Seconds: 1, SampleRate: 16000, Channels: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = artifact.Remove() })

	require.Equal(t, 0, first.opened)
	require.Equal(t, 1, second.opened)
}

func TestRecordShortStreamLeavesNoArtifact(t *testing.T) {
	t.Parallel()

	short := &fakeBackend{
		name:      "short",
		available: true,
		open: func(Config) (Source, error) {
			return &readerSource{Reader: bytes.NewReader(make([]byte, 100))}, nil
		},
	}
	rec, path := newTestRecorder(t, short)

	artifact, err := rec.Record(context.Background(), Request{Seconds: 1, SampleRate: 16000, Channels: 1})
	require.Nil(t, artifact)
	require.ErrorIs(t, err, ErrDevice)
	require.ErrorIs(t, err, ErrStreamEnded)
	require.NoFileExists(t, path)
	requireUnlocked(t, path)
}

func TestRecordStalledDeviceFails(t *testing.T) {
	t.Parallel()

	stalled := &fakeBackend{
		name:      "stalled",
		available: true,
		open: func(Config) (Source, error) {
			return &blockingSource{done: make(chan struct{})}, nil
		},
	}
	path := filepath.Join(t.TempDir(), "out.wav")
	rec := NewRecorder(Options{Backends: []Backend{stalled}, ArtifactPath: path, StallGrace: 50 * time.Millisecond})

	start := time.Now()
	_, err := rec.Record(context.Background(), Request{Seconds: 1, SampleRate: 16000, Channels: 1})
	require.ErrorIs(t, err, ErrDevice)
	require.ErrorIs(t, err, ErrStalled)
	require.Less(t, time.Since(start), 5*time.Second)
	require.NoFileExists(t, path)
}

func TestRecordCanceledContextStopsCapture(t *testing.T) {
	t.Parallel()

	stalled := &fakeBackend{
		name:      "stalled",
		available: true,
		open: func(Config) (Source, error) {
			return &blockingSource{done: make(chan struct{})}, nil
		},
	}
	next := zeroBackend("next")
	rec, path := newTestRecorder(t, stalled, next)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := rec.Record(ctx, Request{Seconds: 1, SampleRate: 16000, Channels: 1})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 0, next.opened)
	require.NoFileExists(t, path)
}

func TestRecordNoBackendAvailable(t *testing.T) {
	t.Parallel()

	rec, _ := newTestRecorder(t, &fakeBackend{name: "missing", available: false})

	_, err := rec.Record(context.Background(), Request{Seconds: 1, SampleRate: 16000, Channels: 1})
	require.ErrorIs(t, err, ErrDevice)
	require.Contains(t, err.Error(), "missing: backend is not available")
}

func TestRecordBusyArtifact(t *testing.T) {
	t.Parallel()

	rec, path := newTestRecorder(t, zeroBackend("fake"))
	first, err := rec.Record(context.Background(), Request{Seconds: 1, SampleRate: 16000, Channels: 1})
	require.NoError(t, err)

	other := NewRecorder(Options{Backends: []Backend{zeroBackend("fake")}, ArtifactPath: path})
	_, err = other.Record(context.Background(), Request{Seconds: 1, SampleRate: 16000, Channels: 1})
	require.ErrorIs(t, err, ErrArtifactBusy)
	require.FileExists(t, path)

	require.NoError(t, first.Remove())
	second, err := other.Record(context.Background(), Request{Seconds: 1, SampleRate: 16000, Channels: 1})
	require.NoError(t, err)
	require.NoError(t, second.Remove())
}

func TestArtifactRemoveIsIdempotent(t *testing.T) {
	t.Parallel()

	rec, path := newTestRecorder(t, zeroBackend("fake"))
	artifact, err := rec.Record(context.Background(), Request{Seconds: 1, SampleRate: 16000, Channels: 1})
	require.NoError(t, err)

	require.NoError(t, artifact.Remove())
	require.NoError(t, artifact.Remove())
	require.NoFileExists(t, path)
	require.FileExists(t, lockPath(path))
	requireUnlocked(t, path)
}

func TestArtifactRemoveFailureKeepsLock(t *testing.T) {
	t.Parallel()

	rec, path := newTestRecorder(t, zeroBackend("fake"))
	artifact, err := rec.Record(context.Background(), Request{Seconds: 1, SampleRate: 16000, Channels: 1})
	require.NoError(t, err)

	// A non-empty directory at the artifact path cannot be removed.
	require.NoError(t, os.Remove(path))
	require.NoError(t, os.MkdirAll(filepath.Join(path, "stuck"), 0o755))

	require.Error(t, artifact.Remove())
	other := NewRecorder(Options{Backends: []Backend{zeroBackend("fake")}, ArtifactPath: path})
	_, err = other.Record(context.Background(), Request{Seconds: 1, SampleRate: 16000, Channels: 1})
	require.ErrorIs(t, err, ErrArtifactBusy)

	require.NoError(t, os.RemoveAll(path))
	require.NoError(t, artifact.Remove())
	requireUnlocked(t, path)
}

func requireUnlocked(t *testing.T, path string) {
	t.Helper()
	lock := flock.New(lockPath(path))
	locked, err := lock.TryLock()
	require.NoError(t, err)
	require.True(t, locked, "artifact lock is still held")
	require.NoError(t, lock.Unlock())
}

func TestArtifactRemoveToleratesMissingFile(t *testing.T) {
	t.Parallel()

	rec, path := newTestRecorder(t, zeroBackend("fake"))
	artifact, err := rec.Record(context.Background(), Request{Seconds: 1, SampleRate: 16000, Channels: 1})
	require.NoError(t, err)

	require.NoError(t, os.Remove(path))
	require.NoError(t, artifact.Remove())
}

func TestRecordRejectsEmptyRequest(t *testing.T) {
	t.Parallel()

	rec, _ := newTestRecorder(t, zeroBackend("fake"))
	_, err := rec.Record(context.Background(), Request{Seconds: 0, SampleRate: 16000, Channels: 1})
	require.ErrorIs(t, err, ErrDevice)
}

func TestRequestSamples(t *testing.T) {
	t.Parallel()

	req := Request{Seconds: 30, SampleRate: 16000, Channels: 1}
	require.Equal(t, 480000, req.Samples())
	require.Equal(t, 30*time.Second, req.Duration())
}

func TestSelectBackendPreferred(t *testing.T) {
	t.Parallel()

	a := &fakeBackend{name: "a", available: true}
	b := &fakeBackend{name: "b", available: true}

	selected, err := SelectBackend([]Backend{a, b}, "b")
	require.NoError(t, err)
	require.Equal(t, "b", selected.Name())
}

func TestSelectBackendAutoSkipsUnavailable(t *testing.T) {
	t.Parallel()

	a := &fakeBackend{name: "a", available: false}
	b := &fakeBackend{name: "b", available: true}

	selected, err := SelectBackend([]Backend{a, b}, "auto")
	require.NoError(t, err)
	require.Equal(t, "b", selected.Name())
}

func TestSelectBackendErrors(t *testing.T) {
	t.Parallel()

	a := &fakeBackend{name: "a", available: false}

	_, err := SelectBackend([]Backend{a}, "a")
	require.ErrorContains(t, err, "not available")

	_, err = SelectBackend([]Backend{a}, "zzz")
	require.ErrorContains(t, err, "unknown backend")

	_, err = SelectBackend([]Backend{a}, "")
	require.ErrorIs(t, err, ErrNoBackendAvailable)

	_, err = SelectBackend(nil, "")
	require.Error(t, err)
}

func TestDefaultBackendsByOS(t *testing.T) {
	t.Parallel()

	names := func(backends []Backend) []string {
		var out []string
		for _, backend := range backends {
			out = append(out, backend.Name())
		}
		return out
	}

	require.Subset(t, names(DefaultBackends("linux")), []string{"pw-record", "arecord", "ffmpeg"})
	require.Contains(t, names(DefaultBackends("darwin")), "ffmpeg")
}
