package download

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func sumHex(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

func newTestClient(retries int) *Client {
	return New(Options{Retries: retries, Backoff: time.Millisecond, NoProgress: true})
}

func TestVerifyFileChecksum(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "payload.bin")
	payload := []byte("enscribe")
	require.NoError(t, os.WriteFile(path, payload, 0o644))

	require.NoError(t, VerifyFileChecksum(path, sumHex(payload)))
	require.NoError(t, VerifyFileChecksum(path, ""))
	require.ErrorIs(t, VerifyFileChecksum(path, "deadbeef"), ErrChecksumMismatch)
}

func TestFetchWritesVerifiedFile(t *testing.T) {
	t.Parallel()

	payload := []byte("ggml-model-bytes")
	var agent atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agent.Store(r.Header.Get("User-Agent"))
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	destination := filepath.Join(t.TempDir(), "models", "ggml-tiny.bin")
	err := newTestClient(1).Fetch(context.Background(), Request{
		URL:         server.URL + "/ggml-tiny.bin",
		Destination: destination,
		SHA256:      sumHex(payload),
	})
	require.NoError(t, err)

	onDisk, err := os.ReadFile(destination)
	require.NoError(t, err)
	require.Equal(t, payload, onDisk)
	require.NoFileExists(t, destination+".part")
	require.NoFileExists(t, destination+".lock")
	require.Equal(t, userAgent, agent.Load())
}

func TestFetchChecksumMismatchLeavesNothing(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("tampered"))
	}))
	defer server.Close()

	destination := filepath.Join(t.TempDir(), "ggml-tiny.bin")
	err := newTestClient(2).Fetch(context.Background(), Request{
		URL:         server.URL,
		Destination: destination,
		SHA256:      sumHex([]byte("original")),
	})
	require.ErrorIs(t, err, ErrChecksumMismatch)
	require.NoFileExists(t, destination)
	require.NoFileExists(t, destination+".part")
}

func TestFetchRetriesServerErrors(t *testing.T) {
	t.Parallel()

	payload := []byte("eventually")
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	destination := filepath.Join(t.TempDir(), "model.bin")
	err := newTestClient(3).Fetch(context.Background(), Request{URL: server.URL, Destination: destination, SHA256: sumHex(payload)})
	require.NoError(t, err)
	require.Equal(t, int32(3), calls.Load())
}

func TestFetchDoesNotRetryNotFound(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	err := newTestClient(3).Fetch(context.Background(), Request{URL: server.URL, Destination: filepath.Join(t.TempDir(), "model.bin")})
	require.ErrorIs(t, err, ErrBadStatus)
	require.ErrorContains(t, err, "404")
	require.Equal(t, int32(1), calls.Load())
}

func TestFetchSkipsExistingVerifiedFile(t *testing.T) {
	t.Parallel()

	payload := []byte("already-here")
	destination := filepath.Join(t.TempDir(), "model.bin")
	require.NoError(t, os.WriteFile(destination, payload, 0o644))

	err := newTestClient(1).Fetch(context.Background(), Request{
		URL:         "http://127.0.0.1:1/unreachable",
		Destination: destination,
		SHA256:      sumHex(payload),
	})
	require.NoError(t, err)
}

func TestFetchCanceledDuringBackoff(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	client := New(Options{Retries: 5, Backoff: time.Hour, NoProgress: true})

	done := make(chan error, 1)
	go func() {
		done <- client.Fetch(ctx, Request{URL: server.URL, Destination: filepath.Join(t.TempDir(), "model.bin")})
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("fetch did not return after cancellation")
	}
}

func TestFetchValidatesRequest(t *testing.T) {
	t.Parallel()

	client := newTestClient(1)
	require.Error(t, client.Fetch(context.Background(), Request{Destination: "x"}))
	require.Error(t, client.Fetch(context.Background(), Request{URL: "http://example.invalid"}))
}
