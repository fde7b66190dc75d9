package download

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"golang.org/x/term"
)

var (
	ErrChecksumMismatch = errors.New("checksum mismatch")
	ErrBadStatus        = errors.New("unexpected HTTP status")
)

const userAgent = "enscribe/1"

// Request names one remote file and its pinned SHA-256.
type Request struct {
	URL         string
	Destination string
	SHA256      string
}

type Options struct {
	HTTPClient *http.Client
	Retries    int
	Backoff    time.Duration
	NoProgress bool
	Logger     *zap.Logger
}

// Client fetches files into place atomically: the body is streamed into
// <dest>.part, hashed on the way, and renamed only when the digest matches.
type Client struct {
	http       *http.Client
	retries    int
	backoff    time.Duration
	noProgress bool
	logger     *zap.Logger
}

func New(opts Options) *Client {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 10 * time.Minute}
	}
	if opts.Retries <= 0 {
		opts.Retries = 3
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 300 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &Client{
		http:       opts.HTTPClient,
		retries:    opts.Retries,
		backoff:    opts.Backoff,
		noProgress: opts.NoProgress,
		logger:     opts.Logger,
	}
}

func (c *Client) Fetch(ctx context.Context, req Request) error {
	if req.URL == "" {
		return errors.New("download URL is required")
	}
	if req.Destination == "" {
		return errors.New("destination path is required")
	}

	if err := os.MkdirAll(filepath.Dir(req.Destination), 0o755); err != nil {
		return fmt.Errorf("create destination directory: %w", err)
	}

	lock := flock.New(req.Destination + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock %s: %w", req.Destination, err)
	}
	defer func() {
		_ = lock.Unlock()
		_ = os.Remove(lock.Path())
	}()

	// Another process may have finished the download while we waited.
	if _, err := os.Stat(req.Destination); err == nil {
		if err := VerifyFileChecksum(req.Destination, req.SHA256); err == nil {
			c.logger.Debug("download already present", zap.String("path", req.Destination))
			return nil
		}
	}

	expected := strings.ToLower(strings.TrimSpace(req.SHA256))

	var lastErr error
	for attempt := 1; attempt <= c.retries; attempt++ {
		if attempt > 1 {
			c.logger.Warn("retrying download", zap.Int("attempt", attempt), zap.Int("max", c.retries), zap.String("url", req.URL), zap.Error(lastErr))
			if err := sleepContext(ctx, time.Duration(attempt-1)*c.backoff); err != nil {
				return err
			}
		}

		lastErr = c.fetchOnce(ctx, req, expected)
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) {
			return lastErr
		}
	}

	return lastErr
}

func (c *Client) fetchOnce(ctx context.Context, req Request, expected string) error {
	tempPath := req.Destination + ".part"
	_ = os.Remove(tempPath)

	outFile, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	success := false
	defer func() {
		_ = outFile.Close()
		if !success {
			_ = os.Remove(tempPath)
		}
	}()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("download request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &statusError{code: resp.StatusCode}
	}

	hash := sha256.New()
	writer := io.MultiWriter(outFile, hash)

	var bar *progressbar.ProgressBar
	if c.renderProgress(resp.ContentLength) {
		bar = progressbar.NewOptions64(
			resp.ContentLength,
			progressbar.OptionSetDescription("downloading model"),
			progressbar.OptionSetWidth(20),
			progressbar.OptionShowBytes(true),
			progressbar.OptionThrottle(65*time.Millisecond),
			progressbar.OptionSetRenderBlankState(true),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionClearOnFinish(),
		)
		writer = io.MultiWriter(outFile, hash, bar)
	}

	if _, err := io.Copy(writer, resp.Body); err != nil {
		return fmt.Errorf("download body: %w", err)
	}

	if bar != nil {
		_ = bar.Finish()
	}

	if err := outFile.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}

	actual := hex.EncodeToString(hash.Sum(nil))
	if expected != "" && actual != expected {
		return fmt.Errorf("%w: expected %s, got %s", ErrChecksumMismatch, expected, actual)
	}

	if err := outFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tempPath, req.Destination); err != nil {
		return fmt.Errorf("move temp file into destination: %w", err)
	}

	success = true
	return nil
}

// VerifyFileChecksum hashes path and compares it with expectedSHA256. An
// empty expectation accepts any content.
func VerifyFileChecksum(path, expectedSHA256 string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open file for checksum: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return fmt.Errorf("hash file: %w", err)
	}

	expected := strings.ToLower(strings.TrimSpace(expectedSHA256))
	if expected == "" {
		return nil
	}

	if actual := hex.EncodeToString(h.Sum(nil)); actual != expected {
		return fmt.Errorf("%w: expected %s, got %s", ErrChecksumMismatch, expected, actual)
	}

	return nil
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s: %d", ErrBadStatus, e.code)
}

func (e *statusError) Unwrap() error {
	return ErrBadStatus
}

// retryable reports whether another attempt could succeed. Client errors
// and cancellation are final.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var status *statusError
	if errors.As(err, &status) {
		return status.code >= 500 || status.code == http.StatusTooManyRequests
	}
	return true
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) renderProgress(contentLength int64) bool {
	if c.noProgress || contentLength <= 0 {
		return false
	}
	return term.IsTerminal(int(os.Stderr.Fd()))
}
