package cli

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fmueller/enscribe/internal/record"
	"github.com/fmueller/enscribe/internal/session"
	"github.com/fmueller/enscribe/internal/transcribe"
	"github.com/fmueller/enscribe/internal/whisper"
	"github.com/schollz/progressbar/v3"
)

type stopFunc func()

func startSpinner(enabled bool, description string) stopFunc {
	if !enabled {
		return func() {}
	}

	bar := progressbar.NewOptions(
		-1,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionThrottle(80*time.Millisecond),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	stopCh := make(chan struct{})
	doneCh := make(chan struct{})

	go func() {
		defer close(doneCh)
		ticker := time.NewTicker(120 * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-stopCh:
				_ = bar.Finish()
				return
			case <-ticker.C:
				_ = bar.Add(1)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stopCh)
			<-doneCh
		})
	}
}

func startDurationProgress(enabled bool, description string, duration time.Duration) stopFunc {
	if !enabled || duration <= 0 {
		return func() {}
	}

	total := int64(duration / time.Second)
	if total <= 0 {
		total = 1
	}

	bar := progressbar.NewOptions64(
		total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(20),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)

	stopCh := make(chan struct{})
	doneCh := make(chan struct{})

	go func() {
		defer close(doneCh)
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-stopCh:
				_ = bar.Finish()
				return
			case <-ticker.C:
				_ = bar.Add(1)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stopCh)
			<-doneCh
		})
	}
}

type progressRecorder struct {
	next session.Recorder
}

// withRecordingProgress shows a per-second bar on stderr while the
// microphone is open.
func withRecordingProgress(next session.Recorder, enabled bool) session.Recorder {
	if !enabled {
		return next
	}
	return progressRecorder{next: next}
}

func (p progressRecorder) Record(ctx context.Context, req record.Request) (session.Artifact, error) {
	stop := startDurationProgress(true, fmt.Sprintf("recording %ds", req.Seconds), req.Duration())
	defer stop()
	return p.next.Record(ctx, req)
}

type progressTranscriber struct {
	next session.Transcriber
}

// withTranscriptionProgress shows a spinner on stderr while the engine runs.
func withTranscriptionProgress(next session.Transcriber, enabled bool) session.Transcriber {
	if !enabled {
		return next
	}
	return progressTranscriber{next: next}
}

func (p progressTranscriber) Transcribe(ctx context.Context, handle whisper.Handle, path, language string) (transcribe.Result, error) {
	stop := startSpinner(true, "transcribing")
	defer stop()
	return p.next.Transcribe(ctx, handle, path, language)
}
