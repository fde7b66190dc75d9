package whisper

import (
	"context"
	"errors"
)

// ErrAudioUnreadable is returned when the engine cannot open or decode the
// audio it was given.
var ErrAudioUnreadable = errors.New("whisper engine could not read audio")

type TranscriptionRequest struct {
	AudioPath string
	ModelPath string
	// Language is always an explicit code; the engine never auto-detects.
	Language string
}

type Engine interface {
	Transcribe(ctx context.Context, req TranscriptionRequest) (string, error)
}
