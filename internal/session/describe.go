package session

import (
	"errors"

	"github.com/fmueller/enscribe/internal/record"
	"github.com/fmueller/enscribe/internal/transcribe"
	"github.com/fmueller/enscribe/internal/whisper"
)

// Describe returns follow-up hints for an error shown to the user.
func Describe(err error) []string {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, whisper.ErrModelLoad):
		return []string{
			"Ensure you have an internet connection for the first download of the model,",
			"or pre-fetch it with `enscribe setup`.",
			"Check that whisper-cli is installed or set ENSCRIBE_WHISPER_PATH.",
			"You might also need to install ffmpeg for audio formats other than WAV.",
		}
	case errors.Is(err, record.ErrArtifactBusy):
		return []string{"Another enscribe session is recording in this directory. Try again when it has finished."}
	case errors.Is(err, record.ErrDevice):
		return []string{
			"Please ensure your microphone is connected and permitted.",
			"A capture tool (pw-record, arecord or ffmpeg) must be installed; run `enscribe devices` to check.",
		}
	case errors.Is(err, transcribe.ErrFileNotFound):
		return []string{"Check the path and try again."}
	case errors.Is(err, transcribe.ErrUnsupportedFormat), errors.Is(err, transcribe.ErrDecode):
		return []string{
			"Ensure the file is a valid audio format (e.g. WAV, MP3).",
			"If it is not WAV, ensure ffmpeg is installed and on your PATH.",
		}
	case errors.Is(err, transcribe.ErrInference):
		return []string{"Run again with ENSCRIBE_LOG_LEVEL=debug for engine details."}
	default:
		return nil
	}
}
