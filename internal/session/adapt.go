package session

import (
	"context"

	"github.com/fmueller/enscribe/internal/record"
)

type captureRecorder struct {
	recorder *record.Recorder
}

// WrapRecorder exposes a record.Recorder as a Recorder.
func WrapRecorder(r *record.Recorder) Recorder {
	return captureRecorder{recorder: r}
}

func (c captureRecorder) Record(ctx context.Context, req record.Request) (Artifact, error) {
	artifact, err := c.recorder.Record(ctx, req)
	if err != nil {
		return nil, err
	}
	return artifact, nil
}
