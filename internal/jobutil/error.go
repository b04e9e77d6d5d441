// Package jobutil provides shared helpers for job lifecycle operations.
//
// SetJobError is used by entry points that reject a job before the runner
// ever sees it (bad event payloads, missing configuration) but still owe the
// caller a persisted error record.
package jobutil

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/bedrock-media-jobs/internal/mediajob"
)

// SetJobError logs the error and persists a failed record through rec.
// A nil recorder only logs.
func SetJobError(ctx context.Context, rec mediajob.JobRecorder, jobID string, kind mediajob.Kind, errKind, msg string) error {
	log.Error().
		Str("job", jobID).
		Str("kind", string(kind)).
		Str("errorKind", errKind).
		Str("error", msg).
		Msg("Job rejected")
	if rec == nil {
		return nil
	}
	now := time.Now()
	return rec.RecordJob(ctx, &mediajob.JobRecord{
		ID:           jobID,
		Kind:         kind,
		State:        mediajob.StateFailed,
		ErrorKind:    errKind,
		ErrorMessage: msg,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}
