// Package store persists job records for operators and the Lambda status
// action. Records expire after JobTTL.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/fpang/bedrock-media-jobs/internal/mediajob"
)

// JobTTL is how long job records are kept before DynamoDB expires them.
const JobTTL = 30 * 24 * time.Hour

// ErrJobNotFound is returned by GetJob for an unknown job ID.
var ErrJobNotFound = errors.New("job not found")

// JobStore is the job record persistence capability.
type JobStore interface {
	mediajob.JobRecorder

	// GetJob returns the latest record of a job.
	GetJob(ctx context.Context, jobID string) (*mediajob.JobRecord, error)

	// History returns every recorded state of a job, oldest first.
	History(ctx context.Context, jobID string) ([]mediajob.JobRecord, error)

	DeleteJob(ctx context.Context, jobID string) error
}
