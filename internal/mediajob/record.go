package mediajob

import (
	"context"
	"time"
)

// JobRecord is the persisted view of one job run, for operators correlating
// local runs with the remote engine's logs.
type JobRecord struct {
	ID            string    `json:"jobId" dynamodbav:"-"`
	Kind          Kind      `json:"kind" dynamodbav:"kind"`
	Configuration string    `json:"configuration,omitempty" dynamodbav:"configuration,omitempty"`
	Invocation    string    `json:"invocation,omitempty" dynamodbav:"invocation,omitempty"`
	Input         string    `json:"input,omitempty" dynamodbav:"input,omitempty"`
	OutputPrefix  string    `json:"outputPrefix" dynamodbav:"outputPrefix"`
	Destination   string    `json:"destination,omitempty" dynamodbav:"destination,omitempty"`
	Seed          *int64    `json:"seed,omitempty" dynamodbav:"seed,omitempty"`
	State         State     `json:"state" dynamodbav:"state"`
	Status        string    `json:"status,omitempty" dynamodbav:"status,omitempty"`
	ErrorKind     string    `json:"errorKind,omitempty" dynamodbav:"errorKind,omitempty"`
	ErrorCode     string    `json:"errorCode,omitempty" dynamodbav:"errorCode,omitempty"`
	ErrorMessage  string    `json:"errorMessage,omitempty" dynamodbav:"errorMessage,omitempty"`
	Polls         int       `json:"polls,omitempty" dynamodbav:"polls,omitempty"`
	CreatedAt     time.Time `json:"createdAt" dynamodbav:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt" dynamodbav:"updatedAt"`
}

// Finished reports whether the record describes a run that has returned.
func (r *JobRecord) Finished() bool {
	return r.State.IsTerminal() || r.ErrorKind != ""
}

// JobRecorder persists job records. RecordJob has upsert semantics.
type JobRecorder interface {
	RecordJob(ctx context.Context, rec *JobRecord) error
}

// Notifier publishes the outcome of a finished job.
type Notifier interface {
	NotifyJob(ctx context.Context, rec JobRecord) error
}
