package mediajob

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fpang/bedrock-media-jobs/internal/storage"
)

// ErrNameConflict is returned by ConfigurationAPI.CreateConfiguration when a
// configuration with the requested name already exists.
var ErrNameConflict = errors.New("configuration name conflict")

// ProvisioningError reports that a named configuration could not be created
// or found.
type ProvisioningError struct {
	Name string
	Msg  string
	Err  error
}

func (e *ProvisioningError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("provision configuration %q: %s: %v", e.Name, e.Msg, e.Err)
	}
	return fmt.Sprintf("provision configuration %q: %s", e.Name, e.Msg)
}

func (e *ProvisioningError) Unwrap() error { return e.Err }

// SubmissionError reports that an async start call returned no invocation
// handle or failed outright. The core never resubmits.
type SubmissionError struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *SubmissionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("submit %s job: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("submit %s job: %s", e.Kind, e.Msg)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// JobFailedError carries the server-reported terminal status, code and
// message verbatim.
type JobFailedError struct {
	Handle  InvocationHandle
	State   State
	Status  string
	Code    string
	Message string
}

func (e *JobFailedError) Error() string {
	return fmt.Sprintf("job %s failed with status %s (code %q): %s", e.Handle, e.Status, e.Code, e.Message)
}

// PollTimeoutError reports that the caller-imposed polling deadline passed.
// The remote job may still be running.
type PollTimeoutError struct {
	Handle     InvocationHandle
	Timeout    time.Duration
	Polls      int
	LastStatus string
}

func (e *PollTimeoutError) Error() string {
	return fmt.Sprintf("job %s: polling timed out after %s (%d polls, last status %q)", e.Handle, e.Timeout, e.Polls, e.LastStatus)
}

// MalformedManifestError names the indirection hop and the field that was
// expected but absent.
type MalformedManifestError struct {
	Hop      string
	Field    string
	Location string
}

func (e *MalformedManifestError) Error() string {
	return fmt.Sprintf("malformed manifest at hop %s (%s): missing field %q", e.Hop, e.Location, e.Field)
}

// ProtocolViolationError reports server behaviour the poller cannot accept:
// a terminal status regressing, or too many unrecognized statuses in a row.
type ProtocolViolationError struct {
	Handle   InvocationHandle
	Previous string
	Current  string
	Msg      string
}

func (e *ProtocolViolationError) Error() string {
	return fmt.Sprintf("job %s: protocol violation: %s (previous %q, current %q)", e.Handle, e.Msg, e.Previous, e.Current)
}

// ErrorKind classifies any pipeline error for callers deciding on a
// resubmission strategy and for job records.
func ErrorKind(err error) string {
	var (
		provErr     *ProvisioningError
		subErr      *SubmissionError
		failedErr   *JobFailedError
		timeoutErr  *PollTimeoutError
		manifestErr *MalformedManifestError
		protoErr    *ProtocolViolationError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &failedErr):
		return "JobFailed"
	case errors.As(err, &timeoutErr):
		return "PollTimeout"
	case errors.As(err, &manifestErr):
		return "MalformedManifest"
	case errors.As(err, &protoErr):
		return "ProtocolViolation"
	case errors.As(err, &subErr):
		return "Submission"
	case errors.As(err, &provErr):
		return "Provisioning"
	case errors.As(err, new(*storage.StorageError)):
		return "Storage"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "Cancelled"
	default:
		return "Internal"
	}
}
