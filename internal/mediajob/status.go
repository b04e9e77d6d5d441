package mediajob

import "strings"

// State is the poller's normalized view of a server-reported status.
type State string

const (
	StateSubmitted    State = "Submitted"
	StateRunning      State = "Running"
	StateCompleted    State = "Completed"
	StateFailed       State = "Failed"
	StateCancelled    State = "Cancelled"
	StateServiceError State = "ServiceError"
)

// IsTerminal reports whether no further transition can follow s.
func (s State) IsTerminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateCancelled, StateServiceError:
		return true
	default:
		return false
	}
}

// statusVocabulary maps the raw status strings seen from the Bedrock async
// APIs (Data Automation and StartAsyncInvoke spell them differently) to
// states. Lookups are exact first, then case-insensitive.
var statusVocabulary = map[string]State{
	"Created":      StateRunning,
	"Submitted":    StateRunning,
	"InProgress":   StateRunning,
	"IN_PROGRESS":  StateRunning,
	"Running":      StateRunning,
	"RUNNING":      StateRunning,
	"COMPLETED":    StateCompleted,
	"Completed":    StateCompleted,
	"Success":      StateCompleted,
	"FAILED":       StateFailed,
	"Failed":       StateFailed,
	"ClientError":  StateFailed,
	"CANCELLED":    StateCancelled,
	"Cancelled":    StateCancelled,
	"ServiceError": StateServiceError,
}

// ClassifyStatus maps a raw status string to a State. The second result is
// false for strings outside the known vocabulary; callers treat those as
// non-terminal.
func ClassifyStatus(raw string) (State, bool) {
	if s, ok := statusVocabulary[raw]; ok {
		return s, true
	}
	for k, s := range statusVocabulary {
		if strings.EqualFold(k, raw) {
			return s, true
		}
	}
	return StateRunning, false
}

// TerminalStatus is the poller's result for a job that reached a terminal
// state. Non-success states are values, not errors; use Err to convert.
type TerminalStatus struct {
	Handle       InvocationHandle
	State        State
	Status       string // raw server status
	ErrorCode    string
	ErrorMessage string
	OutputRef    string
	Polls        int
}

// Succeeded reports whether artifacts can be resolved for this job.
func (t TerminalStatus) Succeeded() bool {
	return t.State == StateCompleted
}

// Err returns nil for a completed job and a *JobFailedError carrying the
// server's code and message unmodified otherwise.
func (t TerminalStatus) Err() error {
	if t.Succeeded() {
		return nil
	}
	return &JobFailedError{
		Handle:  t.Handle,
		State:   t.State,
		Status:  t.Status,
		Code:    t.ErrorCode,
		Message: t.ErrorMessage,
	}
}
