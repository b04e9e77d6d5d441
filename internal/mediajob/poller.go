package mediajob

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// DefaultPollInterval is the fixed wait between status queries.
	DefaultPollInterval = 10 * time.Second

	// DefaultMaxUnrecognized bounds consecutive statuses outside the known
	// vocabulary before the poller gives up.
	DefaultMaxUnrecognized = 5
)

// PollerConfig tunes a Poller. Zero values take the defaults; a zero
// Timeout means no deadline.
type PollerConfig struct {
	Interval        time.Duration
	Timeout         time.Duration
	MaxUnrecognized int
}

// Poller queries an invocation on a fixed interval until it reaches a
// terminal state. It remembers the terminal state seen for each handle and
// rejects later polls of that handle that disagree with it.
type Poller struct {
	executor Executor
	cfg      PollerConfig

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time

	mu       sync.Mutex
	terminal map[InvocationHandle]string
}

func NewPoller(executor Executor, cfg PollerConfig) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultPollInterval
	}
	if cfg.MaxUnrecognized <= 0 {
		cfg.MaxUnrecognized = DefaultMaxUnrecognized
	}
	return &Poller{
		executor: executor,
		cfg:      cfg,
		sleep:    sleepContext,
		now:      time.Now,
		terminal: make(map[InvocationHandle]string),
	}
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// PollUntilTerminal blocks until handle reaches a terminal state and returns
// it. Failed, cancelled and service-error states are returned as values;
// errors are reserved for transport failures, *PollTimeoutError and
// *ProtocolViolationError. The timeout is checked between queries and never
// interrupts one in flight.
//
// Cancelling ctx only stops local polling; the remote job keeps running.
func (p *Poller) PollUntilTerminal(ctx context.Context, handle InvocationHandle) (TerminalStatus, error) {
	start := p.now()
	var (
		polls        int
		unrecognized int
		last         string
	)

	for {
		report, err := p.executor.GetStatus(ctx, handle)
		polls++
		if err != nil {
			return TerminalStatus{}, fmt.Errorf("get status of %s: %w", handle, err)
		}

		log.Debug().
			Str("invocation", string(handle)).
			Int("poll", polls).
			Str("status", report.Status).
			Str("errorCode", report.ErrorCode).
			Str("errorMessage", report.ErrorMessage).
			Str("outputRef", report.OutputRef).
			Msg("Job status")

		state, known := ClassifyStatus(report.Status)
		if err := p.checkRegression(handle, state, known, report.Status); err != nil {
			return TerminalStatus{}, err
		}

		if known && state.IsTerminal() {
			p.remember(handle, report.Status)
			log.Info().
				Str("invocation", string(handle)).
				Str("status", report.Status).
				Int("polls", polls).
				Dur("elapsed", p.now().Sub(start)).
				Msg("Job reached terminal status")
			return TerminalStatus{
				Handle:       handle,
				State:        state,
				Status:       report.Status,
				ErrorCode:    report.ErrorCode,
				ErrorMessage: report.ErrorMessage,
				OutputRef:    report.OutputRef,
				Polls:        polls,
			}, nil
		}

		if known {
			unrecognized = 0
		} else {
			unrecognized++
			log.Warn().Str("invocation", string(handle)).Str("status", report.Status).Int("count", unrecognized).Msg("Unrecognized job status")
			if unrecognized > p.cfg.MaxUnrecognized {
				return TerminalStatus{}, &ProtocolViolationError{
					Handle:   handle,
					Previous: last,
					Current:  report.Status,
					Msg:      fmt.Sprintf("%d consecutive unrecognized statuses", unrecognized),
				}
			}
		}
		last = report.Status

		if p.cfg.Timeout > 0 && p.now().Sub(start) >= p.cfg.Timeout {
			return TerminalStatus{}, &PollTimeoutError{
				Handle:     handle,
				Timeout:    p.cfg.Timeout,
				Polls:      polls,
				LastStatus: last,
			}
		}

		if err := p.sleep(ctx, p.cfg.Interval); err != nil {
			return TerminalStatus{}, fmt.Errorf("polling %s stopped locally, remote job may still be running: %w", handle, err)
		}
	}
}

func (p *Poller) checkRegression(handle InvocationHandle, state State, known bool, raw string) error {
	p.mu.Lock()
	prev, seen := p.terminal[handle]
	p.mu.Unlock()
	if !seen {
		return nil
	}
	prevState, _ := ClassifyStatus(prev)
	if known && state == prevState {
		return nil
	}
	return &ProtocolViolationError{
		Handle:   handle,
		Previous: prev,
		Current:  raw,
		Msg:      "status changed after reaching a terminal state",
	}
}

func (p *Poller) remember(handle InvocationHandle, raw string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.terminal[handle] = raw
}

// Forget drops the terminal state remembered for handle, e.g. once its
// artifacts have been materialized.
func (p *Poller) Forget(handle InvocationHandle) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.terminal, handle)
}
