package mediajob

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// fakeConfigAPI simulates a configuration service with name uniqueness.
type fakeConfigAPI struct {
	mu        sync.Mutex
	existing  map[string]ConfigurationRef
	creates   atomic.Int32
	lists     atomic.Int32
	createErr error
	delay     time.Duration
}

func newFakeConfigAPI() *fakeConfigAPI {
	return &fakeConfigAPI{existing: make(map[string]ConfigurationRef)}
}

func (f *fakeConfigAPI) CreateConfiguration(ctx context.Context, name string, spec CapabilitySpec) (ConfigurationRef, error) {
	f.creates.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.createErr != nil {
		return "", f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.existing[name]; ok {
		return "", fmt.Errorf("create %s: %w", name, ErrNameConflict)
	}
	ref := ConfigurationRef("arn:aws:bedrock:us-east-1:111122223333:data-automation-project/" + name)
	f.existing[name] = ref
	return ref, nil
}

func (f *fakeConfigAPI) ListConfigurations(ctx context.Context) ([]ConfigurationSummary, error) {
	f.lists.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []ConfigurationSummary
	for name, ref := range f.existing {
		out = append(out, ConfigurationSummary{Name: name, Ref: ref})
	}
	return out, nil
}

// scriptedExecutor returns a fixed handle on Submit and replays a status
// script on GetStatus; the last entry repeats once the script is exhausted.
type scriptedExecutor struct {
	mu         sync.Mutex
	handle     InvocationHandle
	submitErr  error
	statuses   []StatusReport
	statusErr  error
	queries    int
	submission Submission
}

func (e *scriptedExecutor) Submit(ctx context.Context, sub Submission) (InvocationHandle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.submission = sub
	if e.submitErr != nil {
		return "", e.submitErr
	}
	return e.handle, nil
}

func (e *scriptedExecutor) GetStatus(ctx context.Context, handle InvocationHandle) (StatusReport, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.queries++
	if e.statusErr != nil {
		return StatusReport{}, e.statusErr
	}
	if len(e.statuses) == 0 {
		return StatusReport{}, errors.New("no scripted status")
	}
	i := e.queries - 1
	if i >= len(e.statuses) {
		i = len(e.statuses) - 1
	}
	return e.statuses[i], nil
}

func (e *scriptedExecutor) Queries() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.queries
}

func statuses(raw ...string) []StatusReport {
	out := make([]StatusReport, len(raw))
	for i, s := range raw {
		out[i] = StatusReport{Status: s}
	}
	return out
}

// fakeClock advances only when the poller sleeps.
type fakeClock struct {
	mu     sync.Mutex
	t      time.Time
	sleeps int
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps++
	c.t = c.t.Add(d)
	return nil
}

func (c *fakeClock) Sleeps() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sleeps
}

func newTestPoller(exec Executor, cfg PollerConfig, clock *fakeClock) *Poller {
	p := NewPoller(exec, cfg)
	p.sleep = clock.Sleep
	p.now = clock.Now
	return p
}
