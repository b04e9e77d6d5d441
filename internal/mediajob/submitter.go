package mediajob

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fpang/bedrock-media-jobs/internal/storage"
)

// MaxSeed is the largest seed accepted by Nova Reel.
const MaxSeed = 2147483646

// Submitter starts asynchronous executions. It never retries: a failed or
// handle-less start is returned as a *SubmissionError and the caller decides
// whether to resubmit (drawing a fresh seed if it does).
type Submitter struct {
	executor Executor

	drawSeed func() int64
	newToken func() string
	now      func() time.Time
}

func NewSubmitter(executor Executor) *Submitter {
	return &Submitter{
		executor: executor,
		drawSeed: func() int64 { return rand.Int64N(MaxSeed + 1) },
		newToken: uuid.NewString,
		now:      time.Now,
	}
}

// Submit builds the task-specific request and starts it. It returns as soon
// as the engine has accepted the job.
func (s *Submitter) Submit(ctx context.Context, cfg ConfigurationRef, input, outputPrefix storage.Location, params TaskParams) (*Invocation, error) {
	if params == nil {
		return nil, &SubmissionError{Msg: "task parameters are required"}
	}
	kind := params.Kind()
	if cfg == "" {
		return nil, &SubmissionError{Kind: kind, Msg: "configuration reference is required"}
	}
	if outputPrefix.Bucket == "" {
		return nil, &SubmissionError{Kind: kind, Msg: "output location is required"}
	}

	inv := &Invocation{
		Kind:          kind,
		Configuration: cfg,
		Input:         input,
		OutputPrefix:  outputPrefix,
		ClientToken:   s.newToken(),
	}

	switch p := params.(type) {
	case AnalysisParams:
		if input.Bucket == "" || input.IsPrefix() {
			return nil, &SubmissionError{Kind: kind, Msg: "analysis input must name an object"}
		}
		if p.Stage == "" {
			p.Stage = StageLive
		}
		params = p
	case GenerationParams:
		if p.Prompt == "" {
			return nil, &SubmissionError{Kind: kind, Msg: "prompt is required"}
		}
		p = p.withDefaults()
		if p.Seed == nil {
			seed := s.drawSeed()
			p.Seed = &seed
		} else if *p.Seed < 0 || *p.Seed > MaxSeed {
			return nil, &SubmissionError{Kind: kind, Msg: "seed out of range"}
		}
		seed := *p.Seed
		inv.Seed = &seed
		params = p
	}

	handle, err := s.executor.Submit(ctx, Submission{
		Kind:          kind,
		Configuration: cfg,
		Input:         input,
		OutputPrefix:  outputPrefix,
		Params:        params,
		ClientToken:   inv.ClientToken,
	})
	if err != nil {
		return nil, &SubmissionError{Kind: kind, Msg: "start call failed", Err: err}
	}
	if handle == "" {
		return nil, &SubmissionError{Kind: kind, Msg: "no invocation handle received in response"}
	}

	inv.Handle = handle
	inv.SubmittedAt = s.now()

	evt := log.Info().
		Str("kind", string(kind)).
		Str("invocation", string(handle)).
		Str("input", input.URI()).
		Str("outputPrefix", outputPrefix.URI())
	if inv.Seed != nil {
		evt = evt.Int64("seed", *inv.Seed)
	}
	evt.Msg("Started async job")

	return inv, nil
}
