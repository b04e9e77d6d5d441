package mediajob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fpang/bedrock-media-jobs/internal/jobs"
	"github.com/fpang/bedrock-media-jobs/internal/metrics"
	"github.com/fpang/bedrock-media-jobs/internal/storage"
)

// JobSpec describes one job for RunJob.
type JobSpec struct {
	// ID identifies the run in logs and records; generated when empty.
	ID   string
	Kind Kind

	// Analysis jobs name a configuration that is provisioned on first use.
	ConfigurationName string
	Capabilities      CapabilitySpec

	// Generation jobs reference a model directly.
	ModelID string

	Input        storage.Location
	OutputPrefix storage.Location
	Params       TaskParams

	// OutputFile is the binary artifact's path under the invocation's
	// output prefix; defaults to DefaultOutputFile.
	OutputFile string

	Destination Destination
}

func (s JobSpec) validate() error {
	switch s.Kind {
	case KindAnalysis:
		if s.ConfigurationName == "" {
			return errors.New("analysis job requires a configuration name")
		}
	case KindGeneration:
		if s.ModelID == "" {
			return errors.New("generation job requires a model ID")
		}
	default:
		return fmt.Errorf("unknown job kind %q", s.Kind)
	}
	if s.Params == nil {
		return errors.New("task parameters are required")
	}
	if s.Params.Kind() != s.Kind {
		return fmt.Errorf("%s job given %s parameters", s.Kind, s.Params.Kind())
	}
	if s.Destination == nil {
		return errors.New("destination is required")
	}
	return nil
}

// Runner drives a job through provisioning, submission, polling,
// resolution and materialization.
type Runner struct {
	provisioner  *Provisioner
	submitter    *Submitter
	poller       *Poller
	resolver     *Resolver
	materializer *Materializer

	recorder   JobRecorder
	notifier   Notifier
	metricsOut io.Writer
	now        func() time.Time
}

// RunnerOption customizes a Runner.
type RunnerOption func(*Runner)

// WithRecorder persists job records at submission and completion.
func WithRecorder(rec JobRecorder) RunnerOption {
	return func(r *Runner) { r.recorder = rec }
}

// WithNotifier publishes each finished job's record.
func WithNotifier(n Notifier) RunnerOption {
	return func(r *Runner) { r.notifier = n }
}

// WithMetricsWriter redirects EMF metrics (stdout by default).
func WithMetricsWriter(w io.Writer) RunnerOption {
	return func(r *Runner) { r.metricsOut = w }
}

// NewRunner wires the pipeline stages. configs may be nil for a runner that
// only handles generation jobs.
func NewRunner(configs ConfigurationAPI, executor Executor, store storage.Store, pollCfg PollerConfig, opts ...RunnerOption) *Runner {
	r := &Runner{
		submitter:    NewSubmitter(executor),
		poller:       NewPoller(executor, pollCfg),
		resolver:     NewResolver(store),
		materializer: NewMaterializer(),
		now:          time.Now,
	}
	if configs != nil {
		r.provisioner = NewProvisioner(configs)
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunJob runs spec to completion and returns the materialized artifact.
// It blocks until the job is terminal, the poll timeout expires, or ctx is
// cancelled; cancellation does not stop the remote job.
func (r *Runner) RunJob(ctx context.Context, spec JobSpec) (*ResultArtifact, error) {
	if err := spec.validate(); err != nil {
		return nil, fmt.Errorf("invalid job spec: %w", err)
	}
	if spec.ID == "" {
		spec.ID = jobs.GenerateID(string(spec.Kind) + "-")
	}

	start := r.now()
	rec := &JobRecord{
		ID:           spec.ID,
		Kind:         spec.Kind,
		Input:        spec.Input.String(),
		OutputPrefix: spec.OutputPrefix.String(),
		Destination:  spec.Destination.String(),
		State:        StateSubmitted,
		CreatedAt:    start,
	}
	logger := log.With().Str("jobId", spec.ID).Str("kind", string(spec.Kind)).Logger()
	ctx = logger.WithContext(ctx)

	artifact, err := r.run(ctx, spec, rec, logger)
	r.finish(ctx, rec, err, start, logger)
	if err != nil {
		return nil, err
	}
	return artifact, nil
}

func (r *Runner) run(ctx context.Context, spec JobSpec, rec *JobRecord, logger zerolog.Logger) (*ResultArtifact, error) {
	cfg, err := r.configuration(ctx, spec)
	if err != nil {
		return nil, err
	}
	rec.Configuration = string(cfg)

	inv, err := r.submitter.Submit(ctx, cfg, spec.Input, spec.OutputPrefix, spec.Params)
	if err != nil {
		return nil, err
	}
	rec.Invocation = string(inv.Handle)
	rec.Seed = inv.Seed
	rec.State = StateRunning
	if inv.Seed != nil {
		logger.Info().Int64("seed", *inv.Seed).Str("invocation", rec.Invocation).Msg("Generation seed")
	}
	r.record(ctx, rec, logger)

	status, err := r.poller.PollUntilTerminal(ctx, inv.Handle)
	if err != nil {
		return nil, err
	}
	defer r.poller.Forget(inv.Handle)
	rec.State = status.State
	rec.Status = status.Status
	rec.Polls = status.Polls
	rec.ErrorCode = status.ErrorCode
	rec.ErrorMessage = status.ErrorMessage
	if err := status.Err(); err != nil {
		return nil, err
	}

	artifact, err := r.resolve(ctx, spec, inv, status)
	if err != nil {
		return nil, err
	}
	artifact.Source = spec.Input

	if err := r.materializer.Materialize(ctx, artifact, spec.Destination); err != nil {
		return nil, err
	}
	return artifact, nil
}

func (r *Runner) configuration(ctx context.Context, spec JobSpec) (ConfigurationRef, error) {
	if spec.Kind == KindGeneration {
		return ConfigurationRef(spec.ModelID), nil
	}
	if r.provisioner == nil {
		return "", &ProvisioningError{Name: spec.ConfigurationName, Msg: "runner has no configuration API"}
	}
	return r.provisioner.EnsureConfiguration(ctx, spec.ConfigurationName, spec.Capabilities)
}

// resolve picks the artifact location from the terminal status, falling
// back to the invocation's sub-prefix under the requested output prefix.
func (r *Runner) resolve(ctx context.Context, spec JobSpec, inv *Invocation, status TerminalStatus) (*ResultArtifact, error) {
	var outputRef storage.Location
	if status.OutputRef != "" {
		loc, err := storage.ParseLocation(status.OutputRef)
		if err != nil {
			return nil, fmt.Errorf("job %s: unusable output reference: %w", inv.Handle, err)
		}
		outputRef = loc
	} else {
		outputRef = inv.OutputPrefix.Join(inv.Handle.ID() + "/")
	}

	switch spec.Kind {
	case KindGeneration:
		file := spec.OutputFile
		if file == "" {
			file = DefaultOutputFile
		}
		return r.resolver.ResolveBinary(ctx, outputRef, file)
	default:
		manifest := outputRef
		if manifest.IsPrefix() {
			manifest = manifest.Join(JobManifestFile)
		}
		return r.resolver.ResolveStructured(ctx, manifest)
	}
}

func (r *Runner) finish(ctx context.Context, rec *JobRecord, jobErr error, start time.Time, logger zerolog.Logger) {
	elapsed := r.now().Sub(start)
	rec.UpdatedAt = r.now()
	outcome := string(rec.State)
	if jobErr != nil {
		rec.ErrorKind = ErrorKind(jobErr)
		outcome = rec.ErrorKind
		var failed *JobFailedError
		if !errors.As(jobErr, &failed) && rec.ErrorMessage == "" {
			rec.ErrorMessage = jobErr.Error()
		}
		logger.Error().Err(jobErr).Str("errorKind", rec.ErrorKind).Str("invocation", rec.Invocation).Dur("elapsed", elapsed).Msg("Job failed")
	} else {
		logger.Info().Str("invocation", rec.Invocation).Int("polls", rec.Polls).Dur("elapsed", elapsed).Msg("Job complete")
	}

	// Bookkeeping must outlive a cancelled job context.
	bg := context.WithoutCancel(ctx)
	r.record(bg, rec, logger)
	if r.notifier != nil {
		if err := r.notifier.NotifyJob(bg, *rec); err != nil {
			logger.Warn().Err(err).Msg("Failed to publish job outcome")
		}
	}

	m := metrics.New(metrics.Namespace).
		WithWriter(r.metricsOut).
		Dimension("Kind", string(rec.Kind)).
		Dimension("Outcome", outcome).
		Duration("JobDurationMs", elapsed).
		Metric("PollCount", float64(rec.Polls), metrics.UnitCount).
		Property("jobId", rec.ID)
	if rec.Invocation != "" {
		m.Property("invocation", rec.Invocation)
	}
	m.Flush()
}

func (r *Runner) record(ctx context.Context, rec *JobRecord, logger zerolog.Logger) {
	if r.recorder == nil {
		return
	}
	rec.UpdatedAt = r.now()
	if err := r.recorder.RecordJob(ctx, rec); err != nil {
		logger.Warn().Err(err).Msg("Failed to record job state")
	}
}
