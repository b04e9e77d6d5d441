// Package main provides the Lambda entry point for asynchronous media jobs.
//
// Each invocation runs one job to completion (or reads a job record) and
// returns a summary. Jobs are long-running, so the function timeout must
// cover the poll interval times the expected number of polls; set
// MEDIAJOBS_POLL_TIMEOUT below the function timeout so the job record is
// written before Lambda stops the handler.
//
// Event format:
//
//	{
//	  "action": "analyze"|"generate"|"status",
//	  "jobId": "optional; generated when empty",
//	  "input": "s3://bucket/input/video.mp4",         // analyze
//	  "prompt": "...",                                 // generate
//	  "referenceImage": "s3://bucket/ref/frame.jpg",  // generate, optional
//	  "seed": 42,                                      // generate, optional
//	  "destination": "s3://bucket/results/..."        // optional
//	}
package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog/log"

	"github.com/fpang/bedrock-media-jobs/internal/bedrock"
	"github.com/fpang/bedrock-media-jobs/internal/config"
	"github.com/fpang/bedrock-media-jobs/internal/jobs"
	"github.com/fpang/bedrock-media-jobs/internal/jobutil"
	"github.com/fpang/bedrock-media-jobs/internal/lambdaboot"
	"github.com/fpang/bedrock-media-jobs/internal/logging"
	"github.com/fpang/bedrock-media-jobs/internal/mediajob"
	"github.com/fpang/bedrock-media-jobs/internal/refimage"
	"github.com/fpang/bedrock-media-jobs/internal/storage"
	"github.com/fpang/bedrock-media-jobs/internal/store"
)

var coldStart = true

// Pipelines initialized at cold start. Either may be nil when its bucket is
// not configured.
var (
	cfg        *config.Config
	analysis   *lambdaboot.Pipeline
	generation *lambdaboot.Pipeline
)

// setup builds the pipelines once per execution environment.
func setup() {
	initStart := time.Now()
	logging.Init()

	var err error
	cfg, err = config.Read()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read configuration")
	}

	ctx := context.Background()
	if cfg.Analysis.Bucket != "" {
		analysis, err = lambdaboot.BuildAnalysis(ctx, cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize analysis pipeline")
		}
	}
	if cfg.Generation.Bucket != "" {
		generation, err = lambdaboot.BuildGeneration(ctx, cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize generation pipeline")
		}
	}
	if analysis == nil && generation == nil {
		log.Fatal().Msg("MEDIAJOBS_ANALYSIS_BUCKET or MEDIAJOBS_GENERATION_BUCKET is required")
	}

	lambdaboot.StartupLog("mediajob-lambda", initStart).
		S3Bucket("analysisBucket", cfg.Analysis.Bucket).
		S3Bucket("generationBucket", cfg.Generation.Bucket).
		Project("project", cfg.Analysis.ProjectName).
		Model("model", cfg.Generation.ModelID).
		DynamoTable("jobsTable", cfg.JobsTable).
		EventBus("eventBus", cfg.EventBus).
		SSMParam("profileParam", cfg.Analysis.ProfileParam).
		Feature("analysis", analysis != nil).
		Feature("generation", generation != nil).
		Log()
}

func main() {
	setup()
	lambda.Start(handler)
}

func handler(ctx context.Context, event Event) (*Response, error) {
	if coldStart {
		coldStart = false
		log.Info().Str("function", "mediajob-lambda").Msg("Cold start, first invocation")
	}
	log.Info().
		Str("action", event.Action).
		Str("jobId", event.JobID).
		Str("input", event.Input).
		Msg("Media job Lambda invoked")

	if event.Action == ActionStatus {
		return handleStatus(ctx, event)
	}

	kind := event.kind()
	if event.JobID == "" {
		event.JobID = jobs.GenerateID(string(kind) + "-")
	}
	p := pipelineFor(kind)
	if err := event.validate(); err != nil {
		return nil, reject(ctx, event, err)
	}
	if p == nil {
		return nil, reject(ctx, event, fmt.Errorf("%s jobs are not configured", kind))
	}

	spec, err := buildSpec(ctx, p, event)
	if err != nil {
		return nil, reject(ctx, event, err)
	}

	artifact, err := p.Runner.RunJob(ctx, spec)
	if err != nil {
		return nil, err
	}
	resp := &Response{
		JobID:       spec.ID,
		Kind:        string(kind),
		State:       string(mediajob.StateCompleted),
		Destination: spec.Destination.String(),
		Bytes:       len(artifact.Data) + len(artifact.Document),
	}
	if gp, ok := spec.Params.(mediajob.GenerationParams); ok && gp.Seed != nil {
		resp.Seed = gp.Seed
	}
	return resp, nil
}

func pipelineFor(kind mediajob.Kind) *lambdaboot.Pipeline {
	switch kind {
	case mediajob.KindAnalysis:
		return analysis
	case mediajob.KindGeneration:
		return generation
	}
	return nil
}

// jobStore returns the jobs table store. Both pipelines share one table.
func jobStore() *store.DynamoStore {
	for _, p := range []*lambdaboot.Pipeline{analysis, generation} {
		if p != nil && p.Jobs != nil {
			return p.Jobs
		}
	}
	return nil
}

// reject records a failed job for an event the runner never saw.
func reject(ctx context.Context, event Event, cause error) error {
	var rec mediajob.JobRecorder
	if js := jobStore(); js != nil {
		rec = js
	}
	if err := jobutil.SetJobError(ctx, rec, event.JobID, event.kind(), "invalid_event", cause.Error()); err != nil {
		log.Warn().Err(err).Str("jobId", event.JobID).Msg("Failed to record rejected job")
	}
	return fmt.Errorf("rejected %s event: %w", event.Action, cause)
}

func buildSpec(ctx context.Context, p *lambdaboot.Pipeline, event Event) (mediajob.JobSpec, error) {
	switch event.kind() {
	case mediajob.KindAnalysis:
		input, err := storage.ParseLocation(event.Input)
		if err != nil {
			return mediajob.JobSpec{}, fmt.Errorf("input: %w", err)
		}
		outputLoc, err := cfg.Analysis.OutputLocation()
		if err != nil {
			return mediajob.JobSpec{}, err
		}
		dest, err := event.destination(outputLoc, "metadata.json")
		if err != nil {
			return mediajob.JobSpec{}, err
		}
		return mediajob.JobSpec{
			ID:                event.JobID,
			Kind:              mediajob.KindAnalysis,
			ConfigurationName: cfg.Analysis.ProjectName,
			Capabilities:      bedrock.DefaultVideoCapabilities(),
			Input:             input,
			OutputPrefix:      outputLoc,
			Params:            mediajob.AnalysisParams{},
			Destination:       mediajob.ObjectDestination{Store: p.Store, Location: dest, ContentType: "application/json"},
		}, nil

	default:
		outputLoc, err := cfg.Generation.OutputLocation()
		if err != nil {
			return mediajob.JobSpec{}, err
		}
		dest, err := event.destination(outputLoc, mediajob.DefaultOutputFile)
		if err != nil {
			return mediajob.JobSpec{}, err
		}
		params := mediajob.GenerationParams{Prompt: event.Prompt, Seed: event.Seed}
		if event.ReferenceImage != "" {
			img, err := loadReferenceImage(ctx, p.Store, event.ReferenceImage)
			if err != nil {
				return mediajob.JobSpec{}, err
			}
			params.ReferenceImage = img
			params.ReferenceImageFormat = refimage.Format
		}
		return mediajob.JobSpec{
			ID:           event.JobID,
			Kind:         mediajob.KindGeneration,
			ModelID:      cfg.Generation.ModelID,
			OutputPrefix: outputLoc,
			Params:       params,
			Destination:  mediajob.ObjectDestination{Store: p.Store, Location: dest, ContentType: "video/mp4"},
		}, nil
	}
}

func loadReferenceImage(ctx context.Context, st storage.Store, raw string) ([]byte, error) {
	loc, err := storage.ParseLocation(raw)
	if err != nil {
		return nil, fmt.Errorf("reference image: %w", err)
	}
	data, err := st.Get(ctx, loc)
	if err != nil {
		return nil, err
	}
	return refimage.Prepare(data)
}

func handleStatus(ctx context.Context, event Event) (*Response, error) {
	js := jobStore()
	if js == nil {
		return nil, errors.New("status requires MEDIAJOBS_JOBS_TABLE")
	}
	if event.JobID == "" {
		return nil, errors.New("status requires jobId")
	}
	rec, err := js.GetJob(ctx, event.JobID)
	if err != nil {
		return nil, err
	}
	return responseFromRecord(rec), nil
}
