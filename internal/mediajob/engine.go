package mediajob

import (
	"context"
	"strings"
	"time"

	"github.com/fpang/bedrock-media-jobs/internal/storage"
)

// Kind distinguishes the two job shapes handled by the pipeline.
type Kind string

const (
	KindAnalysis   Kind = "analysis"
	KindGeneration Kind = "generation"
)

// InvocationHandle is the opaque server-assigned identifier of one
// asynchronous execution (an invocation ARN on Bedrock).
type InvocationHandle string

// ID returns the last path segment of the handle. Bedrock uses it as the
// output sub-prefix for the invocation.
func (h InvocationHandle) ID() string {
	s := string(h)
	if i := strings.LastIndex(s, "/"); i >= 0 {
		return s[i+1:]
	}
	return s
}

// ConfigurationRef is the server reference of a processing configuration
// (a Data Automation project ARN, or a model ID for generation jobs).
type ConfigurationRef string

// StageLive is the default configuration stage.
const StageLive = "LIVE"

// CapabilitySpec lists the extraction and generation features a
// configuration enables.
type CapabilitySpec struct {
	Description string

	// Category extraction and the category types to extract, e.g.
	// TRANSCRIPT, TEXT_DETECTION, CONTENT_MODERATION, LOGOS.
	Category      bool
	CategoryTypes []string

	BoundingBox bool

	// Generative output fields, e.g. VIDEO_SUMMARY, CHAPTER_SUMMARY, IAB.
	GenerativeFields []string

	// Stage defaults to StageLive.
	Stage string
}

// ConfigurationSummary is one entry of a configuration listing.
type ConfigurationSummary struct {
	Name string
	Ref  ConfigurationRef
}

// ConfigurationAPI is the engine capability for named configurations.
type ConfigurationAPI interface {
	// CreateConfiguration creates a configuration. It returns an error
	// wrapping ErrNameConflict when the name is already taken.
	CreateConfiguration(ctx context.Context, name string, spec CapabilitySpec) (ConfigurationRef, error)

	// ListConfigurations returns every configuration visible to the caller.
	ListConfigurations(ctx context.Context) ([]ConfigurationSummary, error)
}

// Submission is the fully resolved request handed to an Executor.
type Submission struct {
	Kind          Kind
	Configuration ConfigurationRef
	Input         storage.Location
	OutputPrefix  storage.Location
	Params        TaskParams
	ClientToken   string
}

// StatusReport is the server's answer to one status query.
type StatusReport struct {
	Status       string
	ErrorCode    string
	ErrorMessage string
	OutputRef    string
}

// Executor is the engine capability for asynchronous execution.
type Executor interface {
	Submit(ctx context.Context, sub Submission) (InvocationHandle, error)
	GetStatus(ctx context.Context, handle InvocationHandle) (StatusReport, error)
}

// TaskParams is the job-type specific parameter block.
type TaskParams interface {
	Kind() Kind
}

// AnalysisParams parameterizes a video analysis job.
type AnalysisParams struct {
	// Stage defaults to StageLive.
	Stage string
}

func (AnalysisParams) Kind() Kind { return KindAnalysis }

// Generation defaults, matching Nova Reel's fixed-duration TEXT_VIDEO task.
const (
	DefaultDurationSeconds = 6
	DefaultFPS             = 24
	DefaultDimension       = "1280x720"
	DefaultOutputFile      = "output.mp4"
)

// GenerationParams parameterizes a video generation job.
type GenerationParams struct {
	Prompt string

	// ReferenceImage is an optional encoded image conditioning the first
	// frame; ReferenceImageFormat is "png" or "jpeg".
	ReferenceImage       []byte
	ReferenceImageFormat string

	// Seed is drawn at submission time when nil.
	Seed *int64

	DurationSeconds int
	FPS             int
	Dimension       string
}

func (GenerationParams) Kind() Kind { return KindGeneration }

func (p GenerationParams) withDefaults() GenerationParams {
	if p.DurationSeconds == 0 {
		p.DurationSeconds = DefaultDurationSeconds
	}
	if p.FPS == 0 {
		p.FPS = DefaultFPS
	}
	if p.Dimension == "" {
		p.Dimension = DefaultDimension
	}
	if len(p.ReferenceImage) > 0 && p.ReferenceImageFormat == "" {
		p.ReferenceImageFormat = "png"
	}
	return p
}

// Invocation is one submitted asynchronous execution. It is never mutated
// after Submit returns.
type Invocation struct {
	Handle        InvocationHandle
	Kind          Kind
	Configuration ConfigurationRef
	Input         storage.Location
	OutputPrefix  storage.Location
	Seed          *int64
	ClientToken   string
	SubmittedAt   time.Time
}
