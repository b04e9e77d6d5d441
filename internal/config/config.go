// Package config reads process configuration from the environment.
//
// Every field has an env tag; the CLI additionally loads .env files first
// and lets flags override what was read.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"github.com/fpang/bedrock-media-jobs/internal/storage"
)

// DefaultProfileParam is the SSM parameter holding the Data Automation
// profile ARN when MEDIAJOBS_PROFILE_ARN is unset.
const DefaultProfileParam = "/bedrock-media-jobs/prod/data-automation-profile-arn"

type Config struct {
	Analysis   Analysis
	Generation Generation

	// Optional job bookkeeping.
	JobsTable string `env:"MEDIAJOBS_JOBS_TABLE"`
	EventBus  string `env:"MEDIAJOBS_EVENT_BUS"`

	PollTimeout time.Duration `env:"MEDIAJOBS_POLL_TIMEOUT" env-default:"0s"`
	Concurrency int           `env:"MEDIAJOBS_CONCURRENCY" env-default:"4"`

	// Tagging adds cost-allocation tags to uploaded objects.
	Tagging bool `env:"MEDIAJOBS_S3_TAGGING" env-default:"true"`
}

type Analysis struct {
	Region       string        `env:"MEDIAJOBS_ANALYSIS_REGION" env-default:"us-west-2"`
	Bucket       string        `env:"MEDIAJOBS_ANALYSIS_BUCKET"`
	InputPrefix  string        `env:"MEDIAJOBS_INPUT_PREFIX" env-default:"input/"`
	OutputPrefix string        `env:"MEDIAJOBS_OUTPUT_PREFIX" env-default:"output/"`
	ProjectName  string        `env:"MEDIAJOBS_PROJECT_NAME" env-default:"video-analysis-project"`
	ProfileARN   string        `env:"MEDIAJOBS_PROFILE_ARN"`
	ProfileParam string        `env:"MEDIAJOBS_PROFILE_SSM_PARAM" env-default:"/bedrock-media-jobs/prod/data-automation-profile-arn"`
	PollInterval time.Duration `env:"MEDIAJOBS_ANALYSIS_POLL_INTERVAL" env-default:"10s"`
}

type Generation struct {
	// Nova Reel is only offered in a few regions.
	Region       string        `env:"MEDIAJOBS_GENERATION_REGION" env-default:"us-east-1"`
	Bucket       string        `env:"MEDIAJOBS_GENERATION_BUCKET"`
	OutputPrefix string        `env:"MEDIAJOBS_GENERATION_PREFIX"`
	ModelID      string        `env:"MEDIAJOBS_MODEL_ID" env-default:"amazon.nova-reel-v1:0"`
	PollInterval time.Duration `env:"MEDIAJOBS_GENERATION_POLL_INTERVAL" env-default:"30s"`
}

// Load reads .env files (missing files are skipped) and then the
// environment. With no arguments godotenv looks for ./.env.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env files: %w", err)
	}
	return Read()
}

// Read reads the configuration from the process environment only.
func Read() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &cfg, nil
}

// Usage describes every supported environment variable.
func Usage() (string, error) {
	var cfg Config
	return cleanenv.GetDescription(&cfg, nil)
}

// InputLocation is where local videos are uploaded before analysis.
func (a Analysis) InputLocation() (storage.Location, error) {
	return a.location(a.InputPrefix)
}

// OutputLocation is the prefix Data Automation writes results under.
func (a Analysis) OutputLocation() (storage.Location, error) {
	return a.location(a.OutputPrefix)
}

func (a Analysis) location(prefix string) (storage.Location, error) {
	if a.Bucket == "" {
		return storage.Location{}, errors.New("MEDIAJOBS_ANALYSIS_BUCKET is required")
	}
	return asPrefix(a.Bucket, prefix), nil
}

// OutputLocation is the prefix Nova Reel writes invocation folders under.
func (g Generation) OutputLocation() (storage.Location, error) {
	if g.Bucket == "" {
		return storage.Location{}, errors.New("MEDIAJOBS_GENERATION_BUCKET is required")
	}
	return asPrefix(g.Bucket, g.OutputPrefix), nil
}

func asPrefix(bucket, prefix string) storage.Location {
	if prefix != "" && prefix[len(prefix)-1] != '/' {
		prefix += "/"
	}
	return storage.Location{Bucket: bucket, Key: prefix}
}
