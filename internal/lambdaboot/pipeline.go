package lambdaboot

import (
	"context"
	"fmt"

	"github.com/fpang/bedrock-media-jobs/internal/config"
	"github.com/fpang/bedrock-media-jobs/internal/mediajob"
	"github.com/fpang/bedrock-media-jobs/internal/notify"
	"github.com/fpang/bedrock-media-jobs/internal/storage"
	"github.com/fpang/bedrock-media-jobs/internal/store"
)

// Pipeline is a runner wired to real AWS clients for one job kind.
type Pipeline struct {
	Runner *mediajob.Runner
	Store  *storage.S3Store

	// Jobs is nil when no jobs table is configured.
	Jobs *store.DynamoStore
}

// BuildAnalysis wires the Data Automation pipeline in the analysis region.
func BuildAnalysis(ctx context.Context, cfg *config.Config) (*Pipeline, error) {
	clients, err := InitAWS(ctx, cfg.Analysis.Region)
	if err != nil {
		return nil, err
	}
	profileARN, err := LoadProfileARN(ctx, clients.SSM, cfg.Analysis.ProfileARN, cfg.Analysis.ProfileParam)
	if err != nil {
		return nil, fmt.Errorf("analysis pipeline: %w", err)
	}
	da := InitDataAutomation(clients.Config, profileARN)

	p := &Pipeline{
		Store: InitS3(clients.Config, cfg.Tagging),
		Jobs:  InitDynamoOptional(clients.Config, cfg.JobsTable),
	}
	opts := bookkeeping(p.Jobs, InitNotifierOptional(clients.Config, cfg.EventBus))
	p.Runner = mediajob.NewRunner(da, da, p.Store, mediajob.PollerConfig{
		Interval: cfg.Analysis.PollInterval,
		Timeout:  cfg.PollTimeout,
	}, opts...)
	return p, nil
}

// BuildGeneration wires the Nova Reel pipeline in the generation region.
func BuildGeneration(ctx context.Context, cfg *config.Config) (*Pipeline, error) {
	clients, err := InitAWS(ctx, cfg.Generation.Region)
	if err != nil {
		return nil, err
	}
	p := &Pipeline{
		Store: InitS3(clients.Config, cfg.Tagging),
		Jobs:  InitDynamoOptional(clients.Config, cfg.JobsTable),
	}
	opts := bookkeeping(p.Jobs, InitNotifierOptional(clients.Config, cfg.EventBus))
	p.Runner = mediajob.NewRunner(nil, InitNovaReel(clients.Config), p.Store, mediajob.PollerConfig{
		Interval: cfg.Generation.PollInterval,
		Timeout:  cfg.PollTimeout,
	}, opts...)
	return p, nil
}

// bookkeeping converts optional concrete clients to runner options; a nil
// pointer must not become a non-nil interface.
func bookkeeping(jobs *store.DynamoStore, n *notify.EventBridge) []mediajob.RunnerOption {
	var opts []mediajob.RunnerOption
	if jobs != nil {
		opts = append(opts, mediajob.WithRecorder(jobs))
	}
	if n != nil {
		opts = append(opts, mediajob.WithNotifier(n))
	}
	return opts
}
