package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/bedrock-media-jobs/internal/jobs"
	"github.com/fpang/bedrock-media-jobs/internal/lambdaboot"
	"github.com/fpang/bedrock-media-jobs/internal/store"
)

// Status flags
var (
	kindFlag    string
	historyFlag bool
	deleteFlag  bool
)

var statusCmd = &cobra.Command{
	Use:   "status JOB_ID",
	Short: "Show a recorded job",
	Long: `Status prints the latest record of a job from the jobs table
(MEDIAJOBS_JOBS_TABLE) as JSON. With --history every recorded state
transition is printed instead.

JOB_ID may omit its kind prefix when --kind is given.`,
	Args: cobra.ExactArgs(1),
	Run:  runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&kindFlag, "kind", "", "Job kind (analysis or generation) used to complete a bare ID")
	statusCmd.Flags().BoolVar(&historyFlag, "history", false, "Print every recorded state transition")
	statusCmd.Flags().BoolVar(&deleteFlag, "delete", false, "Delete the job's records after printing them")
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	if cfg.JobsTable == "" {
		log.Fatal().Msg("MEDIAJOBS_JOBS_TABLE is required for status")
	}

	jobID := args[0]
	if kindFlag != "" {
		jobID = jobs.NormalizeID(jobID, kindFlag+"-")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	clients, err := lambdaboot.InitAWS(ctx, cfg.Analysis.Region)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load AWS config")
	}
	jobStore := lambdaboot.InitDynamoOptional(clients.Config, cfg.JobsTable)

	var out any
	if historyFlag {
		history, err := jobStore.History(ctx, jobID)
		if err != nil {
			log.Fatal().Err(err).Str("jobId", jobID).Msg("Failed to read job history")
		}
		if len(history) == 0 {
			log.Fatal().Str("jobId", jobID).Msg("Job not found")
		}
		out = history
	} else {
		rec, err := jobStore.GetJob(ctx, jobID)
		if errors.Is(err, store.ErrJobNotFound) {
			log.Fatal().Str("jobId", jobID).Msg("Job not found")
		}
		if err != nil {
			log.Fatal().Err(err).Str("jobId", jobID).Msg("Failed to read job")
		}
		out = rec
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Fatal().Err(err).Msg("Failed to write job")
	}

	if deleteFlag {
		if err := jobStore.DeleteJob(ctx, jobID); err != nil {
			log.Fatal().Err(err).Str("jobId", jobID).Msg("Failed to delete job")
		}
		log.Info().Str("jobId", jobID).Msg("Job records deleted")
	}
}
