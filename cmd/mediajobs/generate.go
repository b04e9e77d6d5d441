package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/bedrock-media-jobs/internal/lambdaboot"
	"github.com/fpang/bedrock-media-jobs/internal/mediajob"
	"github.com/fpang/bedrock-media-jobs/internal/refimage"
	"github.com/fpang/bedrock-media-jobs/internal/storage"
)

// randomSeed is the --seed value that draws a seed at submission.
const randomSeed = -1

// Generate flags
var (
	promptFlag   string
	imageFlag    string
	seedFlag     int64
	outFileFlag  string
	outS3Flag    string
	genModelFlag string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a video with Nova Reel",
	Long: `Generate starts a Nova Reel TEXT_VIDEO job from a prompt and an optional
reference image, waits for it to finish, and writes output.mp4 unchanged.

The reference image is resized to 1280x720 before submission. When --seed is
not given a random seed is drawn and logged so the result can be reproduced.`,
	Args: cobra.NoArgs,
	Run:  runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&promptFlag, "prompt", "", "Text prompt describing the video (required)")
	generateCmd.Flags().StringVar(&imageFlag, "image", "", "Reference image (JPEG or PNG) for the first frame")
	generateCmd.Flags().Int64Var(&seedFlag, "seed", randomSeed, "Seed for reproducible output (-1 = random)")
	generateCmd.Flags().StringVarP(&outFileFlag, "out", "o", "output.mp4", "Local file to write the video to")
	generateCmd.Flags().StringVar(&outS3Flag, "out-s3", "", "Write the video to this S3 location instead (s3://bucket/key)")
	generateCmd.Flags().StringVarP(&genModelFlag, "model", "m", "", "Model ID (overrides MEDIAJOBS_MODEL_ID)")
	_ = generateCmd.MarkFlagRequired("prompt")
}

func runGenerate(cmd *cobra.Command, args []string) {
	initStart := time.Now()
	cfg := loadConfig()
	if genModelFlag != "" {
		cfg.Generation.ModelID = genModelFlag
	}

	outputLoc, err := cfg.Generation.OutputLocation()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid generation configuration")
	}

	seed, err := seedParam(seedFlag)
	if err != nil {
		log.Fatal().Err(err).Int64("seed", seedFlag).Msg("Invalid --seed")
	}
	params := mediajob.GenerationParams{Prompt: promptFlag, Seed: seed}
	if imageFlag != "" {
		img, err := refimage.PrepareFile(imageFlag)
		if err != nil {
			log.Fatal().Err(err).Str("image", imageFlag).Msg("Failed to prepare reference image")
		}
		params.ReferenceImage = img
		params.ReferenceImageFormat = refimage.Format
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	pipeline, err := lambdaboot.BuildGeneration(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize generation pipeline")
	}

	var dest mediajob.Destination = mediajob.FileDestination{Path: outFileFlag}
	if outS3Flag != "" {
		loc, err := storage.ParseLocation(outS3Flag)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid --out-s3 location")
		}
		dest = mediajob.ObjectDestination{Store: pipeline.Store, Location: loc, ContentType: "video/mp4"}
	}

	lambdaboot.StartupLog("mediajobs-generate", initStart).
		CommitHash(commitHash).
		S3Bucket("generationBucket", cfg.Generation.Bucket).
		Model("model", cfg.Generation.ModelID).
		DynamoTable("jobsTable", cfg.JobsTable).
		EventBus("eventBus", cfg.EventBus).
		Config("region", cfg.Generation.Region).
		Config("pollInterval", cfg.Generation.PollInterval.String()).
		Feature("referenceImage", imageFlag != "").
		Log()

	artifact, err := pipeline.Runner.RunJob(ctx, mediajob.JobSpec{
		Kind:         mediajob.KindGeneration,
		ModelID:      cfg.Generation.ModelID,
		OutputPrefix: outputLoc,
		Params:       params,
		Destination:  dest,
	})
	if err != nil {
		log.Fatal().Err(err).Str("errorKind", mediajob.ErrorKind(err)).Msg("Generation failed")
	}
	log.Info().
		Str("output", dest.String()).
		Int("bytes", len(artifact.Data)).
		Msg("Video written")
}

// seedParam converts the --seed flag: -1 asks for a random seed, anything
// else must be within Nova Reel's seed range.
func seedParam(flag int64) (*int64, error) {
	if flag == randomSeed {
		return nil, nil
	}
	if flag < 0 || flag > mediajob.MaxSeed {
		return nil, fmt.Errorf("seed must be -1 or between 0 and %d", mediajob.MaxSeed)
	}
	return &flag, nil
}
