package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/fpang/bedrock-media-jobs/internal/bedrock"
	"github.com/fpang/bedrock-media-jobs/internal/config"
	"github.com/fpang/bedrock-media-jobs/internal/filehandler"
	"github.com/fpang/bedrock-media-jobs/internal/lambdaboot"
	"github.com/fpang/bedrock-media-jobs/internal/mediajob"
	"github.com/fpang/bedrock-media-jobs/internal/storage"
)

// metadataFile is the name of each analysis result.
const metadataFile = "metadata.json"

// Analyze flags
var (
	outDirFlag      string
	projectFlag     string
	bucketFlag      string
	maxDepthFlag    int
	limitFlag       int
	concurrencyFlag int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze PATH...",
	Short: "Analyze local videos with Bedrock Data Automation",
	Long: `Analyze uploads each video to the input prefix, starts a Data Automation job
against the project (created on first use), waits for it to finish, and writes
the standard output to OUT/<video name>/metadata.json. A single video is
written to OUT/metadata.json.

Each video is uploaded as <input prefix>/<video name><ext>; videos sharing a
file name get a numeric suffix (clip, clip-2) in both places.

PATH may be a video file or a directory, which is scanned recursively.`,
	Args: cobra.MinimumNArgs(1),
	Run:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&outDirFlag, "out", "o", ".", "Directory to write results to")
	analyzeCmd.Flags().StringVarP(&projectFlag, "project", "p", "", "Data Automation project name (overrides MEDIAJOBS_PROJECT_NAME)")
	analyzeCmd.Flags().StringVarP(&bucketFlag, "bucket", "b", "", "S3 bucket for input and output (overrides MEDIAJOBS_ANALYSIS_BUCKET)")
	analyzeCmd.Flags().IntVar(&maxDepthFlag, "max-depth", 0, "Maximum recursion depth (0 = unlimited)")
	analyzeCmd.Flags().IntVar(&limitFlag, "limit", 0, "Maximum videos to process (0 = unlimited)")
	analyzeCmd.Flags().IntVarP(&concurrencyFlag, "concurrency", "j", 0, "Jobs to run at once (overrides MEDIAJOBS_CONCURRENCY)")
}

func runAnalyze(cmd *cobra.Command, args []string) {
	initStart := time.Now()
	cfg := loadConfig()
	applyAnalyzeFlags(cfg)

	videos, err := filehandler.CollectVideos(args, filehandler.ScanOptions{
		MaxDepth: maxDepthFlag,
		Limit:    limitFlag,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to collect videos")
	}
	if len(videos) == 0 {
		log.Warn().Strs("paths", args).Msg("No supported videos found")
		return
	}

	inputLoc, err := cfg.Analysis.InputLocation()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid analysis configuration")
	}
	outputLoc, err := cfg.Analysis.OutputLocation()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid analysis configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	pipeline, err := lambdaboot.BuildAnalysis(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize analysis pipeline")
	}

	lambdaboot.StartupLog("mediajobs-analyze", initStart).
		CommitHash(commitHash).
		S3Bucket("analysisBucket", cfg.Analysis.Bucket).
		Project("project", cfg.Analysis.ProjectName).
		DynamoTable("jobsTable", cfg.JobsTable).
		EventBus("eventBus", cfg.EventBus).
		Config("region", cfg.Analysis.Region).
		Config("pollInterval", cfg.Analysis.PollInterval.String()).
		Feature("tagging", cfg.Tagging).
		Log()

	log.Info().
		Int("videos", len(videos)).
		Int("concurrency", cfg.Concurrency).
		Msg("Starting analysis")

	names := resultNames(videos)
	var failed atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Concurrency)
	for _, video := range videos {
		dest := filepath.Join(outDirFlag, metadataFile)
		if len(videos) > 1 {
			dest = filepath.Join(outDirFlag, names[video], metadataFile)
		}
		g.Go(func() error {
			if err := analyzeOne(gctx, pipeline, cfg, video, names[video], inputLoc, outputLoc, dest); err != nil {
				failed.Add(1)
				log.Error().Err(err).
					Str("video", video).
					Str("errorKind", mediajob.ErrorKind(err)).
					Msg("Analysis failed")
				// Cancellation stops the batch; job failures do not.
				if errors.Is(err, context.Canceled) {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("Analysis interrupted")
	}

	if n := failed.Load(); n > 0 {
		log.Fatal().Int32("failed", n).Int("total", len(videos)).Msg("Some analyses failed")
	}
	log.Info().Int("total", len(videos)).Str("out", outDirFlag).Msg("Analysis complete")
}

func applyAnalyzeFlags(cfg *config.Config) {
	if projectFlag != "" {
		cfg.Analysis.ProjectName = projectFlag
	}
	if bucketFlag != "" {
		cfg.Analysis.Bucket = bucketFlag
	}
	if concurrencyFlag > 0 {
		cfg.Concurrency = concurrencyFlag
	}
}

func analyzeOne(ctx context.Context, p *lambdaboot.Pipeline, cfg *config.Config, video, name string, inputLoc, outputLoc storage.Location, dest string) error {
	input, err := stageInput(ctx, p.Store, video, name, inputLoc)
	if err != nil {
		return err
	}
	_, err = p.Runner.RunJob(ctx, mediajob.JobSpec{
		Kind:              mediajob.KindAnalysis,
		ConfigurationName: cfg.Analysis.ProjectName,
		Capabilities:      bedrock.DefaultVideoCapabilities(),
		Input:             input,
		OutputPrefix:      outputLoc,
		Params:            mediajob.AnalysisParams{},
		Destination:       mediajob.FileDestination{Path: dest},
	})
	if err != nil {
		return err
	}
	log.Info().Str("video", video).Str("output", dest).Msg("Metadata written")
	return nil
}

// stageInput uploads video to inputPrefix/<name><ext>, where name is the
// video's unique name within the batch.
func stageInput(ctx context.Context, st storage.Store, video, name string, inputPrefix storage.Location) (storage.Location, error) {
	loc := inputPrefix.Join(name + filepath.Ext(video))
	if err := storage.UploadLocalFileTo(ctx, st, video, loc); err != nil {
		return storage.Location{}, err
	}
	return loc, nil
}

// resultNames maps each video to a name unique within the batch, derived
// from its base name. Videos sharing a base name get a numeric suffix in
// sorted order.
func resultNames(videos []string) map[string]string {
	names := make(map[string]string, len(videos))
	taken := make(map[string]bool, len(videos))
	for _, v := range videos {
		base := strings.TrimSuffix(filepath.Base(v), filepath.Ext(v))
		name := base
		for n := 2; taken[name]; n++ {
			name = base + "-" + strconv.Itoa(n)
		}
		taken[name] = true
		names[v] = name
	}
	return names
}
