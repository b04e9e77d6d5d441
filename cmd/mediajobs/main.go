// Command mediajobs runs Bedrock video analysis and generation jobs from the
// command line.
package main

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/bedrock-media-jobs/internal/config"
	"github.com/fpang/bedrock-media-jobs/internal/logging"
)

// commitHash is set at build time via -ldflags.
var commitHash = "dev"

// Global flags
var (
	envFileFlag []string
)

// rootCmd is the main Cobra command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "mediajobs",
	Short: "Run asynchronous Bedrock media jobs",
	Long: `mediajobs drives long-running Amazon Bedrock media jobs to completion.

Videos are analyzed with Bedrock Data Automation: each local file is uploaded
to the input prefix, a job is started against the configured project, and the
standard output is written as metadata.json. Videos are generated with Nova
Reel from a prompt and an optional reference image.

Configuration is read from the environment (and .env files); run
"mediajobs env" to list every variable.

Examples:
  mediajobs analyze ./clips --out ./results
  mediajobs analyze trip.mp4 --project holiday-analysis
  mediajobs generate --prompt "Waves rolling onto a beach at dusk" --out beach.mp4
  mediajobs status analysis-3f2c9b0e6d9a4a8e9d1f0c2b7a6e5d4c`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init()
	},
}

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "List supported environment variables",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		usage, err := config.Usage()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to describe configuration")
		}
		cmd.Println(usage)
	},
}

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&envFileFlag, "env-file", nil, "Env file(s) to load before reading the environment (default ./.env)")
	rootCmd.AddCommand(analyzeCmd, generateCmd, statusCmd, envCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads configuration or exits.
func loadConfig() *config.Config {
	cfg, err := config.Load(envFileFlag...)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	return cfg
}
