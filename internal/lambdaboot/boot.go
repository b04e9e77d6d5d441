// Package lambdaboot provides shared cold-start bootstrap logic.
//
// Both the CLI and the Lambda need some subset of: AWS config, S3, the
// Bedrock clients, DynamoDB, EventBridge, an SSM parameter fetch, and
// startup logging. This package extracts the common init patterns so each
// entry point is a short composition of helpers.
package lambdaboot

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockdataautomation"
	"github.com/aws/aws-sdk-go-v2/service/bedrockdataautomationruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"

	"github.com/fpang/bedrock-media-jobs/internal/bedrock"
	"github.com/fpang/bedrock-media-jobs/internal/logging"
	"github.com/fpang/bedrock-media-jobs/internal/notify"
	"github.com/fpang/bedrock-media-jobs/internal/storage"
	"github.com/fpang/bedrock-media-jobs/internal/store"
)

// AWSClients holds the AWS config for one region and the SSM client.
type AWSClients struct {
	Config aws.Config
	SSM    *ssm.Client
}

// InitAWS loads the default AWS config for region (empty uses the
// default chain's region).
func InitAWS(ctx context.Context, region string) (AWSClients, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return AWSClients{}, fmt.Errorf("load AWS config: %w", err)
	}
	log.Debug().Str("region", cfg.Region).Msg("AWS config loaded")
	return AWSClients{
		Config: cfg,
		SSM:    ssm.NewFromConfig(cfg),
	}, nil
}

// InitS3 creates the object store. Tagging adds cost-allocation tags to
// every object written.
func InitS3(cfg aws.Config, tagging bool) *storage.S3Store {
	st := storage.NewS3Store(s3.NewFromConfig(cfg))
	if !tagging {
		st = st.WithoutTagging()
	}
	return st
}

// InitDataAutomation creates the video analysis adapter.
func InitDataAutomation(cfg aws.Config, profileARN string) *bedrock.DataAutomation {
	return bedrock.NewDataAutomation(
		bedrockdataautomation.NewFromConfig(cfg),
		bedrockdataautomationruntime.NewFromConfig(cfg),
		profileARN,
	)
}

// InitNovaReel creates the video generation adapter.
func InitNovaReel(cfg aws.Config) *bedrock.NovaReel {
	return bedrock.NewNovaReel(bedrockruntime.NewFromConfig(cfg))
}

// InitDynamoOptional creates the job record store if tableName is set.
// Returns nil (with a warning) if not configured.
func InitDynamoOptional(cfg aws.Config, tableName string) *store.DynamoStore {
	if tableName == "" {
		log.Warn().Msg("Jobs table not set, job records disabled")
		return nil
	}
	return store.NewDynamoStore(dynamodb.NewFromConfig(cfg), tableName)
}

// InitNotifierOptional creates the EventBridge notifier if busName is set.
func InitNotifierOptional(cfg aws.Config, busName string) *notify.EventBridge {
	if busName == "" {
		log.Debug().Msg("Event bus not set, job notifications disabled")
		return nil
	}
	return notify.NewEventBridge(eventbridge.NewFromConfig(cfg), busName)
}

// StartupLog is a convenience wrapper for the startup logger.
func StartupLog(name string, initStart time.Time) *logging.StartupLogger {
	return logging.NewStartupLogger(name).InitDuration(time.Since(initStart))
}
