// Package notify publishes job outcomes to EventBridge so downstream
// consumers can react to finished media jobs without polling.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	eventbridgetypes "github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/rs/zerolog/log"

	"github.com/fpang/bedrock-media-jobs/internal/mediajob"
)

const (
	// Source is the EventBridge source of every job event.
	Source = "bedrock-media-jobs"

	DetailTypeSucceeded = "MediaJobSucceeded"
	DetailTypeFailed    = "MediaJobFailed"
)

// PutEventsAPI is the subset of the EventBridge client used here.
type PutEventsAPI interface {
	PutEvents(ctx context.Context, in *eventbridge.PutEventsInput, opts ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error)
}

// EventBridge implements mediajob.Notifier.
type EventBridge struct {
	client  PutEventsAPI
	busName string
}

var _ mediajob.Notifier = (*EventBridge)(nil)

// NewEventBridge publishes to busName; an empty name uses the default bus.
func NewEventBridge(client PutEventsAPI, busName string) *EventBridge {
	return &EventBridge{client: client, busName: busName}
}

// DetailType picks the detail type for a finished record.
func DetailType(rec mediajob.JobRecord) string {
	if rec.ErrorKind == "" && rec.State == mediajob.StateCompleted {
		return DetailTypeSucceeded
	}
	return DetailTypeFailed
}

func (e *EventBridge) NotifyJob(ctx context.Context, rec mediajob.JobRecord) error {
	detail, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal job record: %w", err)
	}
	detailType := DetailType(rec)

	entry := eventbridgetypes.PutEventsRequestEntry{
		Source:     aws.String(Source),
		DetailType: aws.String(detailType),
		Detail:     aws.String(string(detail)),
	}
	if rec.Invocation != "" {
		entry.Resources = []string{rec.Invocation}
	}
	if e.busName != "" {
		entry.EventBusName = aws.String(e.busName)
	}

	result, err := e.client.PutEvents(ctx, &eventbridge.PutEventsInput{
		Entries: []eventbridgetypes.PutEventsRequestEntry{entry},
	})
	if err != nil {
		log.Error().Err(err).Str("job", rec.ID).Str("detailType", detailType).Msg("EventBridge PutEvents failed")
		return fmt.Errorf("PutEvents: %w", err)
	}

	if result.FailedEntryCount > 0 {
		for i, entry := range result.Entries {
			if entry.ErrorCode != nil || entry.ErrorMessage != nil {
				log.Error().
					Int("index", i).
					Str("errorCode", aws.ToString(entry.ErrorCode)).
					Str("errorMessage", aws.ToString(entry.ErrorMessage)).
					Str("job", rec.ID).
					Msg("EventBridge PutEvents entry failed")
				return fmt.Errorf("PutEvents entry %d failed: %s - %s", i, aws.ToString(entry.ErrorCode), aws.ToString(entry.ErrorMessage))
			}
		}
	}

	log.Debug().Str("job", rec.ID).Str("detailType", detailType).Msg("Job outcome emitted to EventBridge")
	return nil
}
