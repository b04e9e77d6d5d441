package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog/log"

	"github.com/fpang/bedrock-media-jobs/internal/mediajob"
)

// DynamoDB key constants for the single-table design.
const (
	pkPrefix = "JOB#"
	skMeta   = "META"
	skEvent  = "EVENT#"

	// Fixed width so EVENT# sort keys order chronologically.
	eventTimeFormat = "2006-01-02T15:04:05.000000000Z"
)

// DynamoAPI is the subset of the DynamoDB client used by DynamoStore.
type DynamoAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, opts ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// DynamoStore implements JobStore on a DynamoDB table keyed by PK/SK. Each
// job has one META item holding the latest record and one EVENT# item per
// recorded state.
type DynamoStore struct {
	client    DynamoAPI
	tableName string
	now       func() time.Time
}

// Compile-time interface check.
var _ JobStore = (*DynamoStore)(nil)

// NewDynamoStore creates a DynamoStore for the given table.
// The client should be initialized from the shared AWS config.
func NewDynamoStore(client DynamoAPI, tableName string) *DynamoStore {
	return &DynamoStore{
		client:    client,
		tableName: tableName,
		now:       time.Now,
	}
}

func jobPK(jobID string) string {
	return pkPrefix + jobID
}

func (s *DynamoStore) expiresAt() int64 {
	return s.now().Add(JobTTL).Unix()
}

// RecordJob upserts the META item and appends an EVENT# item.
func (s *DynamoStore) RecordJob(ctx context.Context, rec *mediajob.JobRecord) error {
	if rec == nil || rec.ID == "" {
		return fmt.Errorf("record job: job ID is required")
	}
	pk := jobPK(rec.ID)
	if err := s.putItem(ctx, pk, skMeta, rec); err != nil {
		return err
	}
	sk := skEvent + rec.UpdatedAt.UTC().Format(eventTimeFormat) + "#" + string(rec.State)
	if err := s.putItem(ctx, pk, sk, rec); err != nil {
		return err
	}
	log.Debug().Str("job", rec.ID).Str("state", string(rec.State)).Str("errorKind", rec.ErrorKind).Msg("Job record saved")
	return nil
}

func (s *DynamoStore) GetJob(ctx context.Context, jobID string) (*mediajob.JobRecord, error) {
	var rec mediajob.JobRecord
	found, err := s.getItem(ctx, jobPK(jobID), skMeta, &rec)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%s: %w", jobID, ErrJobNotFound)
	}
	rec.ID = jobID
	return &rec, nil
}

func (s *DynamoStore) History(ctx context.Context, jobID string) ([]mediajob.JobRecord, error) {
	items, err := s.queryBySKPrefix(ctx, jobID, skEvent)
	if err != nil {
		return nil, err
	}
	out := make([]mediajob.JobRecord, 0, len(items))
	for _, item := range items {
		var rec mediajob.JobRecord
		if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
			return nil, fmt.Errorf("unmarshal job event: %w", err)
		}
		rec.ID = jobID
		out = append(out, rec)
	}
	return out, nil
}

// DeleteJob removes the META item and every EVENT# item of a job.
func (s *DynamoStore) DeleteJob(ctx context.Context, jobID string) error {
	items, err := s.queryBySKPrefix(ctx, jobID, skEvent)
	if err != nil {
		return err
	}
	pk := jobPK(jobID)
	for _, item := range items {
		sk, ok := item["SK"].(*types.AttributeValueMemberS)
		if !ok {
			continue
		}
		if err := s.deleteItem(ctx, pk, sk.Value); err != nil {
			return err
		}
	}
	return s.deleteItem(ctx, pk, skMeta)
}

// --- Internal helpers ---

// putItem marshals a domain object and writes it to DynamoDB with PK, SK, and TTL.
// The domain object should use dynamodbav:"-" for fields derived from PK/SK.
func (s *DynamoStore) putItem(ctx context.Context, pk, sk string, data any) error {
	item, err := attributevalue.MarshalMap(data)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	// Key and TTL attributes overwrite any conflicting keys from the data.
	item["PK"] = &types.AttributeValueMemberS{Value: pk}
	item["SK"] = &types.AttributeValueMemberS{Value: sk}
	item["expiresAt"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(s.expiresAt(), 10)}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &s.tableName,
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("PutItem PK=%s SK=%s: %w", pk, sk, err)
	}
	return nil
}

// getItem reads a single item and unmarshals it into out.
// Returns false if the item does not exist (out is not modified).
func (s *DynamoStore) getItem(ctx context.Context, pk, sk string, out any) (bool, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &s.tableName,
		Key:       itemKey(pk, sk),
	})
	if err != nil {
		return false, fmt.Errorf("GetItem PK=%s SK=%s: %w", pk, sk, err)
	}
	if result.Item == nil {
		return false, nil
	}
	if err := attributevalue.UnmarshalMap(result.Item, out); err != nil {
		return false, fmt.Errorf("unmarshal PK=%s SK=%s: %w", pk, sk, err)
	}
	return true, nil
}

func (s *DynamoStore) deleteItem(ctx context.Context, pk, sk string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: &s.tableName,
		Key:       itemKey(pk, sk),
	})
	if err != nil {
		return fmt.Errorf("DeleteItem PK=%s SK=%s: %w", pk, sk, err)
	}
	return nil
}

// queryBySKPrefix queries all items of a job whose SK begins with prefix,
// following pagination.
func (s *DynamoStore) queryBySKPrefix(ctx context.Context, jobID, skPrefix string) ([]map[string]types.AttributeValue, error) {
	pk := jobPK(jobID)
	input := &dynamodb.QueryInput{
		TableName:              &s.tableName,
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :skPrefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":       &types.AttributeValueMemberS{Value: pk},
			":skPrefix": &types.AttributeValueMemberS{Value: skPrefix},
		},
	}

	var items []map[string]types.AttributeValue
	for {
		result, err := s.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("Query PK=%s SK^=%s: %w", pk, strings.TrimSuffix(skPrefix, "#"), err)
		}
		items = append(items, result.Items...)
		if len(result.LastEvaluatedKey) == 0 {
			return items, nil
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}
}

func itemKey(pk, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pk},
		"SK": &types.AttributeValueMemberS{Value: sk},
	}
}
