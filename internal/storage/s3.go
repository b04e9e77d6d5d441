package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog/log"
)

// projectTag is the URL-encoded S3 object tagging string for cost allocation.
const projectTag = "Project=bedrock-media-jobs"

// S3API is the subset of *s3.Client used by S3Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Store implements Store on Amazon S3.
type S3Store struct {
	client S3API
	tag    bool
}

// Compile-time interface check.
var _ Store = (*S3Store)(nil)

// NewS3Store wraps an S3 client. Objects written through the store carry the
// Project cost-allocation tag.
func NewS3Store(client S3API) *S3Store {
	return &S3Store{client: client, tag: true}
}

// WithoutTagging disables object tagging, for buckets whose policy rejects
// PutObject requests that carry tags.
func (s *S3Store) WithoutTagging() *S3Store {
	s.tag = false
	return s
}

func (s *S3Store) Put(ctx context.Context, loc Location, data []byte, contentType string) error {
	return s.put(ctx, loc, bytes.NewReader(data), contentType)
}

// UploadFile streams a local file to loc without reading it into memory.
func (s *S3Store) UploadFile(ctx context.Context, localPath string, loc Location, contentType string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()
	return s.put(ctx, loc, f, contentType)
}

func (s *S3Store) put(ctx context.Context, loc Location, body io.Reader, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
		Body:   body,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if s.tag {
		input.Tagging = aws.String(projectTag)
	}

	log.Debug().Str("bucket", loc.Bucket).Str("key", loc.Key).Msg("Uploading to S3")
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return newStorageError("put", loc, fmt.Errorf("S3 PutObject: %w", err))
	}
	return nil
}

func (s *S3Store) Get(ctx context.Context, loc Location) ([]byte, error) {
	log.Debug().Str("bucket", loc.Bucket).Str("key", loc.Key).Msg("Downloading from S3")
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
	})
	if err != nil {
		var nsk *s3types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, newStorageError("get", loc, fmt.Errorf("%w: %v", ErrNotFound, err))
		}
		return nil, newStorageError("get", loc, fmt.Errorf("S3 GetObject: %w", err))
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, newStorageError("get", loc, fmt.Errorf("read body: %w", err))
	}
	return data, nil
}

func (s *S3Store) GetJSON(ctx context.Context, loc Location, v any) error {
	data, err := s.Get(ctx, loc)
	if err != nil {
		return err
	}
	return decodeJSON(loc, data, v)
}

func decodeJSON(loc Location, data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return newStorageError("decode", loc, err)
	}
	return nil
}
