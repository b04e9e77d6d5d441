package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type fakeS3 struct {
	objects map[string][]byte
	puts    []*s3.PutObjectInput
	getErr  error
}

func newFakeS3() *fakeS3 { return &fakeS3{objects: make(map[string][]byte)} }

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.puts = append(f.puts, in)
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &s3types.NoSuchKey{Message: aws.String("missing")}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func TestS3Store_PutGet(t *testing.T) {
	fake := newFakeS3()
	store := NewS3Store(fake)
	loc := MustParseLocation("s3://media/output/doc.json")

	if err := store.Put(context.Background(), loc, []byte(`{"summary":"ok"}`), "application/json"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if len(fake.puts) != 1 {
		t.Fatalf("expected 1 PutObject, got %d", len(fake.puts))
	}
	if got := aws.ToString(fake.puts[0].Tagging); got != projectTag {
		t.Errorf("expected project tagging, got %q", got)
	}
	if got := aws.ToString(fake.puts[0].ContentType); got != "application/json" {
		t.Errorf("expected content type, got %q", got)
	}

	var doc map[string]string
	if err := store.GetJSON(context.Background(), loc, &doc); err != nil {
		t.Fatalf("GetJSON: %v", err)
	}
	if doc["summary"] != "ok" {
		t.Errorf("unexpected doc: %v", doc)
	}
}

func TestS3Store_WithoutTagging(t *testing.T) {
	fake := newFakeS3()
	store := NewS3Store(fake).WithoutTagging()
	if err := store.Put(context.Background(), MustParseLocation("b/k"), []byte("x"), ""); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if fake.puts[0].Tagging != nil {
		t.Error("expected no tagging")
	}
	if fake.puts[0].ContentType != nil {
		t.Error("expected no content type")
	}
}

func TestS3Store_GetNotFound(t *testing.T) {
	store := NewS3Store(newFakeS3())
	_, err := store.Get(context.Background(), MustParseLocation("b/missing"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	var se *StorageError
	if !errors.As(err, &se) || se.Op != "get" {
		t.Fatalf("expected StorageError op=get, got %v", err)
	}
}

func TestS3Store_GetTransportError(t *testing.T) {
	fake := newFakeS3()
	fake.getErr = errors.New("connection reset")
	store := NewS3Store(fake)

	_, err := store.Get(context.Background(), MustParseLocation("b/k"))
	var se *StorageError
	if !errors.As(err, &se) {
		t.Fatalf("expected StorageError, got %v", err)
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("transport error must not look like not-found")
	}
	if !errors.Is(err, fake.getErr) {
		t.Error("expected underlying error to be wrapped")
	}
}

func TestS3Store_GetJSONDecodeError(t *testing.T) {
	fake := newFakeS3()
	fake.objects["b/bad.json"] = []byte("{not json")
	store := NewS3Store(fake)

	var v map[string]any
	err := store.GetJSON(context.Background(), MustParseLocation("b/bad.json"), &v)
	var se *StorageError
	if !errors.As(err, &se) || se.Op != "decode" {
		t.Fatalf("expected decode StorageError, got %v", err)
	}
}

func TestUploadLocalFile_Streams(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(path, []byte("video-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	fake := newFakeS3()
	loc, err := UploadLocalFile(context.Background(), NewS3Store(fake), path, MustParseLocation("s3://media/input/"))
	if err != nil {
		t.Fatalf("UploadLocalFile: %v", err)
	}
	if loc.String() != "media/input/clip.mp4" {
		t.Errorf("unexpected location %s", loc)
	}
	if string(fake.objects["media/input/clip.mp4"]) != "video-bytes" {
		t.Error("uploaded bytes mismatch")
	}
}

func TestUploadLocalFile_MemoryStore(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "in.mp4")
	if err := os.WriteFile(path, []byte("abc"), 0o644); err != nil {
		t.Fatal(err)
	}

	mem := NewMemoryStore()
	loc, err := UploadLocalFile(context.Background(), mem, path, MustParseLocation("loc/in/"))
	if err != nil {
		t.Fatalf("UploadLocalFile: %v", err)
	}
	got, err := mem.Get(context.Background(), loc)
	if err != nil || string(got) != "abc" {
		t.Fatalf("Get = %q, %v", got, err)
	}
}
