package mediajob

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fpang/bedrock-media-jobs/internal/storage"
)

func TestMaterializeDocument_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "metadata.json")
	art := &ResultArtifact{
		Kind:       ArtifactDocument,
		Source:     storage.MustParseLocation("s3://media/input/clip.mp4"),
		Document:   json.RawMessage(`{"summary":"ok"}`),
		ResolvedAt: time.Date(2025, 3, 1, 12, 30, 0, 0, time.FixedZone("PST", -8*3600)),
	}

	if err := NewMaterializer().MaterializeDocument(context.Background(), art, FileDestination{Path: path}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	var doc MetadataDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, data)
	}
	if doc.SourceReference != "media/input/clip.mp4" {
		t.Errorf("unexpected source_reference %q", doc.SourceReference)
	}
	if doc.ResolutionTimestamp != "2025-03-01T20:30:00Z" {
		t.Errorf("unexpected resolution_timestamp %q", doc.ResolutionTimestamp)
	}
	var payload map[string]string
	if err := json.Unmarshal(doc.ResultPayload, &payload); err != nil || payload["summary"] != "ok" {
		t.Errorf("unexpected result_payload %s", doc.ResultPayload)
	}
	assertNoTempFiles(t, filepath.Dir(path))
}

func TestMaterializeBinary_Unchanged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "video.mp4")
	video := []byte{0x00, 0x01, 0xfe, 0xff, '\n', 0x00}
	art := &ResultArtifact{Kind: ArtifactBinary, Data: video}

	if err := NewMaterializer().Materialize(context.Background(), art, FileDestination{Path: path}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(data) != string(video) {
		t.Errorf("bytes changed: %v", data)
	}
}

func TestMaterialize_KindMismatch(t *testing.T) {
	m := NewMaterializer()
	dest := FileDestination{Path: filepath.Join(t.TempDir(), "x")}
	if err := m.MaterializeBinary(context.Background(), &ResultArtifact{Kind: ArtifactDocument}, dest); err == nil {
		t.Error("expected error for document passed as binary")
	}
	if err := m.MaterializeDocument(context.Background(), &ResultArtifact{Kind: ArtifactBinary}, dest); err == nil {
		t.Error("expected error for binary passed as document")
	}
}

func TestWriteTo_FailureRemovesPartialFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "metadata.json")
	boom := errors.New("boom")

	err := writeTo(context.Background(), FileDestination{Path: path}, func(w io.Writer) error {
		w.Write([]byte(`{"partial":`))
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected no file at %s, stat err = %v", path, err)
	}
	assertNoTempFiles(t, dir)
}

func TestWriteTo_FailureKeepsPreviousFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.json")
	if err := os.WriteFile(path, []byte("previous"), 0o644); err != nil {
		t.Fatal(err)
	}

	writeTo(context.Background(), FileDestination{Path: path}, func(w io.Writer) error {
		return errors.New("boom")
	})

	data, _ := os.ReadFile(path)
	if string(data) != "previous" {
		t.Errorf("expected previous content preserved, got %q", data)
	}
}

func TestObjectDestination(t *testing.T) {
	store := storage.NewMemoryStore()
	loc := storage.MustParseLocation("results/job-1/metadata.json")
	art := &ResultArtifact{Kind: ArtifactDocument, Document: json.RawMessage(`[]`), Source: loc}

	dest := ObjectDestination{Store: store, Location: loc, ContentType: "application/json"}
	if err := NewMaterializer().MaterializeDocument(context.Background(), art, dest); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var doc MetadataDocument
	if err := store.GetJSON(context.Background(), loc, &doc); err != nil {
		t.Fatalf("object not written: %v", err)
	}
	if string(doc.ResultPayload) != "[]" {
		t.Errorf("unexpected payload %s", doc.ResultPayload)
	}
}

func TestObjectDestination_AbortPutsNothing(t *testing.T) {
	store := storage.NewMemoryStore()
	dest := ObjectDestination{Store: store, Location: storage.MustParseLocation("results/x")}

	writeTo(context.Background(), dest, func(w io.Writer) error {
		w.Write([]byte("partial"))
		return errors.New("boom")
	})
	if keys := store.Keys(); len(keys) != 0 {
		t.Errorf("expected nothing stored, got %v", keys)
	}
}

func assertNoTempFiles(t *testing.T, dir string) {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, ".*.tmp-*"))
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 0 {
		t.Errorf("temp files left behind: %v", matches)
	}
}
