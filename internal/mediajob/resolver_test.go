package mediajob

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/fpang/bedrock-media-jobs/internal/storage"
)

func putJSON(t *testing.T, store *storage.MemoryStore, loc string, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := store.Put(context.Background(), storage.MustParseLocation(loc), data, "application/json"); err != nil {
		t.Fatalf("put %s: %v", loc, err)
	}
}

func TestResolveStructured_FollowsManifest(t *testing.T) {
	store := storage.NewMemoryStore()
	putJSON(t, store, "out/abc/job_metadata.json", map[string]any{
		"job_id": "abc",
		"output_metadata": []any{map[string]any{
			"asset_id": 0,
			"segment_metadata": []any{map[string]any{
				"standard_output_path": "s3://out/abc/0/standard_output/0/result.json",
			}},
		}},
	})
	putJSON(t, store, "out/abc/0/standard_output/0/result.json", map[string]any{"summary": "ok"})

	r := NewResolver(store)
	art, err := r.ResolveStructured(context.Background(), storage.MustParseLocation("out/abc/job_metadata.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if art.Kind != ArtifactDocument {
		t.Errorf("expected document, got %s", art.Kind)
	}
	if string(art.Document) != `{"summary":"ok"}` {
		t.Errorf("unexpected document: %s", art.Document)
	}
	if reads := store.Reads(); len(reads) != 2 {
		t.Errorf("expected 2 reads, got %v", reads)
	}
}

func TestResolveStructured_MultipleSegments(t *testing.T) {
	store := storage.NewMemoryStore()
	putJSON(t, store, "out/job_metadata.json", map[string]any{
		"output_metadata": []any{map[string]any{
			"segment_metadata": []any{
				map[string]any{"standard_output_path": "out/seg0.json"},
				map[string]any{"standard_output_path": "out/seg1.json"},
			},
		}},
	})
	putJSON(t, store, "out/seg0.json", map[string]any{"n": 0})
	putJSON(t, store, "out/seg1.json", map[string]any{"n": 1})

	art, err := NewResolver(store).ResolveStructured(context.Background(), storage.MustParseLocation("out/job_metadata.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(art.Document) != `[{"n":0},{"n":1}]` {
		t.Errorf("unexpected document: %s", art.Document)
	}
	if len(art.Segments) != 2 {
		t.Errorf("expected 2 segments, got %d", len(art.Segments))
	}
}

func TestResolveStructured_Malformed(t *testing.T) {
	tests := []struct {
		name     string
		manifest map[string]any
		hop      string
		field    string
	}{
		{
			name:     "no output_metadata",
			manifest: map[string]any{"job_id": "abc"},
			hop:      HopJobManifest,
			field:    "output_metadata",
		},
		{
			name:     "no segment_metadata",
			manifest: map[string]any{"output_metadata": []any{map[string]any{"asset_id": 0}}},
			hop:      HopJobManifest,
			field:    "segment_metadata",
		},
		{
			name: "no standard_output_path",
			manifest: map[string]any{"output_metadata": []any{map[string]any{
				"segment_metadata": []any{map[string]any{"custom_output_status": "NO_MATCH"}},
			}}},
			hop:   HopSegmentManifest,
			field: "standard_output_path",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := storage.NewMemoryStore()
			putJSON(t, store, "out/job_metadata.json", tt.manifest)

			_, err := NewResolver(store).ResolveStructured(context.Background(), storage.MustParseLocation("out/job_metadata.json"))
			var mmErr *MalformedManifestError
			if !errors.As(err, &mmErr) {
				t.Fatalf("expected *MalformedManifestError, got %v", err)
			}
			if mmErr.Hop != tt.hop || mmErr.Field != tt.field {
				t.Errorf("expected %s/%s, got %s/%s", tt.hop, tt.field, mmErr.Hop, mmErr.Field)
			}
		})
	}
}

func TestResolveStructured_MissingManifest(t *testing.T) {
	_, err := NewResolver(storage.NewMemoryStore()).ResolveStructured(context.Background(), storage.MustParseLocation("out/job_metadata.json"))
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if ErrorKind(err) != "Storage" {
		t.Errorf("expected kind Storage, got %q", ErrorKind(err))
	}
}

func TestResolveBinary(t *testing.T) {
	store := storage.NewMemoryStore()
	video := []byte{0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p'}
	if err := store.Put(context.Background(), storage.MustParseLocation("out/xyz/output.mp4"), video, "video/mp4"); err != nil {
		t.Fatal(err)
	}

	art, err := NewResolver(store).ResolveBinary(context.Background(), storage.MustParseLocation("s3://out/xyz"), DefaultOutputFile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if art.Kind != ArtifactBinary || string(art.Data) != string(video) {
		t.Errorf("unexpected artifact: %+v", art)
	}
	if art.Location.String() != "out/xyz/output.mp4" {
		t.Errorf("unexpected location %s", art.Location)
	}
}
