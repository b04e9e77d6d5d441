package mediajob

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/bedrock-media-jobs/internal/storage"
)

// Manifest hop names used in *MalformedManifestError.
const (
	HopJobManifest     = "job_manifest"
	HopSegmentManifest = "segment_manifest"
)

// JobManifestFile is the job-level manifest written under an analysis
// invocation's output prefix.
const JobManifestFile = "job_metadata.json"

// ArtifactKind is the shape of a resolved result.
type ArtifactKind string

const (
	ArtifactDocument ArtifactKind = "document"
	ArtifactBinary   ArtifactKind = "binary"
)

// ResultArtifact is the final result of a job. It is not mutated after
// resolution.
type ResultArtifact struct {
	Kind ArtifactKind

	// Source is the job's input reference; Location is where the result was
	// read from (the job manifest for documents).
	Source   storage.Location
	Location storage.Location

	// Document is the structured result. With one segment it is that
	// segment's standard output unchanged; with several it is a JSON array
	// of them in manifest order.
	Document json.RawMessage
	Segments []json.RawMessage

	Data []byte

	ResolvedAt time.Time
}

type jobManifest struct {
	JobID          string           `json:"job_id"`
	JobStatus      string           `json:"job_status"`
	OutputMetadata []outputMetadata `json:"output_metadata"`
}

type outputMetadata struct {
	AssetID         *int              `json:"asset_id"`
	SegmentMetadata []segmentMetadata `json:"segment_metadata"`
}

type segmentMetadata struct {
	StandardOutputPath string `json:"standard_output_path"`
	CustomOutputPath   string `json:"custom_output_path,omitempty"`
	CustomOutputStatus string `json:"custom_output_status,omitempty"`
}

// Resolver follows storage indirections from a job's output reference to
// its result. Every hop is a separate read; none is skipped or guessed.
type Resolver struct {
	store storage.Store
	now   func() time.Time
}

func NewResolver(store storage.Store) *Resolver {
	return &Resolver{store: store, now: time.Now}
}

// ResolveBinary reads prefix/relPath as raw bytes.
func (r *Resolver) ResolveBinary(ctx context.Context, prefix storage.Location, relPath string) (*ResultArtifact, error) {
	loc := prefix.Join(relPath)
	data, err := r.store.Get(ctx, loc)
	if err != nil {
		return nil, fmt.Errorf("resolve binary artifact: %w", err)
	}
	log.Debug().Str("location", loc.URI()).Int("bytes", len(data)).Msg("Binary artifact resolved")
	return &ResultArtifact{
		Kind:       ArtifactBinary,
		Location:   loc,
		Data:       data,
		ResolvedAt: r.now(),
	}, nil
}

// ResolveStructured reads the job manifest at manifestLoc, walks
// output_metadata[].segment_metadata[] and reads every standard_output_path.
func (r *Resolver) ResolveStructured(ctx context.Context, manifestLoc storage.Location) (*ResultArtifact, error) {
	var manifest jobManifest
	if err := r.store.GetJSON(ctx, manifestLoc, &manifest); err != nil {
		return nil, fmt.Errorf("read %s: %w", HopJobManifest, err)
	}
	if len(manifest.OutputMetadata) == 0 {
		return nil, &MalformedManifestError{Hop: HopJobManifest, Field: "output_metadata", Location: manifestLoc.URI()}
	}

	var segments []json.RawMessage
	for _, om := range manifest.OutputMetadata {
		if len(om.SegmentMetadata) == 0 {
			return nil, &MalformedManifestError{Hop: HopJobManifest, Field: "segment_metadata", Location: manifestLoc.URI()}
		}
		for _, seg := range om.SegmentMetadata {
			if seg.StandardOutputPath == "" {
				return nil, &MalformedManifestError{Hop: HopSegmentManifest, Field: "standard_output_path", Location: manifestLoc.URI()}
			}
			outLoc, err := storage.ParseLocation(seg.StandardOutputPath)
			if err != nil {
				return nil, &MalformedManifestError{Hop: HopSegmentManifest, Field: "standard_output_path", Location: manifestLoc.URI()}
			}

			var doc json.RawMessage
			if err := r.store.GetJSON(ctx, outLoc, &doc); err != nil {
				return nil, fmt.Errorf("read standard output: %w", err)
			}
			segments = append(segments, doc)
		}
	}

	document := segments[0]
	if len(segments) > 1 {
		combined, err := json.Marshal(segments)
		if err != nil {
			return nil, fmt.Errorf("combine segment outputs: %w", err)
		}
		document = combined
	}

	log.Debug().
		Str("manifest", manifestLoc.URI()).
		Str("jobStatus", manifest.JobStatus).
		Int("segments", len(segments)).
		Msg("Structured artifact resolved")

	return &ResultArtifact{
		Kind:       ArtifactDocument,
		Location:   manifestLoc,
		Document:   document,
		Segments:   segments,
		ResolvedAt: r.now(),
	}, nil
}
