package mediajob

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/bedrock-media-jobs/internal/storage"
)

// MetadataDocument is the canonical on-disk format of a structured result.
type MetadataDocument struct {
	SourceReference     string          `json:"source_reference"`
	ResolutionTimestamp string          `json:"resolution_timestamp"`
	ResultPayload       json.RawMessage `json:"result_payload"`
}

// Destination is where a materialized result is written. Open acquires the
// underlying resource; the returned writer commits on Close.
type Destination interface {
	Open(ctx context.Context) (io.WriteCloser, error)
	String() string
}

// aborter is implemented by destination writers that can discard a partial
// write instead of committing it.
type aborter interface {
	Abort() error
}

// FileDestination writes to a local file. The file is written under a
// temporary name in the same directory and renamed into place on success,
// so a failed write never leaves a partial file at Path.
type FileDestination struct {
	Path string
}

func (d FileDestination) String() string { return d.Path }

func (d FileDestination) Open(ctx context.Context) (io.WriteCloser, error) {
	dir := filepath.Dir(d.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create directory %s: %w", dir, err)
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(d.Path)+".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	return &fileWriter{f: f, w: bufio.NewWriter(f), path: d.Path}, nil
}

type fileWriter struct {
	f    *os.File
	w    *bufio.Writer
	path string
}

func (fw *fileWriter) Write(p []byte) (int, error) { return fw.w.Write(p) }

func (fw *fileWriter) Close() error {
	flushErr := fw.w.Flush()
	closeErr := fw.f.Close()
	if err := errors.Join(flushErr, closeErr); err != nil {
		os.Remove(fw.f.Name())
		return fmt.Errorf("write %s: %w", fw.path, err)
	}
	if err := os.Rename(fw.f.Name(), fw.path); err != nil {
		os.Remove(fw.f.Name())
		return fmt.Errorf("rename into %s: %w", fw.path, err)
	}
	return nil
}

func (fw *fileWriter) Abort() error {
	closeErr := fw.f.Close()
	return errors.Join(closeErr, os.Remove(fw.f.Name()))
}

// ObjectDestination writes to object storage. The object is put once, on
// Close; an aborted write puts nothing.
type ObjectDestination struct {
	Store       storage.Store
	Location    storage.Location
	ContentType string
}

func (d ObjectDestination) String() string { return d.Location.URI() }

func (d ObjectDestination) Open(ctx context.Context) (io.WriteCloser, error) {
	return &objectWriter{ctx: ctx, dest: d}, nil
}

type objectWriter struct {
	ctx  context.Context
	dest ObjectDestination
	buf  bytes.Buffer
}

func (ow *objectWriter) Write(p []byte) (int, error) { return ow.buf.Write(p) }

func (ow *objectWriter) Close() error {
	return ow.dest.Store.Put(ow.ctx, ow.dest.Location, ow.buf.Bytes(), ow.dest.ContentType)
}

func (ow *objectWriter) Abort() error {
	ow.buf.Reset()
	return nil
}

// Materializer is the only pipeline stage that writes caller-visible output.
type Materializer struct{}

func NewMaterializer() *Materializer { return &Materializer{} }

// MaterializeDocument wraps a structured artifact with its provenance and
// writes it as indented JSON.
func (m *Materializer) MaterializeDocument(ctx context.Context, artifact *ResultArtifact, dest Destination) error {
	if artifact == nil || artifact.Kind != ArtifactDocument {
		return fmt.Errorf("materialize document: artifact is not a document")
	}
	doc := MetadataDocument{
		SourceReference:     artifact.Source.String(),
		ResolutionTimestamp: artifact.ResolvedAt.UTC().Format(time.RFC3339),
		ResultPayload:       artifact.Document,
	}
	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal metadata document: %w", err)
	}
	if err := writeTo(ctx, dest, func(w io.Writer) error {
		_, err := w.Write(append(data, '\n'))
		return err
	}); err != nil {
		return err
	}
	log.Info().Str("destination", dest.String()).Int("bytes", len(data)).Msg("Metadata document saved")
	return nil
}

// MaterializeBinary writes a binary artifact's bytes unchanged.
func (m *Materializer) MaterializeBinary(ctx context.Context, artifact *ResultArtifact, dest Destination) error {
	if artifact == nil || artifact.Kind != ArtifactBinary {
		return fmt.Errorf("materialize binary: artifact is not binary")
	}
	if err := writeTo(ctx, dest, func(w io.Writer) error {
		_, err := w.Write(artifact.Data)
		return err
	}); err != nil {
		return err
	}
	log.Info().Str("destination", dest.String()).Int("bytes", len(artifact.Data)).Msg("Binary artifact saved")
	return nil
}

// Materialize dispatches on the artifact kind.
func (m *Materializer) Materialize(ctx context.Context, artifact *ResultArtifact, dest Destination) error {
	if artifact != nil && artifact.Kind == ArtifactBinary {
		return m.MaterializeBinary(ctx, artifact, dest)
	}
	return m.MaterializeDocument(ctx, artifact, dest)
}

// writeTo opens dest, runs fn, and always releases the writer: committed on
// success, aborted (or at least closed) on failure.
func writeTo(ctx context.Context, dest Destination, fn func(w io.Writer) error) error {
	w, err := dest.Open(ctx)
	if err != nil {
		return fmt.Errorf("open %s: %w", dest, err)
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		if a, ok := w.(aborter); ok {
			a.Abort()
		} else {
			w.Close()
		}
	}()

	if err := fn(w); err != nil {
		return fmt.Errorf("write %s: %w", dest, err)
	}
	committed = true
	if err := w.Close(); err != nil {
		return fmt.Errorf("commit %s: %w", dest, err)
	}
	return nil
}
