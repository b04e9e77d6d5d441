package storage

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// fileUploader is implemented by stores that can stream a local file.
type fileUploader interface {
	UploadFile(ctx context.Context, localPath string, loc Location, contentType string) error
}

// UploadLocalFile copies a local file to prefix/<basename> and returns the
// object's location.
func UploadLocalFile(ctx context.Context, store Store, localPath string, prefix Location) (Location, error) {
	loc := prefix.Join(filepath.Base(localPath))
	if err := UploadLocalFileTo(ctx, store, localPath, loc); err != nil {
		return Location{}, err
	}
	return loc, nil
}

// UploadLocalFileTo copies a local file to loc. Stores that can stream
// (S3Store) are used that way; others receive the file contents in one Put.
func UploadLocalFileTo(ctx context.Context, store Store, localPath string, loc Location) error {
	contentType := mime.TypeByExtension(filepath.Ext(localPath))

	log.Info().Str("localPath", localPath).Str("location", loc.URI()).Msg("Uploading input file")

	if up, ok := store.(fileUploader); ok {
		return up.UploadFile(ctx, localPath, loc, contentType)
	}

	data, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", localPath, err)
	}
	return store.Put(ctx, loc, data, contentType)
}
