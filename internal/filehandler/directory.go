package filehandler

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
)

// ScanOptions configures directory scanning behavior.
type ScanOptions struct {
	// MaxDepth limits recursion depth. 0 = unlimited, 1 = top-level only.
	MaxDepth int

	// Limit caps the number of videos returned. 0 = unlimited.
	Limit int
}

// CollectVideos expands paths into a sorted, de-duplicated list of video
// files. Files are taken as given (and rejected if not a supported video);
// directories are scanned with ScanVideos.
func CollectVideos(paths []string, opts ScanOptions) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("failed to access %s: %w", p, err)
		}
		var found []string
		if info.IsDir() {
			found, err = ScanVideos(p, opts)
			if err != nil {
				return nil, err
			}
		} else {
			if !IsVideo(filepath.Ext(p)) {
				return nil, fmt.Errorf("unsupported video format: %s", p)
			}
			abs, err := filepath.Abs(p)
			if err != nil {
				return nil, fmt.Errorf("failed to get absolute path: %w", err)
			}
			found = []string{abs}
		}
		for _, f := range found {
			if !seen[f] {
				seen[f] = true
				out = append(out, f)
			}
		}
	}
	sort.Strings(out)
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

// ScanVideos walks dirPath for supported video files.
// Symlinks to files are followed; symlinks to directories are skipped to prevent infinite loops.
// Paths are absolute and sorted for consistent ordering.
func ScanVideos(dirPath string, opts ScanOptions) ([]string, error) {
	log.Info().
		Str("path", dirPath).
		Int("max_depth", opts.MaxDepth).
		Int("limit", opts.Limit).
		Msg("Scanning directory for videos")

	info, err := os.Stat(dirPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("directory not found: %s", dirPath)
		}
		return nil, fmt.Errorf("failed to stat directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", dirPath)
	}

	// Absolute path for consistent depth calculation
	absPath, err := filepath.Abs(dirPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}
	baseDepth := strings.Count(absPath, string(os.PathSeparator))

	var videos []string
	err = filepath.WalkDir(absPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Error accessing path, skipping")
			return nil
		}

		if d.IsDir() {
			if opts.MaxDepth > 0 && path != absPath {
				if strings.Count(path, string(os.PathSeparator))-baseDepth >= opts.MaxDepth {
					return fs.SkipDir
				}
			}
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			target, err := os.Stat(path)
			if err != nil {
				log.Warn().Err(err).Str("path", path).Msg("Failed to resolve symlink, skipping")
				return nil
			}
			if target.IsDir() {
				log.Debug().Str("path", path).Msg("Skipping symlink to directory")
				return nil
			}
		}

		if !IsVideo(filepath.Ext(d.Name())) {
			return nil
		}
		videos = append(videos, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	sort.Strings(videos)
	if opts.Limit > 0 && len(videos) > opts.Limit {
		log.Info().Int("limit", opts.Limit).Int("found", len(videos)).Msg("Video limit reached")
		videos = videos[:opts.Limit]
	}

	log.Info().Int("count", len(videos)).Str("path", absPath).Msg("Directory scan complete")
	return videos, nil
}
