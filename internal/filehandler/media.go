// Package filehandler finds local video files to submit for analysis.
package filehandler

import (
	"path/filepath"
	"strings"
)

// SupportedVideoExtensions lists the containers Data Automation accepts,
// mapped to their MIME types.
var SupportedVideoExtensions = map[string]string{
	".mp4": "video/mp4",
	".mov": "video/quicktime",
	".avi": "video/x-msvideo",
	".mkv": "video/x-matroska",
	".webm": "video/webm",
}

// IsVideo checks if the file extension is a supported video format.
func IsVideo(ext string) bool {
	_, ok := SupportedVideoExtensions[strings.ToLower(ext)]
	return ok
}

// VideoMIMEType returns the MIME type for path, or "" if it is not a
// supported video.
func VideoMIMEType(path string) string {
	return SupportedVideoExtensions[strings.ToLower(filepath.Ext(path))]
}
