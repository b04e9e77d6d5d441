package jobs

import (
	"strings"

	"github.com/google/uuid"
)

// GenerateID creates a new random job ID with the given prefix.
// The prefix should include a trailing dash, e.g. "analysis-", "generation-".
func GenerateID(prefix string) string {
	return prefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// NormalizeID returns id with prefix prepended when it is missing, so that
// callers may refer to a job by its bare random part.
func NormalizeID(id, prefix string) string {
	id = strings.TrimSpace(id)
	if id == "" || strings.HasPrefix(id, prefix) {
		return id
	}
	return prefix + id
}
