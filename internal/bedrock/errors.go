package bedrock

import (
	"errors"

	"github.com/aws/smithy-go"
)

// APIErrorCode returns the AWS error code carried by err, or "" when err
// did not come from an AWS API response.
func APIErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

// isConflict reports whether err is a ConflictException from any Bedrock
// service.
func isConflict(err error) bool {
	return APIErrorCode(err) == "ConflictException"
}
