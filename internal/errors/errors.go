package errors

import (
	"fmt"
	"net/http"
)

// APIError is a request rejected before it reaches the ETL service: a body
// that is not an upload, or a client over its rate limit.
type APIError struct {
	StatusCode int         `json:"status_code"`
	ErrorCode  string      `json:"error_code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// Request error codes
const (
	CodeInvalidRequest       = "INVALID_REQUEST"
	CodeUnsupportedMediaType = "UNSUPPORTED_MEDIA_TYPE"
	CodeRateLimitExceeded    = "RATE_LIMIT_EXCEEDED"
)

// ErrRateLimitExceeded is returned to clients over the configured request rate.
var ErrRateLimitExceeded = &APIError{
	StatusCode: http.StatusTooManyRequests,
	ErrorCode:  CodeRateLimitExceeded,
	Message:    "Too many ETL requests, retry shortly",
}

// NewWithDetails creates a new APIError with additional details
func NewWithDetails(statusCode int, errorCode, message string, details interface{}) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
		Details:    details,
	}
}

// MissingContentType rejects an upload sent without a Content-Type header.
func MissingContentType(allowed []string) *APIError {
	return NewWithDetails(http.StatusBadRequest, CodeInvalidRequest,
		"Content-Type header is required",
		map[string]interface{}{"allowed": allowed})
}

// MalformedContentType rejects a Content-Type header that does not parse.
func MalformedContentType(contentType string, err error) *APIError {
	return NewWithDetails(http.StatusBadRequest, CodeInvalidRequest,
		fmt.Sprintf("Malformed Content-Type %q", contentType),
		err.Error())
}

// UnsupportedMediaType rejects a body whose media type the endpoint does not accept.
func UnsupportedMediaType(contentType, mediaType string, allowed []string) *APIError {
	return NewWithDetails(http.StatusUnsupportedMediaType, CodeUnsupportedMediaType,
		fmt.Sprintf("Unsupported content type %q", mediaType),
		map[string]interface{}{
			"content_type": contentType,
			"allowed":      allowed,
		})
}
