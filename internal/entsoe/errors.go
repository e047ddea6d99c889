package entsoe

import (
	"fmt"
	"time"
)

// ConnectionError represents a failure to establish or use a network
// connection to the ENTSO-E API.
type ConnectionError struct {
	URL string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection failed for %s: %v", e.URL, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// IsTransient returns true as connection failures are retryable
func (e *ConnectionError) IsTransient() bool { return true }

// TimeoutError represents a timeout in one phase of an HTTP exchange
type TimeoutError struct {
	Phase string // "connect", "read", "write", "pool"
	URL   string
	Err   error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timeout for %s: %v", e.Phase, e.URL, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// IsTransient returns true as timeouts are retryable
func (e *TimeoutError) IsTransient() bool { return true }

// HTTPError represents a non-success HTTP response from the API.
// Retryable is set at classification time: 429, 502, 503 and 504 are
// transient, every other non-2xx status is fatal.
type HTTPError struct {
	StatusCode int
	Status     string
	URL        string
	Body       string
	Retryable  bool
	RetryAfter time.Duration // from the Retry-After header, if present
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http %d (%s) from %s", e.StatusCode, e.Status, e.URL)
}

// IsTransient reports whether the response status is retryable
func (e *HTTPError) IsTransient() bool { return e.Retryable }

// IsRateLimited reports whether the API rejected the request for quota reasons
func (e *HTTPError) IsRateLimited() bool { return e.StatusCode == 429 }

// DetectionFailure classifies why document type detection failed
type DetectionFailure string

const (
	EmptyContent            DetectionFailure = "empty_content"
	NoRootElement           DetectionFailure = "no_root_element"
	UnsupportedDocumentType DetectionFailure = "unsupported_document_type"
	DetectionFailed         DetectionFailure = "detection_failed"
)

// DocumentTypeError represents a failure to classify a raw XML payload
type DocumentTypeError struct {
	Kind   DetectionFailure
	Detail string
	Err    error
}

func (e *DocumentTypeError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("document detection failed (%s): %s", e.Kind, e.Detail)
	}
	return fmt.Sprintf("document detection failed (%s)", e.Kind)
}

func (e *DocumentTypeError) Unwrap() error { return e.Err }

func (e *DocumentTypeError) IsTransient() bool { return false }

// ParsingError represents a structural problem in a fetched document.
// Field names the offending element; Payload optionally carries the raw
// text for diagnostics.
type ParsingError struct {
	Document string
	Field    string
	Detail   string
	Payload  string
	Err      error
}

func (e *ParsingError) Error() string {
	return fmt.Sprintf("parsing %s: field %q: %s", e.Document, e.Field, e.Detail)
}

func (e *ParsingError) Unwrap() error { return e.Err }

func (e *ParsingError) IsTransient() bool { return false }

// UnknownCodeError represents a lookup miss in one of the closed code
// registries. A miss means the upstream API introduced an unlisted code and
// must fail loudly rather than default silently.
type UnknownCodeError struct {
	Category string
	Code     string
}

func (e *UnknownCodeError) Error() string {
	return fmt.Sprintf("unknown %s code: %q", e.Category, e.Code)
}

func (e *UnknownCodeError) IsTransient() bool { return false }

// ValidationError represents a request-builder constraint violation
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) IsTransient() bool { return false }

// ClientError wraps a detection or parser failure at the client level,
// preserving the original cause for callers that branch on it.
type ClientError struct {
	Op  string
	URL string
	Err error
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("client %s failed: %v", e.Op, e.Err)
}

func (e *ClientError) Unwrap() error { return e.Err }

func (e *ClientError) IsTransient() bool {
	if t, ok := e.Err.(interface{ IsTransient() bool }); ok {
		return t.IsTransient()
	}
	return false
}
