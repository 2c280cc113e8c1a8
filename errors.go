package nespreso

import (
	"errors"
	"fmt"
)

// Kind classifies the failure modes of the client.
type Kind int

const (
	// KindInput marks malformed or mismatched arguments.
	KindInput Kind = iota + 1
	// KindNetwork marks connection failures, timeouts and non-2xx responses.
	KindNetwork
	// KindDependency marks a requested capability that is not available.
	KindDependency
	// KindFilesystem marks failures writing results to disk.
	KindFilesystem
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindNetwork:
		return "network"
	case KindDependency:
		return "dependency"
	case KindFilesystem:
		return "filesystem"
	}
	return "unknown"
}

// Error represents a client error with a kind and, for network errors,
// the HTTP status code received (0 if the request never got a response).
type Error struct {
	Kind       Kind
	Message    string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches copies made with WithErr or WithStatus against the package
// sentinels, so callers can use errors.Is on returned errors.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

// WithErr returns a copy of the error carrying err as its cause.
func (e *Error) WithErr(err error) *Error {
	return &Error{Kind: e.Kind, Message: e.Message, StatusCode: e.StatusCode, Err: err}
}

// WithStatus returns a copy of the error carrying the HTTP status code
// received from the server.
func (e *Error) WithStatus(status int) *Error {
	return &Error{Kind: e.Kind, Message: e.Message, StatusCode: status, Err: e.Err}
}

var (
	ErrEmptyInput            = &Error{Kind: KindInput, Message: "latitude, longitude and date lists must not be empty"}
	ErrMismatchedInputs      = &Error{Kind: KindInput, Message: "latitude, longitude and date lists must have the same length"}
	ErrInvalidDate           = &Error{Kind: KindInput, Message: "invalid date, use YYYY-MM-DD"}
	ErrInvalidDateRange      = &Error{Kind: KindInput, Message: "end date precedes start date"}
	ErrInvalidBBox           = &Error{Kind: KindInput, Message: "invalid bounding box"}
	ErrInvalidResolution     = &Error{Kind: KindInput, Message: "resolution must be a positive number of degrees"}
	ErrInvalidBatchSize      = &Error{Kind: KindInput, Message: "batch size must be a positive integer"}
	ErrInvalidEndpoint       = &Error{Kind: KindInput, Message: "invalid endpoint URL"}
	ErrRequestFailed         = &Error{Kind: KindNetwork, Message: "request failed"}
	ErrUnexpectedStatus      = &Error{Kind: KindNetwork, Message: "unexpected response status"}
	ErrUnexpectedContentType = &Error{Kind: KindNetwork, Message: "unexpected response content type"}
	ErrMergeUnavailable      = &Error{Kind: KindDependency, Message: "no merge capability configured"}
	ErrMergeFailed           = &Error{Kind: KindDependency, Message: "merging batch files failed"}
	ErrWriteOutput           = &Error{Kind: KindFilesystem, Message: "could not write output file"}
	ErrCreateOutputDir       = &Error{Kind: KindFilesystem, Message: "could not create output directory"}
)

// IsKind reports whether err is a client error of the given kind.
func IsKind(err error, k Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == k
	}
	return false
}
