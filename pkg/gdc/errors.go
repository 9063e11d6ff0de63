package gdc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrTimeout is matched by errors.Is for every *TimeoutError.
	ErrTimeout = errors.New("timeout")

	// ErrNoData is returned when an execution or export finished without
	// producing any data (status 204).
	ErrNoData = errors.New("no data")
)

// Error is a failed exchange with the platform API: either a transport
// failure (Err is set) or a non-success HTTP status.
type Error struct {
	Method     string
	URI        string
	StatusCode int
	Status     string
	RequestID  string

	// Fields of the platform error body, when present. Message has the
	// Parameters substituted.
	Message    string
	Parameters []any
	ErrorClass string
	Component  string
	ErrorCode  string

	Err error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", e.Method, e.URI)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": %d", e.StatusCode)
		if text := http.StatusText(e.StatusCode); text != "" {
			fmt.Fprintf(&b, " %s", text)
		}
	}
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if e.RequestID != "" {
		fmt.Fprintf(&b, " (request id %s)", e.RequestID)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// platformError is the error body returned by the API.
type platformError struct {
	Error struct {
		Message    string `json:"message"`
		Parameters []any  `json:"parameters"`
		ErrorClass string `json:"errorClass"`
		Component  string `json:"component"`
		RequestID  string `json:"requestId"`
		ErrorCode  string `json:"errorCode"`
	} `json:"error"`
}

// newResponseError builds an *Error from a non-success response.
func newResponseError(method, uri string, resp *Response) *Error {
	e := &Error{
		Method:     method,
		URI:        uri,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		RequestID:  resp.RequestID,
	}

	var body platformError
	if err := json.Unmarshal(resp.Body, &body); err == nil && body.Error.Message != "" {
		e.Message = FormatMessage(body.Error.Message, body.Error.Parameters)
		e.Parameters = body.Error.Parameters
		e.ErrorClass = body.Error.ErrorClass
		e.Component = body.Error.Component
		e.ErrorCode = body.Error.ErrorCode
		if body.Error.RequestID != "" {
			e.RequestID = body.Error.RequestID
		}
	} else if len(resp.Body) > 0 && len(resp.Body) < 512 && !json.Valid(resp.Body) {
		e.Message = strings.TrimSpace(string(resp.Body))
	}

	return e
}

// FormatMessage substitutes the %s placeholders of a platform message.
func FormatMessage(msg string, params []any) string {
	if len(params) == 0 || !strings.Contains(msg, "%") {
		return msg
	}
	return fmt.Sprintf(msg, params...)
}

// StatusCode returns the HTTP status of err if it wraps an *Error, otherwise
// zero.
func StatusCode(err error) int {
	var gdcErr *Error
	if errors.As(err, &gdcErr) {
		return gdcErr.StatusCode
	}
	return 0
}

// IsNotFound reports whether err wraps an *Error with status 404.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// TimeoutError is returned when an asynchronous task does not finish before
// the caller stopped waiting. The remote task is not cancelled.
type TimeoutError struct {
	URI     string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	if e.Timeout > 0 {
		return fmt.Sprintf("timeout after %s waiting for %s", e.Timeout, e.URI)
	}
	return fmt.Sprintf("stopped waiting for %s", e.URI)
}

func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout || target == context.DeadlineExceeded
}
