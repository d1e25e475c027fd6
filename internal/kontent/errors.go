package kontent

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
)

// Sentinel errors for CMS API calls.
var (
	ErrNoResponse        = errors.New("no response received from server")
	ErrMalformedResponse = errors.New("malformed response")
	ErrNotFound          = errors.New("resource not found")
)

var (
	messagePath   = jp.MustParseString("$..message")
	topMessage    = jp.MustParseString("$.message")
	requestIDPath = jp.MustParseString("$.request_id")
	errorCodePath = jp.MustParseString("$.error_code")
)

// APIError is a structured rejection returned by the CMS. Messages holds every
// message found in the body, including nested validation errors.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	RequestID  string
	ErrorCode  int
	Message    string
	Messages   []string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("%s %s: %d - %s", e.Method, e.Path, e.StatusCode, msg)
}

// Is maps 404 responses to ErrNotFound.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// Text joins all messages of the error body for pattern matching.
func (e *APIError) Text() string {
	if len(e.Messages) == 0 {
		return e.Message
	}
	return strings.Join(e.Messages, "; ")
}

// Rejected reports whether the CMS refused the request (4xx).
func (e *APIError) Rejected() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// IsRejection reports whether err carries a 4xx APIError.
func IsRejection(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Rejected()
}

// ShapeError reports a list payload whose envelope was not recognized.
type ShapeError struct {
	Resource string
	Got      string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("invalid response format from %s API: expected array, got %s", e.Resource, e.Got)
}

func (e *ShapeError) Unwrap() error {
	return ErrMalformedResponse
}

func parseAPIError(method, path string, status int, body []byte) *APIError {
	apiErr := &APIError{
		Method:     method,
		Path:       path,
		StatusCode: status,
	}

	data, err := oj.Parse(body)
	if err != nil {
		apiErr.Message = strings.TrimSpace(string(body))
		if apiErr.Message != "" {
			apiErr.Messages = []string{apiErr.Message}
		}
		return apiErr
	}

	seen := make(map[string]bool)
	for _, v := range append(topMessage.Get(data), messagePath.Get(data)...) {
		if s, ok := v.(string); ok && s != "" && !seen[s] {
			seen[s] = true
			apiErr.Messages = append(apiErr.Messages, s)
		}
	}
	if len(apiErr.Messages) > 0 {
		apiErr.Message = apiErr.Messages[0]
	}

	if ids := requestIDPath.Get(data); len(ids) > 0 {
		if s, ok := ids[0].(string); ok {
			apiErr.RequestID = s
		}
	}
	if codes := errorCodePath.Get(data); len(codes) > 0 {
		switch c := codes[0].(type) {
		case int64:
			apiErr.ErrorCode = int(c)
		case float64:
			apiErr.ErrorCode = int(c)
		}
	}

	return apiErr
}
