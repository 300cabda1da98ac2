package llm

import (
	"errors"
	"fmt"
)

// ErrMissingAPIKey is returned by NewFromConfig when the configured
// environment variable holds no API key. Callers may treat it as "analyst
// disabled" rather than a hard failure.
var ErrMissingAPIKey = errors.New("llm: API key environment variable is empty")

// ResponseError indicates the model returned something that could not be
// turned into a Response: malformed JSON, or JSON missing required fields.
type ResponseError struct {
	Reason string
	Err    error
}

func (e *ResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("llm: invalid model response: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("llm: invalid model response: %s", e.Reason)
}

func (e *ResponseError) Unwrap() error { return e.Err }

// RequestError wraps a failed completion request with the model it targeted.
type RequestError struct {
	Model string
	Err   error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("llm: completion request to %q failed: %v", e.Model, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }
