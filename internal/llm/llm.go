// Package llm abstracts the model providers an action graph can call.
// Providers are registered under the names model policies reference;
// middleware layers rate limiting, retries and logging around them.
package llm

import (
	"context"
	"errors"
)

// Request is one structured-output call. Temperature is optional; nil
// leaves the provider default in place.
type Request struct {
	Prompt      string
	Model       string
	Temperature *float64
}

// Meta describes where a response came from.
type Meta struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
	ID       string `json:"id,omitempty"`
}

// Response carries the raw model text. Callers parse it; providers only
// guarantee best effort toward JSON output (response MIME type or
// response_format hints where the API supports them).
type Response struct {
	Text string
	Meta Meta
}

// Provider executes prompts against one backing model API.
type Provider interface {
	Name() string
	Execute(ctx context.Context, req Request) (*Response, error)
	Close() error
}

// PermanentError marks a failure that retrying cannot fix, such as a
// rejected API key or a malformed request.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err so the retry middleware stops immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// ErrInvalidJSON reports that a provider returned text that does not
// parse as JSON despite the JSON response hint.
var ErrInvalidJSON = errors.New("llm: invalid JSON from model")
