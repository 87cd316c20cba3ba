// Package pipeline provides the handler chain outgoing requests travel through: a Handler interface,
// Middleware that wraps handlers, a named Stack used to assemble them and the per-request Options bag
// that stages use to pass data to each other.
package pipeline

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Handler executes a single request attempt.
type Handler interface {
	Handle(req *http.Request, opts Options) (*http.Response, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(req *http.Request, opts Options) (*http.Response, error)

// Handle calls f(req, opts).
func (f HandlerFunc) Handle(req *http.Request, opts Options) (*http.Response, error) {
	return f(req, opts)
}

// Middleware wraps a handler with additional behaviour.
type Middleware interface {
	Wrap(next Handler) Handler
}

// MiddlewareFunc adapts a function to the Middleware interface.
type MiddlewareFunc func(next Handler) Handler

// Wrap calls f(next).
func (f MiddlewareFunc) Wrap(next Handler) Handler {
	return f(next)
}

// TransferStats describes a finished transfer. It is handed to Options.OnStats once per attempt,
// whether the attempt succeeded or not.
type TransferStats struct {
	Request      *http.Request
	Response     *http.Response
	Err          error
	TransferTime time.Duration
}

// Options is the per-request option bag. It is passed by value so a stage can change it for the stages
// below it without affecting the caller.
type Options struct {
	// RequestID is the correlation id assigned by the log stage.
	RequestID string
	// OnStats is invoked by the terminal handler when the transfer is finished.
	OnStats func(TransferStats)
	// HTTPErrors turns responses with a status code >= 400 into a *RequestError.
	HTTPErrors bool
}

// RequestError is returned when a request failed after the transport produced a response,
// for example when HTTPErrors is enabled and the server answered with an error status.
type RequestError struct {
	Request  *http.Request
	Response *http.Response
	Err      error
}

func (e *RequestError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}

	if e.Response != nil {
		return fmt.Sprintf("%s %s: unexpected status %s", e.Request.Method, e.Request.URL.Redacted(), e.Response.Status)
	}

	return "request failed"
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// ResponseFromError extracts the response carried by a failure, if any.
func ResponseFromError(err error) *http.Response {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Response
	}

	return nil
}
