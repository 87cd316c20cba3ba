package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/hashicorp/go-retryablehttp"

	"gitlab.com/gitlab-org/httpwatch/internal/pipeline"
	"gitlab.com/gitlab-org/httpwatch/internal/telemetry"
)

// APIError represents an API error
type APIError struct {
	Msg string
}

func (e *APIError) Error() string {
	return e.Msg
}

// ErrorResponse represents an error response from the API
type ErrorResponse struct {
	Message string `json:"message"`
}

// Result is the outcome of an asynchronous request.
type Result struct {
	Response *http.Response
	Err      error
}

// Client is a named client with its own resolved pipeline.
type Client struct {
	name       string
	httpClient *HTTPClient
	stages     []string
	logger     telemetry.EntryLogger
}

// Name returns the configured name of the client.
func (c *Client) Name() string {
	return c.name
}

// Host returns the base URL requests are sent to.
func (c *Client) Host() string {
	return c.httpClient.Host
}

// Stages returns the names of the pipeline stages from the outermost to the innermost one.
func (c *Client) Stages() []string {
	return c.stages
}

// Logger returns the entry logger of the client. Clients without logging return telemetry.Discard.
func (c *Client) Logger() telemetry.EntryLogger {
	return c.logger
}

// AppendPath joins path to the client's base URL.
func (c *Client) AppendPath(path string) string {
	return appendPath(c.httpClient.Host, path)
}

// Get sends a GET request to path and fails with an *APIError on error statuses.
func (c *Client) Get(ctx context.Context, path string) (*http.Response, error) {
	return c.Do(ctx, http.MethodGet, path, nil)
}

// Post sends data as JSON to path and fails with an *APIError on error statuses.
func (c *Client) Post(ctx context.Context, path string, data any) (*http.Response, error) {
	return c.Do(ctx, http.MethodPost, path, data)
}

// Do executes a request with the given method, path, and data
func (c *Client) Do(ctx context.Context, method, path string, data any) (*http.Response, error) {
	request, err := newRequest(ctx, method, c.httpClient.Host, path, data)
	if err != nil {
		return nil, err
	}

	if data != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	response, respErr := c.httpClient.RetryableHTTP.Do(request)
	if err := parseError(response, respErr); err != nil {
		return nil, err
	}

	return response, nil
}

// DoRaw sends request through the pipeline with opts and returns the raw outcome: error statuses
// are only errors when opts.HTTPErrors or the client's http_errors setting is enabled. The error of
// the last attempt is returned as the pipeline produced it, without the *url.Error added by
// http.Client.
func (c *Client) DoRaw(request *http.Request, opts pipeline.Options) (*http.Response, error) {
	retryableRequest, err := retryablehttp.FromRequest(request.WithContext(pipeline.WithOptions(request.Context(), opts)))
	if err != nil {
		return nil, err
	}

	response, err := c.httpClient.RetryableHTTP.Do(retryableRequest)

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}

	return response, err
}

// DoAsync sends request on its own goroutine. The returned channel receives exactly one Result.
func (c *Client) DoAsync(request *http.Request, opts pipeline.Options) <-chan Result {
	result := make(chan Result, 1)

	go func() {
		response, err := c.DoRaw(request, opts)
		result <- Result{Response: response, Err: err}
	}()

	return result
}

func newRequest(ctx context.Context, method, host, path string, data any) (*retryablehttp.Request, error) {
	var jsonReader io.Reader
	if data != nil {
		jsonData, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}

		jsonReader = bytes.NewReader(jsonData)
	}

	request, err := retryablehttp.NewRequestWithContext(ctx, method, appendPath(host, path), jsonReader)
	if err != nil {
		return nil, err
	}

	return request, nil
}

func parseError(resp *http.Response, respErr error) error {
	if failed := pipeline.ResponseFromError(respErr); resp == nil && failed != nil {
		resp, respErr = failed, nil
	}

	if resp == nil || respErr != nil {
		return &APIError{"Internal API unreachable"}
	}

	if resp.StatusCode >= 200 && resp.StatusCode <= 399 {
		return nil
	}
	defer func() { _ = resp.Body.Close() }()
	parsedResponse := &ErrorResponse{}

	if err := json.NewDecoder(resp.Body).Decode(parsedResponse); err != nil {
		return &APIError{fmt.Sprintf("Internal API error (%v)", resp.StatusCode)}
	}
	return &APIError{parsedResponse.Message}
}
