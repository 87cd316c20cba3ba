package client

import (
	"context"
	"io"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"gitlab.com/gitlab-org/httpwatch/internal/pipeline"
)

const maxConcurrentProbes = 8

// ProbeResult is the outcome of a probe request.
type ProbeResult struct {
	Client   string        `json:"client"`
	URL      string        `json:"url"`
	Status   int           `json:"status,omitempty"`
	Duration time.Duration `json:"duration"`
	Err      error         `json:"-"`
}

// Healthy reports whether the probe got a response with a status below 400.
func (r ProbeResult) Healthy() bool {
	return r.Err == nil && r.Status > 0 && r.Status < http.StatusBadRequest
}

// Probe sends a GET request for path through the client's pipeline and discards the body.
func (c *Client) Probe(ctx context.Context, path string) ProbeResult {
	result := ProbeResult{Client: c.name, URL: c.AppendPath(path)}
	start := time.Now()

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, result.URL, nil)
	if err != nil {
		result.Err = err
		return result
	}

	response, err := c.DoRaw(request, pipeline.Options{})
	result.Duration = time.Since(start)
	if err != nil {
		result.Err = err
		if failed := pipeline.ResponseFromError(err); failed != nil {
			result.Status = failed.StatusCode
		}
		return result
	}
	defer func() { _ = response.Body.Close() }()

	_, _ = io.Copy(io.Discard, response.Body)
	result.Status = response.StatusCode

	return result
}

// Probe probes every client concurrently. Results are returned in client name order; a client that
// cannot be built is reported with its construction error.
func (s *Set) Probe(ctx context.Context, path string) []ProbeResult {
	results := make([]ProbeResult, len(s.names))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentProbes)

	for i, name := range s.names {
		g.Go(func() error {
			client, err := s.Client(name)
			if err != nil {
				results[i] = ProbeResult{Client: name, Err: err}
				return nil
			}

			results[i] = client.Probe(ctx, path)
			return nil
		})
	}

	_ = g.Wait()

	return results
}
