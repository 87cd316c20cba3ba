package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"gitlab.com/gitlab-org/labkit/correlation"
	"gitlab.com/gitlab-org/labkit/fields"
	"gitlab.com/gitlab-org/labkit/v2/log"
)

const (
	defaultPublishTries   = 3
	defaultPublishTimeout = 10 * time.Second
)

// Publisher pushes reports to a remote endpoint, retrying transient failures.
type Publisher struct {
	url        string
	client     *http.Client
	newBackOff func() backoff.BackOff
	maxTries   uint
}

// PublisherOpt configures a Publisher.
type PublisherOpt func(*Publisher)

// WithHTTPClient sets the client used to send reports.
func WithHTTPClient(client *http.Client) PublisherOpt {
	return func(p *Publisher) { p.client = client }
}

// WithBackOff sets the policy between attempts. newBackOff is called once per Publish.
func WithBackOff(newBackOff func() backoff.BackOff, maxTries uint) PublisherOpt {
	return func(p *Publisher) {
		p.newBackOff = newBackOff
		p.maxTries = maxTries
	}
}

// NewPublisher creates a publisher posting reports to url.
func NewPublisher(url string, opts ...PublisherOpt) *Publisher {
	p := &Publisher{
		url: url,
		client: &http.Client{
			Transport: correlation.NewInstrumentedRoundTripper(http.DefaultTransport),
			Timeout:   defaultPublishTimeout,
		},
		newBackOff: func() backoff.BackOff { return backoff.NewExponentialBackOff() },
		maxTries:   defaultPublishTries,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Publish posts r as JSON. Server errors and transport failures are retried; any other status
// >= 400 fails immediately.
func (p *Publisher) Publish(ctx context.Context, r *Report) error {
	body, err := json.Marshal(r)
	if err != nil {
		return err
	}

	operation := func() (int, error) {
		request, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
		if err != nil {
			return 0, backoff.Permanent(err)
		}
		request.Header.Set("Content-Type", "application/json")

		response, err := p.client.Do(request)
		if err != nil {
			return 0, err
		}
		defer func() { _ = response.Body.Close() }()

		switch {
		case response.StatusCode >= http.StatusInternalServerError:
			return response.StatusCode, fmt.Errorf("publish report: unexpected status %s", response.Status)
		case response.StatusCode >= http.StatusBadRequest:
			return response.StatusCode, backoff.Permanent(fmt.Errorf("publish report: unexpected status %s", response.Status))
		}

		return response.StatusCode, nil
	}

	logger := log.New()
	notify := func(err error, wait time.Duration) {
		logger.WarnContext(ctx, "retrying report publication",
			slog.String(fields.ErrorMessage, err.Error()),
			slog.Duration("wait", wait),
		)
	}

	status, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(p.newBackOff()),
		backoff.WithMaxTries(p.maxTries),
		backoff.WithNotify(notify),
	)
	if err != nil {
		return err
	}

	ctx = log.WithFields(ctx, slog.String("url", p.url), slog.Int("status", status))
	logger.InfoContext(ctx, "published report", slog.Int("groups", len(r.Groups)))

	return nil
}
