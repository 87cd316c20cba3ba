// Package probe sends a request through every configured client and reports which ones answered.
package probe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gitlab.com/gitlab-org/httpwatch/client"
	"gitlab.com/gitlab-org/httpwatch/internal/command/readwriter"
	"gitlab.com/gitlab-org/httpwatch/internal/console"
)

// ErrProbeFailed is returned when at least one client did not answer successfully.
var ErrProbeFailed = errors.New("probe failed")

// Command probes every client of Set with a GET request for Path.
type Command struct {
	Set        *client.Set
	Path       string
	ReadWriter *readwriter.ReadWriter
}

// Execute prints one line per healthy client, then the failures framed as a warning. It fails when any
// client is unhealthy.
func (c *Command) Execute(ctx context.Context) error {
	var healthy, failures []string

	for _, result := range c.Set.Probe(ctx, c.Path) {
		switch {
		case result.Healthy():
			healthy = append(healthy, fmt.Sprintf("%v: OK (%d in %v)", result.Client, result.Status, result.Duration.Round(time.Millisecond)))
		case result.Err != nil:
			failures = append(failures, fmt.Sprintf("%v: FAILED - %v", result.Client, result.Err))
		default:
			failures = append(failures, fmt.Sprintf("%v: FAILED - status %d", result.Client, result.Status))
		}
	}

	console.DisplayInfoMessages(healthy, c.ReadWriter.Out)
	console.DisplayWarningMessages(failures, c.ReadWriter.Out)

	if len(failures) > 0 {
		return fmt.Errorf("%d of %d clients: %w", len(failures), len(c.Set.Names()), ErrProbeFailed)
	}

	return nil
}
