// Package collect moves the recorded entries into a labelled group and prints or publishes the
// resulting report.
package collect

import (
	"context"
	"encoding/json"

	"gitlab.com/gitlab-org/httpwatch/internal/collector"
	"gitlab.com/gitlab-org/httpwatch/internal/command/readwriter"
	"gitlab.com/gitlab-org/httpwatch/internal/report"
)

// Command collects the entries recorded so far under Label.
type Command struct {
	Collector  *collector.Collector
	Label      string
	Publisher  *report.Publisher
	ReadWriter *readwriter.ReadWriter
}

// Execute writes the report as indented JSON and publishes it when a publisher is set.
func (c *Command) Execute(ctx context.Context) error {
	c.Collector.Collect(c.Label)
	r := report.Build(c.Collector)

	encoder := json.NewEncoder(c.ReadWriter.Out)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(r); err != nil {
		return err
	}

	if c.Publisher == nil {
		return nil
	}

	return c.Publisher.Publish(ctx, r)
}
