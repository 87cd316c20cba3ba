// Package report exposes the collected request entries: as a JSON document, through an HTTP handler
// and by pushing them to a remote endpoint.
package report

import (
	"time"

	"gitlab.com/gitlab-org/httpwatch/internal/collector"
	"gitlab.com/gitlab-org/httpwatch/internal/telemetry"
)

// Report is the JSON view of the entries collected so far.
type Report struct {
	GeneratedAt     time.Time `json:"generated_at"`
	CallCount       int       `json:"call_count"`
	ErrorCount      int       `json:"error_count"`
	TotalTime       float64   `json:"total_time"`
	HasSlowResponse bool      `json:"has_slow_response"`
	Groups          []Group   `json:"groups"`
}

// Group is the JSON view of a collector.LogGroup.
type Group struct {
	Label   string               `json:"label"`
	Entries []telemetry.LogEntry `json:"entries"`
}

// Build takes a consistent view of c.
func Build(c *collector.Collector) *Report {
	groups := c.Groups()

	r := &Report{
		GeneratedAt:     time.Now().UTC(),
		ErrorCount:      c.ErrorCount(),
		TotalTime:       c.TotalTime(),
		HasSlowResponse: c.HasSlowResponse(),
		Groups:          make([]Group, 0, len(groups)),
	}

	for _, g := range groups {
		r.CallCount += len(g.Entries)
		r.Groups = append(r.Groups, Group{Label: g.Label, Entries: g.Entries})
	}

	return r
}
