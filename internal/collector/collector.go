// Package collector aggregates the entries recorded by request loggers into per-context groups and
// keeps the counters shown in reports.
package collector

import (
	"net/http"
	"slices"
	"sync"

	"gitlab.com/gitlab-org/httpwatch/internal/metrics"
	"gitlab.com/gitlab-org/httpwatch/internal/telemetry"
)

// Source is a logger the collector drains.
type Source interface {
	Drain() []telemetry.LogEntry
}

// LogGroup holds the entries collected for one context label.
type LogGroup struct {
	Label   string
	Entries []telemetry.LogEntry
}

// Collector is safe for concurrent use.
type Collector struct {
	slowThreshold float64

	mu              sync.Mutex
	sources         []Source
	groups          map[string]*LogGroup
	order           []string
	totalTime       float64
	hasSlowResponse bool
}

// New creates a collector. A transfer time of at least slowThreshold seconds marks a slow response;
// a threshold <= 0 disables the check.
func New(slowThreshold float64, sources ...Source) *Collector {
	c := &Collector{
		slowThreshold: slowThreshold,
		sources:       slices.Clone(sources),
	}
	c.Reset()

	return c
}

// Register adds a logger to drain on every collection.
func (c *Collector) Register(source Source) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sources = append(c.sources, source)
}

// Collect moves the entries of every logger into the group for label.
func (c *Collector) Collect(label string) {
	c.mu.Lock()
	sources := slices.Clone(c.sources)
	c.mu.Unlock()

	var entries []telemetry.LogEntry
	for _, source := range sources {
		entries = append(entries, source.Drain()...)
	}

	slow := 0
	if c.slowThreshold > 0 {
		for _, entry := range entries {
			if entry.TransferTime != nil && *entry.TransferTime >= c.slowThreshold {
				slow++
			}
		}
	}

	for _, entry := range entries {
		metrics.EntriesRecorded.WithLabelValues(string(entry.Level)).Inc()
	}
	metrics.SlowResponses.Add(float64(slow))
	metrics.Collections.Inc()

	c.mu.Lock()
	defer c.mu.Unlock()

	if slow > 0 {
		c.hasSlowResponse = true
	}

	group, ok := c.groups[label]
	if !ok {
		group = &LogGroup{Label: label}
		c.groups[label] = group
		c.order = append(c.order, label)
	}
	group.Entries = append(group.Entries, entries...)
}

// AddTotalTime adds seconds to the total transfer time.
func (c *Collector) AddTotalTime(seconds float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.totalTime += seconds
}

// TotalTime returns the accumulated transfer time in seconds.
func (c *Collector) TotalTime() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.totalTime
}

// HasSlowResponse reports whether any collected entry was slow.
func (c *Collector) HasSlowResponse() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.hasSlowResponse
}

// Groups returns copies of the log groups in creation order.
func (c *Collector) Groups() []LogGroup {
	c.mu.Lock()
	defer c.mu.Unlock()

	groups := make([]LogGroup, 0, len(c.order))
	for _, label := range c.order {
		group := c.groups[label]
		groups = append(groups, LogGroup{Label: group.Label, Entries: slices.Clone(group.Entries)})
	}

	return groups
}

// Entries returns every collected entry, group by group.
func (c *Collector) Entries() []telemetry.LogEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.entries()
}

// CallCount returns the number of collected entries.
func (c *Collector) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries())
}

// ErrorCount returns the number of collected entries logged at error level.
func (c *Collector) ErrorCount() int {
	return len(c.ErrorsByLevel(telemetry.LevelError))
}

// ErrorsByLevel returns the collected entries logged at level.
func (c *Collector) ErrorsByLevel(level telemetry.Level) []telemetry.LogEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	var matching []telemetry.LogEntry
	for _, entry := range c.entries() {
		if entry.Level == level {
			matching = append(matching, entry)
		}
	}

	return matching
}

// Reset discards the collected groups and counters. Registered loggers are kept.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.groups = map[string]*LogGroup{}
	c.order = nil
	c.totalTime = 0
	c.hasSlowResponse = false
}

// Middleware collects the entries recorded while serving each inbound request into a group labelled
// with the request path.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer c.Collect(r.URL.Path)

		next.ServeHTTP(w, r)
	})
}

func (c *Collector) entries() []telemetry.LogEntry {
	var entries []telemetry.LogEntry
	for _, label := range c.order {
		entries = append(entries, c.groups[label].Entries...)
	}

	return entries
}
