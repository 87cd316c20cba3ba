// Package registry keeps the middleware available to clients and decides which of them a client
// installs, and in which order.
package registry

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"gitlab.com/gitlab-org/httpwatch/internal/pipeline"
)

var (
	// ErrMissingAlias is returned for a registration without a name.
	ErrMissingAlias = errors.New("tagged middleware needs to have an alias")
	// ErrDuplicateRegistration is returned when a source registers the same alias twice.
	ErrDuplicateRegistration = errors.New("middleware alias already registered by this source")
)

// Descriptor describes a registered middleware.
type Descriptor struct {
	// Name is the alias clients use to include or exclude the middleware.
	Name string
	// SourceID identifies the component that registered the middleware.
	SourceID string
	// Priority orders middleware: higher priorities are installed first.
	Priority int

	Middleware pipeline.Middleware
}

// Tag is a single alias/priority pair a middleware is registered under.
type Tag struct {
	Alias    string
	Priority int
}

// Registry collects middleware registrations in the order they happen.
type Registry struct {
	mu          sync.Mutex
	descriptors []Descriptor
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{}
}

// Register adds m under every tag. A middleware may be registered under several aliases; the same
// alias may be used by different sources but only once per source.
func (r *Registry) Register(sourceID string, m pipeline.Middleware, tags ...Tag) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, tag := range tags {
		if tag.Alias == "" {
			return fmt.Errorf("register %q: %w", sourceID, ErrMissingAlias)
		}

		if r.has(tag.Alias, sourceID) {
			return fmt.Errorf("register %q as %q: %w", sourceID, tag.Alias, ErrDuplicateRegistration)
		}

		r.descriptors = append(r.descriptors, Descriptor{
			Name:       tag.Alias,
			SourceID:   sourceID,
			Priority:   tag.Priority,
			Middleware: m,
		})
	}

	return nil
}

// Descriptors returns the registrations in registration order.
func (r *Registry) Descriptors() []Descriptor {
	r.mu.Lock()
	defer r.mu.Unlock()

	return slices.Clone(r.descriptors)
}

// Ordered returns the registrations sorted with BuildOrdered.
func (r *Registry) Ordered() ([]Descriptor, error) {
	return BuildOrdered(r.Descriptors())
}

func (r *Registry) has(alias, sourceID string) bool {
	for _, d := range r.descriptors {
		if d.Name == alias && d.SourceID == sourceID {
			return true
		}
	}

	return false
}

// BuildOrdered sorts descriptors by priority, highest first. Descriptors sharing a priority keep their
// registration order.
func BuildOrdered(descriptors []Descriptor) ([]Descriptor, error) {
	for _, d := range descriptors {
		if d.Name == "" {
			return nil, fmt.Errorf("middleware %q: %w", d.SourceID, ErrMissingAlias)
		}
	}

	ordered := slices.Clone(descriptors)
	slices.SortStableFunc(ordered, func(a, b Descriptor) int {
		return b.Priority - a.Priority
	})

	return ordered, nil
}
