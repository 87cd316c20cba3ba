package registry

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/mattn/go-shellwords"
)

var (
	// ErrMixedFilter is returned when a client both includes and excludes middleware.
	ErrMixedFilter = errors.New("you cannot mix whitelisting and blacklisting of middleware at the same time")
	// ErrClientTagCardinality is returned when a client is tagged more than once.
	ErrClientTagCardinality = errors.New("clients should use a single middleware tag")
)

// FilterSpec selects the middleware a client installs. At most one of the lists may be set; with
// neither set every available middleware applies.
type FilterSpec struct {
	Whitelist []string
	Blacklist []string
}

// ParseFilterSpec builds a FilterSpec from aliases. An alias prefixed with "!" is excluded, any other
// alias is included. Each argument may hold several aliases separated by spaces, as in
// "user_agent !jwt_auth".
func ParseFilterSpec(aliases ...string) (FilterSpec, error) {
	var spec FilterSpec

	for _, item := range aliases {
		words, err := shellwords.Parse(item)
		if err != nil {
			return FilterSpec{}, fmt.Errorf("parse middleware list %q: %w", item, err)
		}

		for _, word := range words {
			if name, ok := strings.CutPrefix(word, "!"); ok {
				if name != "" && !slices.Contains(spec.Blacklist, name) {
					spec.Blacklist = append(spec.Blacklist, name)
				}
				continue
			}

			if !slices.Contains(spec.Whitelist, word) {
				spec.Whitelist = append(spec.Whitelist, word)
			}
		}
	}

	return spec, spec.Validate()
}

// Validate rejects specs that both include and exclude middleware.
func (s FilterSpec) Validate() error {
	if len(s.Whitelist) > 0 && len(s.Blacklist) > 0 {
		return ErrMixedFilter
	}

	return nil
}

// IsEmpty reports whether the spec selects everything.
func (s FilterSpec) IsEmpty() bool {
	return len(s.Whitelist) == 0 && len(s.Blacklist) == 0
}

// FilterForClient keeps the descriptors selected by spec, preserving their order.
func FilterForClient(available []Descriptor, spec FilterSpec) ([]Descriptor, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	if spec.IsEmpty() {
		return available, nil
	}

	filtered := make([]Descriptor, 0, len(available))
	for _, d := range available {
		listed := slices.Contains(spec.Whitelist, d.Name) || slices.Contains(spec.Blacklist, d.Name)
		if listed == (len(spec.Whitelist) > 0) {
			filtered = append(filtered, d)
		}
	}

	return filtered, nil
}

// ClientTags records the filter tag of each client and rejects clients tagged more than once.
type ClientTags struct {
	specs map[string]FilterSpec
	order []string
}

// NewClientTags returns an empty tag set.
func NewClientTags() *ClientTags {
	return &ClientTags{specs: map[string]FilterSpec{}}
}

// Tag assigns spec to the client called name.
func (c *ClientTags) Tag(name string, spec FilterSpec) error {
	if _, ok := c.specs[name]; ok {
		return fmt.Errorf("client %q: %w", name, ErrClientTagCardinality)
	}

	if err := spec.Validate(); err != nil {
		return fmt.Errorf("client %q: %w", name, err)
	}

	c.specs[name] = spec
	c.order = append(c.order, name)

	return nil
}

// Spec returns the spec of a client and whether it was tagged.
func (c *ClientTags) Spec(name string) (FilterSpec, bool) {
	spec, ok := c.specs[name]
	return spec, ok
}

// Clients returns the tagged client names in tagging order.
func (c *ClientTags) Clients() []string {
	return slices.Clone(c.order)
}

// Resolve returns the middleware a tagged client installs, in installation order.
func (c *ClientTags) Resolve(name string, ordered []Descriptor) ([]Descriptor, error) {
	spec, ok := c.specs[name]
	if !ok {
		return ordered, nil
	}

	resolved, err := FilterForClient(ordered, spec)
	if err != nil {
		return nil, fmt.Errorf("client %q: %w", name, err)
	}

	return resolved, nil
}
