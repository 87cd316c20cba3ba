package config

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"gitlab.com/gitlab-org/httpwatch/internal/telemetry"
)

// LogMode is a client logging setting. It accepts a boolean or a mode name.
type LogMode struct {
	mode telemetry.DetailMode
}

// NewLogMode returns a LogMode set to mode.
func NewLogMode(mode telemetry.DetailMode) *LogMode {
	return &LogMode{mode: mode}
}

// Mode returns the detail mode.
func (m *LogMode) Mode() telemetry.DetailMode {
	return m.mode
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (m *LogMode) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: %w", value.Line, ErrUnknownLogMode)
	}

	mode, err := telemetry.ParseDetailMode(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	m.mode = mode

	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (m LogMode) MarshalYAML() (any, error) {
	return m.mode.String(), nil
}

// MiddlewareList is the middleware tag of a client. It accepts a list of aliases or a single string
// of space separated aliases.
type MiddlewareList []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *MiddlewareList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		*l = MiddlewareList{value.Value}
		return nil
	case yaml.SequenceNode:
		var aliases []string
		if err := value.Decode(&aliases); err != nil {
			return err
		}
		*l = aliases
		return nil
	default:
		return fmt.Errorf("line %d: middleware must be a string or a list", value.Line)
	}
}
