package telemetry

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownDetailMode is returned when a detail mode name cannot be parsed.
var ErrUnknownDetailMode = errors.New("unknown logging mode")

// DetailMode controls how much of a request/response pair is captured. Each mode captures everything
// the previous one does.
type DetailMode int

// Detail modes.
const (
	DetailNone DetailMode = iota
	DetailRequest
	DetailRequestAndResponseHeaders
	DetailRequestAndResponse
)

var detailModeNames = map[DetailMode]string{
	DetailNone:                      "none",
	DetailRequest:                   "request",
	DetailRequestAndResponseHeaders: "request_and_response_headers",
	DetailRequestAndResponse:        "request_and_response",
}

func (m DetailMode) String() string {
	if name, ok := detailModeNames[m]; ok {
		return name
	}

	return fmt.Sprintf("DetailMode(%d)", int(m))
}

// ParseDetailMode parses a mode name. "true" and "false" are accepted as shorthands for the full mode
// and for no logging.
func ParseDetailMode(value string) (DetailMode, error) {
	name := strings.ToLower(strings.TrimSpace(value))

	switch name {
	case "true", "1":
		return DetailRequestAndResponse, nil
	case "false", "0":
		return DetailNone, nil
	}

	for mode, modeName := range detailModeNames {
		if modeName == name {
			return mode, nil
		}
	}

	return DetailNone, fmt.Errorf("%q: %w", value, ErrUnknownDetailMode)
}
