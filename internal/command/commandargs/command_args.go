// Package commandargs parses the positional arguments of the httpwatch binary.
package commandargs

import (
	"errors"
	"fmt"
)

// CommandType names a command of the httpwatch binary.
type CommandType string

// Command types.
const (
	Probe  CommandType = "probe"
	Report CommandType = "report"
	Serve  CommandType = "serve"
)

// ErrUnknownCommand is returned for a command name that is not a CommandType.
var ErrUnknownCommand = errors.New("unknown command")

// Args are the parsed positional arguments: the command and whatever follows it.
type Args struct {
	CommandType CommandType
	Arguments   []string
}

// Parse reads the command from the first argument. Without arguments the probe command runs.
func Parse(arguments []string) (*Args, error) {
	if len(arguments) == 0 {
		return &Args{CommandType: Probe, Arguments: []string{}}, nil
	}

	commandType := CommandType(arguments[0])
	switch commandType {
	case Probe, Report, Serve:
	default:
		return nil, fmt.Errorf("%q: %w", arguments[0], ErrUnknownCommand)
	}

	return &Args{CommandType: commandType, Arguments: arguments[1:]}, nil
}

// Argument returns the positional argument at index i after the command, or fallback.
func (a *Args) Argument(i int, fallback string) string {
	if i < len(a.Arguments) && a.Arguments[i] != "" {
		return a.Arguments[i]
	}

	return fallback
}
