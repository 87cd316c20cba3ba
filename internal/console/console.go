// Package console writes framed messages for people reading command output.
package console

import (
	"fmt"
	"io"
	"strings"
)

const prefix = "httpwatch: "

// DisplayWarningMessages writes messages framed by a divider. Blank messages are skipped; nothing is
// written when every message is blank.
func DisplayWarningMessages(messages []string, out io.Writer) {
	lines := nonBlank(messages)
	if len(lines) == 0 {
		return
	}

	fmt.Fprint(out, divider())
	for _, line := range lines {
		fmt.Fprint(out, formatLine(line))
	}
	fmt.Fprint(out, divider())
}

// DisplayInfoMessages writes messages without framing. Blank messages are skipped.
func DisplayInfoMessages(messages []string, out io.Writer) {
	for _, line := range nonBlank(messages) {
		fmt.Fprint(out, formatLine(line))
	}
}

func nonBlank(messages []string) []string {
	lines := make([]string, 0, len(messages))
	for _, msg := range messages {
		if strings.TrimSpace(msg) != "" {
			lines = append(lines, msg)
		}
	}

	return lines
}

func formatLine(message string) string {
	return prefix + message + "\n"
}

func divider() string {
	return formatLine(strings.Repeat("=", 72))
}
