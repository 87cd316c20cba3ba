// Package telemetry keeps correlation keyed log entries for outgoing requests.
package telemetry

import (
	"gitlab.com/gitlab-org/httpwatch/internal/snapshot"
)

// Level is the severity of a log entry, named after the syslog severities.
type Level string

// Log levels.
const (
	LevelDebug     Level = "debug"
	LevelInfo      Level = "info"
	LevelNotice    Level = "notice"
	LevelWarning   Level = "warning"
	LevelError     Level = "error"
	LevelCritical  Level = "critical"
	LevelAlert     Level = "alert"
	LevelEmergency Level = "emergency"
)

// LogEntry is the record kept for one request attempt. It is created before the request is sent and
// enriched once the outcome and the transfer time are known.
type LogEntry struct {
	ID           string             `json:"id"`
	Level        Level              `json:"level"`
	Message      string             `json:"message"`
	Request      *snapshot.Request  `json:"request,omitempty"`
	Response     *snapshot.Response `json:"response,omitempty"`
	TransferTime *float64           `json:"transfer_time,omitempty"`
	CurlCommand  *string            `json:"curl_command,omitempty"`
}
