package model

import "time"

// LogLevel classifies a bot log entry.
type LogLevel string

const (
	LogInfo  LogLevel = "INFO"
	LogWarn  LogLevel = "WARN"
	LogError LogLevel = "ERROR"
	LogTrade LogLevel = "TRADE"
)

// LogEntry is one line of the bot's bounded activity log, surfaced to the
// dashboard. Distinct from process logging; this is operator-facing history.
type LogEntry struct {
	TS      time.Time `json:"ts"`
	Level   LogLevel  `json:"level"`
	Message string    `json:"message"`
}
