package adaptors

import "strings"

type LogLevel string

const (
	Trace LogLevel = "trace"
	Debug LogLevel = "debug"
	Info  LogLevel = "info"
	Warn  LogLevel = "warn"
	Error LogLevel = "error"
)

// ParseLogLevel normalises s and reports whether it names a known level.
func ParseLogLevel(s string) (LogLevel, bool) {
	l := LogLevel(strings.ToLower(strings.TrimSpace(s)))
	switch l {
	case Trace, Debug, Info, Warn, Error:
		return l, true
	}
	return l, false
}
