// Package logger builds the structured logger shared by the server components.
package logger

import (
	"io"

	"github.com/felixgeelhaar/bolt/v3"
)

// Format names accepted by New.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// New creates a logger writing to out.
// format selects the JSON handler for "json" and the console handler otherwise.
// If verbose is false, only warnings and errors are shown.
func New(out io.Writer, format string, verbose bool) *bolt.Logger {
	var l *bolt.Logger
	if format == FormatJSON {
		l = bolt.New(bolt.NewJSONHandler(out))
	} else {
		l = bolt.New(bolt.NewConsoleHandler(out))
	}

	if !verbose {
		l.SetLevel(bolt.WARN)
	}

	return l
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *bolt.Logger {
	return New(io.Discard, FormatJSON, false)
}
