// Package logging builds the phuslu/log loggers used across wl.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/phuslu/log"
)

// New returns a console logger writing to w at the named level. Unknown or
// empty levels fall back to info; a nil w means stderr.
func New(level string, w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	lvl := log.InfoLevel
	if s := strings.TrimSpace(level); s != "" {
		lvl = log.ParseLevel(strings.ToLower(s))
	}
	return &log.Logger{
		Level:      lvl,
		TimeFormat: "15:04:05",
		Writer: &log.ConsoleWriter{
			Writer:         w,
			ColorOutput:    false,
			QuoteString:    true,
			EndWithMessage: true,
		},
	}
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return &log.Logger{
		Level:  log.PanicLevel,
		Writer: log.IOWriter{Writer: io.Discard},
	}
}

// OrDiscard returns l, or a discarding logger when l is nil.
func OrDiscard(l *log.Logger) *log.Logger {
	if l == nil {
		return Discard()
	}
	return l
}
