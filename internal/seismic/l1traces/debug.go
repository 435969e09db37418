package l1traces

import (
	"io"
	"log"
)

var diagLogger *log.Logger

// SetLogWriters configures the diagnostic stream for the l1traces package.
// Pass nil to disable it.
func SetLogWriters(diag io.Writer) {
	if diag == nil {
		diagLogger = nil
		return
	}
	diagLogger = log.New(diag, "[l1traces] ", log.LstdFlags|log.Lmicroseconds)
}

// diagf logs to the diag stream (input sizing, ignored trailing data).
func diagf(format string, args ...interface{}) {
	if diagLogger != nil {
		diagLogger.Printf(format, args...)
	}
}
