// Package monitoring carries the process-wide run logger and progress
// reporting for long migrations.
package monitoring

import (
	"io"
	"log"
)

// Logf is the package-level run logger. It defaults to log.Printf; batch
// wrappers and tests swap it with SetLogger or SetLogWriter.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// SetLogWriter sends Logf output to w with the given prefix and
// microsecond timestamps. A nil writer mutes the logger.
func SetLogWriter(w io.Writer, prefix string) {
	if w == nil {
		SetLogger(nil)
		return
	}
	SetLogger(log.New(w, prefix, log.LstdFlags|log.Lmicroseconds).Printf)
}
