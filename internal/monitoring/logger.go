// Package monitoring holds the process-wide diagnostic logger. The
// pipeline, ingest loop, and alerter all log through Logf so tests can
// mute or capture their output.
package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to
// log.Printf and may be replaced with SetLogger.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil installs a no-op
// logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
