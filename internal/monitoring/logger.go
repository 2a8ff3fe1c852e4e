// Package monitoring routes diagnostic output from the trial pipeline.
// Result data never goes through here; it is written by the output package.
package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf but
// may be replaced by SetLogger.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil installs a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Silence mutes Logf and returns a function that restores the previous
// logger, for use as `defer monitoring.Silence()()` in tests and quiet runs.
func Silence() (restore func()) {
	prev := Logf
	SetLogger(nil)
	return func() { Logf = prev }
}
