package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf but
// may be replaced with SetLogger so tests or embedding programs can redirect
// or mute engine output.
var Logf func(format string, v ...interface{}) = log.Printf

// Warnf logs recoverable conditions (format fallbacks, zero-filled tiles).
// It shares the destination of Logf but carries a fixed prefix so warnings
// can be grepped out of a run log.
func Warnf(format string, v ...interface{}) {
	Logf("warning: "+format, v...)
}

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
