// Package hidlog is the small logging shim every other package in this
// module calls through rather than the standard log package directly, so
// a client can redirect or silence device diagnostics (open failures,
// transport read errors, unrecognized signatures) without this module
// reaching for a third-party logging framework the original neither
// needed nor had an equivalent of.
package hidlog

import (
	"fmt"
	"log"
	"os"
)

// Logger is the narrow surface this module depends on. The package-level
// functions below delegate to a default instance; embedding code can call
// SetOutput to redirect it. No package in this module accepts a Logger:
// all of them log through the package-level functions.
type Logger struct {
	std *log.Logger
}

// New wraps an *log.Logger with the module's own level prefixes.
func New(out *log.Logger) *Logger {
	return &Logger{std: out}
}

var defaultLogger = New(log.New(os.Stderr, "", log.LstdFlags))

// SetOutput redirects the package-level default logger.
func SetOutput(std *log.Logger) {
	defaultLogger = New(std)
}

func (l *Logger) Infof(format string, args ...any) {
	l.std.Output(2, "INFO  "+fmt.Sprintf(format, args...))
}

func (l *Logger) Warnf(format string, args ...any) {
	l.std.Output(2, "WARN  "+fmt.Sprintf(format, args...))
}

func (l *Logger) Errorf(format string, args ...any) {
	l.std.Output(2, "ERROR "+fmt.Sprintf(format, args...))
}

func Infof(format string, args ...any)  { defaultLogger.Infof(format, args...) }
func Warnf(format string, args ...any)  { defaultLogger.Warnf(format, args...) }
func Errorf(format string, args ...any) { defaultLogger.Errorf(format, args...) }
