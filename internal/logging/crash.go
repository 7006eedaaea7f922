package logging

import (
	"fmt"
	"log/slog"
	"runtime"
	"runtime/debug"
)

// CrashReport describes a recovered panic.
type CrashReport struct {
	Goroutine    string
	PanicValue   string
	StackTrace   string
	NumGoroutine int
}

// Recover logs a panic in the calling goroutine and then re-panics, so a
// crash still terminates the process but leaves a structured record first.
// It must be deferred directly:
//
//	defer logging.Recover(logger, "queue")
func Recover(logger *slog.Logger, name string) {
	if r := recover(); r != nil {
		HandlePanic(logger, name, r)
		panic(r)
	}
}

// HandlePanic logs a crash report for a recovered panic value.
func HandlePanic(logger *slog.Logger, name string, value any) CrashReport {
	if logger == nil {
		logger = slog.Default()
	}
	report := CrashReport{
		Goroutine:    name,
		PanicValue:   fmt.Sprintf("%v", value),
		StackTrace:   string(debug.Stack()),
		NumGoroutine: runtime.NumGoroutine(),
	}
	logger.Error("panic",
		"goroutine", report.Goroutine,
		"panic", report.PanicValue,
		"goroutines", report.NumGoroutine,
		"stack", report.StackTrace,
	)
	return report
}
