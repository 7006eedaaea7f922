// Package securedisplay detects whether any visible window is flagged as
// non-capturable and notifies the controller when that state changes.
//
// Detection runs through two strategies:
//   - A display service resolved by name, asked to dump its visible windows
//     into a pipe
//   - A short-lived diagnostic subprocess producing the same dump
//
// The service path is preferred. When it cannot be resolved it is skipped
// for the lifetime of the detector; when it fails at runtime the cached
// handle is dropped and the subprocess is used for that check.
package securedisplay

import (
	"context"
	"errors"
)

// Detection errors.
var (
	// ErrServiceUnavailable means the display service could not be
	// resolved. It is permanent for the detector that returned it.
	ErrServiceUnavailable = errors.New("securedisplay: display service unavailable")

	// ErrTimeout means a dump did not complete within its time budget.
	ErrTimeout = errors.New("securedisplay: dump timed out")
)

// Detector reports whether secure content is currently visible.
type Detector interface {
	Detect(ctx context.Context) (bool, error)
}

// DetectorFunc adapts a function to the Detector interface.
type DetectorFunc func(ctx context.Context) (bool, error)

// Detect calls f(ctx).
func (f DetectorFunc) Detect(ctx context.Context) (bool, error) { return f(ctx) }
