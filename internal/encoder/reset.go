// Package encoder coordinates restarts and keyframe requests for a running
// video encoder session.
//
// The capture/encode loop owns the session. Other goroutines (display
// hot-plug handling, control commands) ask the coordinator for a restart or
// a keyframe, and the loop consumes the restart flag on every iteration.
package encoder

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// Session is the encoder session currently producing output.
type Session interface {
	// SignalEndOfInput ends the input stream so a blocked encode call
	// returns.
	SignalEndOfInput() error

	// RequestKeyframe asks for a sync frame on the next output.
	RequestKeyframe() error
}

// InvalidationListener is notified when the capture surface must be
// recreated.
type InvalidationListener interface {
	OnInvalidated()
}

// ResetCoordinator tracks pending encoder restarts. It does not own the
// session: it only signals it and never stops or releases it.
type ResetCoordinator struct {
	reset atomic.Bool

	mu      sync.Mutex
	session Session

	logger *slog.Logger
}

var _ InvalidationListener = (*ResetCoordinator)(nil)

// NewResetCoordinator creates a coordinator with no session and no pending
// reset. A nil logger selects slog.Default().
func NewResetCoordinator(logger *slog.Logger) *ResetCoordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResetCoordinator{logger: logger}
}

// ConsumeReset clears the pending reset and reports whether one was set.
func (c *ResetCoordinator) ConsumeReset() bool {
	return c.reset.Swap(false)
}

// RequestReset marks a restart as pending and interrupts the current
// session, if any, so the encode loop notices promptly.
func (c *ResetCoordinator) RequestReset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.reset.Store(true)
	if c.session == nil {
		return
	}
	if err := c.session.SignalEndOfInput(); err != nil {
		// The session may already be stopped.
		c.logger.Debug("end of input signal ignored", "error", err)
	}
}

// RequestKeyframe asks the current session for a sync frame without
// restarting it. Failures are logged and otherwise ignored.
func (c *ResetCoordinator) RequestKeyframe() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return
	}
	if err := c.session.RequestKeyframe(); err != nil {
		c.logger.Warn("failed to request keyframe", "error", err)
		return
	}
	c.logger.Debug("keyframe requested")
}

// SetSession replaces the tracked session. A nil session clears it. The
// pending reset flag is left as is.
func (c *ResetCoordinator) SetSession(s Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = s
}

// OnInvalidated implements InvalidationListener. Surface invalidation
// always requires a restart.
func (c *ResetCoordinator) OnInvalidated() {
	c.RequestReset()
}
