package securedisplay

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"mirrord/internal/devicemsg"
)

// state is the last successfully detected secure-display state.
type state int8

const (
	stateUnknown state = iota
	stateNotSecure
	stateSecure
)

func stateOf(secure bool) state {
	if secure {
		return stateSecure
	}
	return stateNotSecure
}

func (s state) String() string {
	switch s {
	case stateNotSecure:
		return "not_secure"
	case stateSecure:
		return "secure"
	default:
		return "unknown"
	}
}

// Monitor checks the secure-display state on request and sends a
// SecureDisplay message to the controller when it changes. The first
// successful check always notifies.
type Monitor struct {
	sender   devicemsg.Sender
	primary  Detector
	fallback Detector
	logger   *slog.Logger

	// mu serializes Check; last is only touched while it is held.
	mu   sync.Mutex
	last state
}

// NewMonitor creates a monitor. primary may be nil, in which case only the
// fallback is used; a nil fallback selects a SubprocessDetector with
// default settings.
func NewMonitor(sender devicemsg.Sender, primary, fallback Detector, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	if fallback == nil {
		fallback = NewSubprocessDetector(nil, 0, logger)
	}
	m := &Monitor{
		sender:   sender,
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
	logger.Info("secure display monitor initialized", "primary", primary != nil)
	return m
}

// Check detects the current state and notifies on change. Overlapping
// calls run one after another. A failed detection is logged and leaves the
// remembered state untouched.
func (m *Monitor) Check(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	start := time.Now()
	secure, err := m.detect(ctx)
	elapsed := time.Since(start)

	if err != nil {
		m.logger.Warn("secure display check failed", "elapsed_ms", elapsed.Milliseconds(), "error", err)
		return
	}

	m.logger.Debug("secure display check", "elapsed_ms", elapsed.Milliseconds(), "secure", secure)

	next := stateOf(secure)
	if next == m.last {
		return
	}

	transition := "changed"
	if m.last == stateUnknown {
		transition = "initial"
	}
	m.logger.Info("secure display "+transition, "secure", secure)

	m.last = next
	m.sender.Send(devicemsg.NewSecureDisplay(secure))
}

func (m *Monitor) detect(ctx context.Context) (bool, error) {
	if m.primary != nil {
		secure, err := m.primary.Detect(ctx)
		if err == nil {
			return secure, nil
		}
		if errors.Is(err, ErrServiceUnavailable) {
			m.logger.Debug("using subprocess fallback", "reason", "no display service")
		} else {
			m.logger.Warn("display service dump failed, falling back to subprocess", "error", err)
		}
	}
	return m.fallback.Detect(ctx)
}
