// Package control dispatches inbound controller commands to the
// secure-display monitor and the encoder reset coordinator.
package control

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// Type identifies a control command on the wire.
type Type uint8

const (
	TypeResetVideo         Type = 0x11
	TypeRequestKeyframe    Type = 0x12
	TypeCheckSecureDisplay Type = 0x13
)

// String returns the string representation of the command type.
func (t Type) String() string {
	switch t {
	case TypeResetVideo:
		return "reset_video"
	case TypeRequestKeyframe:
		return "request_keyframe"
	case TypeCheckSecureDisplay:
		return "check_secure_display"
	default:
		return fmt.Sprintf("unknown(0x%02x)", uint8(t))
	}
}

// ErrUnknownCommand is returned for command types the dispatcher does not
// handle.
var ErrUnknownCommand = errors.New("control: unknown command")

// Checker runs a secure-display check.
type Checker interface {
	Check(ctx context.Context)
}

// Resetter accepts encoder restart and keyframe requests.
type Resetter interface {
	RequestReset()
	RequestKeyframe()
}

// Dispatcher routes commands to their handlers.
type Dispatcher struct {
	checker  Checker
	resetter Resetter
	logger   *slog.Logger
}

// NewDispatcher creates a dispatcher. Either target may be nil, in which
// case its commands are rejected as unknown.
func NewDispatcher(checker Checker, resetter Resetter, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{checker: checker, resetter: resetter, logger: logger}
}

// Handle executes one command synchronously.
func (d *Dispatcher) Handle(ctx context.Context, t Type) error {
	switch {
	case t == TypeCheckSecureDisplay && d.checker != nil:
		d.checker.Check(ctx)
	case t == TypeResetVideo && d.resetter != nil:
		d.resetter.RequestReset()
	case t == TypeRequestKeyframe && d.resetter != nil:
		d.resetter.RequestKeyframe()
	default:
		return fmt.Errorf("%w: %s", ErrUnknownCommand, t)
	}
	d.logger.Debug("control command handled", "type", t.String())
	return nil
}

// Serve reads one command type byte at a time from r and handles it.
// Unknown commands are logged and skipped. Serve returns nil at end of
// stream, or the context or read error otherwise.
func (d *Dispatcher) Serve(ctx context.Context, r io.Reader) error {
	br := bufio.NewReader(r)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		b, err := br.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read control command: %w", err)
		}
		if err := d.Handle(ctx, Type(b)); err != nil {
			d.logger.Warn("ignoring control command", "error", err)
		}
	}
}
