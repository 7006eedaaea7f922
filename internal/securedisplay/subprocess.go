package securedisplay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"
)

// DefaultFallbackCommand dumps the visible windows through the window
// manager diagnostics tool.
var DefaultFallbackCommand = []string{"dumpsys", "window", "visible"}

// DefaultSubprocessTimeout is the wall-clock budget of one fallback dump.
const DefaultSubprocessTimeout = 1000 * time.Millisecond

// SubprocessDetector detects secure windows by running a diagnostic
// command and scanning its combined stdout and stderr.
type SubprocessDetector struct {
	command []string
	timeout time.Duration
	logger  *slog.Logger
}

// NewSubprocessDetector creates a fallback detector. An empty command
// selects DefaultFallbackCommand and a non-positive timeout selects
// DefaultSubprocessTimeout.
func NewSubprocessDetector(command []string, timeout time.Duration, logger *slog.Logger) *SubprocessDetector {
	if len(command) == 0 {
		command = DefaultFallbackCommand
	}
	if timeout <= 0 {
		timeout = DefaultSubprocessTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SubprocessDetector{
		command: append([]string(nil), command...),
		timeout: timeout,
		logger:  logger,
	}
}

// Detect runs the command once. The process is killed as soon as a
// secure line is seen, or when it has not finished within the timeout,
// in which case ErrTimeout is returned.
func (d *SubprocessDetector) Detect(ctx context.Context) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	r, w, err := os.Pipe()
	if err != nil {
		return false, fmt.Errorf("create pipe: %w", err)
	}
	defer r.Close()

	cmd := exec.Command(d.command[0], d.command[1:]...)
	cmd.Stdout = w
	cmd.Stderr = w
	setProcessGroup(cmd)

	if err := cmd.Start(); err != nil {
		w.Close()
		return false, fmt.Errorf("start %s: %w", d.command[0], err)
	}
	// The child holds its own copy; ours must go so EOF follows its exit.
	w.Close()

	waitErr := make(chan error, 1)
	go func() { waitErr <- cmd.Wait() }()

	stop := context.AfterFunc(ctx, func() {
		_ = r.SetReadDeadline(time.Now())
	})
	defer stop()

	secure, err := scanDump(r)
	if secure {
		killProcess(cmd)
		<-waitErr
		return true, nil
	}
	if err != nil {
		killProcess(cmd)
		<-waitErr
		return false, d.classify(ctx, fmt.Errorf("read %s output: %w", d.command[0], err))
	}

	select {
	case err := <-waitErr:
		if err != nil {
			d.logger.Debug("fallback dump exited with error", "command", d.command[0], "error", err)
		}
		return false, nil
	case <-ctx.Done():
		killProcess(cmd)
		<-waitErr
		return false, d.classify(ctx, ctx.Err())
	}
}

func (d *SubprocessDetector) classify(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		d.logger.Warn("fallback dump timed out", "command", d.command[0], "timeout_ms", d.timeout.Milliseconds())
		return fmt.Errorf("%w after %v", ErrTimeout, d.timeout)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}
