package securedisplay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Service is a resolved display service endpoint.
type Service interface {
	// Dump writes diagnostic text for args into w. The service may keep
	// writing after Dump returns; the dump ends when every copy of w is
	// closed.
	Dump(ctx context.Context, w *os.File, args []string) error
}

// Locator resolves display services by name.
type Locator interface {
	Lookup(ctx context.Context, name string) (Service, error)
}

// DefaultDumpArgs restricts the dump to visible windows.
var DefaultDumpArgs = []string{"visible"}

// ServiceDetector detects secure windows through a display service dump.
// It is safe for concurrent use.
type ServiceDetector struct {
	locator Locator
	name    string
	args    []string
	timeout time.Duration
	logger  *slog.Logger

	mu          sync.Mutex
	service     Service
	unavailable bool
}

// ServiceConfig configures a ServiceDetector.
type ServiceConfig struct {
	// Name is the service name passed to the locator.
	Name string

	// Args are the dump arguments. Defaults to DefaultDumpArgs.
	Args []string

	// Timeout bounds a single dump, including reading its output.
	// Zero disables the bound.
	Timeout time.Duration

	Logger *slog.Logger
}

// NewServiceDetector creates a detector resolving cfg.Name through locator.
// A nil locator yields a detector that is permanently unavailable.
func NewServiceDetector(locator Locator, cfg ServiceConfig) *ServiceDetector {
	args := cfg.Args
	if len(args) == 0 {
		args = DefaultDumpArgs
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ServiceDetector{
		locator:     locator,
		name:        cfg.Name,
		args:        args,
		timeout:     cfg.Timeout,
		logger:      logger,
		unavailable: locator == nil,
	}
}

// Detect dumps the visible windows of the service and scans the output.
// It returns ErrServiceUnavailable once resolution has failed. Any other
// error drops the cached service so the next call resolves it again.
func (d *ServiceDetector) Detect(ctx context.Context) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	svc, err := d.resolve(ctx)
	if err != nil {
		return false, err
	}

	secure, err := d.dump(ctx, svc)
	if err != nil {
		d.service = nil
		return false, fmt.Errorf("dump %s: %w", d.name, err)
	}
	return secure, nil
}

// Available reports whether the service path has not been ruled out.
func (d *ServiceDetector) Available() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return !d.unavailable
}

func (d *ServiceDetector) resolve(ctx context.Context) (Service, error) {
	if d.unavailable {
		return nil, ErrServiceUnavailable
	}
	if d.service != nil {
		return d.service, nil
	}

	svc, err := d.locator.Lookup(ctx, d.name)
	if err == nil && svc == nil {
		err = errors.New("locator returned no service")
	}
	if err != nil {
		d.unavailable = true
		d.logger.Warn("display service unavailable, using subprocess fallback",
			"service", d.name, "error", err)
		return nil, fmt.Errorf("%w: %s: %v", ErrServiceUnavailable, d.name, err)
	}

	d.service = svc
	return svc, nil
}

func (d *ServiceDetector) dump(ctx context.Context, svc Service) (bool, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	r, w, err := os.Pipe()
	if err != nil {
		return false, fmt.Errorf("create pipe: %w", err)
	}
	// Both ends are closed on every path; a second Close is harmless.
	defer r.Close()
	defer w.Close()

	stop := context.AfterFunc(ctx, func() {
		_ = r.SetReadDeadline(time.Now())
	})
	defer stop()

	// Dump may write synchronously, so the read side runs concurrently to
	// keep a full pipe from stalling it.
	dumpErr := make(chan error, 1)
	go func() {
		err := svc.Dump(ctx, w, d.args)
		w.Close()
		dumpErr <- err
	}()

	secure, err := scanDump(r)
	if secure {
		return true, nil
	}
	if err != nil {
		return false, d.contextErr(ctx, fmt.Errorf("read dump: %w", err))
	}

	// End of stream means the write end was closed, so Dump has returned.
	if err := <-dumpErr; err != nil {
		return false, d.contextErr(ctx, err)
	}
	return false, nil
}

// contextErr prefers the context's own failure over the error it caused.
func (d *ServiceDetector) contextErr(ctx context.Context, err error) error {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w after %v", ErrTimeout, d.timeout)
	case ctx.Err() != nil:
		return ctx.Err()
	}
	return err
}
