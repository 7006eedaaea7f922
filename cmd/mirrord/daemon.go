package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"mirrord/internal/config"
	"mirrord/internal/control"
	"mirrord/internal/devicemsg"
	"mirrord/internal/encoder"
	"mirrord/internal/logging"
	"mirrord/internal/securedisplay"
)

// run serves control commands from in and writes device messages to out
// until in is exhausted, ctx is cancelled or the output stream fails.
func run(ctx context.Context, cfg *config.Config, in io.Reader, out io.Writer, logger *logging.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	queue := devicemsg.NewQueue(out, cfg.Control.QueueSize, logger.WithComponent("devicemsg").Logger)
	monitor := newMonitor(cfg.SecureDisplay, queue, logger.WithComponent("securedisplay"))
	coordinator := encoder.NewResetCoordinator(logger.WithComponent("encoder").Logger)
	dispatcher := control.NewDispatcher(monitor, coordinator, logger.WithComponent("control").Logger)

	queueDone := make(chan error, 1)
	go func() {
		defer logging.Recover(logger.Logger, "queue")
		queueDone <- queue.Run(ctx)
	}()

	var workers sync.WaitGroup
	if interval := cfg.SecureDisplay.PollInterval(); interval > 0 {
		workers.Add(1)
		go func() {
			defer workers.Done()
			defer logging.Recover(logger.Logger, "poll")
			poll(ctx, monitor, interval)
		}()
	}

	// Serve is not tied to workers: a read from stdin cannot be interrupted
	// and the goroutine ends with the process.
	serveDone := make(chan error, 1)
	go func() {
		defer logging.Recover(logger.Logger, "control")
		serveDone <- dispatcher.Serve(ctx, in)
	}()

	var runErr, streamErr error
	streamDone := false
	select {
	case err := <-serveDone:
		if err != nil && !errors.Is(err, context.Canceled) {
			runErr = err
		} else {
			logger.Info("control stream closed")
		}
	case streamErr = <-queueDone:
		streamDone = true
	case <-ctx.Done():
	}

	cancel()
	workers.Wait()
	if !streamDone {
		streamErr = <-queueDone
	}
	if streamErr != nil && !errors.Is(streamErr, context.Canceled) {
		return fmt.Errorf("device message stream: %w", streamErr)
	}
	if err := queue.Flush(); err != nil {
		return fmt.Errorf("flush device messages: %w", err)
	}
	return runErr
}

func poll(ctx context.Context, monitor *securedisplay.Monitor, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			monitor.Check(ctx)
		}
	}
}

// newMonitor builds the monitor from config: the display service over
// D-Bus when enabled, and the diagnostic command as fallback.
func newMonitor(sd config.SecureDisplayConfig, sender devicemsg.Sender, logger *logging.Logger) *securedisplay.Monitor {
	var primary securedisplay.Detector
	if sd.UseService {
		primary = securedisplay.NewServiceDetector(securedisplay.NewDBusLocator(sd.DumpMethod), securedisplay.ServiceConfig{
			Name:    sd.ServiceName,
			Args:    sd.DumpArgs,
			Timeout: sd.PrimaryTimeout(),
			Logger:  logger.Logger,
		})
	}
	fallback := securedisplay.NewSubprocessDetector(sd.FallbackCommand, sd.FallbackTimeout(), logger.Logger)
	return securedisplay.NewMonitor(sender, primary, fallback, logger.Logger)
}

// checkOnce runs a single detection. A failed detection produces no
// notification and is reported as an error.
func checkOnce(ctx context.Context, cfg *config.Config, logger *logging.Logger) (bool, error) {
	var (
		got    devicemsg.Message
		notify bool
	)
	sender := devicemsg.SenderFunc(func(m devicemsg.Message) {
		got = m
		notify = true
	})
	newMonitor(cfg.SecureDisplay, sender, logger.WithComponent("securedisplay")).Check(ctx)
	if !notify {
		return false, errors.New("secure display detection failed")
	}
	return got.SecureActive(), nil
}
