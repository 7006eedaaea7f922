// mirrord - device-side helper for a screen mirroring controller
//
// mirrord reads single-byte control commands on stdin and writes device
// messages on stdout:
//
//	0x11  reset video       restart the encoder session
//	0x12  request keyframe  ask the encoder for a sync frame
//	0x13  check secure      report whether a secure window is visible
//
// Logs go to stderr or a file, never to stdout.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"mirrord/internal/config"
	"mirrord/internal/logging"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Print version and exit")
	once := flag.Bool("check-once", false, "Run one secure-display check, print the result and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("mirrord %s\n", version)
		return
	}

	loader := config.NewLoader(*configPath)
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "mirrord: load config %s: %v\n", loader.Path(), err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mirrord: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()
	logging.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *once {
		secure, err := checkOnce(ctx, cfg, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "mirrord: %v\n", err)
			logger.Close()
			os.Exit(1)
		}
		fmt.Printf("secure=%t\n", secure)
		return
	}

	loader.OnChange(reloadHandler(logger))
	if err := loader.Watch(); err != nil {
		logger.Warn("config hot reload disabled", "error", err)
	} else {
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case err := <-loader.Errors():
					logger.Warn("config reload failed", "error", err)
				}
			}
		}()
	}
	defer loader.Close()

	logger.Info("mirrord starting", "version", version, "config", loader.Path())
	if err := run(ctx, cfg, os.Stdin, os.Stdout, logger); err != nil {
		logger.Error("mirrord stopped", "error", err)
		logger.Close()
		os.Exit(1)
	}
	logger.Info("mirrord stopped")
}

func newLogger(cfg *config.Config) (*logging.Logger, error) {
	lc, err := logging.FromConfig(cfg.Logging)
	if err != nil {
		return nil, err
	}
	if lc.Output == "stdout" {
		// stdout carries the device message stream.
		lc.Output = "stderr"
	}
	return logging.New(lc)
}

// reloadHandler applies the parts of a reloaded config that can change
// while running. Everything else takes effect on restart.
func reloadHandler(logger *logging.Logger) func(*config.Config) {
	return func(c *config.Config) {
		level, err := logging.ParseLevel(c.Logging.Level)
		if err != nil {
			logger.Warn("ignoring reloaded log level", "error", err)
			return
		}
		logger.SetLevel(level)
		logger.Info("config reloaded", "level", logging.LevelString(level))
	}
}
