// Package config handles configuration loading, validation, and management for mirrord.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Version is the current configuration schema version.
const Version = 1

// Config holds the complete daemon configuration.
type Config struct {
	// Version is the configuration schema version.
	Version int `toml:"version" json:"version" yaml:"version"`

	// Logging configuration.
	Logging LoggingConfig `toml:"logging" json:"logging" yaml:"logging"`

	// SecureDisplay configuration for the secure-display monitor.
	SecureDisplay SecureDisplayConfig `toml:"secure_display" json:"secure_display" yaml:"secure_display"`

	// Control configuration for the controller channel.
	Control ControlConfig `toml:"control" json:"control" yaml:"control"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum level: "debug", "info", "warn", "error".
	Level string `toml:"level" json:"level" yaml:"level"`

	// Format is "text" or "json".
	Format string `toml:"format" json:"format" yaml:"format"`

	// Output is "stderr", "stdout", or "file". Log lines never go to
	// stdout when it carries the device message stream.
	Output string `toml:"output" json:"output" yaml:"output"`

	// FilePath is the log file used when Output is "file".
	FilePath string `toml:"file_path" json:"file_path" yaml:"file_path"`

	// AddSource adds source file and line to log entries.
	AddSource bool `toml:"add_source" json:"add_source" yaml:"add_source"`
}

// SecureDisplayConfig holds secure-display detection configuration.
type SecureDisplayConfig struct {
	// UseService enables the display service path. When false only the
	// fallback command is used.
	UseService bool `toml:"use_service" json:"use_service" yaml:"use_service"`

	// ServiceName is the bus name of the display service.
	ServiceName string `toml:"service_name" json:"service_name" yaml:"service_name"`

	// DumpMethod is the D-Bus method called to dump windows.
	// Empty selects "<service_name>.Dump".
	DumpMethod string `toml:"dump_method" json:"dump_method" yaml:"dump_method"`

	// DumpArgs are passed to the dump call.
	DumpArgs []string `toml:"dump_args" json:"dump_args" yaml:"dump_args"`

	// PrimaryTimeoutMs bounds a service dump. Zero disables the bound.
	PrimaryTimeoutMs int `toml:"primary_timeout_ms" json:"primary_timeout_ms" yaml:"primary_timeout_ms"`

	// FallbackCommand is the diagnostic command and its arguments.
	FallbackCommand []string `toml:"fallback_command" json:"fallback_command" yaml:"fallback_command"`

	// FallbackTimeoutMs bounds one run of the fallback command.
	FallbackTimeoutMs int `toml:"fallback_timeout_ms" json:"fallback_timeout_ms" yaml:"fallback_timeout_ms"`

	// PollIntervalMs runs a check periodically in addition to controller
	// requests. Zero disables polling.
	PollIntervalMs int `toml:"poll_interval_ms" json:"poll_interval_ms" yaml:"poll_interval_ms"`
}

// ControlConfig holds controller channel configuration.
type ControlConfig struct {
	// QueueSize is the number of device messages buffered for sending.
	QueueSize int `toml:"queue_size" json:"queue_size" yaml:"queue_size"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Version: Version,
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "text",
			Output:   "stderr",
			FilePath: filepath.Join(PlatformLogDir(), "mirrord.log"),
		},
		SecureDisplay: SecureDisplayConfig{
			UseService:        true,
			ServiceName:       "org.mirrord.WindowManager",
			DumpArgs:          []string{"visible"},
			PrimaryTimeoutMs:  1000,
			FallbackCommand:   []string{"dumpsys", "window", "visible"},
			FallbackTimeoutMs: 1000,
		},
		Control: ControlConfig{
			QueueSize: 64,
		},
	}
}

// ConfigPath returns the default configuration file path.
func ConfigPath() string {
	return filepath.Join(PlatformConfigDir(), "config.toml")
}

// PrimaryTimeout returns the service dump bound.
func (s SecureDisplayConfig) PrimaryTimeout() time.Duration {
	return time.Duration(s.PrimaryTimeoutMs) * time.Millisecond
}

// FallbackTimeout returns the fallback command bound.
func (s SecureDisplayConfig) FallbackTimeout() time.Duration {
	return time.Duration(s.FallbackTimeoutMs) * time.Millisecond
}

// PollInterval returns the polling period, zero when disabled.
func (s SecureDisplayConfig) PollInterval() time.Duration {
	return time.Duration(s.PollIntervalMs) * time.Millisecond
}

// ApplyEnvOverrides applies MIRRORD_* environment variables.
func (c *Config) ApplyEnvOverrides() {
	// Logging overrides
	if v := os.Getenv("MIRRORD_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("MIRRORD_LOG_PATH"); v != "" {
		c.Logging.FilePath = v
		c.Logging.Output = "file"
	}

	// Secure display overrides
	if v := os.Getenv("MIRRORD_SERVICE_NAME"); v != "" {
		c.SecureDisplay.ServiceName = v
	}
	if v := os.Getenv("MIRRORD_USE_SERVICE"); v != "" {
		c.SecureDisplay.UseService = parseBool(v, c.SecureDisplay.UseService)
	}
	if v := os.Getenv("MIRRORD_FALLBACK_COMMAND"); v != "" {
		c.SecureDisplay.FallbackCommand = strings.Fields(v)
	}
}

func parseBool(s string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return fallback
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	out := *c
	out.SecureDisplay.DumpArgs = append([]string(nil), c.SecureDisplay.DumpArgs...)
	out.SecureDisplay.FallbackCommand = append([]string(nil), c.SecureDisplay.FallbackCommand...)
	return &out
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	return ValidateConfig(c)
}
