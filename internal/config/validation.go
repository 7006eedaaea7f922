package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// ValidateConfig performs semantic validation of the configuration.
func ValidateConfig(c *Config) error {
	var errs ValidationErrors

	if c.Version < 1 || c.Version > Version {
		errs = append(errs, ValidationError{
			Field:   "version",
			Message: fmt.Sprintf("unsupported version %d (supported: 1-%d)", c.Version, Version),
		})
	}

	errs = append(errs, validateLogging(&c.Logging)...)
	errs = append(errs, validateSecureDisplay(&c.SecureDisplay)...)
	errs = append(errs, validateControl(&c.Control)...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateLogging(l *LoggingConfig) ValidationErrors {
	var errs ValidationErrors

	switch l.Level {
	case "debug", "info", "warn", "error":
		// Valid levels
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid log level: %s (valid: debug, info, warn, error)", l.Level),
		})
	}

	switch l.Format {
	case "text", "json":
		// Valid formats
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("invalid log format: %s (valid: text, json)", l.Format),
		})
	}

	switch l.Output {
	case "stdout", "stderr":
	case "file":
		if l.FilePath == "" {
			errs = append(errs, ValidationError{
				Field:   "logging.file_path",
				Message: "file path is required when output is 'file'",
			})
		}
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.output",
			Message: fmt.Sprintf("invalid log output: %s (valid: stdout, stderr, file)", l.Output),
		})
	}

	return errs
}

func validateSecureDisplay(s *SecureDisplayConfig) ValidationErrors {
	var errs ValidationErrors

	if s.UseService && s.ServiceName == "" {
		errs = append(errs, ValidationError{
			Field:   "secure_display.service_name",
			Message: "service name is required when use_service is enabled",
		})
	}

	if len(s.FallbackCommand) == 0 || s.FallbackCommand[0] == "" {
		errs = append(errs, ValidationError{
			Field:   "secure_display.fallback_command",
			Message: "fallback command is required",
		})
	}

	if s.FallbackTimeoutMs < 1 {
		errs = append(errs, ValidationError{
			Field:   "secure_display.fallback_timeout_ms",
			Message: "fallback timeout must be at least 1 ms",
		})
	}

	if s.PrimaryTimeoutMs < 0 {
		errs = append(errs, ValidationError{
			Field:   "secure_display.primary_timeout_ms",
			Message: "primary timeout cannot be negative",
		})
	}

	if s.PollIntervalMs < 0 {
		errs = append(errs, ValidationError{
			Field:   "secure_display.poll_interval_ms",
			Message: "poll interval cannot be negative",
		})
	} else if s.PollIntervalMs > 0 && s.PollIntervalMs < s.FallbackTimeoutMs {
		errs = append(errs, ValidationError{
			Field:   "secure_display.poll_interval_ms",
			Message: "poll interval must not be shorter than the fallback timeout",
		})
	}

	return errs
}

func validateControl(c *ControlConfig) ValidationErrors {
	var errs ValidationErrors

	if c.QueueSize < 1 {
		errs = append(errs, ValidationError{
			Field:   "control.queue_size",
			Message: "queue size must be at least 1",
		})
	}

	return errs
}
