package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg == nil {
		t.Fatal("DefaultConfig returned nil")
	}

	if cfg.Version != Version {
		t.Errorf("expected version %d, got %d", Version, cfg.Version)
	}
	if cfg.SecureDisplay.FallbackTimeout() != time.Second {
		t.Errorf("expected fallback timeout 1s, got %v", cfg.SecureDisplay.FallbackTimeout())
	}
	if cfg.SecureDisplay.PrimaryTimeout() != time.Second {
		t.Errorf("expected primary timeout 1s, got %v", cfg.SecureDisplay.PrimaryTimeout())
	}
	if cfg.SecureDisplay.PollInterval() != 0 {
		t.Errorf("expected polling disabled, got %v", cfg.SecureDisplay.PollInterval())
	}
	if got := strings.Join(cfg.SecureDisplay.FallbackCommand, " "); got != "dumpsys window visible" {
		t.Errorf("unexpected fallback command %q", got)
	}
	if !cfg.SecureDisplay.UseService {
		t.Error("expected service path enabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
	if err := ValidateSchema(cfg); err != nil {
		t.Errorf("default config should match schema: %v", err)
	}
}

func TestConfigPath(t *testing.T) {
	path := ConfigPath()
	if !strings.HasSuffix(path, "config.toml") {
		t.Errorf("expected path ending with config.toml, got %s", path)
	}
	if !strings.Contains(path, "mirrord") {
		t.Errorf("config path should contain mirrord: %s", path)
	}
}

func TestLoadNonexistent(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected default level, got %s", cfg.Logging.Level)
	}
}

func TestLoadFormats(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "toml",
			file: "config.toml",
			content: `
version = 1

[logging]
level = "debug"

[secure_display]
use_service = false
fallback_command = ["/system/bin/dumpsys", "window", "visible"]
fallback_timeout_ms = 750
poll_interval_ms = 2000
`,
		},
		{
			name: "json",
			file: "config.json",
			content: `{
  "logging": {"level": "debug"},
  "secure_display": {
    "use_service": false,
    "fallback_command": ["/system/bin/dumpsys", "window", "visible"],
    "fallback_timeout_ms": 750,
    "poll_interval_ms": 2000
  }
}`,
		},
		{
			name: "yaml",
			file: "config.yaml",
			content: `
logging:
  level: debug
secure_display:
  use_service: false
  fallback_command: ["/system/bin/dumpsys", "window", "visible"]
  fallback_timeout_ms: 750
  poll_interval_ms: 2000
`,
		},
		{
			name: "auto-detected toml",
			file: "mirrord.conf",
			content: `
[logging]
level = "debug"

[secure_display]
use_service = false
fallback_command = ["/system/bin/dumpsys", "window", "visible"]
fallback_timeout_ms = 750
poll_interval_ms = 2000
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.file)
			if err := os.WriteFile(path, []byte(tt.content), 0600); err != nil {
				t.Fatal(err)
			}

			cfg, err := Load(path)
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}

			if cfg.Logging.Level != "debug" {
				t.Errorf("expected level debug, got %s", cfg.Logging.Level)
			}
			if cfg.SecureDisplay.UseService {
				t.Error("expected use_service false")
			}
			if cfg.SecureDisplay.FallbackCommand[0] != "/system/bin/dumpsys" {
				t.Errorf("unexpected fallback command %v", cfg.SecureDisplay.FallbackCommand)
			}
			if cfg.SecureDisplay.FallbackTimeout() != 750*time.Millisecond {
				t.Errorf("expected 750ms, got %v", cfg.SecureDisplay.FallbackTimeout())
			}
			if cfg.SecureDisplay.PollInterval() != 2*time.Second {
				t.Errorf("expected 2s poll, got %v", cfg.SecureDisplay.PollInterval())
			}
			// Unset fields keep their defaults.
			if cfg.Logging.Format != "text" {
				t.Errorf("expected default format, got %s", cfg.Logging.Format)
			}
			if cfg.Control.QueueSize != 64 {
				t.Errorf("expected default queue size, got %d", cfg.Control.QueueSize)
			}
		})
	}
}

func TestLoadInvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[logging\nlevel = "), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("expected error for invalid TOML")
	}
}

func TestLoadRejectsSchemaViolation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{"logging": {"level": "verbose"}}`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected schema error")
	}
	if !strings.Contains(err.Error(), "schema") {
		t.Errorf("expected schema error, got %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MIRRORD_LOG_LEVEL", "warn")
	t.Setenv("MIRRORD_USE_SERVICE", "false")
	t.Setenv("MIRRORD_FALLBACK_COMMAND", "/bin/dumpsys window visible")

	cfg, err := Load(filepath.Join(t.TempDir(), "none.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Logging.Level != "warn" {
		t.Errorf("expected env level warn, got %s", cfg.Logging.Level)
	}
	if cfg.SecureDisplay.UseService {
		t.Error("expected env to disable service path")
	}
	if len(cfg.SecureDisplay.FallbackCommand) != 3 || cfg.SecureDisplay.FallbackCommand[0] != "/bin/dumpsys" {
		t.Errorf("unexpected fallback command %v", cfg.SecureDisplay.FallbackCommand)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"default config is valid", func(c *Config) {}, ""},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"bad output", func(c *Config) { c.Logging.Output = "syslog" }, "logging.output"},
		{"file output without path", func(c *Config) {
			c.Logging.Output = "file"
			c.Logging.FilePath = ""
		}, "logging.file_path"},
		{"service without name", func(c *Config) { c.SecureDisplay.ServiceName = "" }, "secure_display.service_name"},
		{"service disabled without name", func(c *Config) {
			c.SecureDisplay.UseService = false
			c.SecureDisplay.ServiceName = ""
		}, ""},
		{"empty fallback", func(c *Config) { c.SecureDisplay.FallbackCommand = nil }, "secure_display.fallback_command"},
		{"zero fallback timeout", func(c *Config) { c.SecureDisplay.FallbackTimeoutMs = 0 }, "secure_display.fallback_timeout_ms"},
		{"negative primary timeout", func(c *Config) { c.SecureDisplay.PrimaryTimeoutMs = -1 }, "secure_display.primary_timeout_ms"},
		{"zero primary timeout", func(c *Config) { c.SecureDisplay.PrimaryTimeoutMs = 0 }, ""},
		{"poll faster than timeout", func(c *Config) { c.SecureDisplay.PollIntervalMs = 100 }, "secure_display.poll_interval_ms"},
		{"zero queue", func(c *Config) { c.Control.QueueSize = 0 }, "control.queue_size"},
		{"future version", func(c *Config) { c.Version = Version + 1 }, "version"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()

			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error mentioning %s", tt.wantErr)
			}
			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("expected ValidationErrors, got %T", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected %q in %v", tt.wantErr, err)
			}
		})
	}
}

func TestClone(t *testing.T) {
	cfg := DefaultConfig()
	clone := cfg.Clone()

	clone.SecureDisplay.FallbackCommand[0] = "changed"
	clone.Logging.Level = "debug"

	if cfg.SecureDisplay.FallbackCommand[0] != "dumpsys" {
		t.Error("Clone shares fallback command slice")
	}
	if cfg.Logging.Level != "info" {
		t.Error("Clone shares logging config")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	for _, ext := range SupportedConfigFormats() {
		t.Run(ext, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", "config."+ext)
			cfg := DefaultConfig()
			cfg.Logging.Level = "error"
			cfg.SecureDisplay.PollIntervalMs = 5000

			if err := Save(cfg, path); err != nil {
				t.Fatalf("Save failed: %v", err)
			}
			loaded, err := Load(path)
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if loaded.Logging.Level != "error" || loaded.SecureDisplay.PollIntervalMs != 5000 {
				t.Errorf("round trip lost values: %+v", loaded)
			}
		})
	}
}

func TestLoaderWatchReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[logging]\nlevel = \"info\"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	loader := NewLoader(path)
	defer loader.Close()
	if _, err := loader.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	changed := make(chan *Config, 4)
	loader.OnChange(func(c *Config) { changed <- c })
	if err := loader.Watch(); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	if err := os.WriteFile(path, []byte("[logging]\nlevel = \"debug\"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-changed:
		if cfg.Logging.Level != "debug" {
			t.Errorf("expected reloaded level debug, got %s", cfg.Logging.Level)
		}
		if loader.Config().Logging.Level != "debug" {
			t.Error("loader did not store reloaded config")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("config change not observed")
	}
}

func TestLoaderWatchKeepsConfigOnBadReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[logging]\nlevel = \"info\"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	loader := NewLoader(path)
	defer loader.Close()
	if _, err := loader.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := loader.Watch(); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	if err := os.WriteFile(path, []byte("[logging]\nlevel = \"shout\"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-loader.Errors():
		if err == nil {
			t.Fatal("expected reload error")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("reload error not reported")
	}
	if loader.Config().Logging.Level != "info" {
		t.Errorf("expected previous config kept, got %s", loader.Config().Logging.Level)
	}
}
