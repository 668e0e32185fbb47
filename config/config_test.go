package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config failed validation: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty host", func(c *Config) { c.Host = "" }},
		{"port zero", func(c *Config) { c.Port = 0 }},
		{"port too high", func(c *Config) { c.Port = 70000 }},
		{"zero backlog", func(c *Config) { c.Backlog = 0 }},
		{"zero read timeout", func(c *Config) { c.ReadTimeout = 0 }},
		{"negative write timeout", func(c *Config) { c.WriteTimeout = -time.Second }},
		{"zero max request size", func(c *Config) { c.MaxRequestSize = 0 }},
		{"zero workers", func(c *Config) { c.Workers = 0 }},
		{"zero grace period", func(c *Config) { c.GracePeriod = 0 }},
		{"unknown env", func(c *Config) { c.Env = "staging" }},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error, got nil")
			}
		})
	}
}

func TestValidateUnixSocketSkipsTCPChecks(t *testing.T) {
	cfg := Default()
	cfg.UnixSocket = "/tmp/cruet.sock"
	cfg.Host = ""
	cfg.Port = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unix socket config failed validation: %v", err)
	}
}

func TestValidateListenFDSkipsTCPChecks(t *testing.T) {
	cfg := Default()
	cfg.ListenFD = 3
	cfg.Host = ""
	cfg.Port = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("listen-fd config failed validation: %v", err)
	}
}

func TestManagerTypedGetters(t *testing.T) {
	m := NewManager()
	m.Set("name", "cruet")
	m.Set("count", 7)
	m.Set("count_str", "8")
	m.Set("enabled", "yes")
	m.Set("timeout", "250ms")
	m.Set("timeout_secs", 1.5)

	if got := m.GetString("name"); got != "cruet" {
		t.Errorf("GetString(name) = %q, want cruet", got)
	}
	if got := m.GetString("missing", "fallback"); got != "fallback" {
		t.Errorf("GetString default = %q, want fallback", got)
	}
	if got := m.GetInt("count"); got != 7 {
		t.Errorf("GetInt(count) = %d, want 7", got)
	}
	if got := m.GetInt("count_str"); got != 8 {
		t.Errorf("GetInt(count_str) = %d, want 8", got)
	}
	if got := m.GetInt("missing", 42); got != 42 {
		t.Errorf("GetInt default = %d, want 42", got)
	}
	if !m.GetBool("enabled") {
		t.Error("GetBool(enabled) = false, want true")
	}
	if m.GetBool("missing") {
		t.Error("GetBool(missing) = true, want false")
	}
	if got := m.GetDuration("timeout"); got != 250*time.Millisecond {
		t.Errorf("GetDuration(timeout) = %s, want 250ms", got)
	}
	if got := m.GetDuration("timeout_secs"); got != 1500*time.Millisecond {
		t.Errorf("GetDuration(timeout_secs) = %s, want 1.5s", got)
	}
}

func TestManagerWatch(t *testing.T) {
	m := NewManager()
	var gotKey string
	var gotValue any
	m.Watch("port", func(key string, value any) {
		gotKey = key
		gotValue = value
	})

	m.Set("port", 9000)

	if gotKey != "port" || gotValue != 9000 {
		t.Fatalf("watcher saw (%q, %v), want (port, 9000)", gotKey, gotValue)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CRUET_MAX_REQUEST_SIZE", "2048")
	t.Setenv("CRUET_HOST", "0.0.0.0")
	t.Setenv("OTHER_HOST", "ignored")

	m := NewManager()
	m.LoadFromEnv(EnvPrefix)

	if got := m.GetString("max_request_size"); got != "2048" {
		t.Errorf("max_request_size = %q, want 2048", got)
	}
	if got := m.GetString("host"); got != "0.0.0.0" {
		t.Errorf("host = %q, want 0.0.0.0", got)
	}
	if _, ok := m.Get("other_host"); ok {
		t.Error("unprefixed variable leaked into manager")
	}
}

func TestLoadFromJSON(t *testing.T) {
	file := filepath.Join(t.TempDir(), "cruet.json")
	data := `{"port": 9090, "log_level": "debug", "limits": {"backlog": 256}}`
	if err := os.WriteFile(file, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	m := NewManager()
	if err := m.LoadFromJSON(file); err != nil {
		t.Fatalf("LoadFromJSON: %v", err)
	}

	if got := m.GetInt("port"); got != 9090 {
		t.Errorf("port = %d, want 9090", got)
	}
	if got := m.GetString("log_level"); got != "debug" {
		t.Errorf("log_level = %q, want debug", got)
	}
	if got := m.GetInt("limits.backlog"); got != 256 {
		t.Errorf("limits.backlog = %d, want 256", got)
	}
}

func TestLoadFromJSONMissingFile(t *testing.T) {
	m := NewManager()
	if err := m.LoadFromJSON(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestUnmarshal(t *testing.T) {
	m := NewManager()
	m.Set("port", "9001")
	m.Set("read_timeout", "45s")
	m.Set("write_timeout", 2.5)
	m.Set("unix_socket_mode", "0600")
	m.Set("workers", float64(4))
	m.Set("backlog", "not-a-number")

	cfg := Default()
	if err := m.Unmarshal(cfg); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if cfg.Port != 9001 {
		t.Errorf("Port = %d, want 9001", cfg.Port)
	}
	if cfg.ReadTimeout != 45*time.Second {
		t.Errorf("ReadTimeout = %s, want 45s", cfg.ReadTimeout)
	}
	if cfg.WriteTimeout != 2500*time.Millisecond {
		t.Errorf("WriteTimeout = %s, want 2.5s", cfg.WriteTimeout)
	}
	if cfg.UnixSocketMode != 0o600 {
		t.Errorf("UnixSocketMode = %o, want 0600", cfg.UnixSocketMode)
	}
	if cfg.Workers != 4 {
		t.Errorf("Workers = %d, want 4", cfg.Workers)
	}
	if cfg.Backlog != 1024 {
		t.Errorf("Backlog = %d, want untouched default 1024", cfg.Backlog)
	}
}

func TestUnmarshalRejectsNonPointer(t *testing.T) {
	m := NewManager()
	if err := m.Unmarshal(Config{}); err == nil {
		t.Fatal("expected error for non-pointer target")
	}
}

func TestLoad(t *testing.T) {
	file := filepath.Join(t.TempDir(), "cruet.json")
	data := `{"port": 9090, "workers": 2}`
	if err := os.WriteFile(file, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CRUET_PORT", "9091")

	cfg, err := Load(file)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Port != 9091 {
		t.Errorf("Port = %d, want env override 9091", cfg.Port)
	}
	if cfg.Workers != 2 {
		t.Errorf("Workers = %d, want file value 2", cfg.Workers)
	}
	if cfg.Host != "127.0.0.1" {
		t.Errorf("Host = %q, want default 127.0.0.1", cfg.Host)
	}
}

func TestLoadInvalidConfig(t *testing.T) {
	t.Setenv("CRUET_WORKERS", "0")
	if _, err := Load(""); err == nil {
		t.Fatal("expected validation error for zero workers")
	}
}
