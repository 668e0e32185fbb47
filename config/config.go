package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// EnvPrefix namespaces the environment variables Load honors, e.g.
// CRUET_PORT or CRUET_MAX_REQUEST_SIZE.
const EnvPrefix = "CRUET"

// Config carries the plain scalars the server is constructed from.
// Validate is called before serving; a Config that fails validation is
// never used.
type Config struct {
	// Host and Port bind the TCP listener. Ignored when UnixSocket or
	// ListenFD is set.
	Host string `config:"host"`
	Port int    `config:"port"`

	// UnixSocket, when non-empty, binds a UNIX socket at that path
	// instead of TCP. UnixSocketMode is applied to the socket file.
	UnixSocket     string      `config:"unix_socket"`
	UnixSocketMode os.FileMode `config:"unix_socket_mode"`

	// ListenFD is a pre-opened listening descriptor handed down by an
	// external supervisor; -1 means none.
	ListenFD int `config:"listen_fd"`

	Backlog int `config:"backlog"`

	ReadTimeout  time.Duration `config:"read_timeout"`
	WriteTimeout time.Duration `config:"write_timeout"`

	// MaxRequestSize caps the bytes buffered for one request before the
	// connection is aborted with a 413.
	MaxRequestSize int `config:"max_request_size"`

	// Workers is the number of reactor processes; 1 serves in-process
	// with no fork.
	Workers int `config:"workers"`

	// GracePeriod bounds how long shutdown waits for in-flight
	// connections.
	GracePeriod time.Duration `config:"grace_period"`

	Env      string `config:"env"`
	LogLevel string `config:"log_level"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		Host:           "127.0.0.1",
		Port:           8000,
		UnixSocketMode: 0o666,
		ListenFD:       -1,
		Backlog:        1024,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		MaxRequestSize: 1 << 20,
		Workers:        1,
		GracePeriod:    5 * time.Second,
		Env:            "development",
		LogLevel:       "info",
	}
}

// New loads configuration from command-line flags on top of the
// defaults. The result is not yet validated; app.New takes care of
// that.
func New() *Config {
	cfg := Default()
	var mode string

	flag.StringVar(&cfg.Host, "host", cfg.Host, "Bind address")
	flag.IntVar(&cfg.Port, "port", cfg.Port, "Bind port")
	flag.StringVar(&cfg.UnixSocket, "unix-socket", cfg.UnixSocket, "UNIX socket path (overrides host/port)")
	flag.StringVar(&mode, "unix-socket-mode", "0666", "UNIX socket file mode (octal)")
	flag.IntVar(&cfg.ListenFD, "listen-fd", cfg.ListenFD, "Pre-opened listening descriptor (-1 = none)")
	flag.IntVar(&cfg.Backlog, "backlog", cfg.Backlog, "Listen backlog")
	flag.DurationVar(&cfg.ReadTimeout, "read-timeout", cfg.ReadTimeout, "Idle read timeout")
	flag.DurationVar(&cfg.WriteTimeout, "write-timeout", cfg.WriteTimeout, "Idle write timeout")
	flag.IntVar(&cfg.MaxRequestSize, "max-request-size", cfg.MaxRequestSize, "Maximum buffered request size in bytes")
	flag.IntVar(&cfg.Workers, "workers", cfg.Workers, "Worker processes (1 = no fork)")
	flag.DurationVar(&cfg.GracePeriod, "grace-period", cfg.GracePeriod, "Shutdown grace period")
	flag.StringVar(&cfg.Env, "env", cfg.Env, "Environment (development/production)")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (trace/debug/info/warn/error)")

	flag.Parse()

	if m, err := strconv.ParseUint(mode, 8, 32); err == nil {
		cfg.UnixSocketMode = os.FileMode(m)
	}
	return cfg
}

// Load builds a Config from the defaults, an optional JSON file, and
// CRUET_* environment variables, in that order of precedence, then
// validates it. An empty file path skips the file.
func Load(file string) (*Config, error) {
	cfg := Default()

	m := NewManager()
	if file != "" {
		if err := m.LoadFromJSON(file); err != nil {
			return nil, err
		}
	}
	m.LoadFromEnv(EnvPrefix)

	if err := m.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot serve with.
func (c *Config) Validate() error {
	if c.UnixSocket == "" && c.ListenFD < 0 {
		if c.Host == "" {
			return fmt.Errorf("config: host must not be empty")
		}
		if c.Port < 1 || c.Port > 65535 {
			return fmt.Errorf("config: port %d out of range", c.Port)
		}
	}
	if c.Backlog < 1 {
		return fmt.Errorf("config: backlog must be positive, got %d", c.Backlog)
	}
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("config: read timeout must be positive, got %s", c.ReadTimeout)
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("config: write timeout must be positive, got %s", c.WriteTimeout)
	}
	if c.MaxRequestSize < 1 {
		return fmt.Errorf("config: max request size must be positive, got %d", c.MaxRequestSize)
	}
	if c.Workers < 1 {
		return fmt.Errorf("config: workers must be at least 1, got %d", c.Workers)
	}
	if c.GracePeriod <= 0 {
		return fmt.Errorf("config: grace period must be positive, got %s", c.GracePeriod)
	}
	if c.Env != "development" && c.Env != "production" {
		return fmt.Errorf("config: env must be development or production, got %q", c.Env)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: bad log level %q: %w", c.LogLevel, err)
	}
	return nil
}
