package core

import (
	"errors"
	"time"
)

// Connection states
const (
	StateReading = iota
	StateProcessing
	StateWriting
	StateClosing
)

// Defaults applied by NewEngine when an option is zero.
const (
	DefaultReadTimeout    = 30 * time.Second
	DefaultWriteTimeout   = 30 * time.Second
	DefaultGracePeriod    = 5 * time.Second
	DefaultMaxRequestSize = 1 << 20
)

// Error definitions
var (
	ErrNoHandler = errors.New("no application handler configured")
)
