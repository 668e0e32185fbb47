package observability

import (
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Counters aggregates reactor activity. The reactor increments them
// inline; snapshots are taken for periodic logging.
type Counters struct {
	Accepted  atomic.Uint64
	Requests  atomic.Uint64
	Responses atomic.Uint64

	Class2xx atomic.Uint64
	Class3xx atomic.Uint64
	Class4xx atomic.Uint64
	Class5xx atomic.Uint64

	BytesIn  atomic.Uint64
	BytesOut atomic.Uint64

	ParseErrors   atomic.Uint64
	Oversized     atomic.Uint64
	Timeouts      atomic.Uint64
	HandlerPanics atomic.Uint64
}

// NewCounters creates a zeroed counter set
func NewCounters() *Counters {
	return &Counters{}
}

// Response records one completed response under its status class.
func (c *Counters) Response(code int) {
	c.Responses.Add(1)
	switch {
	case code >= 200 && code < 300:
		c.Class2xx.Add(1)
	case code >= 300 && code < 400:
		c.Class3xx.Add(1)
	case code >= 400 && code < 500:
		c.Class4xx.Add(1)
	case code >= 500:
		c.Class5xx.Add(1)
	}
}

// Snapshot is a point-in-time copy of every counter.
type Snapshot struct {
	Accepted  uint64
	Requests  uint64
	Responses uint64

	Class2xx uint64
	Class3xx uint64
	Class4xx uint64
	Class5xx uint64

	BytesIn  uint64
	BytesOut uint64

	ParseErrors   uint64
	Oversized     uint64
	Timeouts      uint64
	HandlerPanics uint64
}

// Snapshot loads every counter once.
func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		Accepted:      c.Accepted.Load(),
		Requests:      c.Requests.Load(),
		Responses:     c.Responses.Load(),
		Class2xx:      c.Class2xx.Load(),
		Class3xx:      c.Class3xx.Load(),
		Class4xx:      c.Class4xx.Load(),
		Class5xx:      c.Class5xx.Load(),
		BytesIn:       c.BytesIn.Load(),
		BytesOut:      c.BytesOut.Load(),
		ParseErrors:   c.ParseErrors.Load(),
		Oversized:     c.Oversized.Load(),
		Timeouts:      c.Timeouts.Load(),
		HandlerPanics: c.HandlerPanics.Load(),
	}
}

// Log emits a snapshot plus the current active-connection gauge.
func (c *Counters) Log(log zerolog.Logger, active int) {
	s := c.Snapshot()
	log.Debug().
		Int("active", active).
		Uint64("accepted", s.Accepted).
		Uint64("requests", s.Requests).
		Uint64("responses", s.Responses).
		Uint64("resp_2xx", s.Class2xx).
		Uint64("resp_3xx", s.Class3xx).
		Uint64("resp_4xx", s.Class4xx).
		Uint64("resp_5xx", s.Class5xx).
		Uint64("bytes_in", s.BytesIn).
		Uint64("bytes_out", s.BytesOut).
		Uint64("parse_errors", s.ParseErrors).
		Uint64("oversized", s.Oversized).
		Uint64("timeouts", s.Timeouts).
		Uint64("panics", s.HandlerPanics).
		Msg("reactor counters")
}
