package poller

// Event is one readiness notification for a watched descriptor.
type Event struct {
	FD       int
	Readable bool
	Writable bool
	Closed   bool
}

// Poller is the I/O multiplexing interface. Descriptors are registered
// with read interest; ModRead and ModWrite switch the armed direction so
// a connection is only ever watched for the one operation its state
// needs next.
type Poller interface {
	Add(fd int) error
	ModRead(fd int) error
	ModWrite(fd int) error
	Remove(fd int) error
	Wait(timeout int) ([]Event, error)
	Close() error
}
