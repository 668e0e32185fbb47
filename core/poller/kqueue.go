//go:build darwin
// +build darwin

package poller

import "golang.org/x/sys/unix"

// KqueuePoller is a kqueue-based I/O multiplexer
type KqueuePoller struct {
	kqfd   int
	events []unix.Kevent_t
	out    []Event
}

// NewPoller creates a new Poller (macOS)
func NewPoller() (Poller, error) {
	kqfd, err := unix.Kqueue()
	if err != nil {
		return nil, err
	}

	return &KqueuePoller{
		kqfd:   kqfd,
		events: make([]unix.Kevent_t, 1024),
		out:    make([]Event, 0, 1024),
	}, nil
}

func (p *KqueuePoller) change(fd int, readFlags, writeFlags uint16) error {
	changes := []unix.Kevent_t{
		{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: readFlags},
		{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: writeFlags},
	}
	_, err := unix.Kevent(p.kqfd, changes, nil, nil)
	return err
}

// Add registers both filters and leaves only the read side enabled.
// Level-triggered (no EV_CLEAR) for reliability.
func (p *KqueuePoller) Add(fd int) error {
	return p.change(fd, unix.EV_ADD|unix.EV_ENABLE, unix.EV_ADD|unix.EV_DISABLE)
}

// ModRead switches a descriptor to read interest.
func (p *KqueuePoller) ModRead(fd int) error {
	return p.change(fd, unix.EV_ENABLE, unix.EV_DISABLE)
}

// ModWrite switches a descriptor to write interest.
func (p *KqueuePoller) ModWrite(fd int) error {
	return p.change(fd, unix.EV_DISABLE, unix.EV_ENABLE)
}

// Remove removes a file descriptor from the watch list
func (p *KqueuePoller) Remove(fd int) error {
	return p.change(fd, unix.EV_DELETE, unix.EV_DELETE)
}

// Wait waits for I/O events. The returned slice is reused and only
// valid until the next call.
func (p *KqueuePoller) Wait(timeout int) ([]Event, error) {
	var ts *unix.Timespec
	if timeout >= 0 {
		ts = &unix.Timespec{
			Sec:  int64(timeout / 1000),
			Nsec: int64((timeout % 1000) * 1000000),
		}
	}

	n, err := unix.Kevent(p.kqfd, nil, p.events, ts)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, err
	}
	if n <= 0 {
		return nil, nil
	}

	p.out = p.out[:0]
	for i := 0; i < n; i++ {
		ev := p.events[i]
		p.out = append(p.out, Event{
			FD:       int(ev.Ident),
			Readable: ev.Filter == unix.EVFILT_READ,
			Writable: ev.Filter == unix.EVFILT_WRITE,
			Closed:   ev.Flags&unix.EV_EOF != 0,
		})
	}

	return p.out, nil
}

// Close closes the Poller
func (p *KqueuePoller) Close() error {
	return unix.Close(p.kqfd)
}

// SetNonblock sets non-blocking mode
func SetNonblock(fd int) error {
	return unix.SetNonblock(fd, true)
}
