//go:build linux
// +build linux

package poller

import "golang.org/x/sys/unix"

// EpollPoller is an epoll-based I/O multiplexer
type EpollPoller struct {
	epfd   int
	events []unix.EpollEvent
	out    []Event
}

// NewPoller creates a new Poller (Linux)
func NewPoller() (Poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}

	return &EpollPoller{
		epfd:   epfd,
		events: make([]unix.EpollEvent, 1024),
		out:    make([]Event, 0, 1024),
	}, nil
}

const (
	// Level-triggered (no EPOLLET) for reliability.
	readEvents  = unix.EPOLLIN | unix.EPOLLRDHUP
	writeEvents = unix.EPOLLOUT | unix.EPOLLRDHUP
)

// Add adds a file descriptor to the watch list with read interest.
func (p *EpollPoller) Add(fd int) error {
	ev := unix.EpollEvent{Events: readEvents, Fd: int32(fd)}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev)
}

// ModRead switches a descriptor to read interest.
func (p *EpollPoller) ModRead(fd int) error {
	ev := unix.EpollEvent{Events: readEvents, Fd: int32(fd)}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, &ev)
}

// ModWrite switches a descriptor to write interest.
func (p *EpollPoller) ModWrite(fd int) error {
	ev := unix.EpollEvent{Events: writeEvents, Fd: int32(fd)}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, &ev)
}

// Remove removes a file descriptor from the watch list
func (p *EpollPoller) Remove(fd int) error {
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
}

// Wait waits for I/O events. The returned slice is reused and only
// valid until the next call.
func (p *EpollPoller) Wait(timeout int) ([]Event, error) {
	n, err := unix.EpollWait(p.epfd, p.events, timeout)
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
			FD:       int(ev.Fd),
			Readable: ev.Events&(unix.EPOLLIN|unix.EPOLLPRI) != 0,
			Writable: ev.Events&unix.EPOLLOUT != 0,
			Closed:   ev.Events&(unix.EPOLLHUP|unix.EPOLLERR|unix.EPOLLRDHUP) != 0,
		})
	}

	return p.out, nil
}

// Close closes the Poller
func (p *EpollPoller) Close() error {
	return unix.Close(p.epfd)
}

// SetNonblock sets non-blocking mode
func SetNonblock(fd int) error {
	return unix.SetNonblock(fd, true)
}
