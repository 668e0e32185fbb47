package prefork

import (
	"fmt"
	"net"
	"os"

	"golang.org/x/sys/unix"
)

// ListenTCP binds a non-blocking TCP listening socket on host:port and
// returns its descriptor. SO_REUSEADDR is always set; SO_REUSEPORT is
// set best-effort so several masters can share a port on kernels that
// support it. An empty host listens on every interface.
func ListenTCP(host string, port, backlog int) (int, error) {
	if host == "" {
		host = "0.0.0.0"
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return -1, fmt.Errorf("prefork: invalid listen host %q", host)
	}

	family := unix.AF_INET
	var sa unix.Sockaddr
	if ip4 := ip.To4(); ip4 != nil {
		a := &unix.SockaddrInet4{Port: port}
		copy(a.Addr[:], ip4)
		sa = a
	} else {
		family = unix.AF_INET6
		a := &unix.SockaddrInet6{Port: port}
		copy(a.Addr[:], ip.To16())
		sa = a
	}

	fd, err := unix.Socket(family, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, fmt.Errorf("prefork: socket: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("prefork: SO_REUSEADDR: %w", err)
	}
	unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)

	if err := prepareListener(fd, sa, backlog); err != nil {
		unix.Close(fd)
		return -1, err
	}
	return fd, nil
}

// ListenUnix binds a non-blocking UNIX listening socket at path,
// removing any stale socket file first and applying mode once the
// socket is listening.
func ListenUnix(path string, mode os.FileMode, backlog int) (int, error) {
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, fmt.Errorf("prefork: socket: %w", err)
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		unix.Close(fd)
		return -1, fmt.Errorf("prefork: removing stale socket: %w", err)
	}

	if err := prepareListener(fd, &unix.SockaddrUnix{Name: path}, backlog); err != nil {
		unix.Close(fd)
		return -1, err
	}

	if err := os.Chmod(path, mode); err != nil {
		unix.Close(fd)
		os.Remove(path)
		return -1, fmt.Errorf("prefork: chmod socket: %w", err)
	}
	return fd, nil
}

func prepareListener(fd int, sa unix.Sockaddr, backlog int) error {
	if err := unix.SetNonblock(fd, true); err != nil {
		return fmt.Errorf("prefork: set nonblock: %w", err)
	}
	unix.CloseOnExec(fd)
	if err := unix.Bind(fd, sa); err != nil {
		return fmt.Errorf("prefork: bind: %w", err)
	}
	if err := unix.Listen(fd, backlog); err != nil {
		return fmt.Errorf("prefork: listen: %w", err)
	}
	return nil
}
