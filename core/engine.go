package core

import (
	"net"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"

	"github.com/searchktools/cruet/core/buffer"
	"github.com/searchktools/cruet/core/gateway"
	"github.com/searchktools/cruet/core/http"
	"github.com/searchktools/cruet/core/observability"
	"github.com/searchktools/cruet/core/poller"
	"github.com/searchktools/cruet/core/pools"
)

// Connection is one client connection owned by the reactor. It holds the
// read accumulator, the queued response and the keep-alive decision for
// the request in flight. Connections are pooled; Reset and SetFD
// implement pools.ConnectionPoolable.
type Connection struct {
	fd         int
	state      int
	buf        *buffer.Buffer
	out        []byte
	outOff     int
	remoteAddr string
	remotePort int
	keepAlive  bool
	lastActive time.Time
}

// Reset implements ConnectionPoolable interface
func (c *Connection) Reset() {
	c.fd = -1
	c.state = StateReading
	c.buf = nil
	c.out = nil
	c.outOff = 0
	c.remoteAddr = ""
	c.remotePort = 0
	c.keepAlive = false
	c.lastActive = time.Time{}
}

// SetFD implements ConnectionPoolable interface
func (c *Connection) SetFD(fd int) {
	c.fd = fd
	c.lastActive = time.Now()
}

// Options configures an Engine. Zero fields take the package defaults.
type Options struct {
	Handler    gateway.Handler
	ServerName string
	ServerPort int

	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRequestSize int
	GracePeriod    time.Duration

	Logger zerolog.Logger
}

// Engine drives one single-threaded reactor: accept, read, parse,
// dispatch and write all run on the goroutine that called Serve, so
// connection state needs no locks. Parallelism comes from running one
// engine per worker process.
type Engine struct {
	handler gateway.Handler
	log     zerolog.Logger

	serverName string
	serverPort int

	readTimeout    time.Duration
	writeTimeout   time.Duration
	maxRequestSize int
	gracePeriod    time.Duration

	poller      poller.Poller
	listenFD    int
	connections map[int]*Connection

	bytePool       *pools.BytePool
	connectionPool *pools.ConnectionPool
	environPool    *pools.SmartPool
	counters       *observability.Counters

	readScratch []byte

	stopping bool
	stopAt   time.Time
	stopCh   chan struct{}
	stopOnce sync.Once

	lastSweep  time.Time
	lastReport time.Time
}

// NewEngine creates an engine around an application handler.
func NewEngine(opts Options) *Engine {
	e := &Engine{
		handler:        opts.Handler,
		log:            opts.Logger,
		serverName:     opts.ServerName,
		serverPort:     opts.ServerPort,
		readTimeout:    opts.ReadTimeout,
		writeTimeout:   opts.WriteTimeout,
		maxRequestSize: opts.MaxRequestSize,
		gracePeriod:    opts.GracePeriod,
		connections:    make(map[int]*Connection, 1024),
		counters:       observability.NewCounters(),
		stopCh:         make(chan struct{}),
	}

	if e.serverName == "" {
		e.serverName = "127.0.0.1"
	}
	if e.serverPort == 0 {
		e.serverPort = 8000
	}
	if e.readTimeout == 0 {
		e.readTimeout = DefaultReadTimeout
	}
	if e.writeTimeout == 0 {
		e.writeTimeout = DefaultWriteTimeout
	}
	if e.maxRequestSize == 0 {
		e.maxRequestSize = DefaultMaxRequestSize
	}
	if e.gracePeriod == 0 {
		e.gracePeriod = DefaultGracePeriod
	}

	pools.OptimizeForHighThroughput()

	e.bytePool = pools.NewBytePool()

	e.connectionPool = pools.NewConnectionPool(10000, func() any {
		return &Connection{fd: -1, state: StateReading}
	})

	e.environPool = pools.NewSmartPool(pools.SmartPoolConfig{
		New: func() any {
			return &gateway.Environ{}
		},
		Reset: func(obj any) {
			if env, ok := obj.(*gateway.Environ); ok {
				gateway.ResetEnviron(env)
			}
		},
		WarmupSize:    500,
		TargetHitRate: 0.95,
	})

	return e
}

// Counters exposes the reactor counters.
func (e *Engine) Counters() *observability.Counters {
	return e.counters
}

// Stop requests the same graceful shutdown a SIGTERM would.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stopCh) })
}

// Serve runs the reactor on a listening descriptor until shutdown
// completes. The caller keeps ownership of lfd.
func (e *Engine) Serve(lfd int) error {
	if e.handler == nil {
		return ErrNoHandler
	}

	p, err := poller.NewPoller()
	if err != nil {
		return err
	}
	e.poller = p
	defer p.Close()

	if err := poller.SetNonblock(lfd); err != nil {
		return err
	}
	if err := p.Add(lfd); err != nil {
		return err
	}
	e.listenFD = lfd

	e.readScratch = e.bytePool.Get(8192)
	defer func() {
		e.bytePool.Put(e.readScratch)
		e.readScratch = nil
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, unix.SIGINT, unix.SIGTERM)
	defer signal.Stop(sigCh)

	e.log.Info().
		Int("fd", lfd).
		Dur("read_timeout", e.readTimeout).
		Dur("write_timeout", e.writeTimeout).
		Int("max_request_size", e.maxRequestSize).
		Msg("reactor started")

	now := time.Now()
	e.lastSweep = now
	e.lastReport = now

	for {
		// 100ms bound keeps sweeps and shutdown checks prompt.
		events, err := p.Wait(100)
		if err != nil {
			e.log.Error().Err(err).Msg("poller wait failed")
			events = nil
		}

		select {
		case sig := <-sigCh:
			e.beginShutdown(sig.String())
		case <-e.stopCh:
			e.beginShutdown("stop")
		default:
		}

		for _, ev := range events {
			if ev.FD == lfd {
				if !e.stopping {
					e.accept(lfd)
				}
				continue
			}
			e.handleEvent(ev)
		}

		now = time.Now()
		if now.Sub(e.lastSweep) >= time.Second {
			e.sweepTimeouts(now)
			e.lastSweep = now
		}
		if now.Sub(e.lastReport) >= time.Minute {
			e.counters.Log(e.log, len(e.connections))
			e.log.Debug().Interface("pools", e.GetPoolStats()).Msg("pool stats")
			e.environPool.Optimize()
			e.lastReport = now
		}

		if e.stopping && (len(e.connections) == 0 || now.After(e.stopAt)) {
			e.closeAll()
			e.log.Info().Msg("reactor stopped")
			return nil
		}
	}
}

// beginShutdown disables accepting and starts the grace period. The loop
// exits as soon as no connection remains, or when the grace period runs
// out.
func (e *Engine) beginShutdown(reason string) {
	if e.stopping {
		return
	}
	e.stopping = true
	e.stopAt = time.Now().Add(e.gracePeriod)
	e.poller.Remove(e.listenFD)
	e.log.Info().
		Str("reason", reason).
		Int("active", len(e.connections)).
		Dur("grace", e.gracePeriod).
		Msg("shutdown requested, accept disabled")
}

// accept drains the listener backlog.
func (e *Engine) accept(lfd int) {
	for {
		nfd, sa, err := unix.Accept(lfd)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				return
			}
			if err == unix.EINTR || err == unix.ECONNABORTED {
				continue
			}
			e.log.Error().Err(err).Msg("accept failed")
			return
		}

		if err := poller.SetNonblock(nfd); err != nil {
			unix.Close(nfd)
			continue
		}
		unix.CloseOnExec(nfd)

		remoteAddr, remotePort, tcp := peerAddr(sa)
		if tcp {
			unix.SetsockoptInt(nfd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
		}

		conn := e.connectionPool.Get().(*Connection)
		conn.SetFD(nfd)
		conn.state = StateReading
		conn.buf = buffer.Acquire()
		conn.keepAlive = true
		conn.remoteAddr = remoteAddr
		conn.remotePort = remotePort

		if err := e.poller.Add(nfd); err != nil {
			buffer.Release(conn.buf)
			conn.buf = nil
			e.connectionPool.Put(conn)
			unix.Close(nfd)
			continue
		}

		e.connections[nfd] = conn
		e.counters.Accepted.Add(1)
	}
}

// peerAddr renders a socket address; UNIX peers have no port.
func peerAddr(sa unix.Sockaddr) (addr string, port int, tcp bool) {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return net.IP(a.Addr[:]).String(), a.Port, true
	case *unix.SockaddrInet6:
		return net.IP(a.Addr[:]).String(), a.Port, true
	case *unix.SockaddrUnix:
		return "unix", 0, false
	default:
		return "unknown", 0, false
	}
}

func (e *Engine) handleEvent(ev poller.Event) {
	conn, ok := e.connections[ev.FD]
	if !ok {
		return
	}

	switch conn.state {
	case StateReading:
		if ev.Readable {
			e.handleRead(conn)
			return
		}
	case StateWriting:
		if ev.Writable {
			e.handleWrite(conn)
			return
		}
	}

	if ev.Closed {
		e.closeConnection(conn)
	}
}

// handleRead drains the socket into the connection buffer and re-runs
// the parser over everything accumulated so far.
func (e *Engine) handleRead(conn *Connection) {
	for {
		n, err := unix.Read(conn.fd, e.readScratch)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				break
			}
			if err == unix.EINTR {
				continue
			}
			e.closeConnection(conn)
			return
		}
		if n == 0 {
			// Peer EOF
			e.closeConnection(conn)
			return
		}

		conn.buf.Append(e.readScratch[:n])
		conn.lastActive = time.Now()
		e.counters.BytesIn.Add(uint64(n))

		if conn.buf.Len() > e.maxRequestSize {
			e.counters.Oversized.Add(1)
			e.sendError(conn, 413, "Request Entity Too Large")
			return
		}
	}

	req, err := http.Parse(conn.buf.Bytes())
	if err != nil {
		e.counters.ParseErrors.Add(1)
		e.sendError(conn, 400, "Bad Request")
		return
	}
	if req == nil {
		// Head incomplete, wait for more data.
		return
	}
	if req.ContentLength > 0 && len(req.Body) < req.ContentLength {
		// Body incomplete, wait for more data.
		http.ReleaseRequest(req)
		return
	}

	e.process(conn, req)
}

// process dispatches one complete request. Reads stay disabled until the
// response fully drains, so requests on a keep-alive connection are
// strictly serialized.
func (e *Engine) process(conn *Connection, req *http.Request) {
	conn.state = StateProcessing
	conn.keepAlive = req.KeepAlive
	e.counters.Requests.Add(1)

	out, code, ok := e.invoke(conn, req)
	http.ReleaseRequest(req)

	if !ok {
		e.sendError(conn, 500, "Internal Server Error")
		return
	}

	conn.out = out
	conn.outOff = 0
	e.queueResponse(conn, code)
}

// invoke builds the environ, calls the application and formats the
// result. A panic, a handler that never responds, or a nil body all
// report failure.
func (e *Engine) invoke(conn *Connection, req *http.Request) (out []byte, code int, ok bool) {
	env := e.environPool.Get().(*gateway.Environ)
	defer e.environPool.Put(env)

	gateway.FillEnviron(env, req, conn.remoteAddr, conn.remotePort, e.serverName, e.serverPort)

	var capture gateway.Capture
	var body gateway.Body

	func() {
		defer func() {
			if r := recover(); r != nil {
				e.counters.HandlerPanics.Add(1)
				e.log.Error().
					Interface("panic", r).
					Str("method", req.Method).
					Str("path", req.Path).
					Msg("handler panicked")
				body = nil
			}
		}()
		body = e.handler(env, capture.Respond)
	}()

	if body == nil || !capture.Called() {
		return nil, 0, false
	}

	chunks := gateway.DrainBody(body)
	out = gateway.FormatResponse(capture.Status, capture.Headers, chunks)
	return out, statusCode(capture.Status), true
}

// statusCode reads the numeric prefix of a status line value.
func statusCode(status string) int {
	code := 0
	for i := 0; i < len(status) && status[i] >= '0' && status[i] <= '9'; i++ {
		code = code*10 + int(status[i]-'0')
	}
	return code
}

// sendError queues a bare error response and forces the connection
// closed once it drains.
func (e *Engine) sendError(conn *Connection, code int, text string) {
	conn.keepAlive = false
	conn.out = []byte("HTTP/1.1 " + strconv.Itoa(code) + " " + text +
		"\r\nContent-Length: 0\r\nConnection: close\r\n\r\n")
	conn.outOff = 0
	e.queueResponse(conn, code)
}

// queueResponse switches the connection to writing and attempts the
// write immediately; the poller takes over only if the socket blocks.
func (e *Engine) queueResponse(conn *Connection, code int) {
	conn.state = StateWriting
	conn.lastActive = time.Now()
	e.counters.Response(code)
	e.handleWrite(conn)
}

// handleWrite pushes queued bytes until done or EAGAIN. When the
// response fully drains the connection either rearms for reading with a
// reset buffer (keep-alive) or closes.
func (e *Engine) handleWrite(conn *Connection) {
	for conn.outOff < len(conn.out) {
		n, err := unix.Write(conn.fd, conn.out[conn.outOff:])
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				if err := e.poller.ModWrite(conn.fd); err != nil {
					e.closeConnection(conn)
				}
				return
			}
			if err == unix.EINTR {
				continue
			}
			e.closeConnection(conn)
			return
		}
		conn.outOff += n
		conn.lastActive = time.Now()
		e.counters.BytesOut.Add(uint64(n))
	}

	conn.out = nil
	conn.outOff = 0

	if conn.keepAlive && !e.stopping {
		conn.state = StateReading
		conn.buf.Reset()
		if err := e.poller.ModRead(conn.fd); err != nil {
			e.closeConnection(conn)
		}
		return
	}
	e.closeConnection(conn)
}

// closeConnection releases everything a connection owns, exactly once.
func (e *Engine) closeConnection(conn *Connection) {
	if conn.state == StateClosing {
		return
	}
	conn.state = StateClosing

	fd := conn.fd
	delete(e.connections, fd)
	e.poller.Remove(fd)
	unix.Close(fd)

	if conn.buf != nil {
		buffer.Release(conn.buf)
		conn.buf = nil
	}
	conn.out = nil
	e.connectionPool.Put(conn)
}

// sweepTimeouts force-closes connections stuck in a state beyond its
// timeout. No response is sent.
func (e *Engine) sweepTimeouts(now time.Time) {
	for _, conn := range e.connections {
		var limit time.Duration
		switch conn.state {
		case StateReading:
			limit = e.readTimeout
		case StateWriting:
			limit = e.writeTimeout
		default:
			continue
		}
		if now.Sub(conn.lastActive) > limit {
			e.counters.Timeouts.Add(1)
			e.log.Debug().
				Int("fd", conn.fd).
				Str("remote", conn.remoteAddr).
				Msg("connection timed out")
			e.closeConnection(conn)
		}
	}
}

func (e *Engine) closeAll() {
	for _, conn := range e.connections {
		e.closeConnection(conn)
	}
}
