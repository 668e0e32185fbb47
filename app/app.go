package app

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"

	"github.com/searchktools/cruet/config"
	"github.com/searchktools/cruet/core"
	"github.com/searchktools/cruet/core/gateway"
	"github.com/searchktools/cruet/core/prefork"
	"github.com/searchktools/cruet/core/router"
)

// Handler serves one dispatched request. A nil response reports as a 500
// to the client.
type Handler func(req *gateway.Request) *gateway.Response

// App assembles the route table, the dispatch bridge and the reactor
// behind one front door. Routes must be registered before Run; the table
// is immutable once serving begins.
type App struct {
	cfg      *config.Config
	log      zerolog.Logger
	routes   *router.Map
	adapter  *router.MapAdapter
	handlers map[string]Handler
	engine   *core.Engine

	before []BeforeFunc
	after  []AfterFunc
}

// New builds an application around a validated configuration. A nil cfg
// takes the defaults.
func New(cfg *config.Config) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := newLogger(cfg)
	if prefork.IsWorker() {
		log = log.With().Int("worker", prefork.WorkerIndex()).Logger()
	}

	a := &App{
		cfg:      cfg,
		log:      log,
		routes:   router.NewMap(),
		handlers: make(map[string]Handler),
	}
	a.engine = core.NewEngine(core.Options{
		Handler:        a.Gateway(),
		ServerName:     cfg.Host,
		ServerPort:     cfg.Port,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		MaxRequestSize: cfg.MaxRequestSize,
		GracePeriod:    cfg.GracePeriod,
		Logger:         log,
	})
	return a, nil
}

// newLogger builds the process logger: human-readable console output in
// development, JSON elsewhere. The level comes from the configuration
// and has already been validated.
func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	var out io.Writer = os.Stderr
	if cfg.Env == "development" {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// Logger exposes the application logger for handler code.
func (a *App) Logger() zerolog.Logger { return a.log }

// Engine exposes the reactor, mainly for tests and embedders.
func (a *App) Engine() *core.Engine { return a.engine }

// Stop requests the same graceful shutdown a SIGTERM would.
func (a *App) Stop() { a.engine.Stop() }

// Route registers handler under endpoint for a URL pattern, with strict
// trailing-slash handling. Patterns use the placeholder syntax of
// router.NewRule, e.g. "/users/<int:id>".
func (a *App) Route(pattern, endpoint string, methods []string, handler Handler) error {
	rule, err := router.NewRule(pattern, endpoint, methods, true)
	if err != nil {
		return err
	}
	return a.AddRule(rule, handler)
}

// AddRule registers a pre-built rule, allowing non-default rule options.
// Endpoints are unique; registering one twice is an error.
func (a *App) AddRule(rule *router.Rule, handler Handler) error {
	if handler == nil {
		return fmt.Errorf("app: nil handler for endpoint %q", rule.Endpoint())
	}
	if _, dup := a.handlers[rule.Endpoint()]; dup {
		return fmt.Errorf("app: endpoint %q already registered", rule.Endpoint())
	}
	a.routes.Add(rule)
	a.handlers[rule.Endpoint()] = handler
	return nil
}

// URLFor reconstructs the path for a registered endpoint from placeholder
// values, the inverse of routing.
func (a *App) URLFor(endpoint string, values map[string]any) (string, error) {
	return a.bound().Build(endpoint, values)
}

func (a *App) bound() *router.MapAdapter {
	if a.adapter == nil {
		a.adapter = a.routes.Bind(a.cfg.Host)
	}
	return a.adapter
}

// Gateway adapts the route table, hooks and handler set to the
// engine's application-invocation contract. Routing runs first so
// before hooks already see the endpoint; unmatched paths answer 404,
// matched paths with a wrong method 405, and a handler returning nil
// 500. After hooks run on every response.
func (a *App) Gateway() gateway.Handler {
	return func(env *gateway.Environ, respond gateway.Respond) gateway.Body {
		endpoint, params, outcome := a.bound().Match(env.Path, env.Method)

		req := gateway.NewRequest(env)
		req.Endpoint = endpoint
		req.PathParams = params

		resp := a.runBefore(req)
		if resp == nil {
			resp = a.dispatch(req, outcome)
		}
		resp = a.runAfter(req, resp)
		return resp.Write(respond)
	}
}

// dispatch resolves the routing outcome into a response.
func (a *App) dispatch(req *gateway.Request, outcome router.Outcome) *gateway.Response {
	switch outcome {
	case router.NotFound:
		return plainStatus(404)
	case router.MethodNotAllowed:
		return plainStatus(405)
	}

	handler := a.handlers[req.Endpoint]
	if handler == nil {
		a.log.Error().Str("endpoint", req.Endpoint).Msg("matched endpoint has no handler")
		return plainStatus(500)
	}
	resp := handler(req)
	if resp == nil {
		a.log.Error().Str("endpoint", req.Endpoint).Msg("handler returned nil response")
		return plainStatus(500)
	}
	return resp
}

// plainStatus builds a minimal text/plain rendition of a status code.
func plainStatus(code int) *gateway.Response {
	resp := gateway.NewResponse([]byte(gateway.StatusText(code)+"\n"), code)
	resp.SetContentType("text/plain; charset=utf-8")
	return resp
}

// Run binds the configured transport and serves until shutdown. In a
// worker process it serves the inherited descriptor instead; with
// Workers > 1 the master process forks the workers and only supervises.
func (a *App) Run() error {
	if prefork.IsWorker() {
		return a.engine.Serve(prefork.WorkerFD)
	}

	lfd, err := a.bind()
	if err != nil {
		return err
	}

	if a.cfg.Workers > 1 {
		sup := prefork.NewSupervisor(a.cfg.Workers, a.cfg.UnixSocket, a.log)
		err := sup.Run(lfd)
		if a.cfg.ListenFD < 0 {
			unix.Close(lfd)
		}
		return err
	}

	defer a.closeListener(lfd)
	return a.engine.Serve(lfd)
}

// bind opens the configured listener: a pre-opened descriptor when
// ListenFD is set, a UNIX socket when UnixSocket is set, TCP otherwise.
func (a *App) bind() (int, error) {
	switch {
	case a.cfg.ListenFD >= 0:
		a.log.Info().Int("fd", a.cfg.ListenFD).Msg("using pre-opened listener")
		return a.cfg.ListenFD, nil
	case a.cfg.UnixSocket != "":
		a.log.Info().Str("path", a.cfg.UnixSocket).Msg("listening on unix socket")
		return prefork.ListenUnix(a.cfg.UnixSocket, a.cfg.UnixSocketMode, a.cfg.Backlog)
	default:
		a.log.Info().Str("host", a.cfg.Host).Int("port", a.cfg.Port).Msg("listening on tcp")
		return prefork.ListenTCP(a.cfg.Host, a.cfg.Port, a.cfg.Backlog)
	}
}

// closeListener releases a listener Run opened itself: inherited
// descriptors stay open, self-bound UNIX socket files are unlinked.
func (a *App) closeListener(lfd int) {
	if a.cfg.ListenFD >= 0 {
		return
	}
	unix.Close(lfd)
	if a.cfg.UnixSocket != "" {
		os.Remove(a.cfg.UnixSocket)
	}
}
