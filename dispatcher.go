package irc

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
)

// Errors returned when registering routes.
var (
	ErrInvalidRoute   = errors.New("invalid route")
	ErrDuplicateRoute = errors.New("command already registered")
)

// Source is the inbound side of a connection as seen by a Dispatcher.
// *Conn implements it.
type Source interface {
	TryReceive() (Message, bool)
	HasCrashed() bool
	Err() error
}

// Sender is the outbound side of a connection as seen by handlers.
// *Conn implements it.
type Sender interface {
	Send(Message) error
}

// HandlerFunc handles one message matched by a route.
type HandlerFunc func(ctx context.Context, out Sender, m Message) error

// Route binds a command to a handler together with the parameter contract
// the handler relies on. Messages that break the contract never reach it.
type Route struct {
	Command         string
	MinArgs         int  // positional arguments required
	RequireTrailing bool // trailing argument required
	Handler         HandlerFunc
}

func (r Route) accepts(m Message) bool {
	if len(m.Args) < r.MinArgs {
		return false
	}
	return !r.RequireTrailing || m.HasTrailing
}

// Plugin groups routes registered together.
type Plugin interface {
	Name() string
	Routes() []Route
}

// Dispatcher routes inbound messages to handlers by command.
// Routes are validated when they are registered.
type Dispatcher struct {
	out          Sender
	logger       Logger
	clock        clock.Clock
	pollInterval time.Duration

	mu     sync.RWMutex
	routes map[string]Route
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// DispatcherLoggerOption sets the logger for the dispatcher.
func DispatcherLoggerOption(logger Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// DispatcherClockOption sets the clock used between empty polls.
func DispatcherClockOption(clk clock.Clock) DispatcherOption {
	return func(d *Dispatcher) {
		d.clock = clk
	}
}

// PollIntervalOption sets how long Run sleeps when no message is waiting.
// Default is 50ms.
func PollIntervalOption(interval time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		d.pollInterval = interval
	}
}

// NewDispatcher returns a dispatcher whose handlers reply through out.
func NewDispatcher(out Sender, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		out:          out,
		logger:       defaultLogger(),
		clock:        clock.New(),
		pollInterval: 50 * time.Millisecond,
		routes:       make(map[string]Route),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Register adds a route. Commands are matched case-insensitively.
func (d *Dispatcher) Register(r Route) error {
	r.Command = strings.ToUpper(strings.TrimSpace(r.Command))

	switch {
	case r.Command == "" || strings.ContainsAny(r.Command, " :"):
		return errors.Wrapf(ErrInvalidRoute, "bad command %q", r.Command)
	case r.Handler == nil:
		return errors.Wrapf(ErrInvalidRoute, "%s: nil handler", r.Command)
	case r.MinArgs < 0 || r.MinArgs > MaxArgs:
		return errors.Wrapf(ErrInvalidRoute, "%s: min args %d outside [0, %d]", r.Command, r.MinArgs, MaxArgs)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.routes[r.Command]; ok {
		return errors.Wrap(ErrDuplicateRoute, r.Command)
	}
	d.routes[r.Command] = r

	return nil
}

// RegisterPlugin registers every route of p. On error, routes of p that were
// already added are removed again.
func (d *Dispatcher) RegisterPlugin(p Plugin) error {
	routes := p.Routes()
	if len(routes) == 0 {
		return errors.Wrapf(ErrInvalidRoute, "plugin %s has no routes", p.Name())
	}

	for i, r := range routes {
		if err := d.Register(r); err != nil {
			d.unregister(routes[:i])
			return errors.WithMessagef(err, "plugin %s", p.Name())
		}
	}

	d.logger.Info("plugin registered", "plugin", p.Name(), "routes", len(routes))
	return nil
}

func (d *Dispatcher) unregister(routes []Route) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, r := range routes {
		delete(d.routes, strings.ToUpper(strings.TrimSpace(r.Command)))
	}
}

// Dispatch hands m to its route. It reports whether a handler ran.
func (d *Dispatcher) Dispatch(ctx context.Context, m Message) bool {
	d.mu.RLock()
	r, ok := d.routes[strings.ToUpper(m.Command)]
	d.mu.RUnlock()

	if !ok {
		return false
	}

	if !r.accepts(m) {
		d.logger.Warn("message does not match route contract", "command", r.Command, "message", m.String())
		return false
	}

	if err := r.Handler(ctx, d.out, m); err != nil {
		d.logger.Error("handler failed", "command", r.Command, "error", err)
	}

	return true
}

// Run polls src and dispatches every message until ctx is done or src
// crashes. It never blocks waiting for input: when nothing is queued it
// sleeps for the poll interval and checks again.
func (d *Dispatcher) Run(ctx context.Context, src Source) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		m, ok := src.TryReceive()
		if ok {
			d.Dispatch(ctx, m)
			continue
		}

		if src.HasCrashed() {
			return src.Err()
		}

		timer := d.clock.Timer(d.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
