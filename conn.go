// Package irc is a client side engine for the IRC line protocol.
// It owns a TCP connection, turns the inbound byte stream into Messages and
// turns Send calls into validated, framed and flood controlled wire lines.
package irc

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding"
)

// crashRecord holds the first fault of one worker. It is never cleared.
type crashRecord struct {
	once sync.Once
	err  atomic.Pointer[FaultError]
	done chan struct{}
}

func newCrashRecord() *crashRecord {
	return &crashRecord{done: make(chan struct{})}
}

func (r *crashRecord) load() error {
	if f := r.err.Load(); f != nil {
		return f
	}
	return nil
}

// Conn represents a client connection to an IRC server.
// It owns the TCP connection, the inbound and outbound queues and the two
// worker goroutines that move lines between the queues and the socket.
type Conn struct {
	id      string
	rawConn *net.TCPConn
	logger  Logger
	opts    options

	text     *textCodec
	inbound  *fifo[Message]
	outbound *fifo[[]byte]
	metrics  *metrics

	readerCrash *crashRecord
	senderCrash *crashRecord

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	group   errgroup.Group
	done    chan struct{}

	writerDone chan struct{} // closed when the write loop returns

	sendClosed atomic.Bool // Send rejects new lines
	closing    atomic.Bool // socket errors are expected, not crashes
	closed     atomic.Bool
}

// Dial connects to the server described by cfg and returns a Conn that is
// ready to Start. Options override the matching Config fields.
func Dial(ctx context.Context, cfg Config, opt ...Option) (*Conn, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	enc, err := LookupEncoding(cfg.Encoding)
	if err != nil {
		return nil, err
	}

	var given options
	for _, o := range opt {
		o(&given)
	}

	base := []Option{EncodingOption(enc), IdleTimeoutOption(cfg.IdleTimeout)}
	if given.policy == nil {
		policy, err := NewFloodPolicy(cfg.Flood, given.clock)
		if err != nil {
			return nil, err
		}
		base = append(base, FloodPolicyOption(policy))
	}
	opt = append(base, opt...)

	dialer := net.Dialer{
		Timeout:   cfg.ConnectTimeout,
		KeepAlive: -1, // keepalive is applied below, only when asked for
	}
	if cfg.BindAddress != "" || cfg.BindPort != 0 {
		dialer.LocalAddr = &net.TCPAddr{IP: net.ParseIP(cfg.BindAddress), Port: cfg.BindPort}
	}

	raw, err := dialer.DialContext(ctx, "tcp", cfg.Addr())
	if err != nil {
		return nil, newFault("dial", err)
	}
	tcpConn := raw.(*net.TCPConn)

	if cfg.KeepAlive {
		if err = enableKeepAlive(tcpConn); err != nil {
			_ = tcpConn.Close()
			return nil, newFault("dial", errors.Wrap(err, "enable keepalive"))
		}
	}

	conn, err := NewConn(tcpConn, opt...)
	if err != nil {
		_ = tcpConn.Close()
		return nil, err
	}

	return conn, nil
}

// NewConn creates a new connection wrapper around the given TCP connection.
// It applies the provided options and validates them before returning.
func NewConn(conn *net.TCPConn, opt ...Option) (*Conn, error) {
	var opts options
	for _, o := range opt {
		o(&opts)
	}

	if err := checkOptions(&opts); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	m := newMetrics(id)
	if err := m.register(opts.registry); err != nil {
		m.unregister(opts.registry)
		return nil, errors.Wrap(err, "register metrics")
	}

	return &Conn{
		id:          id,
		rawConn:     conn,
		logger:      connLogger{Logger: opts.logger, id: id},
		opts:        opts,
		text:        newTextCodec(opts.encoding),
		inbound:     newFIFO[Message](),
		outbound:    newFIFO[[]byte](),
		metrics:     m,
		readerCrash: newCrashRecord(),
		senderCrash: newCrashRecord(),
		done:        make(chan struct{}),
		writerDone:  make(chan struct{}),
	}, nil
}

// Start launches the read and write loops and returns immediately.
// The loops run until ctx is canceled, the connection is closed or the
// socket fails. A failed loop does not stop the other one; poll HasCrashed.
func (c *Conn) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return ErrConnectionClosed
	}
	if c.started {
		return ErrAlreadyStarted
	}
	c.started = true

	c.logger.Info("connection established", "addr", c.Addr())
	c.logger.Debug("connection options",
		"read_buffer_size", c.opts.readBufferSize,
		"max_line_length", c.opts.maxLineLength,
		"idle_timeout", c.opts.idleTimeout)

	ctx, c.cancel = context.WithCancel(ctx)

	c.group.Go(func() error {
		return c.readLoop(ctx)
	})

	c.group.Go(func() error {
		defer close(c.writerDone)
		// nothing queued from now on would ever be written
		defer c.sendClosed.Store(true)
		return c.writeLoop(ctx)
	})

	go func() {
		err := c.group.Wait()
		if err != nil && !errors.Is(err, context.Canceled) {
			c.logger.Info("connection stopped with error", "addr", c.Addr(), "error", err)
		} else {
			c.logger.Info("connection stopped", "addr", c.Addr())
		}
		close(c.done)
	}()

	return nil
}

// Wait blocks until both loops have returned and reports the recorded faults.
// It returns immediately if the connection was never started.
func (c *Conn) Wait() error {
	c.mu.Lock()
	started := c.started
	c.mu.Unlock()

	if started {
		<-c.done
	}
	return c.Err()
}

// Shutdown stops the connection in order: new sends are refused, queued
// lines are written, the read loop is stopped and the socket is closed.
// If ctx ends before the queue is drained the remaining lines are dropped.
func (c *Conn) Shutdown(ctx context.Context) error {
	c.sendClosed.Store(true)

	c.mu.Lock()
	started := c.started
	c.mu.Unlock()

	var err error
	if started && !c.closed.Load() {
		err = c.Drain(ctx)
	}

	return multierr.Append(err, c.Close())
}

// Close stops both loops and closes the underlying TCP connection without
// waiting for queued lines. Safe to call multiple times.
func (c *Conn) Close() error {
	if c.closed.Swap(true) {
		return nil // already closed
	}
	c.sendClosed.Store(true)
	c.closing.Store(true)

	c.mu.Lock()
	cancel := c.cancel
	started := c.started
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	err := c.rawConn.Close()
	if started {
		<-c.done
	}
	c.metrics.unregister(c.opts.registry)

	return err
}

// IsClosed returns true if the connection has been closed.
func (c *Conn) IsClosed() bool {
	return c.closed.Load()
}

// TryReceive returns the oldest received message without blocking.
// The boolean is false when nothing is waiting.
func (c *Conn) TryReceive() (Message, bool) {
	return c.inbound.TryPop()
}

// HasCrashed reports whether the read or the write loop stopped on a socket fault.
func (c *Conn) HasCrashed() bool {
	return c.readerCrash.load() != nil || c.senderCrash.load() != nil
}

// Err returns the recorded faults of both loops, or nil if neither crashed.
func (c *Conn) Err() error {
	return multierr.Combine(c.readerCrash.load(), c.senderCrash.load())
}

// SetEncoding switches the text encoding of both directions.
// Lines already queued keep the encoding they were sent with.
func (c *Conn) SetEncoding(enc encoding.Encoding) {
	c.text.set(enc)
}

// SetEncodingName is SetEncoding for an encoding looked up by name.
func (c *Conn) SetEncodingName(name string) error {
	enc, err := LookupEncoding(name)
	if err != nil {
		return err
	}
	c.SetEncoding(enc)
	return nil
}

// SetWaitCoefficient recalibrates the quadratic flood policy.
// It fails with ErrPolicyNotQuadratic when another policy is in use.
func (c *Conn) SetWaitCoefficient(baseDelay time.Duration, messagesPerMinute, burst float64) error {
	policy, ok := c.opts.policy.(*QuadraticPolicy)
	if !ok {
		return ErrPolicyNotQuadratic
	}

	wc, err := NewWaitCoefficients(baseDelay, messagesPerMinute, burst)
	if err != nil {
		return err
	}

	policy.SetCoefficients(wc)
	c.logger.Debug("wait coefficients updated", "a", wc.A, "b", wc.B, "c", wc.C)

	return nil
}

// ID returns the identifier used in logs and metric labels.
func (c *Conn) ID() string {
	return c.id
}

// Addr returns the remote address of the connection.
func (c *Conn) Addr() net.Addr {
	return c.rawConn.RemoteAddr()
}

// crash records err as the worker's fault, unless one is already recorded,
// and returns it.
func (c *Conn) crash(r *crashRecord, worker string, err *FaultError) error {
	r.once.Do(func() {
		r.err.Store(err)
		close(r.done)
		c.metrics.faults.WithLabelValues(worker).Inc()
		c.logger.Error("worker crashed", "worker", worker, "error", err)
	})
	return r.load()
}
