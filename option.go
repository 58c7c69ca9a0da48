package irc

import (
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/text/encoding"
)

// options holds the configuration for a connection.
type options struct {
	logger   Logger
	policy   FloodPolicy
	clock    clock.Clock
	encoding encoding.Encoding
	registry prometheus.Registerer

	readBufferSize int           // bytes requested per socket read
	maxLineLength  int           // maximum size of a partial inbound line
	idleTimeout    time.Duration // read/write deadline, zero disables
}

// Default configuration values.
const (
	// defaultReadBufferSize is the number of bytes requested per read.
	defaultReadBufferSize = 1024
	// defaultMaxLineLength bounds an inbound line still waiting for its terminator (16KB).
	defaultMaxLineLength = 16 * 1024
)

// Option is a function that configures connection options.
type Option func(*options)

// LoggerOption returns an Option that sets the logger.
// If not set, the default slog logger will be used.
func LoggerOption(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// FloodPolicyOption returns an Option that sets the policy pacing outbound lines.
// It takes precedence over the flood section of Config.
func FloodPolicyOption(policy FloodPolicy) Option {
	return func(o *options) {
		o.policy = policy
	}
}

// ClockOption returns an Option that sets the clock used for pacing.
func ClockOption(clk clock.Clock) Option {
	return func(o *options) {
		o.clock = clk
	}
}

// EncodingOption returns an Option that sets the initial text encoding.
func EncodingOption(enc encoding.Encoding) Option {
	return func(o *options) {
		o.encoding = enc
	}
}

// MetricsOption returns an Option that registers the connection's collectors on reg.
func MetricsOption(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registry = reg
	}
}

// ReadBufferSizeOption returns an Option that sets how many bytes are requested per read.
func ReadBufferSizeOption(size int) Option {
	return func(o *options) {
		o.readBufferSize = size
	}
}

// MaxLineLengthOption returns an Option that sets the largest inbound line accepted.
// A longer line is a connection fault.
func MaxLineLengthOption(size int) Option {
	return func(o *options) {
		o.maxLineLength = size
	}
}

// IdleTimeoutOption returns an Option that sets the read and write deadline.
// A connection silent for longer than the timeout faults. Zero disables it.
func IdleTimeoutOption(timeout time.Duration) Option {
	return func(o *options) {
		o.idleTimeout = timeout
	}
}

// checkOptions validates and sets default values for connection options.
func checkOptions(opts *options) error {
	if opts.readBufferSize <= 0 {
		opts.readBufferSize = defaultReadBufferSize
	}

	if opts.maxLineLength <= 0 {
		opts.maxLineLength = defaultMaxLineLength
	}

	if opts.idleTimeout < 0 {
		opts.idleTimeout = 0
	}

	if opts.clock == nil {
		opts.clock = clock.New()
	}

	if opts.encoding == nil {
		opts.encoding = DefaultEncoding
	}

	if opts.policy == nil {
		policy, err := NewFloodPolicy(DefaultFloodConfig(), opts.clock)
		if err != nil {
			return err
		}
		opts.policy = policy
	}

	if opts.logger == nil {
		opts.logger = defaultLogger()
	}

	return nil
}
