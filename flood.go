package irc

import (
	"math"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// FloodPolicy paces the sender. CalculateDelay is called once after every
// written line and returns how long to wait before the next write.
// Implementations must not block.
type FloodPolicy interface {
	CalculateDelay(line []byte) time.Duration
}

// Flood control modes understood by NewFloodPolicy.
const (
	FloodModeMessageCount = "msg_count"
	FloodModeFixed        = "fixed"
	FloodModeTokenBucket  = "token_bucket"
)

const (
	// MaxFloodDelay caps every delay computed by the quadratic policy.
	MaxFloodDelay = 2 * time.Second
	// floodDecayStep is the idle time that forgives one sent message.
	floodDecayStep = 2 * time.Second
)

// FloodConfig selects and parameterises a FloodPolicy.
type FloodConfig struct {
	Mode string `yaml:"mode" toml:"mode"`

	// msg_count
	BaseDelay         time.Duration `yaml:"base_delay" toml:"base_delay"`
	MessagesPerMinute float64       `yaml:"messages_per_minute" toml:"messages_per_minute"`
	Burst             float64       `yaml:"burst" toml:"burst"`

	// fixed
	Interval time.Duration `yaml:"interval" toml:"interval"`

	// token_bucket
	Rate       float64 `yaml:"rate" toml:"rate"` // lines per second
	BucketSize int     `yaml:"bucket_size" toml:"bucket_size"`
}

// DefaultFloodConfig returns the message count policy tuned for 30 lines per minute.
func DefaultFloodConfig() FloodConfig {
	return FloodConfig{
		Mode:              FloodModeMessageCount,
		BaseDelay:         2 * time.Second,
		MessagesPerMinute: 30,
		Burst:             0,
		Interval:          2 * time.Second,
		Rate:              0.5,
		BucketSize:        5,
	}
}

// NewFloodPolicy builds the policy named by cfg.Mode. A nil clock means the wall clock.
func NewFloodPolicy(cfg FloodConfig, clk clock.Clock) (FloodPolicy, error) {
	if clk == nil {
		clk = clock.New()
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Mode)) {
	case "", FloodModeMessageCount:
		wc, err := NewWaitCoefficients(cfg.BaseDelay, cfg.MessagesPerMinute, cfg.Burst)
		if err != nil {
			return nil, err
		}
		return NewQuadraticPolicy(wc, clk), nil
	case FloodModeFixed:
		if cfg.Interval < 0 {
			return nil, errors.Errorf("negative flood interval %s", cfg.Interval)
		}
		return FixedPolicy{Interval: cfg.Interval}, nil
	case FloodModeTokenBucket:
		if cfg.Rate <= 0 || cfg.BucketSize <= 0 {
			return nil, errors.Errorf("token bucket needs a positive rate and bucket size, got %v/%d", cfg.Rate, cfg.BucketSize)
		}
		return NewTokenBucketPolicy(rate.Limit(cfg.Rate), cfg.BucketSize, clk), nil
	default:
		return nil, errors.Wrapf(ErrUnknownFloodMode, "%q", cfg.Mode)
	}
}

// WaitCoefficients are the terms of the delay curve a·n² + b·n + c, in seconds.
type WaitCoefficients struct {
	A, B, C float64
}

// NewWaitCoefficients derives the curve from the floor delay c, the target rate
// of k messages per minute and the tolerated burst q.
func NewWaitCoefficients(baseDelay time.Duration, messagesPerMinute, burst float64) (WaitCoefficients, error) {
	c := baseDelay.Seconds()
	k := messagesPerMinute
	q := burst

	if k <= 0 {
		return WaitCoefficients{}, errors.Wrapf(ErrInvalidWaitCoefficient, "messages per minute must be positive, got %v", k)
	}
	if baseDelay < 0 || baseDelay > MaxFloodDelay {
		return WaitCoefficients{}, errors.Wrapf(ErrInvalidWaitCoefficient, "base delay %s outside [0, %s]", baseDelay, MaxFloodDelay)
	}

	denom := q - 2*k/3
	if denom == 0 {
		return WaitCoefficients{}, errors.Wrapf(ErrInvalidWaitCoefficient, "burst %v equals two thirds of the rate", q)
	}

	a := -(2 / k) * (60/k - c) / denom
	b := (2/k)*(60/k-c) - (2.0/3.0)*a*k

	if math.IsNaN(a) || math.IsInf(a, 0) || math.IsNaN(b) || math.IsInf(b, 0) {
		return WaitCoefficients{}, errors.Wrapf(ErrInvalidWaitCoefficient, "non-finite coefficients a=%v b=%v", a, b)
	}

	return WaitCoefficients{A: a, B: b, C: c}, nil
}

// Delay returns the wait after n recently sent messages, clamped to [C, MaxFloodDelay].
func (w WaitCoefficients) Delay(n int) time.Duration {
	x := float64(n)
	seconds := w.A*x*x + w.B*x + w.C

	// NaN fails both comparisons below and would slip through.
	if math.IsNaN(seconds) || seconds < w.C {
		seconds = w.C
	}
	if seconds > MaxFloodDelay.Seconds() {
		seconds = MaxFloodDelay.Seconds()
	}

	return time.Duration(seconds * float64(time.Second))
}

// QuadraticPolicy counts recently sent lines and maps the count onto the
// delay curve. The count drops by one for every two idle seconds.
type QuadraticPolicy struct {
	clock clock.Clock

	mu     sync.Mutex
	coeff  WaitCoefficients
	sent   int
	lastAt time.Time
}

// NewQuadraticPolicy returns a policy using wc. A nil clock means the wall clock.
func NewQuadraticPolicy(wc WaitCoefficients, clk clock.Clock) *QuadraticPolicy {
	if clk == nil {
		clk = clock.New()
	}
	return &QuadraticPolicy{clock: clk, coeff: wc, lastAt: clk.Now()}
}

// SetCoefficients replaces the curve. The sent count is kept.
func (p *QuadraticPolicy) SetCoefficients(wc WaitCoefficients) {
	p.mu.Lock()
	p.coeff = wc
	p.mu.Unlock()
}

// Coefficients returns the current curve.
func (p *QuadraticPolicy) Coefficients() WaitCoefficients {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.coeff
}

// CalculateDelay implements FloodPolicy.
func (p *QuadraticPolicy) CalculateDelay(_ []byte) time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.clock.Now()
	idle := now.Sub(p.lastAt)
	p.lastAt = now

	if idle > 0 {
		p.sent -= int(idle / floodDecayStep)
		if p.sent < 0 {
			p.sent = 0
		}
	}
	p.sent++

	return p.coeff.Delay(p.sent)
}

// FixedPolicy waits the same interval after every line.
type FixedPolicy struct {
	Interval time.Duration
}

// CalculateDelay implements FloodPolicy.
func (p FixedPolicy) CalculateDelay(_ []byte) time.Duration {
	return p.Interval
}

// TokenBucketPolicy allows bursts of up to bucket lines and then one line
// per 1/limit seconds.
type TokenBucketPolicy struct {
	clock   clock.Clock
	limiter *rate.Limiter
}

// NewTokenBucketPolicy returns a token bucket policy. A nil clock means the wall clock.
func NewTokenBucketPolicy(limit rate.Limit, bucket int, clk clock.Clock) *TokenBucketPolicy {
	if clk == nil {
		clk = clock.New()
	}
	return &TokenBucketPolicy{clock: clk, limiter: rate.NewLimiter(limit, bucket)}
}

// CalculateDelay implements FloodPolicy. It reserves the token for the next
// line and returns how long until that token is available.
func (p *TokenBucketPolicy) CalculateDelay(_ []byte) time.Duration {
	now := p.clock.Now()
	return p.limiter.ReserveN(now, 1).DelayFrom(now)
}
