package irc

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWaitCoefficients_Defaults(t *testing.T) {
	wc, err := NewWaitCoefficients(2*time.Second, 30, 0)
	require.NoError(t, err)

	// 60/k equals c, so the curve is flat at the base delay
	assert.Equal(t, 0.0, wc.A)
	assert.Equal(t, 0.0, wc.B)
	assert.Equal(t, 2.0, wc.C)
	for n := 0; n < 50; n++ {
		assert.Equal(t, 2*time.Second, wc.Delay(n))
	}
}

func TestNewWaitCoefficients_Formula(t *testing.T) {
	wc, err := NewWaitCoefficients(time.Second, 20, 5)
	require.NoError(t, err)

	k, c, q := 20.0, 1.0, 5.0
	a := -(2 / k) * (60/k - c) / (q - 2*k/3)
	b := (2/k)*(60/k-c) - (2.0/3.0)*a*k

	assert.InDelta(t, a, wc.A, 1e-12)
	assert.InDelta(t, b, wc.B, 1e-12)
	assert.Equal(t, c, wc.C)
}

func TestNewWaitCoefficients_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		base  time.Duration
		rate  float64
		burst float64
	}{
		{"zero rate", time.Second, 0, 0},
		{"negative rate", time.Second, -5, 0},
		{"negative base", -time.Second, 30, 0},
		{"base above ceiling", 3 * time.Second, 30, 0},
		{"singular burst", time.Second, 30, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewWaitCoefficients(tt.base, tt.rate, tt.burst)
			assert.ErrorIs(t, err, ErrInvalidWaitCoefficient)
		})
	}
}

func TestWaitCoefficients_DelayBounds(t *testing.T) {
	cases := []WaitCoefficients{
		{A: 0.5, B: 1, C: 0.25},
		{A: -0.5, B: -1, C: 0.25},
		{A: 0.001, B: -0.3, C: 1},
		{A: 100, B: 100, C: 0},
	}

	for _, wc := range cases {
		floor := time.Duration(wc.C * float64(time.Second))
		for n := 0; n < 1000; n++ {
			d := wc.Delay(n)
			assert.GreaterOrEqual(t, d, floor)
			assert.LessOrEqual(t, d, MaxFloodDelay)
		}
	}

	for _, rate := range []float64{1, 10, 30, 60, 120} {
		for _, burst := range []float64{0, 1, 3, 10} {
			wc, err := NewWaitCoefficients(500*time.Millisecond, rate, burst)
			if err != nil {
				continue
			}
			for n := 0; n < 200; n++ {
				d := wc.Delay(n)
				assert.GreaterOrEqual(t, d, 500*time.Millisecond)
				assert.LessOrEqual(t, d, MaxFloodDelay)
			}
		}
	}
}

func TestQuadraticPolicy_CountsAndDecays(t *testing.T) {
	mock := clock.NewMock()
	wc := WaitCoefficients{A: 0, B: 0.5, C: 0}
	policy := NewQuadraticPolicy(wc, mock)

	assert.Equal(t, 500*time.Millisecond, policy.CalculateDelay(nil))
	assert.Equal(t, time.Second, policy.CalculateDelay(nil))
	assert.Equal(t, 1500*time.Millisecond, policy.CalculateDelay(nil))

	// four idle seconds forgive two messages before this one is counted
	mock.Add(4 * time.Second)
	assert.Equal(t, time.Second, policy.CalculateDelay(nil))

	// a long pause resets the count, only this message is counted
	mock.Add(time.Minute)
	assert.Equal(t, 500*time.Millisecond, policy.CalculateDelay(nil))
}

func TestQuadraticPolicy_SetCoefficients(t *testing.T) {
	policy := NewQuadraticPolicy(WaitCoefficients{C: 1}, clock.NewMock())
	assert.Equal(t, time.Second, policy.CalculateDelay(nil))

	policy.SetCoefficients(WaitCoefficients{C: 0.25})
	assert.Equal(t, 250*time.Millisecond, policy.CalculateDelay(nil))
	assert.Equal(t, 0.25, policy.Coefficients().C)
}

func TestFixedPolicy(t *testing.T) {
	policy := FixedPolicy{Interval: 300 * time.Millisecond}
	assert.Equal(t, 300*time.Millisecond, policy.CalculateDelay([]byte("PING x\r\n")))
}

func TestTokenBucketPolicy(t *testing.T) {
	mock := clock.NewMock()
	policy := NewTokenBucketPolicy(1, 2, mock)

	// the bucket starts full
	assert.Equal(t, time.Duration(0), policy.CalculateDelay(nil))
	assert.Equal(t, time.Duration(0), policy.CalculateDelay(nil))
	assert.Equal(t, time.Second, policy.CalculateDelay(nil))

	mock.Add(10 * time.Second)
	assert.Equal(t, time.Duration(0), policy.CalculateDelay(nil))
}

func TestNewFloodPolicy(t *testing.T) {
	cfg := DefaultFloodConfig()

	policy, err := NewFloodPolicy(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &QuadraticPolicy{}, policy)

	cfg.Mode = ""
	policy, err = NewFloodPolicy(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &QuadraticPolicy{}, policy)

	cfg.Mode = "FIXED"
	policy, err = NewFloodPolicy(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, FixedPolicy{Interval: cfg.Interval}, policy)

	cfg.Mode = FloodModeTokenBucket
	policy, err = NewFloodPolicy(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &TokenBucketPolicy{}, policy)

	cfg.BucketSize = 0
	_, err = NewFloodPolicy(cfg, nil)
	assert.Error(t, err)

	cfg.Mode = "leaky"
	_, err = NewFloodPolicy(cfg, nil)
	assert.ErrorIs(t, err, ErrUnknownFloodMode)
}
