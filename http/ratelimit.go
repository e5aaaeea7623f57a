package http

import (
	"context"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Backoff bounds applied after 429/503 responses.
const (
	InitialRateLimitBackoff = 1 * time.Second
	MaxRateLimitBackoff     = 60 * time.Second
	RateLimitMultiplier     = 2.0
	// BackoffCooldownPeriod is how long after the last error the original rate is restored.
	BackoffCooldownPeriod = 5 * time.Minute
	// MinRPSMultiplier is the lowest fraction of the configured rate used while backing off.
	MinRPSMultiplier = 0.25
)

// RateLimiter is a per-host token bucket. It is safe for concurrent use, so a
// caller running items in parallel can share one limiter and still keep the
// overall request rate bounded.
type RateLimiter struct {
	limiters     map[string]*rate.Limiter
	backoffState map[string]*BackoffState
	mu           sync.RWMutex
	config       RateLimiterConfig
}

// BackoffState tracks rate limit backoff for a host.
type BackoffState struct {
	CurrentBackoff    time.Duration
	LastError         time.Time
	ConsecutiveErrors int
	OriginalRPS       float64
	ReducedRPS        float64
}

// RateLimiterConfig defines rate limiting behavior.
type RateLimiterConfig struct {
	// RPS is the request rate per host. 0 disables the token bucket; the
	// jitter pause before each attempt is then the only throttle.
	RPS float64
	// CustomRates maps host names to RPS values.
	CustomRates map[string]float64
	// EnableDynamicBackoff lowers a host's rate after 429/503 responses.
	EnableDynamicBackoff bool
}

// DefaultRateLimiterConfig keeps the token bucket off and backoff on.
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		CustomRates:          make(map[string]float64),
		EnableDynamicBackoff: true,
	}
}

// NewRateLimiter creates a new rate limiter with the given configuration.
func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	if cfg.CustomRates == nil {
		cfg.CustomRates = make(map[string]float64)
	}
	return &RateLimiter{
		limiters:     make(map[string]*rate.Limiter),
		backoffState: make(map[string]*BackoffState),
		config:       cfg,
	}
}

// Wait blocks until the host's bucket yields a token or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context, urlStr string) error {
	if rl == nil {
		return nil
	}
	limiter := rl.getLimiter(hostOf(urlStr))
	if limiter == nil {
		return nil
	}
	return limiter.Wait(ctx)
}

func (rl *RateLimiter) getLimiter(host string) *rate.Limiter {
	rps := rl.getRPS(host)
	if rps == 0 {
		return nil
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if limiter, ok := rl.limiters[host]; ok {
		return limiter
	}
	limiter := rate.NewLimiter(rate.Limit(rps), 1)
	rl.limiters[host] = limiter
	return limiter
}

func (rl *RateLimiter) getRPS(host string) float64 {
	if rps, ok := rl.config.CustomRates[host]; ok {
		return rps
	}
	return rl.config.RPS
}

// RecordRateLimitError records a 429/503 for the host of urlStr and returns
// the backoff to honour before the next request.
func (rl *RateLimiter) RecordRateLimitError(urlStr string, retryAfter time.Duration) time.Duration {
	if rl == nil || !rl.config.EnableDynamicBackoff {
		if retryAfter > 0 {
			return retryAfter
		}
		return InitialRateLimitBackoff
	}

	host := hostOf(urlStr)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	state, ok := rl.backoffState[host]
	if !ok {
		state = &BackoffState{
			CurrentBackoff: InitialRateLimitBackoff,
			OriginalRPS:    rl.getRPS(host),
		}
		rl.backoffState[host] = state
	}
	state.LastError = time.Now()
	state.ConsecutiveErrors++

	if state.ConsecutiveErrors > 1 {
		state.CurrentBackoff = time.Duration(float64(state.CurrentBackoff) * RateLimitMultiplier)
		if state.CurrentBackoff > MaxRateLimitBackoff {
			state.CurrentBackoff = MaxRateLimitBackoff
		}
	}
	if retryAfter > state.CurrentBackoff {
		state.CurrentBackoff = retryAfter
	}

	rl.reduceRate(host, state)
	return state.CurrentBackoff
}

// reduceRate lowers the bucket rate: 75%, 50%, then 25% of the original.
// Must be called with mutex held.
func (rl *RateLimiter) reduceRate(host string, state *BackoffState) {
	if state.OriginalRPS == 0 {
		return
	}
	factor := MinRPSMultiplier
	switch state.ConsecutiveErrors {
	case 1:
		factor = 0.75
	case 2:
		factor = 0.5
	}
	state.ReducedRPS = state.OriginalRPS * factor
	if limiter, ok := rl.limiters[host]; ok {
		limiter.SetLimit(rate.Limit(state.ReducedRPS))
	}
}

// RecordSuccess decays the backoff state of the host of urlStr.
func (rl *RateLimiter) RecordSuccess(urlStr string) {
	if rl == nil || !rl.config.EnableDynamicBackoff {
		return
	}
	host := hostOf(urlStr)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	state, ok := rl.backoffState[host]
	if !ok {
		return
	}

	if time.Since(state.LastError) > BackoffCooldownPeriod {
		if limiter, ok := rl.limiters[host]; ok && state.ReducedRPS > 0 {
			limiter.SetLimit(rate.Limit(state.OriginalRPS))
		}
		delete(rl.backoffState, host)
		return
	}

	if state.ConsecutiveErrors > 0 {
		state.ConsecutiveErrors--
	}
}

// GetBackoffState returns a copy of the host's backoff state, or nil.
func (rl *RateLimiter) GetBackoffState(urlStr string) *BackoffState {
	if rl == nil {
		return nil
	}
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	if state, ok := rl.backoffState[hostOf(urlStr)]; ok {
		cp := *state
		return &cp
	}
	return nil
}

// WaitForBackoff waits for the current backoff period to expire.
// Returns immediately if not in backoff state.
func (rl *RateLimiter) WaitForBackoff(ctx context.Context, urlStr string) error {
	state := rl.GetBackoffState(urlStr)
	if state == nil {
		return nil
	}
	remaining := state.CurrentBackoff - time.Since(state.LastError)
	if remaining <= 0 {
		return nil
	}
	return sleepContext(ctx, remaining)
}

func hostOf(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return u.Hostname()
}
