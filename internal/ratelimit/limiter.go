// Package ratelimit provides per-key token bucket limits for the MCP tools.
//
// Running a scenario is expensive, so the run tool gets a much smaller budget
// than the read-only catalogue tools.
package ratelimit

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// Tool names served by the MCP server.
const (
	ToolListScenarios     = "sme_list_scenarios"
	ToolResolveParameters = "sme_resolve_parameters"
	ToolRunScenario       = "sme_run_scenario"
)

// Limiter is a per-key token bucket. It is safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    float64 // tokens per second
	burst   int     // bucket capacity, also the starting balance
	nowFunc func() time.Time
}

type bucket struct {
	tokens float64
	last   time.Time
}

// NewLimiter returns a limiter refilling at rate tokens per second up to burst.
func NewLimiter(rate float64, burst int) *Limiter {
	return &Limiter{
		buckets: make(map[string]*bucket),
		rate:    rate,
		burst:   burst,
		nowFunc: time.Now,
	}
}

// PerMinute returns a limiter allowing n calls a minute with the given burst.
func PerMinute(n, burst int) *Limiter {
	return NewLimiter(float64(n)/60.0, burst)
}

// refill tops up the bucket for key and returns it. Caller holds mu.
func (l *Limiter) refill(key string, now time.Time) *bucket {
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(l.burst), last: now}
		l.buckets[key] = b
		return b
	}
	if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens = math.Min(float64(l.burst), b.tokens+l.rate*elapsed)
		b.last = now
	}
	return b
}

// Allow consumes one token for key and reports whether one was available.
func (l *Limiter) Allow(key string) bool {
	_, ok := l.take(key)
	return ok
}

// take consumes a token, or reports how long until one is available.
func (l *Limiter) take(key string) (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.refill(key, l.nowFunc())
	if b.tokens >= 1 {
		b.tokens--
		return 0, true
	}
	if l.rate <= 0 {
		return 0, false
	}
	wait := (1 - b.tokens) / l.rate
	return time.Duration(math.Ceil(wait * float64(time.Second))), false
}

// LimitError reports a rejected tool call.
type LimitError struct {
	Tool string
	// RetryAfter is zero when the limiter never refills.
	RetryAfter time.Duration
}

func (e *LimitError) Error() string {
	if e.RetryAfter <= 0 {
		return fmt.Sprintf("rate limit exceeded for %s", e.Tool)
	}
	return fmt.Sprintf("rate limit exceeded for %s, retry in %s", e.Tool, e.RetryAfter.Round(time.Millisecond))
}

// ToolLimiters maps tool names to their limiters.
type ToolLimiters map[string]*Limiter

// NewToolLimiters returns the default limits for the simulator's tools.
func NewToolLimiters() ToolLimiters {
	return ToolLimiters{
		ToolListScenarios:     PerMinute(60, 10),
		ToolResolveParameters: PerMinute(30, 5),
		ToolRunScenario:       PerMinute(6, 2),
	}
}

// CheckLimit consumes a token for tool. Tools without a limiter always pass.
func CheckLimit(limiters ToolLimiters, tool string) error {
	l, ok := limiters[tool]
	if !ok {
		return nil
	}
	if wait, ok := l.take(tool); !ok {
		return &LimitError{Tool: tool, RetryAfter: wait}
	}
	return nil
}
