package ratelimit

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeClock returns a limiter whose clock the test advances by hand.
func fakeClock(rate float64, burst int) (*Limiter, func(time.Duration)) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewLimiter(rate, burst)
	l.nowFunc = func() time.Time { return now }
	return l, func(d time.Duration) { now = now.Add(d) }
}

func TestPerMinute(t *testing.T) {
	l := PerMinute(30, 4)
	if l.rate != 0.5 {
		t.Errorf("rate = %v, want 0.5", l.rate)
	}
	if l.burst != 4 {
		t.Errorf("burst = %d, want 4", l.burst)
	}
}

func TestAllow(t *testing.T) {
	tests := []struct {
		name    string
		rate    float64
		burst   int
		calls   int
		advance time.Duration
		then    int // calls after advancing
		want    []bool
	}{
		{"within burst", 1, 3, 3, 0, 0, []bool{true, true, true}},
		{"exceeds burst", 1, 2, 3, 0, 0, []bool{true, true, false}},
		{"refills", 10, 2, 3, 200 * time.Millisecond, 1, []bool{true, true, false, true}},
		{"partial refill", 2, 5, 3, 250 * time.Millisecond, 1, []bool{true, true, true, true}},
		{"capped at burst", 100, 3, 3, 10 * time.Second, 4, []bool{true, true, true, true, true, true, false}},
		{"zero rate never refills", 0, 2, 3, time.Hour, 1, []bool{true, true, false, false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, advance := fakeClock(tt.rate, tt.burst)
			var got []bool
			for i := 0; i < tt.calls; i++ {
				got = append(got, l.Allow("k"))
			}
			advance(tt.advance)
			for i := 0; i < tt.then; i++ {
				got = append(got, l.Allow("k"))
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d results, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("call %d = %v, want %v", i+1, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestAllow_IndependentKeys(t *testing.T) {
	l := NewLimiter(1, 1)
	l.Allow("a")
	if l.Allow("a") {
		t.Error("key a should be exhausted")
	}
	if !l.Allow("b") {
		t.Error("key b should have its own bucket")
	}
}

func TestAllow_Concurrent(t *testing.T) {
	l, _ := fakeClock(1000, 100)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow("k") {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 100 {
		t.Errorf("allowed %d calls with a frozen clock, want 100", allowed)
	}
}

func TestNewToolLimiters(t *testing.T) {
	limiters := NewToolLimiters()

	tests := []struct {
		tool  string
		burst int
	}{
		{ToolListScenarios, 10},
		{ToolResolveParameters, 5},
		{ToolRunScenario, 2},
	}
	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			l, ok := limiters[tt.tool]
			if !ok {
				t.Fatalf("no limiter for %s", tt.tool)
			}
			if l.burst != tt.burst {
				t.Errorf("burst = %d, want %d", l.burst, tt.burst)
			}
		})
	}
}

func TestCheckLimit(t *testing.T) {
	limiters := NewToolLimiters()

	if err := CheckLimit(limiters, "unknown_tool"); err != nil {
		t.Errorf("unknown tool limited: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := CheckLimit(limiters, ToolRunScenario); err != nil {
			t.Fatalf("call %d limited: %v", i+1, err)
		}
	}

	err := CheckLimit(limiters, ToolRunScenario)
	var le *LimitError
	if !errors.As(err, &le) {
		t.Fatalf("CheckLimit() error = %v, want *LimitError", err)
	}
	if le.Tool != ToolRunScenario {
		t.Errorf("Tool = %q, want %q", le.Tool, ToolRunScenario)
	}
	if le.RetryAfter <= 0 || le.RetryAfter > 10*time.Second {
		t.Errorf("RetryAfter = %v, want (0, 10s]", le.RetryAfter)
	}
}

func TestLimitError_Error(t *testing.T) {
	tests := []struct {
		err  LimitError
		want string
	}{
		{LimitError{Tool: "x"}, "rate limit exceeded for x"},
		{LimitError{Tool: "x", RetryAfter: 1500 * time.Millisecond}, "rate limit exceeded for x, retry in 1.5s"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}
