package notify

import (
	"sync"
	"time"
)

// smsRateLimiter is a sliding-window log of SMS send timestamps, grounded
// on original_source's SMSRateLimiter (a deque pruned to the trailing
// hour). golang.org/x/time/rate is a token-bucket limiter and cannot
// express "no more than N sends in the trailing 60 minutes" without
// reshaping the semantics, so this stays a hand-rolled mutex-guarded
// slice rather than reaching for that package (see DESIGN.md).
type smsRateLimiter struct {
	mu        sync.Mutex
	sends     []time.Time
	limit     int
	window    time.Duration
}

func newSMSRateLimiter(limit int) *smsRateLimiter {
	return &smsRateLimiter{limit: limit, window: time.Hour}
}

func (r *smsRateLimiter) prune(now time.Time) {
	cutoff := now.Add(-r.window)
	i := 0
	for ; i < len(r.sends); i++ {
		if r.sends[i].After(cutoff) {
			break
		}
	}
	r.sends = r.sends[i:]
}

// CanSend reports whether another SMS may be sent right now.
func (r *smsRateLimiter) CanSend() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prune(time.Now())
	return len(r.sends) < r.limit
}

// RecordSend registers that an SMS was just sent.
func (r *smsRateLimiter) RecordSend() {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	r.prune(now)
	r.sends = append(r.sends, now)
}

// Remaining reports how many more sends are allowed in the current window.
func (r *smsRateLimiter) Remaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prune(time.Now())
	remaining := r.limit - len(r.sends)
	if remaining < 0 {
		return 0
	}
	return remaining
}
