// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package server

import (
	"sync"
	"time"
)

// maxTrackedKeys bounds the rate limiter's memory use the same way
// upspin's serverutil.RateLimiter bounds its visitor map: once the
// tracked-key count exceeds this, entries whose window has expired are
// swept. Entries still inside their window are kept, so the map can
// grow past this bound.
const maxTrackedKeys = 100000

// rateLimiter is a fixed-window request counter: at most Limit
// occurrences of a key are permitted within any Window, counting from
// the first occurrence seen in the current window.
type rateLimiter struct {
	limit  int
	window time.Duration

	mu sync.Mutex
	m  map[string]*windowCount
}

type windowCount struct {
	count      int
	windowFrom time.Time
}

// newRateLimiter returns a rateLimiter permitting at most limit
// occurrences of any key per window. limit <= 0 disables the limiter —
// every call to allow reports true.
func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{limit: limit, window: window, m: make(map[string]*windowCount)}
}

// allow reports whether key may proceed under the current window, and
// increments its count as a side effect when it does.
func (r *rateLimiter) allow(key string) bool {
	if r.limit <= 0 {
		return true
	}

	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	wc, ok := r.m[key]
	if !ok || now.Sub(wc.windowFrom) >= r.window {
		wc = &windowCount{count: 0, windowFrom: now}
		r.m[key] = wc
	}

	if wc.count >= r.limit {
		return false
	}
	wc.count++

	if len(r.m) > maxTrackedKeys {
		r.evictExpiredLocked(now)
	}
	return true
}

func (r *rateLimiter) evictExpiredLocked(now time.Time) {
	for k, wc := range r.m {
		if now.Sub(wc.windowFrom) >= r.window {
			delete(r.m, k)
		}
	}
}
