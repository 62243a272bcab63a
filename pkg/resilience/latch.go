// Copyright 2026 © The Dirigent Authors
// SPDX-License-Identifier: Apache-2.0

// Package resilience provides the timeout, retry, and degradation-latch
// primitives used by the orchestration pipeline.
package resilience

import (
	"sync"
	"time"
)

// Latch is a process-wide one-way degradation flag. It starts open (not
// tripped), trips on the first primary-path failure, and never resets on its
// own for the remainder of the process lifetime. Tests may call Reset.
//
// Unlike a circuit breaker there is no half-open probe: once the primary path
// is judged unreliable it is abandoned, not retried.
type Latch struct {
	mu        sync.RWMutex
	tripped   bool
	trippedAt time.Time
	reason    string
}

// NewLatch returns an untripped latch.
func NewLatch() *Latch {
	return &Latch{}
}

// Trip sets the latch. The first call records the reason and time; later
// calls are no-ops so the original failure is preserved.
func (l *Latch) Trip(reason string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.tripped {
		return
	}
	l.tripped = true
	l.trippedAt = time.Now().UTC()
	l.reason = reason
}

// Tripped reports whether the latch has been set.
func (l *Latch) Tripped() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.tripped
}

// Reason returns the recorded trip reason and time, if tripped.
func (l *Latch) Reason() (string, time.Time) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.reason, l.trippedAt
}

// Reset clears the latch. Intended for tests; production code never recovers
// the primary path within a process lifetime.
func (l *Latch) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tripped = false
	l.trippedAt = time.Time{}
	l.reason = ""
}
