// Package globaltime is the process-wide clock. Production code reads it
// through Now or UTC; tests pin it with SetMockTime so window arithmetic
// stays reproducible.
package globaltime

import (
	"sync"
	"time"
)

var (
	mu    sync.RWMutex
	clock = time.Now
)

// Now returns the current time, or the pinned mock time during tests.
func Now() time.Time {
	mu.RLock()
	defer mu.RUnlock()
	return clock()
}

// UTC returns Now in UTC. Every persisted timestamp goes through here.
func UTC() time.Time {
	return Now().UTC()
}

// SetMockTime pins the clock to a fixed instant. Pair with ResetTime in a
// test cleanup.
func SetMockTime(t time.Time) {
	mu.Lock()
	defer mu.Unlock()
	clock = func() time.Time { return t }
}

// ResetTime restores the wall clock.
func ResetTime() {
	mu.Lock()
	defer mu.Unlock()
	clock = time.Now
}
