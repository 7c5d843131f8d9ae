// Package flood provides per-client request rate limiting for the public API.
package flood

import (
	"sync"
	"time"
)

const (
	// windowDuration is the sliding window for rate limiting
	windowDuration = 60 * time.Second
	// cleanupInterval is how often idle clients are dropped
	cleanupInterval = 10 * time.Minute
	// idleTimeout is how long a client may stay silent before its entry is removed
	idleTimeout = 10 * time.Minute
)

// Floodgate limits requests per client and scope over a one-minute sliding window.
type Floodgate struct {
	limitPerMinute int
	entries        map[string]*clientEntry // Key: "scope:client"
	mutex          sync.RWMutex
	now            func() time.Time
	stopCleanup    chan struct{}
	stopOnce       sync.Once
}

type clientEntry struct {
	timestamps []time.Time
	lastSeen   time.Time
}

// New creates a Floodgate allowing limitPerMinute requests per client and
// scope. A limit of zero or less blocks every request.
func New(limitPerMinute int) *Floodgate {
	fg := &Floodgate{
		limitPerMinute: limitPerMinute,
		entries:        make(map[string]*clientEntry),
		now:            time.Now,
		stopCleanup:    make(chan struct{}),
	}

	go fg.cleanup()

	return fg
}

// Stop stops the background cleanup goroutine. It is safe to call more than once.
func (fg *Floodgate) Stop() {
	fg.stopOnce.Do(func() { close(fg.stopCleanup) })
}

// Allow records a request from client within scope and reports whether it is
// within the limit. Rejected requests do not count against the window.
func (fg *Floodgate) Allow(scope, client string) bool {
	key := scope + ":" + client

	fg.mutex.Lock()
	defer fg.mutex.Unlock()

	now := fg.now()

	entry, exists := fg.entries[key]
	if !exists {
		entry = &clientEntry{
			timestamps: make([]time.Time, 0, max(fg.limitPerMinute, 0)+1),
		}
		fg.entries[key] = entry
	}
	entry.lastSeen = now

	windowStart := now.Add(-windowDuration)
	valid := entry.timestamps[:0]
	for _, ts := range entry.timestamps {
		if ts.After(windowStart) {
			valid = append(valid, ts)
		}
	}
	entry.timestamps = valid

	if len(entry.timestamps) >= fg.limitPerMinute {
		return false
	}

	entry.timestamps = append(entry.timestamps, now)
	return true
}

func (fg *Floodgate) cleanup() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			fg.performCleanup()
		case <-fg.stopCleanup:
			return
		}
	}
}

func (fg *Floodgate) performCleanup() {
	fg.mutex.Lock()
	defer fg.mutex.Unlock()

	cutoff := fg.now().Add(-idleTimeout)
	for key, entry := range fg.entries {
		if entry.lastSeen.Before(cutoff) {
			delete(fg.entries, key)
		}
	}
}

// GetStats returns statistics about the floodgate for monitoring/debugging
func (fg *Floodgate) GetStats() Stats {
	fg.mutex.RLock()
	defer fg.mutex.RUnlock()

	return Stats{
		ActiveClients:  len(fg.entries),
		LimitPerMinute: fg.limitPerMinute,
		WindowSeconds:  int(windowDuration.Seconds()),
	}
}

// Stats contains floodgate statistics
type Stats struct {
	ActiveClients  int `json:"active_clients"`
	LimitPerMinute int `json:"limit_per_minute"`
	WindowSeconds  int `json:"window_seconds"`
}
