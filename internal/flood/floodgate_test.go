package flood

import (
	"sync"
	"testing"
	"time"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestFloodgate(t *testing.T, limit int) (*Floodgate, *manualClock) {
	t.Helper()
	clock := &manualClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	fg := New(limit)
	fg.now = clock.Now
	t.Cleanup(fg.Stop)
	return fg, clock
}

func TestFloodgate_Allow_LimitsPerWindow(t *testing.T) {
	fg, _ := newTestFloodgate(t, 3)

	for i := range 3 {
		if !fg.Allow("link", "10.0.0.1") {
			t.Errorf("request %d should be allowed", i+1)
		}
	}
	if fg.Allow("link", "10.0.0.1") {
		t.Error("4th request should be blocked")
	}
}

func TestFloodgate_Allow_SlidingWindow(t *testing.T) {
	fg, clock := newTestFloodgate(t, 2)

	fg.Allow("link", "a")
	clock.Advance(30 * time.Second)
	fg.Allow("link", "a")

	if fg.Allow("link", "a") {
		t.Error("third request inside the window should be blocked")
	}

	// The first request leaves the window, the second is still inside.
	clock.Advance(31 * time.Second)
	if !fg.Allow("link", "a") {
		t.Error("request after the oldest expired should be allowed")
	}
	if fg.Allow("link", "a") {
		t.Error("window should be full again")
	}
}

func TestFloodgate_Allow_KeysAreIndependent(t *testing.T) {
	fg, _ := newTestFloodgate(t, 1)

	tests := []struct {
		scope, client string
	}{
		{"link", "a"},
		{"link", "b"},
		{"events", "a"},
	}

	for _, tt := range tests {
		if !fg.Allow(tt.scope, tt.client) {
			t.Errorf("first request for %s/%s should be allowed", tt.scope, tt.client)
		}
	}
	for _, tt := range tests {
		if fg.Allow(tt.scope, tt.client) {
			t.Errorf("second request for %s/%s should be blocked", tt.scope, tt.client)
		}
	}
}

func TestFloodgate_EdgeCases(t *testing.T) {
	t.Run("Zero limit", func(t *testing.T) {
		fg, _ := newTestFloodgate(t, 0)
		if fg.Allow("link", "a") {
			t.Error("request should be blocked with zero limit")
		}
	})

	t.Run("Negative limit", func(t *testing.T) {
		fg, _ := newTestFloodgate(t, -1)
		if fg.Allow("link", "a") {
			t.Error("request should be blocked with negative limit")
		}
	})

	t.Run("Empty identifiers", func(t *testing.T) {
		fg, _ := newTestFloodgate(t, 1)
		if !fg.Allow("", "") {
			t.Error("first request with empty identifiers should be allowed")
		}
		if fg.Allow("", "") {
			t.Error("second request with empty identifiers should be blocked")
		}
	})

	t.Run("Double stop", func(t *testing.T) {
		fg, _ := newTestFloodgate(t, 1)
		fg.Stop()
		fg.Stop()
	})
}

func TestFloodgate_Cleanup(t *testing.T) {
	fg, clock := newTestFloodgate(t, 1)

	fg.Allow("link", "a")
	clock.Advance(5 * time.Minute)
	fg.Allow("link", "b")
	clock.Advance(6 * time.Minute)

	fg.performCleanup()

	stats := fg.GetStats()
	if stats.ActiveClients != 1 {
		t.Errorf("ActiveClients after cleanup = %d, want 1", stats.ActiveClients)
	}
}

func TestFloodgate_GetStats(t *testing.T) {
	fg, _ := newTestFloodgate(t, 5)

	stats := fg.GetStats()
	if stats.ActiveClients != 0 || stats.LimitPerMinute != 5 || stats.WindowSeconds != 60 {
		t.Errorf("GetStats() = %+v", stats)
	}

	fg.Allow("link", "a")
	fg.Allow("link", "b")
	fg.Allow("events", "a")

	if got := fg.GetStats().ActiveClients; got != 3 {
		t.Errorf("ActiveClients = %d, want 3", got)
	}
}

func TestFloodgate_ConcurrentAccess(t *testing.T) {
	fg := New(10)
	defer fg.Stop()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 5 {
				if fg.Allow("link", "a") {
					mu.Lock()
					allowed++
					mu.Unlock()
				}
				fg.GetStats()
			}
		}()
	}
	wg.Wait()

	if allowed != 10 {
		t.Errorf("allowed %d requests, want exactly 10", allowed)
	}
}
