package core

import (
	"sort"
	"sync"
	"time"
)

// Outcome explains what the arbiter did with a playback event.
type Outcome string

const (
	OutcomeAccepted         Outcome = "accepted"
	OutcomeNotAuthoritative Outcome = "not_authoritative"
	OutcomeIncomplete       Outcome = "incomplete"
	OutcomeUnchanged        Outcome = "unchanged"
	OutcomeNonMusic         Outcome = "non_music"
)

// Decision is the arbiter's verdict for one playback event.
type Decision struct {
	Outcome       Outcome
	Authoritative bool
	Track         NowPlayingTrack
}

func (d Decision) Accepted() bool {
	return d.Outcome == OutcomeAccepted
}

// Arbiter decides which of several concurrently reporting sources owns the
// now-playing track. While any source is playing only playing sources are
// authoritative; otherwise only the most recently active one is.
type Arbiter struct {
	mu         sync.Mutex
	sessions   map[string]*SourceSession
	nowPlaying *NowPlayingTrack
	now        func() time.Time
}

func NewArbiter() *Arbiter {
	return &Arbiter{
		sessions: make(map[string]*SourceSession),
		now:      time.Now,
	}
}

// HandleEvent records the source's playback state and accepts the reported
// track as the new now-playing track when the source is authoritative, the
// track differs from the current one and it classifies as music.
func (a *Arbiter) HandleEvent(ev PlaybackEvent) Decision {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	session, ok := a.sessions[ev.SourceID]
	if !ok {
		session = &SourceSession{SourceID: ev.SourceID, State: StatusIdle}
		a.sessions[ev.SourceID] = session
	}
	if ev.Status != StatusIdle {
		session.State = ev.Status
	}
	if ev.Status == StatusPlaying {
		session.LastActive = now
	}

	if !a.isAuthoritativeLocked(ev.SourceID) {
		return Decision{Outcome: OutcomeNotAuthoritative}
	}

	if ev.Artist == "" || ev.Title == "" {
		return Decision{Outcome: OutcomeIncomplete, Authoritative: true}
	}

	if a.nowPlaying != nil && a.nowPlaying.Identity().Same(ev.Identity()) {
		return Decision{Outcome: OutcomeUnchanged, Authoritative: true, Track: *a.nowPlaying}
	}

	if !IsMusicContent(ev.Title, ev.Duration) {
		return Decision{Outcome: OutcomeNonMusic, Authoritative: true}
	}

	track := NowPlayingTrack{Artist: ev.Artist, Title: ev.Title, OwnerSourceID: ev.SourceID}
	a.nowPlaying = &track
	session.LastActive = now

	return Decision{Outcome: OutcomeAccepted, Authoritative: true, Track: track}
}

func (a *Arbiter) isAuthoritativeLocked(sourceID string) bool {
	anyPlaying := false
	for _, s := range a.sessions {
		if s.State == StatusPlaying {
			anyPlaying = true
			break
		}
	}
	if anyPlaying {
		return a.sessions[sourceID].State == StatusPlaying
	}

	// Ties on LastActive share authority.
	session, ok := a.sessions[sourceID]
	if !ok {
		return len(a.sessions) == 0
	}
	for _, s := range a.sessions {
		if s.LastActive.After(session.LastActive) {
			return false
		}
	}
	return true
}

// mostRecentLocked returns the session with the latest LastActive, breaking
// ties by source ID.
func (a *Arbiter) mostRecentLocked() string {
	var latest *SourceSession
	for _, s := range a.sessions {
		if latest == nil || s.LastActive.After(latest.LastActive) ||
			(s.LastActive.Equal(latest.LastActive) && s.SourceID < latest.SourceID) {
			latest = s
		}
	}
	if latest == nil {
		return ""
	}
	return latest.SourceID
}

// SourceDisconnected removes the source's session. Returns true when the
// source was the most recently active one, so authority changed hands.
func (a *Arbiter) SourceDisconnected(sourceID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.sessions[sourceID]; !ok {
		return false
	}
	wasAuthority := a.mostRecentLocked() == sourceID
	delete(a.sessions, sourceID)
	return wasAuthority
}

// Authority returns the most recently active source, or "" with no sessions.
func (a *Arbiter) Authority() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mostRecentLocked()
}

func (a *Arbiter) NowPlaying() (NowPlayingTrack, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.nowPlaying == nil {
		return NowPlayingTrack{}, false
	}
	return *a.nowPlaying, true
}

// AnyPlaying reports whether at least one source is currently playing.
func (a *Arbiter) AnyPlaying() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, s := range a.sessions {
		if s.State == StatusPlaying {
			return true
		}
	}
	return false
}

// Sessions returns a snapshot of all sessions ordered by source ID.
func (a *Arbiter) Sessions() []SourceSession {
	a.mu.Lock()
	defer a.mu.Unlock()

	sessions := make([]SourceSession, 0, len(a.sessions))
	for _, s := range a.sessions {
		sessions = append(sessions, *s)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].SourceID < sessions[j].SourceID
	})
	return sessions
}

// ClearNowPlaying ends the listening session without forgetting sources.
func (a *Arbiter) ClearNowPlaying() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nowPlaying = nil
}
