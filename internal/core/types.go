package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"djfriend/pkg/fuzzy"
)

// TrackIdentity is the logical key of a track.
type TrackIdentity struct {
	Artist string `json:"artist"`
	Title  string `json:"title"`
}

// Same reports whether both identities name the same track after artist
// canonicalization and title normalization. Titles that normalize to nothing
// (for example non-Latin scripts) fall back to a case-insensitive comparison.
func (t TrackIdentity) Same(other TrackIdentity) bool {
	if fuzzy.NormalizeArtist(t.Artist) != fuzzy.NormalizeArtist(other.Artist) {
		return false
	}

	a, b := fuzzy.NormalizeTitle(t.Title), fuzzy.NormalizeTitle(other.Title)
	if a == "" && b == "" {
		return strings.EqualFold(strings.TrimSpace(t.Title), strings.TrimSpace(other.Title))
	}
	return a == b
}

func (t TrackIdentity) IsZero() bool {
	return strings.TrimSpace(t.Artist) == "" && strings.TrimSpace(t.Title) == ""
}

func (t TrackIdentity) String() string {
	return FallbackText(t)
}

// FallbackText is the textual stand-in used when no link can be resolved.
func FallbackText(t TrackIdentity) string {
	return fmt.Sprintf("%s - %s", t.Artist, t.Title)
}

type PlaybackStatus int

const (
	// StatusIdle is the state of a session that has not reported playback yet
	StatusIdle PlaybackStatus = iota
	// StatusPlaying indicates the source is actively playing
	StatusPlaying
	// StatusPaused indicates the source is paused
	StatusPaused
	// StatusStopped indicates the source stopped playback
	StatusStopped
)

func (s PlaybackStatus) String() string {
	switch s {
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	case StatusStopped:
		return "stopped"
	default:
		return "idle"
	}
}

// ParsePlaybackStatus maps "playing", "paused" and "stopped" (any case) to a status.
func ParsePlaybackStatus(s string) (PlaybackStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "playing":
		return StatusPlaying, nil
	case "paused":
		return StatusPaused, nil
	case "stopped":
		return StatusStopped, nil
	default:
		return StatusIdle, fmt.Errorf("unknown playback status %q", s)
	}
}

// PlaybackEvent is reported by a playback observer whenever a source's
// track or playback state changes.
type PlaybackEvent struct {
	SourceID string
	Artist   string
	Title    string
	Duration time.Duration
	Status   PlaybackStatus
}

func (e PlaybackEvent) Identity() TrackIdentity {
	return TrackIdentity{Artist: e.Artist, Title: e.Title}
}

// SourceSession is the arbiter's view of one connected playback source.
type SourceSession struct {
	SourceID   string         `json:"source_id"`
	State      PlaybackStatus `json:"-"`
	LastActive time.Time      `json:"last_active"`
}

// NowPlayingTrack is the single accepted track.
type NowPlayingTrack struct {
	Artist        string `json:"artist"`
	Title         string `json:"title"`
	OwnerSourceID string `json:"owner_source_id"`
}

func (n NowPlayingTrack) Identity() TrackIdentity {
	return TrackIdentity{Artist: n.Artist, Title: n.Title}
}

type Tier string

const (
	// TierSimilarTracks is tier A: tracks similar to the seed
	TierSimilarTracks Tier = "similar_tracks"
	// TierSimilarArtists is tier B: top tracks of artists similar to the seed artist
	TierSimilarArtists Tier = "similar_artists"
	// TierArtistTopTracks is tier C: other popular tracks by the seed artist
	TierArtistTopTracks Tier = "artist_top_tracks"
)

// SuggestionCandidate is one recommended track. Score is only set for
// candidates that came with a provider similarity score.
type SuggestionCandidate struct {
	Artist   string   `json:"artist"`
	Title    string   `json:"title"`
	Score    *float64 `json:"score,omitempty"`
	Tier     Tier     `json:"tier"`
	IsLocal  bool     `json:"is_local"`
	LocalRef string   `json:"local_ref,omitempty"`
}

func (c SuggestionCandidate) Identity() TrackIdentity {
	return TrackIdentity{Artist: c.Artist, Title: c.Title}
}

type PoolStatus string

const (
	// PoolPending means a computation for the owner track is in flight
	PoolPending PoolStatus = "pending"
	// PoolReady means the candidates are final (possibly empty)
	PoolReady PoolStatus = "ready"
	// PoolNoSeedMatch means the metadata provider does not know the owner track
	PoolNoSeedMatch PoolStatus = "no_seed_match"
)

// Token identifies one recommendation computation. A result is only
// published while its token is still the store's current token.
type Token struct {
	Track      TrackIdentity
	Generation uint64
	ID         string
}

func (t Token) Matches(other Token) bool {
	return t.Generation == other.Generation && t.ID == other.ID
}

// SuggestionPool is the complete result of one recommendation computation.
// It must not be modified once published.
type SuggestionPool struct {
	Owner        TrackIdentity
	Candidates   []SuggestionCandidate
	Status       PoolStatus
	SeedIsLocal  bool
	SeedLocalRef string
	Token        Token
	CreatedAt    time.Time
}

// TrackInfo is the metadata provider's answer for a known track.
type TrackInfo struct {
	Artist         string
	Title          string
	Listeners      int64
	ListenersKnown bool
}

// SimilarTrack is one entry of a provider's similar-tracks list. Score is in [0,1].
type SimilarTrack struct {
	Artist string
	Title  string
	Score  float64
}

// MetadataProvider is the external music-metadata service used to build suggestions.
type MetadataProvider interface {
	// TrackInfo returns ErrNotFound when the provider does not know the track.
	TrackInfo(ctx context.Context, artist, title string) (*TrackInfo, error)
	SimilarTracks(ctx context.Context, artist, title string, limit int) ([]SimilarTrack, error)
	SimilarArtists(ctx context.Context, artist string, limit int) ([]string, error)
	ArtistTopTracks(ctx context.Context, artist string, limit int) ([]string, error)
}

// SuggestionEngine builds a suggestion pool for a seed track.
type SuggestionEngine interface {
	Recommend(ctx context.Context, seed TrackIdentity) (*SuggestionPool, error)
}

// MetricsRecorder receives operational counters from the core.
type MetricsRecorder interface {
	RecordPlaybackEvent(source, outcome string)
	RecordRecommendation(status string, duration time.Duration)
	RecordCandidate(tier string)
	RecordProviderError(provider, op string)
	RecordLinkResolution(outcome string)
	SetActiveSources(count int)
}

// NopMetrics discards all metrics.
type NopMetrics struct{}

func (NopMetrics) RecordPlaybackEvent(string, string)          {}
func (NopMetrics) RecordRecommendation(string, time.Duration) {}
func (NopMetrics) RecordCandidate(string)                      {}
func (NopMetrics) RecordProviderError(string, string)          {}
func (NopMetrics) RecordLinkResolution(string)                 {}
func (NopMetrics) SetActiveSources(int)                        {}
