package spotify

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/zmb3/spotify/v2"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"djfriend/internal/core"
)

type scriptedPlayer struct {
	states []*spotify.PlayerState
	errs   []error
	calls  int
}

func (p *scriptedPlayer) PlayerState(_ context.Context, _ ...spotify.RequestOption) (*spotify.PlayerState, error) {
	i := min(p.calls, len(p.states)-1)
	p.calls++
	var err error
	if i < len(p.errs) {
		err = p.errs[i]
	}
	return p.states[i], err
}

type recordingSink struct {
	events       []core.PlaybackEvent
	disconnected []string
}

func (s *recordingSink) SubmitEvent(_ context.Context, ev core.PlaybackEvent) (core.Decision, error) {
	s.events = append(s.events, ev)
	return core.Decision{Outcome: core.OutcomeAccepted}, nil
}

func (s *recordingSink) SourceDisconnected(_ context.Context, sourceID string) error {
	s.disconnected = append(s.disconnected, sourceID)
	return nil
}

func state(artist, title string, playing bool) *spotify.PlayerState {
	item := &spotify.FullTrack{}
	item.Name = title
	item.Duration = 240000
	if artist != "" {
		item.Artists = []spotify.SimpleArtist{{Name: artist}}
	}
	ps := &spotify.PlayerState{}
	ps.Item = item
	ps.Playing = playing
	return ps
}

func newTestObserver(player PlayerStateReader, sink EventSink) *Observer {
	config := core.DefaultConfig().Spotify
	return NewObserver(&config, player, sink, zap.NewNop())
}

func TestObserver_ForwardsChangesOnly(t *testing.T) {
	player := &scriptedPlayer{states: []*spotify.PlayerState{
		state("Coldplay", "Clocks", true),
		state("Coldplay", "Clocks", true),
		state("Coldplay", "Clocks", false),
		state("Keane", "Bedshaped", true),
	}}
	sink := &recordingSink{}
	observer := newTestObserver(player, sink)

	for range player.states {
		observer.poll(context.Background())
	}

	if len(sink.events) != 3 {
		t.Fatalf("submitted %d events, want 3: %+v", len(sink.events), sink.events)
	}
	first := sink.events[0]
	if first.SourceID != core.DefaultSpotifySourceID || first.Status != core.StatusPlaying || first.Duration != 4*time.Minute {
		t.Errorf("first event = %+v", first)
	}
	if sink.events[1].Status != core.StatusPaused {
		t.Errorf("second event status = %v, want paused", sink.events[1].Status)
	}
	if sink.events[2].Artist != "Keane" {
		t.Errorf("third event = %+v", sink.events[2])
	}
}

func TestObserver_EmptyPlayerDisconnects(t *testing.T) {
	player := &scriptedPlayer{states: []*spotify.PlayerState{
		{},
		state("Coldplay", "Clocks", true),
		{},
		{},
		state("Coldplay", "Clocks", true),
	}}
	sink := &recordingSink{}
	observer := newTestObserver(player, sink)

	for range player.states {
		observer.poll(context.Background())
	}

	if len(sink.disconnected) != 1 {
		t.Errorf("disconnects = %v, want exactly one", sink.disconnected)
	}
	// The same track after a disconnect is reported again.
	if len(sink.events) != 2 {
		t.Errorf("submitted %d events, want 2", len(sink.events))
	}
}

func TestObserver_ErrorsKeepState(t *testing.T) {
	player := &scriptedPlayer{
		states: []*spotify.PlayerState{state("Coldplay", "Clocks", true), nil, state("Coldplay", "Clocks", true)},
		errs:   []error{nil, errors.New("502"), nil},
	}
	sink := &recordingSink{}
	observer := newTestObserver(player, sink)

	for range player.states {
		observer.poll(context.Background())
	}

	if len(sink.events) != 1 || len(sink.disconnected) != 0 {
		t.Errorf("events = %d, disconnects = %d; a failed poll should change nothing", len(sink.events), len(sink.disconnected))
	}
}

func TestObserver_RunDisconnectsOnShutdown(t *testing.T) {
	player := &scriptedPlayer{states: []*spotify.PlayerState{state("Coldplay", "Clocks", true)}}
	sink := &recordingSink{}
	observer := newTestObserver(player, sink)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := observer.Run(ctx); err != nil {
		t.Fatalf("Run() unexpected error: %v", err)
	}

	if len(sink.disconnected) != 1 || sink.disconnected[0] != core.DefaultSpotifySourceID {
		t.Errorf("disconnects = %v", sink.disconnected)
	}
}

func TestEventFromState(t *testing.T) {
	tests := []struct {
		name       string
		state      *spotify.PlayerState
		wantOK     bool
		wantArtist string
	}{
		{"Nil state", nil, false, ""},
		{"No item", &spotify.PlayerState{}, false, ""},
		{"Known artist", state("Coldplay", "Clocks", true), true, "Coldplay"},
		{"No artists", state("", "Clocks", true), true, UnknownArtist},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok := eventFromState("spotify", tt.state)
			if ok != tt.wantOK {
				t.Fatalf("eventFromState() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && ev.Artist != tt.wantArtist {
				t.Errorf("eventFromState() artist = %q, want %q", ev.Artist, tt.wantArtist)
			}
		})
	}
}

func TestTokenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	token := &oauth2.Token{AccessToken: "access", RefreshToken: "refresh", TokenType: "Bearer"}

	if err := saveToken(path, token); err != nil {
		t.Fatalf("saveToken() unexpected error: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != FilePermission {
		t.Errorf("token file mode = %v, want %v", info.Mode().Perm(), os.FileMode(FilePermission))
	}

	loaded, err := loadToken(path)
	if err != nil {
		t.Fatalf("loadToken() unexpected error: %v", err)
	}
	if loaded.AccessToken != "access" || loaded.RefreshToken != "refresh" {
		t.Errorf("loadToken() = %+v", loaded)
	}

	if _, err := loadToken(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("loadToken() on a missing file should fail")
	}
}
