package core

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestTrackIdentity_Same(t *testing.T) {
	tests := []struct {
		name     string
		a, b     TrackIdentity
		expected bool
	}{
		{"Identical", TrackIdentity{"Coldplay", "Clocks"}, TrackIdentity{"Coldplay", "Clocks"}, true},
		{"Case and brackets", TrackIdentity{"COLDPLAY", "Clocks (Remastered 2008)"}, TrackIdentity{"coldplay", "clocks"}, true},
		{"Trailing article", TrackIdentity{"Beatles, The", "Help!"}, TrackIdentity{"The Beatles", "Help"}, true},
		{"Different title", TrackIdentity{"Coldplay", "Clocks"}, TrackIdentity{"Coldplay", "Yellow"}, false},
		{"Different artist", TrackIdentity{"Coldplay", "Clocks"}, TrackIdentity{"Keane", "Clocks"}, false},
		{"Non-latin titles equal", TrackIdentity{"宇多田ヒカル", "花束を君に"}, TrackIdentity{"宇多田ヒカル", "花束を君に"}, true},
		{"Non-latin titles differ", TrackIdentity{"宇多田ヒカル", "花束を君に"}, TrackIdentity{"宇多田ヒカル", "初恋"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Same(tt.b); got != tt.expected {
				t.Errorf("Same(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.expected)
			}
			if got := tt.b.Same(tt.a); got != tt.expected {
				t.Errorf("Same is not symmetric for %v and %v", tt.a, tt.b)
			}
		})
	}
}

func TestFallbackText(t *testing.T) {
	if got := FallbackText(TrackIdentity{"Coldplay", "Clocks"}); got != "Coldplay - Clocks" {
		t.Errorf("FallbackText() = %q, want %q", got, "Coldplay - Clocks")
	}
}

func TestParsePlaybackStatus(t *testing.T) {
	tests := []struct {
		input    string
		expected PlaybackStatus
		wantErr  bool
	}{
		{"playing", StatusPlaying, false},
		{" Paused ", StatusPaused, false},
		{"STOPPED", StatusStopped, false},
		{"buffering", StatusIdle, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParsePlaybackStatus(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePlaybackStatus(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.expected {
				t.Errorf("ParsePlaybackStatus(%q) = %v, want %v", tt.input, got, tt.expected)
			}
			if want := strings.ToLower(strings.TrimSpace(tt.input)); !tt.wantErr && got.String() != want {
				t.Errorf("String() = %q, want %q", got.String(), want)
			}
		})
	}
}

func TestProviderError(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("similar tracks: %w", NewProviderError("lastfm", "track.getSimilar", cause))

	if !errors.Is(err, ErrProvider) {
		t.Error("errors.Is(err, ErrProvider) = false, want true")
	}
	if !errors.Is(err, cause) {
		t.Error("ProviderError should unwrap to its cause")
	}

	var perr *ProviderError
	if !errors.As(err, &perr) || perr.Provider != "lastfm" {
		t.Errorf("errors.As() = %+v", perr)
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("a provider error is not ErrNotFound")
	}
}

func TestToken_Matches(t *testing.T) {
	a := Token{Generation: 1, ID: "x"}
	if !a.Matches(Token{Generation: 1, ID: "x", Track: TrackIdentity{"a", "b"}}) {
		t.Error("tokens with equal generation and ID should match")
	}
	if a.Matches(Token{Generation: 2, ID: "x"}) || a.Matches(Token{Generation: 1, ID: "y"}) {
		t.Error("tokens with different generation or ID should not match")
	}
}
