package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"djfriend/internal/core"
)

// scriptedCompleter returns a fixed answer and records the last prompt.
type scriptedCompleter struct {
	answer string
	err    error
	prompt string
}

func (s *scriptedCompleter) Complete(_ context.Context, _, user string) (string, error) {
	s.prompt = user
	return s.answer, s.err
}

func newScriptedProvider(answer string, err error) (*Provider, *scriptedCompleter) {
	completer := &scriptedCompleter{answer: answer, err: err}
	return NewProviderWithCompleter("test", completer, zap.NewNop()), completer
}

func TestProvider_TrackInfo(t *testing.T) {
	tests := []struct {
		name          string
		answer        string
		wantErr       error
		wantListeners int64
		wantKnown     bool
	}{
		{"Known with listeners", `{"known": true, "artist": "Coldplay", "title": "Clocks", "listeners": 2000000}`, nil, 2000000, true},
		{"Known without estimate", `{"known": true, "artist": "Coldplay", "title": "Clocks", "listeners": null}`, nil, 0, false},
		{"Fenced answer", "```json\n{\"known\": true, \"listeners\": 500}\n```", nil, 500, true},
		{"Unknown song", `{"known": false}`, core.ErrNotFound, 0, false},
		{"Garbage", `I am not sure`, core.ErrProvider, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, _ := newScriptedProvider(tt.answer, nil)

			info, err := provider.TrackInfo(context.Background(), "Coldplay", "Clocks")
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("TrackInfo() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("TrackInfo() unexpected error: %v", err)
			}
			if info.Listeners != tt.wantListeners || info.ListenersKnown != tt.wantKnown {
				t.Errorf("TrackInfo() = %+v", info)
			}
		})
	}
}

func TestProvider_SimilarTracks(t *testing.T) {
	provider, completer := newScriptedProvider(`{"tracks": [
		{"artist": "Keane", "title": "Somewhere Only We Know", "confidence": 0.9},
		{"artist": "Travis", "title": "Sing", "confidence": 1.7},
		{"artist": "Muse", "title": "Starlight", "confidence": -0.2}
	]}`, nil)

	tracks, err := provider.SimilarTracks(context.Background(), "Coldplay", "Clocks", 50)
	if err != nil {
		t.Fatalf("SimilarTracks() unexpected error: %v", err)
	}
	if len(tracks) != 3 {
		t.Fatalf("SimilarTracks() len = %d, want 3", len(tracks))
	}

	wantScores := []float64{0.9, 1, 0}
	for i, want := range wantScores {
		if tracks[i].Score != want {
			t.Errorf("tracks[%d].Score = %v, want %v", i, tracks[i].Score, want)
		}
	}
	if !strings.Contains(completer.prompt, "50") {
		t.Errorf("prompt should carry the limit: %q", completer.prompt)
	}

	limited, _ := provider.SimilarTracks(context.Background(), "Coldplay", "Clocks", 2)
	if len(limited) != 2 {
		t.Errorf("SimilarTracks() with limit 2 returned %d tracks", len(limited))
	}
}

func TestProvider_ListsAreTruncated(t *testing.T) {
	artists, _ := newScriptedProvider(`{"artists": ["A", "B", "C"]}`, nil)
	got, err := artists.SimilarArtists(context.Background(), "Coldplay", 2)
	if err != nil || len(got) != 2 || got[0] != "A" {
		t.Errorf("SimilarArtists() = %v, %v", got, err)
	}

	top, _ := newScriptedProvider(`{"tracks": ["Yellow", "Clocks"]}`, nil)
	titles, err := top.ArtistTopTracks(context.Background(), "Coldplay", 1)
	if err != nil || len(titles) != 1 || titles[0] != "Yellow" {
		t.Errorf("ArtistTopTracks() = %v, %v", titles, err)
	}
}

func TestProvider_CompleterErrorIsProviderError(t *testing.T) {
	provider, _ := newScriptedProvider("", errors.New("rate limited"))

	_, err := provider.SimilarArtists(context.Background(), "Coldplay", 10)

	var perr *core.ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("SimilarArtists() error = %v, want *core.ProviderError", err)
	}
	if perr.Provider != "test" || perr.Op != "similar_artists" {
		t.Errorf("ProviderError = %+v", perr)
	}
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name    string
		config  core.LLMConfig
		wantErr bool
	}{
		{"Not configured", core.LLMConfig{Provider: ""}, true},
		{"Unsupported", core.LLMConfig{Provider: "gemini"}, true},
		{"OpenAI without key", core.LLMConfig{Provider: "openai"}, true},
		{"Anthropic without key", core.LLMConfig{Provider: "anthropic"}, true},
		{"OpenAI", core.LLMConfig{Provider: "openai", APIKey: "sk-test"}, false},
		{"Anthropic", core.LLMConfig{Provider: "anthropic", APIKey: "sk-ant-test"}, false},
		{"Ollama", core.LLMConfig{Provider: "ollama"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProvider(&tt.config, zap.NewNop())
			if (err != nil) != tt.wantErr {
				t.Errorf("NewProvider() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestOllamaClient_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		var req OllamaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if req.Model != defaultOllamaModel || req.Format != "json" || req.Stream {
			t.Errorf("unexpected request: %+v", req)
		}
		_ = json.NewEncoder(w).Encode(OllamaResponse{Response: `{"artists": ["Keane"]}`, Done: true})
	}))
	defer server.Close()

	client, err := NewOllamaClient(&core.LLMConfig{Provider: "ollama", BaseURL: server.URL}, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	provider := NewProviderWithCompleter("ollama", client, zap.NewNop())
	artists, err := provider.SimilarArtists(context.Background(), "Coldplay", 10)
	if err != nil {
		t.Fatalf("SimilarArtists() unexpected error: %v", err)
	}
	if len(artists) != 1 || artists[0] != "Keane" {
		t.Errorf("SimilarArtists() = %v, want [Keane]", artists)
	}
}

func TestOllamaClient_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client, _ := NewOllamaClient(&core.LLMConfig{BaseURL: server.URL}, zap.NewNop())
	if _, err := client.Complete(context.Background(), "s", "u"); err == nil || !strings.Contains(err.Error(), "502") {
		t.Errorf("Complete() error = %v, want status 502", err)
	}
}
