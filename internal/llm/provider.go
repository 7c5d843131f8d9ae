// Package llm implements core.MetadataProvider on top of chat-completion models.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"djfriend/internal/core"
)

// Completer sends one system/user prompt pair to a model and returns its text answer.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Provider answers metadata queries by asking a language model for JSON.
type Provider struct {
	name      string
	completer Completer
	logger    *zap.Logger
}

// NewProvider builds the completer selected by config.Provider.
func NewProvider(config *core.LLMConfig, logger *zap.Logger) (*Provider, error) {
	var completer Completer
	var err error

	switch config.Provider {
	case "openai":
		completer, err = NewOpenAIClient(config, logger)
	case "anthropic":
		completer, err = NewAnthropicClient(config, logger)
	case "ollama":
		completer, err = NewOllamaClient(config, logger)
	case "none", "":
		return nil, fmt.Errorf("LLM provider not configured")
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", config.Provider)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", config.Provider, err)
	}

	return NewProviderWithCompleter(config.Provider, completer, logger), nil
}

func NewProviderWithCompleter(name string, completer Completer, logger *zap.Logger) *Provider {
	return &Provider{
		name:      name,
		completer: completer,
		logger:    logger.Named("llm"),
	}
}

const systemPrompt = `You are a music metadata service. Answer only with valid JSON matching the requested format. Only include real recordings and artists that exist. Never add commentary.`

type trackInfoResponse struct {
	Known     bool   `json:"known"`
	Artist    string `json:"artist"`
	Title     string `json:"title"`
	Listeners *int64 `json:"listeners"`
}

type similarTracksResponse struct {
	Tracks []struct {
		Artist     string  `json:"artist"`
		Title      string  `json:"title"`
		Confidence float64 `json:"confidence"`
	} `json:"tracks"`
}

type artistsResponse struct {
	Artists []string `json:"artists"`
}

type topTracksResponse struct {
	Tracks []string `json:"tracks"`
}

func (p *Provider) TrackInfo(ctx context.Context, artist, title string) (*core.TrackInfo, error) {
	prompt := fmt.Sprintf(`Do you know the song %q by %q?
Return JSON in this exact format:
{"known": true, "artist": "Artist Name", "title": "Song Title", "listeners": 123456}
Use "known": false if the song does not exist. Use null for listeners if you cannot estimate them.`, title, artist)

	var resp trackInfoResponse
	if err := p.ask(ctx, "track_info", prompt, &resp); err != nil {
		return nil, err
	}
	if !resp.Known {
		return nil, core.ErrNotFound
	}

	info := &core.TrackInfo{Artist: resp.Artist, Title: resp.Title}
	if resp.Listeners != nil {
		info.Listeners = *resp.Listeners
		info.ListenersKnown = true
	}
	return info, nil
}

func (p *Provider) SimilarTracks(ctx context.Context, artist, title string, limit int) ([]core.SimilarTrack, error) {
	prompt := fmt.Sprintf(`List up to %d songs similar to %q by %q.
Return JSON in this exact format:
{"tracks": [{"artist": "Artist Name", "title": "Song Title", "confidence": 0.85}]}
confidence is the similarity from 0.0 to 1.0.`, limit, title, artist)

	var resp similarTracksResponse
	if err := p.ask(ctx, "similar_tracks", prompt, &resp); err != nil {
		return nil, err
	}

	tracks := make([]core.SimilarTrack, 0, len(resp.Tracks))
	for _, t := range resp.Tracks {
		if len(tracks) >= limit {
			break
		}
		tracks = append(tracks, core.SimilarTrack{
			Artist: t.Artist,
			Title:  t.Title,
			Score:  min(max(t.Confidence, 0), 1),
		})
	}
	return tracks, nil
}

func (p *Provider) SimilarArtists(ctx context.Context, artist string, limit int) ([]string, error) {
	prompt := fmt.Sprintf(`List up to %d artists similar to %q, most similar first.
Return JSON in this exact format:
{"artists": ["Artist Name"]}`, limit, artist)

	var resp artistsResponse
	if err := p.ask(ctx, "similar_artists", prompt, &resp); err != nil {
		return nil, err
	}
	return truncate(resp.Artists, limit), nil
}

func (p *Provider) ArtistTopTracks(ctx context.Context, artist string, limit int) ([]string, error) {
	prompt := fmt.Sprintf(`List the %d most popular songs by %q, most popular first.
Return JSON in this exact format:
{"tracks": ["Song Title"]}`, limit, artist)

	var resp topTracksResponse
	if err := p.ask(ctx, "artist_top_tracks", prompt, &resp); err != nil {
		return nil, err
	}
	return truncate(resp.Tracks, limit), nil
}

func (p *Provider) ask(ctx context.Context, op, prompt string, dest any) error {
	content, err := p.completer.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		return core.NewProviderError(p.name, op, err)
	}

	if err := json.Unmarshal([]byte(extractJSON(content)), dest); err != nil {
		p.logger.Debug("Failed to parse model response",
			zap.String("op", op),
			zap.String("content", content),
			zap.Error(err))
		return core.NewProviderError(p.name, op, fmt.Errorf("failed to parse response: %w", err))
	}
	return nil
}

// extractJSON strips markdown fences and surrounding prose from a model answer.
func extractJSON(content string) string {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end < start {
		return content
	}
	return content[start : end+1]
}

func truncate(items []string, limit int) []string {
	if limit >= 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
