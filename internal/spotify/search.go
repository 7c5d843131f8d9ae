package spotify

import (
	"context"
	"fmt"
	"strings"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"go.uber.org/zap"
	"golang.org/x/oauth2/clientcredentials"

	"djfriend/internal/core"
	"djfriend/pkg/musiclink"
)

// SearchLimit caps the number of search results requested per lookup.
const SearchLimit = 5

// TrackAPI is the part of the Web API the search provider needs.
type TrackAPI interface {
	Search(ctx context.Context, query string, t spotify.SearchType, opts ...spotify.RequestOption) (*spotify.SearchResult, error)
	GetTrack(ctx context.Context, id spotify.ID, opts ...spotify.RequestOption) (*spotify.FullTrack, error)
}

// SearchProvider is a musiclink.LookupProvider backed by the Spotify catalog.
// It uses an app-only client-credentials token, so no user login is needed.
type SearchProvider struct {
	api    TrackAPI
	logger *zap.Logger
}

var _ musiclink.LookupProvider = (*SearchProvider)(nil)

// NewSearchProvider builds a provider authenticated with client credentials.
func NewSearchProvider(ctx context.Context, config *core.SpotifyConfig, logger *zap.Logger) (*SearchProvider, error) {
	if config.ClientID == "" || config.ClientSecret == "" {
		return nil, fmt.Errorf("spotify client id and secret are required")
	}

	creds := &clientcredentials.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}
	if _, err := creds.Token(ctx); err != nil {
		return nil, fmt.Errorf("failed to obtain client credentials token: %w", err)
	}

	return NewSearchProviderWithAPI(spotify.New(creds.Client(ctx)), logger), nil
}

func NewSearchProviderWithAPI(api TrackAPI, logger *zap.Logger) *SearchProvider {
	return &SearchProvider{api: api, logger: logger.Named("spotify")}
}

// SearchCandidates returns track IDs in Spotify relevance order.
func (p *SearchProvider) SearchCandidates(ctx context.Context, artist, title string) ([]string, error) {
	query := fmt.Sprintf("track:%s artist:%s", quoteField(title), quoteField(artist))

	results, err := p.api.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(SearchLimit))
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	if results == nil || results.Tracks == nil {
		return nil, nil
	}

	ids := make([]string, 0, len(results.Tracks.Tracks))
	for i := range results.Tracks.Tracks {
		if id := results.Tracks.Tracks[i].ID; id != "" {
			ids = append(ids, string(id))
		}
	}

	p.logger.Debug("Spotify search",
		zap.String("query", query),
		zap.Int("candidates", len(ids)))
	return ids, nil
}

// CandidateDetails returns the track's public Spotify URL, or "" when it has none.
func (p *SearchProvider) CandidateDetails(ctx context.Context, id string) (string, error) {
	track, err := p.api.GetTrack(ctx, spotify.ID(id))
	if err != nil {
		return "", fmt.Errorf("failed to get track: %w", err)
	}
	if track == nil {
		return "", nil
	}
	return track.ExternalURLs["spotify"], nil
}

func quoteField(s string) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, `"`, ""))
	if strings.ContainsAny(s, " \t") {
		return `"` + s + `"`
	}
	return s
}
