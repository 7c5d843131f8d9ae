// Package lastfm implements core.MetadataProvider against the Last.fm web API.
package lastfm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"djfriend/internal/core"
)

const (
	providerName    = "lastfm"
	requestTimeout  = 15 * time.Second
	maxResponseSize = 4 << 20

	// errInvalidParameters is what Last.fm answers for unknown tracks and artists.
	errInvalidParameters = 6
)

// Client is a Last.fm API client with a short-lived response cache.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	cache      *expirable.LRU[string, []byte]
	logger     *zap.Logger
}

func NewClient(config *core.LastFMConfig, logger *zap.Logger) (*Client, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Last.fm API key is required")
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = core.DefaultLastFMBaseURL
	}

	var cache *expirable.LRU[string, []byte]
	if config.CacheSize > 0 {
		ttl := time.Duration(config.CacheTTLMins) * time.Minute
		cache = expirable.NewLRU[string, []byte](config.CacheSize, nil, ttl)
	}

	return &Client{
		httpClient: &http.Client{Timeout: requestTimeout},
		baseURL:    baseURL,
		apiKey:     config.APIKey,
		cache:      cache,
		logger:     logger.Named("lastfm"),
	}, nil
}

type artistRef struct {
	Name string `json:"name"`
}

type trackRef struct {
	Name   string    `json:"name"`
	Match  flexFloat `json:"match"`
	Artist artistRef `json:"artist"`
}

type trackInfoResponse struct {
	Track *struct {
		Name      string    `json:"name"`
		Artist    artistRef `json:"artist"`
		Listeners string    `json:"listeners"`
	} `json:"track"`
}

type similarTracksResponse struct {
	SimilarTracks struct {
		Tracks oneOrMany[trackRef] `json:"track"`
	} `json:"similartracks"`
}

type similarArtistsResponse struct {
	SimilarArtists struct {
		Artists oneOrMany[artistRef] `json:"artist"`
	} `json:"similarartists"`
}

type topTracksResponse struct {
	TopTracks struct {
		Tracks oneOrMany[trackRef] `json:"track"`
	} `json:"toptracks"`
}

type apiError struct {
	Code    int    `json:"error"`
	Message string `json:"message"`
}

// TrackInfo looks the track up with autocorrection. Missing or unparsable
// listener counts are reported as unknown.
func (c *Client) TrackInfo(ctx context.Context, artist, title string) (*core.TrackInfo, error) {
	var resp trackInfoResponse
	err := c.call(ctx, "track.getInfo", url.Values{
		"artist":      {artist},
		"track":       {title},
		"autocorrect": {"1"},
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Track == nil {
		return nil, core.ErrNotFound
	}

	info := &core.TrackInfo{Artist: resp.Track.Artist.Name, Title: resp.Track.Name}
	if n, err := strconv.ParseInt(strings.TrimSpace(resp.Track.Listeners), 10, 64); err == nil {
		info.Listeners = n
		info.ListenersKnown = true
	}
	return info, nil
}

func (c *Client) SimilarTracks(ctx context.Context, artist, title string, limit int) ([]core.SimilarTrack, error) {
	var resp similarTracksResponse
	err := c.call(ctx, "track.getSimilar", url.Values{
		"artist": {artist},
		"track":  {title},
		"limit":  {strconv.Itoa(limit)},
	}, &resp)
	if err != nil {
		return nil, err
	}

	tracks := make([]core.SimilarTrack, 0, len(resp.SimilarTracks.Tracks))
	for _, t := range resp.SimilarTracks.Tracks {
		tracks = append(tracks, core.SimilarTrack{
			Artist: t.Artist.Name,
			Title:  t.Name,
			Score:  float64(t.Match),
		})
	}
	return tracks, nil
}

func (c *Client) SimilarArtists(ctx context.Context, artist string, limit int) ([]string, error) {
	var resp similarArtistsResponse
	err := c.call(ctx, "artist.getSimilar", url.Values{
		"artist": {artist},
		"limit":  {strconv.Itoa(limit)},
	}, &resp)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(resp.SimilarArtists.Artists))
	for _, a := range resp.SimilarArtists.Artists {
		names = append(names, a.Name)
	}
	return names, nil
}

func (c *Client) ArtistTopTracks(ctx context.Context, artist string, limit int) ([]string, error) {
	var resp topTracksResponse
	err := c.call(ctx, "artist.getTopTracks", url.Values{
		"artist": {artist},
		"limit":  {strconv.Itoa(limit)},
	}, &resp)
	if err != nil {
		return nil, err
	}

	titles := make([]string, 0, len(resp.TopTracks.Tracks))
	for _, t := range resp.TopTracks.Tracks {
		titles = append(titles, t.Name)
	}
	return titles, nil
}

// call performs one API method and decodes its body into dest. Last.fm
// error 6 maps to core.ErrNotFound; every other failure is a *core.ProviderError.
func (c *Client) call(ctx context.Context, method string, params url.Values, dest any) error {
	params.Set("method", method)
	params.Set("format", "json")
	params.Set("api_key", c.apiKey)
	reqURL := c.baseURL + "?" + params.Encode()

	body, cached := c.cacheGet(reqURL)
	if !cached {
		var err error
		body, err = c.fetch(ctx, reqURL)
		if err != nil {
			return c.wrap(method, err)
		}
	}

	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Code != 0 {
		if apiErr.Code == errInvalidParameters {
			return core.ErrNotFound
		}
		return c.wrap(method, fmt.Errorf("API error %d: %s", apiErr.Code, apiErr.Message))
	}

	if err := json.Unmarshal(body, dest); err != nil {
		return c.wrap(method, fmt.Errorf("failed to decode response: %w", err))
	}

	if !cached && c.cache != nil {
		c.cache.Add(reqURL, body)
	}
	return nil
}

func (c *Client) cacheGet(key string) ([]byte, bool) {
	if c.cache == nil {
		return nil, false
	}
	return c.cache.Get(key)
}

func (c *Client) fetch(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	// Last.fm reports most failures as a JSON error body, sometimes with a 4xx status.
	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Code != 0 {
			return body, nil
		}
		return nil, fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}
	return body, nil
}

func (c *Client) wrap(method string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	c.logger.Debug("Last.fm call failed", zap.String("method", method), zap.Error(err))
	return core.NewProviderError(providerName, method, err)
}

// flexFloat decodes a JSON number or a numeric string.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid number %q: %w", s, err)
	}
	*f = flexFloat(v)
	return nil
}

// oneOrMany decodes a JSON array or a single object, which Last.fm returns
// for one-element lists.
type oneOrMany[T any] []T

func (o *oneOrMany[T]) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	switch {
	case trimmed == "null" || trimmed == `""`:
		*o = nil
		return nil
	case strings.HasPrefix(trimmed, "["):
		var items []T
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*o = items
		return nil
	default:
		var item T
		if err := json.Unmarshal(data, &item); err != nil {
			return err
		}
		*o = []T{item}
		return nil
	}
}
