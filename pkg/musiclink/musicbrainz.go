package musiclink

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// MusicBrainzBaseURL is the MusicBrainz web service root.
	MusicBrainzBaseURL = "https://musicbrainz.org/ws/2"
	// DefaultUserAgent identifies the application, as MusicBrainz requires.
	DefaultUserAgent = "DJFriend/1.0 ( https://github.com/sanicki/dj-friend )"
	// MusicBrainzTimeout allows for slow cold responses from MusicBrainz.
	MusicBrainzTimeout = 20 * time.Second
	musicBrainzService = "MusicBrainz"
)

// MusicBrainzProvider looks up recordings by artist and title and reads
// their URL relationships for a streaming link.
type MusicBrainzProvider struct {
	client    *http.Client
	baseURL   string
	userAgent string
	prefix    string
	limit     int
}

// MusicBrainzOption configures a MusicBrainzProvider.
type MusicBrainzOption func(*MusicBrainzProvider)

func WithBaseURL(baseURL string) MusicBrainzOption {
	return func(p *MusicBrainzProvider) {
		p.baseURL = strings.TrimRight(baseURL, "/")
	}
}

func WithUserAgent(userAgent string) MusicBrainzOption {
	return func(p *MusicBrainzProvider) {
		p.userAgent = userAgent
	}
}

func WithHTTPClient(client *http.Client) MusicBrainzOption {
	return func(p *MusicBrainzProvider) {
		p.client = client
	}
}

// WithRelationPrefix selects which URL relationship counts as the link.
func WithRelationPrefix(prefix string) MusicBrainzOption {
	return func(p *MusicBrainzProvider) {
		p.prefix = prefix
	}
}

func NewMusicBrainzProvider(opts ...MusicBrainzOption) *MusicBrainzProvider {
	p := &MusicBrainzProvider{
		client:    newHTTPClient(MusicBrainzTimeout),
		baseURL:   MusicBrainzBaseURL,
		userAgent: DefaultUserAgent,
		prefix:    SpotifyTrackPrefix,
		limit:     MaxCandidates,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type mbSearchResponse struct {
	Recordings []struct {
		ID    string `json:"id"`
		Score int    `json:"score"`
		Title string `json:"title"`
	} `json:"recordings"`
}

type mbRecordingResponse struct {
	ID        string `json:"id"`
	Relations []struct {
		TargetType string `json:"target-type"`
		Type       string `json:"type"`
		URL        *struct {
			Resource string `json:"resource"`
		} `json:"url"`
	} `json:"relations"`
}

// SearchCandidates returns recording MBIDs in MusicBrainz relevance order.
func (p *MusicBrainzProvider) SearchCandidates(ctx context.Context, artist, title string) ([]string, error) {
	query := fmt.Sprintf(`recording:"%s" AND artist:"%s"`, stripQuotes(title), stripQuotes(artist))
	params := url.Values{
		"query": {query},
		"limit": {strconv.Itoa(p.limit)},
		"fmt":   {"json"},
	}
	reqURL := p.baseURL + "/recording?" + params.Encode()

	var resp mbSearchResponse
	if err := fetchJSON(ctx, p.client, reqURL, p.userAgent, musicBrainzService, &resp); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(resp.Recordings))
	for _, rec := range resp.Recordings {
		if strings.TrimSpace(rec.ID) == "" {
			continue
		}
		ids = append(ids, rec.ID)
	}
	return ids, nil
}

// CandidateDetails returns the first URL relationship of the recording that
// carries the configured prefix, or "" if there is none.
func (p *MusicBrainzProvider) CandidateDetails(ctx context.Context, id string) (string, error) {
	reqURL := p.baseURL + "/recording/" + url.PathEscape(id) + "?inc=url-rels&fmt=json"

	var resp mbRecordingResponse
	if err := fetchJSON(ctx, p.client, reqURL, p.userAgent, musicBrainzService, &resp); err != nil {
		return "", err
	}

	for _, rel := range resp.Relations {
		if rel.TargetType != "url" || rel.URL == nil {
			continue
		}
		if strings.HasPrefix(rel.URL.Resource, p.prefix) {
			return rel.URL.Resource, nil
		}
	}
	return "", nil
}
