package musiclink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// SpotifyTrackPrefix is the URL prefix of canonical Spotify track links.
	SpotifyTrackPrefix = "https://open.spotify.com/track/"
	// SpotifySearchURL is the base of the Spotify web search used as a link fallback.
	SpotifySearchURL = "https://open.spotify.com/search/"
	// defaultHTTPTimeout is the default timeout for HTTP requests.
	defaultHTTPTimeout = 20 * time.Second
	// maxHTTPRedirects is the maximum number of HTTP redirects to follow.
	maxHTTPRedirects = 3
	// maxErrorBodySize bounds how much of an error response is read for diagnostics.
	maxErrorBodySize = 512
)

var (
	// ErrTooManyRedirects is returned when too many redirects are encountered.
	ErrTooManyRedirects = errors.New("too many redirects")
)

// newHTTPClient creates a new HTTP client with standard settings and redirect validation.
func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &http.Client{
		Timeout: timeout,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxHTTPRedirects {
				return ErrTooManyRedirects
			}
			return nil
		},
	}
}

// fetchJSON performs a GET request and decodes the JSON response into dest.
func fetchJSON(
	ctx context.Context,
	client *http.Client,
	reqURL string,
	userAgent string,
	serviceName string,
	dest any,
) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return err
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return fmt.Errorf("%s returned status %d: %s", serviceName, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", serviceName, err)
	}

	return nil
}

// SearchURL returns a Spotify web search URL for the track. Hosts offer it
// next to the textual fallback when resolution fails.
func SearchURL(artist, title string) string {
	query := strings.TrimSpace(strings.TrimSpace(title) + " " + strings.TrimSpace(artist))
	return SpotifySearchURL + url.PathEscape(query)
}

// stripQuotes removes double quotes so a value can be embedded in a quoted
// Lucene phrase.
func stripQuotes(s string) string {
	return strings.ReplaceAll(s, `"`, "")
}
