// Package musiclink resolves canonical streaming links for tracks through
// pluggable, rate-limited lookup providers.
package musiclink

import (
	"context"
	"errors"
)

var (
	// ErrNoCandidates is returned when the provider's search yields no candidates.
	ErrNoCandidates = errors.New("no link candidates")
	// ErrNoLinkFound is returned when every candidate was checked without a matching URL.
	ErrNoLinkFound = errors.New("no link found")
)

// LookupProvider is an external catalog that can be searched for a track and
// then queried per candidate for a streaming URL.
type LookupProvider interface {
	// SearchCandidates returns candidate identifiers ranked by the provider's relevance.
	SearchCandidates(ctx context.Context, artist, title string) ([]string, error)

	// CandidateDetails returns the target-platform URL for a candidate, or ""
	// when the candidate has none.
	CandidateDetails(ctx context.Context, id string) (string, error)
}

// ResolvedLink is the outcome of a successful resolution.
type ResolvedLink struct {
	Artist string `json:"artist"`
	Title  string `json:"title"`
	URL    string `json:"url"`
}
