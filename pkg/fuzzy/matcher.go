package fuzzy

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

const (
	// MatchThresholdPercent is the largest accepted edit distance, as a
	// percentage of the target key length (rounded down).
	MatchThresholdPercent = 35
)

var (
	// ErrNoLocalMatch is returned when no catalog entry is close enough to the target.
	ErrNoLocalMatch = errors.New("no local match")
)

// Entry is one track in a local media catalog.
type Entry struct {
	ID     string `json:"id"`
	Artist string `json:"artist"`
	Title  string `json:"title"`
}

// Catalog enumerates local tracks in a stable order. Scan stops early when
// fn returns false.
type Catalog interface {
	Scan(ctx context.Context, fn func(Entry) bool) error
}

// SliceCatalog is an in-memory Catalog enumerated in slice order.
type SliceCatalog []Entry

func (c SliceCatalog) Scan(ctx context.Context, fn func(Entry) bool) error {
	for _, e := range c {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !fn(e) {
			return nil
		}
	}
	return nil
}

// Match is the closest catalog entry found for a target track.
type Match struct {
	Entry    Entry
	Distance int
}

// Matcher finds the closest catalog entry for an artist/title pair.
type Matcher struct {
	normalizer *Normalizer
}

func NewMatcher(normalizer *Normalizer) *Matcher {
	if normalizer == nil {
		normalizer = defaultNormalizer
	}
	return &Matcher{normalizer: normalizer}
}

// Key builds the composite "artist title" key that distances are measured on.
func (m *Matcher) Key(artist, title string) string {
	return m.normalizer.NormalizeArtist(artist) + " " + m.normalizer.NormalizeTitle(title)
}

// MaxDistance returns floor(len(target) * 0.35), counting runes.
func MaxDistance(target string) int {
	return utf8.RuneCountInString(target) * MatchThresholdPercent / 100
}

// FindBestMatch scans the catalog in enumeration order and returns the entry
// with the smallest edit distance to the target. Ties keep the first entry
// seen. ErrNoLocalMatch is returned when the best distance exceeds MaxDistance.
func (m *Matcher) FindBestMatch(ctx context.Context, artist, title string, catalog Catalog) (Match, error) {
	target := m.Key(artist, title)

	best := Match{Distance: -1}
	err := catalog.Scan(ctx, func(e Entry) bool {
		d := levenshtein.ComputeDistance(target, m.Key(e.Artist, e.Title))
		if best.Distance < 0 || d < best.Distance {
			best = Match{Entry: e, Distance: d}
		}
		// Nothing beats an exact match under strict comparison.
		return best.Distance != 0
	})
	if err != nil {
		return Match{}, fmt.Errorf("failed to scan catalog: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return Match{}, err
	}

	if best.Distance < 0 || best.Distance > MaxDistance(target) {
		return Match{}, ErrNoLocalMatch
	}

	return best, nil
}
