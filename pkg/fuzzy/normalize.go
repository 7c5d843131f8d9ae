// Package fuzzy canonicalizes artist names and track titles and matches
// tracks against a local media catalog by edit distance.
package fuzzy

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	trailingTheRegex = regexp.MustCompile(`(?i)^(.+),\s*the$`)
	leadingTheRegex  = regexp.MustCompile(`(?i)^the\s+`)
	bracketRegex     = regexp.MustCompile(`\s*[\(\[][^\)\]]*[\)\]]`)
	nonAlnumRegex    = regexp.MustCompile(`[^a-z0-9 ]`)
	whitespaceRegex  = regexp.MustCompile(`\s+`)
)

// Normalizer turns cosmetic variants of the same artist or title into a
// single comparable key.
type Normalizer struct {
	foldAccents bool
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithAccentFolding decomposes accented letters before non-ASCII characters
// are stripped, so "Björk" normalizes to "bjork" rather than "bjrk".
func WithAccentFolding() Option {
	return func(n *Normalizer) {
		n.foldAccents = true
	}
}

func NewNormalizer(opts ...Option) *Normalizer {
	n := &Normalizer{}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

var defaultNormalizer = NewNormalizer()

// NormalizeArtist returns the canonical artist key using the default normalizer.
func NormalizeArtist(artist string) string {
	return defaultNormalizer.NormalizeArtist(artist)
}

// NormalizeTitle returns the normalized title using the default normalizer.
func NormalizeTitle(title string) string {
	return defaultNormalizer.NormalizeTitle(title)
}

// NormalizeArtist returns the canonical artist key. "The Cranberries" and
// "Cranberries, The" both become "cranberries".
func (n *Normalizer) NormalizeArtist(artist string) string {
	s := strings.TrimSpace(artist)

	if m := trailingTheRegex.FindStringSubmatch(s); m != nil {
		s = "The " + strings.TrimSpace(m[1])
	}
	s = leadingTheRegex.ReplaceAllString(s, "")

	if n.foldAccents {
		s = foldAccents(s)
	}

	return strings.TrimSpace(strings.ToLower(s))
}

// NormalizeTitle drops bracketed groups such as "(Remastered)" or "[Live]",
// lowercases, keeps only [a-z0-9 ] and collapses whitespace.
func (n *Normalizer) NormalizeTitle(title string) string {
	s := bracketRegex.ReplaceAllString(title, "")

	if n.foldAccents {
		s = foldAccents(s)
	}

	s = strings.ToLower(s)
	s = nonAlnumRegex.ReplaceAllString(s, "")
	s = whitespaceRegex.ReplaceAllString(s, " ")

	return strings.TrimSpace(s)
}

func foldAccents(text string) string {
	var result strings.Builder
	for _, r := range norm.NFKD.String(text) {
		if !unicode.IsMark(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}
