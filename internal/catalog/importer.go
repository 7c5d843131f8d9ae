package catalog

import (
	"context"
	"fmt"
	"io/fs"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"

	"djfriend/pkg/fuzzy"
)

var audioExtensions = map[string]bool{
	".mp3":  true,
	".flac": true,
	".m4a":  true,
	".aac":  true,
	".ogg":  true,
	".opus": true,
	".wav":  true,
	".wma":  true,
	".aiff": true,
	".alac": true,
}

// trackNumberRegex matches leading track numbers such as "01 ", "01. " or "1-02 - ".
var trackNumberRegex = regexp.MustCompile(`^\d+(?:[-.]\d+)?\s*(?:[-.]\s*)?`)

// ScanDir walks root and derives a catalog entry for every audio file.
// File names of the form "Artist - Title.ext" are split on the first " - ";
// otherwise the top-level directory below root names the artist.
func ScanDir(ctx context.Context, root string) ([]fuzzy.Entry, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", root, err)
	}

	var entries []fuzzy.Entry
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !audioExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		if entry, ok := EntryFromPath(absRoot, path); ok {
			entries = append(entries, entry)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return entries, nil
}

// EntryFromPath builds an entry for the audio file at path below root.
func EntryFromPath(root, path string) (fuzzy.Entry, bool) {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	base = strings.TrimSpace(base)

	var artist, title string
	if a, t, found := strings.Cut(base, " - "); found && !isTrackNumber(a) {
		artist, title = a, t
	} else {
		title = base
		if stripped := trackNumberRegex.ReplaceAllString(base, ""); stripped != "" {
			title = stripped
		}
		// Artist/Title.ext or Artist/Album/Title.ext
		if rel, err := filepath.Rel(root, path); err == nil {
			if parts := strings.Split(filepath.ToSlash(rel), "/"); len(parts) >= 2 {
				artist = parts[0]
			}
		}
	}

	artist = strings.TrimSpace(artist)
	title = strings.TrimSpace(title)
	if title == "" {
		return fuzzy.Entry{}, false
	}

	id := (&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String()
	return fuzzy.Entry{ID: id, Artist: artist, Title: title}, true
}

func isTrackNumber(s string) bool {
	s = strings.TrimSpace(s)
	return s != "" && trackNumberRegex.ReplaceAllString(s, "") == ""
}
