package fuzzy

import (
	"context"
	"errors"
	"testing"
)

// countingCatalog records how many entries were handed to the scan callback.
type countingCatalog struct {
	entries []Entry
	visited int
	err     error
}

func (c *countingCatalog) Scan(ctx context.Context, fn func(Entry) bool) error {
	if c.err != nil {
		return c.err
	}
	for _, e := range c.entries {
		c.visited++
		if !fn(e) {
			return nil
		}
	}
	return nil
}

func TestMatcher_FindBestMatch(t *testing.T) {
	matcher := NewMatcher(nil)
	ctx := context.Background()

	tests := []struct {
		name    string
		artist  string
		title   string
		catalog SliceCatalog
		wantID  string
		wantErr error
	}{
		{
			name:   "Remastered suffix matches exactly",
			artist: "Coldplay",
			title:  "Clocks",
			catalog: SliceCatalog{
				{ID: "1", Artist: "Muse", Title: "Uprising"},
				{ID: "2", Artist: "Coldplay", Title: "Clocks (Remastered)"},
			},
			wantID: "2",
		},
		{
			name:   "Artist suffix form matches",
			artist: "The Cranberries",
			title:  "Linger",
			catalog: SliceCatalog{
				{ID: "a", Artist: "Cranberries, The", Title: "Linger"},
			},
			wantID: "a",
		},
		{
			name:   "Small typo within threshold",
			artist: "Radiohead",
			title:  "Karma Police",
			catalog: SliceCatalog{
				{ID: "x", Artist: "Radiohed", Title: "Karma Polic"},
			},
			wantID: "x",
		},
		{
			name:   "Unrelated catalog",
			artist: "Coldplay",
			title:  "Clocks",
			catalog: SliceCatalog{
				{ID: "1", Artist: "Metallica", Title: "One"},
			},
			wantErr: ErrNoLocalMatch,
		},
		{
			name:    "Empty catalog",
			artist:  "Coldplay",
			title:   "Clocks",
			catalog: SliceCatalog{},
			wantErr: ErrNoLocalMatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			match, err := matcher.FindBestMatch(ctx, tt.artist, tt.title, tt.catalog)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("FindBestMatch() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("FindBestMatch() unexpected error: %v", err)
			}
			if match.Entry.ID != tt.wantID {
				t.Errorf("FindBestMatch() ID = %q, want %q", match.Entry.ID, tt.wantID)
			}
		})
	}
}

func TestMatcher_ThresholdBoundary(t *testing.T) {
	matcher := NewMatcher(nil)
	ctx := context.Background()

	target := matcher.Key("Coldplay", "Clocks")
	if target != "coldplay clocks" {
		t.Fatalf("Key() = %q, want %q", target, "coldplay clocks")
	}
	limit := MaxDistance(target)
	if limit != 5 {
		t.Fatalf("MaxDistance() = %d, want 5", limit)
	}

	// Five substitutions in the title: exactly at the limit.
	atLimit := SliceCatalog{{ID: "at", Artist: "Coldplay", Title: "Cxxxxx"}}
	match, err := matcher.FindBestMatch(ctx, "Coldplay", "Clocks", atLimit)
	if err != nil {
		t.Fatalf("distance at limit should match, got error %v", err)
	}
	if match.Distance != limit {
		t.Errorf("Distance = %d, want %d", match.Distance, limit)
	}

	// Six substitutions: one past the limit.
	pastLimit := SliceCatalog{{ID: "past", Artist: "Coldplay", Title: "xxxxxx"}}
	if _, err := matcher.FindBestMatch(ctx, "Coldplay", "Clocks", pastLimit); !errors.Is(err, ErrNoLocalMatch) {
		t.Errorf("distance limit+1 error = %v, want ErrNoLocalMatch", err)
	}
}

func TestMatcher_TieKeepsFirstSeen(t *testing.T) {
	matcher := NewMatcher(nil)

	catalog := SliceCatalog{
		{ID: "first", Artist: "Coldplay", Title: "Clockz"},
		{ID: "second", Artist: "Coldplay", Title: "Clocky"},
	}

	match, err := matcher.FindBestMatch(context.Background(), "Coldplay", "Clocks", catalog)
	if err != nil {
		t.Fatalf("FindBestMatch() unexpected error: %v", err)
	}
	if match.Entry.ID != "first" {
		t.Errorf("FindBestMatch() ID = %q, want %q", match.Entry.ID, "first")
	}
}

func TestMatcher_StopsOnExactMatch(t *testing.T) {
	matcher := NewMatcher(nil)
	catalog := &countingCatalog{entries: []Entry{
		{ID: "1", Artist: "Coldplay", Title: "Clocks"},
		{ID: "2", Artist: "Coldplay", Title: "Clocks"},
		{ID: "3", Artist: "Muse", Title: "Hysteria"},
	}}

	match, err := matcher.FindBestMatch(context.Background(), "Coldplay", "Clocks", catalog)
	if err != nil {
		t.Fatalf("FindBestMatch() unexpected error: %v", err)
	}
	if match.Entry.ID != "1" {
		t.Errorf("FindBestMatch() ID = %q, want %q", match.Entry.ID, "1")
	}
	if catalog.visited != 1 {
		t.Errorf("visited %d entries, want 1", catalog.visited)
	}
}

func TestMatcher_CatalogError(t *testing.T) {
	matcher := NewMatcher(nil)
	scanErr := errors.New("disk gone")
	catalog := &countingCatalog{err: scanErr}

	_, err := matcher.FindBestMatch(context.Background(), "Coldplay", "Clocks", catalog)
	if !errors.Is(err, scanErr) {
		t.Errorf("FindBestMatch() error = %v, want wrapped %v", err, scanErr)
	}
}

func TestMatcher_CancelledContext(t *testing.T) {
	matcher := NewMatcher(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	catalog := SliceCatalog{{ID: "1", Artist: "Coldplay", Title: "Clocks"}}
	if _, err := matcher.FindBestMatch(ctx, "Coldplay", "Clocks", catalog); !errors.Is(err, context.Canceled) {
		t.Errorf("FindBestMatch() error = %v, want context.Canceled", err)
	}
}

func TestMaxDistance(t *testing.T) {
	tests := []struct {
		target string
		want   int
	}{
		{"", 0},
		{"abc", 1},
		{"coldplay clocks", 5},
		{"abcdefghijklmnopqrst", 7},
		{"björk jóga", 3},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			if got := MaxDistance(tt.target); got != tt.want {
				t.Errorf("MaxDistance(%q) = %d, want %d", tt.target, got, tt.want)
			}
		})
	}
}

func BenchmarkMatcher_FindBestMatch(b *testing.B) {
	matcher := NewMatcher(nil)
	catalog := make(SliceCatalog, 0, 1000)
	for i := range 1000 {
		catalog = append(catalog, Entry{ID: string(rune('a' + i%26)), Artist: "Artist", Title: "Some Title"})
	}
	ctx := context.Background()

	b.ResetTimer()
	for range b.N {
		_, _ = matcher.FindBestMatch(ctx, "Coldplay", "Clocks", catalog)
	}
}
