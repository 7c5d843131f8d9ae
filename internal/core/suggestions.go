package core

import (
	"sync"
	"sync/atomic"
)

// PageEntry is a candidate together with its position in the full pool.
type PageEntry struct {
	SuggestionCandidate
	Index int `json:"index"`
}

// Page is one window onto the published suggestion pool.
type Page struct {
	NowPlaying    *NowPlayingTrack `json:"now_playing,omitempty"`
	Owner         TrackIdentity    `json:"owner"`
	Status        PoolStatus       `json:"status"`
	SeedIsLocal   bool             `json:"seed_is_local"`
	SeedLocalRef  string           `json:"seed_local_ref,omitempty"`
	ComputationID string           `json:"computation_id,omitempty"`
	Offset        int              `json:"offset"`
	Total         int              `json:"total"`
	CanGoBack     bool             `json:"can_go_back"`
	CanGoMore     bool             `json:"can_go_more"`
	Suggestions   []PageEntry      `json:"suggestions"`
}

// SuggestionStore holds the one pool visible to readers. Readers always see
// either the pending placeholder or a complete pool, never a partial one.
type SuggestionStore struct {
	mu       sync.Mutex
	token    Token
	pool     atomic.Pointer[SuggestionPool]
	current  atomic.Pointer[NowPlayingTrack]
	pageSize int
}

func NewSuggestionStore(pageSize int) *SuggestionStore {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &SuggestionStore{pageSize: pageSize}
}

// Begin makes token the current computation and exposes a pending pool for track.
func (s *SuggestionStore) Begin(track NowPlayingTrack, token Token) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = token
	s.current.Store(&track)
	s.pool.Store(&SuggestionPool{
		Owner:  track.Identity(),
		Status: PoolPending,
		Token:  token,
	})
}

// Publish replaces the visible pool if pool.Token is still current.
// A stale pool is dropped and false is returned.
func (s *SuggestionStore) Publish(pool *SuggestionPool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pool == nil || !pool.Token.Matches(s.token) {
		return false
	}
	s.pool.Store(pool)
	return true
}

// Reset forgets the now-playing track and the pool. Pending computations
// can no longer publish.
func (s *SuggestionStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = Token{}
	s.current.Store(nil)
	s.pool.Store(nil)
}

// Pool returns the visible pool or nil.
func (s *SuggestionStore) Pool() *SuggestionPool {
	return s.pool.Load()
}

func (s *SuggestionStore) CurrentTrack() (NowPlayingTrack, bool) {
	track := s.current.Load()
	if track == nil {
		return NowPlayingTrack{}, false
	}
	return *track, true
}

func (s *SuggestionStore) PageSize() int {
	return s.pageSize
}

// GetPage returns up to size candidates starting at offset. A negative
// offset is treated as 0 and a non-positive size as the default page size.
func (s *SuggestionStore) GetPage(offset, size int) Page {
	if offset < 0 {
		offset = 0
	}
	if size <= 0 {
		size = s.pageSize
	}

	page := Page{Offset: offset, Suggestions: []PageEntry{}}
	if track := s.current.Load(); track != nil {
		np := *track
		page.NowPlaying = &np
	}

	pool := s.pool.Load()
	if pool == nil {
		return page
	}

	page.Owner = pool.Owner
	page.Status = pool.Status
	page.SeedIsLocal = pool.SeedIsLocal
	page.SeedLocalRef = pool.SeedLocalRef
	page.ComputationID = pool.Token.ID
	page.Total = len(pool.Candidates)
	page.CanGoBack = offset > 0

	// Compare against Total-size so huge query values cannot overflow.
	size = min(size, page.Total)
	page.CanGoMore = offset < page.Total-size

	if offset >= page.Total {
		return page
	}
	end := offset + min(size, page.Total-offset)
	for i := offset; i < end; i++ {
		page.Suggestions = append(page.Suggestions, PageEntry{SuggestionCandidate: pool.Candidates[i], Index: i})
	}
	return page
}
