package core

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"djfriend/pkg/musiclink"
)

// LinkResolver turns a track identity into a streaming-service URL.
type LinkResolver interface {
	Resolve(ctx context.Context, artist, title string) (*musiclink.ResolvedLink, error)
}

// LinkResult is what a caller shows for a track: the resolved URL, or the
// fallback text with a search URL when no link could be found.
type LinkResult struct {
	Track     TrackIdentity `json:"track"`
	Resolved  bool          `json:"resolved"`
	URL       string        `json:"url,omitempty"`
	Fallback  string        `json:"fallback,omitempty"`
	SearchURL string        `json:"search_url,omitempty"`
	Reason    string        `json:"reason,omitempty"`
}

type linkRequest struct {
	seq    uint64
	cancel context.CancelFunc
}

// LinkService runs link resolutions. A new request from the same requester
// cancels the previous one, whose result is never delivered.
type LinkService struct {
	resolver LinkResolver
	metrics  MetricsRecorder
	logger   *zap.Logger

	mu       sync.Mutex
	seq      uint64
	inFlight map[string]linkRequest
}

func NewLinkService(resolver LinkResolver, metrics MetricsRecorder, logger *zap.Logger) *LinkService {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &LinkService{
		resolver: resolver,
		metrics:  metrics,
		logger:   logger.Named("links"),
		inFlight: make(map[string]linkRequest),
	}
}

// Resolve looks up a link for track on behalf of requester. It returns an
// error wrapping ErrCancelled when superseded or when ctx ends; every other
// failure yields an unresolved result carrying the fallback text.
func (s *LinkService) Resolve(ctx context.Context, requester string, track TrackIdentity) (LinkResult, error) {
	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	if prev, ok := s.inFlight[requester]; ok {
		prev.cancel()
	}
	s.seq++
	seq := s.seq
	s.inFlight[requester] = linkRequest{seq: seq, cancel: cancel}
	s.mu.Unlock()

	link, err := s.resolver.Resolve(reqCtx, track.Artist, track.Title)

	s.mu.Lock()
	current := s.inFlight[requester].seq == seq
	if current {
		delete(s.inFlight, requester)
	}
	s.mu.Unlock()

	if !current || reqCtx.Err() != nil {
		s.metrics.RecordLinkResolution("cancelled")
		return LinkResult{}, cancelledOr(reqCtx)
	}

	if err == nil {
		s.metrics.RecordLinkResolution("resolved")
		return LinkResult{Track: track, Resolved: true, URL: link.URL}, nil
	}

	reason := "provider_error"
	switch {
	case errors.Is(err, ErrNoCandidates):
		reason = "no_candidates"
	case errors.Is(err, ErrNoLinkFound):
		reason = "no_link_found"
	default:
		s.logger.Warn("Link resolution failed",
			zap.String("artist", track.Artist),
			zap.String("title", track.Title),
			zap.Error(err))
	}
	s.metrics.RecordLinkResolution(reason)

	return LinkResult{
		Track:     track,
		Fallback:  FallbackText(track),
		SearchURL: musiclink.SearchURL(track.Artist, track.Title),
		Reason:    reason,
	}, nil
}

func cancelledOr(ctx context.Context) error {
	if err := cancelled(ctx); err != nil {
		return err
	}
	return ErrCancelled
}
