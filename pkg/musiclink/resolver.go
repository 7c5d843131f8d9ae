package musiclink

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const (
	// MaxCandidates caps how many search candidates are inspected.
	MaxCandidates = 5
)

// Resolver runs the search-then-inspect lookup protocol against a provider,
// throttling every per-candidate call.
type Resolver struct {
	provider      LookupProvider
	throttle      Throttle
	prefix        string
	maxCandidates int
	logger        *zap.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

func WithThrottle(t Throttle) ResolverOption {
	return func(r *Resolver) {
		r.throttle = t
	}
}

// WithTargetPrefix sets the URL prefix a candidate's link must carry to be accepted.
func WithTargetPrefix(prefix string) ResolverOption {
	return func(r *Resolver) {
		r.prefix = prefix
	}
}

func WithMaxCandidates(n int) ResolverOption {
	return func(r *Resolver) {
		if n > 0 {
			r.maxCandidates = n
		}
	}
}

func WithLogger(logger *zap.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = logger
	}
}

func NewResolver(provider LookupProvider, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		provider:      provider,
		throttle:      NewIntervalThrottle(DefaultThrottleInterval),
		prefix:        SpotifyTrackPrefix,
		maxCandidates: MaxCandidates,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve searches for candidates and inspects them in rank order, returning
// the first URL that carries the target prefix. Each inspection is preceded
// by exactly one throttle wait. Once ctx is done no further calls are made
// and no link is returned.
func (r *Resolver) Resolve(ctx context.Context, artist, title string) (*ResolvedLink, error) {
	ids, err := r.provider.SearchCandidates(ctx, artist, title)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil {
		return nil, fmt.Errorf("failed to search candidates: %w", err)
	}
	if len(ids) == 0 {
		return nil, ErrNoCandidates
	}
	if len(ids) > r.maxCandidates {
		ids = ids[:r.maxCandidates]
	}

	for i, id := range ids {
		if err := r.throttle.Wait(ctx); err != nil {
			return nil, err
		}

		link, err := r.provider.CandidateDetails(ctx, id)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if err != nil {
			r.logger.Debug("Candidate lookup failed",
				zap.String("candidate", id),
				zap.Int("rank", i+1),
				zap.Error(err))
			continue
		}

		if link != "" && strings.HasPrefix(link, r.prefix) {
			r.logger.Debug("Resolved link",
				zap.String("artist", artist),
				zap.String("title", title),
				zap.String("url", link),
				zap.Int("rank", i+1))
			return &ResolvedLink{Artist: artist, Title: title, URL: link}, nil
		}
	}

	return nil, ErrNoLinkFound
}
