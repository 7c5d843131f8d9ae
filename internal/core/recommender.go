package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"djfriend/internal/store"
	"djfriend/pkg/fuzzy"
)

const (
	// MinSimilarityScore is the lowest tier A score accepted into a pool.
	MinSimilarityScore = 0.2
	// TargetPoolSize is the number of candidates tiers B and C fill up to.
	TargetPoolSize = 3
	// PopularityThreshold is the listener count below which tier B supplements tier A.
	PopularityThreshold = 10000

	SimilarTracksLimit      = 50
	SimilarArtistsLimit     = 10
	SimilarArtistTopTracks  = 1
	SeedArtistTopTracks     = 5
	usedArtistsCapacity     = 256
	usedArtistsFalsePosRate = 0.001
)

// Recommender builds suggestion pools from a MetadataProvider in three tiers
// and annotates every candidate with its local catalog match.
type Recommender struct {
	provider      MetadataProvider
	matcher       *fuzzy.Matcher
	catalog       fuzzy.Catalog
	callTimeout   time.Duration
	annotateLimit int
	metrics       MetricsRecorder
	logger        *zap.Logger
}

// NewRecommender creates a recommender. catalog may be nil, in which case no
// candidate is ever marked local.
func NewRecommender(
	config *Config,
	provider MetadataProvider,
	matcher *fuzzy.Matcher,
	catalog fuzzy.Catalog,
	metrics MetricsRecorder,
	logger *zap.Logger,
) *Recommender {
	if matcher == nil {
		matcher = fuzzy.NewMatcher(nil)
	}
	if metrics == nil {
		metrics = NopMetrics{}
	}
	limit := config.Catalog.AnnotateConcurrency
	if limit <= 0 {
		limit = DefaultAnnotateConcurrency
	}

	return &Recommender{
		provider:      provider,
		matcher:       matcher,
		catalog:       catalog,
		callTimeout:   config.CallTimeout(),
		annotateLimit: limit,
		metrics:       metrics,
		logger:        logger.Named("recommender"),
	}
}

// Recommend computes the suggestion pool for seed. Provider failures degrade
// to empty results; the only error returned wraps ErrCancelled when ctx ends.
func (r *Recommender) Recommend(ctx context.Context, seed TrackIdentity) (*SuggestionPool, error) {
	start := time.Now()
	pool, err := r.recommend(ctx, seed)
	if err != nil {
		r.metrics.RecordRecommendation("cancelled", time.Since(start))
		return nil, err
	}
	pool.CreatedAt = time.Now()
	r.metrics.RecordRecommendation(string(pool.Status), time.Since(start))
	return pool, nil
}

func (r *Recommender) recommend(ctx context.Context, seed TrackIdentity) (*SuggestionPool, error) {
	pool := &SuggestionPool{Owner: seed, Status: PoolReady}

	info, err := r.trackInfo(ctx, seed)
	if cerr := cancelled(ctx); cerr != nil {
		return nil, cerr
	}
	if errors.Is(err, ErrNotFound) {
		r.logger.Info("Seed track unknown to metadata provider",
			zap.String("artist", seed.Artist),
			zap.String("title", seed.Title))
		pool.Status = PoolNoSeedMatch
		if err := r.annotate(ctx, pool); err != nil {
			return nil, err
		}
		return pool, nil
	}

	used := store.NewKeySet(usedArtistsCapacity, usedArtistsFalsePosRate)
	used.Add(artistKeys(seed.Artist)...)

	r.similarTracksTier(ctx, seed, used, pool)
	if cerr := cancelled(ctx); cerr != nil {
		return nil, cerr
	}

	if len(pool.Candidates) < TargetPoolSize && (isNiche(info) || len(pool.Candidates) == 0) {
		r.similarArtistsTier(ctx, seed, used, pool)
		if cerr := cancelled(ctx); cerr != nil {
			return nil, cerr
		}
	}

	if len(pool.Candidates) == 0 {
		r.seedArtistTier(ctx, seed, pool)
		if cerr := cancelled(ctx); cerr != nil {
			return nil, cerr
		}
	}

	if err := r.annotate(ctx, pool); err != nil {
		return nil, err
	}

	r.logger.Debug("Suggestion pool computed",
		zap.String("artist", seed.Artist),
		zap.String("title", seed.Title),
		zap.Int("candidates", len(pool.Candidates)))
	return pool, nil
}

// similarTracksTier walks the full similar-tracks list in descending score
// order, accepting one track per unused artist above MinSimilarityScore.
func (r *Recommender) similarTracksTier(ctx context.Context, seed TrackIdentity, used *store.KeySet, pool *SuggestionPool) {
	var tracks []SimilarTrack
	_ = r.call(ctx, "similar_tracks", func(ctx context.Context) error {
		var err error
		tracks, err = r.provider.SimilarTracks(ctx, seed.Artist, seed.Title, SimilarTracksLimit)
		return err
	})

	sort.SliceStable(tracks, func(i, j int) bool {
		return tracks[i].Score > tracks[j].Score
	})

	for _, track := range tracks {
		if track.Artist == "" || track.Title == "" {
			continue
		}
		keys := artistKeys(track.Artist)
		if used.HasAny(keys...) || track.Score < MinSimilarityScore {
			continue
		}
		score := track.Score
		r.accept(pool, SuggestionCandidate{Artist: track.Artist, Title: track.Title, Score: &score, Tier: TierSimilarTracks})
		used.Add(keys...)
	}
}

// similarArtistsTier adds the top track of each unused similar artist until
// the pool reaches TargetPoolSize.
func (r *Recommender) similarArtistsTier(ctx context.Context, seed TrackIdentity, used *store.KeySet, pool *SuggestionPool) {
	var artists []string
	_ = r.call(ctx, "similar_artists", func(ctx context.Context) error {
		var err error
		artists, err = r.provider.SimilarArtists(ctx, seed.Artist, SimilarArtistsLimit)
		return err
	})

	for _, artist := range artists {
		if len(pool.Candidates) >= TargetPoolSize || ctx.Err() != nil {
			return
		}
		keys := artistKeys(artist)
		if artist == "" || used.HasAny(keys...) {
			continue
		}

		var titles []string
		_ = r.call(ctx, "artist_top_tracks", func(ctx context.Context) error {
			var err error
			titles, err = r.provider.ArtistTopTracks(ctx, artist, SimilarArtistTopTracks)
			return err
		})
		if len(titles) == 0 || titles[0] == "" {
			continue
		}

		r.accept(pool, SuggestionCandidate{Artist: artist, Title: titles[0], Tier: TierSimilarArtists})
		used.Add(keys...)
	}
}

// seedArtistTier falls back to the seed artist's own popular tracks.
func (r *Recommender) seedArtistTier(ctx context.Context, seed TrackIdentity, pool *SuggestionPool) {
	var titles []string
	_ = r.call(ctx, "artist_top_tracks", func(ctx context.Context) error {
		var err error
		titles, err = r.provider.ArtistTopTracks(ctx, seed.Artist, SeedArtistTopTracks)
		return err
	})

	for _, title := range titles {
		if len(pool.Candidates) >= TargetPoolSize {
			return
		}
		if title == "" || strings.EqualFold(title, seed.Title) {
			continue
		}
		r.accept(pool, SuggestionCandidate{Artist: seed.Artist, Title: title, Tier: TierArtistTopTracks})
	}
}

func (r *Recommender) accept(pool *SuggestionPool, candidate SuggestionCandidate) {
	pool.Candidates = append(pool.Candidates, candidate)
	r.metrics.RecordCandidate(string(candidate.Tier))
}

func (r *Recommender) trackInfo(ctx context.Context, seed TrackIdentity) (*TrackInfo, error) {
	var info *TrackInfo
	err := r.call(ctx, "track_info", func(ctx context.Context) error {
		var err error
		info, err = r.provider.TrackInfo(ctx, seed.Artist, seed.Title)
		return err
	})
	if err == nil && info == nil {
		return nil, ErrNotFound
	}
	return info, err
}

// call runs one provider operation under the per-call timeout. Failures
// other than ErrNotFound are logged and counted, and callers continue as if
// the operation returned nothing.
func (r *Recommender) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()

	err := fn(callCtx)
	if err == nil || errors.Is(err, ErrNotFound) || ctx.Err() != nil {
		return err
	}

	provider := "metadata"
	var perr *ProviderError
	if errors.As(err, &perr) {
		provider = perr.Provider
	}
	r.metrics.RecordProviderError(provider, op)
	r.logger.Warn("Metadata provider call failed, continuing without it",
		zap.String("provider", provider),
		zap.String("op", op),
		zap.Error(err))
	return err
}

// annotate resolves the seed and every candidate against the local catalog
// concurrently. Each worker writes only its own candidate slot.
func (r *Recommender) annotate(ctx context.Context, pool *SuggestionPool) error {
	if r.catalog == nil {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.annotateLimit)

	g.Go(func() error {
		if ref, ok := r.findLocal(gctx, pool.Owner); ok {
			pool.SeedIsLocal = true
			pool.SeedLocalRef = ref
		}
		return nil
	})
	for i := range pool.Candidates {
		g.Go(func() error {
			if ref, ok := r.findLocal(gctx, pool.Candidates[i].Identity()); ok {
				pool.Candidates[i].IsLocal = true
				pool.Candidates[i].LocalRef = ref
			}
			return nil
		})
	}
	_ = g.Wait()

	return cancelled(ctx)
}

func (r *Recommender) findLocal(ctx context.Context, track TrackIdentity) (string, bool) {
	match, err := r.matcher.FindBestMatch(ctx, track.Artist, track.Title, r.catalog)
	if err != nil {
		if !errors.Is(err, fuzzy.ErrNoLocalMatch) && ctx.Err() == nil {
			r.logger.Warn("Local catalog lookup failed",
				zap.String("artist", track.Artist),
				zap.String("title", track.Title),
				zap.Error(err))
		}
		return "", false
	}
	return match.Entry.ID, true
}

// artistKeys returns the canonical and raw lowercase dedup keys for an artist.
func artistKeys(artist string) []string {
	return []string{fuzzy.NormalizeArtist(artist), strings.ToLower(artist)}
}

// isNiche reports whether the seed is known to have fewer listeners than
// PopularityThreshold. Unknown counts are treated as popular.
func isNiche(info *TrackInfo) bool {
	return info != nil && info.ListenersKnown && info.Listeners < PopularityThreshold
}

func cancelled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrCancelled, err)
	}
	return nil
}
