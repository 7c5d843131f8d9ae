package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"djfriend/internal/catalog"
	"djfriend/internal/core"
	"djfriend/internal/flood"
	httpserver "djfriend/internal/http"
	"djfriend/internal/i18n"
	"djfriend/internal/lastfm"
	"djfriend/internal/llm"
	"djfriend/internal/spotify"
	"djfriend/pkg/fuzzy"
	"djfriend/pkg/musiclink"
)

type services struct {
	catalog    *catalog.Store
	store      *core.SuggestionStore
	dispatcher *core.Dispatcher
	limiter    *flood.Floodgate
	httpServer *httpserver.Server
	observer   *spotify.Observer
}

func runServe(cmd *cobra.Command, _ []string) error {
	if viper.GetBool("generate-env-example") {
		return generateEnvExample(cmd)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("Starting DJ Friend",
		zap.String("version", version),
		zap.String("metadata_provider", config.Metadata.Provider),
		zap.String("link_provider", config.Link.Provider),
		zap.String("catalog", config.Catalog.Path),
		zap.Bool("spotify_observer", config.Spotify.ObserverEnabled))

	if err := validateConfig(config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	svcs, err := initializeServices(ctx)
	if err != nil {
		return err
	}

	return runServices(ctx, svcs)
}

func initializeServices(ctx context.Context) (*services, error) {
	metrics := httpserver.NewMetrics()

	provider, err := createMetadataProvider(config)
	if err != nil {
		return nil, err
	}

	catalogStore, err := openCatalog(config)
	if err != nil {
		return nil, err
	}

	recommender := newRecommender(config, provider, catalogStore, metrics)
	store := core.NewSuggestionStore(config.App.PageSize)
	dispatcher := core.NewDispatcher(config, core.NewArbiter(), recommender, store, metrics, logger)

	resolver, err := createLinkResolver(ctx, config)
	if err != nil {
		closeCatalog(catalogStore)
		return nil, err
	}

	limiter := flood.New(config.App.FloodLimitPerMinute)
	deps := httpserver.Deps{
		Events:    dispatcher,
		Pages:     store,
		Limiter:   limiter,
		Localizer: i18n.NewLocalizer(config.App.Language),
		Metrics:   metrics,
	}
	if resolver != nil {
		deps.Links = core.NewLinkService(resolver, metrics, logger)
	}

	svcs := &services{
		catalog:    catalogStore,
		store:      store,
		dispatcher: dispatcher,
		limiter:    limiter,
		httpServer: httpserver.NewServer(&config.Server, deps, logger),
	}

	if config.Spotify.ObserverEnabled {
		client := spotify.NewClient(&config.Spotify, logger)
		if authErr := client.Authenticate(ctx); authErr != nil {
			limiter.Stop()
			closeCatalog(catalogStore)
			return nil, fmt.Errorf("failed to authenticate with Spotify: %w", authErr)
		}
		svcs.observer = spotify.NewObserver(&config.Spotify, client, dispatcher, logger)
	}

	return svcs, nil
}

func createMetadataProvider(cfg *core.Config) (core.MetadataProvider, error) {
	if cfg.Metadata.Provider == core.DefaultMetadataProvider {
		client, err := lastfm.NewClient(&cfg.LastFM, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create Last.fm client: %w", err)
		}
		return client, nil
	}

	provider, err := llm.NewProvider(&cfg.LLM, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM provider: %w", err)
	}
	return provider, nil
}

// createLinkResolver returns nil when link lookups are disabled.
func createLinkResolver(ctx context.Context, cfg *core.Config) (core.LinkResolver, error) {
	var provider musiclink.LookupProvider

	switch cfg.Link.Provider {
	case noneProvider:
		return nil, nil
	case "spotify":
		searchProvider, err := spotify.NewSearchProvider(ctx, &cfg.Spotify, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create Spotify link provider: %w", err)
		}
		provider = searchProvider
	default:
		provider = musiclink.NewMusicBrainzProvider(
			musiclink.WithBaseURL(cfg.MusicBrainz.BaseURL),
			musiclink.WithUserAgent(cfg.MusicBrainz.UserAgent),
			musiclink.WithRelationPrefix(cfg.Link.TargetPrefix),
		)
	}

	return musiclink.NewResolver(provider,
		musiclink.WithThrottle(musiclink.NewIntervalThrottle(cfg.LinkThrottle())),
		musiclink.WithTargetPrefix(cfg.Link.TargetPrefix),
		musiclink.WithMaxCandidates(cfg.Link.MaxCandidates),
		musiclink.WithLogger(logger.Named("musiclink")),
	), nil
}

// openCatalog returns nil when no catalog path is configured.
func openCatalog(cfg *core.Config) (*catalog.Store, error) {
	if cfg.Catalog.Path == "" {
		return nil, nil
	}
	store, err := catalog.Open(cfg.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	return store, nil
}

func closeCatalog(store *catalog.Store) {
	if store == nil {
		return
	}
	if err := store.Close(); err != nil {
		logger.Debug("Failed to close catalog", zap.Error(err))
	}
}

func newRecommender(cfg *core.Config, provider core.MetadataProvider, store *catalog.Store, metrics core.MetricsRecorder) *core.Recommender {
	var opts []fuzzy.Option
	if cfg.Catalog.FoldAccents {
		opts = append(opts, fuzzy.WithAccentFolding())
	}
	matcher := fuzzy.NewMatcher(fuzzy.NewNormalizer(opts...))

	var local fuzzy.Catalog
	if store != nil {
		local = store
	}
	return core.NewRecommender(cfg, provider, matcher, local, metrics, logger)
}

func runServices(ctx context.Context, svcs *services) error {
	defer closeCatalog(svcs.catalog)
	defer svcs.limiter.Stop()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return svcs.httpServer.Start(gCtx)
	})

	g.Go(func() error {
		return svcs.dispatcher.Start(gCtx)
	})

	if svcs.observer != nil {
		g.Go(func() error {
			return svcs.observer.Run(gCtx)
		})
	}

	svcs.httpServer.SetReady(true)
	logger.Info("DJ Friend started successfully",
		zap.String("http_addr", fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)))

	err := g.Wait()
	svcs.httpServer.SetReady(false)

	if stopErr := svcs.dispatcher.Stop(context.Background()); stopErr != nil {
		logger.Debug("Failed to stop dispatcher gracefully", zap.Error(stopErr))
	}

	if err != nil {
		logger.Error("DJ Friend stopped with error", zap.Error(err))
		return err
	}

	logger.Info("DJ Friend stopped gracefully")
	return nil
}
