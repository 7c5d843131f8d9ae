package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"djfriend/internal/catalog"
	"djfriend/internal/core"
	"djfriend/internal/i18n"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the local media catalog",
}

var catalogImportCmd = &cobra.Command{
	Use:   "import <dir>",
	Short: "Import audio files from a music directory into the catalog",
	Args:  cobra.ExactArgs(1),
	RunE:  runCatalogImport,
}

var catalogStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print catalog statistics",
	Args:  cobra.NoArgs,
	RunE:  runCatalogStats,
}

var suggestCmd = &cobra.Command{
	Use:   "suggest <artist> <title>",
	Short: "Compute suggestions for one track and print them",
	Args:  cobra.ExactArgs(2),
	RunE:  runSuggest,
}

var linkCmd = &cobra.Command{
	Use:   "link <artist> <title>",
	Short: "Resolve a streaming link for one track and print it",
	Args:  cobra.ExactArgs(2),
	RunE:  runLink,
}

func init() {
	catalogImportCmd.Flags().Bool("prune", false, "Remove catalog entries whose files were not found in this import")
	catalogCmd.AddCommand(catalogImportCmd, catalogStatsCmd)
}

func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func requireCatalog() (*catalog.Store, error) {
	if config.Catalog.Path == "" {
		return nil, fmt.Errorf("no catalog configured, set --catalog-path")
	}
	return openCatalog(config)
}

func runCatalogImport(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	store, err := requireCatalog()
	if err != nil {
		return err
	}
	defer closeCatalog(store)

	entries, err := catalog.ScanDir(ctx, args[0])
	if err != nil {
		return err
	}

	written, err := store.Upsert(ctx, entries)
	if err != nil {
		return err
	}
	logger.Info("Catalog import finished",
		zap.String("dir", args[0]),
		zap.Int("files", len(entries)),
		zap.Int("written", written))

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✅ Imported %d tracks from %s\n", written, args[0])

	prune, _ := cmd.Flags().GetBool("prune")
	if prune {
		removed, err := store.Prune(ctx, entries)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "🧹 Removed %d tracks no longer on disk\n", removed)
	}
	return nil
}

func runCatalogStats(cmd *cobra.Command, _ []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	store, err := requireCatalog()
	if err != nil {
		return err
	}
	defer closeCatalog(store)

	tracks, err := store.Count(ctx)
	if err != nil {
		return err
	}
	artists, err := store.ArtistCount(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Catalog: %s\nTracks:  %d\nArtists: %d\n", store.Path(), tracks, artists)
	return nil
}

func runSuggest(cmd *cobra.Command, args []string) error {
	if err := validateMetadataConfig(config); err != nil {
		return err
	}

	ctx, cancel := commandContext()
	defer cancel()

	provider, err := createMetadataProvider(config)
	if err != nil {
		return err
	}
	store, err := openCatalog(config)
	if err != nil {
		return err
	}
	defer closeCatalog(store)

	seed := core.TrackIdentity{Artist: args[0], Title: args[1]}
	pool, err := newRecommender(config, provider, store, nil).Recommend(ctx, seed)
	if err != nil {
		return err
	}

	printPool(cmd.OutOrStdout(), i18n.NewLocalizer(config.App.Language), pool)
	return nil
}

func printPool(out io.Writer, l *i18n.Localizer, pool *core.SuggestionPool) {
	owner := core.FallbackText(pool.Owner)
	if pool.SeedIsLocal {
		owner += l.T("format.local")
	}

	switch {
	case pool.Status == core.PoolNoSeedMatch:
		fmt.Fprintln(out, l.T("status.no_seed_match", owner))
		return
	case len(pool.Candidates) == 0:
		fmt.Fprintln(out, l.T("status.no_suggestions"))
		return
	}

	fmt.Fprintln(out, l.T("status.now_playing", owner))
	fmt.Fprintln(out, l.T("status.suggested"))
	for i, c := range pool.Candidates {
		line := l.T("format.position", i+1, core.FallbackText(core.TrackIdentity{Artist: c.Artist, Title: c.Title}))
		if c.IsLocal {
			line += l.T("format.local")
		}
		fmt.Fprintf(out, "%s [%s]\n", line, c.Tier)
	}
}

func runLink(cmd *cobra.Command, args []string) error {
	if err := validateLinkConfig(config); err != nil {
		return err
	}

	ctx, cancel := commandContext()
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, linkTimeout(config))
	defer cancelTimeout()

	resolver, err := createLinkResolver(ctx, config)
	if err != nil {
		return err
	}
	if resolver == nil {
		return fmt.Errorf("link lookups are disabled, set --link-provider")
	}

	track := core.TrackIdentity{Artist: args[0], Title: args[1]}
	result, err := core.NewLinkService(resolver, nil, logger).Resolve(ctx, "cli", track)
	if err != nil {
		return err
	}

	l := i18n.NewLocalizer(config.App.Language)
	if result.Resolved {
		fmt.Fprintln(cmd.OutOrStdout(), l.T("link.resolved", result.URL))
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), l.T("link.not_found", result.Fallback, result.SearchURL))
	return nil
}
