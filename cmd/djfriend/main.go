// Package main provides the DJ Friend CLI application entry point.
package main

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"djfriend/internal/core"
	"djfriend/internal/i18n"
	"djfriend/pkg/musiclink"
)

const (
	defaultServerHost = "0.0.0.0"
	envPrefix         = "DJFRIEND"
	version           = "1.0.0"
	noneProvider      = "none"
)

var (
	cfgFile string
	config  *core.Config
	logger  *zap.Logger
)

// idleTimeoutOptions are the accepted --idle-timeout-secs values; 0 never expires.
var idleTimeoutOptions = []int{0, 60, 180, 300}

var rootCmd = &cobra.Command{
	Use:   "djfriend",
	Short: "DJ Friend - now-playing arbitration and track suggestions",
	Long: `DJ Friend follows what is playing across several playback sources, decides which
source is authoritative, and suggests what to play next from Last.fm (or an LLM),
flagging suggestions you already own in your local catalog.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is .env)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "json", "log format (json, console)")

	flags.String("metadata-provider", core.DefaultMetadataProvider, "Metadata provider (lastfm, openai, anthropic, ollama)")
	flags.Int("call-timeout-secs", core.DefaultCallTimeoutSecs, "Timeout for a single metadata provider call in seconds")
	flags.String("lastfm-api-key", "", "Last.fm API key")
	flags.String("lastfm-base-url", core.DefaultLastFMBaseURL, "Last.fm API base URL")
	flags.Int("lastfm-cache-size", core.DefaultLastFMCacheSize, "Number of Last.fm responses kept in memory")
	flags.Int("lastfm-cache-ttl-mins", core.DefaultLastFMCacheTTLMins, "Lifetime of cached Last.fm responses in minutes")

	flags.String("llm-model", "", "LLM model name (provider default when empty)")
	flags.String("llm-api-key", "", "LLM API key")
	flags.String("llm-base-url", "", "LLM base URL (Ollama host, or an OpenAI-compatible endpoint)")

	flags.String("spotify-client-id", "", "Spotify client ID")
	flags.String("spotify-client-secret", "", "Spotify client secret")
	flags.String("spotify-redirect-url", "", "Spotify OAuth redirect URL (default: derived from server address)")
	flags.String("spotify-token-path", "./spotify_token.json", "Spotify user token storage path")
	flags.Bool("spotify-observer-enabled", false, "Observe Spotify playback as a playback source")
	flags.Int("spotify-poll-interval-secs", core.DefaultSpotifyPollSecs, "Spotify playback polling interval in seconds")
	flags.String("spotify-source-id", core.DefaultSpotifySourceID, "Source ID used for Spotify playback events")

	flags.String("link-provider", core.DefaultLinkProvider, "Link lookup provider (musicbrainz, spotify, none)")
	flags.Int("link-throttle-millis", core.DefaultLinkThrottleMillis, "Minimum spacing between link candidate lookups in milliseconds")
	flags.Int("link-max-candidates", musiclink.MaxCandidates, "Maximum candidates inspected per link lookup")
	flags.String("musicbrainz-base-url", musiclink.MusicBrainzBaseURL, "MusicBrainz web service base URL")
	flags.String("musicbrainz-user-agent", musiclink.DefaultUserAgent, "User-Agent sent to MusicBrainz")

	flags.String("catalog-path", core.DefaultCatalogPath, "Local catalog database path (empty disables local matching)")
	flags.Bool("catalog-fold-accents", false, "Fold accented letters when matching against the catalog")
	flags.Int("catalog-annotate-concurrency", core.DefaultAnnotateConcurrency, "Concurrent catalog lookups per suggestion pool")

	flags.String("server-host", defaultServerHost, "HTTP server host")
	flags.Int("server-port", core.DefaultServerPort, "HTTP server port")

	supportedLangs := strings.Join(i18n.GetSupportedLanguages(), ", ")
	flags.String("language", i18n.DefaultLanguage, fmt.Sprintf("Status line language (%s)", supportedLangs))
	flags.Int("page-size", core.DefaultPageSize, "Suggestions per page")
	flags.Int("idle-timeout-secs", core.DefaultIdleTimeoutSecs, "End the listening session after this long without playback (0, 60, 180 or 300)")
	flags.Int("flood-limit-per-minute", core.DefaultFloodLimitPerMinute, "Maximum link requests per client per minute")
	flags.Bool("generate-env-example", false, "Generate .env.example file from current configuration and exit")

	if err := viper.BindPFlags(flags); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bind flags: %v\n", err)
		os.Exit(1)
	}

	rootCmd.AddCommand(catalogCmd, suggestCmd, linkCmd)
}

func initConfig() {
	envFile := ".env"
	if cfgFile != "" {
		envFile = cfgFile
	}

	if err := gotenv.Load(envFile); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Error loading .env file: %v\n", err)
		}
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	config = buildConfig()
	logger = buildLogger(config.Log.Level, config.Log.Format)
}

func buildConfig() *core.Config {
	cfg := core.DefaultConfig()

	configureMetadata(cfg)
	configureServer(cfg)
	configureSpotify(cfg)
	configureLinks(cfg)
	configureCatalog(cfg)
	configureApp(cfg)

	return cfg
}

func configureMetadata(cfg *core.Config) {
	cfg.Metadata.Provider = strings.ToLower(viper.GetString("metadata-provider"))
	cfg.Metadata.CallTimeoutSecs = viper.GetInt("call-timeout-secs")

	cfg.LastFM.APIKey = viper.GetString("lastfm-api-key")
	cfg.LastFM.BaseURL = viper.GetString("lastfm-base-url")
	cfg.LastFM.CacheSize = viper.GetInt("lastfm-cache-size")
	cfg.LastFM.CacheTTLMins = viper.GetInt("lastfm-cache-ttl-mins")

	// Any provider other than Last.fm is an LLM backend.
	if cfg.Metadata.Provider != core.DefaultMetadataProvider {
		cfg.LLM.Provider = cfg.Metadata.Provider
	}
	cfg.LLM.Model = viper.GetString("llm-model")
	cfg.LLM.APIKey = viper.GetString("llm-api-key")
	cfg.LLM.BaseURL = viper.GetString("llm-base-url")
}

func configureServer(cfg *core.Config) {
	cfg.Server.Host = viper.GetString("server-host")
	if cfg.Server.Host == "" {
		cfg.Server.Host = defaultServerHost
	}
	cfg.Server.Port = viper.GetInt("server-port")
	cfg.Log.Level = viper.GetString("log-level")
	cfg.Log.Format = viper.GetString("log-format")
}

func configureSpotify(cfg *core.Config) {
	cfg.Spotify.ClientID = viper.GetString("spotify-client-id")
	cfg.Spotify.ClientSecret = viper.GetString("spotify-client-secret")
	cfg.Spotify.RedirectURL = viper.GetString("spotify-redirect-url")
	cfg.Spotify.TokenPath = viper.GetString("spotify-token-path")
	cfg.Spotify.ObserverEnabled = viper.GetBool("spotify-observer-enabled")
	cfg.Spotify.PollIntervalSecs = viper.GetInt("spotify-poll-interval-secs")
	cfg.Spotify.SourceID = viper.GetString("spotify-source-id")

	// Build default redirect URL based on server configuration if not explicitly set
	if cfg.Spotify.RedirectURL == "" {
		serverHost := cfg.Server.Host
		if serverHost == defaultServerHost {
			serverHost = "127.0.0.1"
		}
		cfg.Spotify.RedirectURL = fmt.Sprintf("http://%s:%d/callback", serverHost, cfg.Server.Port)
	}
}

func configureLinks(cfg *core.Config) {
	cfg.Link.Provider = strings.ToLower(viper.GetString("link-provider"))
	cfg.Link.ThrottleMillis = viper.GetInt("link-throttle-millis")
	cfg.Link.MaxCandidates = viper.GetInt("link-max-candidates")
	cfg.MusicBrainz.BaseURL = viper.GetString("musicbrainz-base-url")
	cfg.MusicBrainz.UserAgent = viper.GetString("musicbrainz-user-agent")
}

func configureCatalog(cfg *core.Config) {
	cfg.Catalog.Path = viper.GetString("catalog-path")
	cfg.Catalog.FoldAccents = viper.GetBool("catalog-fold-accents")
	cfg.Catalog.AnnotateConcurrency = viper.GetInt("catalog-annotate-concurrency")
}

func configureApp(cfg *core.Config) {
	cfg.App.PageSize = viper.GetInt("page-size")
	if cfg.App.PageSize <= 0 {
		cfg.App.PageSize = core.DefaultPageSize
	}
	cfg.App.IdleTimeoutSecs = viper.GetInt("idle-timeout-secs")

	cfg.App.Language = viper.GetString("language")
	if cfg.App.Language == "" {
		cfg.App.Language = i18n.DefaultLanguage
	}

	if !i18n.IsSupported(cfg.App.Language) {
		fmt.Fprintf(os.Stderr, "Warning: Unsupported language '%s', falling back to '%s'. Supported languages: %s\n",
			cfg.App.Language, i18n.DefaultLanguage, strings.Join(i18n.GetSupportedLanguages(), ", "))
		cfg.App.Language = i18n.DefaultLanguage
	}

	cfg.App.FloodLimitPerMinute = viper.GetInt("flood-limit-per-minute")
	if cfg.App.FloodLimitPerMinute <= 0 {
		cfg.App.FloodLimitPerMinute = core.DefaultFloodLimitPerMinute
	}
}

func buildLogger(level, format string) *zap.Logger {
	var zapLevel zapcore.Level
	switch strings.ToLower(level) {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)
	if format == "console" {
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	builtLogger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("Failed to build logger: %v", err))
	}

	return builtLogger
}

func validateConfig(cfg *core.Config) error {
	if err := validateMetadataConfig(cfg); err != nil {
		return err
	}

	if err := validateLinkConfig(cfg); err != nil {
		return err
	}

	if cfg.Spotify.ObserverEnabled {
		if err := validateSpotifyConfig(cfg); err != nil {
			return err
		}
	}

	if !slices.Contains(idleTimeoutOptions, cfg.App.IdleTimeoutSecs) {
		return fmt.Errorf("idle timeout must be one of %v seconds, got %d", idleTimeoutOptions, cfg.App.IdleTimeoutSecs)
	}

	return nil
}

func validateMetadataConfig(cfg *core.Config) error {
	switch cfg.Metadata.Provider {
	case "lastfm":
		if cfg.LastFM.APIKey == "" {
			return fmt.Errorf("Last.fm API key is required for the lastfm metadata provider")
		}
	case "openai", "anthropic":
		if cfg.LLM.APIKey == "" {
			return fmt.Errorf("LLM API key is required for provider: %s", cfg.Metadata.Provider)
		}
	case "ollama":
	default:
		return fmt.Errorf("unsupported metadata provider: %s", cfg.Metadata.Provider)
	}
	return nil
}

func validateLinkConfig(cfg *core.Config) error {
	switch cfg.Link.Provider {
	case "musicbrainz", noneProvider:
		return nil
	case "spotify":
		return validateSpotifyConfig(cfg)
	default:
		return fmt.Errorf("unsupported link provider: %s", cfg.Link.Provider)
	}
}

func validateSpotifyConfig(cfg *core.Config) error {
	if cfg.Spotify.ClientID == "" {
		return fmt.Errorf("spotify client ID is required")
	}

	if cfg.Spotify.ClientSecret == "" {
		return fmt.Errorf("spotify client secret is required")
	}

	return nil
}

// linkTimeout bounds a one-shot link lookup, which makes several throttled calls.
func linkTimeout(cfg *core.Config) time.Duration {
	return cfg.CallTimeout() + time.Duration(max(cfg.Link.MaxCandidates, 1))*cfg.LinkThrottle()
}
