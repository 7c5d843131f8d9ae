package core

import (
	"time"

	"djfriend/internal/i18n"
	"djfriend/pkg/musiclink"
)

const (
	DefaultMetadataProvider    = "lastfm"
	DefaultCallTimeoutSecs     = 10
	DefaultLastFMBaseURL       = "https://ws.audioscrobbler.com/2.0/"
	DefaultLastFMCacheSize     = 512
	DefaultLastFMCacheTTLMins  = 30
	DefaultLinkProvider        = "musicbrainz"
	DefaultLinkThrottleMillis  = 1000
	DefaultCatalogPath         = "./catalog.db"
	DefaultAnnotateConcurrency = 4
	DefaultSpotifyPollSecs     = 5
	DefaultSpotifySourceID     = "spotify"
	DefaultServerPort          = 8080
	DefaultPageSize            = 10
	DefaultIdleTimeoutSecs     = 180
	DefaultFloodLimitPerMinute = 30
	DefaultEventBuffer         = 64
)

type Config struct {
	Metadata    MetadataConfig
	LastFM      LastFMConfig
	LLM         LLMConfig
	Spotify     SpotifyConfig
	Link        LinkConfig
	MusicBrainz MusicBrainzConfig
	Catalog     CatalogConfig
	Server      ServerConfig
	Log         LogConfig
	App         AppConfig
}

// MetadataConfig selects the provider behind the recommendation tiers.
type MetadataConfig struct {
	Provider        string // lastfm, openai, anthropic or ollama
	CallTimeoutSecs int
}

type LastFMConfig struct {
	APIKey       string
	BaseURL      string
	CacheSize    int
	CacheTTLMins int
}

type LLMConfig struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
}

type SpotifyConfig struct {
	ClientID         string
	ClientSecret     string
	RedirectURL      string
	TokenPath        string
	ObserverEnabled  bool
	PollIntervalSecs int
	SourceID         string
}

type LinkConfig struct {
	Provider       string // musicbrainz or spotify
	ThrottleMillis int
	TargetPrefix   string
	MaxCandidates  int
}

type MusicBrainzConfig struct {
	BaseURL   string
	UserAgent string
}

type CatalogConfig struct {
	Path                string
	FoldAccents         bool
	AnnotateConcurrency int
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

type AppConfig struct {
	Language            string
	PageSize            int
	IdleTimeoutSecs     int // 0 keeps the listening session open forever
	FloodLimitPerMinute int
	EventBuffer         int
}

func DefaultConfig() *Config {
	return &Config{
		Metadata: MetadataConfig{
			Provider:        DefaultMetadataProvider,
			CallTimeoutSecs: DefaultCallTimeoutSecs,
		},
		LastFM: LastFMConfig{
			BaseURL:      DefaultLastFMBaseURL,
			CacheSize:    DefaultLastFMCacheSize,
			CacheTTLMins: DefaultLastFMCacheTTLMins,
		},
		Spotify: SpotifyConfig{
			RedirectURL:      "http://127.0.0.1:8080/callback",
			TokenPath:        "./spotify_token.json",
			PollIntervalSecs: DefaultSpotifyPollSecs,
			SourceID:         DefaultSpotifySourceID,
		},
		Link: LinkConfig{
			Provider:       DefaultLinkProvider,
			ThrottleMillis: DefaultLinkThrottleMillis,
			TargetPrefix:   musiclink.SpotifyTrackPrefix,
			MaxCandidates:  musiclink.MaxCandidates,
		},
		MusicBrainz: MusicBrainzConfig{
			BaseURL:   musiclink.MusicBrainzBaseURL,
			UserAgent: musiclink.DefaultUserAgent,
		},
		Catalog: CatalogConfig{
			Path:                DefaultCatalogPath,
			AnnotateConcurrency: DefaultAnnotateConcurrency,
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         DefaultServerPort,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		App: AppConfig{
			Language:            i18n.DefaultLanguage,
			PageSize:            DefaultPageSize,
			IdleTimeoutSecs:     DefaultIdleTimeoutSecs,
			FloodLimitPerMinute: DefaultFloodLimitPerMinute,
			EventBuffer:         DefaultEventBuffer,
		},
	}
}

func (c *Config) CallTimeout() time.Duration {
	if c.Metadata.CallTimeoutSecs <= 0 {
		return DefaultCallTimeoutSecs * time.Second
	}
	return time.Duration(c.Metadata.CallTimeoutSecs) * time.Second
}

func (c *Config) IdleTimeout() time.Duration {
	if c.App.IdleTimeoutSecs <= 0 {
		return 0
	}
	return time.Duration(c.App.IdleTimeoutSecs) * time.Second
}

func (c *Config) LinkThrottle() time.Duration {
	if c.Link.ThrottleMillis <= 0 {
		return DefaultLinkThrottleMillis * time.Millisecond
	}
	return time.Duration(c.Link.ThrottleMillis) * time.Millisecond
}
