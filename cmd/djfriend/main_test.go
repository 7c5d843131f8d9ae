package main

import (
	"strings"
	"testing"

	"github.com/spf13/viper"

	"djfriend/internal/core"
	"djfriend/internal/i18n"
)

func TestFlagToEnvVar(t *testing.T) {
	tests := []struct {
		flag     string
		expected string
	}{
		{"lastfm-api-key", "DJFRIEND_LASTFM_API_KEY"},
		{"server-port", "DJFRIEND_SERVER_PORT"},
		{"language", "DJFRIEND_LANGUAGE"},
	}

	for _, tt := range tests {
		t.Run(tt.flag, func(t *testing.T) {
			if got := flagToEnvVar(tt.flag); got != tt.expected {
				t.Errorf("flagToEnvVar(%q) = %q, want %q", tt.flag, got, tt.expected)
			}
		})
	}
}

func TestEnvSectionsCoverFlags(t *testing.T) {
	listed := map[string]bool{}
	for _, section := range envSections {
		for _, name := range section.flags {
			if rootCmd.PersistentFlags().Lookup(name) == nil {
				t.Errorf("section %q lists unknown flag %q", section.title, name)
			}
			listed[name] = true
		}
	}

	skip := map[string]bool{"config": true, "generate-env-example": true}
	for _, name := range viper.AllKeys() {
		if rootCmd.PersistentFlags().Lookup(name) != nil && !skip[name] && !listed[name] {
			t.Errorf("flag %q is missing from .env.example", name)
		}
	}
}

func TestGenerateEnvExampleContent(t *testing.T) {
	content := generateEnvExampleContent(rootCmd)

	for _, want := range []string{
		"DJFRIEND_METADATA_PROVIDER=lastfm",
		"DJFRIEND_IDLE_TIMEOUT_SECS=180",
		"DJFRIEND_LINK_PROVIDER=musicbrainz",
		"QUICK SETUP GUIDE",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("generated content missing %q", want)
		}
	}
}

func TestBuildConfig(t *testing.T) {
	t.Setenv("DJFRIEND_METADATA_PROVIDER", "Anthropic")
	t.Setenv("DJFRIEND_LANGUAGE", "xx")
	t.Setenv("DJFRIEND_SERVER_PORT", "9090")
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	cfg := buildConfig()

	if cfg.Metadata.Provider != "anthropic" || cfg.LLM.Provider != "anthropic" {
		t.Errorf("metadata provider = %q, llm provider = %q", cfg.Metadata.Provider, cfg.LLM.Provider)
	}
	if cfg.App.Language != i18n.DefaultLanguage {
		t.Errorf("unsupported language should fall back, got %q", cfg.App.Language)
	}
	if cfg.Spotify.RedirectURL != "http://127.0.0.1:9090/callback" {
		t.Errorf("RedirectURL = %q", cfg.Spotify.RedirectURL)
	}
	if cfg.App.IdleTimeoutSecs != core.DefaultIdleTimeoutSecs {
		t.Errorf("IdleTimeoutSecs = %d", cfg.App.IdleTimeoutSecs)
	}
}

func TestValidateConfig(t *testing.T) {
	valid := func() *core.Config {
		cfg := core.DefaultConfig()
		cfg.LastFM.APIKey = "key"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*core.Config)
		wantErr bool
	}{
		{"Defaults with key", func(*core.Config) {}, false},
		{"Missing Last.fm key", func(c *core.Config) { c.LastFM.APIKey = "" }, true},
		{"OpenAI without key", func(c *core.Config) { c.Metadata.Provider = "openai" }, true},
		{"Ollama without key", func(c *core.Config) { c.Metadata.Provider = "ollama" }, false},
		{"Unknown provider", func(c *core.Config) { c.Metadata.Provider = "discogs" }, true},
		{"Spotify links without credentials", func(c *core.Config) { c.Link.Provider = "spotify" }, true},
		{"Links disabled", func(c *core.Config) { c.Link.Provider = noneProvider }, false},
		{"Observer without credentials", func(c *core.Config) { c.Spotify.ObserverEnabled = true }, true},
		{"Idle timeout off", func(c *core.Config) { c.App.IdleTimeoutSecs = 0 }, false},
		{"Idle timeout five minutes", func(c *core.Config) { c.App.IdleTimeoutSecs = 300 }, false},
		{"Idle timeout unsupported", func(c *core.Config) { c.App.IdleTimeoutSecs = 42 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			if err := validateConfig(cfg); (err != nil) != tt.wantErr {
				t.Errorf("validateConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPrintPool(t *testing.T) {
	l := i18n.NewLocalizer(i18n.DefaultLanguage)
	owner := core.TrackIdentity{Artist: "Coldplay", Title: "Clocks"}

	tests := []struct {
		name     string
		pool     *core.SuggestionPool
		contains []string
	}{
		{
			name:     "No seed match",
			pool:     &core.SuggestionPool{Owner: owner, Status: core.PoolNoSeedMatch},
			contains: []string{"No Last.fm match for Coldplay - Clocks"},
		},
		{
			name:     "Empty",
			pool:     &core.SuggestionPool{Owner: owner, Status: core.PoolReady},
			contains: []string{"No suggestions found"},
		},
		{
			name: "Candidates",
			pool: &core.SuggestionPool{Owner: owner, Status: core.PoolReady, SeedIsLocal: true, Candidates: []core.SuggestionCandidate{
				{Artist: "Keane", Title: "Somewhere Only We Know", Tier: core.TierSimilarTracks, IsLocal: true},
				{Artist: "Snow Patrol", Title: "Chasing Cars", Tier: core.TierSimilarArtists},
			}},
			contains: []string{
				"Coldplay - Clocks (in your library)",
				"1. Keane - Somewhere Only We Know (in your library) [similar_tracks]",
				"2. Snow Patrol - Chasing Cars [similar_artists]",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out strings.Builder
			printPool(&out, l, tt.pool)
			for _, want := range tt.contains {
				if !strings.Contains(out.String(), want) {
					t.Errorf("output %q missing %q", out.String(), want)
				}
			}
		})
	}
}
