package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

type envSection struct {
	title string
	note  string
	flags []string
}

var envSections = []envSection{
	{
		title: "Metadata Provider - Required",
		note:  "lastfm needs an API key from https://www.last.fm/api/account/create",
		flags: []string{"metadata-provider", "call-timeout-secs", "lastfm-api-key", "lastfm-base-url", "lastfm-cache-size", "lastfm-cache-ttl-mins"},
	},
	{
		title: "LLM Metadata Provider (used when metadata-provider is openai, anthropic or ollama)",
		note:  "Ollama needs no API key; set the base URL to your Ollama host",
		flags: []string{"llm-model", "llm-api-key", "llm-base-url"},
	},
	{
		title: "Spotify - Optional playback observer and link provider",
		note:  "Get credentials from https://developer.spotify.com/dashboard",
		flags: []string{"spotify-client-id", "spotify-client-secret", "spotify-redirect-url", "spotify-token-path", "spotify-observer-enabled", "spotify-poll-interval-secs", "spotify-source-id"},
	},
	{
		title: "Link Resolution",
		note:  "MusicBrainz asks clients to send at most one request per second",
		flags: []string{"link-provider", "link-throttle-millis", "link-max-candidates", "musicbrainz-base-url", "musicbrainz-user-agent"},
	},
	{
		title: "Local Catalog",
		note:  "Populate with: djfriend catalog import <music dir>",
		flags: []string{"catalog-path", "catalog-fold-accents", "catalog-annotate-concurrency"},
	},
	{
		title: "Application Settings",
		flags: []string{"language", "page-size", "idle-timeout-secs", "flood-limit-per-minute"},
	},
	{
		title: "HTTP Server Configuration",
		flags: []string{"server-host", "server-port"},
	},
	{
		title: "Logging Configuration",
		flags: []string{"log-level", "log-format"},
	},
}

func generateEnvExample(cmd *cobra.Command) error {
	fmt.Println("Generating .env.example file from current configuration...")

	content := generateEnvExampleContent(cmd)

	if err := os.WriteFile(".env.example", []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write .env.example: %w", err)
	}

	fmt.Println("✅ Successfully generated .env.example file")
	return nil
}

func generateEnvExampleContent(cmd *cobra.Command) string {
	var content strings.Builder

	content.WriteString("# =============================================================================\n")
	content.WriteString("# DJ Friend Configuration\n")
	content.WriteString("# =============================================================================\n")
	content.WriteString("#\n")
	content.WriteString("# Copy this file to .env and update with your values\n")
	content.WriteString("# All environment variables have CLI flag equivalents (use --help to see them)\n")
	content.WriteString("#\n")
	fmt.Fprintf(&content, "# Format: %s_<SETTING>=value\n", envPrefix)
	content.WriteString("# CLI equivalent: --<setting>\n")
	content.WriteString("#\n\n")

	for _, section := range envSections {
		generateSection(&content, cmd, section)
	}

	generateQuickSetupGuide(&content)

	return content.String()
}

func generateSection(content *strings.Builder, cmd *cobra.Command, section envSection) {
	content.WriteString("# -----------------------------------------------------------------------------\n")
	fmt.Fprintf(content, "# %s\n", section.title)
	content.WriteString("# -----------------------------------------------------------------------------\n")
	if section.note != "" {
		fmt.Fprintf(content, "# %s\n", section.note)
	}
	fmt.Fprintf(content, "# CLI: --%s\n", strings.Join(section.flags, ", --"))

	for _, name := range section.flags {
		f := cmd.PersistentFlags().Lookup(name)
		if f == nil {
			continue
		}
		fmt.Fprintf(content, "%s=%s  # %s (default: %q)\n",
			flagToEnvVar(name), getDefaultValueString(cmd, name), f.Usage, f.DefValue)
	}
	content.WriteString("\n")
}

func flagToEnvVar(flagName string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(flagName, "-", "_"))
}

func getDefaultValueString(cmd *cobra.Command, flagName string) string {
	if f := cmd.PersistentFlags().Lookup(flagName); f != nil {
		return f.DefValue
	}
	return ""
}

func generateQuickSetupGuide(content *strings.Builder) {
	content.WriteString("# =============================================================================\n")
	content.WriteString("# QUICK SETUP GUIDE\n")
	content.WriteString("# =============================================================================\n")
	content.WriteString("\n")
	content.WriteString("# 1. LAST.FM SETUP (Required for the default provider):\n")
	content.WriteString("#    - Create an API account at https://www.last.fm/api/account/create\n")
	fmt.Fprintf(content, "#    - Copy the API key to %s above\n", flagToEnvVar("lastfm-api-key"))
	content.WriteString("\n")
	content.WriteString("# 2. LOCAL CATALOG (Optional):\n")
	content.WriteString("#    djfriend catalog import ~/Music                 # Index Artist - Title files\n")
	content.WriteString("#    djfriend catalog stats                          # Check what was imported\n")
	content.WriteString("\n")
	content.WriteString("# 3. TEST CONFIGURATION:\n")
	content.WriteString("#    djfriend suggest \"Coldplay\" \"Clocks\"            # One-shot suggestions\n")
	content.WriteString("#    djfriend link \"Coldplay\" \"Clocks\"               # One-shot link lookup\n")
	content.WriteString("#    djfriend --log-level=debug                      # Run the service with debug logging\n")
	content.WriteString("\n")
	content.WriteString("# 4. FEED PLAYBACK EVENTS:\n")
	content.WriteString("#    curl -X POST localhost:8080/api/v1/events \\\n")
	content.WriteString("#      -d '{\"source_id\":\"kitchen\",\"artist\":\"Coldplay\",\"title\":\"Clocks\",\"status\":\"playing\"}'\n")
	content.WriteString("#    curl localhost:8080/api/v1/suggestions\n")
}
