package i18n

// englishMessages contains all English translations.
var englishMessages = map[string]string{
	// Session status lines
	"status.listening":      "🎧 Listening for music…",
	"status.finding":        "🔎 Finding suggestions for %s…",
	"status.no_seed_match":  "No Last.fm match for %s",
	"status.suggested":      "🎵 Suggested for you:",
	"status.no_suggestions": "No suggestions found",
	"status.now_playing":    "▶️ Now playing: %s",

	// Format helpers
	"format.local":    " (in your library)",
	"format.position": "%d. %s",

	// Link resolution
	"link.resolved":  "🔗 %s",
	"link.not_found": "No link found for %s. Try searching: %s",

	// Error messages
	"error.generic":        "Something went wrong. Please try again.",
	"error.rate_limited":   "Too many requests. Please slow down.",
	"error.missing_params": "Both artist and title are required.",
	"error.bad_event":      "Invalid playback event.",
}
