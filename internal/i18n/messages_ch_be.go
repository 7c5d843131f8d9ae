package i18n

// berneseGermanMessages contains all Bernese German translations.
var berneseGermanMessages = map[string]string{
	// Session status lines
	"status.listening":      "🎧 Lose uf Musig…",
	"status.finding":        "🔎 Sueche Vorschläg für %s…",
	"status.no_seed_match":  "Ke Last.fm-Träffer für %s",
	"status.suggested":      "🎵 Vorschläg für di:",
	"status.no_suggestions": "Ke Vorschläg gfunde",
	"status.now_playing":    "▶️ Jitz lauft: %s",

	// Format helpers
	"format.local":    " (i dire Bibliothek)",
	"format.position": "%d. %s",

	// Link resolution
	"link.resolved":  "🔗 %s",
	"link.not_found": "Ke Link gfunde für %s. Probier d Suechi: %s",

	// Error messages
	"error.generic":        "Öppis isch schiefgloffe. Bitte nomau probiere.",
	"error.rate_limited":   "Z viu Aafrage. Bitte chli gmüetlicher.",
	"error.missing_params": "Es bruucht Künschtler u Titu.",
	"error.bad_event":      "Ungültige Wiedergab-Event.",
}
