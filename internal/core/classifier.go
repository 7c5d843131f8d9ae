package core

import (
	"regexp"
	"time"
)

// MaxTrackDuration is the longest duration still considered a song.
const MaxTrackDuration = 10 * time.Minute

var spokenWordRegex = regexp.MustCompile(`(?i)(podcast|episode|chapter|news|alert|notification|talk|interview|show|ep\s*\d+)`)

// IsMusicContent rejects spoken-word and notification content. An unknown
// duration (zero or negative) is accepted when the title passes.
func IsMusicContent(title string, duration time.Duration) bool {
	if spokenWordRegex.MatchString(title) {
		return false
	}
	if duration <= 0 {
		return true
	}
	return duration <= MaxTrackDuration
}
