// Package i18n renders the status lines shown next to the suggestion pool
// and link results in the configured language.
package i18n

import (
	"fmt"
	"slices"
)

const (
	// DefaultLanguage is used for unknown languages and for keys a catalog lacks.
	DefaultLanguage = "en"
	// BerneseGermanMessages is a Swiss Dialect spoken in the Canton of Bern
	BerneseGermanMessages = "ch_be"
)

// catalogs maps language codes to their message tables, in display order.
var catalogs = []struct {
	language string
	messages map[string]string
}{
	{DefaultLanguage, englishMessages},
	{BerneseGermanMessages, berneseGermanMessages},
}

// Localizer looks up status lines for one language.
type Localizer struct {
	language string
	messages map[string]string
}

func NewLocalizer(language string) *Localizer {
	if !IsSupported(language) {
		language = DefaultLanguage
	}
	return &Localizer{
		language: language,
		messages: getMessages(language),
	}
}

// Language returns the language the localizer renders, after fallback.
func (l *Localizer) Language() string {
	return l.language
}

// T renders key with args. Keys missing from the language fall back to the
// English table, and unknown keys render as the key itself.
func (l *Localizer) T(key string, args ...any) string {
	message, ok := l.messages[key]
	if !ok {
		message, ok = englishMessages[key]
	}
	if !ok {
		return key
	}
	if len(args) == 0 {
		return message
	}
	return fmt.Sprintf(message, args...)
}

// GetSupportedLanguages returns the language codes with a message table.
func GetSupportedLanguages() []string {
	languages := make([]string, 0, len(catalogs))
	for _, c := range catalogs {
		languages = append(languages, c.language)
	}
	return languages
}

func IsSupported(language string) bool {
	return slices.Contains(GetSupportedLanguages(), language)
}

func getMessages(language string) map[string]string {
	for _, c := range catalogs {
		if c.language == language {
			return c.messages
		}
	}
	return englishMessages
}
