// Package phone normalizes submitted phone numbers into E.164 where the
// input is parseable. Normalization is best effort: contact submissions
// keep whatever the visitor typed when parsing fails.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// regionForLanguage maps the form language to a default dialing region
// for numbers entered without a country code.
func regionForLanguage(language string) string {
	switch language {
	case "ar":
		return "SA"
	default:
		return "US"
	}
}

// Normalize returns the E.164 form of the number when it parses as a
// valid number for the language's default region, otherwise the trimmed
// original input.
func Normalize(raw, language string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return trimmed
	}

	parsed, err := phonenumbers.Parse(trimmed, regionForLanguage(language))
	if err != nil || !phonenumbers.IsValidNumber(parsed) {
		return trimmed
	}

	return phonenumbers.Format(parsed, phonenumbers.E164)
}
