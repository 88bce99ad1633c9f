package schema

import (
	"strings"
	"unicode"

	gslug "github.com/gosimple/slug"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

// Slugify turns an arbitrary name into a URL-safe slug: lowercase,
// ASCII-folded, non-alphanumerics collapsed to single hyphens.
func Slugify(s string) string {
	return gslug.Make(s)
}

// Humanize derives a display name from a slug by replacing every
// non-alphanumeric run with a space and title-casing the words.
func Humanize(slug string) string {
	var b strings.Builder
	for _, r := range slug {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return titleCaser.String(b.String())
}

// SafeKey normalizes a field key: lowercase, hyphens to underscores, any
// character outside [a-z0-9_] stripped.
func SafeKey(key string) string {
	key = strings.ToLower(key)
	key = strings.ReplaceAll(key, "-", "_")
	var b strings.Builder
	for _, r := range key {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
