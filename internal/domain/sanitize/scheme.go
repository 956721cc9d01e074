package sanitize

import "strings"

// Known insecure archive prefixes and their secure equivalents.
var archiveSchemes = strings.NewReplacer(
	"http://web.archive.org/", "https://web.archive.org/",
	"http://archive.org/", "https://archive.org/",
)

// Attribute-level upgrades applied to serialized output only.
var attributeSchemes = strings.NewReplacer(
	"http://web.archive.org/", "https://web.archive.org/",
	"http://archive.org/", "https://archive.org/",
	`href="http://`, `href="https://`,
	`src="http://`, `src="https://`,
)

// NormalizeSchemes upgrades archive-domain URLs anywhere in text, including
// inline script bodies the tree passes never visit. It is idempotent.
func NormalizeSchemes(text string) string {
	return archiveSchemes.Replace(text)
}

// FinalizeSchemes is the post-serialization pass: archive-domain prefixes
// plus any double-quoted href or src still using http.
func FinalizeSchemes(text string) string {
	return attributeSchemes.Replace(text)
}
