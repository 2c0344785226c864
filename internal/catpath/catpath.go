// Package catpath normalizes human category labels into storage-safe path
// segments and maps known segments back to their display labels. Storage
// paths are the single source of truth for route-sheet categorization, so
// Encode must stay stable across versions: existing paths have to remain
// decodable.
package catpath

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// displayNames maps the fixed set of known segments back to their labels.
// Unknown segments pass through unchanged so documents uploaded under
// unrecognized categories still display.
var displayNames = map[string]string{
	"ete":      "Été",
	"semaine":  "Semaine",
	"vendredi": "Vendredi",
	"samedi":   "Samedi",
	"dimanche": "Dimanche",
	"vsd":      "VSD",
	"travaux":  "Travaux",
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Encode converts a human label into a storage-safe path segment: strip
// diacritics, lower-case, collapse runs outside [a-z0-9-_] to a single
// hyphen, trim leading and trailing hyphens. Idempotent.
func Encode(label string) string {
	folded, _, err := transform.String(stripMarks, label)
	if err != nil {
		folded = label
	}
	folded = strings.ToLower(folded)

	var b strings.Builder
	b.Grow(len(folded))
	pendingHyphen := false
	for _, r := range folded {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_':
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
		default:
			pendingHyphen = true
		}
	}
	return b.String()
}

// Decode returns the display label for a known segment; unknown segments
// are returned as-is.
func Decode(segment string) string {
	if label, ok := displayNames[segment]; ok {
		return label
	}
	return segment
}

// SplitPath extracts the encoded category and optional subcategory from a
// storage path. A path with a single leading segment before the filename
// has no subcategory; two leading segments mean a subcategory is present.
// A bare filename falls back to the weekday category so the document still
// shows up under a tab.
func SplitPath(storagePath string) (category, subcategory string) {
	parts := strings.Split(storagePath, "/")
	if len(parts) > 1 {
		category = parts[0]
	} else {
		category = "semaine"
	}
	if len(parts) > 2 {
		subcategory = parts[1]
	}
	return category, subcategory
}
