package domain

import (
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Tag is a label scoped to a single trip.
// NormalizedName is unique within the trip; Name keeps the casing the
// creator typed.
type Tag struct {
	ID             string
	TripID         string
	Name           string
	NormalizedName string
	CreatedAt      time.Time
}

// NormalizeTagName returns the case- and diacritic-insensitive key for a tag
// name: "  Côte d'Azur " and "cote D'AZUR" both become "cote d'azur".
// Internal whitespace runs collapse to a single space.
func NormalizeTagName(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, name)
	if err != nil {
		stripped = name
	}
	return strings.Join(strings.Fields(cases.Fold().String(stripped)), " ")
}
