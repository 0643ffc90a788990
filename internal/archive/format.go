// Package archive converts trip aggregates to and from the trip archive
// format: a ZIP holding meta.json, trip.json, entries.json and the media
// files under media/.
//
// The package does no database access. Serialize and Write are the export
// half; Parse is the restore half and stops at structural validation.
// Conflict detection against a live store belongs to the service layer.
package archive

import (
	"time"

	"github.com/pkordes/travel-journal/internal/domain"
)

// FormatVersion is the version written into meta.json by this build.
const FormatVersion = "1"

// Names of the JSON documents, in the order they are written.
const (
	MetaFile    = "meta.json"
	TripFile    = "trip.json"
	EntriesFile = "entries.json"
)

// dateLayout is used for trip start and end dates; every other timestamp uses
// time.RFC3339Nano in UTC.
const dateLayout = "2006-01-02"

// Meta is the content of meta.json.
type Meta struct {
	TripID        string `json:"tripId"`
	EntryCount    int    `json:"entryCount"`
	MediaCount    int    `json:"mediaCount"`
	ExportedAt    string `json:"exportedAt"`
	FormatVersion string `json:"formatVersion"`
}

// TripDoc is the content of trip.json.
type TripDoc struct {
	Trip TripRecord  `json:"trip"`
	Tags []TagRecord `json:"tags"`
}

// TripRecord holds the scalar trip fields.
type TripRecord struct {
	ID            string  `json:"id"`
	OwnerID       string  `json:"ownerId"`
	Title         string  `json:"title"`
	StartDate     string  `json:"startDate"`
	EndDate       *string `json:"endDate"`
	CoverImageURL *string `json:"coverImageUrl"`
	CreatedAt     string  `json:"createdAt"`
	UpdatedAt     string  `json:"updatedAt"`
}

// TagRecord is a tag as it appears in trip.json and in each entry.
type TagRecord struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	NormalizedName string `json:"normalizedName"`
	CreatedAt      string `json:"createdAt"`
}

// EntriesDoc is the content of entries.json.
type EntriesDoc struct {
	Entries []EntryRecord `json:"entries"`
}

// EntryRecord holds the scalar entry fields plus its media and tags.
type EntryRecord struct {
	ID                 string        `json:"id"`
	TripID             string        `json:"tripId"`
	Title              string        `json:"title"`
	Text               string        `json:"text"`
	CoverImageURL      *string       `json:"coverImageUrl"`
	Latitude           *float64      `json:"latitude"`
	Longitude          *float64      `json:"longitude"`
	LocationName       *string       `json:"locationName"`
	WeatherCondition   *string       `json:"weatherCondition"`
	WeatherTemperature *float64      `json:"weatherTemperature"`
	WeatherIconCode    *string       `json:"weatherIconCode"`
	CreatedAt          string        `json:"createdAt"`
	UpdatedAt          string        `json:"updatedAt"`
	Media              []MediaRecord `json:"media"`
	Tags               []TagRecord   `json:"tags"`
}

// MediaRecord is one EntryMedia row.
type MediaRecord struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	CreatedAt string `json:"createdAt"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatDate(t time.Time) string {
	return t.Format(dateLayout)
}

func tagRecord(t domain.Tag) TagRecord {
	return TagRecord{
		ID:             t.ID,
		Name:           t.Name,
		NormalizedName: t.NormalizedName,
		CreatedAt:      formatTime(t.CreatedAt),
	}
}
