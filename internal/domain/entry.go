package domain

import "time"

// Entry is a dated journal entry on a trip. CreatedAt doubles as the entry
// date shown to readers. Text is the editor's document serialization and is
// never interpreted by the backend.
type Entry struct {
	ID                 string
	TripID             string
	Title              string
	Text               string
	CoverImageURL      *string
	Latitude           *float64
	Longitude          *float64
	LocationName       *string
	WeatherCondition   *string
	WeatherTemperature *float64
	WeatherIconCode    *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// EntryMedia is a photo or video attached to exactly one entry.
// URL is the public path under the upload prefix, e.g. /uploads/trips/photo-1.jpg.
type EntryMedia struct {
	ID        string
	EntryID   string
	URL       string
	CreatedAt time.Time
}

// EntryTagLink is one row of the entry/tag join table.
type EntryTagLink struct {
	EntryID string
	TagID   string
}
