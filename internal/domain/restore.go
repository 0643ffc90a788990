package domain

import "time"

// Counts tallies the entities contained in an archive or restored from it.
// Media counts EntryMedia rows, not distinct files.
type Counts struct {
	Trip    int `json:"trip"`
	Entries int `json:"entries"`
	Tags    int `json:"tags"`
	Media   int `json:"media"`
}

// ConflictReport lists archive identifiers that already exist in the
// destination store. Conflicts are advisory: a restore never overwrites the
// existing rows, it remaps the incoming ones instead.
type ConflictReport struct {
	Entries   []string `json:"entries"`
	Tags      []string `json:"tags"` // normalized tag names
	Media     []string `json:"media"`
	MediaURLs []string `json:"mediaUrls"`
	Counts    Counts   `json:"counts"`
}

// Empty reports whether no conflict of any kind was found.
func (r ConflictReport) Empty() bool {
	return len(r.Entries) == 0 && len(r.Tags) == 0 && len(r.Media) == 0 && len(r.MediaURLs) == 0
}

// RestoreOptions controls a restore attempt.
type RestoreOptions struct {
	DryRun bool
	// Force allows restoring an archive whose checksum was imported before.
	Force bool
	// OwnerID becomes the owner of the restored trip.
	OwnerID string
}

// RestoreSummary is the result of a restore or dry run.
// For a dry run TripID is the archive's trip id; for an applied restore it is
// the id the trip was stored under, which differs when the archive id was taken.
type RestoreSummary struct {
	TripID               string         `json:"tripId"`
	DryRun               bool           `json:"dryRun"`
	Counts               Counts         `json:"counts"`
	Conflicts            ConflictReport `json:"conflicts"`
	TripConflict         bool           `json:"tripConflict"`
	Checksum             string         `json:"checksum"`
	PreviousImportTripID string         `json:"previousImportTripId,omitempty"`
}

// ImportRecord marks an archive, by checksum, as restored into TripID.
type ImportRecord struct {
	Checksum   string
	TripID     string
	ImportedBy string
	ImportedAt time.Time
}
