// Package domain contains the core data types for the travel journal.
// It is imported by every other internal package (media, archive, repo,
// service, handler) and depends on nothing inside the module.
package domain

import "time"

// Trip is the top-level aggregate. Tags and entries belong to a trip and are
// deleted with it.
type Trip struct {
	ID            string
	OwnerID       string
	Title         string
	StartDate     time.Time
	EndDate       *time.Time // nil while the trip is open-ended
	CoverImageURL *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TripAggregate is a trip loaded as one unit together with its tags and its
// entries, each entry carrying its own media and tags.
type TripAggregate struct {
	Trip    Trip
	Tags    []Tag
	Entries []EntryAggregate
}

// EntryAggregate is one entry of a TripAggregate.
type EntryAggregate struct {
	Entry Entry
	Media []EntryMedia
	Tags  []Tag
}

// MediaCount returns the number of EntryMedia rows across all entries.
func (a TripAggregate) MediaCount() int {
	n := 0
	for _, e := range a.Entries {
		n += len(e.Media)
	}
	return n
}
