package archive

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/pkordes/travel-journal/internal/domain"
)

// rawDocuments are the undecoded JSON documents of a candidate archive.
type rawDocuments struct {
	meta    Meta
	trip    []byte
	entries []byte
}

// schema decodes and structurally validates the documents of one format
// version. Parse picks the schema by meta.json's formatVersion, so a new
// version only needs a new entry in schemas.
type schema interface {
	decode(docs rawDocuments) (domain.TripAggregate, []string)
}

var schemas = map[string]schema{
	FormatVersion: schemaV1{},
}

// SupportedVersions lists the format versions this build can restore.
func SupportedVersions() []string {
	return slices.Sorted(maps.Keys(schemas))
}

// checker accumulates structural problems with their document paths.
type checker struct {
	problems []string
}

func (c *checker) addf(format string, args ...any) {
	c.problems = append(c.problems, fmt.Sprintf(format, args...))
}

func (c *checker) required(path, v string) string {
	if v == "" {
		c.addf("%s is required", path)
	}
	return v
}

func (c *checker) timestamp(path, v string) time.Time {
	if v == "" {
		c.addf("%s is required", path)
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		c.addf("%s is not an ISO-8601 timestamp: %q", path, v)
		return time.Time{}
	}
	return t.UTC()
}

func (c *checker) date(path, v string) time.Time {
	if v == "" {
		c.addf("%s is required", path)
		return time.Time{}
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		c.addf("%s is not an ISO-8601 date: %q", path, v)
		return time.Time{}
	}
	return t
}

// schemaV1 is the original archive layout written by Serialize.
type schemaV1 struct{}

func (schemaV1) decode(docs rawDocuments) (domain.TripAggregate, []string) {
	var c checker

	var tripDoc TripDoc
	if err := json.Unmarshal(docs.trip, &tripDoc); err != nil {
		c.addf("%s: %v", TripFile, err)
	}
	var entriesDoc EntriesDoc
	if err := json.Unmarshal(docs.entries, &entriesDoc); err != nil {
		c.addf("%s: %v", EntriesFile, err)
	}
	if len(c.problems) > 0 {
		return domain.TripAggregate{}, c.problems
	}

	agg := domain.TripAggregate{Trip: decodeTrip(&c, tripDoc.Trip)}

	tagsByID := make(map[string]domain.Tag, len(tripDoc.Tags))
	names := make(map[string]bool, len(tripDoc.Tags))
	for i, rec := range tripDoc.Tags {
		path := fmt.Sprintf("%s: tags[%d]", TripFile, i)
		tag := decodeTag(&c, path, rec)
		tag.TripID = agg.Trip.ID
		if tag.ID != "" {
			if _, dup := tagsByID[tag.ID]; dup {
				c.addf("%s.id %q is duplicated", path, tag.ID)
			}
			tagsByID[tag.ID] = tag
		}
		if tag.NormalizedName != "" {
			if names[tag.NormalizedName] {
				c.addf("%s.normalizedName %q is duplicated", path, tag.NormalizedName)
			}
			names[tag.NormalizedName] = true
		}
		agg.Tags = append(agg.Tags, tag)
	}

	entryIDs := make(map[string]bool, len(entriesDoc.Entries))
	mediaIDs := make(map[string]bool)
	mediaURLs := make(map[string]bool)
	for i, rec := range entriesDoc.Entries {
		path := fmt.Sprintf("%s: entries[%d]", EntriesFile, i)
		ea := domain.EntryAggregate{Entry: decodeEntry(&c, path, rec)}

		if id := ea.Entry.ID; id != "" {
			if entryIDs[id] {
				c.addf("%s.id %q is duplicated", path, id)
			}
			entryIDs[id] = true
		}
		if ea.Entry.TripID != "" && ea.Entry.TripID != agg.Trip.ID {
			c.addf("%s.tripId %q does not match trip id %q", path, ea.Entry.TripID, agg.Trip.ID)
		}

		for j, m := range rec.Media {
			mpath := fmt.Sprintf("%s.media[%d]", path, j)
			em := domain.EntryMedia{
				ID:        c.required(mpath+".id", m.ID),
				EntryID:   ea.Entry.ID,
				URL:       c.required(mpath+".url", m.URL),
				CreatedAt: c.timestamp(mpath+".createdAt", m.CreatedAt),
			}
			if em.ID != "" {
				if mediaIDs[em.ID] {
					c.addf("%s.id %q is duplicated", mpath, em.ID)
				}
				mediaIDs[em.ID] = true
			}
			if em.URL != "" {
				if mediaURLs[em.URL] {
					c.addf("%s.url %q is duplicated", mpath, em.URL)
				}
				mediaURLs[em.URL] = true
			}
			ea.Media = append(ea.Media, em)
		}

		linked := make(map[string]bool, len(rec.Tags))
		for j, t := range rec.Tags {
			tpath := fmt.Sprintf("%s.tags[%d]", path, j)
			tag, ok := tagsByID[t.ID]
			if !ok {
				c.addf("%s.id %q does not reference a trip tag", tpath, t.ID)
				continue
			}
			if linked[tag.ID] {
				continue
			}
			linked[tag.ID] = true
			ea.Tags = append(ea.Tags, tag)
		}

		agg.Entries = append(agg.Entries, ea)
	}

	meta := docs.meta
	if meta.TripID != agg.Trip.ID {
		c.addf("%s: tripId %q does not match trip id %q", MetaFile, meta.TripID, agg.Trip.ID)
	}
	if meta.EntryCount != len(agg.Entries) {
		c.addf("%s: entryCount is %d but %s has %d entries", MetaFile, meta.EntryCount, EntriesFile, len(agg.Entries))
	}
	c.timestamp(MetaFile+": exportedAt", meta.ExportedAt)

	return agg, c.problems
}

func decodeTrip(c *checker, rec TripRecord) domain.Trip {
	path := TripFile + ": trip"
	t := domain.Trip{
		ID:            c.required(path+".id", rec.ID),
		OwnerID:       rec.OwnerID,
		Title:         c.required(path+".title", rec.Title),
		StartDate:     c.date(path+".startDate", rec.StartDate),
		CoverImageURL: rec.CoverImageURL,
		CreatedAt:     c.timestamp(path+".createdAt", rec.CreatedAt),
		UpdatedAt:     c.timestamp(path+".updatedAt", rec.UpdatedAt),
	}
	if rec.EndDate != nil {
		end := c.date(path+".endDate", *rec.EndDate)
		t.EndDate = &end
	}
	return t
}

func decodeTag(c *checker, path string, rec TagRecord) domain.Tag {
	// The stored normalizedName is advisory; the key is always recomputed
	// so tags differing only in case collide.
	return domain.Tag{
		ID:             c.required(path+".id", rec.ID),
		Name:           c.required(path+".name", rec.Name),
		NormalizedName: domain.NormalizeTagName(rec.Name),
		CreatedAt:      c.timestamp(path+".createdAt", rec.CreatedAt),
	}
}

func decodeEntry(c *checker, path string, rec EntryRecord) domain.Entry {
	return domain.Entry{
		ID:                 c.required(path+".id", rec.ID),
		TripID:             c.required(path+".tripId", rec.TripID),
		Title:              rec.Title,
		Text:               rec.Text,
		CoverImageURL:      rec.CoverImageURL,
		Latitude:           rec.Latitude,
		Longitude:          rec.Longitude,
		LocationName:       rec.LocationName,
		WeatherCondition:   rec.WeatherCondition,
		WeatherTemperature: rec.WeatherTemperature,
		WeatherIconCode:    rec.WeatherIconCode,
		CreatedAt:          c.timestamp(path+".createdAt", rec.CreatedAt),
		UpdatedAt:          c.timestamp(path+".updatedAt", rec.UpdatedAt),
	}
}
