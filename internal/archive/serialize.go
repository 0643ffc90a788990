package archive

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/pkordes/travel-journal/internal/domain"
	"github.com/pkordes/travel-journal/internal/media"
)

// Archive is a serialized trip, ready to be streamed or measured.
// Documents hold the exact bytes Write puts into the ZIP.
type Archive struct {
	Meta      Meta
	Trip      TripDoc
	Entries   EntriesDoc
	Documents []Document
	Media     []MediaFile

	exportedAt time.Time
}

// Document is one JSON entry of the archive.
type Document struct {
	Name string
	Body []byte
}

// MediaFile is one media manifest item.
type MediaFile struct {
	URL         string
	ArchivePath string // "media/<rel>"
	SourcePath  string // absolute path under the upload root
	Size        int64
}

// Document returns the body of the named JSON document, or nil.
func (a *Archive) Document(name string) []byte {
	for _, d := range a.Documents {
		if d.Name == name {
			return d.Body
		}
	}
	return nil
}

// Serialize converts agg into an Archive.
//
// Every upload URL reachable from the trip (trip cover, entry covers, entry
// media) must resolve to an existing regular file; otherwise Serialize returns
// a *domain.MissingMediaError and nothing should be streamed. The output is
// deterministic for a given aggregate and exportedAt: entries, tags and media
// are ordered independently of the input order, and agg is not modified.
func Serialize(agg domain.TripAggregate, loc *media.Locator, exportedAt time.Time) (*Archive, error) {
	agg = sortedAggregate(agg)

	files, err := buildManifest(agg, loc)
	if err != nil {
		return nil, err
	}

	a := &Archive{
		Meta: Meta{
			TripID:        agg.Trip.ID,
			EntryCount:    len(agg.Entries),
			MediaCount:    len(files),
			ExportedAt:    formatTime(exportedAt),
			FormatVersion: FormatVersion,
		},
		Trip:       tripDoc(agg),
		Entries:    entriesDoc(agg),
		Media:      files,
		exportedAt: exportedAt.UTC(),
	}

	for _, d := range []struct {
		name string
		v    any
	}{
		{MetaFile, a.Meta},
		{TripFile, a.Trip},
		{EntriesFile, a.Entries},
	} {
		body, err := json.MarshalIndent(d.v, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("archive.Serialize: encode %s: %w", d.name, err)
		}
		a.Documents = append(a.Documents, Document{Name: d.name, Body: body})
	}
	return a, nil
}

// buildManifest collects every distinct upload URL of the trip, in the order
// trip cover, then per entry its cover followed by its media, and stats each.
func buildManifest(agg domain.TripAggregate, loc *media.Locator) ([]MediaFile, error) {
	files := []MediaFile{}
	seen := make(map[string]bool)

	add := func(url string) error {
		if url == "" || !loc.IsUpload(url) || seen[url] {
			return nil
		}
		seen[url] = true

		path, ok := loc.Resolve(url)
		if !ok {
			return &domain.MissingMediaError{URL: url, Err: errors.New("path escapes the upload root")}
		}
		info, err := os.Stat(path)
		if err != nil {
			return &domain.MissingMediaError{URL: url, Err: err}
		}
		if !info.Mode().IsRegular() {
			return &domain.MissingMediaError{URL: url, Err: errors.New("not a regular file")}
		}
		archivePath, _ := loc.ArchivePath(url)
		files = append(files, MediaFile{
			URL:         url,
			ArchivePath: archivePath,
			SourcePath:  path,
			Size:        info.Size(),
		})
		return nil
	}

	if err := add(deref(agg.Trip.CoverImageURL)); err != nil {
		return nil, err
	}
	for _, e := range agg.Entries {
		if err := add(deref(e.Entry.CoverImageURL)); err != nil {
			return nil, err
		}
		for _, m := range e.Media {
			if err := add(m.URL); err != nil {
				return nil, err
			}
		}
	}
	return files, nil
}

func tripDoc(agg domain.TripAggregate) TripDoc {
	t := agg.Trip
	rec := TripRecord{
		ID:            t.ID,
		OwnerID:       t.OwnerID,
		Title:         t.Title,
		StartDate:     formatDate(t.StartDate),
		CoverImageURL: t.CoverImageURL,
		CreatedAt:     formatTime(t.CreatedAt),
		UpdatedAt:     formatTime(t.UpdatedAt),
	}
	if t.EndDate != nil {
		end := formatDate(*t.EndDate)
		rec.EndDate = &end
	}

	tags := make([]TagRecord, 0, len(agg.Tags))
	for _, tag := range agg.Tags {
		tags = append(tags, tagRecord(tag))
	}
	return TripDoc{Trip: rec, Tags: tags}
}

func entriesDoc(agg domain.TripAggregate) EntriesDoc {
	entries := make([]EntryRecord, 0, len(agg.Entries))
	for _, ea := range agg.Entries {
		e := ea.Entry
		rec := EntryRecord{
			ID:                 e.ID,
			TripID:             e.TripID,
			Title:              e.Title,
			Text:               e.Text,
			CoverImageURL:      e.CoverImageURL,
			Latitude:           e.Latitude,
			Longitude:          e.Longitude,
			LocationName:       e.LocationName,
			WeatherCondition:   e.WeatherCondition,
			WeatherTemperature: e.WeatherTemperature,
			WeatherIconCode:    e.WeatherIconCode,
			CreatedAt:          formatTime(e.CreatedAt),
			UpdatedAt:          formatTime(e.UpdatedAt),
			Media:              make([]MediaRecord, 0, len(ea.Media)),
			Tags:               make([]TagRecord, 0, len(ea.Tags)),
		}
		for _, m := range ea.Media {
			rec.Media = append(rec.Media, MediaRecord{ID: m.ID, URL: m.URL, CreatedAt: formatTime(m.CreatedAt)})
		}
		for _, tag := range ea.Tags {
			rec.Tags = append(rec.Tags, tagRecord(tag))
		}
		entries = append(entries, rec)
	}
	return EntriesDoc{Entries: entries}
}

// sortedAggregate returns a copy of agg with entries ordered by (createdAt, id),
// tags by (normalizedName, id) and media by (createdAt, id).
func sortedAggregate(agg domain.TripAggregate) domain.TripAggregate {
	out := domain.TripAggregate{
		Trip:    agg.Trip,
		Tags:    sortedTags(agg.Tags),
		Entries: make([]domain.EntryAggregate, 0, len(agg.Entries)),
	}
	for _, e := range agg.Entries {
		m := slices.Clone(e.Media)
		slices.SortFunc(m, func(a, b domain.EntryMedia) int {
			return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.ID, b.ID))
		})
		out.Entries = append(out.Entries, domain.EntryAggregate{Entry: e.Entry, Media: m, Tags: sortedTags(e.Tags)})
	}
	slices.SortFunc(out.Entries, func(a, b domain.EntryAggregate) int {
		return cmp.Or(a.Entry.CreatedAt.Compare(b.Entry.CreatedAt), cmp.Compare(a.Entry.ID, b.Entry.ID))
	})
	return out
}

func sortedTags(tags []domain.Tag) []domain.Tag {
	out := slices.Clone(tags)
	slices.SortFunc(out, func(a, b domain.Tag) int {
		return cmp.Or(cmp.Compare(a.NormalizedName, b.NormalizedName), cmp.Compare(a.ID, b.ID))
	})
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
