package service_test

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/pkordes/travel-journal/internal/domain"
	"github.com/pkordes/travel-journal/internal/repo"
)

// ---- in-memory store --------------------------------------------------------
// memStore implements repo.Transactor over plain maps. Each InTx works on a
// copy that replaces the committed data only when fn succeeds, which is
// enough to observe rollback behaviour without Postgres.

var errInjected = errors.New("injected write failure")

type memData struct {
	trips   map[string]domain.Trip
	tags    map[string]domain.Tag
	entries map[string]domain.Entry
	links   map[domain.EntryTagLink]bool
	media   map[string]domain.EntryMedia
	imports map[string]domain.ImportRecord
}

func (d memData) clone() memData {
	return memData{
		trips:   maps.Clone(d.trips),
		tags:    maps.Clone(d.tags),
		entries: maps.Clone(d.entries),
		links:   maps.Clone(d.links),
		media:   maps.Clone(d.media),
		imports: maps.Clone(d.imports),
	}
}

type memStore struct {
	mu   sync.Mutex
	data memData

	// failOnWrite fails the Nth write (1-based) counted across all
	// transactions. Zero disables injection.
	failOnWrite int
	writes      int

	// beforeTx runs with the committed data before the nth InTx (1-based)
	// starts, standing in for a concurrent writer.
	beforeTx func(n int, d memData)
	txs      int

	// afterImportMiss runs when GetByChecksum finds nothing, standing in for
	// a writer that commits between the lookup and the insert.
	afterImportMiss func(tx *memTx)
}

var _ repo.Transactor = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{data: memData{
		trips:   map[string]domain.Trip{},
		tags:    map[string]domain.Tag{},
		entries: map[string]domain.Entry{},
		links:   map[domain.EntryTagLink]bool{},
		media:   map[string]domain.EntryMedia{},
		imports: map[string]domain.ImportRecord{},
	}}
}

func (s *memStore) InTx(_ context.Context, fn func(repo.Repos) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.txs++
	if s.beforeTx != nil {
		s.beforeTx(s.txs, s.data)
	}
	tx := &memTx{store: s, data: s.data.clone()}
	if err := fn(repo.Repos{
		Trips:   memTrips{tx},
		Tags:    memTags{tx},
		Entries: memEntries{tx},
		Media:   memMedia{tx},
		Imports: memImports{tx},
	}); err != nil {
		return err
	}
	s.data = tx.data
	return nil
}

// snapshot returns a copy of the committed data.
func (s *memStore) snapshot() memData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.clone()
}

type memTx struct {
	store *memStore
	data  memData
}

func (tx *memTx) write() error {
	tx.store.writes++
	if tx.store.failOnWrite > 0 && tx.store.writes == tx.store.failOnWrite {
		return errInjected
	}
	return nil
}

func conflict(what string) error {
	return fmt.Errorf("%w: %s", domain.ErrConflict, what)
}

func existingKeys[V any](m map[string]V, ids []string) []string {
	found := []string{}
	for _, id := range ids {
		if _, ok := m[id]; ok && !slices.Contains(found, id) {
			found = append(found, id)
		}
	}
	slices.Sort(found)
	return found
}

// ---- trips ----

type memTrips struct{ tx *memTx }

func (r memTrips) Create(_ context.Context, t domain.Trip) (domain.Trip, error) {
	if err := r.tx.write(); err != nil {
		return domain.Trip{}, err
	}
	if _, ok := r.tx.data.trips[t.ID]; ok {
		return domain.Trip{}, conflict("trips_pkey")
	}
	r.tx.data.trips[t.ID] = t
	return t, nil
}

func (r memTrips) GetByID(_ context.Context, id string) (domain.Trip, error) {
	t, ok := r.tx.data.trips[id]
	if !ok {
		return domain.Trip{}, domain.ErrNotFound
	}
	return t, nil
}

func (r memTrips) ExistingIDs(_ context.Context, ids []string) ([]string, error) {
	return existingKeys(r.tx.data.trips, ids), nil
}

// ---- tags ----

type memTags struct{ tx *memTx }

func (r memTags) Create(_ context.Context, t domain.Tag) (domain.Tag, error) {
	if err := r.tx.write(); err != nil {
		return domain.Tag{}, err
	}
	if _, ok := r.tx.data.trips[t.TripID]; !ok {
		return domain.Tag{}, fmt.Errorf("tags_trip_id_fkey: %s", t.TripID)
	}
	if _, ok := r.tx.data.tags[t.ID]; ok {
		return domain.Tag{}, conflict("tags_pkey")
	}
	if t.NormalizedName == "" {
		t.NormalizedName = domain.NormalizeTagName(t.Name)
	}
	for _, other := range r.tx.data.tags {
		if other.TripID == t.TripID && other.NormalizedName == t.NormalizedName {
			return domain.Tag{}, conflict("tags_trip_normalized_name_key")
		}
	}
	r.tx.data.tags[t.ID] = t
	return t, nil
}

func (r memTags) ListByTrip(_ context.Context, tripID string) ([]domain.Tag, error) {
	tags := []domain.Tag{}
	for _, t := range r.tx.data.tags {
		if t.TripID == tripID {
			tags = append(tags, t)
		}
	}
	slices.SortFunc(tags, func(a, b domain.Tag) int {
		return cmp.Or(cmp.Compare(a.NormalizedName, b.NormalizedName), cmp.Compare(a.ID, b.ID))
	})
	return tags, nil
}

func (r memTags) ExistingIDs(_ context.Context, ids []string) ([]string, error) {
	return existingKeys(r.tx.data.tags, ids), nil
}

// ---- entries ----

type memEntries struct{ tx *memTx }

func (r memEntries) Create(_ context.Context, e domain.Entry) (domain.Entry, error) {
	if err := r.tx.write(); err != nil {
		return domain.Entry{}, err
	}
	if _, ok := r.tx.data.trips[e.TripID]; !ok {
		return domain.Entry{}, fmt.Errorf("entries_trip_id_fkey: %s", e.TripID)
	}
	if _, ok := r.tx.data.entries[e.ID]; ok {
		return domain.Entry{}, conflict("entries_pkey")
	}
	r.tx.data.entries[e.ID] = e
	return e, nil
}

func (r memEntries) ListByTrip(_ context.Context, tripID string) ([]domain.Entry, error) {
	entries := []domain.Entry{}
	for _, e := range r.tx.data.entries {
		if e.TripID == tripID {
			entries = append(entries, e)
		}
	}
	slices.SortFunc(entries, func(a, b domain.Entry) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.ID, b.ID))
	})
	return entries, nil
}

func (r memEntries) ExistingIDs(_ context.Context, ids []string) ([]string, error) {
	return existingKeys(r.tx.data.entries, ids), nil
}

func (r memEntries) LinkTag(_ context.Context, entryID, tagID string) error {
	if err := r.tx.write(); err != nil {
		return err
	}
	if _, ok := r.tx.data.entries[entryID]; !ok {
		return fmt.Errorf("entry_tags_entry_id_fkey: %s", entryID)
	}
	if _, ok := r.tx.data.tags[tagID]; !ok {
		return fmt.Errorf("entry_tags_tag_id_fkey: %s", tagID)
	}
	r.tx.data.links[domain.EntryTagLink{EntryID: entryID, TagID: tagID}] = true
	return nil
}

func (r memEntries) ListTagLinks(_ context.Context, tripID string) ([]domain.EntryTagLink, error) {
	links := []domain.EntryTagLink{}
	for l := range r.tx.data.links {
		if r.tx.data.entries[l.EntryID].TripID == tripID {
			links = append(links, l)
		}
	}
	slices.SortFunc(links, func(a, b domain.EntryTagLink) int {
		return cmp.Or(cmp.Compare(a.EntryID, b.EntryID), cmp.Compare(a.TagID, b.TagID))
	})
	return links, nil
}

// ---- media ----

type memMedia struct{ tx *memTx }

func (r memMedia) Create(_ context.Context, m domain.EntryMedia) (domain.EntryMedia, error) {
	if err := r.tx.write(); err != nil {
		return domain.EntryMedia{}, err
	}
	if _, ok := r.tx.data.entries[m.EntryID]; !ok {
		return domain.EntryMedia{}, fmt.Errorf("entry_media_entry_id_fkey: %s", m.EntryID)
	}
	if _, ok := r.tx.data.media[m.ID]; ok {
		return domain.EntryMedia{}, conflict("entry_media_pkey")
	}
	for _, other := range r.tx.data.media {
		if other.URL == m.URL {
			return domain.EntryMedia{}, conflict("entry_media_url_key")
		}
	}
	r.tx.data.media[m.ID] = m
	return m, nil
}

func (r memMedia) ListByTrip(_ context.Context, tripID string) ([]domain.EntryMedia, error) {
	rows := []domain.EntryMedia{}
	for _, m := range r.tx.data.media {
		if r.tx.data.entries[m.EntryID].TripID == tripID {
			rows = append(rows, m)
		}
	}
	slices.SortFunc(rows, func(a, b domain.EntryMedia) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.ID, b.ID))
	})
	return rows, nil
}

func (r memMedia) ExistingIDs(_ context.Context, ids []string) ([]string, error) {
	return existingKeys(r.tx.data.media, ids), nil
}

func (r memMedia) ExistingURLs(_ context.Context, urls []string) ([]string, error) {
	found := []string{}
	for _, m := range r.tx.data.media {
		if slices.Contains(urls, m.URL) {
			found = append(found, m.URL)
		}
	}
	slices.Sort(found)
	return found, nil
}

// ---- imports ----

type memImports struct{ tx *memTx }

func (r memImports) Create(_ context.Context, rec domain.ImportRecord) error {
	if err := r.tx.write(); err != nil {
		return err
	}
	if _, ok := r.tx.data.imports[rec.Checksum]; ok {
		return conflict("import_records_pkey")
	}
	r.tx.data.imports[rec.Checksum] = rec
	return nil
}

func (r memImports) Save(_ context.Context, rec domain.ImportRecord) error {
	if err := r.tx.write(); err != nil {
		return err
	}
	r.tx.data.imports[rec.Checksum] = rec
	return nil
}

func (r memImports) GetByChecksum(_ context.Context, checksum string) (domain.ImportRecord, error) {
	rec, ok := r.tx.data.imports[checksum]
	if !ok {
		if hook := r.tx.store.afterImportMiss; hook != nil {
			hook(r.tx)
		}
		return domain.ImportRecord{}, domain.ErrNotFound
	}
	return rec, nil
}

// compile-time checks
var (
	_ repo.TripRepo   = memTrips{}
	_ repo.TagRepo    = memTags{}
	_ repo.EntryRepo  = memEntries{}
	_ repo.MediaRepo  = memMedia{}
	_ repo.ImportRepo = memImports{}
)
