package service_test

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pkordes/travel-journal/internal/archive"
	"github.com/pkordes/travel-journal/internal/domain"
	"github.com/pkordes/travel-journal/internal/media"
	"github.com/pkordes/travel-journal/internal/repo"
)

var (
	created    = time.Date(2025, 7, 1, 9, 30, 0, 0, time.UTC)
	exportedAt = time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	restoredAt = time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newLocator(t *testing.T) *media.Locator {
	t.Helper()
	loc, err := media.NewLocator(t.TempDir(), media.DefaultPrefix)
	require.NoError(t, err)
	return loc
}

func writeUpload(t *testing.T, loc *media.Locator, url string, size int) {
	t.Helper()
	path, ok := loc.Resolve(url)
	require.True(t, ok, "resolve %s", url)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	body := bytes.Repeat([]byte{byte(len(url))}, size)
	require.NoError(t, os.WriteFile(path, body, 0o644))
}

// uploadFiles lists every file under the upload root as slash paths.
func uploadFiles(t *testing.T, loc *media.Locator) []string {
	t.Helper()
	var files []string
	err := filepath.WalkDir(loc.Root(), func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(loc.Root(), path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	require.NoError(t, err)
	return files
}

func ptr[T any](v T) *T { return &v }

// alpsTrip is trip t1 owned by u1 with entry e1, photo m1 and tag g1.
// The entry text links the photo.
func alpsTrip() domain.TripAggregate {
	hiking := domain.Tag{ID: "g1", TripID: "t1", Name: "Hiking", NormalizedName: "hiking", CreatedAt: created}
	return domain.TripAggregate{
		Trip: domain.Trip{
			ID:            "t1",
			OwnerID:       "u1",
			Title:         "Alps",
			StartDate:     time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
			CoverImageURL: ptr("/uploads/trips/photo-1.jpg"),
			CreatedAt:     created,
			UpdatedAt:     created,
		},
		Tags: []domain.Tag{hiking},
		Entries: []domain.EntryAggregate{{
			Entry: domain.Entry{
				ID:        "e1",
				TripID:    "t1",
				Title:     "Day 1",
				Text:      `{"type":"doc","content":[{"type":"image","attrs":{"src":"/uploads/trips/photo-1.jpg"}}]}`,
				CreatedAt: created,
				UpdatedAt: created,
			},
			Media: []domain.EntryMedia{{ID: "m1", EntryID: "e1", URL: "/uploads/trips/photo-1.jpg", CreatedAt: created}},
			Tags:  []domain.Tag{hiking},
		}},
	}
}

// seed stores agg as-is.
func seed(t *testing.T, store *memStore, agg domain.TripAggregate) {
	t.Helper()
	ctx := context.Background()
	err := store.InTx(ctx, func(r repo.Repos) error {
		if _, err := r.Trips.Create(ctx, agg.Trip); err != nil {
			return err
		}
		for _, tag := range agg.Tags {
			if _, err := r.Tags.Create(ctx, tag); err != nil {
				return err
			}
		}
		for _, ea := range agg.Entries {
			if _, err := r.Entries.Create(ctx, ea.Entry); err != nil {
				return err
			}
			for _, tag := range ea.Tags {
				if err := r.Entries.LinkTag(ctx, ea.Entry.ID, tag.ID); err != nil {
					return err
				}
			}
			for _, m := range ea.Media {
				if _, err := r.Media.Create(ctx, m); err != nil {
					return err
				}
			}
		}
		return nil
	})
	require.NoError(t, err)
}

// archiveOf exports agg from loc and spools the bytes like an upload.
func archiveOf(t *testing.T, agg domain.TripAggregate, loc *media.Locator) *archive.Spooled {
	t.Helper()
	a, err := archive.Serialize(agg, loc, exportedAt)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, archive.Write(context.Background(), a, &buf))
	return spool(t, buf.Bytes())
}

func spool(t *testing.T, data []byte) *archive.Spooled {
	t.Helper()
	s, err := archive.Spool(bytes.NewReader(data), t.TempDir(), 0)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}
