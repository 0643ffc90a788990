package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/pkordes/travel-journal/internal/domain"
)

// EntryRepo defines the persistence operations for journal entries and the
// entry_tags join table.
type EntryRepo interface {
	// Create inserts entry. Returns domain.ErrConflict if the id is taken.
	Create(ctx context.Context, entry domain.Entry) (domain.Entry, error)

	// ListByTrip returns the trip's entries ordered by (created_at, id).
	ListByTrip(ctx context.Context, tripID string) ([]domain.Entry, error)

	// ExistingIDs returns the subset of ids that are already entry ids.
	ExistingIDs(ctx context.Context, ids []string) ([]string, error)

	// LinkTag attaches a tag to an entry. Idempotent.
	LinkTag(ctx context.Context, entryID, tagID string) error

	// ListTagLinks returns every entry-tag pair of the trip's entries.
	ListTagLinks(ctx context.Context, tripID string) ([]domain.EntryTagLink, error)
}

type pgEntryRepo struct {
	db db
}

// NewEntryRepo constructs an EntryRepo backed by the provided db connection.
func NewEntryRepo(db db) EntryRepo {
	return &pgEntryRepo{db: db}
}

const entryColumns = `id, trip_id, title, text, cover_image_url, latitude, longitude, location_name,
	weather_condition, weather_temperature, weather_icon_code, created_at, updated_at`

func (r *pgEntryRepo) Create(ctx context.Context, e domain.Entry) (domain.Entry, error) {
	const q = `
		INSERT INTO entries (id, trip_id, title, text, cover_image_url, latitude, longitude, location_name,
			weather_condition, weather_temperature, weather_icon_code, created_at, updated_at)
		VALUES (@id, @trip_id, @title, @text, @cover_image_url, @latitude, @longitude, @location_name,
			@weather_condition, @weather_temperature, @weather_icon_code, @created_at, @updated_at)
		RETURNING ` + entryColumns

	args := pgx.NamedArgs{
		"id":                  e.ID,
		"trip_id":             e.TripID,
		"title":               e.Title,
		"text":                e.Text,
		"cover_image_url":     e.CoverImageURL,
		"latitude":            e.Latitude,
		"longitude":           e.Longitude,
		"location_name":       e.LocationName,
		"weather_condition":   e.WeatherCondition,
		"weather_temperature": e.WeatherTemperature,
		"weather_icon_code":   e.WeatherIconCode,
		"created_at":          orNow(e.CreatedAt),
		"updated_at":          orNow(e.UpdatedAt),
	}

	result, err := scanEntry(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Entry{}, fmt.Errorf("repo.EntryRepo.Create: %w", mapWriteErr(err))
	}
	return result, nil
}

func (r *pgEntryRepo) ListByTrip(ctx context.Context, tripID string) ([]domain.Entry, error) {
	const q = `SELECT ` + entryColumns + `
		FROM entries
		WHERE trip_id = @trip_id
		ORDER BY created_at, id`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"trip_id": tripID})
	if err != nil {
		return nil, fmt.Errorf("repo.EntryRepo.ListByTrip: %w", err)
	}
	defer rows.Close()

	entries := []domain.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.EntryRepo.ListByTrip: scan: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.EntryRepo.ListByTrip: rows: %w", err)
	}
	return entries, nil
}

func (r *pgEntryRepo) ExistingIDs(ctx context.Context, ids []string) ([]string, error) {
	found, err := existing(ctx, r.db, "entries", "id", ids)
	if err != nil {
		return nil, fmt.Errorf("repo.EntryRepo.ExistingIDs: %w", err)
	}
	return found, nil
}

func (r *pgEntryRepo) LinkTag(ctx context.Context, entryID, tagID string) error {
	const q = `
		INSERT INTO entry_tags (entry_id, tag_id)
		VALUES (@entry_id, @tag_id)
		ON CONFLICT DO NOTHING`

	if _, err := r.db.Exec(ctx, q, pgx.NamedArgs{"entry_id": entryID, "tag_id": tagID}); err != nil {
		return fmt.Errorf("repo.EntryRepo.LinkTag: %w", mapWriteErr(err))
	}
	return nil
}

func (r *pgEntryRepo) ListTagLinks(ctx context.Context, tripID string) ([]domain.EntryTagLink, error) {
	const q = `
		SELECT et.entry_id, et.tag_id
		FROM entry_tags et
		JOIN entries e ON e.id = et.entry_id
		WHERE e.trip_id = @trip_id
		ORDER BY et.entry_id, et.tag_id`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"trip_id": tripID})
	if err != nil {
		return nil, fmt.Errorf("repo.EntryRepo.ListTagLinks: %w", err)
	}
	links, err := pgx.CollectRows(rows, pgx.RowToStructByPos[domain.EntryTagLink])
	if err != nil {
		return nil, fmt.Errorf("repo.EntryRepo.ListTagLinks: %w", err)
	}
	return links, nil
}

func scanEntry(s scanner) (domain.Entry, error) {
	var e domain.Entry
	err := s.Scan(
		&e.ID, &e.TripID, &e.Title, &e.Text, &e.CoverImageURL,
		&e.Latitude, &e.Longitude, &e.LocationName,
		&e.WeatherCondition, &e.WeatherTemperature, &e.WeatherIconCode,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return domain.Entry{}, notFound(err)
	}
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
	return e, nil
}
