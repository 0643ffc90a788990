package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/pkordes/travel-journal/internal/domain"
)

// MediaRepo defines the persistence operations for entry media rows.
type MediaRepo interface {
	// Create inserts m. Returns domain.ErrConflict if the id or URL is taken.
	Create(ctx context.Context, m domain.EntryMedia) (domain.EntryMedia, error)

	// ListByTrip returns the media of every entry of the trip ordered by
	// (created_at, id).
	ListByTrip(ctx context.Context, tripID string) ([]domain.EntryMedia, error)

	// ExistingIDs returns the subset of ids that are already media ids.
	ExistingIDs(ctx context.Context, ids []string) ([]string, error)

	// ExistingURLs returns the subset of urls already referenced by a media row.
	ExistingURLs(ctx context.Context, urls []string) ([]string, error)
}

type pgMediaRepo struct {
	db db
}

// NewMediaRepo constructs a MediaRepo backed by the provided db connection.
func NewMediaRepo(db db) MediaRepo {
	return &pgMediaRepo{db: db}
}

func (r *pgMediaRepo) Create(ctx context.Context, m domain.EntryMedia) (domain.EntryMedia, error) {
	const q = `
		INSERT INTO entry_media (id, entry_id, url, created_at)
		VALUES (@id, @entry_id, @url, @created_at)
		RETURNING id, entry_id, url, created_at`

	args := pgx.NamedArgs{
		"id":         m.ID,
		"entry_id":   m.EntryID,
		"url":        m.URL,
		"created_at": orNow(m.CreatedAt),
	}

	result, err := scanMedia(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.EntryMedia{}, fmt.Errorf("repo.MediaRepo.Create: %w", mapWriteErr(err))
	}
	return result, nil
}

func (r *pgMediaRepo) ListByTrip(ctx context.Context, tripID string) ([]domain.EntryMedia, error) {
	const q = `
		SELECT m.id, m.entry_id, m.url, m.created_at
		FROM entry_media m
		JOIN entries e ON e.id = m.entry_id
		WHERE e.trip_id = @trip_id
		ORDER BY m.created_at, m.id`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"trip_id": tripID})
	if err != nil {
		return nil, fmt.Errorf("repo.MediaRepo.ListByTrip: %w", err)
	}
	defer rows.Close()

	media := []domain.EntryMedia{}
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.MediaRepo.ListByTrip: scan: %w", err)
		}
		media = append(media, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.MediaRepo.ListByTrip: rows: %w", err)
	}
	return media, nil
}

func (r *pgMediaRepo) ExistingIDs(ctx context.Context, ids []string) ([]string, error) {
	found, err := existing(ctx, r.db, "entry_media", "id", ids)
	if err != nil {
		return nil, fmt.Errorf("repo.MediaRepo.ExistingIDs: %w", err)
	}
	return found, nil
}

func (r *pgMediaRepo) ExistingURLs(ctx context.Context, urls []string) ([]string, error) {
	found, err := existing(ctx, r.db, "entry_media", "url", urls)
	if err != nil {
		return nil, fmt.Errorf("repo.MediaRepo.ExistingURLs: %w", err)
	}
	return found, nil
}

func scanMedia(s scanner) (domain.EntryMedia, error) {
	var m domain.EntryMedia
	if err := s.Scan(&m.ID, &m.EntryID, &m.URL, &m.CreatedAt); err != nil {
		return domain.EntryMedia{}, notFound(err)
	}
	m.CreatedAt = m.CreatedAt.UTC()
	return m, nil
}
