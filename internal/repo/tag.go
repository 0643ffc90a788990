package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/pkordes/travel-journal/internal/domain"
)

// TagRepo defines the persistence operations for trip-scoped tags.
type TagRepo interface {
	// Create inserts tag. Returns domain.ErrConflict if the id is taken or the
	// trip already has a tag with the same normalized name.
	Create(ctx context.Context, tag domain.Tag) (domain.Tag, error)

	// ListByTrip returns the trip's tags ordered by normalized name.
	ListByTrip(ctx context.Context, tripID string) ([]domain.Tag, error)

	// ExistingIDs returns the subset of ids that are already tag ids.
	ExistingIDs(ctx context.Context, ids []string) ([]string, error)
}

type pgTagRepo struct {
	db db
}

// NewTagRepo constructs a TagRepo backed by the provided db connection.
func NewTagRepo(db db) TagRepo {
	return &pgTagRepo{db: db}
}

func (r *pgTagRepo) Create(ctx context.Context, tag domain.Tag) (domain.Tag, error) {
	const q = `
		INSERT INTO tags (id, trip_id, name, normalized_name, created_at)
		VALUES (@id, @trip_id, @name, @normalized_name, @created_at)
		RETURNING id, trip_id, name, normalized_name, created_at`

	normalized := tag.NormalizedName
	if normalized == "" {
		normalized = domain.NormalizeTagName(tag.Name)
	}
	args := pgx.NamedArgs{
		"id":              tag.ID,
		"trip_id":         tag.TripID,
		"name":            tag.Name,
		"normalized_name": normalized,
		"created_at":      orNow(tag.CreatedAt),
	}

	result, err := scanTag(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Tag{}, fmt.Errorf("repo.TagRepo.Create: %w", mapWriteErr(err))
	}
	return result, nil
}

func (r *pgTagRepo) ListByTrip(ctx context.Context, tripID string) ([]domain.Tag, error) {
	const q = `
		SELECT id, trip_id, name, normalized_name, created_at
		FROM tags
		WHERE trip_id = @trip_id
		ORDER BY normalized_name, id`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"trip_id": tripID})
	if err != nil {
		return nil, fmt.Errorf("repo.TagRepo.ListByTrip: %w", err)
	}
	defer rows.Close()

	tags := []domain.Tag{}
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.TagRepo.ListByTrip: scan: %w", err)
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.TagRepo.ListByTrip: rows: %w", err)
	}
	return tags, nil
}

func (r *pgTagRepo) ExistingIDs(ctx context.Context, ids []string) ([]string, error) {
	found, err := existing(ctx, r.db, "tags", "id", ids)
	if err != nil {
		return nil, fmt.Errorf("repo.TagRepo.ExistingIDs: %w", err)
	}
	return found, nil
}

func scanTag(s scanner) (domain.Tag, error) {
	var t domain.Tag
	if err := s.Scan(&t.ID, &t.TripID, &t.Name, &t.NormalizedName, &t.CreatedAt); err != nil {
		return domain.Tag{}, notFound(err)
	}
	t.CreatedAt = t.CreatedAt.UTC()
	return t, nil
}
