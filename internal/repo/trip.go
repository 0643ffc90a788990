// Package repo contains all database access for the travel journal.
// Each resource has its own file with an interface and a Postgres
// implementation. No business logic lives here, only SQL and type mapping.
package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/travel-journal/internal/domain"
)

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, and pgx.Tx.
// Integration tests pass a transaction that is rolled back after each test.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TripRepo defines the persistence operations for trips.
type TripRepo interface {
	// Create inserts trip with the id and timestamps it carries.
	// Returns domain.ErrConflict if the id is taken.
	Create(ctx context.Context, trip domain.Trip) (domain.Trip, error)

	// GetByID returns domain.ErrNotFound if no trip with that id exists.
	GetByID(ctx context.Context, id string) (domain.Trip, error)

	// ExistingIDs returns the subset of ids that are already trip ids.
	ExistingIDs(ctx context.Context, ids []string) ([]string, error)
}

type pgTripRepo struct {
	db db
}

// NewTripRepo constructs a TripRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewTripRepo(db db) TripRepo {
	return &pgTripRepo{db: db}
}

const tripColumns = `id, owner_id, title, start_date, end_date, cover_image_url, created_at, updated_at`

func (r *pgTripRepo) Create(ctx context.Context, trip domain.Trip) (domain.Trip, error) {
	const q = `
		INSERT INTO trips (id, owner_id, title, start_date, end_date, cover_image_url, created_at, updated_at)
		VALUES (@id, @owner_id, @title, @start_date, @end_date, @cover_image_url, @created_at, @updated_at)
		RETURNING ` + tripColumns

	args := pgx.NamedArgs{
		"id":              trip.ID,
		"owner_id":        trip.OwnerID,
		"title":           trip.Title,
		"start_date":      trip.StartDate,
		"end_date":        trip.EndDate, // nil becomes NULL
		"cover_image_url": trip.CoverImageURL,
		"created_at":      orNow(trip.CreatedAt),
		"updated_at":      orNow(trip.UpdatedAt),
	}

	result, err := scanTrip(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.Create: %w", mapWriteErr(err))
	}
	return result, nil
}

func (r *pgTripRepo) GetByID(ctx context.Context, id string) (domain.Trip, error) {
	const q = `SELECT ` + tripColumns + ` FROM trips WHERE id = @id`

	result, err := scanTrip(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.GetByID: %w", err)
	}
	return result, nil
}

func (r *pgTripRepo) ExistingIDs(ctx context.Context, ids []string) ([]string, error) {
	found, err := existing(ctx, r.db, "trips", "id", ids)
	if err != nil {
		return nil, fmt.Errorf("repo.TripRepo.ExistingIDs: %w", err)
	}
	return found, nil
}

// scanner is satisfied by both pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTrip(s scanner) (domain.Trip, error) {
	var (
		t     domain.Trip
		start pgtype.Date
		end   pgtype.Date
	)

	err := s.Scan(&t.ID, &t.OwnerID, &t.Title, &start, &end, &t.CoverImageURL, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Trip{}, domain.ErrNotFound
		}
		return domain.Trip{}, err
	}

	t.StartDate = start.Time
	if end.Valid {
		ed := end.Time
		t.EndDate = &ed
	}
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return t, nil
}

// orNow lets callers leave timestamps zero and get the insert time.
func orNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}
