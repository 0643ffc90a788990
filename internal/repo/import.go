package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/pkordes/travel-journal/internal/domain"
)

// ImportRepo records which archives were restored, keyed by checksum.
type ImportRepo interface {
	// Create stores rec and returns domain.ErrConflict if the checksum is
	// already recorded.
	Create(ctx context.Context, rec domain.ImportRecord) error

	// Save stores rec, replacing an earlier record with the same checksum.
	Save(ctx context.Context, rec domain.ImportRecord) error

	// GetByChecksum returns domain.ErrNotFound if the archive was never restored.
	GetByChecksum(ctx context.Context, checksum string) (domain.ImportRecord, error)
}

type pgImportRepo struct {
	db db
}

// NewImportRepo constructs an ImportRepo backed by the provided db connection.
func NewImportRepo(db db) ImportRepo {
	return &pgImportRepo{db: db}
}

func (r *pgImportRepo) Create(ctx context.Context, rec domain.ImportRecord) error {
	const q = `
		INSERT INTO import_records (checksum, trip_id, imported_by, imported_at)
		VALUES (@checksum, @trip_id, @imported_by, @imported_at)`

	if _, err := r.db.Exec(ctx, q, importArgs(rec)); err != nil {
		return fmt.Errorf("repo.ImportRepo.Create: %w", mapWriteErr(err))
	}
	return nil
}

func (r *pgImportRepo) Save(ctx context.Context, rec domain.ImportRecord) error {
	const q = `
		INSERT INTO import_records (checksum, trip_id, imported_by, imported_at)
		VALUES (@checksum, @trip_id, @imported_by, @imported_at)
		ON CONFLICT (checksum) DO UPDATE
		SET trip_id     = EXCLUDED.trip_id,
		    imported_by = EXCLUDED.imported_by,
		    imported_at = EXCLUDED.imported_at`

	if _, err := r.db.Exec(ctx, q, importArgs(rec)); err != nil {
		return fmt.Errorf("repo.ImportRepo.Save: %w", mapWriteErr(err))
	}
	return nil
}

func (r *pgImportRepo) GetByChecksum(ctx context.Context, checksum string) (domain.ImportRecord, error) {
	const q = `
		SELECT checksum, trip_id, imported_by, imported_at
		FROM import_records
		WHERE checksum = @checksum`

	var rec domain.ImportRecord
	err := r.db.QueryRow(ctx, q, pgx.NamedArgs{"checksum": checksum}).
		Scan(&rec.Checksum, &rec.TripID, &rec.ImportedBy, &rec.ImportedAt)
	if err != nil {
		return domain.ImportRecord{}, fmt.Errorf("repo.ImportRepo.GetByChecksum: %w", notFound(err))
	}
	rec.ImportedAt = rec.ImportedAt.UTC()
	return rec, nil
}

func importArgs(rec domain.ImportRecord) pgx.NamedArgs {
	return pgx.NamedArgs{
		"checksum":    rec.Checksum,
		"trip_id":     rec.TripID,
		"imported_by": rec.ImportedBy,
		"imported_at": orNow(rec.ImportedAt),
	}
}
