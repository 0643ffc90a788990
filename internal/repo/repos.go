package repo

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pkordes/travel-journal/internal/domain"
)

// Repos bundles every repository bound to the same connection or transaction.
type Repos struct {
	Trips   TripRepo
	Tags    TagRepo
	Entries EntryRepo
	Media   MediaRepo
	Imports ImportRepo
}

// NewRepos binds every repository to db.
func NewRepos(db db) Repos {
	return Repos{
		Trips:   NewTripRepo(db),
		Tags:    NewTagRepo(db),
		Entries: NewEntryRepo(db),
		Media:   NewMediaRepo(db),
		Imports: NewImportRepo(db),
	}
}

// Transactor runs fn against repositories bound to a single transaction.
// The transaction commits if fn returns nil and rolls back otherwise.
type Transactor interface {
	InTx(ctx context.Context, fn func(Repos) error) error
}

// beginner is satisfied by *pgxpool.Pool and pgx.Tx (as a savepoint).
type beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type pgTransactor struct {
	db beginner
}

// NewTransactor constructs a Transactor on a pool, or on a pgx.Tx in tests.
func NewTransactor(db beginner) Transactor {
	return &pgTransactor{db: db}
}

func (t *pgTransactor) InTx(ctx context.Context, fn func(Repos) error) error {
	tx, err := t.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repo.Transactor.InTx: begin: %w", err)
	}
	// Rollback after Commit is a no-op returning pgx.ErrTxClosed.
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(NewRepos(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("repo.Transactor.InTx: commit: %w", err)
	}
	return nil
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// existingQuery builds SELECT column FROM table WHERE column IN (...).
func existingQuery(table, column string, values []string) (string, []any, error) {
	return psql.
		Select(column).
		Distinct().
		From(table).
		Where(sq.Eq{column: values}).
		OrderBy(column).
		ToSql()
}

// existing returns the subset of values present in table.column, sorted.
func existing(ctx context.Context, db db, table, column string, values []string) ([]string, error) {
	if len(values) == 0 {
		return []string{}, nil
	}
	q, args, err := existingQuery(table, column, values)
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	rows, err := db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	found, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	if found == nil {
		found = []string{}
	}
	return found, nil
}

// mapWriteErr turns unique violations into domain.ErrConflict.
func mapWriteErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return fmt.Errorf("%w: %s", domain.ErrConflict, pgErr.ConstraintName)
	}
	return err
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	return err
}
