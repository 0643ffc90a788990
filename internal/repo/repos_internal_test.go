package repo

import (
	"errors"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/travel-journal/internal/domain"
)

func TestExistingQuery(t *testing.T) {
	q, args, err := existingQuery("entry_media", "url", []string{"/uploads/a.jpg", "/uploads/b.jpg"})

	require.NoError(t, err)
	assert.Equal(t, "SELECT DISTINCT url FROM entry_media WHERE url IN ($1,$2) ORDER BY url", q)
	assert.Equal(t, []any{"/uploads/a.jpg", "/uploads/b.jpg"}, args)
}

func TestMapWriteErr_UniqueViolation(t *testing.T) {
	err := mapWriteErr(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "tags_trip_normalized_name_key"})

	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Contains(t, err.Error(), "tags_trip_normalized_name_key")
}

func TestMapWriteErr_OtherErrorsPassThrough(t *testing.T) {
	fk := &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation}
	assert.Same(t, fk, mapWriteErr(fk))

	plain := errors.New("boom")
	assert.Equal(t, plain, mapWriteErr(plain))
}

func TestNotFound(t *testing.T) {
	assert.ErrorIs(t, notFound(pgx.ErrNoRows), domain.ErrNotFound)

	other := errors.New("boom")
	assert.Equal(t, other, notFound(other))
}
