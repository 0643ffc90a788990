package cli

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/travel-journal/internal/domain"
)

func TestOperator(t *testing.T) {
	assert.Equal(t, domain.RoleAdmin, operator("").Role)
	assert.Equal(t, domain.Identity{UserID: "u1", Role: domain.RoleCreator}, operator("u1"))
}

func TestWriteFileAtomic_Success(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trip-t1.zip")

	n, err := writeFileAtomic(path, func(w io.Writer) error {
		_, err := w.Write([]byte("PK archive"))
		return err
	})

	require.NoError(t, err)
	assert.Equal(t, int64(10), n)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "PK archive", string(data))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary file is left behind")
}

func TestWriteFileAtomic_FailureLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trip-t1.zip")
	boom := errors.New("stream failed")

	_, err := writeFileAtomic(path, func(w io.Writer) error {
		_, _ = w.Write(bytes.Repeat([]byte("x"), 1024))
		return boom
	})

	require.ErrorIs(t, err, boom)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
