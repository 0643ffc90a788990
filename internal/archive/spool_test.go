package archive_test

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/travel-journal/internal/archive"
	"github.com/pkordes/travel-journal/internal/domain"
)

func TestSpool_ChecksumAndSize(t *testing.T) {
	dir := t.TempDir()
	body := "PK fake archive body"

	s, err := archive.Spool(strings.NewReader(body), dir, 0)
	require.NoError(t, err)
	defer s.Close()

	sum := sha256.Sum256([]byte(body))
	assert.Equal(t, hex.EncodeToString(sum[:]), s.Checksum())
	assert.Equal(t, int64(len(body)), s.Size())

	buf := make([]byte, 4)
	_, err = s.ReadAt(buf, 3)
	require.NoError(t, err)
	assert.Equal(t, "fake", string(buf))
}

func TestSpool_CloseRemovesFile(t *testing.T) {
	dir := t.TempDir()

	s, err := archive.Spool(strings.NewReader("data"), dir, 0)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSpool_Limit(t *testing.T) {
	dir := t.TempDir()

	_, err := archive.Spool(strings.NewReader("0123456789"), dir, 9)

	assert.ErrorIs(t, err, domain.ErrArchiveTooLarge)
	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries, "rejected upload must not leave a temp file")
}

func TestSpool_ExactlyAtLimit(t *testing.T) {
	s, err := archive.Spool(strings.NewReader("0123456789"), t.TempDir(), 10)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, int64(10), s.Size())
}

func TestOpenFile_MatchesSpool(t *testing.T) {
	body := "PK fake archive body"
	path := filepath.Join(t.TempDir(), "trip.zip")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	f, err := archive.OpenFile(path)
	require.NoError(t, err)
	s, err := archive.Spool(strings.NewReader(body), t.TempDir(), 0)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, s.Checksum(), f.Checksum())
	assert.Equal(t, s.Size(), f.Size())
	require.NoError(t, f.Close())
	assert.FileExists(t, path, "closing must not remove the caller's file")
}

func TestOpenFile_Missing(t *testing.T) {
	_, err := archive.OpenFile(filepath.Join(t.TempDir(), "nope.zip"))

	assert.ErrorIs(t, err, os.ErrNotExist)
}
