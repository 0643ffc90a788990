package archive

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/pkordes/travel-journal/internal/domain"
)

// Source is a fully received archive that can be read at random offsets,
// which archive/zip needs to reach the central directory.
type Source interface {
	io.ReaderAt
	Size() int64
	Checksum() string
}

// Spooled is an upload copied to a temporary file.
type Spooled struct {
	f        *os.File
	size     int64
	checksum string
}

var _ Source = (*Spooled)(nil)

// Spool copies r into a temporary file under dir while computing its SHA-256.
// A limit above zero caps the accepted size; a larger upload yields
// domain.ErrArchiveTooLarge. The caller must Close the result to remove the
// file.
func Spool(r io.Reader, dir string, limit int64) (*Spooled, error) {
	f, err := os.CreateTemp(dir, "restore-*.zip")
	if err != nil {
		return nil, fmt.Errorf("archive.Spool: %w", err)
	}
	s := &Spooled{f: f}

	src := r
	if limit > 0 {
		src = io.LimitReader(r, limit+1)
	}
	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(f, h), src)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("archive.Spool: %w", err)
	}
	if limit > 0 && n > limit {
		s.Close()
		return nil, domain.ErrArchiveTooLarge
	}

	s.size = n
	s.checksum = hex.EncodeToString(h.Sum(nil))
	return s, nil
}

func (s *Spooled) ReadAt(p []byte, off int64) (int, error) { return s.f.ReadAt(p, off) }

// Size is the number of bytes received.
func (s *Spooled) Size() int64 { return s.size }

// Checksum is the lowercase hex SHA-256 of the received bytes.
func (s *Spooled) Checksum() string { return s.checksum }

// Close removes the temporary file.
func (s *Spooled) Close() error {
	name := s.f.Name()
	cerr := s.f.Close()
	if err := os.Remove(name); err != nil && !os.IsNotExist(err) {
		return err
	}
	return cerr
}

// File is a Source backed by an archive already on disk.
type File struct {
	f        *os.File
	size     int64
	checksum string
}

var _ Source = (*File)(nil)

// OpenFile opens the archive at path and computes its SHA-256. The caller
// must Close the result; the file itself is left in place.
func OpenFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("archive.OpenFile: %w", err)
	}
	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("archive.OpenFile: %w", err)
	}
	return &File{f: f, size: n, checksum: hex.EncodeToString(h.Sum(nil))}, nil
}

func (s *File) ReadAt(p []byte, off int64) (int, error) { return s.f.ReadAt(p, off) }

// Size is the file size in bytes.
func (s *File) Size() int64 { return s.size }

// Checksum is the lowercase hex SHA-256 of the file.
func (s *File) Checksum() string { return s.checksum }

// Close closes the file.
func (s *File) Close() error { return s.f.Close() }
