package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pkordes/travel-journal/internal/domain"
)

// Write streams a as a ZIP into sink: the three JSON documents first, then
// each manifest file in manifest order, piped from disk.
//
// Entries are written strictly one after another. On any failure, including
// ctx cancellation and sink write errors, Write returns a
// *domain.StreamWriteError without writing the central directory, so the
// bytes already in sink never form a valid archive. archive/zip switches an
// entry and the directory to ZIP64 records on its own once sizes or offsets
// pass the 32-bit limits.
func Write(ctx context.Context, a *Archive, sink io.Writer) error {
	zw := zip.NewWriter(sink)

	for _, d := range a.Documents {
		if err := ctx.Err(); err != nil {
			return &domain.StreamWriteError{Entry: d.Name, Err: err}
		}
		if err := writeDocument(zw, d, a.exportedAt); err != nil {
			return &domain.StreamWriteError{Entry: d.Name, Err: err}
		}
	}

	for _, m := range a.Media {
		if err := ctx.Err(); err != nil {
			return &domain.StreamWriteError{Entry: m.ArchivePath, Err: err}
		}
		if err := writeMedia(ctx, zw, m, a.exportedAt); err != nil {
			return &domain.StreamWriteError{Entry: m.ArchivePath, Err: err}
		}
	}

	if err := zw.Close(); err != nil {
		return &domain.StreamWriteError{Entry: "central directory", Err: err}
	}
	return nil
}

func writeDocument(zw *zip.Writer, d Document, modified time.Time) error {
	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:     d.Name,
		Method:   zip.Deflate,
		Modified: modified,
	})
	if err != nil {
		return err
	}
	_, err = w.Write(d.Body)
	return err
}

// writeMedia stores the file uncompressed: photos and videos are already
// compressed and Store keeps the archive size close to the estimate.
func writeMedia(ctx context.Context, zw *zip.Writer, m MediaFile, modified time.Time) error {
	f, err := os.Open(m.SourcePath)
	if err != nil {
		return err
	}
	defer f.Close()

	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:     m.ArchivePath,
		Method:   zip.Store,
		Modified: modified,
	})
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, &contextReader{ctx: ctx, r: f}); err != nil {
		return fmt.Errorf("copy %s: %w", m.URL, err)
	}
	return nil
}

// contextReader stops a copy as soon as ctx is done, so a disconnected
// client does not keep the export reading files.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
