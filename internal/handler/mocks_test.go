package handler_test

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/pkordes/travel-journal/internal/archive"
	"github.com/pkordes/travel-journal/internal/domain"
	"github.com/pkordes/travel-journal/internal/handler"
)

// ---- mock ExportServicer ---------------------------------------------------

// mockExportServicer is a test double for handler.ExportServicer.
// Set only the method fields your test needs.
type mockExportServicer struct {
	prepare func(ctx context.Context, who domain.Identity, tripID string) (*archive.Archive, error)
	write   func(ctx context.Context, a *archive.Archive, w io.Writer) error
}

func (m *mockExportServicer) Prepare(ctx context.Context, who domain.Identity, tripID string) (*archive.Archive, error) {
	return m.prepare(ctx, who, tripID)
}
func (m *mockExportServicer) Write(ctx context.Context, a *archive.Archive, w io.Writer) error {
	return m.write(ctx, a, w)
}

// compile-time check: mockExportServicer must satisfy handler.ExportServicer.
var _ handler.ExportServicer = (*mockExportServicer)(nil)

// ---- mock RestoreServicer --------------------------------------------------

type mockRestoreServicer struct {
	restore func(ctx context.Context, src archive.Source, opts domain.RestoreOptions) (domain.RestoreSummary, error)
}

func (m *mockRestoreServicer) Restore(ctx context.Context, src archive.Source, opts domain.RestoreOptions) (domain.RestoreSummary, error) {
	return m.restore(ctx, src, opts)
}

var _ handler.RestoreServicer = (*mockRestoreServicer)(nil)

// ---- helpers ---------------------------------------------------------------

const testRestoreLimit = 1 << 20

// newRouter wires a Server with the given mocks into the production router.
func newRouter(t *testing.T, exports handler.ExportServicer, restores handler.RestoreServicer) http.Handler {
	return newRouterIn(t, t.TempDir(), testRestoreLimit, exports, restores)
}

func newRouterIn(t *testing.T, spoolDir string, limit int64, exports handler.ExportServicer, restores handler.RestoreServicer) http.Handler {
	t.Helper()
	srv := handler.NewServer(exports, restores, handler.Options{
		SpoolDir:        spoolDir,
		MaxRestoreBytes: limit,
	})
	return handler.NewRouter(srv, handler.RouterConfig{
		CORSOrigins: []string{"http://localhost:5173"},
	})
}

// asUser sets the identity headers on req.
func asUser(req *http.Request, userID, role string) *http.Request {
	req.Header.Set("X-Authenticated-User", userID)
	req.Header.Set("X-Authenticated-Role", role)
	return req
}

// archiveFixture is a prepared archive with one JSON document and one media
// file of 1000 bytes.
func archiveFixture() *archive.Archive {
	return &archive.Archive{
		Meta:      archive.Meta{TripID: "t1", EntryCount: 1, MediaCount: 1, FormatVersion: archive.FormatVersion},
		Documents: []archive.Document{{Name: archive.MetaFile, Body: []byte(`{"tripId":"t1"}`)}},
		Media:     []archive.MediaFile{{URL: "/uploads/a.jpg", ArchivePath: "media/a.jpg", Size: 1000}},
	}
}

// errorBody is the decoded error envelope.
type errorBody struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}
