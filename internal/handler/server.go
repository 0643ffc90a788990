// Package handler implements the HTTP handlers for the travel journal API.
// All handlers are methods on Server. Methods are split into files by
// resource (health.go, export.go, restore.go) but share the same Server
// struct so they can access its dependencies.
package handler

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/pkordes/travel-journal/internal/archive"
	"github.com/pkordes/travel-journal/internal/domain"
)

// ExportServicer defines the export operations the handlers depend on.
// Defining the interface here (in the consumer package) lets handler tests
// inject a mock without touching the database or the file system.
type ExportServicer interface {
	Prepare(ctx context.Context, who domain.Identity, tripID string) (*archive.Archive, error)
	Write(ctx context.Context, a *archive.Archive, w io.Writer) error
}

// RestoreServicer defines the restore operation the handlers depend on.
type RestoreServicer interface {
	Restore(ctx context.Context, src archive.Source, opts domain.RestoreOptions) (domain.RestoreSummary, error)
}

// Options configures a Server.
type Options struct {
	// SpoolDir receives uploaded archives while they are validated.
	// Defaults to os.TempDir().
	SpoolDir string
	// MaxRestoreBytes caps an uploaded archive. Zero means unlimited.
	MaxRestoreBytes int64
	Logger          *slog.Logger
}

// Server serves every API endpoint.
type Server struct {
	exports         ExportServicer
	restores        RestoreServicer
	spoolDir        string
	maxRestoreBytes int64
	log             *slog.Logger
}

// NewServer constructs the Server with all its dependencies.
func NewServer(exports ExportServicer, restores RestoreServicer, opts Options) *Server {
	s := &Server{
		exports:         exports,
		restores:        restores,
		spoolDir:        opts.SpoolDir,
		maxRestoreBytes: opts.MaxRestoreBytes,
		log:             opts.Logger,
	}
	if s.spoolDir == "" {
		s.spoolDir = os.TempDir()
	}
	if s.log == nil {
		s.log = slog.New(slog.DiscardHandler)
	}
	return s
}
