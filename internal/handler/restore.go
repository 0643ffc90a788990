package handler

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/oapi-codegen/runtime"

	"github.com/pkordes/travel-journal/internal/archive"
	"github.com/pkordes/travel-journal/internal/domain"
)

// uploadField is the multipart form field carrying the archive.
const uploadField = "file"

// RestoreArchive handles POST /restore?dryRun=&force=.
// The body is either the raw archive or a multipart form with a "file"
// field. A dry run answers 200; an applied restore answers 201.
func (s *Server) RestoreArchive(w http.ResponseWriter, r *http.Request) {
	who, ok := s.identity(w, r)
	if !ok {
		return
	}

	var dryRun, force bool
	q := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, false, "dryRun", q, &dryRun); err != nil {
		s.requestError(w, "invalid dryRun parameter: "+err.Error())
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "force", q, &force); err != nil {
		s.requestError(w, "invalid force parameter: "+err.Error())
		return
	}

	body, err := uploadBody(r)
	var tooBig *http.MaxBytesError
	switch {
	case errors.As(err, &tooBig):
		s.writeError(w, r, err)
		return
	case err != nil:
		s.requestError(w, err.Error())
		return
	}

	src, err := archive.Spool(body, s.spoolDir, s.maxRestoreBytes)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer func() {
		if err := src.Close(); err != nil {
			s.log.WarnContext(r.Context(), "remove spooled archive", "error", err)
		}
	}()

	sum, err := s.restores.Restore(r.Context(), src, domain.RestoreOptions{
		DryRun:  dryRun,
		Force:   force,
		OwnerID: who.UserID,
	})
	if errors.Is(err, domain.ErrAlreadyImported) {
		s.respondError(w, http.StatusConflict, errorDetail{
			Code:    domain.CodeAlreadyImported,
			Message: "archive was already restored; retry with force=true to restore it again",
			Details: map[string]any{
				"previousImportTripId": sum.PreviousImportTripID,
				"checksum":             sum.Checksum,
			},
		})
		return
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	status := http.StatusCreated
	if sum.DryRun {
		status = http.StatusOK
	}
	writeJSON(w, status, sum)
}

// uploadBody returns the archive stream of r without buffering it.
func uploadBody(r *http.Request) (io.Reader, error) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/form-data" {
		return r.Body, nil
	}

	mr, err := r.MultipartReader()
	if err != nil {
		return nil, fmt.Errorf("invalid multipart body: %w", err)
	}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("multipart body has no %q field", uploadField)
		}
		if err != nil {
			return nil, fmt.Errorf("invalid multipart body: %w", err)
		}
		if part.FormName() == uploadField {
			return part, nil
		}
	}
}
