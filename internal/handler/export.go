package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	"github.com/pkordes/travel-journal/internal/domain"
	"github.com/pkordes/travel-journal/internal/middleware"
)

// exportSizeResponse is the body of GET /trips/{id}/export/size.
type exportSizeResponse struct {
	TripID     string `json:"tripId"`
	TotalBytes int64  `json:"totalBytes"`
	JSONBytes  int64  `json:"jsonBytes"`
	MediaBytes int64  `json:"mediaBytes"`
	MediaCount int    `json:"mediaCount"`
}

// ExportTrip handles GET /trips/{id}/export.
// The archive is prepared first so that authorization and missing media are
// reported as JSON errors. Once the status line is sent a write failure can
// only be signalled by aborting the connection.
func (s *Server) ExportTrip(w http.ResponseWriter, r *http.Request) {
	tripID, who, ok := s.tripRequest(w, r)
	if !ok {
		return
	}

	a, err := s.exports.Prepare(r.Context(), who, tripID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="trip-`+fileSafe(tripID)+`.zip"`)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)

	if err := s.exports.Write(r.Context(), a, w); err != nil {
		s.log.WarnContext(r.Context(), "export stream aborted", "trip_id", tripID, "error", err)
		panic(http.ErrAbortHandler)
	}
}

// EstimateExport handles GET /trips/{id}/export/size.
func (s *Server) EstimateExport(w http.ResponseWriter, r *http.Request) {
	tripID, who, ok := s.tripRequest(w, r)
	if !ok {
		return
	}

	a, err := s.exports.Prepare(r.Context(), who, tripID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	est := a.Estimate()
	writeJSON(w, http.StatusOK, exportSizeResponse{
		TripID:     tripID,
		TotalBytes: est.TotalBytes,
		JSONBytes:  est.JSONBytes,
		MediaBytes: est.MediaBytes,
		MediaCount: est.MediaCount,
	})
}

// tripRequest binds the {id} path parameter and the requester identity.
// It writes the error response itself and returns ok=false on failure.
func (s *Server) tripRequest(w http.ResponseWriter, r *http.Request) (string, domain.Identity, bool) {
	var tripID string
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &tripID,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		s.requestError(w, "invalid trip id: "+err.Error())
		return "", domain.Identity{}, false
	}

	who, ok := s.identity(w, r)
	return tripID, who, ok
}

func (s *Server) identity(w http.ResponseWriter, r *http.Request) (domain.Identity, bool) {
	who, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		s.respondError(w, http.StatusUnauthorized, errorDetail{Code: "unauthenticated", Message: "no authenticated user"})
	}
	return who, ok
}

// fileSafe replaces every byte outside [A-Za-z0-9._-] so the id can be
// quoted in a header.
func fileSafe(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, id)
}
