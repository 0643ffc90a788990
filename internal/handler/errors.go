package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/pkordes/travel-journal/internal/domain"
)

// errorResponse is the envelope of every non-2xx JSON response.
type errorResponse struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// writeJSON writes v with the given status. Encoding errors are ignored
// because the status line has already been sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) respondError(w http.ResponseWriter, status int, detail errorDetail) {
	writeJSON(w, status, errorResponse{Error: detail})
}

// requestError reports a request rejected before reaching the service layer
// (e.g. a malformed query parameter or a missing upload field).
func (s *Server) requestError(w http.ResponseWriter, message string) {
	s.respondError(w, http.StatusBadRequest, errorDetail{Code: "validation_error", Message: message})
}

// writeError maps a service error onto a status code and error envelope.
// Unrecognised errors are logged and reported as a bare 500.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, detail := s.classify(err)
	if status == http.StatusInternalServerError {
		s.log.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
	}
	s.respondError(w, status, detail)
}

func (s *Server) classify(err error) (int, errorDetail) {
	var (
		missing     *domain.MissingMediaError
		malformed   *domain.MalformedArchiveError
		unsupported *domain.UnsupportedVersionError
		absent      *domain.ArchiveMediaMissingError
		failed      *domain.RestoreTransactionError
		tooBig      *http.MaxBytesError
	)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, errorDetail{Code: "not_found", Message: "trip not found"}
	case errors.As(err, &missing):
		return http.StatusConflict, errorDetail{
			Code:    missing.Code(),
			Message: missing.Error(),
			Details: map[string]any{"url": missing.URL},
		}
	case errors.As(err, &malformed):
		details := map[string]any{"reason": malformed.Reason}
		if len(malformed.Problems) > 0 {
			details["problems"] = malformed.Problems
		}
		return http.StatusBadRequest, errorDetail{Code: malformed.Code(), Message: malformed.Error(), Details: details}
	case errors.As(err, &unsupported):
		return http.StatusUnprocessableEntity, errorDetail{
			Code:    unsupported.Code(),
			Message: unsupported.Error(),
			Details: map[string]any{"version": unsupported.Version, "supported": unsupported.Supported},
		}
	case errors.As(err, &absent):
		return http.StatusUnprocessableEntity, errorDetail{
			Code:    absent.Code(),
			Message: absent.Error(),
			Details: map[string]any{"paths": absent.Paths},
		}
	case errors.Is(err, domain.ErrArchiveTooLarge), errors.As(err, &tooBig):
		return http.StatusRequestEntityTooLarge, errorDetail{
			Code:    "payload_too_large",
			Message: "archive exceeds the upload limit",
			Details: map[string]any{"limit": s.maxRestoreBytes},
		}
	case errors.As(err, &failed):
		return http.StatusInternalServerError, errorDetail{
			Code:    failed.Code(),
			Message: "restore failed and was rolled back",
			Details: map[string]any{"stage": failed.Stage},
		}
	case errors.Is(err, domain.ErrValidation):
		return http.StatusUnprocessableEntity, errorDetail{Code: "validation_error", Message: unwrapMessage(err)}
	default:
		return http.StatusInternalServerError, errorDetail{Code: "internal_error", Message: "internal server error"}
	}
}

// unwrapMessage extracts the human-readable part from a wrapped validation
// error by dropping the operation prefixes and the sentinel suffix.
// e.g. "service.RestoreService.Restore: owner is required: validation error" → "owner is required"
func unwrapMessage(err error) string {
	msg := strings.TrimSuffix(err.Error(), ": "+domain.ErrValidation.Error())
	for {
		head, rest, ok := strings.Cut(msg, ": ")
		if !ok || !isOperation(head) {
			return msg
		}
		msg = rest
	}
}

// isOperation reports whether s looks like a "pkg.Type.Method" error prefix.
func isOperation(s string) bool {
	return strings.Count(s, ".") == 2 && !strings.ContainsAny(s, " \t")
}
