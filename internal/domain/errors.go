package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by repo and service functions when the requested
// resource does not exist or is not visible to the requester.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned by service functions when input fails business
// rule validation. Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrConflict is returned by repo functions when an insert violates a unique
// constraint.
var ErrConflict = errors.New("conflict")

// ErrAlreadyImported is returned by a non-dry-run restore when an archive with
// the same checksum was restored before and the caller did not force it.
var ErrAlreadyImported = errors.New("archive already imported")

// ErrArchiveTooLarge is returned when an uploaded archive exceeds the
// configured size limit.
var ErrArchiveTooLarge = errors.New("archive too large")

// Error codes reported to API clients. They are stable across releases.
const (
	CodeMissingMedia        = "MISSING_MEDIA"
	CodeMalformedArchive    = "MALFORMED_ARCHIVE"
	CodeUnsupportedVersion  = "UNSUPPORTED_VERSION"
	CodeArchiveMediaMissing = "ARCHIVE_MEDIA_MISSING"
	CodeStreamWrite         = "STREAM_WRITE"
	CodeRestoreFailed       = "RESTORE_FAILED"
	CodeAlreadyImported     = "ALREADY_IMPORTED"
)

// CodedError is implemented by every typed error of the archive subsystem.
type CodedError interface {
	error
	Code() string
}

// MissingMediaError reports a media URL with no backing file at export time.
type MissingMediaError struct {
	URL string
	Err error
}

func (e *MissingMediaError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("media %q has no backing file: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("media %q has no backing file", e.URL)
}

func (e *MissingMediaError) Unwrap() error { return e.Err }
func (e *MissingMediaError) Code() string  { return CodeMissingMedia }

// MalformedArchiveError reports restore input that is not a ZIP, lacks a
// required document, or fails structural validation. Problems lists every
// structural issue found, in document order.
type MalformedArchiveError struct {
	Reason   string
	Problems []string
	Err      error
}

func (e *MalformedArchiveError) Error() string {
	msg := "malformed archive: " + e.Reason
	if len(e.Problems) > 0 {
		msg += ": " + strings.Join(e.Problems, "; ")
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedArchiveError) Unwrap() error { return e.Err }
func (e *MalformedArchiveError) Code() string  { return CodeMalformedArchive }

// UnsupportedVersionError reports an archive formatVersion this build does not
// understand.
type UnsupportedVersionError struct {
	Version   string
	Supported []string
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("unsupported archive format version %q (supported: %s)",
		e.Version, strings.Join(e.Supported, ", "))
}

func (e *UnsupportedVersionError) Code() string { return CodeUnsupportedVersion }

// ArchiveMediaMissingError reports media referenced by trip.json or
// entries.json that has no media/ entry inside the archive.
type ArchiveMediaMissingError struct {
	Paths []string
}

func (e *ArchiveMediaMissingError) Error() string {
	return "archive is missing referenced media: " + strings.Join(e.Paths, ", ")
}

func (e *ArchiveMediaMissingError) Code() string { return CodeArchiveMediaMissing }

// StreamWriteError reports a failure while an archive was being streamed.
// The archive written so far is incomplete and must be discarded.
type StreamWriteError struct {
	Entry string
	Err   error
}

func (e *StreamWriteError) Error() string {
	return fmt.Sprintf("write archive entry %q: %v", e.Entry, e.Err)
}

func (e *StreamWriteError) Unwrap() error { return e.Err }
func (e *StreamWriteError) Code() string  { return CodeStreamWrite }

// RestoreTransactionError reports a failed non-dry-run restore. All rows
// written by the attempt were rolled back and its copied media removed.
type RestoreTransactionError struct {
	Stage string // "media" or "database"
	Err   error
}

func (e *RestoreTransactionError) Error() string {
	return fmt.Sprintf("restore failed during %s stage: %v", e.Stage, e.Err)
}

func (e *RestoreTransactionError) Unwrap() error { return e.Err }
func (e *RestoreTransactionError) Code() string  { return CodeRestoreFailed }
