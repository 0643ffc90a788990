package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/travel-journal/internal/archive"
	"github.com/pkordes/travel-journal/internal/domain"
	"github.com/pkordes/travel-journal/internal/media"
	"github.com/pkordes/travel-journal/internal/metrics"
	"github.com/pkordes/travel-journal/internal/repo"
)

// RestoreService validates archives and restores them as new trips.
type RestoreService struct {
	tx      repo.Transactor
	loc     *media.Locator
	metrics *metrics.Metrics
	log     *slog.Logger
	now     func() time.Time
	newID   func() string

	maxMediaBytes int64
}

// RestoreOption customizes a RestoreService.
type RestoreOption func(*RestoreService)

// WithClock replaces time.Now for media names and import records.
func WithClock(now func() time.Time) RestoreOption {
	return func(s *RestoreService) { s.now = now }
}

// WithIDGenerator replaces uuid.NewString for remapped identifiers.
func WithIDGenerator(newID func() string) RestoreOption {
	return func(s *RestoreService) { s.newID = newID }
}

// WithMaxMediaBytes caps the total uncompressed size of the media an
// archive may restore. Zero means unlimited.
func WithMaxMediaBytes(n int64) RestoreOption {
	return func(s *RestoreService) { s.maxMediaBytes = n }
}

// NewRestoreService constructs a RestoreService. m may be nil.
func NewRestoreService(tx repo.Transactor, loc *media.Locator, m *metrics.Metrics, log *slog.Logger, opts ...RestoreOption) *RestoreService {
	s := &RestoreService{
		tx:      tx,
		loc:     loc,
		metrics: m,
		log:     log,
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Restore validates the archive in src and, unless opts.DryRun is set,
// restores it as a trip owned by opts.OwnerID.
//
// Validation errors are returned unwrapped in type: *domain.MalformedArchiveError,
// *domain.UnsupportedVersionError and *domain.ArchiveMediaMissingError. An
// archive restored before is refused with domain.ErrAlreadyImported unless
// opts.Force is set; the returned summary still names the earlier trip.
// Any failure after validation is a *domain.RestoreTransactionError and
// leaves neither rows nor copied media behind.
func (s *RestoreService) Restore(ctx context.Context, src archive.Source, opts domain.RestoreOptions) (sum domain.RestoreSummary, err error) {
	defer func() { s.metrics.RestoreFinished(opts.DryRun, err, sum) }()

	parsed, err := archive.Parse(src, src.Size(), s.loc)
	if err != nil {
		s.log.WarnContext(ctx, "restore rejected", "checksum", src.Checksum(), "error", err)
		return domain.RestoreSummary{}, fmt.Errorf("service.RestoreService.Restore: %w", err)
	}

	if total := mediaBytes(parsed.Media); s.maxMediaBytes > 0 && total > s.maxMediaBytes {
		s.log.WarnContext(ctx, "restore rejected", "checksum", src.Checksum(), "media_bytes", total, "limit", s.maxMediaBytes)
		return domain.RestoreSummary{}, fmt.Errorf("service.RestoreService.Restore: media expands to %d bytes, limit %d: %w",
			total, s.maxMediaBytes, domain.ErrArchiveTooLarge)
	}

	sum = domain.RestoreSummary{
		TripID:   parsed.Aggregate.Trip.ID,
		DryRun:   opts.DryRun,
		Counts:   parsed.Counts(),
		Checksum: src.Checksum(),
	}

	var state existingState
	err = s.tx.InTx(ctx, func(r repo.Repos) error {
		var err error
		if state, err = lookupExisting(ctx, r, parsed); err != nil {
			return err
		}
		prev, err := r.Imports.GetByChecksum(ctx, src.Checksum())
		switch {
		case err == nil:
			sum.PreviousImportTripID = prev.TripID
		case !errors.Is(err, domain.ErrNotFound):
			return err
		}
		return nil
	})
	if err != nil {
		return domain.RestoreSummary{}, fmt.Errorf("service.RestoreService.Restore: %w", err)
	}
	sum.Conflicts = state.report
	sum.TripConflict = state.tripExists

	if opts.DryRun {
		s.log.InfoContext(ctx, "restore validated",
			"trip_id", sum.TripID,
			"checksum", sum.Checksum,
			"conflicts", !state.report.Empty() || state.tripExists,
		)
		return sum, nil
	}

	if sum.PreviousImportTripID != "" && !opts.Force {
		return sum, fmt.Errorf("service.RestoreService.Restore: %w", domain.ErrAlreadyImported)
	}
	if opts.OwnerID == "" {
		return sum, fmt.Errorf("service.RestoreService.Restore: owner is required: %w", domain.ErrValidation)
	}

	restored, err := s.apply(ctx, parsed, src.Checksum(), opts.OwnerID, opts.Force)
	var dup *importedError
	if errors.As(err, &dup) {
		if dup.prev.TripID == "" {
			// The losing insert aborted its transaction; read the winner afresh.
			err := s.tx.InTx(ctx, func(r repo.Repos) error {
				return recordedImport(ctx, r, sum.Checksum)
			})
			errors.As(err, &dup)
		}
		sum.PreviousImportTripID = dup.prev.TripID
		s.log.WarnContext(ctx, "restore raced an earlier import", "checksum", sum.Checksum, "previous_trip_id", dup.prev.TripID)
		return sum, fmt.Errorf("service.RestoreService.Restore: %w", domain.ErrAlreadyImported)
	}
	if err != nil {
		s.log.ErrorContext(ctx, "restore failed", "trip_id", sum.TripID, "checksum", sum.Checksum, "error", err)
		return sum, fmt.Errorf("service.RestoreService.Restore: %w", err)
	}

	sum.TripID = restored.tripID
	sum.Conflicts = restored.state.report
	sum.TripConflict = restored.state.tripExists
	s.log.InfoContext(ctx, "restore applied",
		"trip_id", sum.TripID,
		"archive_trip_id", parsed.Aggregate.Trip.ID,
		"owner_id", opts.OwnerID,
		"entries", sum.Counts.Entries,
		"tags", sum.Counts.Tags,
		"media", sum.Counts.Media,
		"checksum", sum.Checksum,
	)
	return sum, nil
}

type applied struct {
	tripID string
	state  existingState
}

// importedError reports that the checksum was recorded by a concurrent
// restore after the first lookup.
type importedError struct {
	prev domain.ImportRecord
}

func (e *importedError) Error() string {
	return fmt.Sprintf("archive %s already imported as trip %s", e.prev.Checksum, e.prev.TripID)
}

// apply copies media under fresh names, then inserts every row in one
// transaction. Files copied by a failed attempt are removed. Unless force
// is set the import record is inserted, never replaced, so two concurrent
// restores of the same archive cannot both commit.
func (s *RestoreService) apply(ctx context.Context, parsed *archive.Parsed, checksum, ownerID string, force bool) (applied, error) {
	urls, copied, err := s.copyMedia(ctx, parsed.Media)
	if err != nil {
		s.removeFiles(ctx, copied)
		return applied{}, &domain.RestoreTransactionError{Stage: "media", Err: err}
	}

	var out applied
	err = s.tx.InTx(ctx, func(r repo.Repos) error {
		// Conflicts are looked up again inside the writing transaction.
		if !force {
			if err := recordedImport(ctx, r, checksum); err != nil {
				return err
			}
		}
		state, err := lookupExisting(ctx, r, parsed)
		if err != nil {
			return err
		}
		agg := remap(parsed.Aggregate, state, urls, ownerID, s.newID)
		if err := insertAggregate(ctx, r, agg); err != nil {
			return err
		}
		rec := domain.ImportRecord{
			Checksum:   checksum,
			TripID:     agg.Trip.ID,
			ImportedBy: ownerID,
			ImportedAt: s.now().UTC(),
		}
		if force {
			err = r.Imports.Save(ctx, rec)
		} else if err = r.Imports.Create(ctx, rec); errors.Is(err, domain.ErrConflict) {
			return &importedError{prev: domain.ImportRecord{Checksum: checksum}}
		}
		if err != nil {
			return err
		}
		out = applied{tripID: agg.Trip.ID, state: state}
		return nil
	})
	if err != nil {
		s.removeFiles(ctx, copied)
		var dup *importedError
		if errors.As(err, &dup) {
			return applied{}, err
		}
		return applied{}, &domain.RestoreTransactionError{Stage: "database", Err: err}
	}
	return out, nil
}

// recordedImport returns an *importedError if checksum already has an
// import record.
func recordedImport(ctx context.Context, r repo.Repos, checksum string) error {
	prev, err := r.Imports.GetByChecksum(ctx, checksum)
	switch {
	case err == nil:
		return &importedError{prev: prev}
	case errors.Is(err, domain.ErrNotFound):
		return nil
	default:
		return err
	}
}

// copyMedia writes every archived file under a new name next to where the
// original lived and returns the old-to-new URL mapping plus the paths
// created so far, also on error.
func (s *RestoreService) copyMedia(ctx context.Context, files []archive.ArchivedMedia) (map[string]string, []string, error) {
	urls := make(map[string]string, len(files))
	var created []string

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, created, err
		}
		rel := media.UploadName(strings.TrimPrefix(f.Path, media.ArchiveDir), s.now())
		url := s.loc.URL(rel)
		dest, ok := s.loc.Resolve(url)
		if !ok {
			return nil, created, fmt.Errorf("media %q resolves outside the upload root", f.URL)
		}
		if err := copyArchived(f, dest); err != nil {
			if !errors.Is(err, os.ErrExist) {
				created = append(created, dest)
			}
			return nil, created, fmt.Errorf("copy %s: %w", f.Path, err)
		}
		created = append(created, dest)
		urls[f.URL] = url
	}
	return urls, created, nil
}

// mediaBytes sums the uncompressed sizes recorded in the ZIP directory.
// archive/zip fails a read that runs past the recorded size, so the sum
// bounds what copyMedia writes.
func mediaBytes(files []archive.ArchivedMedia) int64 {
	var total int64
	for _, f := range files {
		total += f.Size()
	}
	return total
}

func copyArchived(f archive.ArchivedMedia, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	in, err := f.Open()
	if err != nil {
		out.Close()
		return err
	}
	defer in.Close()

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func (s *RestoreService) removeFiles(ctx context.Context, paths []string) {
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.log.WarnContext(ctx, "restore cleanup failed", "path", p, "error", err)
		}
	}
}

// existingState is what the destination store already holds of an archive.
type existingState struct {
	tripExists bool
	entries    map[string]bool
	tags       map[string]bool
	media      map[string]bool
	report     domain.ConflictReport
}

func lookupExisting(ctx context.Context, r repo.Repos, p *archive.Parsed) (existingState, error) {
	agg := p.Aggregate

	var entryIDs, tagIDs, mediaIDs, urls []string
	for _, t := range agg.Tags {
		tagIDs = append(tagIDs, t.ID)
	}
	for _, e := range agg.Entries {
		entryIDs = append(entryIDs, e.Entry.ID)
		for _, m := range e.Media {
			mediaIDs = append(mediaIDs, m.ID)
			urls = append(urls, m.URL)
		}
	}

	trips, err := r.Trips.ExistingIDs(ctx, []string{agg.Trip.ID})
	if err != nil {
		return existingState{}, err
	}
	entries, err := r.Entries.ExistingIDs(ctx, entryIDs)
	if err != nil {
		return existingState{}, err
	}
	tags, err := r.Tags.ExistingIDs(ctx, tagIDs)
	if err != nil {
		return existingState{}, err
	}
	mediaRows, err := r.Media.ExistingIDs(ctx, mediaIDs)
	if err != nil {
		return existingState{}, err
	}
	mediaURLs, err := r.Media.ExistingURLs(ctx, urls)
	if err != nil {
		return existingState{}, err
	}

	// Tag names are unique per trip, so they can only clash with the tags
	// of a trip that already has the archive's trip id.
	names := []string{}
	if len(trips) > 0 {
		stored, err := r.Tags.ListByTrip(ctx, agg.Trip.ID)
		if err != nil {
			return existingState{}, err
		}
		taken := make(map[string]bool, len(stored))
		for _, t := range stored {
			taken[t.NormalizedName] = true
		}
		for _, t := range agg.Tags {
			if taken[t.NormalizedName] {
				names = append(names, t.NormalizedName)
			}
		}
		slices.Sort(names)
	}

	return existingState{
		tripExists: len(trips) > 0,
		entries:    set(entries),
		tags:       set(tags),
		media:      set(mediaRows),
		report: domain.ConflictReport{
			Entries:   nonNil(entries),
			Tags:      names,
			Media:     nonNil(mediaRows),
			MediaURLs: nonNil(mediaURLs),
			Counts:    p.Counts(),
		},
	}, nil
}

// remap returns a copy of agg ready to insert: identifiers that already
// exist are replaced, media URLs point at the freshly copied files and the
// trip belongs to ownerID.
func remap(agg domain.TripAggregate, state existingState, urls map[string]string, ownerID string, newID func() string) domain.TripAggregate {
	id := func(old string, taken bool) string {
		if taken {
			return newID()
		}
		return old
	}
	rewriteURL := func(u *string) *string {
		if u == nil {
			return nil
		}
		if nu, ok := urls[*u]; ok {
			return &nu
		}
		v := *u
		return &v
	}
	text := textRewriter(urls)

	out := domain.TripAggregate{Trip: agg.Trip}
	out.Trip.ID = id(agg.Trip.ID, state.tripExists)
	out.Trip.OwnerID = ownerID
	out.Trip.CoverImageURL = rewriteURL(agg.Trip.CoverImageURL)

	tagIDs := make(map[string]string, len(agg.Tags))
	for _, t := range agg.Tags {
		nt := t
		nt.ID = id(t.ID, state.tags[t.ID])
		nt.TripID = out.Trip.ID
		tagIDs[t.ID] = nt.ID
		out.Tags = append(out.Tags, nt)
	}

	for _, ea := range agg.Entries {
		e := ea.Entry
		e.ID = id(e.ID, state.entries[e.ID])
		e.TripID = out.Trip.ID
		e.CoverImageURL = rewriteURL(e.CoverImageURL)
		e.Text = text.Replace(e.Text)

		na := domain.EntryAggregate{Entry: e}
		for _, m := range ea.Media {
			nm := m
			nm.ID = id(m.ID, state.media[m.ID])
			nm.EntryID = e.ID
			if nu, ok := urls[m.URL]; ok {
				nm.URL = nu
			}
			na.Media = append(na.Media, nm)
		}
		for _, t := range ea.Tags {
			nt := t
			nt.ID = tagIDs[t.ID]
			nt.TripID = out.Trip.ID
			na.Tags = append(na.Tags, nt)
		}
		out.Entries = append(out.Entries, na)
	}
	return out
}

// textRewriter replaces old media URLs inside entry text, longest first so a
// URL that prefixes another never wins.
func textRewriter(urls map[string]string) *strings.Replacer {
	olds := make([]string, 0, len(urls))
	for old := range urls {
		olds = append(olds, old)
	}
	slices.SortFunc(olds, func(a, b string) int {
		return cmp.Or(cmp.Compare(len(b), len(a)), cmp.Compare(a, b))
	})
	pairs := make([]string, 0, 2*len(olds))
	for _, old := range olds {
		pairs = append(pairs, old, urls[old])
	}
	return strings.NewReplacer(pairs...)
}

// insertAggregate writes trip, tags, entries, entry-tag links and media in
// dependency order.
func insertAggregate(ctx context.Context, r repo.Repos, agg domain.TripAggregate) error {
	if _, err := r.Trips.Create(ctx, agg.Trip); err != nil {
		return err
	}
	for _, t := range agg.Tags {
		if _, err := r.Tags.Create(ctx, t); err != nil {
			return err
		}
	}
	for _, ea := range agg.Entries {
		if _, err := r.Entries.Create(ctx, ea.Entry); err != nil {
			return err
		}
	}
	for _, ea := range agg.Entries {
		for _, t := range ea.Tags {
			if err := r.Entries.LinkTag(ctx, ea.Entry.ID, t.ID); err != nil {
				return err
			}
		}
	}
	for _, ea := range agg.Entries {
		for _, m := range ea.Media {
			if _, err := r.Media.Create(ctx, m); err != nil {
				return err
			}
		}
	}
	return nil
}

func set(values []string) map[string]bool {
	m := make(map[string]bool, len(values))
	for _, v := range values {
		m[v] = true
	}
	return m
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
