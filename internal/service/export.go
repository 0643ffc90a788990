// Package service contains the business logic of the trip archive subsystem.
// Services authorize requests, orchestrate repo calls inside transactions and
// hand aggregates to the archive package. No SQL lives here; services depend
// on repo interfaces, not implementations.
package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/pkordes/travel-journal/internal/archive"
	"github.com/pkordes/travel-journal/internal/domain"
	"github.com/pkordes/travel-journal/internal/media"
	"github.com/pkordes/travel-journal/internal/metrics"
	"github.com/pkordes/travel-journal/internal/repo"
)

// ExportService turns stored trips into archives.
type ExportService struct {
	tx      repo.Transactor
	loc     *media.Locator
	metrics *metrics.Metrics
	log     *slog.Logger
	now     func() time.Time
}

// NewExportService constructs an ExportService. m may be nil.
func NewExportService(tx repo.Transactor, loc *media.Locator, m *metrics.Metrics, log *slog.Logger) *ExportService {
	return &ExportService{tx: tx, loc: loc, metrics: m, log: log, now: time.Now}
}

// LoadAggregate reads the trip with its tags, entries, entry tags and media
// from a single transaction. No authorization is applied.
func (s *ExportService) LoadAggregate(ctx context.Context, tripID string) (domain.TripAggregate, error) {
	var agg domain.TripAggregate
	err := s.tx.InTx(ctx, func(r repo.Repos) error {
		trip, err := r.Trips.GetByID(ctx, tripID)
		if err != nil {
			return err
		}
		tags, err := r.Tags.ListByTrip(ctx, tripID)
		if err != nil {
			return err
		}
		entries, err := r.Entries.ListByTrip(ctx, tripID)
		if err != nil {
			return err
		}
		links, err := r.Entries.ListTagLinks(ctx, tripID)
		if err != nil {
			return err
		}
		rows, err := r.Media.ListByTrip(ctx, tripID)
		if err != nil {
			return err
		}
		agg = assemble(trip, tags, entries, links, rows)
		return nil
	})
	if err != nil {
		return domain.TripAggregate{}, fmt.Errorf("service.ExportService.LoadAggregate: %w", err)
	}
	return agg, nil
}

func assemble(trip domain.Trip, tags []domain.Tag, entries []domain.Entry, links []domain.EntryTagLink, rows []domain.EntryMedia) domain.TripAggregate {
	tagsByID := make(map[string]domain.Tag, len(tags))
	for _, t := range tags {
		tagsByID[t.ID] = t
	}
	tagsByEntry := make(map[string][]domain.Tag)
	for _, l := range links {
		if t, ok := tagsByID[l.TagID]; ok {
			tagsByEntry[l.EntryID] = append(tagsByEntry[l.EntryID], t)
		}
	}
	mediaByEntry := make(map[string][]domain.EntryMedia)
	for _, m := range rows {
		mediaByEntry[m.EntryID] = append(mediaByEntry[m.EntryID], m)
	}

	agg := domain.TripAggregate{Trip: trip, Tags: tags}
	for _, e := range entries {
		agg.Entries = append(agg.Entries, domain.EntryAggregate{
			Entry: e,
			Media: mediaByEntry[e.ID],
			Tags:  tagsByEntry[e.ID],
		})
	}
	return agg
}

// Prepare loads and serializes the trip for who. A trip the requester may
// not see is reported as domain.ErrNotFound so its existence is not leaked.
// Missing media fails here with *domain.MissingMediaError, before any byte
// is streamed.
func (s *ExportService) Prepare(ctx context.Context, who domain.Identity, tripID string) (*archive.Archive, error) {
	agg, err := s.LoadAggregate(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if !who.CanAccessTrip(agg.Trip) {
		return nil, fmt.Errorf("service.ExportService.Prepare: %w", domain.ErrNotFound)
	}

	a, err := archive.Serialize(agg, s.loc, s.now())
	if err != nil {
		s.log.WarnContext(ctx, "export rejected", "trip_id", tripID, "error", err)
		return nil, fmt.Errorf("service.ExportService.Prepare: %w", err)
	}
	return a, nil
}

// Estimate reports the size the trip's archive would have.
func (s *ExportService) Estimate(ctx context.Context, who domain.Identity, tripID string) (archive.Estimate, error) {
	a, err := s.Prepare(ctx, who, tripID)
	if err != nil {
		return archive.Estimate{}, err
	}
	return a.Estimate(), nil
}

// Write streams a prepared archive into w and records the outcome.
func (s *ExportService) Write(ctx context.Context, a *archive.Archive, w io.Writer) error {
	start := time.Now()
	err := archive.Write(ctx, a, w)
	est := a.Estimate()
	s.metrics.ExportFinished(err, est.TotalBytes, time.Since(start))

	if err != nil {
		s.log.WarnContext(ctx, "export aborted",
			"trip_id", a.Meta.TripID,
			"error", err,
		)
		return fmt.Errorf("service.ExportService.Write: %w", err)
	}
	s.log.InfoContext(ctx, "export streamed",
		"trip_id", a.Meta.TripID,
		"entries", a.Meta.EntryCount,
		"media", a.Meta.MediaCount,
		"bytes", est.TotalBytes,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// Export prepares and streams the trip in one call.
func (s *ExportService) Export(ctx context.Context, who domain.Identity, tripID string, w io.Writer) error {
	a, err := s.Prepare(ctx, who, tripID)
	if err != nil {
		return err
	}
	return s.Write(ctx, a, w)
}
