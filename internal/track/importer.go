package track

import (
	"context"
	"errors"
	"log/slog"

	"detour.raceday.org/internal/apperr"
	"detour.raceday.org/internal/models"
	"detour.raceday.org/internal/store"
)

// Importer runs the track-file upload flow: resolve the event, parse the
// GPX payload, and persist each successfully built closure. Feature-level
// parse failures come back as data, never as an error.
type Importer struct {
	events   store.EventStore
	closures store.ClosureStore
	logger   *slog.Logger
}

// NewImporter wires an Importer to its stores.
func NewImporter(events store.EventStore, closures store.ClosureStore, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{events: events, closures: closures, logger: logger}
}

// ImportTrackFile parses data and creates one closure per valid feature,
// using the event's date as the fallback time-window anchor.
func (i *Importer) ImportTrackFile(ctx context.Context, slug string, data []byte) (*models.ImportResult, error) {
	event, err := i.events.FindBySlug(ctx, slug)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("event %q not found", slug)
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}

	closures, parseErrors, err := Parse(data, event.Date)
	if err != nil {
		return nil, err
	}

	created := 0
	for _, closure := range closures {
		if err := i.closures.Create(ctx, event.ID, closure); err != nil {
			return nil, apperr.Internal(err)
		}
		created++
	}

	i.logger.Info("track import complete",
		"event", slug,
		"created", created,
		"failed", len(parseErrors))

	if parseErrors == nil {
		parseErrors = []models.ParseError{}
	}
	return &models.ImportResult{Created: created, Errors: parseErrors}, nil
}
