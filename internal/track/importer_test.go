package track

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"detour.raceday.org/internal/apperr"
	"detour.raceday.org/internal/store"
)

func TestImportTrackFileUnknownEvent(t *testing.T) {
	importer := NewImporter(store.NewMemory(), store.NewMemory(), nil)

	_, err := importer.ImportTrackFile(context.Background(), "missing", gpxDocument(waypoint(44.5, 6.0, "b", "")))
	require.Error(t, err)
	assert.Equal(t, apperr.CodeNotFound, apperr.From(err).Code)
}

func TestImportTrackFileCreatesClosures(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	event := mem.AddEvent("alpine-race", "Alpine Race", reference())
	importer := NewImporter(mem, mem, nil)

	doc := gpxDocument(
		waypoint(44.5612, 6.0239, "barrier one", "") +
			waypoint(44.5700, 6.0300, "barrier two", "") +
			`<wpt lat="44.58" lon="6.04"><name>broken</name><type>nope</type></wpt>`,
	)

	result, err := importer.ImportTrackFile(ctx, "alpine-race", doc)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Created)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "broken", result.Errors[0].Name)

	// The created closures are queryable and active during the default
	// window anchored at the event date.
	polygons, err := mem.ActivePolygons(ctx, event.ID, reference().Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, polygons, 2)
}

func TestImportTrackFileFatalParseError(t *testing.T) {
	mem := store.NewMemory()
	mem.AddEvent("alpine-race", "Alpine Race", reference())
	importer := NewImporter(mem, mem, nil)

	_, err := importer.ImportTrackFile(context.Background(), "alpine-race", []byte("garbage"))
	require.Error(t, err)
	assert.Equal(t, apperr.CodeValidation, apperr.From(err).Code)
}
