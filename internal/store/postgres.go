package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"detour.raceday.org/internal/models"
)

// Postgres implements EventStore and ClosureStore on PostgreSQL with
// PostGIS. Geometry crosses the wire as GeoJSON in both directions.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to the database and verifies the connection.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Close releases the connection pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

func (p *Postgres) FindBySlug(ctx context.Context, slug string) (*Event, error) {
	const q = `SELECT id, slug, name, date FROM events WHERE slug = $1`

	var event Event
	err := p.pool.QueryRow(ctx, q, slug).Scan(&event.ID, &event.Slug, &event.Name, &event.Date)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: find event %q: %w", slug, err)
	}
	return &event, nil
}

func (p *Postgres) Create(ctx context.Context, eventID int64, closure models.ClosureGeometry) error {
	const q = `
		INSERT INTO closures (event_id, name, type, polygon, points, start_time, end_time, description)
		VALUES ($1, $2, $3, ST_GeomFromGeoJSON($4), $5, $6, $7, $8)`

	polygonJSON, err := json.Marshal(geojson.NewGeometry(closure.Polygon))
	if err != nil {
		return fmt.Errorf("store: encode polygon: %w", err)
	}

	var pointsJSON []byte
	if closure.Points != nil {
		pointsJSON, err = json.Marshal(closure.Points)
		if err != nil {
			return fmt.Errorf("store: encode points: %w", err)
		}
	}

	_, err = p.pool.Exec(ctx, q,
		eventID,
		closure.Name,
		string(closure.Type),
		string(polygonJSON),
		pointsJSON,
		closure.StartTime,
		closure.EndTime,
		nullableText(closure.Description),
	)
	if err != nil {
		return fmt.Errorf("store: create closure: %w", err)
	}
	return nil
}

func (p *Postgres) ActivePolygons(ctx context.Context, eventID int64, now time.Time) ([]orb.Polygon, error) {
	const q = `
		SELECT ST_AsGeoJSON(polygon)
		FROM closures
		WHERE event_id = $1
		  AND $2 >= start_time
		  AND $2 <= end_time`

	rows, err := p.pool.Query(ctx, q, eventID, now)
	if err != nil {
		return nil, fmt.Errorf("store: active polygons: %w", err)
	}
	defer rows.Close()

	var polygons []orb.Polygon
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("store: scan polygon: %w", err)
		}
		geom, err := geojson.UnmarshalGeometry(raw)
		if err != nil {
			return nil, fmt.Errorf("store: decode polygon: %w", err)
		}
		polygon, ok := geom.Geometry().(orb.Polygon)
		if !ok {
			return nil, fmt.Errorf("store: unexpected geometry type %q", geom.Type)
		}
		polygons = append(polygons, polygon)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: active polygons: %w", err)
	}
	return polygons, nil
}

func (p *Postgres) CountIntersecting(ctx context.Context, eventID int64, line orb.LineString, now time.Time) (int, error) {
	const q = `
		SELECT COUNT(*)
		FROM closures
		WHERE event_id = $1
		  AND $2 >= start_time
		  AND $2 <= end_time
		  AND ST_Intersects(polygon, ST_GeomFromGeoJSON($3))`

	lineJSON, err := json.Marshal(geojson.NewGeometry(line))
	if err != nil {
		return 0, fmt.Errorf("store: encode route line: %w", err)
	}

	var count int
	err = p.pool.QueryRow(ctx, q, eventID, now, string(lineJSON)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("store: count intersecting: %w", err)
	}
	return count, nil
}

func nullableText(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
