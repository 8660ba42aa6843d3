package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paulmach/orb"
)

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// PostgresDB wraps a PostgreSQL connection pool for the places store.
type PostgresDB struct {
	pool *pgxpool.Pool
}

// OpenPostgres opens a connection pool to PostgreSQL.
func OpenPostgres(ctx context.Context, cfg PostgresConfig) (*PostgresDB, error) {
	connStr := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	// Test the connection.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresDB{pool: pool}, nil
}

// Close closes the PostgreSQL connection pool.
func (d *PostgresDB) Close() {
	d.pool.Close()
}

// CreateSchema creates the PostgreSQL tables.
func (d *PostgresDB) CreateSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS places (
		id              SERIAL PRIMARY KEY,
		input           TEXT NOT NULL UNIQUE,
		label           TEXT NOT NULL DEFAULT '',
		format          TEXT NOT NULL,
		lat             DOUBLE PRECISION NOT NULL,
		lon             DOUBLE PRECISION NOT NULL,
		source_epsg     INTEGER NOT NULL DEFAULT 4326,
		seen_count      INTEGER NOT NULL DEFAULT 1,
		first_seen      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		last_seen       TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_places_format ON places(format);
	CREATE INDEX IF NOT EXISTS idx_places_lat_lon ON places(lat, lon);
	`

	_, err := d.pool.Exec(ctx, schema)
	if err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	return nil
}

// Place is a named coordinate remembered across parses. Input is the
// original text it was parsed from and doubles as the upsert key.
type Place struct {
	ID         int
	Input      string
	Label      string
	Format     string
	Lat        float64
	Lon        float64
	SourceEPSG int
	SeenCount  int
	FirstSeen  time.Time
	LastSeen   time.Time
}

// UpsertPlace inserts or updates a place keyed by its input text,
// returning the place ID. Repeated upserts bump seen_count; an empty
// label never clobbers an existing one.
func (d *PostgresDB) UpsertPlace(ctx context.Context, p Place) (int, error) {
	var id int
	err := d.pool.QueryRow(ctx, `
		INSERT INTO places (input, label, format, lat, lon, source_epsg)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (input) DO UPDATE SET
			label = COALESCE(NULLIF(EXCLUDED.label, ''), places.label),
			format = EXCLUDED.format,
			lat = EXCLUDED.lat,
			lon = EXCLUDED.lon,
			source_epsg = EXCLUDED.source_epsg,
			seen_count = places.seen_count + 1,
			last_seen = NOW()
		RETURNING id
	`, p.Input, p.Label, p.Format, p.Lat, p.Lon, p.SourceEPSG).Scan(&id)
	return id, err
}

// GetPlace retrieves a place by its input text.
func (d *PostgresDB) GetPlace(ctx context.Context, input string) (*Place, error) {
	var p Place
	err := d.pool.QueryRow(ctx, `
		SELECT id, input, label, format, lat, lon, source_epsg, seen_count, first_seen, last_seen
		FROM places WHERE input = $1
	`, input).Scan(&p.ID, &p.Input, &p.Label, &p.Format, &p.Lat, &p.Lon, &p.SourceEPSG, &p.SeenCount, &p.FirstSeen, &p.LastSeen)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// PlaceFilter contains filtering options for listing places.
type PlaceFilter struct {
	Format string     // Filter by format label (exact match).
	Bounds *orb.Bound // Keep only places inside this lon/lat box.
	Limit  int        // Max results (default 100).
}

// ListPlaces retrieves places matching the filter, most recently seen
// first.
func (d *PostgresDB) ListPlaces(ctx context.Context, f PlaceFilter) ([]Place, error) {
	var conditions []string
	var args []interface{}

	if f.Format != "" {
		args = append(args, f.Format)
		conditions = append(conditions, fmt.Sprintf("format = $%d", len(args)))
	}
	if f.Bounds != nil {
		args = append(args, f.Bounds.Min.Lat(), f.Bounds.Max.Lat())
		conditions = append(conditions, fmt.Sprintf("lat BETWEEN $%d AND $%d", len(args)-1, len(args)))
		args = append(args, f.Bounds.Min.Lon(), f.Bounds.Max.Lon())
		conditions = append(conditions, fmt.Sprintf("lon BETWEEN $%d AND $%d", len(args)-1, len(args)))
	}

	query := `SELECT id, input, label, format, lat, lon, source_epsg, seen_count, first_seen, last_seen FROM places`
	for i, c := range conditions {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}

	limit := 100
	if f.Limit > 0 {
		limit = f.Limit
	}
	query += fmt.Sprintf(" ORDER BY last_seen DESC LIMIT %d", limit)

	rows, err := d.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list places: %w", err)
	}
	defer rows.Close()

	var places []Place
	for rows.Next() {
		var p Place
		if err := rows.Scan(&p.ID, &p.Input, &p.Label, &p.Format, &p.Lat, &p.Lon, &p.SourceEPSG, &p.SeenCount, &p.FirstSeen, &p.LastSeen); err != nil {
			return nil, err
		}
		places = append(places, p)
	}
	return places, rows.Err()
}

// DeletePlace removes a place by ID. Returns false when no row matched.
func (d *PostgresDB) DeletePlace(ctx context.Context, id int) (bool, error) {
	tag, err := d.pool.Exec(ctx, `DELETE FROM places WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// PlaceStats returns place counts grouped by format.
func (d *PostgresDB) PlaceStats(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int)
	rows, err := d.pool.Query(ctx, `SELECT format, COUNT(*) FROM places GROUP BY format`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var format string
		var count int
		if err := rows.Scan(&format, &count); err != nil {
			return nil, err
		}
		counts[format] = count
	}
	return counts, rows.Err()
}
