package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/paulmach/orb"
)

// ClickHouseConfig holds ClickHouse connection settings.
type ClickHouseConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// ClickHouseDB wraps a ClickHouse connection for bulk coordinate storage.
type ClickHouseDB struct {
	conn driver.Conn
}

// OpenClickHouse opens a connection to ClickHouse.
func OpenClickHouse(ctx context.Context, cfg ClickHouseConfig) (*ClickHouseDB, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:     10 * time.Second,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
	})
	if err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}

	// Test the connection.
	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}

	return &ClickHouseDB{conn: conn}, nil
}

// Close closes the ClickHouse connection.
func (d *ClickHouseDB) Close() error {
	return d.conn.Close()
}

// CreateSchema creates the ClickHouse table. The point column holds
// (lon, lat); clickhouse-go maps it to orb.Point directly.
func (d *ClickHouseDB) CreateSchema(ctx context.Context) error {
	query := `CREATE TABLE IF NOT EXISTS coordinates (
		input           String,
		format          LowCardinality(String),
		ok              Bool,
		error_kind      LowCardinality(String),
		point           Point,
		source_epsg     UInt32,
		source          LowCardinality(String),
		parsed_at       DateTime64(3)
	)
	ENGINE = MergeTree()
	PARTITION BY toYYYYMM(parsed_at)
	ORDER BY (format, parsed_at)
	SETTINGS index_granularity = 8192`

	if err := d.conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	return nil
}

// CHRecord represents one parse outcome bound for ClickHouse. Failed
// parses carry a zero point and the error kind.
type CHRecord struct {
	Input      string
	Format     string
	OK         bool
	ErrorKind  string
	Point      orb.Point
	SourceEPSG uint32
	Source     string
	ParsedAt   time.Time
}

// InsertBatch stores a batch of records in ClickHouse.
func (d *ClickHouseDB) InsertBatch(ctx context.Context, records []CHRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch, err := d.conn.PrepareBatch(ctx, `
		INSERT INTO coordinates (input, format, ok, error_kind, point, source_epsg, source, parsed_at)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range records {
		err := batch.Append(r.Input, r.Format, r.OK, r.ErrorKind, r.Point, r.SourceEPSG, r.Source, r.ParsedAt)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// CHStats contains aggregate statistics about stored coordinates.
type CHStats struct {
	Total       uint64
	Succeeded   uint64
	ByFormat    map[string]uint64
	ByErrorKind map[string]uint64
}

// GetStats returns statistics about stored coordinates.
func (d *ClickHouseDB) GetStats(ctx context.Context) (*CHStats, error) {
	stats := &CHStats{
		ByFormat:    make(map[string]uint64),
		ByErrorKind: make(map[string]uint64),
	}

	row := d.conn.QueryRow(ctx, "SELECT count() FROM coordinates")
	if err := row.Scan(&stats.Total); err != nil {
		return nil, err
	}

	row = d.conn.QueryRow(ctx, "SELECT count() FROM coordinates WHERE ok")
	if err := row.Scan(&stats.Succeeded); err != nil {
		return nil, err
	}

	// By format (successful parses only).
	rows, err := d.conn.Query(ctx, "SELECT format, count() FROM coordinates WHERE ok GROUP BY format ORDER BY count() DESC")
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var format string
		var count uint64
		if err := rows.Scan(&format, &count); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan format stats: %w", err)
		}
		stats.ByFormat[format] = count
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate format stats: %w", err)
	}
	rows.Close()

	// By error kind.
	rows, err = d.conn.Query(ctx, "SELECT error_kind, count() FROM coordinates WHERE NOT ok GROUP BY error_kind ORDER BY count() DESC")
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var kind string
		var count uint64
		if err := rows.Scan(&kind, &count); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan error stats: %w", err)
		}
		stats.ByErrorKind[kind] = count
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate error stats: %w", err)
	}
	rows.Close()

	return stats, nil
}
