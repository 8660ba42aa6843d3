package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/paulmach/orb"
	_ "modernc.org/sqlite"

	"coordparse/coord"
)

// ParseRecord is one row of the local parse log: the raw input, the
// outcome, and enough of the result to re-plot it later.
type ParseRecord struct {
	ID          int64
	Input       string
	Format      string
	Lat         float64
	Lon         float64
	Bounds      *orb.Bound
	SourceEPSG  int
	OrderPref   string
	ErrorKind   string
	ErrorReason string
	CreatedAt   time.Time
}

// OK reports whether the record describes a successful parse.
func (r ParseRecord) OK() bool {
	return r.ErrorKind == ""
}

// SQLiteDB wraps a SQLite database holding the parse log.
type SQLiteDB struct {
	db *sql.DB
}

// OpenSQLite opens or creates the parse log database at the given path.
func OpenSQLite(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for better concurrent access.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	if err := createSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteDB{db: db}, nil
}

// Close closes the database connection.
func (d *SQLiteDB) Close() error {
	return d.db.Close()
}

// createSchema creates the database tables and indices.
func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS parses (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		input TEXT NOT NULL,
		format TEXT NOT NULL DEFAULT '',
		lat REAL,
		lon REAL,
		min_lon REAL,
		min_lat REAL,
		max_lon REAL,
		max_lat REAL,
		source_epsg INTEGER,
		order_pref TEXT NOT NULL DEFAULT '',
		error_kind TEXT NOT NULL DEFAULT '',
		error_reason TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_parses_format ON parses(format);
	CREATE INDEX IF NOT EXISTS idx_parses_error_kind ON parses(error_kind);
	CREATE INDEX IF NOT EXISTS idx_parses_created_at ON parses(created_at);
	`

	_, err := db.Exec(schema)
	if err != nil {
		return err
	}

	// Run migrations for existing databases.
	return migrateSchema(db)
}

// migrateSchema adds new columns to existing databases.
func migrateSchema(db *sql.DB) error {
	// order_pref and source_epsg arrived after the first schema version.
	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('parses') WHERE name='order_pref'`).Scan(&count)
	if err != nil {
		return err
	}

	if count == 0 {
		migrations := []string{
			`ALTER TABLE parses ADD COLUMN order_pref TEXT NOT NULL DEFAULT ''`,
			`ALTER TABLE parses ADD COLUMN source_epsg INTEGER`,
		}
		for _, m := range migrations {
			if _, err := db.Exec(m); err != nil {
				// Ignore "duplicate column" errors for idempotency.
				if !strings.Contains(err.Error(), "duplicate column") {
					return err
				}
			}
		}
	}

	return nil
}

// InsertParams contains the parameters for logging a parse attempt.
// Result and Err come straight from Parser.Parse; exactly one of them
// is expected to be non-nil.
type InsertParams struct {
	Input  string
	Order  coord.Order
	Result *coord.Result
	Err    error
}

// Insert stores one parse attempt in the log.
func (d *SQLiteDB) Insert(p InsertParams) (int64, error) {
	var (
		format             string
		lat, lon           sql.NullFloat64
		minLon, minLat     sql.NullFloat64
		maxLon, maxLat     sql.NullFloat64
		sourceEPSG         sql.NullInt64
		errKind, errReason string
	)

	if p.Result != nil {
		format = p.Result.Format.String()
		lat = sql.NullFloat64{Float64: p.Result.Lat, Valid: true}
		lon = sql.NullFloat64{Float64: p.Result.Lon, Valid: true}
		sourceEPSG = sql.NullInt64{Int64: int64(p.Result.SourceEPSG), Valid: true}
		if b := p.Result.Bounds; b != nil {
			minLon = sql.NullFloat64{Float64: b.Min.Lon(), Valid: true}
			minLat = sql.NullFloat64{Float64: b.Min.Lat(), Valid: true}
			maxLon = sql.NullFloat64{Float64: b.Max.Lon(), Valid: true}
			maxLat = sql.NullFloat64{Float64: b.Max.Lat(), Valid: true}
		}
	} else if p.Err != nil {
		var pe *coord.ParseError
		if errors.As(p.Err, &pe) {
			errKind = pe.Kind.String()
			errReason = pe.Reason
			if pe.Format != coord.FormatUnknown {
				format = pe.Format.String()
			}
		} else {
			errKind = "error"
			errReason = p.Err.Error()
		}
	}

	result, err := d.db.Exec(`
		INSERT INTO parses (input, format, lat, lon, min_lon, min_lat, max_lon, max_lat, source_epsg, order_pref, error_kind, error_reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.Input, format, lat, lon, minLon, minLat, maxLon, maxLat, sourceEPSG,
		p.Order.String(), errKind, errReason, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("insert parse: %w", err)
	}

	return result.LastInsertId()
}

// QueryParams contains filtering options for querying the parse log.
type QueryParams struct {
	ID         int64  // Filter by specific record ID.
	Format     string // Filter by format label (exact match).
	ErrorKind  string // Filter by error kind (exact match).
	OnlyOK     bool   // Only successful parses.
	OnlyFailed bool   // Only failed parses.
	Input      string // LIKE match on the raw input.
	Limit      int    // Max results (default 100).
	Offset     int    // Pagination offset.
	OrderBy    string // Sort field (created_at, format, lat, lon).
	OrderDesc  bool   // Sort descending.
}

// Query retrieves log records matching the given parameters.
func (d *SQLiteDB) Query(p QueryParams) ([]ParseRecord, error) {
	var conditions []string
	var args []interface{}

	if p.ID != 0 {
		conditions = append(conditions, "id = ?")
		args = append(args, p.ID)
	}
	if p.Format != "" {
		conditions = append(conditions, "format = ?")
		args = append(args, p.Format)
	}
	if p.ErrorKind != "" {
		conditions = append(conditions, "error_kind = ?")
		args = append(args, p.ErrorKind)
	}
	if p.OnlyOK {
		conditions = append(conditions, "error_kind = ''")
	}
	if p.OnlyFailed {
		conditions = append(conditions, "error_kind != ''")
	}
	if p.Input != "" {
		conditions = append(conditions, "input LIKE ?")
		args = append(args, "%"+p.Input+"%")
	}

	query := `SELECT id, input, format, lat, lon, min_lon, min_lat, max_lon, max_lat,
			source_epsg, order_pref, error_kind, error_reason, created_at
			FROM parses`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	// Order by.
	orderField := "id"
	if p.OrderBy != "" {
		switch p.OrderBy {
		case "created_at", "format", "lat", "lon":
			orderField = p.OrderBy
		}
	}
	direction := "ASC"
	if p.OrderDesc {
		direction = "DESC"
	}
	query += fmt.Sprintf(" ORDER BY %s %s", orderField, direction)

	// Limit and offset.
	limit := 100
	if p.Limit > 0 {
		limit = p.Limit
	}
	query += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, p.Offset)

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query parses: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []ParseRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}

	return records, rows.Err()
}

// Recent returns the latest limit records, newest first.
func (d *SQLiteDB) Recent(limit int) ([]ParseRecord, error) {
	return d.Query(QueryParams{Limit: limit, OrderDesc: true})
}

func scanRecord(rows *sql.Rows) (ParseRecord, error) {
	var r ParseRecord
	var lat, lon, minLon, minLat, maxLon, maxLat sql.NullFloat64
	var sourceEPSG sql.NullInt64
	var createdAt string

	err := rows.Scan(&r.ID, &r.Input, &r.Format, &lat, &lon, &minLon, &minLat, &maxLon, &maxLat,
		&sourceEPSG, &r.OrderPref, &r.ErrorKind, &r.ErrorReason, &createdAt)
	if err != nil {
		return r, fmt.Errorf("scan row: %w", err)
	}

	if lat.Valid {
		r.Lat = lat.Float64
	}
	if lon.Valid {
		r.Lon = lon.Float64
	}
	if minLon.Valid && minLat.Valid && maxLon.Valid && maxLat.Valid {
		r.Bounds = coord.Envelope(minLon.Float64, minLat.Float64, maxLon.Float64, maxLat.Float64)
	}
	if sourceEPSG.Valid {
		r.SourceEPSG = int(sourceEPSG.Int64)
	}
	r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)

	return r, nil
}

// GetByID retrieves a single log record by ID.
func (d *SQLiteDB) GetByID(id int64) (*ParseRecord, error) {
	records, err := d.Query(QueryParams{ID: id, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

// Stats returns aggregate statistics about the parse log.
type Stats struct {
	Total       int
	Succeeded   int
	Failed      int
	ByFormat    map[string]int
	ByErrorKind map[string]int
}

// GetStats returns statistics about the logged parses.
func (d *SQLiteDB) GetStats() (*Stats, error) {
	stats := &Stats{
		ByFormat:    make(map[string]int),
		ByErrorKind: make(map[string]int),
	}

	// Totals.
	row := d.db.QueryRow("SELECT COUNT(*) FROM parses")
	if err := row.Scan(&stats.Total); err != nil {
		return nil, err
	}
	row = d.db.QueryRow("SELECT COUNT(*) FROM parses WHERE error_kind = ''")
	if err := row.Scan(&stats.Succeeded); err != nil {
		return nil, err
	}
	stats.Failed = stats.Total - stats.Succeeded

	// By format (successful parses only).
	rows, err := d.db.Query("SELECT format, COUNT(*) FROM parses WHERE error_kind = '' GROUP BY format ORDER BY COUNT(*) DESC")
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var format string
		var count int
		if err := rows.Scan(&format, &count); err != nil {
			_ = rows.Close()
			return nil, err
		}
		stats.ByFormat[format] = count
	}
	_ = rows.Close()

	// By error kind.
	rows, err = d.db.Query("SELECT error_kind, COUNT(*) FROM parses WHERE error_kind != '' GROUP BY error_kind ORDER BY COUNT(*) DESC")
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var kind string
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			_ = rows.Close()
			return nil, err
		}
		stats.ByErrorKind[kind] = count
	}
	_ = rows.Close()

	return stats, nil
}

// Count returns the number of logged parses, optionally filtered by format.
func (d *SQLiteDB) Count(format string) (int, error) {
	var count int
	var err error
	if format != "" {
		err = d.db.QueryRow("SELECT COUNT(*) FROM parses WHERE format = ?", format).Scan(&count)
	} else {
		err = d.db.QueryRow("SELECT COUNT(*) FROM parses").Scan(&count)
	}
	return count, err
}

// Distinct returns distinct values for a given column.
func (d *SQLiteDB) Distinct(column string) ([]string, error) {
	// Validate column name to prevent SQL injection.
	validColumns := map[string]bool{
		"format":     true,
		"error_kind": true,
		"order_pref": true,
	}
	if !validColumns[column] {
		return nil, fmt.Errorf("invalid column: %s", column)
	}

	query := fmt.Sprintf("SELECT DISTINCT %s FROM parses WHERE %s != '' ORDER BY %s", column, column, column)
	rows, err := d.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}
