// Package main provides a tool to export a SQLite parse log to GeoJSON.
// The output is a FeatureCollection of successful parses, one Point
// feature per row, viewable in geojson.io, QGIS and most mapping tools.
//
// The parse log is the database written by `coordparse parse -db` or by
// the API server's -sqlite option.
package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	_ "modernc.org/sqlite"
)

func main() {
	dbPath := flag.String("db", "coordparse.db", "SQLite parse log to read")
	output := flag.String("output", "", "Output GeoJSON file (default: stdout)")
	format := flag.String("format", "", "Only export parses of this format")
	limit := flag.Int("limit", 0, "Maximum number of features (0 = all)")
	withBBox := flag.Bool("bbox", false, "Attach the precision envelope as the feature bbox")
	pretty := flag.Bool("pretty", false, "Pretty-print JSON output")
	showStats := flag.Bool("stats", false, "Show counts only, don't export")

	flag.Parse()

	db, err := sql.Open("sqlite", *dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	// Show stats mode.
	if *showStats {
		showLogStats(db)
		return
	}

	fc, err := collectFeatures(db, *format, *limit, *withBBox)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error querying parses: %v\n", err)
		os.Exit(1)
	}

	if len(fc.Features) == 0 {
		fmt.Fprintln(os.Stderr, "No successful parses found")
		os.Exit(1)
	}

	var data []byte
	if *pretty {
		data, err = json.MarshalIndent(fc, "", "  ")
	} else {
		data, err = json.Marshal(fc)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding GeoJSON: %v\n", err)
		os.Exit(1)
	}

	var out *os.File = os.Stdout
	if *output != "" {
		out, err = os.Create(*output)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating output: %v\n", err)
			os.Exit(1)
		}
		defer out.Close()
	}

	_, _ = out.Write(data)
	if out == os.Stdout {
		_, _ = out.Write([]byte("\n"))
	}

	fmt.Fprintf(os.Stderr, "Exported %d features\n", len(fc.Features))
}

// collectFeatures reads the successful rows of the parse log into a
// FeatureCollection.
func collectFeatures(db *sql.DB, format string, limit int, withBBox bool) (*geojson.FeatureCollection, error) {
	query := `SELECT id, input, format, lat, lon, min_lon, min_lat, max_lon, max_lat, source_epsg, created_at
	          FROM parses WHERE error_kind = ''`
	args := []any{}
	if format != "" {
		query += " AND format = ?"
		args = append(args, format)
	}
	query += " ORDER BY id"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	fc := geojson.NewFeatureCollection()
	for rows.Next() {
		var (
			id                     int64
			input, formatLabel, ts string
			lat, lon               float64
			minLon, minLat         sql.NullFloat64
			maxLon, maxLat         sql.NullFloat64
			epsg                   sql.NullInt64
		)
		if err := rows.Scan(&id, &input, &formatLabel, &lat, &lon,
			&minLon, &minLat, &maxLon, &maxLat, &epsg, &ts); err != nil {
			return nil, err
		}

		f := geojson.NewFeature(orb.Point{lon, lat})
		f.ID = id
		f.Properties = geojson.Properties{
			"input":      input,
			"format":     formatLabel,
			"created_at": ts,
		}
		if epsg.Valid {
			f.Properties["source_epsg"] = epsg.Int64
		}
		if withBBox && minLon.Valid && minLat.Valid && maxLon.Valid && maxLat.Valid {
			f.BBox = geojson.BBox{minLon.Float64, minLat.Float64, maxLon.Float64, maxLat.Float64}
		}
		fc.Append(f)
	}
	return fc, rows.Err()
}

// showLogStats prints per-format counts without exporting anything.
func showLogStats(db *sql.DB) {
	var total, ok int
	if err := db.QueryRow(`SELECT COUNT(*) FROM parses`).Scan(&total); err != nil {
		fmt.Fprintf(os.Stderr, "Error querying stats: %v\n", err)
		os.Exit(1)
	}
	if err := db.QueryRow(`SELECT COUNT(*) FROM parses WHERE error_kind = ''`).Scan(&ok); err != nil {
		fmt.Fprintf(os.Stderr, "Error querying stats: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Parse log: %d rows, %d exportable\n", total, ok)

	rows, err := db.Query(`SELECT format, COUNT(*) FROM parses WHERE error_kind = '' GROUP BY format ORDER BY COUNT(*) DESC`)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error querying stats: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var f string
		var n int
		if err := rows.Scan(&f, &n); err != nil {
			fmt.Fprintf(os.Stderr, "Error reading stats: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("  %-12s %d\n", f, n)
	}
}
