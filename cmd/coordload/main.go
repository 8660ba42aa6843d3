// Package main provides coordload, the bulk coordinate loader.
//
// coordload reads coordinate text from files or stdin, parses it with a
// bounded worker pool, and batch-inserts the outcomes into ClickHouse
// for offline analysis. Failed parses are loaded too, with their error
// kind, so success ratios per source can be queried later.
//
// Usage:
//
//	coordload [options] [file ...]
//
// Options:
//
//	-workers N          Parse workers (default: 8)
//	-batch N            Rows per ClickHouse insert batch (default: 1000)
//	-order lat|lon      Order of ambiguous numeric pairs
//	-csv-column N       Read column N (1-based) of CSV input; 0 reads whole lines
//	-csv-header         Skip the first CSV row
//	-source TAG         Source label stored with every row (default: coordload)
//	-dry-run            Parse and count only, no ClickHouse writes
//	-stats              Query aggregate counters from ClickHouse after the load
//	-ch-host HOST       ClickHouse host (default: localhost, env: CLICKHOUSE_HOST)
//	-ch-port PORT       ClickHouse port (default: 9000, env: CLICKHOUSE_PORT)
//	-ch-database DB     ClickHouse database (default: coordparse, env: CLICKHOUSE_DATABASE)
//	-ch-user USER       ClickHouse user (default: default, env: CLICKHOUSE_USER)
//	-ch-password PASS   ClickHouse password (env: CLICKHOUSE_PASSWORD)
//	-log-level LEVEL    trace, debug, info, warn or error (default: info)
//	-log-json           Emit structured JSON logs
//
// With no file arguments, coordload reads stdin.
package main

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"coordparse"
	"coordparse/coord"
	"coordparse/internal/storage"
)

func main() {
	workers := flag.Int("workers", 8, "Parse workers")
	batchSize := flag.Int("batch", 1000, "Rows per ClickHouse insert batch")
	orderFlag := flag.String("order", "", "Order of ambiguous numeric pairs: lat (default) or lon")
	csvColumn := flag.Int("csv-column", 0, "Read column N (1-based) of CSV input; 0 reads whole lines")
	csvHeader := flag.Bool("csv-header", false, "Skip the first CSV row")
	source := flag.String("source", "coordload", "Source label stored with every row")
	dryRun := flag.Bool("dry-run", false, "Parse and count only, no ClickHouse writes")
	showStats := flag.Bool("stats", false, "Query aggregate counters from ClickHouse after the load")

	defaults := storage.DefaultConfig()
	chHost := flag.String("ch-host", envOrDefault("CLICKHOUSE_HOST", defaults.ClickHouse.Host), "ClickHouse host")
	chPort := flag.Int("ch-port", envOrDefaultInt("CLICKHOUSE_PORT", defaults.ClickHouse.Port), "ClickHouse port")
	chDB := flag.String("ch-database", envOrDefault("CLICKHOUSE_DATABASE", defaults.ClickHouse.Database), "ClickHouse database")
	chUser := flag.String("ch-user", envOrDefault("CLICKHOUSE_USER", defaults.ClickHouse.User), "ClickHouse user")
	chPassword := flag.String("ch-password", envOrDefault("CLICKHOUSE_PASSWORD", defaults.ClickHouse.Password), "ClickHouse password")

	logLevel := flag.String("log-level", "info", "Log level: trace, debug, info, warn, error")
	logJSON := flag.Bool("log-json", false, "Emit structured JSON logs")

	flag.Parse()
	setupLogging(*logLevel, *logJSON)

	order, err := coord.ParseOrder(*orderFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("Bad -order")
	}
	if *workers < 1 {
		*workers = 1
	}
	if *batchSize < 1 {
		*batchSize = 1
	}

	ctx := context.Background()

	var ch *storage.ClickHouseDB
	if !*dryRun {
		ch, err = storage.OpenClickHouse(ctx, storage.ClickHouseConfig{
			Host:     *chHost,
			Port:     *chPort,
			Database: *chDB,
			User:     *chUser,
			Password: *chPassword,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open ClickHouse")
		}
		defer func() { _ = ch.Close() }()
		if err := ch.CreateSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to create ClickHouse schema")
		}
	}

	parser := coordparse.New()
	start := time.Now()

	jobs := make(chan string, 1024)
	records := make(chan storage.CHRecord, 1024)

	// Reader feeds the pool from every input in order.
	go func() {
		defer close(jobs)
		if err := readInputs(flag.Args(), *csvColumn, *csvHeader, jobs); err != nil {
			log.Fatal().Err(err).Msg("Input read failed")
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < *workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for text := range jobs {
				records <- parseOne(parser, text, order, *source)
			}
		}()
	}
	go func() {
		wg.Wait()
		close(records)
	}()

	// Sink: batch and flush. Single goroutine, so plain counters do.
	var lines, ok, failed, batches int
	batch := make([]storage.CHRecord, 0, *batchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if ch != nil {
			if err := ch.InsertBatch(ctx, batch); err != nil {
				log.Fatal().Err(err).Int("rows", len(batch)).Msg("Batch insert failed")
			}
		}
		batches++
		log.Debug().Int("rows", len(batch)).Int("batch", batches).Msg("Batch flushed")
		batch = batch[:0]
	}

	for rec := range records {
		lines++
		if rec.OK {
			ok++
		} else {
			failed++
		}
		batch = append(batch, rec)
		if len(batch) >= *batchSize {
			flush()
		}
	}
	flush()

	elapsed := time.Since(start)
	rate := float64(lines) / elapsed.Seconds()
	log.Info().
		Int("lines", lines).
		Int("parsed", ok).
		Int("failed", failed).
		Int("batches", batches).
		Dur("elapsed", elapsed).
		Float64("rate", rate).
		Bool("dry_run", *dryRun).
		Msg("Load complete")

	if *showStats && ch != nil {
		st, err := ch.GetStats(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Stats query failed")
		}
		fmt.Printf("total=%d ok=%d\n", st.Total, st.Succeeded)
		for _, f := range sortedKeys(st.ByFormat) {
			fmt.Printf("  format %-12s %d\n", f, st.ByFormat[f])
		}
		for _, k := range sortedKeys(st.ByErrorKind) {
			fmt.Printf("  error  %-20s %d\n", k, st.ByErrorKind[k])
		}
	}
}

func sortedKeys(m map[string]uint64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// parseOne turns one input line into a ClickHouse row. Failures carry
// their error kind and, when one was recognized, the format.
func parseOne(p *coordparse.Parser, text string, order coord.Order, source string) storage.CHRecord {
	rec := storage.CHRecord{Input: text, Source: source, ParsedAt: time.Now().UTC()}

	res, err := p.Parse(text, order)
	if err != nil {
		rec.ErrorKind = coord.KindOf(err).String()
		var pe *coord.ParseError
		if errors.As(err, &pe) && pe.Format != coord.FormatUnknown {
			rec.Format = pe.Format.String()
		}
		return rec
	}

	rec.OK = true
	rec.Format = res.Format.String()
	rec.Point = orb.Point{res.Lon, res.Lat}
	rec.SourceEPSG = uint32(res.SourceEPSG)
	return rec
}

// readInputs feeds every file (stdin when none) into jobs, either as
// whole lines or as one CSV column.
func readInputs(paths []string, csvColumn int, csvHeader bool, jobs chan<- string) error {
	if len(paths) == 0 {
		return readOne(os.Stdin, csvColumn, csvHeader, jobs)
	}
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open %s: %w", path, err)
		}
		err = readOne(f, csvColumn, csvHeader, jobs)
		_ = f.Close()
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
	}
	return nil
}

func readOne(r io.Reader, csvColumn int, csvHeader bool, jobs chan<- string) error {
	if csvColumn > 0 {
		cr := csv.NewReader(r)
		cr.FieldsPerRecord = -1
		first := true
		for {
			record, err := cr.Read()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}
			if first && csvHeader {
				first = false
				continue
			}
			first = false
			if csvColumn > len(record) {
				continue
			}
			if text := strings.TrimSpace(record[csvColumn-1]); text != "" {
				jobs <- text
			}
		}
	}

	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)
	for scanner.Scan() {
		if text := strings.TrimSpace(scanner.Text()); text != "" {
			jobs <- text
		}
	}
	return scanner.Err()
}

func setupLogging(level string, jsonOut bool) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	if !jsonOut {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	}
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrDefaultInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}
