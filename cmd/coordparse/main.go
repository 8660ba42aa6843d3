// Command-line entry point for the coordparse toolkit.
//
// Note about input
// ----------------
// Every subcommand that reads coordinates accepts them either as
// trailing arguments or as one-per-line text on stdin. Input lines are
// free-form: decimal pairs, DMS, WKT/EWKT, WKB hex, GeoJSON, MGRS, UTM,
// UPS, Plus Codes, Geohash, Maidenhead locators, GEOREF and H3 indexes
// are all recognized. Use -order when bare numeric pairs should read
// longitude first, or parse -jsonl to feed JSON records with a
// per-record order member.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"

	"coordparse"
	"coordparse/coord"
	"coordparse/internal/parsers/geohash"
	"coordparse/internal/parsers/georef"
	"coordparse/internal/parsers/h3grid"
	"coordparse/internal/parsers/maidenhead"
	"coordparse/internal/parsers/mgrs"
	"coordparse/internal/parsers/pluscode"
	"coordparse/internal/parsers/ups"
	"coordparse/internal/parsers/utm"
	"coordparse/internal/storage"
)

// ParseOut is the JSON shape of one parsed input. Bounds is the
// precision envelope as [minLon, minLat, maxLon, maxLat].
type ParseOut struct {
	Input  string            `json:"input"`
	Result *coord.Result     `json:"result,omitempty"`
	Bounds []float64         `json:"bounds,omitempty"`
	Error  string            `json:"error,omitempty"`
	Kind   string            `json:"kind,omitempty"`
	Trace  *coordparse.Trace `json:"trace,omitempty"`
}

type Stats struct {
	Inputs   int
	Parsed   int
	Failed   int
	Invalid  int
	Rejected int
	NoMatch  int
	Range    int
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "coordparse - free-form coordinate parser - commands:")
	fmt.Fprintln(w, "  parse     - normalize coordinate text to WGS84 lat/lon")
	fmt.Fprintln(w, "  classify  - name the format of coordinate text without decoding")
	fmt.Fprintln(w, "  encode    - encode a lat/lon into a grid or cell reference")
	fmt.Fprintln(w, "  formats   - list the enabled input formats")
	fmt.Fprintln(w, "  log       - inspect a SQLite parse log written by parse -db")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  coordparse parse [-order lat|lon] [-jsonl] [-json] [-pretty] [-trace] [-stats] [-db parses.db] [-output out.json] [text ...]")
	fmt.Fprintln(w, "  coordparse classify [text ...]")
	fmt.Fprintln(w, "  coordparse encode -format mgrs -lat 40.7128 -lon -74.0060 [-precision 5]")
	fmt.Fprintln(w, "  coordparse formats [-json]")
	fmt.Fprintln(w, "  coordparse log -db parses.db [-n 20] [-stats] [-distinct format]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - parse and classify read one coordinate per line from stdin when no text arguments are given.")
	fmt.Fprintln(w, "  - with -jsonl each line is a JSON object; its order member overrides -order for that record.")
	fmt.Fprintln(w, "  - -trace implies -json.")
	fmt.Fprintln(w, "")
}

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}
	cmd := strings.ToLower(os.Args[1])
	switch cmd {
	case "parse":
		runParse(os.Args[2:])
	case "classify":
		runClassify(os.Args[2:])
	case "encode":
		runEncode(os.Args[2:])
	case "formats":
		runFormats(os.Args[2:])
	case "log":
		runLog(os.Args[2:])
	case "-h", "--help", "help":
		usage(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage(os.Stderr)
		os.Exit(2)
	}
}

func runParse(args []string) {
	fs := flag.NewFlagSet("parse", flag.ExitOnError)
	orderFlag := fs.String("order", "", "Order of ambiguous numeric pairs: lat (default) or lon")
	jsonl := fs.Bool("jsonl", false, `Read each input line as a JSONL record {"text": ..., "order": ...}`)
	jsonOut := fs.Bool("json", false, "Emit JSON instead of plain text")
	pretty := fs.Bool("pretty", false, "Pretty-print JSON output")
	withTrace := fs.Bool("trace", false, "Include the pipeline trace per input (implies -json)")
	showStats := fs.Bool("stats", false, "Print basic counters to stderr")
	dbPath := fs.String("db", "", "Record every attempt in this SQLite parse log")
	outPath := fs.String("output", "", "Output file (default: stdout)")
	_ = fs.Parse(args)

	order, err := coord.ParseOrder(*orderFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Bad -order: %v\n", err)
		os.Exit(2)
	}
	asJSON := *jsonOut || *withTrace

	var db *storage.SQLiteDB
	if *dbPath != "" {
		db, err = storage.OpenSQLite(*dbPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open parse log: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = db.Close() }()
	}

	var wout io.Writer = os.Stdout
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create output: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		wout = f
	}

	parser := coordparse.New()
	st := &Stats{}
	out := make([]ParseOut, 0, 64)

	forEachInput(fs.Args(), func(line string) {
		st.Inputs++

		text, lineOrder := line, order
		var (
			res      *coord.Result
			tr       *coordparse.Trace
			parseErr error
		)
		if *jsonl {
			text, lineOrder, parseErr = decodeJSONL(line, order)
		}
		if parseErr == nil {
			if *withTrace {
				res, tr, parseErr = parser.ParseWithTrace(text, lineOrder)
			} else {
				res, parseErr = parser.Parse(text, lineOrder)
			}

			if db != nil {
				if _, ierr := db.Insert(storage.InsertParams{Input: text, Order: lineOrder, Result: res, Err: parseErr}); ierr != nil {
					fmt.Fprintf(os.Stderr, "Parse log write failed: %v\n", ierr)
				}
			}
		}

		if parseErr != nil {
			st.Failed++
			switch coord.KindOf(parseErr) {
			case coord.InvalidInput:
				st.Invalid++
			case coord.FormatRejected:
				st.Rejected++
			case coord.NoFormatMatched:
				st.NoMatch++
			case coord.OutOfRange:
				st.Range++
			}
			if asJSON {
				out = append(out, ParseOut{
					Input: text,
					Error: parseErr.Error(),
					Kind:  coord.KindOf(parseErr).String(),
					Trace: tr,
				})
			} else {
				fmt.Fprintf(os.Stderr, "%s: %v\n", text, parseErr)
			}
			return
		}

		st.Parsed++
		if asJSON {
			po := ParseOut{Input: text, Result: res, Trace: tr}
			if res.Bounds != nil {
				b := res.Bounds
				po.Bounds = []float64{b.Min.Lon(), b.Min.Lat(), b.Max.Lon(), b.Max.Lat()}
			}
			out = append(out, po)
		} else {
			fmt.Fprintf(wout, "%.8f, %.8f\t%s\n", res.Lat, res.Lon, res.Format)
		}
	})

	if asJSON {
		enc, err := marshalJSON(out, *pretty)
		if err != nil {
			fmt.Fprintf(os.Stderr, "JSON encode error: %v\n", err)
			os.Exit(1)
		}
		_, _ = wout.Write(enc)
		if wout == os.Stdout {
			_, _ = wout.Write([]byte("\n"))
		}
	}

	if *showStats {
		fmt.Fprintf(os.Stderr,
			"stats: inputs=%d parsed=%d failed=%d (invalid=%d rejected=%d no_match=%d out_of_range=%d)\n",
			st.Inputs, st.Parsed, st.Failed, st.Invalid, st.Rejected, st.NoMatch, st.Range,
		)
	}

	if st.Inputs > 0 && st.Parsed == 0 {
		os.Exit(1)
	}
}

func runClassify(args []string) {
	fs := flag.NewFlagSet("classify", flag.ExitOnError)
	_ = fs.Parse(args)

	parser := coordparse.New()
	texts := fs.Args()
	single := len(texts) == 1

	matched := 0
	total := 0
	forEachInput(texts, func(text string) {
		total++
		label := "unknown"
		if f, ok := parser.Classify(text); ok {
			label = f.String()
			matched++
		}
		if single {
			fmt.Println(label)
		} else {
			fmt.Printf("%-12s %s\n", label, text)
		}
	})

	if total > 0 && matched == 0 {
		os.Exit(1)
	}
}

func runEncode(args []string) {
	fs := flag.NewFlagSet("encode", flag.ExitOnError)
	format := fs.String("format", "", "Target format: utm, ups, mgrs, georef, maidenhead, geohash, pluscodes, h3")
	lat := fs.Float64("lat", math.NaN(), "Latitude in decimal degrees")
	lon := fs.Float64("lon", math.NaN(), "Longitude in decimal degrees")
	precision := fs.Int("precision", -1, "Format-specific precision (digits, pairs, characters or resolution)")
	_ = fs.Parse(args)

	if *format == "" {
		fmt.Fprintln(os.Stderr, "-format is required")
		os.Exit(2)
	}
	if math.IsNaN(*lat) || math.IsNaN(*lon) {
		fmt.Fprintln(os.Stderr, "-lat and -lon are required")
		os.Exit(2)
	}

	// -1 means "use the format's conventional precision".
	prec := func(def int) int {
		if *precision < 0 {
			return def
		}
		return *precision
	}

	var (
		ref string
		err error
	)
	switch strings.ToLower(strings.TrimSpace(*format)) {
	case "utm":
		ref, err = utm.Encode(*lat, *lon, prec(0))
	case "ups":
		ref, err = ups.Encode(*lat, *lon, prec(0))
	case "mgrs":
		ref, err = mgrs.Encode(*lat, *lon, prec(5))
	case "georef":
		ref, err = georef.Encode(*lat, *lon, prec(3))
	case "maidenhead":
		ref, err = maidenhead.Encode(*lat, *lon, prec(3))
	case "geohash":
		ref = geohash.Encode(*lat, *lon, uint(prec(9)))
	case "pluscodes", "pluscode", "olc":
		ref, err = pluscode.Encode(*lat, *lon, prec(10))
	case "h3":
		ref, err = h3grid.Encode(*lat, *lon, prec(9))
	default:
		fmt.Fprintf(os.Stderr, "Unknown encode format: %s\n", *format)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Encode failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(ref)
}

func runFormats(args []string) {
	fs := flag.NewFlagSet("formats", flag.ExitOnError)
	jsonOut := fs.Bool("json", false, "Emit JSON output")
	_ = fs.Parse(args)

	formats := coordparse.New().Formats()
	if *jsonOut {
		enc, err := marshalJSON(map[string]any{"formats": formats}, false)
		if err != nil {
			fmt.Fprintf(os.Stderr, "JSON encode error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(enc))
		return
	}
	for _, f := range formats {
		fmt.Println(f)
	}
}

func runLog(args []string) {
	fs := flag.NewFlagSet("log", flag.ExitOnError)
	dbPath := fs.String("db", "", "SQLite parse log to read")
	limit := fs.Int("n", 20, "Number of recent entries to show")
	showStats := fs.Bool("stats", false, "Show aggregate counters instead of entries")
	distinct := fs.String("distinct", "", "List distinct values of a column: format, error_kind or order_pref")
	_ = fs.Parse(args)

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "-db is required")
		os.Exit(2)
	}
	db, err := storage.OpenSQLite(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open parse log: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	switch {
	case *distinct != "":
		values, err := db.Distinct(*distinct)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Query failed: %v\n", err)
			os.Exit(1)
		}
		for _, v := range values {
			fmt.Println(v)
		}

	case *showStats:
		st, err := db.GetStats()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Query failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("total=%d ok=%d failed=%d\n", st.Total, st.Succeeded, st.Failed)
		for _, k := range sortedKeys(st.ByFormat) {
			fmt.Printf("  format %-12s %d\n", k, st.ByFormat[k])
		}
		for _, k := range sortedKeys(st.ByErrorKind) {
			fmt.Printf("  error  %-20s %d\n", k, st.ByErrorKind[k])
		}

	default:
		recs, err := db.Recent(*limit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Query failed: %v\n", err)
			os.Exit(1)
		}
		for _, r := range recs {
			ts := r.CreatedAt.Format("2006-01-02 15:04:05")
			if r.OK() {
				fmt.Printf("%6d  %s  ok    %12.6f %13.6f  %-10s  %s\n",
					r.ID, ts, r.Lat, r.Lon, r.Format, r.Input)
			} else {
				fmt.Printf("%6d  %s  fail  %s: %s  %s\n",
					r.ID, ts, r.ErrorKind, r.ErrorReason, r.Input)
			}
		}
	}
}

// forEachInput applies fn to the trailing arguments when present, to
// stdin lines otherwise. Blank lines are skipped.
func forEachInput(args []string, fn func(string)) {
	if len(args) > 0 {
		for _, a := range args {
			if strings.TrimSpace(a) != "" {
				fn(a)
			}
		}
		return
	}

	scanner := bufio.NewScanner(os.Stdin)
	// Coordinate lines are short; the cap only guards against junk.
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fn(line)
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Input read error: %v\n", err)
		os.Exit(1)
	}
}

// decodeJSONL extracts one {"text": ..., "order": ...} record. The
// order member is optional and overrides the command-wide preference.
// On error the raw line is returned as the text so reports stay legible.
func decodeJSONL(line string, def coord.Order) (string, coord.Order, error) {
	var rec struct {
		Text  string `json:"text"`
		Order string `json:"order"`
	}
	if err := json.Unmarshal([]byte(line), &rec); err != nil {
		return line, def, coord.ErrInvalid("not a JSONL object: %v", err)
	}
	if strings.TrimSpace(rec.Text) == "" {
		return line, def, coord.ErrInvalid("JSONL record has no text field")
	}
	o := def
	if rec.Order != "" {
		parsed, err := coord.ParseOrder(rec.Order)
		if err != nil {
			return line, def, coord.ErrInvalid("%v", err)
		}
		o = parsed
	}
	return rec.Text, o, nil
}

func marshalJSON(v any, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
