// Package api provides the REST API around the coordinate parser and
// its optional storage backends.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/paulmach/orb"
	"github.com/rs/zerolog/log"

	"coordparse"
	"coordparse/coord"
	"coordparse/internal/storage"
)

// maxBatchTexts caps the number of inputs accepted by a single batch
// request.
const maxBatchTexts = 100

// Server provides REST API access to the parser. The parse log and the
// places store are optional; endpoints backed by a nil store answer 503.
type Server struct {
	parser      *coordparse.Parser
	db          *storage.SQLiteDB   // parse log, may be nil
	pg          *storage.PostgresDB // places store, may be nil
	addr        string
	authEnabled bool
	apiKeys     map[string]bool // Simple API key auth (when enabled).
}

// Config holds configuration for the API server.
type Config struct {
	Addr        string
	AuthEnabled bool
	APIKeys     []string // List of valid API keys.
}

// NewServer creates a new API server.
func NewServer(parser *coordparse.Parser, db *storage.SQLiteDB, pg *storage.PostgresDB, cfg Config) *Server {
	keys := make(map[string]bool)
	for _, k := range cfg.APIKeys {
		if k != "" {
			keys[k] = true
		}
	}

	return &Server{
		parser:      parser,
		db:          db,
		pg:          pg,
		addr:        cfg.Addr,
		authEnabled: cfg.AuthEnabled,
		apiKeys:     keys,
	}
}

// Run starts the HTTP server.
func (s *Server) Run() error {
	r := chi.NewRouter()

	// Standard middleware.
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(requestLogger)

	// CORS for browser access.
	r.Use(corsMiddleware)

	// Optional authentication.
	if s.authEnabled {
		r.Use(s.authMiddleware)
	}

	r.Route("/api/v1", func(r chi.Router) {
		s.routes(r)
	})

	log.Info().Str("addr", s.addr).Bool("auth", s.authEnabled).
		Bool("parse_log", s.db != nil).Bool("places", s.pg != nil).
		Msg("API server starting")

	return http.ListenAndServe(s.addr, r)
}

// Router returns the API routes without the outer middleware stack, for
// embedding in other servers and for tests.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	if s.authEnabled {
		r.Use(s.authMiddleware)
	}
	s.routes(r)

	return r
}

func (s *Server) routes(r chi.Router) {
	r.Get("/healthz", s.handleHealth)

	// Parsing endpoints.
	r.Post("/parse", s.handleParse)
	r.Post("/batch", s.handleBatch)
	r.Get("/classify", s.handleClassify)
	r.Get("/formats", s.handleFormats)
	r.Get("/debug", s.handleDebug)

	// Parse log (SQLite).
	r.Get("/parses", s.handleListParses)
	r.Get("/parses/{id}", s.handleGetParse)
	r.Get("/stats", s.handleStats)

	// Places store (PostgreSQL).
	r.Get("/places", s.handleListPlaces)
	r.Get("/places/stats", s.handlePlaceStats)
	r.Post("/places", s.handleSavePlace)
	r.Delete("/places/{id}", s.handleDeletePlace)
}

// corsMiddleware adds CORS headers for browser access.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-API-Key")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// authMiddleware validates API key authentication.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Check X-API-Key header first.
		apiKey := r.Header.Get("X-API-Key")

		// Fall back to Authorization: Bearer <key>.
		if apiKey == "" {
			auth := r.Header.Get("Authorization")
			if strings.HasPrefix(auth, "Bearer ") {
				apiKey = strings.TrimPrefix(auth, "Bearer ")
			}
		}

		// Fall back to query parameter (for simple testing).
		if apiKey == "" {
			apiKey = r.URL.Query().Get("api_key")
		}

		if apiKey == "" {
			writeError(w, http.StatusUnauthorized, "API key required")
			return
		}

		if !s.apiKeys[apiKey] {
			writeError(w, http.StatusForbidden, "Invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ParseRequest is the request body for single parse requests.
type ParseRequest struct {
	Text  string `json:"text"`
	Order string `json:"order,omitempty"`
}

// CoordinateResponse is the JSON shape of a successful parse.
type CoordinateResponse struct {
	Lat        float64         `json:"lat"`
	Lon        float64         `json:"lon"`
	Format     string          `json:"format"`
	SourceEPSG int             `json:"source_epsg"`
	Bounds     *BoundsResponse `json:"bounds,omitempty"`
}

// BoundsResponse is the JSON shape of a precision envelope.
type BoundsResponse struct {
	MinLon float64 `json:"min_lon"`
	MinLat float64 `json:"min_lat"`
	MaxLon float64 `json:"max_lon"`
	MaxLat float64 `json:"max_lat"`
}

// ErrorResponse is the JSON shape of a parse failure.
type ErrorResponse struct {
	Error  string `json:"error"`
	Format string `json:"format,omitempty"`
	Reason string `json:"reason,omitempty"`
}

func resultToResponse(res *coord.Result) CoordinateResponse {
	out := CoordinateResponse{
		Lat:        res.Lat,
		Lon:        res.Lon,
		Format:     res.Format.String(),
		SourceEPSG: res.SourceEPSG,
	}
	if b := res.Bounds; b != nil {
		out.Bounds = &BoundsResponse{
			MinLon: b.Min.Lon(),
			MinLat: b.Min.Lat(),
			MaxLon: b.Max.Lon(),
			MaxLat: b.Max.Lat(),
		}
	}
	return out
}

func parseErrorToResponse(err error) ErrorResponse {
	var pe *coord.ParseError
	if errors.As(err, &pe) {
		out := ErrorResponse{Error: pe.Kind.String(), Reason: pe.Reason}
		if pe.Format != coord.FormatUnknown {
			out.Format = pe.Format.String()
		}
		return out
	}
	return ErrorResponse{Error: "error", Reason: err.Error()}
}

// errStatus maps a parse error to its HTTP status.
func errStatus(err error) int {
	switch coord.KindOf(err) {
	case coord.InvalidInput:
		return http.StatusBadRequest
	case coord.FormatRejected, coord.OutOfRange:
		return http.StatusUnprocessableEntity
	case coord.NoFormatMatched:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// logParse records a parse outcome in the parse log when one is
// configured. Log failures never fail the request.
func (s *Server) logParse(input string, order coord.Order, res *coord.Result, parseErr error) {
	if s.db == nil {
		return
	}
	_, err := s.db.Insert(storage.InsertParams{
		Input:  input,
		Order:  order,
		Result: res,
		Err:    parseErr,
	})
	if err != nil {
		log.Warn().Err(err).Msg("parse log insert failed")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	var req ParseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	order, err := coord.ParseOrder(req.Order)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.parser.Parse(req.Text, order)
	s.logParse(req.Text, order, res, err)
	if err != nil {
		writeJSON(w, errStatus(err), parseErrorToResponse(err))
		return
	}

	writeJSON(w, http.StatusOK, resultToResponse(res))
}

// BatchRequest is the request body for batch parse requests.
type BatchRequest struct {
	Texts []string `json:"texts"`
	Order string   `json:"order,omitempty"`
}

// BatchItemResponse is the per-input outcome of a batch parse.
type BatchItemResponse struct {
	Input  string              `json:"input"`
	Result *CoordinateResponse `json:"result,omitempty"`
	Error  *ErrorResponse      `json:"error,omitempty"`
}

// BatchResponse is the response for batch parse requests.
type BatchResponse struct {
	Results []BatchItemResponse `json:"results"`
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return
	}
	if len(req.Texts) == 0 {
		writeError(w, http.StatusBadRequest, "No texts specified")
		return
	}
	if len(req.Texts) > maxBatchTexts {
		writeError(w, http.StatusBadRequest, "Maximum 100 texts per batch request")
		return
	}

	order, err := coord.ParseOrder(req.Order)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp := BatchResponse{Results: make([]BatchItemResponse, 0, len(req.Texts))}
	for _, text := range req.Texts {
		item := BatchItemResponse{Input: text}
		res, err := s.parser.Parse(text, order)
		s.logParse(text, order, res, err)
		if err != nil {
			e := parseErrorToResponse(err)
			item.Error = &e
		} else {
			c := resultToResponse(res)
			item.Result = &c
		}
		resp.Results = append(resp.Results, item)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	text := r.URL.Query().Get("text")
	if text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	format, ok := s.parser.Classify(text)
	if !ok {
		writeError(w, http.StatusNotFound, "no format signature matched")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"format": format.String()})
}

func (s *Server) handleFormats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"formats": s.parser.Formats(),
	})
}

// DebugResponse is the response for trace requests.
type DebugResponse struct {
	Result *CoordinateResponse `json:"result,omitempty"`
	Error  *ErrorResponse      `json:"error,omitempty"`
	Trace  *coordparse.Trace   `json:"trace,omitempty"`
}

func (s *Server) handleDebug(w http.ResponseWriter, r *http.Request) {
	text := r.URL.Query().Get("text")
	if text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	order, err := coord.ParseOrder(r.URL.Query().Get("order"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, trace, parseErr := s.parser.ParseWithTrace(text, order)

	// Debug always answers 200: the trace is the payload, failures
	// included.
	resp := DebugResponse{Trace: trace}
	if parseErr != nil {
		e := parseErrorToResponse(parseErr)
		resp.Error = &e
	} else {
		c := resultToResponse(res)
		resp.Result = &c
	}
	writeJSON(w, http.StatusOK, resp)
}

// ParseLogEntry is the JSON shape of one parse log record.
type ParseLogEntry struct {
	ID          int64           `json:"id"`
	Input       string          `json:"input"`
	Format      string          `json:"format,omitempty"`
	OK          bool            `json:"ok"`
	Lat         float64         `json:"lat"`
	Lon         float64         `json:"lon"`
	Bounds      *BoundsResponse `json:"bounds,omitempty"`
	SourceEPSG  int             `json:"source_epsg,omitempty"`
	OrderPref   string          `json:"order_pref,omitempty"`
	ErrorKind   string          `json:"error_kind,omitempty"`
	ErrorReason string          `json:"error_reason,omitempty"`
	CreatedAt   string          `json:"created_at"`
}

func recordToResponse(rec storage.ParseRecord) ParseLogEntry {
	out := ParseLogEntry{
		ID:          rec.ID,
		Input:       rec.Input,
		Format:      rec.Format,
		OK:          rec.OK(),
		Lat:         rec.Lat,
		Lon:         rec.Lon,
		SourceEPSG:  rec.SourceEPSG,
		OrderPref:   rec.OrderPref,
		ErrorKind:   rec.ErrorKind,
		ErrorReason: rec.ErrorReason,
		CreatedAt:   rec.CreatedAt.UTC().Format(time.RFC3339),
	}
	if b := rec.Bounds; b != nil {
		out.Bounds = &BoundsResponse{
			MinLon: b.Min.Lon(),
			MinLat: b.Min.Lat(),
			MaxLon: b.Max.Lon(),
			MaxLat: b.Max.Lat(),
		}
	}
	return out
}

func (s *Server) handleListParses(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		writeError(w, http.StatusServiceUnavailable, "parse log not configured")
		return
	}

	q := r.URL.Query()
	params := storage.QueryParams{
		Format:     q.Get("format"),
		ErrorKind:  q.Get("error_kind"),
		Input:      q.Get("input"),
		OnlyOK:     q.Get("ok") == "true",
		OnlyFailed: q.Get("failed") == "true",
		OrderDesc:  true,
	}
	if limit := q.Get("limit"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil {
			params.Limit = n
		}
	}
	if offset := q.Get("offset"); offset != "" {
		if n, err := strconv.Atoi(offset); err == nil {
			params.Offset = n
		}
	}

	records, err := s.db.Query(params)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	entries := make([]ParseLogEntry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, recordToResponse(rec))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"parses": entries,
		"count":  len(entries),
	})
}

func (s *Server) handleGetParse(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		writeError(w, http.StatusServiceUnavailable, "parse log not configured")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	rec, err := s.db.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "no such parse")
		return
	}

	writeJSON(w, http.StatusOK, recordToResponse(*rec))
}

// StatsResponse is the response for parse log statistics.
type StatsResponse struct {
	Total       int            `json:"total"`
	Succeeded   int            `json:"succeeded"`
	Failed      int            `json:"failed"`
	ByFormat    map[string]int `json:"by_format"`
	ByErrorKind map[string]int `json:"by_error_kind"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		writeError(w, http.StatusServiceUnavailable, "parse log not configured")
		return
	}

	stats, err := s.db.GetStats()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, StatsResponse{
		Total:       stats.Total,
		Succeeded:   stats.Succeeded,
		Failed:      stats.Failed,
		ByFormat:    stats.ByFormat,
		ByErrorKind: stats.ByErrorKind,
	})
}

// PlaceRequest is the request body for saving a place.
type PlaceRequest struct {
	Text  string `json:"text"`
	Label string `json:"label,omitempty"`
	Order string `json:"order,omitempty"`
}

// PlaceResponse is the JSON shape of a saved place.
type PlaceResponse struct {
	ID         int     `json:"id"`
	Input      string  `json:"input"`
	Label      string  `json:"label,omitempty"`
	Format     string  `json:"format"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	SourceEPSG int     `json:"source_epsg"`
	SeenCount  int     `json:"seen_count"`
	FirstSeen  string  `json:"first_seen"`
	LastSeen   string  `json:"last_seen"`
}

func placeToResponse(p storage.Place) PlaceResponse {
	return PlaceResponse{
		ID:         p.ID,
		Input:      p.Input,
		Label:      p.Label,
		Format:     p.Format,
		Lat:        p.Lat,
		Lon:        p.Lon,
		SourceEPSG: p.SourceEPSG,
		SeenCount:  p.SeenCount,
		FirstSeen:  p.FirstSeen.UTC().Format(time.RFC3339),
		LastSeen:   p.LastSeen.UTC().Format(time.RFC3339),
	}
}

func (s *Server) handleListPlaces(w http.ResponseWriter, r *http.Request) {
	if s.pg == nil {
		writeError(w, http.StatusServiceUnavailable, "places store not configured")
		return
	}

	q := r.URL.Query()
	filter := storage.PlaceFilter{Format: q.Get("format")}
	if limit := q.Get("limit"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil {
			filter.Limit = n
		}
	}
	if bbox := q.Get("bbox"); bbox != "" {
		b, err := parseBBox(bbox)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		filter.Bounds = b
	}

	places, err := s.pg.ListPlaces(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]PlaceResponse, 0, len(places))
	for _, p := range places {
		out = append(out, placeToResponse(p))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"places": out,
		"count":  len(out),
	})
}

// parseBBox parses "minLon,minLat,maxLon,maxLat".
func parseBBox(s string) (*orb.Bound, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("bbox must be minLon,minLat,maxLon,maxLat")
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("bbox value %q is not a number", p)
		}
		vals[i] = v
	}
	return coord.Envelope(vals[0], vals[1], vals[2], vals[3]), nil
}

func (s *Server) handleSavePlace(w http.ResponseWriter, r *http.Request) {
	if s.pg == nil {
		writeError(w, http.StatusServiceUnavailable, "places store not configured")
		return
	}

	var req PlaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	order, err := coord.ParseOrder(req.Order)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.parser.Parse(req.Text, order)
	s.logParse(req.Text, order, res, err)
	if err != nil {
		writeJSON(w, errStatus(err), parseErrorToResponse(err))
		return
	}

	_, err = s.pg.UpsertPlace(r.Context(), storage.Place{
		Input:      req.Text,
		Label:      req.Label,
		Format:     res.Format.String(),
		Lat:        res.Lat,
		Lon:        res.Lon,
		SourceEPSG: res.SourceEPSG,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	place, err := s.pg.GetPlace(r.Context(), req.Text)
	if err != nil || place == nil {
		writeError(w, http.StatusInternalServerError, "place not readable after save")
		return
	}

	writeJSON(w, http.StatusOK, placeToResponse(*place))
}

// PlaceStatsResponse is the response for places store statistics.
type PlaceStatsResponse struct {
	Total    int            `json:"total"`
	ByFormat map[string]int `json:"by_format"`
}

func (s *Server) handlePlaceStats(w http.ResponseWriter, r *http.Request) {
	if s.pg == nil {
		writeError(w, http.StatusServiceUnavailable, "places store not configured")
		return
	}

	counts, err := s.pg.PlaceStats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	writeJSON(w, http.StatusOK, PlaceStatsResponse{Total: total, ByFormat: counts})
}

func (s *Server) handleDeletePlace(w http.ResponseWriter, r *http.Request) {
	if s.pg == nil {
		writeError(w, http.StatusServiceUnavailable, "places store not configured")
		return
	}

	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	deleted, err := s.pg.DeletePlace(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "no such place")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Helper functions.

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
