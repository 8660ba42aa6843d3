package api

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"

	"coordparse"
	"coordparse/internal/storage"
)

func almostEqual(a, b, tolerance float64) bool {
	return math.Abs(a-b) <= tolerance
}

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	return NewServer(coordparse.New(), nil, nil, cfg)
}

func doJSON(t *testing.T, router chi.Router, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestServer(t, Config{}).Router()

	rec := doJSON(t, router, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", resp["status"])
	}
}

func TestAuthMiddleware(t *testing.T) {
	router := newTestServer(t, Config{
		AuthEnabled: true,
		APIKeys:     []string{"test-key-123", "another-key"},
	}).Router()

	tests := []struct {
		name       string
		apiKey     string
		keyHeader  string
		wantStatus int
	}{
		{
			name:       "no key",
			apiKey:     "",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "invalid key",
			apiKey:     "wrong-key",
			keyHeader:  "X-API-Key",
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "valid key via X-API-Key",
			apiKey:     "test-key-123",
			keyHeader:  "X-API-Key",
			wantStatus: http.StatusOK,
		},
		{
			name:       "valid key via Bearer",
			apiKey:     "another-key",
			keyHeader:  "Authorization",
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			if tt.apiKey != "" {
				if tt.keyHeader == "Authorization" {
					req.Header.Set("Authorization", "Bearer "+tt.apiKey)
				} else {
					req.Header.Set(tt.keyHeader, tt.apiKey)
				}
			}

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
		})
	}
}

func TestAuthMiddlewareQueryParam(t *testing.T) {
	router := newTestServer(t, Config{
		AuthEnabled: true,
		APIKeys:     []string{"query-key"},
	}).Router()

	rec := doJSON(t, router, http.MethodGet, "/healthz?api_key=query-key", "")
	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
}

func TestParseEndpoint(t *testing.T) {
	router := newTestServer(t, Config{}).Router()

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantFormat string
		wantLat    float64
		wantLon    float64
	}{
		{
			name:       "decimal pair",
			body:       `{"text": "40.7128, -74.0060"}`,
			wantStatus: http.StatusOK,
			wantFormat: "decimal",
			wantLat:    40.7128,
			wantLon:    -74.0060,
		},
		{
			name:       "lon first order",
			body:       `{"text": "10, 20", "order": "lonlat"}`,
			wantStatus: http.StatusOK,
			wantFormat: "decimal",
			wantLat:    20,
			wantLon:    10,
		},
		{
			name:       "wkt point",
			body:       `{"text": "POINT(-74.0060 40.7128)"}`,
			wantStatus: http.StatusOK,
			wantFormat: "wkt",
			wantLat:    40.7128,
			wantLon:    -74.0060,
		},
		{
			name:       "disallowed characters",
			body:       `{"text": "@@@"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "nothing to parse",
			body:       `{"text": "no coordinates here"}`,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "projected magnitudes",
			body:       `{"text": "1000000, 2000000"}`,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "rejected mgrs",
			body:       `{"text": "18TWL854001151"}`,
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "rejected utm range",
			body:       `{"text": "33N 9999999 9999999"}`,
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "missing text",
			body:       `{"order": "latlon"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "bad order",
			body:       `{"text": "1, 2", "order": "sideways"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "invalid json",
			body:       `not json`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, router, http.MethodPost, "/parse", tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				return
			}

			var resp CoordinateResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Format != tt.wantFormat {
				t.Errorf("format = %q, want %q", resp.Format, tt.wantFormat)
			}
			if !almostEqual(resp.Lat, tt.wantLat, 1e-9) || !almostEqual(resp.Lon, tt.wantLon, 1e-9) {
				t.Errorf("coordinate = (%v, %v), want (%v, %v)", resp.Lat, resp.Lon, tt.wantLat, tt.wantLon)
			}
		})
	}
}

func TestParseEndpointBounds(t *testing.T) {
	router := newTestServer(t, Config{}).Router()

	rec := doJSON(t, router, http.MethodPost, "/parse", `{"text": "u4pruydqqvj"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp CoordinateResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Format != "geohash" {
		t.Errorf("format = %q, want geohash", resp.Format)
	}
	if resp.Bounds == nil {
		t.Fatal("expected a precision envelope for geohash")
	}
	if resp.Bounds.MinLat > resp.Lat || resp.Bounds.MaxLat < resp.Lat {
		t.Errorf("bounds %+v do not contain lat %v", resp.Bounds, resp.Lat)
	}
	if resp.Bounds.MinLon > resp.Lon || resp.Bounds.MaxLon < resp.Lon {
		t.Errorf("bounds %+v do not contain lon %v", resp.Bounds, resp.Lon)
	}
}

func TestParseEndpointProjectedEWKT(t *testing.T) {
	router := newTestServer(t, Config{}).Router()

	rec := doJSON(t, router, http.MethodPost, "/parse", `{"text": "SRID=3857;POINT(-8238310.24 4970071.58)"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp CoordinateResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Format != "ewkt" {
		t.Errorf("format = %q, want ewkt", resp.Format)
	}
	if resp.SourceEPSG != 3857 {
		t.Errorf("source_epsg = %d, want 3857", resp.SourceEPSG)
	}
	if !almostEqual(resp.Lat, 40.7128, 1e-4) || !almostEqual(resp.Lon, -74.0060, 1e-4) {
		t.Errorf("coordinate = (%v, %v), want New York", resp.Lat, resp.Lon)
	}
}

func TestBatchEndpoint(t *testing.T) {
	router := newTestServer(t, Config{}).Router()

	body := `{"texts": ["40.7128, -74.0060", "POINT(10 20)", "no coordinates here"]}`
	rec := doJSON(t, router, http.MethodPost, "/batch", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp BatchResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(resp.Results))
	}

	if resp.Results[0].Result == nil || resp.Results[0].Error != nil {
		t.Errorf("first item should succeed: %+v", resp.Results[0])
	}
	if resp.Results[1].Result == nil {
		t.Errorf("second item should succeed: %+v", resp.Results[1])
	}
	if resp.Results[1].Result != nil && resp.Results[1].Result.Format != "wkt" {
		t.Errorf("second item format = %q, want wkt", resp.Results[1].Result.Format)
	}
	if resp.Results[2].Error == nil {
		t.Errorf("third item should fail: %+v", resp.Results[2])
	}
	if resp.Results[2].Error != nil && resp.Results[2].Error.Error != "no format matched" {
		t.Errorf("third item error = %q", resp.Results[2].Error.Error)
	}
}

func TestBatchEndpointValidation(t *testing.T) {
	router := newTestServer(t, Config{}).Router()

	t.Run("empty texts", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/batch", `{"texts": []}`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rec.Code)
		}
	})

	t.Run("too many texts", func(t *testing.T) {
		texts := make([]string, maxBatchTexts+1)
		for i := range texts {
			texts[i] = "1, 2"
		}
		body, _ := json.Marshal(BatchRequest{Texts: texts})
		rec := doJSON(t, router, http.MethodPost, "/batch", string(body))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rec.Code)
		}
	})
}

func TestClassifyEndpoint(t *testing.T) {
	router := newTestServer(t, Config{}).Router()

	t.Run("wkt signature", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/classify?text=POINT(1+2)", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}
		var resp map[string]string
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp["format"] != "wkt" {
			t.Errorf("format = %q, want wkt", resp["format"])
		}
	})

	t.Run("decimal is never classified", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/classify?text=40.7,+-74.0", "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rec.Code)
		}
	})

	t.Run("missing text", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/classify", "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rec.Code)
		}
	})
}

func TestFormatsEndpoint(t *testing.T) {
	router := newTestServer(t, Config{}).Router()

	rec := doJSON(t, router, http.MethodGet, "/formats", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var resp struct {
		Formats []string `json:"formats"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Formats) == 0 {
		t.Fatal("expected a non-empty format list")
	}
	if resp.Formats[0] != "wkb" {
		t.Errorf("first format = %q, want wkb", resp.Formats[0])
	}
	if resp.Formats[len(resp.Formats)-1] != "decimal" {
		t.Errorf("last format = %q, want decimal", resp.Formats[len(resp.Formats)-1])
	}
}

func TestDebugEndpoint(t *testing.T) {
	router := newTestServer(t, Config{}).Router()

	t.Run("success carries trace", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/debug?text=u4pruydqqvj", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}
		var resp DebugResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.Result == nil {
			t.Fatal("expected a result")
		}
		if resp.Trace == nil {
			t.Fatal("expected a trace")
		}
		if len(resp.Trace.Attempts) == 0 {
			t.Error("expected candidate attempts in the trace")
		}
	})

	t.Run("failure still answers 200", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/debug?text=no+coordinates+here", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}
		var resp DebugResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.Error == nil {
			t.Fatal("expected an error")
		}
		if resp.Trace == nil {
			t.Fatal("expected a trace for a fallback miss")
		}
		if !resp.Trace.Fallback {
			t.Error("trace should mark the fallback attempt")
		}
	})

	t.Run("missing text", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/debug", "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rec.Code)
		}
	})
}

func TestParseLogEndpoints(t *testing.T) {
	db, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "api-test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer func() { _ = db.Close() }()

	server := NewServer(coordparse.New(), db, nil, Config{})
	router := server.Router()

	// Two parses: one success, one failure. Both land in the log.
	rec := doJSON(t, router, http.MethodPost, "/parse", `{"text": "40.7128, -74.0060"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("parse failed: %d %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, router, http.MethodPost, "/parse", `{"text": "no coordinates here"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	t.Run("list", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/parses", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}
		var resp struct {
			Parses []ParseLogEntry `json:"parses"`
			Count  int             `json:"count"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.Count != 2 || len(resp.Parses) != 2 {
			t.Fatalf("expected 2 log entries, got %d", resp.Count)
		}
		// Newest first: the failure is on top.
		if resp.Parses[0].OK {
			t.Error("first entry should be the failed parse")
		}
		if resp.Parses[0].ErrorKind != "no format matched" {
			t.Errorf("error_kind = %q", resp.Parses[0].ErrorKind)
		}
		if !resp.Parses[1].OK || resp.Parses[1].Format != "decimal" {
			t.Errorf("second entry should be the decimal success: %+v", resp.Parses[1])
		}
	})

	t.Run("list filtered", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/parses?ok=true", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}
		var resp struct {
			Count int `json:"count"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.Count != 1 {
			t.Errorf("expected 1 successful entry, got %d", resp.Count)
		}
	})

	t.Run("get by id", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/parses/1", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}
		var entry ParseLogEntry
		if err := json.NewDecoder(rec.Body).Decode(&entry); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if entry.Input != "40.7128, -74.0060" {
			t.Errorf("input = %q", entry.Input)
		}

		rec = doJSON(t, router, http.MethodGet, "/parses/999", "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rec.Code)
		}

		rec = doJSON(t, router, http.MethodGet, "/parses/abc", "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rec.Code)
		}
	})

	t.Run("stats", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/stats", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}
		var resp StatsResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.Total != 2 || resp.Succeeded != 1 || resp.Failed != 1 {
			t.Errorf("stats = %+v, want total=2 succeeded=1 failed=1", resp)
		}
		if resp.ByFormat["decimal"] != 1 {
			t.Errorf("by_format[decimal] = %d, want 1", resp.ByFormat["decimal"])
		}
	})
}

func TestStorageEndpointsUnconfigured(t *testing.T) {
	router := newTestServer(t, Config{}).Router()

	paths := []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodGet, "/parses", ""},
		{http.MethodGet, "/parses/1", ""},
		{http.MethodGet, "/stats", ""},
		{http.MethodGet, "/places", ""},
		{http.MethodGet, "/places/stats", ""},
		{http.MethodPost, "/places", `{"text": "1, 2"}`},
		{http.MethodDelete, "/places/1", ""},
	}

	for _, p := range paths {
		t.Run(p.method+" "+p.path, func(t *testing.T) {
			rec := doJSON(t, router, p.method, p.path, p.body)
			if rec.Code != http.StatusServiceUnavailable {
				t.Errorf("expected status 503, got %d", rec.Code)
			}
		})
	}
}

func TestParseBBox(t *testing.T) {
	b, err := parseBBox("-80, 35, -70, 45")
	if err != nil {
		t.Fatalf("parse bbox: %v", err)
	}
	if b.Min.Lon() != -80 || b.Min.Lat() != 35 || b.Max.Lon() != -70 || b.Max.Lat() != 45 {
		t.Errorf("bbox = %+v", b)
	}

	for _, bad := range []string{"1,2,3", "a,b,c,d", ""} {
		if _, err := parseBBox(bad); err == nil {
			t.Errorf("parseBBox(%q) should fail", bad)
		}
	}
}

func TestCORSHeaders(t *testing.T) {
	r := chi.NewRouter()
	r.Use(corsMiddleware)
	r.Get("/test", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodOptions, "/test", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200 for OPTIONS, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("expected CORS Allow-Origin header")
	}
	if rec.Header().Get("Access-Control-Allow-Methods") == "" {
		t.Error("expected CORS Allow-Methods header")
	}
}

func TestErrStatusMapping(t *testing.T) {
	router := newTestServer(t, Config{}).Router()

	// Each error kind maps to its own status, exercised through the
	// full handler path: missing text and invalid input answer 400,
	// rejection 422, a classifier and fallback miss 404.
	tests := []struct {
		text       string
		wantStatus int
	}{
		{"", http.StatusBadRequest},
		{"@@@", http.StatusBadRequest},
		{"18TWL854001151", http.StatusUnprocessableEntity},
		{"no coordinates here", http.StatusNotFound},
	}

	for _, tt := range tests {
		body, _ := json.Marshal(ParseRequest{Text: tt.text})
		rec := doJSON(t, router, http.MethodPost, "/parse", string(body))
		if rec.Code != tt.wantStatus {
			t.Errorf("parse %q: expected status %d, got %d", tt.text, tt.wantStatus, rec.Code)
		}
	}
}
