package storage

import (
	"context"
	"os"
	"strconv"
	"testing"

	"coordparse/coord"
)

// setupTestPostgres creates a test database connection.
// Returns nil if no PostgreSQL connection is available.
func setupTestPostgres(t *testing.T) *PostgresDB {
	t.Helper()

	cfg := DefaultConfig().Postgres
	if host := os.Getenv("POSTGRES_HOST"); host != "" {
		cfg.Host = host
	}
	if port := os.Getenv("POSTGRES_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Port = p
		}
	}
	if user := os.Getenv("POSTGRES_USER"); user != "" {
		cfg.User = user
	}
	if password := os.Getenv("POSTGRES_PASSWORD"); password != "" {
		cfg.Password = password
	}
	if database := os.Getenv("POSTGRES_DB"); database != "" {
		cfg.Database = database
	}

	ctx := context.Background()
	pg, err := OpenPostgres(ctx, cfg)
	if err != nil {
		return nil
	}

	// Ensure schema exists.
	if err := pg.CreateSchema(ctx); err != nil {
		pg.Close()
		return nil
	}

	return pg
}

func TestUpsertPlace(t *testing.T) {
	pg := setupTestPostgres(t)
	if pg == nil {
		t.Skip("No PostgreSQL connection available")
	}
	defer pg.Close()

	ctx := context.Background()

	cleanup := func() {
		_, _ = pg.pool.Exec(ctx, "DELETE FROM places WHERE input = '40.7128, -74.0060'")
	}
	cleanup()
	defer cleanup()

	// First upsert with a label.
	id, err := pg.UpsertPlace(ctx, Place{
		Input:      "40.7128, -74.0060",
		Label:      "nyc",
		Format:     "decimal",
		Lat:        40.7128,
		Lon:        -74.0060,
		SourceEPSG: 4326,
	})
	if err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}
	if id == 0 {
		t.Fatal("expected non-zero place id")
	}

	// Second upsert without a label (should keep "nyc" and bump the count).
	id2, err := pg.UpsertPlace(ctx, Place{
		Input:      "40.7128, -74.0060",
		Format:     "decimal",
		Lat:        40.7128,
		Lon:        -74.0060,
		SourceEPSG: 4326,
	})
	if err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}
	if id2 != id {
		t.Errorf("upsert returned new id %d, want %d", id2, id)
	}

	place, err := pg.GetPlace(ctx, "40.7128, -74.0060")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if place == nil {
		t.Fatal("expected place, got nil")
	}
	if place.Label != "nyc" {
		t.Errorf("label = %q, want nyc", place.Label)
	}
	if place.SeenCount != 2 {
		t.Errorf("seen_count = %d, want 2", place.SeenCount)
	}
	if place.Format != "decimal" {
		t.Errorf("format = %q, want decimal", place.Format)
	}
}

func TestGetPlaceNotFound(t *testing.T) {
	pg := setupTestPostgres(t)
	if pg == nil {
		t.Skip("No PostgreSQL connection available")
	}
	defer pg.Close()

	place, err := pg.GetPlace(context.Background(), "input-that-was-never-saved")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if place != nil {
		t.Errorf("expected nil for unknown input, got %+v", place)
	}
}

func TestListPlacesBounds(t *testing.T) {
	pg := setupTestPostgres(t)
	if pg == nil {
		t.Skip("No PostgreSQL connection available")
	}
	defer pg.Close()

	ctx := context.Background()

	cleanup := func() {
		_, _ = pg.pool.Exec(ctx, "DELETE FROM places WHERE input IN ('bbox-test-nyc', 'bbox-test-sydney')")
	}
	cleanup()
	defer cleanup()

	seed := []Place{
		{Input: "bbox-test-nyc", Format: "decimal", Lat: 40.7128, Lon: -74.0060, SourceEPSG: 4326},
		{Input: "bbox-test-sydney", Format: "decimal", Lat: -33.8568, Lon: 151.2153, SourceEPSG: 4326},
	}
	for _, p := range seed {
		if _, err := pg.UpsertPlace(ctx, p); err != nil {
			t.Fatalf("upsert %q: %v", p.Input, err)
		}
	}

	// A box around the north-eastern US keeps only the first place.
	places, err := pg.ListPlaces(ctx, PlaceFilter{
		Bounds: coord.Envelope(-80, 35, -70, 45),
	})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}

	var sawNYC, sawSydney bool
	for _, p := range places {
		switch p.Input {
		case "bbox-test-nyc":
			sawNYC = true
		case "bbox-test-sydney":
			sawSydney = true
		}
	}
	if !sawNYC {
		t.Error("expected bbox-test-nyc inside the box")
	}
	if sawSydney {
		t.Error("bbox-test-sydney should be outside the box")
	}
}

func TestDeletePlace(t *testing.T) {
	pg := setupTestPostgres(t)
	if pg == nil {
		t.Skip("No PostgreSQL connection available")
	}
	defer pg.Close()

	ctx := context.Background()

	cleanup := func() {
		_, _ = pg.pool.Exec(ctx, "DELETE FROM places WHERE input = 'delete-test'")
	}
	cleanup()
	defer cleanup()

	id, err := pg.UpsertPlace(ctx, Place{
		Input: "delete-test", Format: "decimal", Lat: 1, Lon: 2, SourceEPSG: 4326,
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	deleted, err := pg.DeletePlace(ctx, id)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !deleted {
		t.Error("expected delete to report a removed row")
	}

	deleted, err = pg.DeletePlace(ctx, id)
	if err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if deleted {
		t.Error("second delete should report no removed row")
	}
}
