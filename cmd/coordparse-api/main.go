// Package main provides the coordparse-api server.
//
// This is a standalone REST API around the coordinate parser. Optional
// storage backends extend it: a SQLite parse log records every attempt,
// and a PostgreSQL places store keeps named, deduplicated coordinates.
//
// Usage:
//
//	coordparse-api [options]
//
// Options:
//
//	-config FILE        YAML configuration file (env: COORDPARSE_CONFIG)
//	-addr ADDR          Listen address (default: :8080, env: COORDPARSE_ADDR)
//	-auth               Enable API key authentication
//	-api-keys KEYS      Comma-separated list of valid API keys
//	-sqlite PATH        SQLite parse log path, empty disables (env: COORDPARSE_SQLITE)
//	-places             Enable the PostgreSQL places store
//	-pg-host HOST       PostgreSQL host (default: localhost, env: POSTGRES_HOST)
//	-pg-port PORT       PostgreSQL port (default: 5432, env: POSTGRES_PORT)
//	-pg-database DB     PostgreSQL database (default: coordparse, env: POSTGRES_DATABASE)
//	-pg-user USER       PostgreSQL user (default: coordparse, env: POSTGRES_USER)
//	-pg-password PASS   PostgreSQL password (default: coordparse, env: POSTGRES_PASSWORD)
//	-log-level LEVEL    trace, debug, info, warn or error (default: info)
//	-log-json           Emit structured JSON logs instead of console output
//
// Configuration file values win over flag defaults; flags fill whatever
// the file leaves unset. A minimal file:
//
//	addr: ":8080"
//	sqlite_path: parses.db
//	postgres:
//	  enabled: true
//	  host: db.internal
//
// API Endpoints (under /api/v1):
//
//	POST /parse, POST /batch, GET /classify, GET /formats, GET /debug
//	GET /parses, GET /parses/{id}, GET /stats               (with -sqlite)
//	GET/POST /places, GET /places/stats, DELETE /places/{id} (with -places)
//	GET /healthz
//
// Authentication:
//
//	When -auth is enabled, requests must include an API key via:
//	  - X-API-Key header
//	  - Authorization: Bearer <key> header
//	  - ?api_key=<key> query parameter
package main

import (
	"context"
	"flag"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"coordparse"
	"coordparse/internal/api"
	"coordparse/internal/storage"
)

// FileConfig is the YAML configuration file structure.
type FileConfig struct {
	Addr       string             `yaml:"addr"`
	Auth       bool               `yaml:"auth"`
	APIKeys    []string           `yaml:"api_keys"`
	SQLitePath string             `yaml:"sqlite_path"`
	Postgres   PostgresFileConfig `yaml:"postgres"`
}

// PostgresFileConfig wraps the connection settings with an enable flag.
type PostgresFileConfig struct {
	Enabled                bool `yaml:"enabled"`
	storage.PostgresConfig `yaml:",inline"`
}

// loadConfig reads and parses the YAML configuration file.
func loadConfig(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func main() {
	configPath := flag.String("config", envOrDefault("COORDPARSE_CONFIG", ""), "YAML configuration file")
	addr := flag.String("addr", envOrDefault("COORDPARSE_ADDR", ":8080"), "Listen address")
	authEnabled := flag.Bool("auth", false, "Enable API key authentication")
	apiKeys := flag.String("api-keys", "", "Comma-separated list of valid API keys (when auth enabled)")
	sqlitePath := flag.String("sqlite", envOrDefault("COORDPARSE_SQLITE", ""), "SQLite parse log path (empty disables)")
	placesEnabled := flag.Bool("places", false, "Enable the PostgreSQL places store")

	defaults := storage.DefaultConfig()
	pgHost := flag.String("pg-host", envOrDefault("POSTGRES_HOST", defaults.Postgres.Host), "PostgreSQL host")
	pgPort := flag.Int("pg-port", envOrDefaultInt("POSTGRES_PORT", defaults.Postgres.Port), "PostgreSQL port")
	pgUser := flag.String("pg-user", envOrDefault("POSTGRES_USER", defaults.Postgres.User), "PostgreSQL user")
	pgPassword := flag.String("pg-password", envOrDefault("POSTGRES_PASSWORD", defaults.Postgres.Password), "PostgreSQL password")
	pgDB := flag.String("pg-database", envOrDefault("POSTGRES_DATABASE", defaults.Postgres.Database), "PostgreSQL database")

	logLevel := flag.String("log-level", envOrDefault("COORDPARSE_LOG_LEVEL", "info"), "Log level: trace, debug, info, warn, error")
	logJSON := flag.Bool("log-json", false, "Emit structured JSON logs")

	flag.Parse()

	setupLogging(*logLevel, *logJSON)

	// The file wins for values it sets; flags fill the rest.
	cfg := &FileConfig{}
	if *configPath != "" {
		loaded, err := loadConfig(*configPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", *configPath).Msg("Failed to load configuration")
		}
		cfg = loaded
	}
	if cfg.Addr == "" {
		cfg.Addr = *addr
	}
	if !cfg.Auth {
		cfg.Auth = *authEnabled
	}
	if len(cfg.APIKeys) == 0 && *apiKeys != "" {
		for _, k := range strings.Split(*apiKeys, ",") {
			cfg.APIKeys = append(cfg.APIKeys, strings.TrimSpace(k))
		}
	}
	if cfg.SQLitePath == "" {
		cfg.SQLitePath = *sqlitePath
	}
	if !cfg.Postgres.Enabled {
		cfg.Postgres.Enabled = *placesEnabled
	}
	if cfg.Postgres.Host == "" {
		cfg.Postgres.Host = *pgHost
	}
	if cfg.Postgres.Port == 0 {
		cfg.Postgres.Port = *pgPort
	}
	if cfg.Postgres.User == "" {
		cfg.Postgres.User = *pgUser
	}
	if cfg.Postgres.Password == "" {
		cfg.Postgres.Password = *pgPassword
	}
	if cfg.Postgres.Database == "" {
		cfg.Postgres.Database = *pgDB
	}

	ctx := context.Background()

	var db *storage.SQLiteDB
	if cfg.SQLitePath != "" {
		var err error
		db, err = storage.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.SQLitePath).Msg("Failed to open parse log")
		}
		defer func() { _ = db.Close() }()
	}

	var pg *storage.PostgresDB
	if cfg.Postgres.Enabled {
		var err error
		pg, err = storage.OpenPostgres(ctx, cfg.Postgres.PostgresConfig)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open PostgreSQL")
		}
		defer pg.Close()
		if err := pg.CreateSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to create places schema")
		}
	}

	server := api.NewServer(coordparse.New(), db, pg, api.Config{
		Addr:        cfg.Addr,
		AuthEnabled: cfg.Auth,
		APIKeys:     cfg.APIKeys,
	})

	if err := server.Run(); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
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
