// Package storage provides the optional persistence backends: a SQLite
// parse log, a PostgreSQL places store, and a ClickHouse bulk sink.
// Each backend is opened independently; binaries wire up only what they
// need.
package storage

// Config holds connection settings for all storage backends.
type Config struct {
	SQLitePath string           `yaml:"sqlite_path"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
}

// DefaultConfig returns a configuration with default local development
// settings.
func DefaultConfig() Config {
	return Config{
		SQLitePath: "coordparse.db",
		Postgres: PostgresConfig{
			Host:     "localhost",
			Port:     5432,
			Database: "coordparse",
			User:     "coordparse",
			Password: "coordparse",
		},
		ClickHouse: ClickHouseConfig{
			Host:     "localhost",
			Port:     9000,
			Database: "coordparse",
			User:     "default",
			Password: "",
		},
	}
}
