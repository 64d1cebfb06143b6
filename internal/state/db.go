package state

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog/log"
)

// DB is a global database connection pool.
var DB *sql.DB

// DBConfig holds database connection parameters.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string // "disable", "require", "verify-full", etc.
}

// InitDB initializes the database connection pool.
func InitDB(cfg DBConfig) error {
	psqlInfo := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	var err error
	DB, err = sql.Open("postgres", psqlInfo)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	DB.SetMaxOpenConns(25)
	DB.SetMaxIdleConns(25)
	DB.SetConnMaxLifetime(5 * time.Minute)

	err = DB.Ping()
	if err != nil {
		DB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Msg("Successfully connected to the PostgreSQL database!")
	return nil
}

// CloseDB closes the database connection pool.
func CloseDB() {
	if DB != nil {
		log.Info().Msg("Closing database connection...")
		if err := DB.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database connection")
		}
	}
}

// EnsureSchema creates the result tables if they do not exist.
func EnsureSchema() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	schema := `
	CREATE TABLE IF NOT EXISTS sweep_runs (
		run_id          SERIAL PRIMARY KEY,
		sweep_name      TEXT NOT NULL,
		run_key         TEXT NOT NULL,
		series_id       TEXT NOT NULL,
		amp             BIGINT NOT NULL,
		fee             BIGINT NOT NULL,
		admin_fee       BIGINT NOT NULL,
		status          TEXT NOT NULL,
		incomplete      BOOLEAN NOT NULL DEFAULT FALSE,
		run_error       TEXT,
		steps           JSONB NOT NULL,
		summary         JSONB,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (sweep_name, run_key)
	);
	CREATE INDEX IF NOT EXISTS idx_sweep_runs_sweep_name ON sweep_runs (sweep_name);
	`

	if _, err := DB.Exec(schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	log.Info().Msg("Database schema ensured.")
	return nil
}
