package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// AppConfig holds all application configuration loaded from environment
// variables. These are populated at startup by the LoadConfig function.
// Every variable has a usable default so the simulator runs out of the box.
var (
	// LogLevel controls zerolog verbosity ("debug", "info", "warn", "error").
	LogLevel string

	// LogFile, when non-empty, duplicates log output to a file.
	LogFile string

	// SweepWorkers sizes the sweep worker pool; 0 means one per CPU.
	SweepWorkers int

	// SeriesCSV optionally points at a market series file; when empty the
	// built-in synthetic shock series is used.
	SeriesCSV string

	// WebPort, when non-empty, serves sweep results over HTTP after the
	// sweep completes.
	WebPort string

	// Arbitrage search parameters (see arbitrage.Parameters).
	ArbMinTrade      int64
	ArbTolerance     int64
	ArbMaxIterations int

	// AnnualizationFactor matches the series frequency for metrics.
	AnnualizationFactor float64

	// Database connection; persistence is skipped when DBHost is empty.
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
)

// LoadConfig loads configuration from environment variables and sets the
// global config vars.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	LogLevel = getEnvOr("LOG_LEVEL", "info")
	LogFile = getEnvOr("LOG_FILE", "")
	SeriesCSV = getEnvOr("SERIES_CSV", "")
	WebPort = getEnvOr("WEB_PORT", "")

	var err error
	SweepWorkers, err = getEnvAsIntOr("SWEEP_WORKERS", 0)
	if err != nil {
		return err
	}
	ArbMinTrade, err = getEnvAsInt64Or("ARB_MIN_TRADE", DefaultArbMinTrade)
	if err != nil {
		return err
	}
	ArbTolerance, err = getEnvAsInt64Or("ARB_TOLERANCE", DefaultArbTolerance)
	if err != nil {
		return err
	}
	ArbMaxIterations, err = getEnvAsIntOr("ARB_MAX_ITERATIONS", DefaultArbMaxIterations)
	if err != nil {
		return err
	}
	AnnualizationFactor, err = getEnvAsFloat64Or("ANNUALIZATION_FACTOR", DefaultAnnualizationFactor)
	if err != nil {
		return err
	}

	DBHost = getEnvOr("DB_HOST", "")
	DBPort, err = getEnvAsIntOr("DB_PORT", 5432)
	if err != nil {
		return err
	}
	DBUser = getEnvOr("DB_USER", "postgres")
	DBPassword = getEnvOr("DB_PASSWORD", "")
	DBName = getEnvOr("DB_NAME", "curvesim")
	DBSSLMode = getEnvOr("DB_SSLMODE", "disable")

	log.Info().Msg("Application configuration loaded successfully.")
	return nil
}

func getEnvOr(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func getEnvAsIntOr(key string, fallback int) (int, error) {
	raw := getEnvOr(key, "")
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		log.Error().Str("key", key).Str("value", raw).Msg("Environment variable is not a valid integer")
		return 0, err
	}
	return value, nil
}

func getEnvAsInt64Or(key string, fallback int64) (int64, error) {
	raw := getEnvOr(key, "")
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		log.Error().Str("key", key).Str("value", raw).Msg("Environment variable is not a valid integer")
		return 0, err
	}
	return value, nil
}

func getEnvAsFloat64Or(key string, fallback float64) (float64, error) {
	raw := getEnvOr(key, "")
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Error().Str("key", key).Str("value", raw).Msg("Environment variable is not a valid number")
		return 0, err
	}
	return value, nil
}
