package config

import (
	"fmt"
	"os"
	"strconv"
	"tetra-tracker/internal/constants"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

type Config struct {
	APIBase          string
	DBPath           string
	ArchiveDir       string
	ServerPort       string
	LogLevel         string
	Location         *time.Location
	IngestSchedule   string
	IngestRetries    int
	IngestRetryDelay time.Duration
	APIRatePerSecond float64
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}
	return FromEnv(logger)
}

// FromEnv builds the configuration from the process environment only.
func FromEnv(logger zerolog.Logger) (*Config, error) {
	tzName := getEnv("LADDER_TIMEZONE", "Asia/Shanghai")
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("invalid LADDER_TIMEZONE %q: %w", tzName, err)
	}

	retries, err := strconv.Atoi(getEnv("INGEST_RETRIES", strconv.Itoa(constants.DefaultIngestTries)))
	if err != nil || retries < 0 {
		return nil, fmt.Errorf("invalid INGEST_RETRIES: must be a non-negative integer")
	}

	delay, err := time.ParseDuration(getEnv("INGEST_RETRY_DELAY", constants.DefaultIngestDelay.String()))
	if err != nil || delay <= 0 {
		return nil, fmt.Errorf("invalid INGEST_RETRY_DELAY: must be a positive duration")
	}

	rps, err := strconv.ParseFloat(getEnv("API_RATE_PER_SECOND", "1"), 64)
	if err != nil || rps <= 0 {
		return nil, fmt.Errorf("invalid API_RATE_PER_SECOND: must be a positive number")
	}

	cfg := &Config{
		APIBase:          getEnv("TETRIO_API_BASE", "https://ch.tetr.io/api"),
		DBPath:           getEnv("DB_PATH", "tetra.db"),
		ArchiveDir:       getEnv("ARCHIVE_DIR", "archives"),
		ServerPort:       getEnv("SERVER_PORT", "8080"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		Location:         loc,
		IngestSchedule:   getEnv("INGEST_SCHEDULE", "@every "+constants.IngestInterval.String()),
		IngestRetries:    retries,
		IngestRetryDelay: delay,
		APIRatePerSecond: rps,
	}

	logger.Info().
		Str("api_base", cfg.APIBase).
		Str("db_path", cfg.DBPath).
		Str("archive_dir", cfg.ArchiveDir).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Str("timezone", loc.String()).
		Str("ingest_schedule", cfg.IngestSchedule).
		Int("ingest_retries", cfg.IngestRetries).
		Dur("ingest_retry_delay", cfg.IngestRetryDelay).
		Msg("configuration loaded")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

var Module = fx.Provide(Load)
