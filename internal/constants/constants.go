package constants

import "time"

const (
	IngestInterval   = 6 * time.Hour
	IngestRunTimeout = 30 * time.Minute
	TrendLookback    = 24 * time.Hour
	StaleAfter       = 7 * time.Hour
	HistoryDays      = 9
)

const (
	LadderPageSize      = 100
	DefaultIngestTries  = 3
	DefaultIngestDelay  = 30 * time.Second
	ArchiveLoadParallel = 4
)

const (
	RatingFloor   = 0
	RatingCeiling = 25000
)

const (
	ExternalAPITimeout = 10 * time.Second
	DatabaseTimeout    = 5 * time.Second
	RequestTimeout     = 30 * time.Second
)

const (
	DBMaxOpenConns    = 100
	DBMaxIdleConns    = 10
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
)

const (
	ShutdownTimeout = 5 * time.Second
)
