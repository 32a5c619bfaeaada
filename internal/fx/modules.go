package fx

import (
	"database/sql"
	"tetra-tracker/internal/api"
	"tetra-tracker/internal/archive"
	"tetra-tracker/internal/config"
	"tetra-tracker/internal/database"
	"tetra-tracker/internal/db"
	"tetra-tracker/internal/logger"
	"tetra-tracker/internal/repository"
	"tetra-tracker/internal/scheduler"
	"tetra-tracker/internal/server"
	"tetra-tracker/internal/service"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func ProvideQueries(sqlDB *sql.DB) *db.Queries {
	return db.New(sqlDB)
}

func ProvideArchiveWriter(s *archive.Store) service.ArchiveWriter { return s }
func ProvideSnapshotLoader(s *archive.Store) service.SnapshotLoader { return s }
func ProvideBatchStore(r *repository.BatchRepository) service.BatchStore { return r }
func ProvideSampleStore(r *repository.HistoryRepository) service.SampleStore { return r }
func ProvideLadderFetcher(c *api.TetrioClient) service.LadderFetcher { return c }
func ProvideRatingSource(c *api.TetrioClient) service.RatingSource { return c }
func ProvideIngester(s *service.IngestionService) scheduler.Ingester { return s }

func ProvideServer(
	trends *service.TrendService,
	histories *service.HistoryService,
	sched *scheduler.Scheduler,
	ingestion *service.IngestionService,
	logger zerolog.Logger,
) *server.TrackerServer {
	return server.NewTrackerServer(trends, histories, sched, ingestion, logger)
}

var Module = fx.Options(
	logger.Module,
	config.Module,
	fx.Provide(database.New),
	fx.Provide(ProvideQueries),
	// storage
	fx.Provide(archive.NewStore),
	fx.Provide(ProvideArchiveWriter, ProvideSnapshotLoader),
	// repos
	fx.Provide(repository.NewBatchRepository),
	fx.Provide(repository.NewHistoryRepository),
	fx.Provide(ProvideBatchStore, ProvideSampleStore),
	// api client
	fx.Provide(api.NewTetrioClient),
	fx.Provide(ProvideLadderFetcher, ProvideRatingSource),
	// svc
	fx.Provide(service.NewIngestionService),
	fx.Provide(service.NewTrendService),
	fx.Provide(service.NewHistoryService),
	// scheduling
	fx.Provide(ProvideIngester),
	fx.Provide(scheduler.New),
	// server
	fx.Provide(ProvideServer),
)
