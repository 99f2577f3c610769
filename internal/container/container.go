package container

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	database "github.com/FACorreiaa/go-trip-planner/app/db"
	"github.com/FACorreiaa/go-trip-planner/config"
	generativeAI "github.com/FACorreiaa/go-trip-planner/internal/api/generative_ai"
	"github.com/FACorreiaa/go-trip-planner/internal/api/maps"
	"github.com/FACorreiaa/go-trip-planner/internal/api/media"
	"github.com/FACorreiaa/go-trip-planner/internal/api/places"
	"github.com/FACorreiaa/go-trip-planner/internal/api/trip"
)

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	Logger      *slog.Logger
	Pool        *pgxpool.Pool
	TripHandler *trip.HandlerImpl
	MapsHandler *maps.HandlerImpl
}

// NewContainer initializes and returns a new dependency container
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	dbConfig, err := database.NewDatabaseConfig(cfg, logger)
	if err != nil {
		logger.Error("Failed to generate database config", slog.Any("error", err))
		return nil, err
	}
	pool, err := database.Init(dbConfig.ConnectionURL, logger)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.Any("error", err))
		return nil, err
	}

	placesService := places.NewServiceImpl(cfg.Places.BaseURL, cfg.Places.GeocodeURL, cfg.Places.APIKey, nil, logger)

	storageClient, err := minio.New(cfg.Storage.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Storage.AccessKey, cfg.Storage.SecretKey, ""),
		Secure: cfg.Storage.UseSSL,
	})
	if err != nil {
		logger.Error("Failed to initialize storage client", slog.Any("error", err))
		return nil, err
	}
	mediaService := media.NewServiceImpl(placesService, storageClient, cfg.Storage.Bucket, cfg.Storage.PublicBaseURL, logger)

	aiClient, err := generativeAI.NewAIClient(ctx, cfg.LLM, logger)
	if err != nil {
		logger.Error("Failed to initialize AI client", slog.Any("error", err))
		return nil, err
	}

	tripRepo := trip.NewRepository(pool, logger)
	tripService := trip.NewServiceImpl(tripRepo, aiClient, placesService, mediaService, cfg.LLM, logger)
	tripHandler := trip.NewHandler(tripService, logger)

	mapsHandler := maps.NewHandler(placesService, logger)

	return &Container{
		Config:      cfg,
		Logger:      logger,
		Pool:        pool,
		TripHandler: tripHandler,
		MapsHandler: mapsHandler,
	}, nil
}

// Close releases held resources.
func (c *Container) Close() {
	if c.Pool != nil {
		c.Pool.Close()
	}
}
