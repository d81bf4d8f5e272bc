package router

import (
	"fmt"

	"github.com/labstack/echo/v4"
	eMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"

	"github.com/geodrop-app/geodrop/backend/internal/feed"
	"github.com/geodrop-app/geodrop/backend/internal/handlers"
	"github.com/geodrop-app/geodrop/backend/internal/middleware"
	"github.com/geodrop-app/geodrop/backend/internal/models"
	"github.com/geodrop-app/geodrop/backend/internal/profile"
	"github.com/geodrop-app/geodrop/backend/internal/stores"
	"github.com/geodrop-app/geodrop/backend/pkg/config"
	"github.com/geodrop-app/geodrop/backend/pkg/firebase"
)

// Engine bundles the feed engine pieces whose lifetime main controls.
type Engine struct {
	Synchronizer *feed.FeedSynchronizer
	Mutations    *feed.PostMutationService
}

// SetupMiddleware configures global Echo middleware
func SetupMiddleware(e *echo.Echo) {
	e.Use(eMiddleware.Recover())
	e.Use(eMiddleware.CORS())
}

// SetupRoutes wires stores, the feed engine and all application routes.
func SetupRoutes(e *echo.Echo, pgdb *gorm.DB, mgClient *mongo.Client, fb *firebase.App, cfg *config.Config) (*Engine, error) {
	// AutoMigrate PostgreSQL models
	if err := pgdb.AutoMigrate(&models.UserProfile{}, &models.Report{}); err != nil {
		return nil, fmt.Errorf("failed to auto migrate models: %w", err)
	}

	// Health check - always accessible
	e.GET("/health", handlers.HealthCheck)

	// --- Collaborator stores ---
	local, err := stores.NewFileLocalStore(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	remote := stores.NewMongoRemoteStore(mgClient.Database(cfg.MongoDatabase))
	blobs := stores.NewBucketBlobStore(fb.Bucket, cfg.StorageBucket)
	profileStore := stores.NewPostgresProfileStore(pgdb)
	reportStore := stores.NewPostgresReportStore(pgdb)

	// --- Feed engine ---
	ledger, err := feed.NewLikeLedger(local)
	if err != nil {
		return nil, err
	}
	synchronizer := feed.NewFeedSynchronizer(remote, ledger)
	profiles := profile.NewService(profileStore, local)
	mutations := feed.NewPostMutationService(remote, blobs, reportStore, synchronizer, ledger, profiles)

	// --- Protected routes (require Firebase authentication) ---
	api := e.Group("/api/v1")
	api.Use(middleware.FirebaseAuthMiddleware(fb.AuthClient))

	postHandler := handlers.NewPostHandler(mutations, synchronizer)
	postHandler.RegisterPostRoutes(api)

	feedHandler := handlers.NewFeedHandler(synchronizer)
	feedHandler.RegisterFeedRoutes(api)

	profileHandler := handlers.NewProfileHandler(profiles)
	profileHandler.RegisterProfileRoutes(api)

	logrus.Info("all routes configured")

	return &Engine{Synchronizer: synchronizer, Mutations: mutations}, nil
}
