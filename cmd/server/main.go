package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/geodrop-app/geodrop/backend/internal/router"
	"github.com/geodrop-app/geodrop/backend/pkg/config"
	"github.com/geodrop-app/geodrop/backend/pkg/firebase"
	"github.com/geodrop-app/geodrop/backend/validators"
)

func main() {
	// Load configuration
	cfg := config.Load()

	lvl, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)

	// Initialize database connections
	db, err := config.InitDB(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("failed to initialize databases")
	}
	defer db.CloseDB()

	// Initialize Firebase
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	firebaseApp, err := firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath, cfg.StorageBucket)
	if err != nil {
		logrus.WithError(err).Fatal("failed to initialize Firebase")
	}

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	router.SetupMiddleware(e)
	e.Validator = validators.NewValidator()

	// Setup routes and dependencies
	engine, err := router.SetupRoutes(e, db.Postgres, db.Mongo, firebaseApp, cfg)
	if err != nil {
		logrus.WithError(err).Fatal("failed to set up routes")
	}

	// The live subscription runs for the whole process lifetime.
	engine.Synchronizer.Start(ctx)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			logrus.WithError(err).Error("failed to shut down http server")
		}

		engine.Synchronizer.Stop()
		engine.Mutations.Close()
		return nil
	})

	if err := g.Wait(); err != nil {
		logrus.WithError(err).Fatal("service stopped")
	}
	logrus.Info("service stopped")
}
