package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/mwegrzyn/movieclub/internal/bootstrap"
	"github.com/mwegrzyn/movieclub/internal/config"
	"github.com/mwegrzyn/movieclub/internal/db"
	"github.com/mwegrzyn/movieclub/internal/events"
	"github.com/mwegrzyn/movieclub/internal/handlers"
	"github.com/mwegrzyn/movieclub/internal/logging"
	authmw "github.com/mwegrzyn/movieclub/internal/middleware/auth"
	"github.com/mwegrzyn/movieclub/internal/middleware/loggingmw"
	"github.com/mwegrzyn/movieclub/internal/tokens"
	httpserver "github.com/mwegrzyn/movieclub/internal/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	cfg.MustSecrets()

	logger := logging.New(cfg.LogLevel)

	database, err := db.Open(context.Background(), cfg)
	if err != nil {
		log.Fatalf("database init error: %v", err)
	}

	if err := bootstrap.Seed(database, cfg, logger); err != nil {
		log.Fatalf("seed error: %v", err)
	}

	codec := tokens.New(cfg.JWTSecret, cfg.JWTRefreshSecret, cfg.AccessTTLSec, cfg.RefreshTTLSec)
	producer := events.NewProducer(cfg.KafkaBrokers)
	guard := &authmw.Guard{DB: database, Codec: codec}

	e := echo.New()
	e.HideBanner = true
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{cfg.CorsOrigin},
	}))
	e.Use(loggingmw.RequestLogger(logger))

	deps := httpserver.Deps{
		DB:           database,
		Guard:        guard,
		AuthHandler:  &handlers.AuthHandler{DB: database, Codec: codec, Producer: producer},
		MovieHandler: &handlers.MovieHandler{DB: database, Producer: producer, UploadDir: cfg.UploadDir},
		PostHandler:  &handlers.PostHandler{DB: database, Producer: producer},
		UserHandler:  &handlers.UserHandler{DB: database},
		UploadDir:    cfg.UploadDir,
	}
	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if sqlDB, err := database.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Error("db close error", "error", err)
		}
	} else {
		logger.Error("db unwrap error", "error", err)
	}

	if err := producer.Close(); err != nil {
		logger.Error("kafka close error", "error", err)
	}

	logger.Info("shutdown complete")
}
