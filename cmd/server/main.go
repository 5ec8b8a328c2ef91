// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/dlevitt/radar/internal/aggregator"
	"github.com/dlevitt/radar/internal/alerts"
	"github.com/dlevitt/radar/internal/auth"
	"github.com/dlevitt/radar/internal/config"
	"github.com/dlevitt/radar/internal/database"
	"github.com/dlevitt/radar/internal/friends"
	"github.com/dlevitt/radar/internal/handlers"
	"github.com/dlevitt/radar/internal/location"
	"github.com/dlevitt/radar/internal/store"
	"github.com/dlevitt/radar/internal/tracker"
)

func main() {
	cfg := config.Load()

	logger := logrus.New()
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(lvl)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatalf("database connect failed: %v", err)
	}
	defer db.Close()
	if err := db.EnsureSchema(ctx); err != nil {
		log.Fatalf("schema setup failed: %v", err)
	}

	// Empty REDIS_ADDR runs the live store in process; useful for
	// single-node deployments and local development.
	var st store.Store
	if cfg.RedisAddr != "" {
		rs, err := store.NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			log.Fatalf("redis connect failed: %v", err)
		}
		defer rs.Close()
		st = rs
	} else {
		logger.Warn("REDIS_ADDR empty, using in-process store")
		st = store.NewMemoryStore()
	}

	sessions, err := auth.NewSessions(cfg.TokenExpiry)
	if err != nil {
		log.Fatalf("session keygen failed: %v", err)
	}

	fm := friends.New(st, db, logger)
	th := alerts.NewThresholds(st)
	prop := location.NewPropagator(st, logger, cfg.ReportMinInterval)
	agg := aggregator.New(st, fm, logger)
	sessStore := tracker.NewSessionStore()

	srv := &handlers.Server{
		Log:        logger,
		Sessions:   sessions,
		Accounts:   db,
		Friends:    fm,
		Thresholds: th,
		Propagator: prop,
		Store:      st,
		Tracker:    sessStore,
		Deps: tracker.Deps{
			Store:      st,
			Aggregator: agg,
			Thresholds: th,
			Propagator: prop,
			Log:        logger,
			Fallback:   cfg.Fallback,
		},
	}

	httpSrv := &http.Server{Addr: cfg.Addr, Handler: srv.Routes()}

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		sessStore.CloseAll()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("shutdown did not complete cleanly")
		}
	}()

	logger.Infof("Running on %s", cfg.Addr)
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server exited: %v", err)
	}
}
