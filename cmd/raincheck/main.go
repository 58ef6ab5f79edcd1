package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"raincheck/internal/api"
	"raincheck/internal/config"
	"raincheck/internal/dashboard"
	"raincheck/internal/forecast"
	"raincheck/internal/rachio"
	"raincheck/internal/refresh"
	"raincheck/internal/store"
	"raincheck/internal/usage"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_pragma=journal_mode(WAL)", cfg.DBPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("open db")
	}
	defer db.Close()
	db.SetMaxOpenConns(1) // SQLite single writer

	if err := store.EnsureSchema(db); err != nil {
		log.Fatal().Err(err).Msg("ensure schema")
	}
	cache := store.NewSQLiteCache(db)

	vendor := rachio.New(cfg.RachioAPIKey)
	weather := forecast.NewSource(cfg.ForecastLat, cfg.ForecastLon, cache)

	var fetcher usage.Fetcher
	if cfg.UsageConfigured() {
		fetcher = usage.NewBrowserFetcher(cfg.UsageCSVURL, cfg.UsageEmail, cfg.UsagePassword)
	} else {
		log.Info().Msg("usage portal credentials absent; /water/daily disabled")
	}
	water := usage.NewService(fetcher, cache)

	dash := dashboard.NewService(vendor, vendor, weather, log.Logger)

	// Background cache warming.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	warmer := refresh.NewService(log.Logger)
	if err := warmer.Add("forecast", cfg.ForecastRefreshCron, func(ctx context.Context) error {
		return weather.Refresh(ctx, time.Now())
	}); err != nil {
		log.Fatal().Err(err).Msg("register forecast refresh")
	}
	if water.Configured() {
		if err := warmer.Add("usage", cfg.UsageRefreshCron, func(ctx context.Context) error {
			return water.Refresh(ctx, time.Now())
		}); err != nil {
			log.Fatal().Err(err).Msg("register usage refresh")
		}
	}
	warmer.Start(ctx)
	defer warmer.Stop()

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: api.NewServer(dash, water, log.Logger)}
	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Msg("HTTP server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	log.Info().Msg("shutting down")
	cancel()
	ctxTimeout, cancelTimeout := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelTimeout()
	_ = srv.Shutdown(ctxTimeout)
}
