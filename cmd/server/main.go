package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Simplici0/costbook/internal/config"
	"github.com/Simplici0/costbook/internal/db"
	"github.com/Simplici0/costbook/internal/logging"
	"github.com/Simplici0/costbook/internal/migrations"
	"github.com/Simplici0/costbook/internal/pricing"
	"github.com/Simplici0/costbook/internal/seed"
	"github.com/Simplici0/costbook/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if err := logging.Setup(cfg.LogLevel, cfg.LogPretty); err != nil {
		log.Fatal().Err(err).Msg("failed to set up logging")
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("db_path", cfg.DBPath).Msg("failed to open database")
	}
	defer database.Close()

	if err := migrations.Up(database); err != nil {
		log.Fatal().Err(err).Msg("failed to run database migrations")
	}

	if cfg.SeedDemoData {
		stats, err := seed.Run(database)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to seed demo data")
		}
		log.Info().Int("inserts", stats.Inserts).Msg("demo data seeded")
	}

	srv := newServer(store.New(database), cfg, log.Logger)
	unsubscribe := watchPriceAlerts(srv.pricing, log.Logger)
	defer unsubscribe()

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Str("addr", httpServer.Addr).Msg("listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

// watchPriceAlerts logs every moderate and immediate price change.
func watchPriceAlerts(engine *pricing.Engine, logger zerolog.Logger) func() {
	logAlert := func(level zerolog.Level) pricing.Listener {
		return func(_ context.Context, ev pricing.PriceChangeEvent) error {
			logger.WithLevel(level).
				Int64("material_id", ev.Material.ID).
				Str("code", ev.Material.Code).
				Str("old_price", ev.OldPrice.StringFixed(2)).
				Str("new_price", ev.NewPrice.StringFixed(2)).
				Str("percentage_change", ev.PercentageChange.String()).
				Str("alert_level", string(ev.AlertLevel)).
				Msg("price alert")
			return nil
		}
	}
	offMajor := engine.OnMajorChange(logAlert(zerolog.WarnLevel))
	offModerate := engine.OnModerateChange(logAlert(zerolog.InfoLevel))
	return func() {
		offMajor()
		offModerate()
	}
}
