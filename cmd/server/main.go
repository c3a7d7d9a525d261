package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"comexiger-backend/internal/auth"
	"comexiger-backend/internal/catalog"
	"comexiger-backend/internal/config"
	"comexiger-backend/internal/database"
	"comexiger-backend/internal/jobs"
	"comexiger-backend/internal/locks"
	"comexiger-backend/internal/logger"
	"comexiger-backend/internal/notify"
	"comexiger-backend/internal/scan"
	"comexiger-backend/internal/server"
	"comexiger-backend/internal/shift"
	"comexiger-backend/internal/stock"

	"github.com/common-nighthawk/go-figure"
)

func main() {
	cfg := config.Load()
	l := logger.New(cfg.AppEnv, cfg.LogLevel)

	if cfg.IsDev() {
		figure.NewFigure("Comexiger", "small", true).Print()
	}

	db, err := database.Open(cfg, l)
	if err != nil {
		l.Fatal().Err(err).Msg("base de datos")
	}
	if err := database.Migrate(db, l); err != nil {
		l.Fatal().Err(err).Msg("migración")
	}

	notifier, closer, err := notify.FromConfig(cfg, l)
	if err != nil {
		l.Fatal().Err(err).Str("backend", cfg.NotifyBackend).Msg("notificaciones")
	}

	// Both ledgers share the scan registry and the lock table.
	scans := scan.NewLedger(time.Now)
	keyed := locks.NewKeyed()

	stockLedger := stock.NewLedger(stock.Options{
		DB:                  db,
		Scans:               scans,
		Locks:               keyed,
		Notifier:            notifier,
		Log:                 l,
		Location:            cfg.Location(),
		BurnOutboundOnEmpty: cfg.OutboundBurnOnEmpty,
	})
	shiftLedger := shift.NewLedger(shift.Options{
		DB:          db,
		Scans:       scans,
		Locks:       keyed,
		Notifier:    notifier,
		Log:         l,
		Location:    cfg.Location(),
		DefaultRate: cfg.DefaultHourlyRate,
	})

	var scheduler *jobs.Scheduler
	if cfg.CronEnabled {
		scheduler = jobs.NewScheduler(l, 30*time.Second)
		err := jobs.RegisterDefaults(scheduler, jobs.Sources{
			Stock:    stockLedger,
			Shifts:   shiftLedger,
			Notifier: notifier,
		}, cfg.StatsSchedule, cfg.StaleShiftSchedule, time.Duration(cfg.StaleShiftHours)*time.Hour)
		if err != nil {
			l.Fatal().Err(err).Msg("jobs")
		}
		scheduler.Start()
	}

	app := server.NewApp(server.Deps{
		Config:  cfg,
		DB:      db,
		Log:     l,
		Issuer:  auth.NewTokenIssuer(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL),
		Stock:   stockLedger,
		Shifts:  shiftLedger,
		Catalog: catalog.New(db, l, cfg.Location()),
	})

	go func() {
		l.Info().Str("port", cfg.HTTPPort).Str("tz", cfg.Timezone).Msg("servidor escuchando")
		if err := app.Listen(":" + cfg.HTTPPort); err != nil {
			l.Fatal().Err(err).Msg("servidor")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	l.Info().Msg("apagando")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		l.Warn().Err(err).Msg("apagado del servidor HTTP")
	}
	if scheduler != nil {
		scheduler.Stop(ctx)
	}
	notifier.Wait()
	if err := closer.Close(); err != nil {
		l.Warn().Err(err).Msg("cierre del notificador")
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}
