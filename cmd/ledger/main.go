package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/workledger/internal/buildinfo"
	"github.com/dmitrijs2005/workledger/internal/client/backup"
	"github.com/dmitrijs2005/workledger/internal/client/cli"
	"github.com/dmitrijs2005/workledger/internal/client/client"
	"github.com/dmitrijs2005/workledger/internal/client/config"
	"github.com/dmitrijs2005/workledger/internal/client/services"
	"github.com/dmitrijs2005/workledger/internal/events"
	"github.com/dmitrijs2005/workledger/internal/logging"
	"github.com/rs/zerolog"
)

func newLogger(format string) logging.Logger {
	if format == config.LogFormatJSON {
		return logging.NewJSONLogger(os.Stderr, slog.LevelInfo)
	}
	return logging.NewConsoleLogger(os.Stderr, zerolog.InfoLevel)
}

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()
	logger := newLogger(cfg.LogFormat)

	db, err := client.InitDatabase(ctx, cfg.DatabasePath)
	if err != nil {
		logger.Error(ctx, "error initializing database", "path", cfg.DatabasePath, "err", err)
		os.Exit(1)
	}
	defer db.Close()

	repos := client.NewRepositories(db)
	bus := events.NewBus(logger)

	session := services.NewSession(services.SessionOptions{
		Relay:            client.NewHTTPRelay(cfg.RequestTimeout),
		Settings:         repos.Settings,
		Entries:          repos.Entries,
		Bus:              bus,
		Logger:           logger,
		DefaultServerURL: cfg.ServerURL,
		PageSize:         cfg.PageSize,
	})
	defer session.Close()

	if err := session.Resume(ctx); err != nil {
		logger.Error(ctx, "error restoring sync session", "err", err)
		os.Exit(1)
	}
	unwatch := session.Watch(bus)
	defer unwatch()

	var backups cli.BackupStore
	if cfg.S3Bucket != "" {
		exp, err := backup.NewS3Exporter(ctx, backup.Settings{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3BaseEndpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Prefix:    cfg.S3Prefix,
		}, nil)
		if err != nil {
			logger.Warn(ctx, "backups disabled", "err", err)
		} else {
			backups = exp
		}
	}

	app := cli.NewApp(session, services.NewEntryService(repos.Entries, bus, nil), backups, logger)

	go app.StartSyncLoop(ctx, cfg.SyncInterval)

	app.Run(ctx)

}
