// Package server wires the chunksync server together: database, content
// store, upload orchestrator, HTTP API and the store-event poller, plus
// graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/chunksync/chunksync/internal/logging"
	"github.com/chunksync/chunksync/internal/server/blobstore"
	"github.com/chunksync/chunksync/internal/server/config"
	"github.com/chunksync/chunksync/internal/server/httpapi"
	"github.com/chunksync/chunksync/internal/server/notify"
	"github.com/chunksync/chunksync/internal/server/repositories/repomanager"
	"github.com/chunksync/chunksync/internal/server/services"
)

type App struct {
	config          *config.Config
	logger          logging.Logger
	db              *sql.DB
	uploadService   *services.UploadService
	manifestService *services.ManifestService
	poller          *notify.Poller
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	slogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(slogger)

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	repos := repomanager.NewPostgresRepositoryManager()
	if err := repos.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	store, err := blobstore.NewS3Store(ctx, blobstore.S3Options{
		Region:       cfg.S3Region,
		AccessKey:    cfg.S3RootUser,
		SecretKey:    cfg.S3RootPassword,
		Bucket:       cfg.S3Bucket,
		BaseEndpoint: cfg.S3BaseEndpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("content store init error: %w", err)
	}

	us := services.NewUploadService(db, repos, store, cfg, logger)
	ms := services.NewManifestService(db, repos, store, cfg)

	app := &App{
		config:          cfg,
		logger:          logger,
		db:              db,
		uploadService:   us,
		manifestService: ms,
	}

	// the poller is optional; without a queue the store-event path is off
	// and finalization relies entirely on complete-time reconciliation
	if cfg.QueueURL != "" {
		client, err := notify.NewSQSClient(ctx, cfg.S3Region, cfg.S3RootUser, cfg.S3RootPassword, cfg.QueueEndpoint)
		if err != nil {
			return nil, fmt.Errorf("queue client init error: %w", err)
		}
		handler := notify.NewHandler(us, cfg.ObjectPrefix, logger)
		app.poller = notify.NewPoller(client, cfg.QueueURL, cfg.QueueWaitTime, handler, logger)
	}

	return app, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := httpapi.NewServer(app.config.EndpointAddr, app.uploadService, app.manifestService,
		[]byte(app.config.SecretKey), app.logger)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	if app.poller != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.poller.Run(ctx)
		}()
	}

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, err.Error())
	}
}
