// Package app wires the catalog, the S3 client and the scheduler together
// and serves the engine's status and sync endpoints.
package app

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gorilla/mux"

	"photocat/pkg/config"
	"photocat/pkg/dbinit"
	"photocat/pkg/dbsvc"
	"photocat/pkg/health"
	"photocat/pkg/metadata"
	"photocat/pkg/s3svc"
	"photocat/pkg/scanner"
	"photocat/pkg/scheduler"
	"photocat/pkg/thumbcache"
)

const httpReadHeaderTimeout = 10 * time.Second

// App owns the process-scoped clients and services. All state is explicitly
// constructed here and injected; there are no ambient globals.
type App struct {
	cfg         config.Config
	db          *sql.DB
	awsS3Client *s3.Client
	s3svc       *s3svc.Service
	catalog     *dbsvc.Service
	scanner     *scanner.Service
	scheduler   *scheduler.Scheduler
	dbHealth    *health.DatabaseHealth
	router      *mux.Router
	srv         *http.Server
	log         *slog.Logger
}

// NewApp creates the application: database (with migrations), S3 client and
// every service, ready to Start.
func NewApp(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	a := &App{
		cfg:    cfg,
		router: mux.NewRouter().StrictSlash(true),
		log:    log,
	}

	db, err := dbinit.InitializeDatabase(ctx, cfg.DatabaseURL, log)
	if err != nil {
		return nil, err
	}
	a.db = db

	if err := a.initS3Client(); err != nil {
		return nil, err
	}
	a.s3svc = s3svc.NewS3Svc(cfg, a.awsS3Client)
	a.s3svc.SetLogger(log)

	a.catalog = dbsvc.NewService(cfg, db)
	a.catalog.SetLogger(log)

	thumbs, err := thumbcache.NewCache(cfg.Scan.ThumbnailCacheDir)
	if err != nil {
		return nil, err
	}

	extractor := metadata.NewExtractor(metadata.DefaultMaxPrefixBytes, metadata.DefaultTimeout)
	extractor.SetLogger(log)

	a.scanner = scanner.NewService(cfg, a.s3svc, a.catalog, extractor, thumbs)
	a.scanner.SetLogger(log)

	a.scheduler = scheduler.NewScheduler(cfg, a.catalog, a.scanner)
	a.scheduler.SetLogger(log)

	a.dbHealth = health.NewDatabaseHealth(db)
	a.dbHealth.SetLogger(log)

	a.initRouter()
	a.srv = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           a.router,
		ReadHeaderTimeout: httpReadHeaderTimeout,
	}
	return a, nil
}

// Start launches the health monitor, the scheduler and the HTTP server.
func (a *App) Start(ctx context.Context) error {
	a.dbHealth.Start(ctx)
	if err := a.scheduler.Start(ctx); err != nil {
		return err
	}

	go func() {
		a.log.Info("listening", slog.String("addr", a.cfg.ListenAddr))
		if err := a.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("http server stopped", slog.String("error", err.Error()))
		}
	}()
	return nil
}

// Stop shuts everything down in reverse order of Start.
func (a *App) Stop() {
	if err := a.srv.Shutdown(context.Background()); err != nil {
		a.log.Error("error shutting down http server", slog.String("error", err.Error()))
	}
	a.scheduler.Stop()
	a.dbHealth.Stop()
	if err := a.db.Close(); err != nil {
		a.log.Error("error closing database", slog.String("error", err.Error()))
	}
}

// Router returns the HTTP handler, used by tests.
func (a *App) Router() http.Handler {
	return a.router
}
