// Package server wires the registry together: database and migrations,
// moderation scanner, blob storage, business services, the cleanup
// pipeline and the gRPC endpoint, and runs them until shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/skillhub/internal/logging"
	"github.com/dmitrijs2005/skillhub/internal/server/cleanup"
	"github.com/dmitrijs2005/skillhub/internal/server/config"
	"github.com/dmitrijs2005/skillhub/internal/server/moderation"
	"github.com/dmitrijs2005/skillhub/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/skillhub/internal/server/services"
	"github.com/dmitrijs2005/skillhub/internal/server/storage"
	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/sync/errgroup"

	gs "github.com/dmitrijs2005/skillhub/internal/server/grpc"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	server *gs.GRPCServer
	worker *cleanup.Worker
}

// NewApp connects to PostgreSQL, applies migrations and builds the
// application graph.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	m := repomanager.NewPostgresRepositoryManager()
	if err := m.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	s3, err := storage.NewS3Store(ctx, storage.S3Config{
		Region:    c.S3Region,
		AccessKey: c.S3RootUser,
		SecretKey: c.S3RootPassword,
		Endpoint:  c.S3BaseEndpoint,
		Bucket:    c.S3Bucket,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	app, err := newApp(c, logger, db, m, storage.NewBreakerStore(s3, c.StorageBreakerThreshold))
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return app, nil
}

func newScanner(c *config.Config) (*moderation.PatternScanner, error) {
	rules, err := moderation.LoadRules(c.ModerationRulesFile)
	if err != nil {
		return nil, err
	}
	return moderation.NewPatternScanner(rules)
}

func newApp(c *config.Config, logger logging.Logger, db *sql.DB, m repomanager.RepositoryManager, store storage.BlobStore) (*App, error) {
	scanner, err := newScanner(c)
	if err != nil {
		return nil, fmt.Errorf("moderation init error: %w", err)
	}

	queue := cleanup.NewQueue(c.CleanupQueueSize)
	worker := cleanup.NewWorker(db, m, queue, c, logger)

	svc := gs.Services{
		Publish:    services.NewPublishService(db, m, scanner, logger),
		Tags:       services.NewTagService(db, m, logger),
		Moderation: services.NewModerationService(db, m, logger),
		Resolve:    services.NewResolveService(db, m, c),
		Restore:    services.NewRestoreService(db, m, c, scanner, store, queue, logger),
	}

	return &App{
		config: c,
		logger: logger,
		db:     db,
		server: gs.NewGRPCServer(c.EndpointAddrGRPC, logger, svc, c.SecretKey),
		worker: worker,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves until ctx is cancelled, a signal arrives or a component fails.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return app.server.Run(ctx)
	})

	workers := max(app.config.CleanupWorkers, 1)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			return app.worker.Run(ctx)
		})
	}

	g.Go(func() error {
		return app.worker.RunSweeper(ctx)
	})

	err := g.Wait()
	app.logger.Info(context.Background(), "App stopped")
	return err
}

// Close releases the database pool.
func (app *App) Close() error {
	return app.db.Close()
}
