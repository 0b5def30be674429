// Package server assembles fdcsync: database, repositories, the FDC client
// factory, the task queue and the ingestion services.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/fdcsync/internal/archive"
	"github.com/dmitrijs2005/fdcsync/internal/dbx"
	"github.com/dmitrijs2005/fdcsync/internal/fdc"
	"github.com/dmitrijs2005/fdcsync/internal/filex"
	"github.com/dmitrijs2005/fdcsync/internal/logging"
	"github.com/dmitrijs2005/fdcsync/internal/server/config"
	"github.com/dmitrijs2005/fdcsync/internal/server/models"
	"github.com/dmitrijs2005/fdcsync/internal/server/repositories/fooditems"
	"github.com/dmitrijs2005/fdcsync/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/fdcsync/internal/server/services"
	"github.com/dmitrijs2005/fdcsync/internal/taskqueue"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"golang.org/x/time/rate"
)

// PushJob is the Pushgateway job name of CLI runs.
const PushJob = "fdcsync"

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	queue       *taskqueue.Queue
	settings    *services.SettingsService
	ingest      *services.IngestService
}

// NewApp opens the database and wires every component. Logs go to logOut
// as JSON.
func NewApp(ctx context.Context, c *config.Config, logOut io.Writer) (*App, error) {
	logger := logging.NewJSONLogger(logOut, c.LogLevel)

	m, err := repomanager.New(c.DatabaseDriver)
	if err != nil {
		return nil, err
	}

	pool := dbx.PoolOptions{MaxOpenConns: c.Workers + 2}
	if c.DatabaseDriver == repomanager.DriverSQLite {
		pool.MaxOpenConns = 1
		if path, ok := filex.SQLiteFilePath(c.DatabaseDSN); ok {
			if err := filex.EnsureParentDir(path); err != nil {
				return nil, fmt.Errorf("db init error: %w", err)
			}
		}
	}
	db, err := dbx.Open(ctx, m.SQLDriver(), c.DatabaseDSN, pool)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	defaults, err := services.DefaultSettings(c)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("config error: %w", err)
	}
	settings := services.NewSettingsService(db, m, defaults)

	opts := []services.IngestOption{services.WithBatchLimit(c.BatchLimit)}
	if c.ArchiveEnabled() {
		a, err := archive.NewS3Archiver(ctx, archive.S3Config{
			Region:       c.S3Region,
			AccessKey:    c.S3AccessKey,
			SecretKey:    c.S3SecretKey,
			BaseEndpoint: c.S3BaseEndpoint,
			Bucket:       c.S3Bucket,
			UsePathStyle: c.S3UsePathStyle,
		})
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("archive init error: %w", err)
		}
		opts = append(opts, services.WithArchiver(a))
	}

	queue := taskqueue.New(c.Workers, logger)
	ingest := services.NewIngestService(db, m, settings, newClientFactory(c, logger), queue, logger, opts...)
	ingest.RegisterTasks(queue)

	return &App{
		config:      c,
		logger:      logger,
		db:          db,
		repomanager: m,
		queue:       queue,
		settings:    settings,
		ingest:      ingest,
	}, nil
}

// newClientFactory builds clients that share one HTTP client and one rate
// limiter, whatever API key a job snapshot carries.
func newClientFactory(c *config.Config, logger logging.Logger) services.ClientFactory {
	httpClient := &http.Client{Timeout: c.HTTPTimeout}
	var limiter *rate.Limiter
	if c.RequestRate > 0 {
		burst := max(c.RequestBurst, 1)
		limiter = rate.NewLimiter(rate.Limit(c.RequestRate), burst)
	}
	return func(apiKey string) (services.FoodClient, error) {
		return fdc.NewClient(
			fdc.WithBaseURL(c.FDCBaseURL),
			fdc.WithAPIKey(apiKey),
			fdc.WithHTTPClient(httpClient),
			fdc.WithLimiter(limiter),
			fdc.WithLogger(logger),
		)
	}
}

// Close releases the database handle.
func (app *App) Close() error {
	return app.db.Close()
}

func (app *App) Logger() logging.Logger { return app.logger }

// Migrate applies the schema migrations of the configured driver.
func (app *App) Migrate(ctx context.Context) error {
	app.logger.Info(ctx, "running migrations", "driver", app.config.DatabaseDriver)
	if err := app.repomanager.RunMigrations(ctx, app.db); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}
	return nil
}

// RunTask dispatches task, runs the queue until it and every task it
// dispatched have finished, and reports whether task itself failed.
func (app *App) RunTask(ctx context.Context, task string) error {
	h, err := app.queue.Dispatch(ctx, task, struct{}{})
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- app.queue.Run(runCtx) }()

	app.logger.Info(ctx, "task started", "task", task, "id", h.ID.String())
	waitErr := app.queue.Wait(ctx)
	app.queue.Close()
	if waitErr != nil {
		cancel()
	}
	if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if waitErr != nil {
		return waitErr
	}

	if app.queue.Status(h) != taskqueue.StatusSucceeded {
		return fmt.Errorf("task %s failed", task)
	}
	app.logger.Info(ctx, "task finished", "task", task)
	return nil
}

// FetchDetail runs the detail job for one item in the foreground.
func (app *App) FetchDetail(ctx context.Context, fdcID int64) (*models.FoodItem, error) {
	st, err := app.settings.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	app.ingest.FetchFoodDetail(ctx, fdcID, st)
	return app.foodItems().GetByFdcID(ctx, fdcID)
}

func (app *App) FoodItem(ctx context.Context, fdcID int64) (*models.FoodItem, error) {
	return app.foodItems().GetByFdcID(ctx, fdcID)
}

func (app *App) Stats(ctx context.Context) ([]models.DataTypeStats, error) {
	return app.foodItems().Stats(ctx)
}

func (app *App) Settings(ctx context.Context) (models.FDCSettings, error) {
	return app.settings.Snapshot(ctx)
}

func (app *App) UpdateSettings(ctx context.Context, values map[string]string) error {
	return app.settings.Update(ctx, values)
}

func (app *App) foodItems() fooditems.Repository {
	return app.repomanager.FoodItems(app.db)
}

// PushMetrics sends the default registry to the configured Pushgateway.
// It is a no-op when no gateway is configured.
func (app *App) PushMetrics(ctx context.Context, task string) error {
	if app.config.PushgatewayURL == "" {
		return nil
	}
	err := push.New(app.config.PushgatewayURL, PushJob).
		Gatherer(prometheus.DefaultGatherer).
		Grouping("task", task).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}

// SignalContext returns a context cancelled on SIGINT, SIGTERM or SIGQUIT.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
}
