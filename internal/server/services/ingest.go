package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/dmitrijs2005/fdcsync/internal/archive"
	"github.com/dmitrijs2005/fdcsync/internal/fdc"
	"github.com/dmitrijs2005/fdcsync/internal/logging"
	"github.com/dmitrijs2005/fdcsync/internal/server/models"
	"github.com/dmitrijs2005/fdcsync/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/fdcsync/internal/taskqueue"
)

// Task names as registered on the queue.
const (
	TaskFetchFoodItems           = "fetch_food_items"
	TaskFetchFoodDetail          = "fetch_food_detail"
	TaskFetchMissingFoodDetails  = "fetch_missing_food_details"
	TaskFetchOutdatedFoodDetails = "fetch_outdated_food_details"
)

// DefaultBatchLimit caps the items selected by one backfill or refresh run.
const DefaultBatchLimit = 1000

// FoodClient is the part of *fdc.Client used by the jobs.
type FoodClient interface {
	ListFoods(ctx context.Context, dataType *fdc.DataType) iter.Seq2[fdc.AbridgedFood, error]
	GetFood(ctx context.Context, fdcID int64) (fdc.Detail, error)
}

// ClientFactory returns a client authenticated with apiKey.
type ClientFactory func(apiKey string) (FoodClient, error)

// SettingsSource yields the settings snapshot of a job run.
type SettingsSource interface {
	Snapshot(ctx context.Context) (models.FDCSettings, error)
}

// Dispatcher enqueues a task without waiting for it.
type Dispatcher interface {
	Dispatch(ctx context.Context, name string, args any) (taskqueue.Handle, error)
}

// Registrar binds task names to handlers.
type Registrar interface {
	Register(name string, h taskqueue.HandlerFunc)
}

// DetailArgs are the arguments of a fetch_food_detail task. Settings is the
// snapshot of the run that dispatched it.
type DetailArgs struct {
	FdcID    int64              `json:"fdc_id"`
	Settings models.FDCSettings `json:"settings"`
}

// IngestService implements the sync jobs.
type IngestService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	settings    SettingsSource
	clients     ClientFactory
	dispatcher  Dispatcher
	archiver    archive.Archiver
	logger      logging.Logger
	batchLimit  int
	now         func() time.Time
}

// IngestOption configures an IngestService.
type IngestOption func(*IngestService)

// WithArchiver copies every fetched detail document to a.
func WithArchiver(a archive.Archiver) IngestOption {
	return func(s *IngestService) { s.archiver = a }
}

// WithBatchLimit overrides DefaultBatchLimit.
func WithBatchLimit(n int) IngestOption {
	return func(s *IngestService) {
		if n > 0 {
			s.batchLimit = n
		}
	}
}

// WithClock sets the clock used for detail fetch timestamps.
func WithClock(now func() time.Time) IngestOption {
	return func(s *IngestService) { s.now = now }
}

func NewIngestService(db *sql.DB, m repomanager.RepositoryManager, settings SettingsSource,
	clients ClientFactory, dispatcher Dispatcher, logger logging.Logger, opts ...IngestOption) *IngestService {
	s := &IngestService{
		db:          db,
		repomanager: m,
		settings:    settings,
		clients:     clients,
		dispatcher:  dispatcher,
		archiver:    archive.Nop{},
		logger:      logger.With("module", "ingest"),
		batchLimit:  DefaultBatchLimit,
		now:         time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// RegisterTasks binds the four jobs to their task names.
func (s *IngestService) RegisterTasks(r Registrar) {
	r.Register(TaskFetchFoodItems, func(ctx context.Context, _ json.RawMessage) error {
		return s.FetchFoodItems(ctx)
	})
	r.Register(TaskFetchFoodDetail, func(ctx context.Context, raw json.RawMessage) error {
		var args DetailArgs
		if err := json.Unmarshal(raw, &args); err != nil {
			return fmt.Errorf("decode %s args: %w", TaskFetchFoodDetail, err)
		}
		if args.Settings.APIKey == "" {
			st, err := s.settings.Snapshot(ctx)
			if err != nil {
				return err
			}
			args.Settings = st
		}
		s.FetchFoodDetail(ctx, args.FdcID, args.Settings)
		return nil
	})
	r.Register(TaskFetchMissingFoodDetails, func(ctx context.Context, _ json.RawMessage) error {
		_, err := s.FetchMissingFoodDetails(ctx)
		return err
	})
	r.Register(TaskFetchOutdatedFoodDetails, func(ctx context.Context, _ json.RawMessage) error {
		_, err := s.FetchOutdatedFoodDetails(ctx)
		return err
	})
}

// FetchFoodItems upserts the summary of every food of every enabled data
// type. A failure stops only the affected data type; the others still run
// and all failures are returned joined.
func (s *IngestService) FetchFoodItems(ctx context.Context) error {
	st, err := s.settings.Snapshot(ctx)
	if err != nil {
		return err
	}
	client, err := s.clients(st.APIKey)
	if err != nil {
		return fmt.Errorf("create fdc client: %w", err)
	}

	var errs []error
	for _, dt := range st.EnabledDataTypes {
		s.logger.Info(ctx, "fetching food items", "data_type", dt.String())
		n, err := s.syncDataType(ctx, client, dt)
		if err != nil {
			s.logger.Error(ctx, "food item sync aborted", "data_type", dt.String(), "upserted", n, "error", err)
			errs = append(errs, fmt.Errorf("sync %s: %w", dt, err))
			continue
		}
		s.logger.Info(ctx, "food items synced", "data_type", dt.String(), "upserted", n)
	}
	return errors.Join(errs...)
}

func (s *IngestService) syncDataType(ctx context.Context, client FoodClient, dt fdc.DataType) (int, error) {
	repo := s.repomanager.FoodItems(s.db)
	counter := foodsUpsertedTotal.WithLabelValues(dt.Slug())

	n := 0
	for food, err := range client.ListFoods(ctx, &dt) {
		if err != nil {
			return n, err
		}
		s.logger.Debug(ctx, "processing food item", "fdc_id", food.FdcID)
		summary := models.FoodSummary{
			FdcID:       food.FdcID,
			DataType:    food.DataType,
			Description: food.Description,
			BrandName:   food.BrandOwner,
		}
		if err := repo.UpsertSummary(ctx, summary); err != nil {
			return n, fmt.Errorf("upsert %d: %w", food.FdcID, err)
		}
		counter.Inc()
		n++
	}
	return n, nil
}

// FetchFoodDetail fetches and stores the detail of one food. Any failure is
// recorded on the item's error counter and logged; nothing is returned.
func (s *IngestService) FetchFoodDetail(ctx context.Context, fdcID int64, st models.FDCSettings) {
	log := s.logger.With("fdc_id", fdcID)
	log.Info(ctx, "fetching food detail")

	doc, err := s.fetchDetail(ctx, fdcID, st)
	if err == nil {
		err = s.repomanager.FoodItems(s.db).RecordDetailSuccess(ctx, fdcID, doc, s.now())
	}
	if err != nil {
		log.Error(ctx, "error fetching food detail", "error", err)
		detailFetchesTotal.WithLabelValues("failure").Inc()
		s.recordFailure(ctx, log, fdcID)
		return
	}
	detailFetchesTotal.WithLabelValues("success").Inc()

	key := archive.DetailKey(fdc.DataType(doc.DataType), fdcID)
	if err := s.archiver.Put(ctx, key, doc.Body); err != nil {
		log.Warn(ctx, "detail archive failed", "key", key, "error", err)
	}
}

func (s *IngestService) fetchDetail(ctx context.Context, fdcID int64, st models.FDCSettings) (models.DetailDocument, error) {
	client, err := s.clients(st.APIKey)
	if err != nil {
		return models.DetailDocument{}, fmt.Errorf("create fdc client: %w", err)
	}
	detail, err := client.GetFood(ctx, fdcID)
	if err != nil {
		return models.DetailDocument{}, err
	}
	body, err := json.Marshal(detail)
	if err != nil {
		return models.DetailDocument{}, fmt.Errorf("encode detail: %w", err)
	}
	h := detail.Header()
	return models.DetailDocument{
		DataType:    h.DataType.String(),
		Description: h.Description,
		BrandName:   h.BrandOwner,
		Body:        body,
	}, nil
}

func (s *IngestService) recordFailure(ctx context.Context, log logging.Logger, fdcID int64) {
	outcome, err := s.repomanager.FoodItems(s.db).RecordDetailFailure(ctx, fdcID)
	switch {
	case err != nil:
		log.Error(ctx, "failed to record detail failure", "error", err)
	case outcome == models.FailureNotFound:
		log.Error(ctx, "no food item to record detail failure on")
	}
}

// FetchMissingFoodDetails dispatches a detail job for every item without
// detail that is within its failure budget, up to the batch limit.
func (s *IngestService) FetchMissingFoodDetails(ctx context.Context) (int, error) {
	st, err := s.settings.Snapshot(ctx)
	if err != nil {
		return 0, err
	}
	items, err := s.repomanager.FoodItems(s.db).FindMissingDetail(ctx, s.batchLimit)
	if err != nil {
		return 0, err
	}
	return s.dispatchDetails(ctx, TaskFetchMissingFoodDetails, items, st)
}

// FetchOutdatedFoodDetails dispatches a detail job for every item whose
// detail is older than the configured expiry, up to the batch limit.
func (s *IngestService) FetchOutdatedFoodDetails(ctx context.Context) (int, error) {
	st, err := s.settings.Snapshot(ctx)
	if err != nil {
		return 0, err
	}
	items, err := s.repomanager.FoodItems(s.db).FindStaleDetail(ctx, st.DetailExpiryDays, s.batchLimit)
	if err != nil {
		return 0, err
	}
	return s.dispatchDetails(ctx, TaskFetchOutdatedFoodDetails, items, st)
}

func (s *IngestService) dispatchDetails(ctx context.Context, job string, items []*models.FoodItem, st models.FDCSettings) (int, error) {
	counter := detailDispatchedTotal.WithLabelValues(job)
	for i, item := range items {
		s.logger.Debug(ctx, "dispatching food detail", "job", job, "fdc_id", item.FdcID)
		if _, err := s.dispatcher.Dispatch(ctx, TaskFetchFoodDetail, DetailArgs{FdcID: item.FdcID, Settings: st}); err != nil {
			return i, fmt.Errorf("dispatch detail %d: %w", item.FdcID, err)
		}
		counter.Inc()
	}
	s.logger.Info(ctx, "food details dispatched", "job", job, "count", len(items))
	return len(items), nil
}
