package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/fdcsync/internal/common"
	"github.com/dmitrijs2005/fdcsync/internal/dbx"
	"github.com/dmitrijs2005/fdcsync/internal/fdc"
	"github.com/dmitrijs2005/fdcsync/internal/logging"
	"github.com/dmitrijs2005/fdcsync/internal/server/models"
	"github.com/dmitrijs2005/fdcsync/internal/server/repositories/fooditems"
	"github.com/dmitrijs2005/fdcsync/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/fdcsync/internal/taskqueue"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

func newIngest(t *testing.T, st models.FDCSettings, c FoodClient, d Dispatcher, opts ...IngestOption) (*IngestService, repomanager.RepositoryManager) {
	t.Helper()
	db, m := newSQLiteDB(t)
	opts = append([]IngestOption{WithClock(func() time.Time { return fixedNow })}, opts...)
	svc := NewIngestService(db, m, staticSettings{st: st}, factoryFor(c), d, logging.NewNopLogger(), opts...)
	return svc, m
}

func (s *IngestService) repo() fooditems.Repository {
	return s.repomanager.FoodItems(s.db)
}

func setErrorCount(t *testing.T, s *IngestService, fdcID int64, n int) {
	t.Helper()
	_, err := s.db.Exec(`UPDATE food_items SET error_count = ? WHERE fdc_id = ?`, n, fdcID)
	require.NoError(t, err)
}

func TestFetchFoodItems_UpsertsEveryEnabledType(t *testing.T) {
	c := &fakeClient{foods: map[fdc.DataType][]fdc.AbridgedFood{
		fdc.DataTypeFoundation: {
			{FdcID: 1, DataType: "Foundation", Description: "Apple"},
			{FdcID: 2, DataType: "Foundation", Description: "Pear"},
		},
		fdc.DataTypeBranded: {
			{FdcID: 3, DataType: "Branded", Description: "COLA", BrandOwner: strPtr("FIZZ")},
		},
		fdc.DataTypeSRLegacy: {
			{FdcID: 4, DataType: "SR Legacy", Description: "not enabled"},
		},
	}}
	svc, _ := newIngest(t, testSettings(fdc.DataTypeFoundation, fdc.DataTypeBranded), c, &fakeDispatcher{})
	ctx := context.Background()

	require.NoError(t, svc.FetchFoodItems(ctx))
	require.NoError(t, svc.FetchFoodItems(ctx))

	stats, err := svc.repo().Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.DataTypeStats{
		{DataType: "Branded", Total: 1, Missing: 1},
		{DataType: "Foundation", Total: 2, Missing: 2},
	}, stats)

	item, err := svc.repo().GetByFdcID(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "FIZZ", *item.BrandName)

	_, err = svc.repo().GetByFdcID(ctx, 4)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestFetchFoodItems_ErrorAbortsOnlyThatType(t *testing.T) {
	c := &fakeClient{
		foods: map[fdc.DataType][]fdc.AbridgedFood{
			fdc.DataTypeFoundation: {{FdcID: 1, DataType: "Foundation", Description: "Apple"}},
			fdc.DataTypeBranded:    {{FdcID: 3, DataType: "Branded", Description: "COLA"}},
		},
		listErr: map[fdc.DataType]error{
			fdc.DataTypeFoundation: fdc.ErrUnexpectedShape,
		},
	}
	svc, _ := newIngest(t, testSettings(fdc.DataTypeFoundation, fdc.DataTypeBranded), c, &fakeDispatcher{})
	ctx := context.Background()

	err := svc.FetchFoodItems(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, fdc.ErrUnexpectedShape)
	assert.Contains(t, err.Error(), "sync Foundation")

	// partial progress of the failed type and the other type are kept
	_, err = svc.repo().GetByFdcID(ctx, 1)
	require.NoError(t, err)
	_, err = svc.repo().GetByFdcID(ctx, 3)
	require.NoError(t, err)
}

func TestFetchFoodItems_SettingsAndClientErrors(t *testing.T) {
	db, m := newSQLiteDB(t)
	boom := errors.New("boom")

	svc := NewIngestService(db, m, staticSettings{err: boom}, factoryFor(&fakeClient{}), &fakeDispatcher{}, logging.NewNopLogger())
	assert.ErrorIs(t, svc.FetchFoodItems(context.Background()), boom)

	svc = NewIngestService(db, m, staticSettings{st: testSettings(fdc.DataTypeFoundation)},
		func(string) (FoodClient, error) { return nil, boom }, &fakeDispatcher{}, logging.NewNopLogger())
	assert.ErrorIs(t, svc.FetchFoodItems(context.Background()), boom)
}

func TestFetchFoodDetail_Success(t *testing.T) {
	brand := strPtr("ACME")
	c := &fakeClient{details: map[int64]fdc.Detail{
		7: &fdc.BrandedFood{FdcID: 7, DataType: "Branded", Description: "PEANUT BUTTER", BrandOwner: brand, TradeChannel: []string{}},
	}}
	arch := &fakeArchiver{}
	svc, _ := newIngest(t, testSettings(), c, &fakeDispatcher{}, WithArchiver(arch))
	ctx := context.Background()

	require.NoError(t, svc.repo().UpsertSummary(ctx, models.FoodSummary{FdcID: 7, DataType: "Branded", Description: "PB"}))
	setErrorCount(t, svc, 7, 2)

	svc.FetchFoodDetail(ctx, 7, testSettings())

	item, err := svc.repo().GetByFdcID(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, models.DetailFetched, item.State())
	assert.Equal(t, 2, item.ErrorCount)
	assert.Equal(t, "PB", item.Description)
	require.NotNil(t, item.DetailFetchDate)
	assert.True(t, fixedNow.Equal(*item.DetailFetchDate))
	assert.JSONEq(t, `{"fdcId":7,"brandOwner":"ACME","dataType":"Branded","description":"PEANUT BUTTER","tradeChannel":[]}`, string(item.Detail))

	require.Len(t, arch.keys, 1)
	assert.Equal(t, "fdc/branded/7.json", arch.keys[0])
	assert.Equal(t, string(item.Detail), string(arch.bodies[0]))
}

func TestFetchFoodDetail_CreatesMissingItem(t *testing.T) {
	c := &fakeClient{details: map[int64]fdc.Detail{
		8: &fdc.SRLegacyFood{FdcID: 8, DataType: "SR Legacy", Description: "Egg"},
	}}
	svc, _ := newIngest(t, testSettings(), c, &fakeDispatcher{})
	ctx := context.Background()

	svc.FetchFoodDetail(ctx, 8, testSettings())

	item, err := svc.repo().GetByFdcID(ctx, 8)
	require.NoError(t, err)
	assert.Equal(t, "SR Legacy", item.DataType)
	assert.Equal(t, "Egg", item.Description)
	assert.NotNil(t, item.Detail)
}

func TestFetchFoodDetail_FailureIncrementsOnlyCounter(t *testing.T) {
	c := &fakeClient{
		details: map[int64]fdc.Detail{
			5: &fdc.FoundationFood{FdcID: 5, DataType: "Foundation", Description: "Milk"},
		},
	}
	svc, _ := newIngest(t, testSettings(), c, &fakeDispatcher{})
	ctx := context.Background()

	require.NoError(t, svc.repo().UpsertSummary(ctx, models.FoodSummary{FdcID: 5, DataType: "Foundation", Description: "Milk"}))
	svc.FetchFoodDetail(ctx, 5, testSettings())
	before, err := svc.repo().GetByFdcID(ctx, 5)
	require.NoError(t, err)

	c.detailErr = map[int64]error{5: &fdc.StatusError{StatusCode: 500, Endpoint: "v1/food"}}
	svc.FetchFoodDetail(ctx, 5, testSettings())

	after, err := svc.repo().GetByFdcID(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, before.ErrorCount+1, after.ErrorCount)
	assert.Equal(t, before.Detail, after.Detail)
	assert.Equal(t, before.DetailFetchDate, after.DetailFetchDate)
}

func TestFetchFoodDetail_FailureOnMissingItemIsSwallowed(t *testing.T) {
	svc, _ := newIngest(t, testSettings(), &fakeClient{}, &fakeDispatcher{})
	ctx := context.Background()

	before := testutil.ToFloat64(detailFetchesTotal.WithLabelValues("failure"))
	svc.FetchFoodDetail(ctx, 999, testSettings())
	assert.Equal(t, before+1, testutil.ToFloat64(detailFetchesTotal.WithLabelValues("failure")))

	_, err := svc.repo().GetByFdcID(ctx, 999)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

type brokenFoodRepo struct {
	fooditems.Repository
	failureCalls int
}

func (r *brokenFoodRepo) RecordDetailSuccess(context.Context, int64, models.DetailDocument, time.Time) error {
	return errors.New("write failed")
}

func (r *brokenFoodRepo) RecordDetailFailure(context.Context, int64) (models.FailureOutcome, error) {
	r.failureCalls++
	return 0, errors.New("write failed again")
}

type brokenRM struct {
	repomanager.RepositoryManager
	repo *brokenFoodRepo
}

func (m brokenRM) FoodItems(dbx.DBTX) fooditems.Repository { return m.repo }

func TestFetchFoodDetail_StoreErrorsAreNotRaised(t *testing.T) {
	db, m := newSQLiteDB(t)
	repo := &brokenFoodRepo{}
	c := &fakeClient{details: map[int64]fdc.Detail{
		1: &fdc.FoundationFood{FdcID: 1, DataType: "Foundation", Description: "x"},
	}}
	arch := &fakeArchiver{}
	svc := NewIngestService(db, brokenRM{RepositoryManager: m, repo: repo}, staticSettings{st: testSettings()},
		factoryFor(c), &fakeDispatcher{}, logging.NewNopLogger(), WithArchiver(arch))

	svc.FetchFoodDetail(context.Background(), 1, testSettings())
	assert.Equal(t, 1, repo.failureCalls)
	assert.Empty(t, arch.keys)
}

func TestFetchFoodDetail_ArchiveErrorIsWarningOnly(t *testing.T) {
	c := &fakeClient{details: map[int64]fdc.Detail{
		1: &fdc.SurveyFood{FdcID: 1, DataType: strPtr("Survey (FNDDS)"), Description: "Soup"},
	}}
	svc, _ := newIngest(t, testSettings(), c, &fakeDispatcher{}, WithArchiver(&fakeArchiver{err: errors.New("denied")}))
	ctx := context.Background()

	svc.FetchFoodDetail(ctx, 1, testSettings())

	item, err := svc.repo().GetByFdcID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, item.ErrorCount)
	assert.Equal(t, models.DetailFetched, item.State())
}

// The detail job against a real client: every discriminator lands in the
// store, an unknown one does not.
func TestFetchFoodDetail_RoutesByDiscriminator(t *testing.T) {
	docs := map[string]string{
		"/v1/food/1": `{"fdcId":1,"dataType":"Foundation","description":"Apple"}`,
		"/v1/food/2": `{"fdcId":2,"dataType":"SR Legacy","description":"Egg"}`,
		"/v1/food/3": `{"fdcId":3,"dataType":"Survey (FNDDS)","description":"Soup"}`,
		"/v1/food/4": `{"fdcId":4,"dataType":"Branded","description":"COLA","brandOwner":"FIZZ"}`,
		"/v1/food/5": `{"fdcId":5,"dataType":"Experimental","description":"?"}`,
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("api_key") != "test-key" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		body, ok := docs[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	db, m := newSQLiteDB(t)
	factory := func(key string) (FoodClient, error) {
		return fdc.NewClient(fdc.WithBaseURL(srv.URL), fdc.WithAPIKey(key), fdc.WithRateLimit(0, 0))
	}
	svc := NewIngestService(db, m, staticSettings{st: testSettings()}, factory, &fakeDispatcher{}, logging.NewNopLogger())
	ctx := context.Background()

	for id := int64(1); id <= 5; id++ {
		require.NoError(t, svc.repo().UpsertSummary(ctx, models.FoodSummary{FdcID: id, DataType: "Foundation", Description: "seed"}))
		svc.FetchFoodDetail(ctx, id, testSettings())
	}

	wantType := map[int64]string{1: "Foundation", 2: "SR Legacy", 3: "Survey (FNDDS)", 4: "Branded"}
	for id, dt := range wantType {
		item, err := svc.repo().GetByFdcID(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, item.Detail, "fdc_id %d", id)
		var probe struct {
			DataType string `json:"dataType"`
		}
		require.NoError(t, json.Unmarshal(item.Detail, &probe))
		assert.Equal(t, dt, probe.DataType)
	}

	unknown, err := svc.repo().GetByFdcID(ctx, 5)
	require.NoError(t, err)
	assert.Nil(t, unknown.Detail)
	assert.Nil(t, unknown.DetailFetchDate)
	assert.Equal(t, 1, unknown.ErrorCount)
}

func TestFetchMissingFoodDetails_RespectsErrorCeiling(t *testing.T) {
	d := &fakeDispatcher{}
	st := testSettings(fdc.DataTypeFoundation)
	svc, _ := newIngest(t, st, &fakeClient{}, d)
	ctx := context.Background()

	for _, id := range []int64{1, 2, 3} {
		require.NoError(t, svc.repo().UpsertSummary(ctx, models.FoodSummary{FdcID: id, DataType: "Foundation", Description: "x"}))
	}
	setErrorCount(t, svc, 2, models.MaxDetailErrors+1)
	setErrorCount(t, svc, 3, models.MaxDetailErrors)

	n, err := svc.FetchMissingFoodDetails(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []int64{1, 3}, d.fdcIDs())
	for _, c := range d.calls {
		assert.Equal(t, TaskFetchFoodDetail, c.name)
		assert.Equal(t, st, c.args.(DetailArgs).Settings)
	}
}

func TestFetchMissingFoodDetails_BatchLimit(t *testing.T) {
	d := &fakeDispatcher{}
	svc, _ := newIngest(t, testSettings(), &fakeClient{}, d, WithBatchLimit(2))
	ctx := context.Background()
	for _, id := range []int64{5, 4, 3} {
		require.NoError(t, svc.repo().UpsertSummary(ctx, models.FoodSummary{FdcID: id, DataType: "Foundation", Description: "x"}))
	}

	n, err := svc.FetchMissingFoodDetails(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []int64{3, 4}, d.fdcIDs())
}

func TestFetchMissingFoodDetails_DispatchError(t *testing.T) {
	svc, _ := newIngest(t, testSettings(), &fakeClient{}, &fakeDispatcher{err: taskqueue.ErrQueueClosed})
	ctx := context.Background()
	require.NoError(t, svc.repo().UpsertSummary(ctx, models.FoodSummary{FdcID: 1, DataType: "Foundation", Description: "x"}))

	n, err := svc.FetchMissingFoodDetails(ctx)
	assert.ErrorIs(t, err, taskqueue.ErrQueueClosed)
	assert.Equal(t, 0, n)
}

func TestFetchOutdatedFoodDetails_UsesSnapshotExpiry(t *testing.T) {
	d := &fakeDispatcher{}
	st := testSettings()
	st.DetailExpiryDays = 10
	svc, _ := newIngest(t, st, &fakeClient{}, d)
	ctx := context.Background()
	repo := svc.repo()

	// the repository clock is real time, so offsets are relative to now
	now := time.Now()
	day := 24 * time.Hour
	body := models.DetailDocument{DataType: "Foundation", Description: "x", Body: json.RawMessage(`{}`)}
	require.NoError(t, repo.RecordDetailSuccess(ctx, 1, body, now.Add(-11*day)))
	require.NoError(t, repo.RecordDetailSuccess(ctx, 2, body, now.Add(-9*day)))
	require.NoError(t, repo.RecordDetailSuccess(ctx, 3, body, now.Add(-40*day)))

	n, err := svc.FetchOutdatedFoodDetails(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []int64{3, 1}, d.fdcIDs())
}

func TestRegisterTasks_EndToEndThroughQueue(t *testing.T) {
	c := &fakeClient{
		foods: map[fdc.DataType][]fdc.AbridgedFood{
			fdc.DataTypeFoundation: {
				{FdcID: 1, DataType: "Foundation", Description: "Apple"},
				{FdcID: 2, DataType: "Foundation", Description: "Pear"},
			},
		},
		details: map[int64]fdc.Detail{
			1: &fdc.FoundationFood{FdcID: 1, DataType: "Foundation", Description: "Apple"},
		},
	}
	q := taskqueue.New(2, logging.NewNopLogger())
	svc, _ := newIngest(t, testSettings(fdc.DataTypeFoundation), c, q)
	svc.RegisterTasks(q)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- q.Run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	wait := func() {
		wctx, wcancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer wcancel()
		require.NoError(t, q.Wait(wctx))
	}

	_, err := q.Dispatch(ctx, TaskFetchFoodItems, struct{}{})
	require.NoError(t, err)
	wait()

	h, err := q.Dispatch(ctx, TaskFetchMissingFoodDetails, struct{}{})
	require.NoError(t, err)
	wait()
	assert.Equal(t, taskqueue.StatusSucceeded, q.Status(h))

	apple, err := svc.repo().GetByFdcID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, models.DetailFetched, apple.State())

	pear, err := svc.repo().GetByFdcID(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, models.DetailFailed, pear.State())

	// a bare fdc_id falls back to the current settings
	_, err = q.Dispatch(ctx, TaskFetchFoodDetail, map[string]int64{"fdc_id": 2})
	require.NoError(t, err)
	wait()
	pear, err = svc.repo().GetByFdcID(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, pear.ErrorCount)

	bad, err := q.Dispatch(ctx, TaskFetchFoodDetail, "not an object")
	require.NoError(t, err)
	wait()
	assert.Equal(t, taskqueue.StatusFailed, q.Status(bad))
}

type fakeArchiver struct {
	keys   []string
	bodies [][]byte
	err    error
}

func (a *fakeArchiver) Put(ctx context.Context, key string, body []byte) error {
	if a.err != nil {
		return a.err
	}
	if !strings.HasPrefix(string(body), "{") {
		return errors.New("not a document")
	}
	a.keys = append(a.keys, key)
	a.bodies = append(a.bodies, body)
	return nil
}
