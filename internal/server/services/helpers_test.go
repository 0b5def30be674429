package services

import (
	"context"
	"database/sql"
	"iter"
	"sync"
	"testing"

	"github.com/dmitrijs2005/fdcsync/internal/fdc"
	"github.com/dmitrijs2005/fdcsync/internal/server/models"
	"github.com/dmitrijs2005/fdcsync/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/fdcsync/internal/taskqueue"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func newSQLiteDB(t *testing.T) (*sql.DB, repomanager.RepositoryManager) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	m := repomanager.NewSQLiteRepositoryManager()
	require.NoError(t, m.RunMigrations(context.Background(), db))
	return db, m
}

type staticSettings struct {
	st  models.FDCSettings
	err error
}

func (s staticSettings) Snapshot(context.Context) (models.FDCSettings, error) {
	return s.st.Clone(), s.err
}

func testSettings(types ...fdc.DataType) models.FDCSettings {
	return models.FDCSettings{APIKey: "test-key", EnabledDataTypes: types, DetailExpiryDays: 30}
}

type fakeClient struct {
	mu sync.Mutex

	foods   map[fdc.DataType][]fdc.AbridgedFood
	listErr map[fdc.DataType]error

	details   map[int64]fdc.Detail
	detailErr map[int64]error
	gets      []int64
}

func (f *fakeClient) ListFoods(ctx context.Context, dt *fdc.DataType) iter.Seq2[fdc.AbridgedFood, error] {
	return func(yield func(fdc.AbridgedFood, error) bool) {
		for _, food := range f.foods[*dt] {
			if !yield(food, nil) {
				return
			}
		}
		if err := f.listErr[*dt]; err != nil {
			yield(fdc.AbridgedFood{}, err)
		}
	}
}

func (f *fakeClient) GetFood(ctx context.Context, fdcID int64) (fdc.Detail, error) {
	f.mu.Lock()
	f.gets = append(f.gets, fdcID)
	f.mu.Unlock()
	if err := f.detailErr[fdcID]; err != nil {
		return nil, err
	}
	if d, ok := f.details[fdcID]; ok {
		return d, nil
	}
	return nil, &fdc.StatusError{StatusCode: 404, Endpoint: "v1/food"}
}

func factoryFor(c FoodClient) ClientFactory {
	return func(string) (FoodClient, error) { return c, nil }
}

type dispatched struct {
	name string
	args any
}

type fakeDispatcher struct {
	mu    sync.Mutex
	calls []dispatched
	err   error
}

func (d *fakeDispatcher) Dispatch(ctx context.Context, name string, args any) (taskqueue.Handle, error) {
	if d.err != nil {
		return taskqueue.Handle{}, d.err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, dispatched{name: name, args: args})
	return taskqueue.Handle{ID: uuid.New(), Task: name}, nil
}

func (d *fakeDispatcher) fdcIDs() []int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	var ids []int64
	for _, c := range d.calls {
		ids = append(ids, c.args.(DetailArgs).FdcID)
	}
	return ids
}

func strPtr(s string) *string { return &s }
