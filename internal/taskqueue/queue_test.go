package taskqueue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/fdcsync/internal/logging"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startQueue(t *testing.T, workers int, register func(q *Queue)) *Queue {
	t.Helper()
	q := New(workers, logging.NewNopLogger())
	register(q)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- q.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return q
}

func waitIdle(t *testing.T, q *Queue) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, q.Wait(ctx))
}

func TestDispatch_RunsHandlerWithArgs(t *testing.T) {
	var mu sync.Mutex
	var got []int64
	q := startQueue(t, 4, func(q *Queue) {
		q.Register("collect", func(ctx context.Context, args json.RawMessage) error {
			var a struct {
				FdcID int64 `json:"fdc_id"`
			}
			if err := json.Unmarshal(args, &a); err != nil {
				return err
			}
			mu.Lock()
			got = append(got, a.FdcID)
			mu.Unlock()
			return nil
		})
	})

	var handles []Handle
	for i := int64(1); i <= 50; i++ {
		h, err := q.Dispatch(context.Background(), "collect", map[string]int64{"fdc_id": i})
		require.NoError(t, err)
		assert.Equal(t, "collect", h.Task)
		handles = append(handles, h)
	}
	waitIdle(t, q)

	assert.Len(t, got, 50)
	for _, h := range handles {
		assert.Equal(t, StatusSucceeded, q.Status(h))
	}
	assert.Equal(t, float64(50), testutil.ToFloat64(tasksTotal.WithLabelValues("collect", "succeeded")))
}

func TestDispatch_UnknownTask(t *testing.T) {
	q := New(1, logging.NewNopLogger())
	_, err := q.Dispatch(context.Background(), "nope", nil)
	assert.ErrorIs(t, err, ErrUnknownTask)
}

func TestDispatch_Closed(t *testing.T) {
	q := New(1, logging.NewNopLogger())
	q.Register("x", func(context.Context, json.RawMessage) error { return nil })
	q.Close()
	q.Close()
	_, err := q.Dispatch(context.Background(), "x", nil)
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestDispatch_EncodeError(t *testing.T) {
	q := New(1, logging.NewNopLogger())
	q.Register("x", func(context.Context, json.RawMessage) error { return nil })
	_, err := q.Dispatch(context.Background(), "x", make(chan int))
	assert.ErrorContains(t, err, "encode x args")
}

func TestDispatch_DoesNotBlockWithoutWorkers(t *testing.T) {
	q := New(1, logging.NewNopLogger())
	q.Register("x", func(context.Context, json.RawMessage) error { return nil })

	h, err := q.Dispatch(context.Background(), "x", 1)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, q.Status(h))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Wait(ctx), context.DeadlineExceeded)
}

func TestHandlerErrorAndPanicDoNotStopQueue(t *testing.T) {
	var ran atomic.Int32
	q := startQueue(t, 1, func(q *Queue) {
		q.Register("fails", func(context.Context, json.RawMessage) error { return errors.New("boom") })
		q.Register("panics", func(context.Context, json.RawMessage) error { panic("kaboom") })
		q.Register("ok", func(context.Context, json.RawMessage) error {
			ran.Add(1)
			return nil
		})
	})

	hf, err := q.Dispatch(context.Background(), "fails", nil)
	require.NoError(t, err)
	hp, err := q.Dispatch(context.Background(), "panics", nil)
	require.NoError(t, err)
	ho, err := q.Dispatch(context.Background(), "ok", nil)
	require.NoError(t, err)
	waitIdle(t, q)

	assert.Equal(t, StatusFailed, q.Status(hf))
	assert.Equal(t, StatusFailed, q.Status(hp))
	assert.Equal(t, StatusSucceeded, q.Status(ho))
	assert.Equal(t, int32(1), ran.Load())
	assert.Equal(t, float64(1), testutil.ToFloat64(tasksTotal.WithLabelValues("panics", "failed")))
}

func TestWait_IncludesNestedDispatch(t *testing.T) {
	var children atomic.Int32
	var q *Queue
	q = startQueue(t, 2, func(qq *Queue) {
		qq.Register("child", func(context.Context, json.RawMessage) error {
			time.Sleep(5 * time.Millisecond)
			children.Add(1)
			return nil
		})
		qq.Register("parent", func(ctx context.Context, _ json.RawMessage) error {
			for i := 0; i < 10; i++ {
				if _, err := qq.Dispatch(ctx, "child", i); err != nil {
					return err
				}
			}
			return nil
		})
	})

	_, err := q.Dispatch(context.Background(), "parent", nil)
	require.NoError(t, err)
	waitIdle(t, q)
	assert.Equal(t, int32(10), children.Load())
}

func TestRun_ReturnsAfterCloseAndDrain(t *testing.T) {
	q := New(2, logging.NewNopLogger())
	var ran atomic.Int32
	q.Register("x", func(context.Context, json.RawMessage) error {
		ran.Add(1)
		return nil
	})
	for i := 0; i < 5; i++ {
		_, err := q.Dispatch(context.Background(), "x", i)
		require.NoError(t, err)
	}
	q.Close()

	done := make(chan error, 1)
	go func() { done <- q.Run(context.Background()) }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Close")
	}
	assert.Equal(t, int32(5), ran.Load())
}

func TestStatus_UnknownHandle(t *testing.T) {
	q := New(1, logging.NewNopLogger())
	assert.Equal(t, StatusUnknown, q.Status(Handle{}))
}
