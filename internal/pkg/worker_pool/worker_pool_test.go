package worker_pool

import (
	"context"
	"errors"
	"fmt"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(wp *WorkerPool) map[string]TaskResult {
	results := map[string]TaskResult{}
	for res := range wp.ResultsCh {
		results[res.ID] = res
	}
	return results
}

func TestWorkerPool_RunsAllTasks(t *testing.T) {
	wp := NewWorkerPool(context.Background(), 3, 10, log.New())

	for i := 0; i < 10; i++ {
		n := i
		require.NoError(t, wp.Submit(fmt.Sprintf("task-%d", n), func(ctx context.Context) (any, error) {
			return n * n, nil
		}))
	}
	wp.Stop()

	results := collect(wp)
	require.Len(t, results, 10)
	for i := 0; i < 10; i++ {
		res := results[fmt.Sprintf("task-%d", i)]
		assert.NoError(t, res.Err)
		assert.Equal(t, i*i, res.Result)
	}
}

func TestWorkerPool_ReportsErrorsAndPanics(t *testing.T) {
	wp := NewWorkerPool(context.Background(), 2, 2, log.New())
	boom := errors.New("boom")

	require.NoError(t, wp.Submit("fails", func(ctx context.Context) (any, error) {
		return nil, boom
	}))
	require.NoError(t, wp.Submit("panics", func(ctx context.Context) (any, error) {
		panic("unexpected")
	}))
	wp.Stop()

	results := collect(wp)
	assert.ErrorIs(t, results["fails"].Err, boom)
	assert.Error(t, results["panics"].Err)
}

func TestWorkerPool_SubmitAfterStop(t *testing.T) {
	wp := NewWorkerPool(context.Background(), 1, 1, log.New())
	wp.Stop()
	wp.Stop()

	err := wp.Submit("late", func(ctx context.Context) (any, error) { return nil, nil })
	assert.ErrorIs(t, err, ErrPoolStopped)
	assert.Empty(t, collect(wp))
}

func TestWorkerPool_CancelledTasksReportContextError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	wp := NewWorkerPool(ctx, 1, 1, log.New())

	err := wp.Submit("never", func(ctx context.Context) (any, error) { return "ran", nil })
	if err == nil {
		wp.Stop()
		for res := range wp.ResultsCh {
			assert.ErrorIs(t, res.Err, context.Canceled)
		}
		return
	}
	assert.ErrorIs(t, err, context.Canceled)
	wp.Stop()
}
