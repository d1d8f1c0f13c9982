package worker_pool

import (
	"context"
	"errors"
	"sync"

	log "github.com/sirupsen/logrus"
)

var ErrPoolStopped = errors.New("worker pool is stopped; cannot accept new tasks")

type TaskFunc func(ctx context.Context) (any, error)

// TaskResult holds the outcome of a finished task (its ID, result value, or error).
type TaskResult struct {
	ID     string
	Result any
	Err    error
}

type workItem struct {
	id string
	fn TaskFunc
}

// WorkerPool runs submitted tasks on a fixed number of workers and delivers
// every outcome on ResultsCh. ResultsCh is closed once the pool is stopped and
// all in-flight tasks have reported.
type WorkerPool struct {
	tasksCh    chan workItem
	ResultsCh  chan TaskResult
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	stopOnce   sync.Once
	mu         sync.RWMutex
	stopped    bool
	log        *log.Logger
}

// NewWorkerPool starts numWorkers workers. queueSize bounds both the pending
// task queue and the result buffer, so a caller can submit up to queueSize
// tasks before it starts draining ResultsCh.
func NewWorkerPool(parentCtx context.Context, numWorkers, queueSize int, logger *log.Logger) *WorkerPool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	ctx, cancel := context.WithCancel(parentCtx)
	wp := &WorkerPool{
		tasksCh:    make(chan workItem, queueSize),
		ResultsCh:  make(chan TaskResult, queueSize),
		ctx:        ctx,
		cancelFunc: cancel,
		log:        logger,
	}
	wp.wg.Add(numWorkers)
	for i := 1; i <= numWorkers; i++ {
		go wp.worker(i)
	}
	logger.Debugf("worker pool started with %d workers", numWorkers)
	return wp
}

// Submit queues a task. It blocks while the queue is full and fails once the
// pool is stopped or its context is cancelled.
func (wp *WorkerPool) Submit(id string, taskFn TaskFunc) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	if wp.stopped {
		wp.log.Warnf("submit rejected for task %s: pool is stopped", id)
		return ErrPoolStopped
	}

	select {
	case wp.tasksCh <- workItem{id: id, fn: taskFn}:
		return nil
	case <-wp.ctx.Done():
		wp.log.Warnf("submit failed for task %s: pool was canceled", id)
		return wp.ctx.Err()
	}
}

func (wp *WorkerPool) worker(workerID int) {
	defer wp.wg.Done()
	for task := range wp.tasksCh {
		if wp.ctx.Err() != nil {
			wp.ResultsCh <- TaskResult{ID: task.id, Err: wp.ctx.Err()}
			continue
		}
		wp.log.Debugf("worker %d starting task %s", workerID, task.id)
		result, err := wp.run(task)
		if err != nil {
			wp.log.Debugf("task %s failed: %v", task.id, err)
		}
		wp.ResultsCh <- TaskResult{ID: task.id, Result: result, Err: err}
	}
}

func (wp *WorkerPool) run(task workItem) (result any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = errors.New("task panicked")
			wp.log.WithField("task", task.id).Errorf("task panic recovered: %v", rec)
		}
	}()
	return task.fn(wp.ctx)
}

// Stop closes the queue. Tasks already queued still run; ResultsCh is closed
// after the last of them reports.
func (wp *WorkerPool) Stop() {
	wp.stopOnce.Do(func() {
		wp.mu.Lock()
		wp.stopped = true
		close(wp.tasksCh)
		wp.mu.Unlock()

		go func() {
			wp.wg.Wait()
			close(wp.ResultsCh)
			wp.cancelFunc()
		}()
	})
}

// Cancel stops the pool and cancels the context handed to running tasks.
func (wp *WorkerPool) Cancel() {
	wp.cancelFunc()
	wp.Stop()
}
