package worker_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/pugtube/pugtube/pkg/worker"
	"github.com/stretchr/testify/assert"
)

func Test_WakeupWhileBusy_IsBuffered(t *testing.T) {
	t.Parallel()

	taskCalls := atomic.Int32{}
	holdFirstCall := make(chan struct{})
	reran := make(chan struct{}, 1)

	task := func(_ worker.Worker) (bool, error) {
		if taskCalls.Add(1) == 1 {
			<-holdFirstCall
		} else {
			reran <- struct{}{}
		}

		return false, nil
	}

	pool := worker.NewWorkerPool()
	assert.Nil(t, pool.PushWorker(worker.NewWorker("test-worker", task)))
	assert.Nil(t, pool.Start())
	defer pool.Close()

	for taskCalls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}

	// The worker is busy inside its task; this wakeup must be held on the
	// buffered channel rather than dropped.
	assert.Nil(t, pool.WakeupWorkers())
	close(holdFirstCall)

	select {
	case <-reran:
	case <-time.After(time.Second):
		t.Fatal("wakeup sent while the worker was busy was lost")
	}
}

func Test_WakeupBeforeStartAndAfterClose_ReturnsError(t *testing.T) {
	t.Parallel()

	pool := worker.NewWorkerPool()
	assert.Nil(t, pool.PushWorker(worker.NewWorker("test-worker", func(_ worker.Worker) (bool, error) { return false, nil })))

	assert.NotNil(t, pool.WakeupWorkers())

	assert.Nil(t, pool.Start())
	assert.Nil(t, pool.WakeupWorkers())

	pool.Close()
	assert.NotNil(t, pool.WakeupWorkers())
}

// Lifecycle calls may arrive from other goroutines while the pool is
// starting (the ingest service wakes the pool from the batch path while
// Run starts it); none of them may trip over the pool's state.
func Test_StartAndWakeup_Concurrently(t *testing.T) {
	t.Parallel()

	pool := worker.NewWorkerPool()
	assert.Nil(t, pool.PushWorker(worker.NewWorker("test-worker", func(_ worker.Worker) (bool, error) { return false, nil })))

	wakeupsDone := make(chan struct{})
	go func() {
		defer close(wakeupsDone)
		for i := 0; i < 100; i++ {
			pool.WakeupWorkers()
		}
	}()

	assert.Nil(t, pool.Start())
	<-wakeupsDone
	pool.Close()
}

func Test_DoubleStart_Rejected(t *testing.T) {
	t.Parallel()

	pool := worker.NewWorkerPool()
	assert.Nil(t, pool.PushWorker(worker.NewWorker("test-worker", func(_ worker.Worker) (bool, error) { return false, nil })))

	assert.Nil(t, pool.Start())
	defer pool.Close()

	assert.NotNil(t, pool.Start())
	assert.NotNil(t, pool.PushWorker(worker.NewWorker("late-worker", func(_ worker.Worker) (bool, error) { return false, nil })))
}
