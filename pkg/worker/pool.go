package worker

import (
	"errors"
	"sync"
)

// WorkerPool contains a collection of workers which are started
// and stopped together. The embedded WaitGroup is controlled by
// the pool itself and can be waited upon by consumers who wish to
// block until all workers have finished.
//
// All pool operations are safe for concurrent use; the pool's
// lifecycle state is guarded by its mutex.
type WorkerPool struct {
	mutex   sync.Mutex
	workers []Worker
	Wg      sync.WaitGroup
	started bool
}

// NewWorkerPool creates a new WorkerPool struct
// and initialises the 'workers' slice.
func NewWorkerPool() *WorkerPool {
	return &WorkerPool{workers: make([]Worker, 0)}
}

// Start cycles through all the workers currently inside the
// WorkerPool and creates a goroutine for each. The 'Start' method of
// each worker is executed concurrently.
//
// Start does NOT block, however consumers can wait on the WaitGroup
// in the pool if they wish.
func (pool *WorkerPool) Start() error {
	pool.mutex.Lock()
	defer pool.mutex.Unlock()

	if pool.started {
		return errors.New("cannot start an already started worker pool")
	}

	pool.started = true
	for _, worker := range pool.workers {
		pool.Wg.Add(1)
		go func(wg *sync.WaitGroup, w Worker) {
			defer wg.Done()
			w.Start()
		}(&pool.Wg, worker)
	}

	return nil
}

// PushWorker inserts the provided workers in to the worker pool. Workers
// cannot be pushed once the pool has been started.
func (pool *WorkerPool) PushWorker(workers ...Worker) error {
	pool.mutex.Lock()
	defer pool.mutex.Unlock()

	if pool.started {
		return errors.New("cannot push worker to already started worker pool")
	}

	pool.workers = append(pool.workers, workers...)
	return nil
}

// WakeupWorkers signals every worker in the pool via its wakeup channel.
// The send is non-blocking: a worker which is busy with its task has the
// wakeup buffered on its channel, and a worker with a wakeup already
// pending needs no second one.
func (pool *WorkerPool) WakeupWorkers() error {
	pool.mutex.Lock()
	defer pool.mutex.Unlock()

	if !pool.started {
		return errors.New("cannot wakeup workers on worker pool that is not started")
	}

	for _, w := range pool.workers {
		select {
		case w.WakeupChan() <- 1:
		default:
		}
	}

	return nil
}

// Close will cycle through all the workers inside this
// worker pool and close their wakeup channels.
func (pool *WorkerPool) Close() {
	pool.mutex.Lock()
	if !pool.started {
		pool.mutex.Unlock()
		return
	}

	for _, w := range pool.workers {
		w.Close()
	}
	pool.started = false
	pool.mutex.Unlock()

	pool.Wg.Wait()
}
