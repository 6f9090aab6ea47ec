package worker

import (
	"sync/atomic"

	"github.com/pugtube/pugtube/pkg/logger"
)

var workerLogger = logger.Get("Worker")

type (
	WorkerWakeupChan chan int
	WorkerStatus     int32

	// WorkerTask is the unit of work a worker repeatedly executes while awake.
	// The boolean return indicates whether any work was performed; once a task
	// reports no work remaining, the worker goes back to sleep until woken.
	WorkerTask func(w Worker) (bool, error)

	Worker interface {
		Start()
		Status() WorkerStatus
		WakeupChan() WorkerWakeupChan
		Label() string
		Sleep() bool
		Close()
	}

	taskWorker struct {
		label         string
		task          WorkerTask
		wakeupChan    WorkerWakeupChan
		currentStatus atomic.Int32
	}
)

const (
	SLEEPING WorkerStatus = iota
	WORKING
	FINISHED
)

// NewWorker creates a worker which runs the given task when woken. The
// wakeup channel is buffered so that a wakeup sent while the worker is
// busy with its task is held until the worker next sleeps, rather than
// being lost.
func NewWorker(label string, task WorkerTask) *taskWorker {
	return &taskWorker{
		label:      label,
		task:       task,
		wakeupChan: make(WorkerWakeupChan, 1),
	}
}

// Start runs the workers task in a loop until the task reports
// that no work remains, at which point the worker sleeps until
// it is woken up (or closed) via its wakeup channel.
func (worker *taskWorker) Start() {
	workerLogger.Emit(logger.NEW, "Starting worker with label %v\n", worker.label)
	worker.currentStatus.Store(int32(WORKING))

	for {
		for {
			performed, err := worker.task(worker)
			if err != nil {
				workerLogger.Emit(logger.ERROR, "Worker %v task reported an error: %v\n", worker.label, err.Error())
				break
			}

			if !performed {
				break
			}
		}

		if !worker.Sleep() {
			return
		}
	}
}

func (worker *taskWorker) Status() WorkerStatus {
	return WorkerStatus(worker.currentStatus.Load())
}

func (worker *taskWorker) WakeupChan() WorkerWakeupChan {
	return worker.wakeupChan
}

// Close closes the Worker by closing the WakeupChan. Note that this
// does not interrupt a task that is currently running.
func (worker *taskWorker) Close() {
	close(worker.wakeupChan)
}

func (worker *taskWorker) Label() string {
	return worker.label
}

// Sleep puts a worker to sleep until its wakeupChan is signalled
// from another goroutine. A wakeup buffered while the worker was busy
// is consumed immediately. Returns a boolean that is 'false' if the
// wakeup channel was closed - indicating the worker should quit.
func (worker *taskWorker) Sleep() (isAlive bool) {
	worker.currentStatus.Store(int32(SLEEPING))

	if _, isAlive = <-worker.wakeupChan; isAlive {
		worker.currentStatus.Store(int32(WORKING))
	} else {
		workerLogger.Emit(logger.STOP, "Wakeup channel for worker '%v' has been closed - worker is exiting\n", worker.label)
		worker.currentStatus.Store(int32(FINISHED))
	}

	return isAlive
}
