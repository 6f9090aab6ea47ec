package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pugtube/pugtube/internal/catalog"
	"github.com/pugtube/pugtube/internal/event"
	"github.com/pugtube/pugtube/internal/media"
	"github.com/pugtube/pugtube/pkg/logger"
	"github.com/pugtube/pugtube/pkg/worker"
)

var log = logger.Get("IngestServ")

var ErrEmptyCatalogPage = errors.New("catalog returned no candidates")

type (
	// DataStore is the narrow contract the ingestion pipeline requires of
	// the persistence layer: create an original video record from a binary
	// payload plus metadata.
	DataStore interface {
		SaveOriginalVideo(video *media.OriginalVideo, payload *media.Payload) error
	}

	// ingestService is responsible for the end-to-end ingestion of stock
	// video content from the external catalog:
	//   - Fetch one page of popular candidates (via a cached catalog client)
	//   - Download the selected rendition of each candidate independently
	//   - Persist each download as an owned OriginalVideo asset
	//   - Aggregate the per-candidate outcomes in to a batch report
	//
	// A single candidate's failure never aborts the batch, and a catalog
	// failure is reported as a value rather than raised.
	ingestService struct {
		*sync.Mutex

		catalog  catalog.Fetcher
		store    DataStore
		eventBus event.EventCoordinator

		config     Config
		items      []*IngestItem
		lastReport *BatchReport
		workerPool *worker.WorkerPool
	}
)

// New creates a new ingest service using the provided config for
// subsequent calls to 'Run'. The catalog fetcher provided is expected to
// be the process-wide cached client so repeated batches within one process
// observe the memoized page.
func New(config Config, catalogFetcher catalog.Fetcher, store DataStore, eventBus event.EventCoordinator) (*ingestService, error) {
	if catalogFetcher == nil || store == nil {
		return nil, errors.New("ingest service requires a catalog fetcher and a data store")
	}

	parallelism := config.IngestionParallelism
	if parallelism < 1 {
		parallelism = 1
	}

	service := &ingestService{
		Mutex:      &sync.Mutex{},
		catalog:    catalogFetcher,
		store:      store,
		eventBus:   eventBus,
		config:     config,
		items:      make([]*IngestItem, 0),
		workerPool: worker.NewWorkerPool(),
	}

	for i := 0; i < parallelism; i++ {
		label := fmt.Sprintf("ingest-worker-%d", i)
		service.workerPool.PushWorker(worker.NewWorker(label, service.PerformItemIngest))
	}

	return service, nil
}

// Run is the main entry point of this service. It starts the ingestion
// worker pool and, if a schedule interval is configured, runs a batch with
// default catalog parameters on each tick.
// To kill the service, the calling code should cancel the context provided.
func (service *ingestService) Run(ctx context.Context) error {
	if err := service.workerPool.Start(); err != nil {
		return err
	}
	defer service.workerPool.Close()

	if service.config.ScheduleInterval() <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(service.config.ScheduleInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			created := service.RunScheduledBatch()
			log.Emit(logger.INFO, "Scheduled ingestion batch complete, %d asset(s) created\n", len(created))
		case <-ctx.Done():
			return nil
		}
	}
}

// IngestPopular drives one end-to-end batch: fetch a page of candidates,
// ingest each independently, and aggregate the outcomes. It blocks until
// every candidate in the batch has reached a terminal state.
//
// The returned report is aggregated by candidate identity in page order,
// irrespective of worker completion order. This method never returns an
// error; total catalog failure is expressed via the report's CatalogErr.
//
// Note that the worker pool must be running (see Run) before this is
// called, otherwise the batch cannot make progress.
func (service *ingestService) IngestPopular(quantity int, minDuration int, maxDuration int) *BatchReport {
	page, err := service.catalog.FetchPopular(quantity, minDuration, maxDuration)
	if err != nil {
		log.Emit(logger.ERROR, "Catalog fetch failed, no candidates to ingest: %s\n", err.Error())
		return service.finishBatch(&BatchReport{CatalogErr: err})
	}

	if page == nil || len(page.Videos) == 0 {
		log.Emit(logger.WARNING, "Catalog fetch returned an empty page, nothing to ingest\n")
		return service.finishBatch(&BatchReport{CatalogErr: ErrEmptyCatalogPage})
	}

	batchWg := &sync.WaitGroup{}
	batchItems := make([]*IngestItem, len(page.Videos))
	for k, candidate := range page.Videos {
		batchWg.Add(1)
		batchItems[k] = &IngestItem{
			ID:        uuid.New(),
			Candidate: candidate,
			State:     IDLE,
			done:      batchWg,
		}
	}

	service.Lock()
	service.items = append(service.items, batchItems...)
	service.Unlock()

	// A pool that has not started yet scans for idle items as soon as it
	// does, so a failed wakeup here is not a problem.
	service.workerPool.WakeupWorkers()
	batchWg.Wait()

	report := &BatchReport{Outcomes: make([]IngestionOutcome, len(batchItems))}
	for k, item := range batchItems {
		outcome := IngestionOutcome{CandidateID: item.Candidate.ID}
		if item.State == COMPLETE {
			outcome.AssetID = item.AssetID
		} else {
			outcome.Err = item.Failure

			var downloadErr *DownloadFailedError
			if errors.As(item.Failure, &downloadErr) {
				outcome.FailedURL = downloadErr.URL()
			} else {
				outcome.FailedURL = item.Candidate.URL
			}
		}

		report.Outcomes[k] = outcome
	}

	return service.finishBatch(report)
}

// RunScheduledBatch runs one batch with the default catalog parameters and
// returns the identifiers of the assets it created. A total catalog failure
// yields an empty list; the failure itself is carried on the stored report.
// This is the entry point intended for external schedulers.
func (service *ingestService) RunScheduledBatch() []uuid.UUID {
	report := service.IngestPopular(catalog.DefaultQuantity, catalog.DefaultMinDuration, catalog.DefaultMaxDuration)
	return report.SucceededAssetIDs()
}

// PerformItemIngest is the worker function for the ingest service, called
// by the services worker pool. It claims the first IDLE item it finds and
// attempts to ingest it; failures of any kind are recorded on the item and
// never propagate to sibling workers.
func (service *ingestService) PerformItemIngest(w worker.Worker) (bool, error) {
	item := service.claimIdleItem()
	if item == nil {
		return false, nil
	}

	defer item.done.Done()
	service.eventBus.Dispatch(event.INGEST_UPDATE, item.ID)

	log.Emit(logger.INFO, "Processing video %d\n", item.Candidate.ID)
	assetID, err := item.ingest(service.eventBus, service.store, service.config.DownloadTimeout())

	// The items terminal state must be written under the service mutex, as
	// other goroutines inspect items through the same lock.
	service.Lock()
	if err != nil {
		log.Emit(logger.ERROR, "Ingestion of candidate %d failed: %s\n", item.Candidate.ID, err.Error())
		item.Failure = err
		item.State = TROUBLED
	} else {
		log.Emit(logger.SUCCESS, "Processed successfully: video_id: %d - original_video_id: %s\n", item.Candidate.ID, assetID)
		item.AssetID = &assetID
		item.State = COMPLETE
	}
	service.Unlock()

	service.eventBus.Dispatch(event.INGEST_COMPLETE, item.ID)
	return true, nil
}

// GetIngest accepts the ID of an ingest item and attempts to find it in the
// services state. If it cannot be found, nil is returned. The returned item
// is a point-in-time snapshot; workers may move the live item on after this
// returns.
func (service *ingestService) GetIngest(itemID uuid.UUID) *IngestItem {
	service.Lock()
	defer service.Unlock()

	for _, item := range service.items {
		if item.ID == itemID {
			snapshot := *item
			return &snapshot
		}
	}

	return nil
}

// GetAllIngests returns all the IngestItems known to this service,
// including terminal items from completed batches. As with GetIngest, the
// returned items are point-in-time snapshots.
func (service *ingestService) GetAllIngests() []*IngestItem {
	service.Lock()
	defer service.Unlock()

	output := make([]*IngestItem, len(service.items))
	for k, item := range service.items {
		snapshot := *item
		output[k] = &snapshot
	}

	return output
}

// LatestReport returns the report of the most recently finished batch, or
// nil if no batch has run yet.
func (service *ingestService) LatestReport() *BatchReport {
	service.Lock()
	defer service.Unlock()

	return service.lastReport
}

// claimIdleItem will try and find an IDLE item in the ingest service, and
// set its state to 'INGESTING' to prevent another worker from claiming it
// once the mutex lock is released.
func (service *ingestService) claimIdleItem() *IngestItem {
	service.Lock()
	defer service.Unlock()

	for _, item := range service.items {
		if item.State == IDLE {
			item.State = INGESTING
			return item
		}
	}

	return nil
}

func (service *ingestService) finishBatch(report *BatchReport) *BatchReport {
	service.Lock()
	service.lastReport = report
	service.Unlock()

	service.eventBus.Dispatch(event.BATCH_COMPLETE, report)
	return report
}
