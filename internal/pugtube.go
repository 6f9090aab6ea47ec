package internal

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/pugtube/pugtube/internal/api"
	"github.com/pugtube/pugtube/internal/catalog"
	"github.com/pugtube/pugtube/internal/database"
	"github.com/pugtube/pugtube/internal/event"
	"github.com/pugtube/pugtube/internal/ingest"
	"github.com/pugtube/pugtube/internal/media"
	"github.com/pugtube/pugtube/internal/user"
	"github.com/pugtube/pugtube/pkg/logger"
)

var log = logger.Get("Core")

type (
	RunnableService interface {
		Run(context.Context) error
	}

	IngestService interface {
		RunnableService
		GetIngest(uuid.UUID) *ingest.IngestItem
		GetAllIngests() []*ingest.IngestItem
		LatestReport() *ingest.BatchReport
		IngestPopular(int, int, int) *ingest.BatchReport
		RunScheduledBatch() []uuid.UUID
	}
)

// pugTubeImpl represents the top-level object for the server, and is
// responsible for initialising the stores, database connection, event
// handling and the services themselves.
type pugTubeImpl struct {
	eventBus event.EventCoordinator
	config   PugTubeConfig
	db       database.Manager

	store *storeOrchestrator

	restGateway   RunnableService
	ingestService IngestService
}

func New(config PugTubeConfig) (*pugTubeImpl, error) {
	log.Emit(logger.DEBUG, "Bootstrapping PugTube services using config: %#v\n", config)

	payloads, err := media.NewPayloadStore(config.MediaDirPath)
	if err != nil {
		return nil, fmt.Errorf("failed to construct payload store: %w", err)
	}

	pt := &pugTubeImpl{
		eventBus: event.New(),
		config:   config,
		db:       database.New(),
	}
	pt.store = newStoreOrchestrator(pt.db, media.NewStore(payloads), user.NewStore())

	cachedCatalog := catalog.NewCachedClient(catalog.NewClient(config.Catalog))
	ingestService, err := ingest.New(config.Ingest, cachedCatalog, pt.store, pt.eventBus)
	if err != nil {
		return nil, fmt.Errorf("failed to construct ingest service: %w", err)
	}

	pt.ingestService = ingestService
	pt.restGateway = api.NewRestGateway(&config.RestConfig, pt.ingestService, pt.store)

	return pt, nil
}

// Run will start PugTube by bringing up the database connection (running
// any pending migrations) and all services. This function will not return
// until PugTube is stopped. To stop it, the provided context must be
// cancelled; errors from which a service cannot recover will also stop
// the server.
func (pt *pugTubeImpl) Run(parent context.Context) error {
	log.Emit(logger.NEW, "Connecting to database...\n")
	if err := pt.db.Connect(pt.config.Database); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	wg := &sync.WaitGroup{}
	runService := func(label string, service RunnableService) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := service.Run(ctx); err != nil {
				log.Emit(logger.FATAL, "Service crash (%s)! %s\n", label, err.Error())
				cancel()
			}
		}()
	}

	runService("ingest", pt.ingestService)
	runService("rest-gateway", pt.restGateway)

	log.Emit(logger.SUCCESS, "PugTube is running\n")
	<-ctx.Done()
	wg.Wait()

	return nil
}

// RunBatch connects to the database and performs a single ingestion batch,
// returning the resulting report. The REST gateway is not started; once the
// batch finishes the ingest service is shut down before returning.
func (pt *pugTubeImpl) RunBatch(parent context.Context, quantity int, minDuration int, maxDuration int) (*ingest.BatchReport, error) {
	log.Emit(logger.NEW, "Connecting to database...\n")
	if err := pt.db.Connect(pt.config.Database); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	wg := &sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := pt.ingestService.Run(ctx); err != nil {
			log.Emit(logger.FATAL, "Ingest service crash! %s\n", err.Error())
		}
	}()

	report := pt.ingestService.IngestPopular(quantity, minDuration, maxDuration)
	cancel()
	wg.Wait()

	return report, nil
}
