// service_test is responsible for ensuring that popular catalog candidates
// are downloaded and saved as owned assets, that a single candidate's
// failure never aborts its batch, and that a total catalog failure creates
// no records at all. The catalog and DB integration is faked; rendition
// downloads are served by a local HTTP server.
package ingest_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pugtube/pugtube/internal/catalog"
	"github.com/pugtube/pugtube/internal/event"
	"github.com/pugtube/pugtube/internal/ingest"
	"github.com/pugtube/pugtube/internal/media"
	"github.com/pugtube/pugtube/pkg/logger"
	"github.com/stretchr/testify/assert"
)

// A default event bus which should be used as a NOOP event bus. DO NOT
// subscribe to this inside of a test as the subscribers are not removed
// between tests.
var defaultEventBus = event.New()

func init() {
	logger.SetMinLoggingLevel(logger.VERBOSE.Level())
}

type Service interface {
	IngestPopular(int, int, int) *ingest.BatchReport
	GetIngest(uuid.UUID) *ingest.IngestItem
	GetAllIngests() []*ingest.IngestItem
	LatestReport() *ingest.BatchReport
}

// stubFetcher satisfies catalog.Fetcher with a fixed page or error,
// standing in for the cached catalog client.
type stubFetcher struct {
	page *catalog.Page
	err  error
}

func (fetcher *stubFetcher) FetchPopular(_ int, _ int, _ int) (*catalog.Page, error) {
	return fetcher.page, fetcher.err
}

// savedVideo captures one SaveOriginalVideo call, with the payload content
// drained so the test can inspect what would have hit the disk.
type savedVideo struct {
	video   media.OriginalVideo
	payload media.Payload
	content []byte
}

type memoryDataStore struct {
	mutex   sync.Mutex
	saveErr error
	saved   []savedVideo
}

func (store *memoryDataStore) SaveOriginalVideo(video *media.OriginalVideo, payload *media.Payload) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	if store.saveErr != nil {
		return store.saveErr
	}

	content, err := io.ReadAll(payload.Content)
	if err != nil {
		return err
	}

	video.ID = uuid.New()
	store.saved = append(store.saved, savedVideo{video: *video, payload: *payload, content: content})
	return nil
}

func (store *memoryDataStore) savedVideos() []savedVideo {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	return append(make([]savedVideo, 0, len(store.saved)), store.saved...)
}

func startServiceWithBus(t *testing.T, config ingest.Config, fetcher catalog.Fetcher, store ingest.DataStore, eventBus event.EventCoordinator) Service {
	srv, err := ingest.New(config, fetcher, store, eventBus)
	assert.Nil(t, err)

	// Start ingest service
	wg := sync.WaitGroup{}
	wg.Add(1)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		defer wg.Done()
		assert.Nil(t, srv.Run(ctx))
	}()

	t.Cleanup(func() {
		fmt.Println("Waiting for service to close...")
		cancel()
		wg.Wait()
	})

	return srv
}

// startService starts an ingest service instance using the config and
// fakes provided. The service is torn down when the test completes.
func startService(t *testing.T, config ingest.Config, fetcher catalog.Fetcher, store ingest.DataStore) Service {
	return startServiceWithBus(t, config, fetcher, store, defaultEventBus)
}

func Test_TotalCatalogFailure_CreatesNoRecords(t *testing.T) {
	t.Parallel()

	catalogErr := &catalog.CatalogUnavailableError{}
	store := &memoryDataStore{}
	srv := startService(t, ingest.Config{IngestionParallelism: 1}, &stubFetcher{err: catalogErr}, store)

	report := srv.IngestPopular(40, 60, 120)

	assert.Same(t, catalogErr, report.CatalogErr, "a catalog failure must be reported as a value")
	assert.Empty(t, report.Outcomes)
	assert.Empty(t, store.savedVideos(), "no asset records may be created when the catalog listing fails")
	assert.Empty(t, srv.GetAllIngests())
	assert.Same(t, report, srv.LatestReport())
}

func Test_EmptyCatalogPage_ReportedWithoutIngestion(t *testing.T) {
	t.Parallel()

	store := &memoryDataStore{}
	srv := startService(t, ingest.Config{IngestionParallelism: 1}, &stubFetcher{page: &catalog.Page{}}, store)

	report := srv.IngestPopular(40, 60, 120)

	assert.ErrorIs(t, report.CatalogErr, ingest.ErrEmptyCatalogPage)
	assert.Empty(t, store.savedVideos())
}

// One of two candidates fails its download with a server error; the other
// must still be ingested in full, with its metadata mapped from the
// candidate and its FIRST rendition only.
func Test_PartialDownloadFailure_DoesNotAbortBatch(t *testing.T) {
	t.Parallel()

	requestedPaths := make(chan string, 8)
	cdn := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestedPaths <- r.URL.Path
		switch r.URL.Path {
		case "/renditions/7-hd.mp4":
			fmt.Fprint(w, "first rendition bytes")
		case "/renditions/8-hd.mp4":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer cdn.Close()

	goodCandidate := catalog.Video{
		ID:       7,
		URL:      "https://example.com/videos/7",
		Width:    1920,
		Height:   1080,
		Duration: 90,
		VideoFiles: []catalog.VideoFile{
			{Link: cdn.URL + "/renditions/7-hd.mp4", Quality: "hd", FileType: "video/mp4", Fps: 29.97},
			{Link: cdn.URL + "/renditions/7-sd.mp4", Quality: "sd", FileType: "video/mp4", Fps: 25},
		},
	}
	badCandidate := catalog.Video{
		ID:         8,
		URL:        "https://example.com/videos/8",
		Duration:   75,
		VideoFiles: []catalog.VideoFile{{Link: cdn.URL + "/renditions/8-hd.mp4", Quality: "hd", FileType: "video/mp4", Fps: 30}},
	}

	store := &memoryDataStore{}
	eventBus := event.New()
	created := make(event.HandlerChannel, 4)
	eventBus.RegisterHandlerChannel(created, event.MEDIA_CREATED)

	srv := startServiceWithBus(t, ingest.Config{IngestionParallelism: 1}, &stubFetcher{page: &catalog.Page{Videos: []catalog.Video{goodCandidate, badCandidate}}}, store, eventBus)
	report := srv.IngestPopular(2, 60, 120)

	assert.Nil(t, report.CatalogErr)
	assert.Len(t, report.Outcomes, 2)

	good := report.Outcomes[0]
	assert.Equal(t, 7, good.CandidateID)
	assert.True(t, good.Succeeded())
	assert.NotNil(t, good.AssetID)

	bad := report.Outcomes[1]
	assert.Equal(t, 8, bad.CandidateID)
	assert.False(t, bad.Succeeded())
	assert.Equal(t, cdn.URL+"/renditions/8-hd.mp4", bad.FailedURL)
	var downloadErr *ingest.DownloadFailedError
	assert.ErrorAs(t, bad.Err, &downloadErr)

	saved := store.savedVideos()
	assert.Len(t, saved, 1, "the failed candidate must not produce a record")

	asset := saved[0]
	assert.Equal(t, *good.AssetID, asset.video.ID)
	assert.Equal(t, "https://example.com/videos/7", asset.video.Title)
	assert.Equal(t, "https://example.com/videos/7", *asset.video.OriginalURL)
	assert.Equal(t, "hd", asset.video.Quality)
	assert.Equal(t, "video/mp4", asset.video.FileType)
	assert.Equal(t, 90, asset.video.Duration)
	assert.Equal(t, 1920, asset.video.Width)
	assert.Equal(t, 1080, asset.video.Height)
	assert.Equal(t, 29.97, asset.video.Fps)
	assert.Equal(t, "video-7.mp4", asset.payload.FileName)
	assert.Equal(t, "video/mp4", asset.payload.ContentType)
	assert.Equal(t, []byte("first rendition bytes"), asset.content)

	// Only the two selected renditions should ever have been requested;
	// the good candidate's second rendition is never considered.
	close(requestedPaths)
	paths := make([]string, 0)
	for path := range requestedPaths {
		paths = append(paths, path)
	}
	assert.ElementsMatch(t, []string{"/renditions/7-hd.mp4", "/renditions/8-hd.mp4"}, paths)

	select {
	case ev := <-created:
		assert.Equal(t, event.MEDIA_CREATED, ev.Event)
		assert.Equal(t, *good.AssetID, ev.Payload)
	case <-time.After(time.Second):
		t.Fatal("expected a media created event for the successful candidate")
	}
}

func Test_CandidateWithoutRenditions_ReportedAsFailure(t *testing.T) {
	t.Parallel()

	candidate := catalog.Video{ID: 9, URL: "https://example.com/videos/9", Duration: 80}
	store := &memoryDataStore{}
	srv := startService(t, ingest.Config{IngestionParallelism: 1}, &stubFetcher{page: &catalog.Page{Videos: []catalog.Video{candidate}}}, store)

	report := srv.IngestPopular(1, 60, 120)

	assert.Len(t, report.Outcomes, 1)
	outcome := report.Outcomes[0]
	assert.False(t, outcome.Succeeded())
	assert.Equal(t, "https://example.com/videos/9", outcome.FailedURL)
	var downloadErr *ingest.DownloadFailedError
	assert.ErrorAs(t, outcome.Err, &downloadErr)
	assert.Empty(t, store.savedVideos())
}

func Test_FailedPersistence_ReportedAgainstCandidate(t *testing.T) {
	t.Parallel()

	cdn := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "bytes")
	}))
	defer cdn.Close()

	candidate := catalog.Video{
		ID:         11,
		URL:        "https://example.com/videos/11",
		VideoFiles: []catalog.VideoFile{{Link: cdn.URL + "/11.mp4", Quality: "hd", FileType: "video/mp4"}},
	}
	store := &memoryDataStore{saveErr: errors.New("disk full")}
	srv := startService(t, ingest.Config{IngestionParallelism: 1}, &stubFetcher{page: &catalog.Page{Videos: []catalog.Video{candidate}}}, store)

	report := srv.IngestPopular(1, 60, 120)

	assert.Len(t, report.Outcomes, 1)
	outcome := report.Outcomes[0]
	assert.False(t, outcome.Succeeded())
	assert.ErrorContains(t, outcome.Err, "disk full")
	assert.Equal(t, "https://example.com/videos/11", outcome.FailedURL)
}

// Ingestion performs no de-duplication; running the same page twice must
// create a second, distinct record for the same candidate.
func Test_RepeatedBatch_CreatesDuplicateRecords(t *testing.T) {
	t.Parallel()

	cdn := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "bytes")
	}))
	defer cdn.Close()

	candidate := catalog.Video{
		ID:         12,
		URL:        "https://example.com/videos/12",
		VideoFiles: []catalog.VideoFile{{Link: cdn.URL + "/12.mp4", Quality: "hd", FileType: "video/mp4"}},
	}
	store := &memoryDataStore{}
	srv := startService(t, ingest.Config{IngestionParallelism: 1}, &stubFetcher{page: &catalog.Page{Videos: []catalog.Video{candidate}}}, store)

	firstReport := srv.IngestPopular(1, 60, 120)
	secondReport := srv.IngestPopular(1, 60, 120)

	assert.Len(t, store.savedVideos(), 2)
	assert.NotEqual(t, firstReport.SucceededAssetIDs(), secondReport.SucceededAssetIDs())
	assert.Len(t, srv.GetAllIngests(), 2, "items from earlier batches are retained")
	assert.Same(t, secondReport, srv.LatestReport())
}

// With several workers racing over the batch, outcomes must still be
// reported in candidate page order. Download latency is skewed so that
// completion order differs from page order.
func Test_ParallelBatch_ReportInPageOrder(t *testing.T) {
	t.Parallel()

	cdn := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/renditions/0.mp4" {
			time.Sleep(time.Millisecond * 250)
		}
		fmt.Fprint(w, "bytes")
	}))
	defer cdn.Close()

	candidates := make([]catalog.Video, 5)
	for i := range candidates {
		candidates[i] = catalog.Video{
			ID:         100 + i,
			URL:        fmt.Sprintf("https://example.com/videos/%d", 100+i),
			VideoFiles: []catalog.VideoFile{{Link: fmt.Sprintf("%s/renditions/%d.mp4", cdn.URL, i), Quality: "hd", FileType: "video/mp4"}},
		}
	}

	store := &memoryDataStore{}
	srv := startService(t, ingest.Config{IngestionParallelism: 3}, &stubFetcher{page: &catalog.Page{Videos: candidates}}, store)

	report := srv.IngestPopular(5, 60, 120)

	assert.Len(t, report.Outcomes, 5)
	for i, outcome := range report.Outcomes {
		assert.Equal(t, 100+i, outcome.CandidateID)
		assert.True(t, outcome.Succeeded())
	}
	assert.Len(t, report.SucceededAssetIDs(), 5)
}

func Test_GetIngest_FindsItemByID(t *testing.T) {
	t.Parallel()

	candidate := catalog.Video{ID: 13, URL: "https://example.com/videos/13"}
	store := &memoryDataStore{}
	srv := startService(t, ingest.Config{IngestionParallelism: 1}, &stubFetcher{page: &catalog.Page{Videos: []catalog.Video{candidate}}}, store)

	srv.IngestPopular(1, 60, 120)

	all := srv.GetAllIngests()
	assert.Len(t, all, 1)
	assert.Equal(t, all[0], srv.GetIngest(all[0].ID))
	assert.Nil(t, srv.GetIngest(uuid.New()))
	assert.Equal(t, ingest.TROUBLED, all[0].State)
}

// Item lookups must be safe to perform while a parallel batch is mid
// flight; the snapshots they return never alias item state the workers are
// still writing to.
func Test_ParallelBatch_InspectionDuringIngestion(t *testing.T) {
	t.Parallel()

	cdn := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(time.Millisecond * 20)
		fmt.Fprint(w, "bytes")
	}))
	defer cdn.Close()

	candidates := make([]catalog.Video, 6)
	for i := range candidates {
		candidates[i] = catalog.Video{
			ID:         200 + i,
			URL:        fmt.Sprintf("https://example.com/videos/%d", 200+i),
			VideoFiles: []catalog.VideoFile{{Link: fmt.Sprintf("%s/renditions/%d.mp4", cdn.URL, i), Quality: "hd", FileType: "video/mp4"}},
		}
	}

	store := &memoryDataStore{}
	srv := startService(t, ingest.Config{IngestionParallelism: 3}, &stubFetcher{page: &catalog.Page{Videos: candidates}}, store)

	stopInspecting := make(chan struct{})
	inspectWg := sync.WaitGroup{}
	inspectWg.Add(1)
	go func() {
		defer inspectWg.Done()
		for {
			select {
			case <-stopInspecting:
				return
			default:
			}

			for _, item := range srv.GetAllIngests() {
				assert.Contains(t, []ingest.IngestItemState{ingest.IDLE, ingest.INGESTING, ingest.TROUBLED, ingest.COMPLETE}, item.State)
				if item.State == ingest.COMPLETE {
					assert.NotNil(t, item.AssetID)
				}
				assert.Equal(t, item.ID, srv.GetIngest(item.ID).ID)
			}
		}
	}()

	report := srv.IngestPopular(6, 60, 120)
	close(stopInspecting)
	inspectWg.Wait()

	assert.Len(t, report.SucceededAssetIDs(), 6)
	for _, item := range srv.GetAllIngests() {
		assert.Equal(t, ingest.COMPLETE, item.State)
	}
}
