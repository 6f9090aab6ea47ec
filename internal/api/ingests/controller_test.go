package ingests_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pugtube/pugtube/internal/api/ingests"
	"github.com/pugtube/pugtube/internal/catalog"
	"github.com/pugtube/pugtube/internal/ingest"
	"github.com/stretchr/testify/assert"
)

type stubIngestService struct {
	items   []*ingest.IngestItem
	report  *ingest.BatchReport
	created []uuid.UUID
}

func (service *stubIngestService) GetAllIngests() []*ingest.IngestItem { return service.items }
func (service *stubIngestService) LatestReport() *ingest.BatchReport   { return service.report }
func (service *stubIngestService) RunScheduledBatch() []uuid.UUID      { return service.created }

func (service *stubIngestService) GetIngest(id uuid.UUID) *ingest.IngestItem {
	for _, item := range service.items {
		if item.ID == id {
			return item
		}
	}

	return nil
}

func newGateway(service ingests.IngestService) *echo.Echo {
	e := echo.New()
	ingests.New(service).SetRoutes(e.Group("/api/pugtube/v1/ingests"))
	return e
}

func doRequest(e *echo.Echo, method string, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func Test_ListIngests_ReturnsDtos(t *testing.T) {
	t.Parallel()

	assetID := uuid.New()
	troubled := &ingest.IngestItem{
		ID:        uuid.New(),
		Candidate: catalog.Video{ID: 8, URL: "https://example.com/videos/8"},
		State:     ingest.TROUBLED,
		Failure:   &ingest.DownloadFailedError{},
	}
	complete := &ingest.IngestItem{
		ID:        uuid.New(),
		Candidate: catalog.Video{ID: 7, URL: "https://example.com/videos/7"},
		State:     ingest.COMPLETE,
		AssetID:   &assetID,
	}

	e := newGateway(&stubIngestService{items: []*ingest.IngestItem{complete, troubled}})
	rec := doRequest(e, http.MethodGet, "/api/pugtube/v1/ingests/")
	assert.Equal(t, http.StatusOK, rec.Code)

	var dtos []ingests.IngestDto
	assert.Nil(t, json.Unmarshal(rec.Body.Bytes(), &dtos))
	assert.Len(t, dtos, 2)

	assert.Equal(t, complete.ID, dtos[0].ID)
	assert.Equal(t, 7, dtos[0].CandidateID)
	assert.Equal(t, ingests.COMPLETE, dtos[0].State)
	assert.Equal(t, &assetID, dtos[0].AssetID)
	assert.Nil(t, dtos[0].Failure)

	assert.Equal(t, ingests.TROUBLED, dtos[1].State)
	assert.Nil(t, dtos[1].AssetID)
	assert.NotNil(t, dtos[1].Failure)
}

func Test_GetIngest_UnknownOrMalformedID(t *testing.T) {
	t.Parallel()

	e := newGateway(&stubIngestService{})

	rec := doRequest(e, http.MethodGet, "/api/pugtube/v1/ingests/not-a-uuid/")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(e, http.MethodGet, "/api/pugtube/v1/ingests/"+uuid.NewString()+"/")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func Test_LatestReport_NotFoundBeforeFirstBatch(t *testing.T) {
	t.Parallel()

	e := newGateway(&stubIngestService{})
	rec := doRequest(e, http.MethodGet, "/api/pugtube/v1/ingests/report/")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func Test_LatestReport_MixedOutcomes(t *testing.T) {
	t.Parallel()

	assetID := uuid.New()
	report := &ingest.BatchReport{
		Outcomes: []ingest.IngestionOutcome{
			{CandidateID: 7, AssetID: &assetID},
			{CandidateID: 8, FailedURL: "https://cdn.example.com/8.mp4", Err: &ingest.DownloadFailedError{}},
		},
	}

	e := newGateway(&stubIngestService{report: report})
	rec := doRequest(e, http.MethodGet, "/api/pugtube/v1/ingests/report/")
	assert.Equal(t, http.StatusOK, rec.Code)

	var dto ingests.BatchReportDto
	assert.Nil(t, json.Unmarshal(rec.Body.Bytes(), &dto))
	assert.Nil(t, dto.CatalogFailure)
	assert.Equal(t, []uuid.UUID{assetID}, dto.Succeeded)
	assert.Len(t, dto.Failed, 1)
	assert.Equal(t, 8, dto.Failed[0].CandidateID)
	assert.Equal(t, "https://cdn.example.com/8.mp4", dto.Failed[0].URL)
}

func Test_Trigger_ReturnsCreatedAssets(t *testing.T) {
	t.Parallel()

	created := []uuid.UUID{uuid.New(), uuid.New()}
	e := newGateway(&stubIngestService{created: created})

	rec := doRequest(e, http.MethodPost, "/api/pugtube/v1/ingests/trigger/")
	assert.Equal(t, http.StatusOK, rec.Code)

	var dto ingests.TriggerResponseDto
	assert.Nil(t, json.Unmarshal(rec.Body.Bytes(), &dto))
	assert.Equal(t, created, dto.Created)
}
