package ingests

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pugtube/pugtube/internal/ingest"
)

type (
	// IngestDto is the response used by endpoints that return the items
	// being ingested (e.g., list, get).
	IngestDto struct {
		ID          uuid.UUID      `json:"id"`
		CandidateID int            `json:"candidate_id"`
		SourceURL   string         `json:"source_url"`
		State       IngestStateDto `json:"state"`
		AssetID     *uuid.UUID     `json:"asset_id"`
		Failure     *string        `json:"failure"`
	}

	IngestStateDto string

	BatchReportDto struct {
		CatalogFailure *string      `json:"catalog_failure"`
		Succeeded      []uuid.UUID  `json:"succeeded"`
		Failed         []FailureDto `json:"failed"`
	}

	FailureDto struct {
		CandidateID int    `json:"candidate"`
		URL         string `json:"url"`
		Reason      string `json:"reason"`
	}

	TriggerResponseDto struct {
		Created []uuid.UUID `json:"created"`
	}

	IngestService interface {
		GetAllIngests() []*ingest.IngestItem
		GetIngest(uuid.UUID) *ingest.IngestItem
		LatestReport() *ingest.BatchReport
		RunScheduledBatch() []uuid.UUID
	}

	// Controller is the struct which is responsible for defining the
	// routes for this controller. Additionally, it holds the reference
	// to the service used to query and trigger ingestions.
	Controller struct {
		service IngestService
	}
)

const (
	IDLE      IngestStateDto = "IDLE"
	INGESTING IngestStateDto = "INGESTING"
	TROUBLED  IngestStateDto = "TROUBLED"
	COMPLETE  IngestStateDto = "COMPLETE"
)

func New(serv IngestService) *Controller {
	return &Controller{service: serv}
}

// SetRoutes accepts the Echo group for the ingest endpoints
// and sets the routes on it.
func (controller *Controller) SetRoutes(eg *echo.Group) {
	eg.GET("/", controller.list)
	eg.GET("/:id/", controller.get)
	eg.GET("/report/", controller.latestReport)
	eg.POST("/trigger/", controller.trigger)
}

func (controller *Controller) list(ec echo.Context) error {
	items := controller.service.GetAllIngests()
	dtos := make([]IngestDto, len(items))
	for k, v := range items {
		dtos[k] = NewDto(v)
	}

	return ec.JSON(http.StatusOK, dtos)
}

func (controller *Controller) get(ec echo.Context) error {
	id, err := uuid.Parse(ec.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "ingest ID is not a valid UUID")
	}

	item := controller.service.GetIngest(id)
	if item == nil {
		return echo.ErrNotFound
	}

	return ec.JSON(http.StatusOK, NewDto(item))
}

func (controller *Controller) latestReport(ec echo.Context) error {
	report := controller.service.LatestReport()
	if report == nil {
		return echo.NewHTTPError(http.StatusNotFound, "no ingestion batch has run yet")
	}

	return ec.JSON(http.StatusOK, NewReportDto(report))
}

// trigger runs a batch with the default catalog parameters. The batch runs
// synchronously; partial failures are reflected in the report, not in the
// HTTP status.
func (controller *Controller) trigger(ec echo.Context) error {
	created := controller.service.RunScheduledBatch()
	return ec.JSON(http.StatusOK, TriggerResponseDto{Created: created})
}

func NewDto(item *ingest.IngestItem) IngestDto {
	dto := IngestDto{
		ID:          item.ID,
		CandidateID: item.Candidate.ID,
		SourceURL:   item.Candidate.URL,
		State:       stateToDto(item.State),
		AssetID:     item.AssetID,
	}

	if item.Failure != nil {
		message := item.Failure.Error()
		dto.Failure = &message
	}

	return dto
}

func NewReportDto(report *ingest.BatchReport) BatchReportDto {
	dto := BatchReportDto{
		Succeeded: report.SucceededAssetIDs(),
		Failed:    make([]FailureDto, 0),
	}

	if report.CatalogErr != nil {
		message := report.CatalogErr.Error()
		dto.CatalogFailure = &message
	}

	for _, failure := range report.Failures() {
		dto.Failed = append(dto.Failed, FailureDto{
			CandidateID: failure.CandidateID,
			URL:         failure.FailedURL,
			Reason:      failure.Err.Error(),
		})
	}

	return dto
}

func stateToDto(state ingest.IngestItemState) IngestStateDto {
	switch state {
	case ingest.IDLE:
		return IDLE
	case ingest.INGESTING:
		return INGESTING
	case ingest.TROUBLED:
		return TROUBLED
	case ingest.COMPLETE:
		return COMPLETE
	}

	return IngestStateDto("UNKNOWN")
}
