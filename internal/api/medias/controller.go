package medias

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pugtube/pugtube/internal/media"
)

type (
	// Store is the subset of media persistence operations this
	// controller requires.
	Store interface {
		ListOriginalVideos() ([]*media.OriginalVideo, error)
		GetOriginalVideo(uuid.UUID) (*media.OriginalVideo, error)
		DeleteOriginalVideo(uuid.UUID) error
		GetProcessedVideosFor(uuid.UUID) ([]*media.ProcessedVideo, error)
		GetPosterForVideo(uuid.UUID) (*media.VideoPoster, error)
		GetTimelinePreviewsForVideo(uuid.UUID) ([]*media.VideoTimelinePreview, error)
	}

	VideoDto struct {
		ID          uuid.UUID `json:"id"`
		Title       string    `json:"title"`
		Description *string   `json:"description"`
		Tags        []string  `json:"tags"`
		OriginalURL *string   `json:"original_url"`
		Quality     string    `json:"quality"`
		FileType    string    `json:"file_type"`
		Duration    int       `json:"duration"`
		Width       int       `json:"width"`
		Height      int       `json:"height"`
		Fps         float64   `json:"fps"`
	}

	VideoDetailDto struct {
		VideoDto
		Poster    *PosterDto     `json:"poster"`
		Previews  []PreviewDto   `json:"previews"`
		Processed []ProcessedDto `json:"processed"`
	}

	PosterDto struct {
		ID       uuid.UUID `json:"id"`
		FileName string    `json:"file_name"`
	}

	PreviewDto struct {
		ID          uuid.UUID `json:"id"`
		FileName    string    `json:"file_name"`
		PreviewTime *float64  `json:"preview_time"`
	}

	ProcessedDto struct {
		ID       uuid.UUID `json:"id"`
		FileName string    `json:"file_name"`
		Encoding *string   `json:"encoding"`
	}

	Controller struct {
		store Store
	}
)

func New(store Store) *Controller {
	return &Controller{store: store}
}

func (controller *Controller) SetRoutes(eg *echo.Group) {
	eg.GET("/", controller.list)
	eg.GET("/:id/", controller.get)
	eg.DELETE("/:id/", controller.delete)
}

func (controller *Controller) list(ec echo.Context) error {
	videos, err := controller.store.ListOriginalVideos()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	dtos := make([]VideoDto, len(videos))
	for k, v := range videos {
		dtos[k] = NewDto(v)
	}

	return ec.JSON(http.StatusOK, dtos)
}

func (controller *Controller) get(ec echo.Context) error {
	id, err := uuid.Parse(ec.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "video ID is not a valid UUID")
	}

	video, err := controller.store.GetOriginalVideo(id)
	if err != nil {
		if errors.Is(err, media.ErrVideoNotFound) {
			return echo.ErrNotFound
		}

		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	detail := VideoDetailDto{VideoDto: NewDto(video), Previews: make([]PreviewDto, 0), Processed: make([]ProcessedDto, 0)}
	if poster, err := controller.store.GetPosterForVideo(id); err == nil {
		detail.Poster = &PosterDto{ID: poster.ID, FileName: poster.FileName}
	}
	if previews, err := controller.store.GetTimelinePreviewsForVideo(id); err == nil {
		for _, p := range previews {
			detail.Previews = append(detail.Previews, PreviewDto{ID: p.ID, FileName: p.FileName, PreviewTime: p.PreviewTime})
		}
	}
	if processed, err := controller.store.GetProcessedVideosFor(id); err == nil {
		for _, p := range processed {
			detail.Processed = append(detail.Processed, ProcessedDto{ID: p.ID, FileName: p.FileName, Encoding: p.Encoding})
		}
	}

	return ec.JSON(http.StatusOK, detail)
}

func (controller *Controller) delete(ec echo.Context) error {
	id, err := uuid.Parse(ec.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "video ID is not a valid UUID")
	}

	if err := controller.store.DeleteOriginalVideo(id); err != nil {
		if errors.Is(err, media.ErrVideoNotFound) {
			return echo.ErrNotFound
		}

		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return ec.NoContent(http.StatusNoContent)
}

func NewDto(video *media.OriginalVideo) VideoDto {
	return VideoDto{
		ID:          video.ID,
		Title:       video.Title,
		Description: video.Description,
		Tags:        video.Tags,
		OriginalURL: video.OriginalURL,
		Quality:     video.Quality,
		FileType:    video.FileType,
		Duration:    video.Duration,
		Width:       video.Width,
		Height:      video.Height,
		Fps:         video.Fps,
	}
}
