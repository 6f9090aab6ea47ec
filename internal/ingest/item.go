package ingest

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pugtube/pugtube/internal/catalog"
	"github.com/pugtube/pugtube/internal/event"
	"github.com/pugtube/pugtube/internal/media"
	"github.com/pugtube/pugtube/pkg/logger"
)

type (
	IngestItemState int

	// IngestItem wraps one catalog candidate while it moves through the
	// pipeline. An item is terminal once its state is COMPLETE or TROUBLED;
	// a troubled item records its failure but never aborts the batch it
	// belongs to.
	IngestItem struct {
		ID        uuid.UUID
		Candidate catalog.Video
		State     IngestItemState

		// AssetID is set on successful ingestion to the ID of the
		// OriginalVideo created for this candidate.
		AssetID *uuid.UUID

		// Failure holds the error that moved this item to TROUBLED.
		Failure error

		done *sync.WaitGroup
	}
)

const (
	IDLE IngestItemState = iota
	INGESTING
	TROUBLED
	COMPLETE
)

func (s IngestItemState) String() string {
	return []string{"IDLE", "INGESTING", "TROUBLED", "COMPLETE"}[s]
}

// ingest performs the full ingestion of a single candidate:
//   - selects the first rendition in the candidate's rendition list as the
//     download target (no quality negotiation)
//   - streams the rendition's binary from the network
//   - persists the binary plus derived metadata as a new OriginalVideo
//
// A fresh HTTP client is used per call; redirects are followed. Failures of
// any kind are returned as errors for the caller to record on the item -
// nothing is persisted for a failed candidate, and no error escapes past
// the batch worker that invoked this. On success the ID of the created
// asset is returned; recording it on the item is the caller's job, as item
// state is guarded by the services mutex.
func (item *IngestItem) ingest(eventBus event.EventCoordinator, store DataStore, downloadTimeout time.Duration) (uuid.UUID, error) {
	candidate := item.Candidate
	if len(candidate.VideoFiles) == 0 {
		return uuid.Nil, &DownloadFailedError{url: candidate.URL, reason: "candidate has no renditions to download"}
	}

	rendition := candidate.VideoFiles[0]
	log.Emit(logger.INFO, "Downloading video link %s\n", rendition.Link)

	httpClient := &http.Client{Timeout: downloadTimeout}
	resp, err := httpClient.Get(rendition.Link)
	if err != nil {
		return uuid.Nil, &DownloadFailedError{url: rendition.Link, reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return uuid.Nil, &DownloadFailedError{url: rendition.Link, httpCode: resp.StatusCode, reason: "non-OK response while downloading rendition"}
	}

	video := &media.OriginalVideo{
		Title:       candidate.URL,
		OriginalURL: &candidate.URL,
		Quality:     rendition.Quality,
		FileType:    rendition.FileType,
		Duration:    candidate.Duration,
		Width:       candidate.Width,
		Height:      candidate.Height,
		Fps:         rendition.Fps,
	}
	payload := &media.Payload{
		FileName:    fmt.Sprintf("video-%d.mp4", candidate.ID),
		ContentType: rendition.FileType,
		Content:     resp.Body,
	}

	if err := store.SaveOriginalVideo(video, payload); err != nil {
		return uuid.Nil, fmt.Errorf("failed to save ingested video for candidate %d: %w", candidate.ID, err)
	}

	eventBus.Dispatch(event.MEDIA_CREATED, video.ID)
	return video.ID, nil
}

// DownloadFailedError indicates that fetching a candidate's rendition
// binary failed - transport error, non-2xx response, or a candidate with
// no renditions at all. It carries the failing URL for the batch report.
type DownloadFailedError struct {
	url      string
	httpCode int
	reason   string
}

func (err *DownloadFailedError) Error() string {
	if err.httpCode != 0 {
		return fmt.Sprintf("download of %s failed (HTTP %d): %s", err.url, err.httpCode, err.reason)
	}

	return fmt.Sprintf("download of %s failed: %s", err.url, err.reason)
}

func (err *DownloadFailedError) URL() string { return err.url }
