package media

import (
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type (
	// OriginalVideo is the root media asset. It is created exactly once,
	// either by a direct user upload or by the catalog ingestion pipeline,
	// and owns exactly one binary payload (referenced by FileName).
	//
	// OriginalURL is only populated when the asset was ingested from an
	// external catalog; a direct upload leaves it nil.
	OriginalVideo struct {
		ID          uuid.UUID      `db:"id"`
		Title       string         `db:"title"`
		Description *string        `db:"description"`
		Tags        pq.StringArray `db:"tags"`
		FileName    string         `db:"file_name"`
		ContentType *string        `db:"content_type"`
		OriginalURL *string        `db:"original_url"`
		Quality     string         `db:"quality"`
		FileType    string         `db:"file_type"`
		Duration    int            `db:"duration"`
		Width       int            `db:"width"`
		Height      int            `db:"height"`
		Fps         float64        `db:"fps"`
		CreatedAt   time.Time      `db:"created_at"`
		UpdatedAt   time.Time      `db:"updated_at"`
	}

	// ProcessedVideo is a transcoded rendition derived from an
	// OriginalVideo. Rows are produced by an out-of-process transcoder
	// and cascade-deleted with their original.
	ProcessedVideo struct {
		ID              uuid.UUID `db:"id"`
		OriginalVideoID uuid.UUID `db:"original_video_id"`
		FileName        string    `db:"file_name"`
		Encoding        *string   `db:"encoding"`
		Bitrate         *int      `db:"bitrate"`
		AudioCodec      *string   `db:"audio_codec"`
		AudioBitrate    *int      `db:"audio_bitrate"`
		AudioSampleRate *int      `db:"audio_sample_rate"`
		AudioChannels   *int      `db:"audio_channels"`
		CreatedAt       time.Time `db:"created_at"`
		UpdatedAt       time.Time `db:"updated_at"`
	}

	// VideoPoster is the single still image associated with a video.
	VideoPoster struct {
		ID       uuid.UUID `db:"id"`
		VideoID  uuid.UUID `db:"video_id"`
		FileName string    `db:"file_name"`
		Width    *int      `db:"width"`
		Height   *int      `db:"height"`
	}

	// VideoTimelinePreview is one of many thumbnail frames used for
	// timeline scrubbing, keyed by its offset in to the video.
	VideoTimelinePreview struct {
		ID          uuid.UUID `db:"id"`
		VideoID     uuid.UUID `db:"video_id"`
		FileName    string    `db:"file_name"`
		PreviewTime *float64  `db:"preview_time"`
	}

	// Payload represents the binary content for a media asset, paired
	// with the filename and content type it should be stored under.
	Payload struct {
		FileName    string
		ContentType string
		Content     io.Reader
	}
)
