package media

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/pugtube/pugtube/internal/database"
	"github.com/pugtube/pugtube/pkg/logger"
)

var ErrVideoNotFound = errors.New("video does not exist")

var log = logger.Get("MediaStore")

type Store struct {
	payloads *PayloadStore
}

func NewStore(payloads *PayloadStore) *Store {
	return &Store{payloads: payloads}
}

// SaveOriginalVideo persists the binary payload and then inserts the asset
// row referencing it. If the row insertion fails, the payload written to
// disk is removed again so no orphaned binary remains.
//
// The videos ID is generated here if not already set; FileName and
// ContentType are always taken from the payload. No deduplication is
// performed: saving two videos with the same provenance URL creates two
// distinct assets.
func (store *Store) SaveOriginalVideo(db database.Queryable, video *OriginalVideo, payload *Payload) error {
	if video.ID == uuid.Nil {
		video.ID = uuid.New()
	}
	video.FileName = payload.FileName
	video.ContentType = &payload.ContentType

	if err := store.payloads.Save(payload); err != nil {
		return fmt.Errorf("failed to store payload for video '%s': %w", video.Title, err)
	}

	_, err := db.NamedExec(`
		INSERT INTO original_videos(id, title, description, tags, file_name, content_type, original_url,
			quality, file_type, duration, width, height, fps, created_at, updated_at)
		VALUES(:id, :title, :description, :tags, :file_name, :content_type, :original_url,
			:quality, :file_type, :duration, :width, :height, :fps, current_timestamp, current_timestamp)
	`, video)
	if err != nil {
		if removeErr := store.payloads.Remove(payload.FileName); removeErr != nil {
			log.Warnf("Failed to remove orphaned payload %s: %s\n", payload.FileName, removeErr.Error())
		}

		return fmt.Errorf("failed to insert original video: %w", err)
	}

	return nil
}

func (store *Store) GetOriginalVideo(db database.Queryable, id uuid.UUID) (*OriginalVideo, error) {
	query, args, err := selectOriginalVideoBuilder().Where("original_videos.id=?", id).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to construct select video query: %w", err)
	}

	var video OriginalVideo
	if err := db.Get(&video, db.Rebind(query), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVideoNotFound
		}

		return nil, err
	}

	return &video, nil
}

func (store *Store) ListOriginalVideos(db database.Queryable) ([]*OriginalVideo, error) {
	query, args, err := selectOriginalVideoBuilder().OrderBy("original_videos.created_at DESC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to construct list videos query: %w", err)
	}

	var results []OriginalVideo
	if err := db.Select(&results, db.Rebind(query), args...); err != nil {
		return nil, err
	}

	output := make([]*OriginalVideo, len(results))
	for k := range results {
		output[k] = &results[k]
	}

	return output, nil
}

// DeleteOriginalVideo removes the asset row - cascading deletion of any
// derived rows (processed renditions, poster, previews) is enforced by the
// schemas foreign keys - and then removes all associated payloads from disk.
func (store *Store) DeleteOriginalVideo(db database.Queryable, id uuid.UUID) error {
	video, err := store.GetOriginalVideo(db, id)
	if err != nil {
		return err
	}

	derivedFileNames := make([]string, 0)
	if processed, err := store.GetProcessedVideosFor(db, id); err == nil {
		for _, p := range processed {
			derivedFileNames = append(derivedFileNames, p.FileName)
		}
	}
	if poster, err := store.GetPosterForVideo(db, id); err == nil {
		derivedFileNames = append(derivedFileNames, poster.FileName)
	}
	if previews, err := store.GetTimelinePreviewsForVideo(db, id); err == nil {
		for _, p := range previews {
			derivedFileNames = append(derivedFileNames, p.FileName)
		}
	}

	if _, err := db.Exec(`DELETE FROM original_videos WHERE id=$1`, id); err != nil {
		return fmt.Errorf("failed to delete original video %s: %w", id, err)
	}

	derivedFileNames = append(derivedFileNames, video.FileName)
	for _, fileName := range derivedFileNames {
		if err := store.payloads.Remove(fileName); err != nil {
			log.Warnf("Failed to remove payload %s for deleted video %s: %s\n", fileName, id, err.Error())
		}
	}

	return nil
}

func (store *Store) SaveProcessedVideo(db database.Queryable, processed *ProcessedVideo) error {
	if processed.ID == uuid.Nil {
		processed.ID = uuid.New()
	}

	_, err := db.NamedExec(`
		INSERT INTO processed_videos(id, original_video_id, file_name, encoding, bitrate,
			audio_codec, audio_bitrate, audio_sample_rate, audio_channels, created_at, updated_at)
		VALUES(:id, :original_video_id, :file_name, :encoding, :bitrate,
			:audio_codec, :audio_bitrate, :audio_sample_rate, :audio_channels, current_timestamp, current_timestamp)
	`, processed)
	if err != nil {
		return fmt.Errorf("failed to insert processed video: %w", err)
	}

	return nil
}

func (store *Store) GetProcessedVideosFor(db database.Queryable, originalVideoID uuid.UUID) ([]*ProcessedVideo, error) {
	var results []ProcessedVideo
	if err := db.Select(&results, `SELECT * FROM processed_videos WHERE original_video_id=$1`, originalVideoID); err != nil {
		return nil, err
	}

	output := make([]*ProcessedVideo, len(results))
	for k := range results {
		output[k] = &results[k]
	}

	return output, nil
}

func (store *Store) SavePoster(db database.Queryable, poster *VideoPoster) error {
	if poster.ID == uuid.Nil {
		poster.ID = uuid.New()
	}

	_, err := db.NamedExec(`
		INSERT INTO video_posters(id, video_id, file_name, width, height)
		VALUES(:id, :video_id, :file_name, :width, :height)
		ON CONFLICT(video_id) DO UPDATE SET file_name=EXCLUDED.file_name, width=EXCLUDED.width, height=EXCLUDED.height
	`, poster)
	if err != nil {
		return fmt.Errorf("failed to upsert video poster: %w", err)
	}

	return nil
}

func (store *Store) GetPosterForVideo(db database.Queryable, videoID uuid.UUID) (*VideoPoster, error) {
	var poster VideoPoster
	if err := db.Get(&poster, `SELECT * FROM video_posters WHERE video_id=$1`, videoID); err != nil {
		return nil, err
	}

	return &poster, nil
}

func (store *Store) SaveTimelinePreview(db database.Queryable, preview *VideoTimelinePreview) error {
	if preview.ID == uuid.Nil {
		preview.ID = uuid.New()
	}

	_, err := db.NamedExec(`
		INSERT INTO video_timeline_previews(id, video_id, file_name, preview_time)
		VALUES(:id, :video_id, :file_name, :preview_time)
	`, preview)
	if err != nil {
		return fmt.Errorf("failed to insert timeline preview: %w", err)
	}

	return nil
}

func (store *Store) GetTimelinePreviewsForVideo(db database.Queryable, videoID uuid.UUID) ([]*VideoTimelinePreview, error) {
	var results []VideoTimelinePreview
	if err := db.Select(&results, `SELECT * FROM video_timeline_previews WHERE video_id=$1 ORDER BY preview_time ASC`, videoID); err != nil {
		return nil, err
	}

	output := make([]*VideoTimelinePreview, len(results))
	for k := range results {
		output[k] = &results[k]
	}

	return output, nil
}

func selectOriginalVideoBuilder() squirrel.SelectBuilder {
	return squirrel.
		Select("original_videos.*").
		From("original_videos")
}
