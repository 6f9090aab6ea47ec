package internal

import (
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pugtube/pugtube/internal/database"
	"github.com/pugtube/pugtube/internal/media"
	"github.com/pugtube/pugtube/internal/user"
)

// storeOrchestrator binds the individual stores to the database manager,
// exposing the store operations without each caller needing a DB handle.
// Operations which must be atomic across multiple rows are wrapped in a
// transaction here.
type storeOrchestrator struct {
	db         database.Manager
	mediaStore *media.Store
	userStore  *user.Store
}

func newStoreOrchestrator(db database.Manager, mediaStore *media.Store, userStore *user.Store) *storeOrchestrator {
	return &storeOrchestrator{db: db, mediaStore: mediaStore, userStore: userStore}
}

// SaveOriginalVideo satisfies the ingest services DataStore contract.
func (orchestrator *storeOrchestrator) SaveOriginalVideo(video *media.OriginalVideo, payload *media.Payload) error {
	return orchestrator.db.WrapTx(func(tx *sqlx.Tx) error {
		return orchestrator.mediaStore.SaveOriginalVideo(tx, video, payload)
	})
}

func (orchestrator *storeOrchestrator) ListOriginalVideos() ([]*media.OriginalVideo, error) {
	return orchestrator.mediaStore.ListOriginalVideos(orchestrator.db.GetSqlxDb())
}

func (orchestrator *storeOrchestrator) GetOriginalVideo(id uuid.UUID) (*media.OriginalVideo, error) {
	return orchestrator.mediaStore.GetOriginalVideo(orchestrator.db.GetSqlxDb(), id)
}

func (orchestrator *storeOrchestrator) DeleteOriginalVideo(id uuid.UUID) error {
	return orchestrator.db.WrapTx(func(tx *sqlx.Tx) error {
		return orchestrator.mediaStore.DeleteOriginalVideo(tx, id)
	})
}

func (orchestrator *storeOrchestrator) GetProcessedVideosFor(id uuid.UUID) ([]*media.ProcessedVideo, error) {
	return orchestrator.mediaStore.GetProcessedVideosFor(orchestrator.db.GetSqlxDb(), id)
}

func (orchestrator *storeOrchestrator) GetPosterForVideo(id uuid.UUID) (*media.VideoPoster, error) {
	return orchestrator.mediaStore.GetPosterForVideo(orchestrator.db.GetSqlxDb(), id)
}

func (orchestrator *storeOrchestrator) GetTimelinePreviewsForVideo(id uuid.UUID) ([]*media.VideoTimelinePreview, error) {
	return orchestrator.mediaStore.GetTimelinePreviewsForVideo(orchestrator.db.GetSqlxDb(), id)
}

// CreateUser creates the user row and its sibling profile/account rows
// inside a single transaction; a user never exists without them.
func (orchestrator *storeOrchestrator) CreateUser(username []byte, password []byte) (uuid.UUID, error) {
	var id uuid.UUID
	err := orchestrator.db.WrapTx(func(tx *sqlx.Tx) error {
		var createErr error
		id, createErr = orchestrator.userStore.Create(tx, username, password)
		return createErr
	})

	return id, err
}

func (orchestrator *storeOrchestrator) ListUsers() ([]*user.User, error) {
	return orchestrator.userStore.List(orchestrator.db.GetSqlxDb())
}

func (orchestrator *storeOrchestrator) GetUserWithID(id uuid.UUID) (*user.User, error) {
	return orchestrator.userStore.GetWithID(orchestrator.db.GetSqlxDb(), id)
}

// GetUserWithCredentials verifies the raw password against the stored hash
// and, on success, records the login timestamp.
func (orchestrator *storeOrchestrator) GetUserWithCredentials(username []byte, password []byte) (*user.User, error) {
	found, err := orchestrator.userStore.GetWithUsernameAndPassword(orchestrator.db.GetSqlxDb(), username, password)
	if err != nil {
		return nil, err
	}

	if err := orchestrator.userStore.RecordLogin(orchestrator.db.GetSqlxDb(), found.ID); err != nil {
		return nil, err
	}

	return found, nil
}

func (orchestrator *storeOrchestrator) GetUserProfile(userID uuid.UUID) (*user.Profile, error) {
	return orchestrator.userStore.GetProfile(orchestrator.db.GetSqlxDb(), userID)
}

func (orchestrator *storeOrchestrator) GetUserAccount(userID uuid.UUID) (*user.Account, error) {
	return orchestrator.userStore.GetAccount(orchestrator.db.GetSqlxDb(), userID)
}
