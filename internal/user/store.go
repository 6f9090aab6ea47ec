package user

import (
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/pugtube/pugtube/internal/database"
)

var ErrUserNotFound = errors.New("user does not exist")

const (
	StatusOnline  = "online"
	StatusOffline = "offline"

	SubscriptionFree    = "free"
	SubscriptionPremium = "premium"
)

type (
	User struct {
		ID             uuid.UUID  `db:"id"`
		Username       string     `db:"username"`
		HashedPassword []byte     `db:"password" json:"-"`
		HashSalt       []byte     `db:"salt" json:"-"`
		CreatedAt      time.Time  `db:"created_at"`
		UpdatedAt      time.Time  `db:"updated_at"`
		LastLoginAt    *time.Time `db:"last_login"`
	}

	Profile struct {
		ID             uuid.UUID `db:"id"`
		UserID         uuid.UUID `db:"user_id"`
		Bio            string    `db:"bio"`
		ProfilePicture *string   `db:"profile_picture"`
		OnlineStatus   string    `db:"online_status"`
	}

	Account struct {
		ID                 uuid.UUID `db:"id"`
		UserID             uuid.UUID `db:"user_id"`
		SubscriptionStatus bool      `db:"subscription_status"`
		SubscriptionType   string    `db:"subscription_type"`
	}

	Store struct {
		hasher *credentialHasher
	}
)

func NewStore() *Store {
	return &Store{newCredentialHasher()}
}

// Create inserts a new user row and then, as an explicit follow-up step,
// the users blank profile and free-tier account. The caller is expected to
// run this inside a transaction so that a user never exists without its
// sibling rows; nothing here happens implicitly on row creation.
func (store *Store) Create(db database.Queryable, username []byte, rawPassword []byte) (uuid.UUID, error) {
	digest, salt, err := store.hasher.HashPassword(rawPassword)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to hash provided password: %w", err)
	}

	userID := uuid.New()
	_, err = db.Exec(`
		INSERT INTO users(id, username, password, salt, created_at, updated_at, last_login)
		VALUES ($1, $2, $3, $4, current_timestamp, current_timestamp, NULL)
	`, userID, username, digest, salt)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert new user: %w", err)
	}

	if err := store.createSiblingRecords(db, userID); err != nil {
		return uuid.Nil, err
	}

	return userID, nil
}

// createSiblingRecords provisions the profile and account rows every user
// owns from the moment of creation.
func (store *Store) createSiblingRecords(db database.Queryable, userID uuid.UUID) error {
	if _, err := db.Exec(`
		INSERT INTO profiles(id, user_id, bio, online_status)
		VALUES ($1, $2, '', $3)
	`, uuid.New(), userID, StatusOffline); err != nil {
		return fmt.Errorf("failed to insert profile for new user: %w", err)
	}

	if _, err := db.Exec(`
		INSERT INTO accounts(id, user_id, subscription_status, subscription_type)
		VALUES ($1, $2, FALSE, $3)
	`, uuid.New(), userID, SubscriptionFree); err != nil {
		return fmt.Errorf("failed to insert account for new user: %w", err)
	}

	return nil
}

func (store *Store) List(db database.Queryable) ([]*User, error) {
	query, args, err := selectUserBuilder().ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to construct list users query: %w", err)
	}

	var results []User
	if err := db.Select(&results, db.Rebind(query), args...); err != nil {
		return nil, err
	}

	output := make([]*User, len(results))
	for k := range results {
		output[k] = &results[k]
	}

	return output, nil
}

// GetWithUsernameAndPassword finds a user with the matching username and
// returns it IF and ONLY IF the raw (unhashed) password provided hashes
// to the stored hash using the stored salt.
func (store *Store) GetWithUsernameAndPassword(db database.Queryable, username []byte, rawPassword []byte) (*User, error) {
	query, args, err := selectUserBuilder().Where("users.username=?", username).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to construct select user query: %w", err)
	}

	var user User
	if err := db.Get(&user, db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to find user with username %s: %w", username, err)
	}

	if err := store.hasher.VerifyPassword(user.HashedPassword, user.HashSalt, rawPassword); err != nil {
		return nil, fmt.Errorf("password supplied for user %s is invalid: %v", username, err)
	}

	return &user, nil
}

func (store *Store) GetWithID(db database.Queryable, id uuid.UUID) (*User, error) {
	query, args, err := selectUserBuilder().Where("users.id=?", id).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to construct select user query: %w", err)
	}

	var user User
	if err := db.Get(&user, db.Rebind(query), args...); err != nil {
		return nil, ErrUserNotFound
	}

	return &user, nil
}

func (store *Store) GetProfile(db database.Queryable, userID uuid.UUID) (*Profile, error) {
	var profile Profile
	if err := db.Get(&profile, `SELECT * FROM profiles WHERE user_id=$1`, userID); err != nil {
		return nil, err
	}

	return &profile, nil
}

func (store *Store) GetAccount(db database.Queryable, userID uuid.UUID) (*Account, error) {
	var account Account
	if err := db.Get(&account, `SELECT * FROM accounts WHERE user_id=$1`, userID); err != nil {
		return nil, err
	}

	return &account, nil
}

func (store *Store) RecordLogin(db database.Queryable, userID uuid.UUID) error {
	_, err := db.Exec(`UPDATE users SET last_login=current_timestamp WHERE id = $1`, userID)
	return err
}

func selectUserBuilder() squirrel.SelectBuilder {
	return squirrel.
		Select("users.*").
		From("users")
}
