package local

import (
	"context"
	"database/sql"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ErrUserNotFound is returned when no account matches the given email.
var ErrUserNotFound = goerrors.New("user not found", goerrors.CategoryNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrEmailTaken is returned when registering an email that already has an
// account.
var ErrEmailTaken = goerrors.New("email already registered", goerrors.CategoryConflict).
	WithCode(goerrors.CodeConflict)

// Store is the users table access layer.
type Store struct {
	db *bun.DB
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

// CreateSchema creates the users table if it does not exist.
func (s *Store) CreateSchema(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*User)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create users table")
	}
	return nil
}

// GetByEmail returns the account for the given email, ErrUserNotFound when
// there is none.
func (s *Store) GetByEmail(ctx context.Context, email string) (*User, error) {
	user := &User{}
	err := s.db.NewSelect().
		Model(user).
		Where("lower(email) = lower(?)", email).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if goerrors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load user")
	}
	return user, nil
}

// Register inserts a new account. A unique constraint hit maps to
// ErrEmailTaken.
func (s *Store) Register(ctx context.Context, user *User) (*User, error) {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}

	_, err := s.db.NewInsert().Model(user).Exec(ctx)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			return nil, ErrEmailTaken
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to register user")
	}
	return user, nil
}

// TrackAttemptedLogin increments the failed-attempt counter and stamps the
// attempt time.
func (s *Store) TrackAttemptedLogin(ctx context.Context, user *User) error {
	now := time.Now()
	_, err := s.db.NewUpdate().
		Model((*User)(nil)).
		Set("login_attempts = login_attempts + 1").
		Set("login_attempt_at = ?", now).
		Where("id = ?", user.ID).
		Exec(ctx)
	return err
}

// TrackSuccessfulLogin resets the attempt counter and records the login time.
func (s *Store) TrackSuccessfulLogin(ctx context.Context, user *User) error {
	// NOTE: updating through the ORM wont reset login_attempt_at to NULL, so
	// this goes through raw SQL.
	loggedInAt := time.Now()
	_, err := s.db.NewRaw(`
		UPDATE "users" AS "usr"
		SET
			"loggedin_at" = ?,
			"login_attempt_at" = NULL,
			"login_attempts" = 0
		WHERE
			("usr".id = ?)
			AND "usr"."deleted_at" IS NULL;
	`, loggedInAt, user.ID).Exec(ctx)
	return err
}
