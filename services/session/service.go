// Package session implements the username-only login model: a user row is
// created on first login and the browser holds a capability-scoped token
// persisted server-side.
package session

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"reelist/internal/database"
	"reelist/models"
	"reelist/utils"
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9_.-]{1,64}$`)

// Service issues and resolves sessions.
type Service struct {
	db     *database.DB
	ttl    time.Duration
	logger *logrus.Logger
}

// NewService creates a session service with the given token lifetime.
func NewService(db *database.DB, ttl time.Duration, logger *logrus.Logger) *Service {
	return &Service{
		db:     db,
		ttl:    ttl,
		logger: logger,
	}
}

// Login normalizes the username, creates the user on first login, and
// issues a fresh session token.
func (s *Service) Login(ctx context.Context, username string) (*models.Session, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if !usernamePattern.MatchString(username) {
		return nil, models.Validationf("username must be 1-64 characters of a-z, 0-9, '_', '.', '-'")
	}

	user, err := s.db.Users.GetOrCreate(ctx, username)
	if err != nil {
		return nil, models.Internal(err)
	}

	token, err := utils.GenerateSessionToken()
	if err != nil {
		return nil, models.Internal(err)
	}

	now := time.Now().UTC()
	sess := &models.Session{
		Token:     token,
		UserID:    user.ID,
		Username:  user.Username,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.db.Users.CreateSession(ctx, sess); err != nil {
		return nil, models.Internal(err)
	}

	s.logger.WithField("username", username).Info("Session issued")
	return sess, nil
}

// Resolve returns the session for a token, deleting it lazily when expired.
func (s *Service) Resolve(ctx context.Context, token string) (*models.Session, error) {
	if token == "" {
		return nil, models.Unauthorizedf("not logged in")
	}

	sess, err := s.db.Users.GetSession(ctx, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.Unauthorizedf("not logged in")
		}
		return nil, models.Internal(err)
	}

	if sess.Expired() {
		_ = s.db.Users.DeleteSession(ctx, token)
		return nil, models.Unauthorizedf("session expired")
	}
	return sess, nil
}

// Logout revokes a token. Revoking an unknown token succeeds.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.db.Users.DeleteSession(ctx, token); err != nil {
		return models.Internal(err)
	}
	return nil
}

// PurgeExpired removes expired session rows.
func (s *Service) PurgeExpired(ctx context.Context) error {
	if err := s.db.Users.DeleteExpiredSessions(ctx); err != nil {
		return models.Internal(err)
	}
	return nil
}
