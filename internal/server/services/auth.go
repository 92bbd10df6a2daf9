// Package services contains server-side business logic: authentication
// flows (register, login, logout, refresh, password reset) and user
// management.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/avolkov/tiergate/internal/common"
	"github.com/avolkov/tiergate/internal/dbx"
	"github.com/avolkov/tiergate/internal/server/auth"
	"github.com/avolkov/tiergate/internal/server/models"
	"github.com/avolkov/tiergate/internal/server/repositories/repomanager"
)

// Mailer delivers a password-reset token to the user. Delivery is an
// external concern; the service only hands the token over.
type Mailer interface {
	SendPasswordReset(ctx context.Context, email, token string) error
}

// VersionInvalidator drops a cached token version after a revoke. May be
// nil when no version cache is configured.
type VersionInvalidator interface {
	Invalidate(userID int64)
}

// AuthService implements the authentication flows. Revocation goes
// through the users repository's atomic increment; AuthService never
// reads-then-writes the version itself.
type AuthService struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	issuer *auth.Issuer
	secret []byte
	mailer Mailer
	cache  VersionInvalidator
}

func NewAuthService(db *sql.DB, repos repomanager.RepositoryManager, issuer *auth.Issuer, secret []byte, mailer Mailer, cache VersionInvalidator) *AuthService {
	return &AuthService{db: db, repos: repos, issuer: issuer, secret: secret, mailer: mailer, cache: cache}
}

func (s *AuthService) invalidate(userID int64) {
	if s.cache != nil {
		s.cache.Invalidate(userID)
	}
}

// Register creates a user and issues the first token pair. The fresh
// record starts at token version 0.
func (s *AuthService) Register(ctx context.Context, name, email, password string, tier int64) (*models.User, *auth.TokenPair, error) {
	repo := s.repos.Users(s.db)

	if _, err := repo.GetByEmail(ctx, email); err == nil {
		return nil, nil, common.ErrorConflict
	} else if !errors.Is(err, common.ErrorNotFound) {
		return nil, nil, common.ErrorInternal
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, nil, common.ErrorInternal
	}

	user, err := repo.Create(ctx, &models.User{
		Name: name, Email: email, Tier: tier, PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, common.ErrorConflict) {
			return nil, nil, common.ErrorConflict
		}
		return nil, nil, fmt.Errorf("error creating user: %w", err)
	}

	pair, err := s.issuer.IssueAuthTokens(user.ID, user.Tier, user.TokenVersion)
	if err != nil {
		return nil, nil, common.ErrorInternal
	}
	return user, pair, nil
}

// Login verifies credentials and issues a pair embedding the user's
// current token version. Unknown email and wrong password collapse to
// the same error.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, *auth.TokenPair, error) {
	repo := s.repos.Users(s.db)

	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil, common.ErrorInvalidLoginPassword
		}
		return nil, nil, common.ErrorInternal
	}

	if !auth.CheckPassword(password, user.PasswordHash) {
		return nil, nil, common.ErrorInvalidLoginPassword
	}

	pair, err := s.issuer.IssueAuthTokens(user.ID, user.Tier, user.TokenVersion)
	if err != nil {
		return nil, nil, common.ErrorInternal
	}
	return user, pair, nil
}

// Logout revokes every outstanding token for the user by advancing the
// token version. Returns the new version. A missing user is
// common.ErrorNotFound, not a silent success.
func (s *AuthService) Logout(ctx context.Context, userID int64) (int64, error) {
	version, err := s.repos.Users(s.db).IncrementTokenVersion(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return 0, common.ErrorNotFound
		}
		return 0, fmt.Errorf("error revoking tokens: %w", err)
	}
	s.invalidate(userID)
	return version, nil
}

// Refresh exchanges a valid refresh token for a fresh pair. Tier is
// re-read from the user record, never taken from the old token, and the
// refresh token's version is checked against the store like any other
// credential. Storage failures reject.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	claims, err := auth.DecodeRefresh(refreshToken, s.secret)
	if err != nil {
		return nil, common.ErrInvalidToken
	}

	user, err := s.repos.Users(s.db).GetByID(ctx, *claims.UserID)
	if err != nil {
		return nil, common.ErrInvalidToken
	}
	if user.TokenVersion != *claims.TokenVersion {
		return nil, common.ErrInvalidToken
	}

	pair, err := s.issuer.IssueAuthTokens(user.ID, user.Tier, user.TokenVersion)
	if err != nil {
		return nil, common.ErrorInternal
	}
	return pair, nil
}

// ForgotPassword issues a reset token for the account and hands it to
// the mailer.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.repos.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return common.ErrorInternal
	}

	token, err := s.issuer.IssueResetToken(user.ID)
	if err != nil {
		return common.ErrorInternal
	}
	if err := s.mailer.SendPasswordReset(ctx, user.Email, token); err != nil {
		return fmt.Errorf("error sending reset email: %w", err)
	}
	return nil
}

// ResetPassword validates the reset token and, in one transaction, sets
// the new password and revokes all outstanding auth tokens. The reset
// token itself is not tracked as used and stays decodable until exp;
// revoking on completion is what bounds the damage of a captured token.
func (s *AuthService) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	claims, err := auth.DecodeReset(resetToken, s.secret)
	if err != nil {
		return common.ErrInvalidToken
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return common.ErrorInternal
	}

	userID := *claims.ID
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repos.Users(tx)
		if _, err := repo.Update(ctx, userID, models.UserUpdate{PasswordHash: &hash}); err != nil {
			return err
		}
		_, err := repo.IncrementTokenVersion(ctx, userID)
		return err
	}); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("error resetting password: %w", err)
	}

	s.invalidate(userID)
	return nil
}
