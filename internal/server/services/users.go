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

// UserUpdateInput enumerates the fields a caller may change. Password is
// plaintext here and hashed before it reaches storage.
type UserUpdateInput struct {
	Name     *string
	Email    *string
	Tier     *int64
	Password *string
}

// UserService covers user management around the auth core.
type UserService struct {
	db    *sql.DB
	repos repomanager.RepositoryManager
	cache VersionInvalidator
}

func NewUserService(db *sql.DB, repos repomanager.RepositoryManager, cache VersionInvalidator) *UserService {
	return &UserService{db: db, repos: repos, cache: cache}
}

func (s *UserService) Get(ctx context.Context, id int64) (*models.User, error) {
	return s.repos.Users(s.db).GetByID(ctx, id)
}

// List returns a page of users plus the total count.
func (s *UserService) List(ctx context.Context, page, limit int64) ([]*models.User, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	repo := s.repos.Users(s.db)

	users, err := repo.List(ctx, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, fmt.Errorf("error listing users: %w", err)
	}
	count, err := repo.Count(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("error counting users: %w", err)
	}
	return users, count, nil
}

// Update applies the given fields. An email change re-checks uniqueness;
// a password change hashes the new value and revokes all outstanding
// tokens in the same transaction, so stolen credentials die with the old
// password.
func (s *UserService) Update(ctx context.Context, id int64, in UserUpdateInput) (*models.User, error) {
	repo := s.repos.Users(s.db)

	if in.Email != nil {
		existing, err := repo.GetByEmail(ctx, *in.Email)
		if err == nil && existing.ID != id {
			return nil, common.ErrorConflict
		}
		if err != nil && !errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorInternal
		}
	}

	upd := models.UserUpdate{Name: in.Name, Email: in.Email, Tier: in.Tier}
	if in.Password != nil {
		hash, err := auth.HashPassword(*in.Password)
		if err != nil {
			return nil, common.ErrorInternal
		}
		upd.PasswordHash = &hash
	}

	if upd.PasswordHash == nil {
		return repo.Update(ctx, id, upd)
	}

	var updated *models.User
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		txRepo := s.repos.Users(tx)
		var err error
		updated, err = txRepo.Update(ctx, id, upd)
		if err != nil {
			return err
		}
		_, err = txRepo.IncrementTokenVersion(ctx, id)
		return err
	}); err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Invalidate(id)
	}
	return updated, nil
}

func (s *UserService) Delete(ctx context.Context, id int64) error {
	return s.repos.Users(s.db).Delete(ctx, id)
}
