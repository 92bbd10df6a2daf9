package users

import (
	"context"

	"github.com/avolkov/tiergate/internal/server/models"
)

// Repository persists user records. CurrentTokenVersion and
// IncrementTokenVersion together form the revocation store: the counter
// is read on every authenticated request and advanced server-side to
// invalidate all outstanding tokens for a user.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	List(ctx context.Context, limit, offset int64) ([]*models.User, error)
	Count(ctx context.Context) (int64, error)
	Update(ctx context.Context, id int64, upd models.UserUpdate) (*models.User, error)
	Delete(ctx context.Context, id int64) error

	CurrentTokenVersion(ctx context.Context, userID int64) (int64, error)
	IncrementTokenVersion(ctx context.Context, userID int64) (int64, error)
}
