package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/avolkov/tiergate/internal/common"
	"github.com/avolkov/tiergate/internal/dbx"
	"github.com/avolkov/tiergate/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const userColumns = `id, name, email, tier, token_version, password, created_date_time, modified_date_time`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanUser(row *sql.Row) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Tier, &u.TokenVersion,
		&u.PasswordHash, &u.CreatedAt, &u.ModifiedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// isUniqueViolation reports a violated unique constraint (Postgres 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (name, email, tier, password, created_date_time, modified_date_time)
		 VALUES ($1, $2, $3, $4, NOW(), NOW())
		 RETURNING ` + userColumns

	created, err := scanUser(r.db.QueryRowContext(ctx, query,
		user.Name, user.Email, user.Tier, user.PasswordHash))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, common.ErrorConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return created, nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) List(ctx context.Context, limit, offset int64) ([]*models.User, error) {
	query := `SELECT ` + userColumns + `
		 FROM users
		 ORDER BY name ASC, created_date_time DESC
		 LIMIT $1 OFFSET $2`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u := &models.User{}
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Tier, &u.TokenVersion,
			&u.PasswordHash, &u.CreatedAt, &u.ModifiedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return users, nil
}

func (r *PostgresRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

// Update writes only the columns enumerated in models.UserUpdate. Nil
// fields keep their stored value.
func (r *PostgresRepository) Update(ctx context.Context, id int64, upd models.UserUpdate) (*models.User, error) {
	query :=
		`UPDATE users SET
		     name = COALESCE($1, name),
		     email = COALESCE($2, email),
		     tier = COALESCE($3, tier),
		     password = COALESCE($4, password),
		     modified_date_time = NOW()
		 WHERE id = $5
		 RETURNING ` + userColumns

	user, err := scanUser(r.db.QueryRowContext(ctx, query,
		upd.Name, upd.Email, upd.Tier, upd.PasswordHash, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		if isUniqueViolation(err) {
			return nil, common.ErrorConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) CurrentTokenVersion(ctx context.Context, userID int64) (int64, error) {
	var version int64
	err := r.db.QueryRowContext(ctx,
		`SELECT token_version FROM users WHERE id = $1`, userID).Scan(&version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrorNotFound
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return version, nil
}

// IncrementTokenVersion advances the counter server-side so concurrent
// revocations cannot lose an update. A missing user is an error, never a
// silent success.
func (r *PostgresRepository) IncrementTokenVersion(ctx context.Context, userID int64) (int64, error) {
	query :=
		`UPDATE users
		 SET token_version = token_version + 1,
		     modified_date_time = NOW()
		 WHERE id = $1
		 RETURNING token_version`

	var version int64
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrorNotFound
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return version, nil
}
