package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rmoralesc/accounthub/internal/domain/user"
	"github.com/rmoralesc/accounthub/internal/observability"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrEmailAlreadyUsed = errors.New("email already in use")
)

const userColumns = `id, name, email, password_hash, reset_token, reset_token_expiry, created_at, updated_at`

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError

	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	return false
}

// Create inserts a new user. Emails must be normalized by the caller; the
// store-level unique index still guards against raced duplicates.
func (r *UsersRepo) Create(ctx context.Context, name, email, passwordHash string) (user.User, error) {
	now := time.Now().UTC()

	u := user.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := r.observe("users.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO users (id, name, email, password_hash, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			u.ID, u.Name, u.Email, u.PasswordHash, u.CreatedAt, u.UpdatedAt,
		)
		return err
	})

	if err != nil {
		if IsUniqueViolation(err) {
			return user.User{}, ErrEmailAlreadyUsed
		}
		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	return r.getOne(ctx, "users.get_by_email",
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	return r.getOne(ctx, "users.get_by_id",
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// GetByResetToken only returns a row whose token is unexpired at the given
// instant; expiry filtering stays in SQL so validation and consumption agree.
func (r *UsersRepo) GetByResetToken(ctx context.Context, token string, now time.Time) (user.User, error) {
	return r.getOne(ctx, "users.get_by_reset_token",
		`SELECT `+userColumns+` FROM users WHERE reset_token = $1 AND reset_token_expiry > $2`,
		token, now.UTC())
}

func (r *UsersRepo) getOne(ctx context.Context, op, query string, args ...any) (user.User, error) {
	var u user.User

	err := r.observe(op, func() error {
		return r.pool.QueryRow(ctx, query, args...).Scan(
			&u.ID,
			&u.Name,
			&u.Email,
			&u.PasswordHash,
			&u.ResetToken,
			&u.ResetTokenExpiry,
			&u.CreatedAt,
			&u.UpdatedAt,
		)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, ErrUserNotFound
		}

		return user.User{}, err
	}
	return u, nil
}

// SetResetToken overwrites any previous token; a later forgot-password
// request supersedes the one before it.
func (r *UsersRepo) SetResetToken(ctx context.Context, id, token string, expiry time.Time) error {
	return r.exec(ctx, "users.set_reset_token",
		`UPDATE users
		 SET reset_token = $2, reset_token_expiry = $3, updated_at = NOW()
		 WHERE id = $1`,
		id, token, expiry.UTC())
}

// UpdatePasswordAndClearToken consumes a reset in one UPDATE so the hash
// swap and the token clear cannot be observed apart.
func (r *UsersRepo) UpdatePasswordAndClearToken(ctx context.Context, id, passwordHash string) error {
	return r.exec(ctx, "users.update_password",
		`UPDATE users
		 SET password_hash = $2, reset_token = NULL, reset_token_expiry = NULL, updated_at = NOW()
		 WHERE id = $1`,
		id, passwordHash)
}

func (r *UsersRepo) exec(ctx context.Context, op, query string, args ...any) error {
	var tag pgconn.CommandTag

	err := r.observe(op, func() error {
		var err error

		tag, err = r.pool.Exec(ctx, query, args...)

		return err
	})

	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

// CRUD surface for the user-management service.

func (r *UsersRepo) List(ctx context.Context) ([]user.User, error) {
	var users []user.User

	err := r.observe("users.list", func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT `+userColumns+` FROM users ORDER BY created_at, id`)

		if err != nil {
			return err
		}

		defer rows.Close()

		for rows.Next() {
			var u user.User

			err := rows.Scan(
				&u.ID,
				&u.Name,
				&u.Email,
				&u.PasswordHash,
				&u.ResetToken,
				&u.ResetTokenExpiry,
				&u.CreatedAt,
				&u.UpdatedAt,
			)

			if err != nil {
				return err
			}

			users = append(users, u)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return users, nil
}

func (r *UsersRepo) Update(ctx context.Context, id, name, email string) error {
	err := r.exec(ctx, "users.update",
		`UPDATE users SET name = $2, email = $3, updated_at = NOW() WHERE id = $1`,
		id, name, email)

	if err != nil && IsUniqueViolation(err) {
		return ErrEmailAlreadyUsed
	}

	return err
}

func (r *UsersRepo) Delete(ctx context.Context, id string) error {
	return r.exec(ctx, "users.delete", `DELETE FROM users WHERE id = $1`, id)
}
