package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"wingo-backend/internal/models"
)

// uniqueViolation is the Postgres SQLSTATE for a unique constraint failure
const uniqueViolation = "23505"

type UserRepository struct {
	DB *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{DB: db}
}

const userColumns = `id, phone_number, email, password_hash, name, address, is_verified, created_at, last_login`

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(&user.ID, &user.PhoneNumber, &user.Email, &user.PasswordHash, &user.Name,
		&user.Address, &user.IsVerified, &user.CreatedAt, &user.LastLogin)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// Create inserts a user. A duplicate phone number or email returns ErrPhoneTaken.
func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	err := r.DB.QueryRow(ctx,
		`INSERT INTO users(id, phone_number, email, password_hash, name, address, is_verified, last_login)
         VALUES($1, $2, $3, $4, $5, $6, $7, $8)
         RETURNING created_at`,
		u.ID, u.PhoneNumber, u.Email, u.PasswordHash, u.Name, u.Address, u.IsVerified, u.LastLogin,
	).Scan(&u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return models.ErrPhoneTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *UserRepository) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := scanUser(r.DB.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id=$1`, id))
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, err
}

func (r *UserRepository) GetByPhone(ctx context.Context, phone string) (*models.User, error) {
	user, err := scanUser(r.DB.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE phone_number=$1`, phone))
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("failed to get user by phone: %w", err)
	}
	return user, err
}

// TouchLastLogin sets last_login in a single statement and marks the
// user verified, returning the updated record.
func (r *UserRepository) TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) (*models.User, error) {
	user, err := scanUser(r.DB.QueryRow(ctx,
		`UPDATE users SET last_login=$2, is_verified=TRUE, updated_at=NOW()
         WHERE id=$1
         RETURNING `+userColumns, id, at))
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("failed to update last login: %w", err)
	}
	return user, err
}

// UpdateProfile applies a partial update; nil fields keep their stored value
func (r *UserRepository) UpdateProfile(ctx context.Context, id uuid.UUID, req *models.UpdateProfileRequest) (*models.User, error) {
	user, err := scanUser(r.DB.QueryRow(ctx,
		`UPDATE users SET name=COALESCE($2, name), address=COALESCE($3, address), updated_at=NOW()
         WHERE id=$1
         RETURNING `+userColumns, id, req.Name, req.Address))
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return user, err
}

func (r *UserRepository) SetPasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	tag, err := r.DB.Exec(ctx,
		`UPDATE users SET password_hash=$2, updated_at=NOW() WHERE id=$1`, id, hash)
	if err != nil {
		return fmt.Errorf("failed to set password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrUserNotFound
	}
	return nil
}
