package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/yangakandeni/kwella/internal/shared/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

// PgRepository — Postgres реализация Repository
type PgRepository struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

// NewPgRepository создает Postgres репозиторий пользователей
func NewPgRepository(pool *pgxpool.Pool, log *logger.Logger) *PgRepository {
	return &PgRepository{pool: pool, log: log}
}

// FindByID находит пользователя по ID
func (r *PgRepository) FindByID(ctx context.Context, userID string) (*User, error) {
	const q = `
		SELECT id, phone_number, first_name, last_name, type, is_staff, is_active, date_joined
		FROM users
		WHERE id = $1`

	var u User
	err := r.pool.QueryRow(ctx, q, userID).Scan(
		&u.ID,
		&u.PhoneNumber,
		&u.FirstName,
		&u.LastName,
		&u.Type,
		&u.IsStaff,
		&u.IsActive,
		&u.DateJoined,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user %s: %w", userID, err)
	}

	return &u, nil
}

// Create сохраняет нового пользователя, хешируя пароль через bcrypt
func (r *PgRepository) Create(ctx context.Context, u *User, password string) error {
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	const q = `
		INSERT INTO users (id, phone_number, first_name, last_name, type, is_staff, is_active, password_hash, date_joined)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = r.pool.Exec(ctx, q,
		u.ID,
		u.PhoneNumber,
		u.FirstName,
		u.LastName,
		u.Type,
		u.IsStaff,
		u.IsActive,
		string(passwordHash),
		u.DateJoined,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrPhoneNumberTaken
		}
		return fmt.Errorf("create user: %w", err)
	}

	r.log.Info(logger.Entry{
		Action:  "user_created",
		Message: u.PhoneNumber,
		Additional: map[string]any{
			"user_id": u.ID,
			"type":    u.Type,
		},
	})

	return nil
}
