package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/p-n-ai/tsea/internal/progress"
)

const (
	dbTimeout = 5 * time.Second

	uniqueViolation = "23505"
)

// PostgresStore is a PostgreSQL-backed Store using the users table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a user store over pool.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Create(ctx context.Context, u User) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, email, name, password_hash, tier, created_at)
		 VALUES ($1::uuid, $2, $3, $4, $5, $6)`,
		u.ID,
		u.Email,
		u.Name,
		string(u.PasswordHash),
		u.Tier.String(),
		u.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) ByID(ctx context.Context, id string) (User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return User{}, ErrUserNotFound
	}
	return s.one(ctx, `WHERE id = $1::uuid`, id)
}

func (s *PostgresStore) ByEmail(ctx context.Context, email string) (User, error) {
	return s.one(ctx, `WHERE email = $1`, email)
}

func (s *PostgresStore) SetTier(ctx context.Context, id string, tier progress.Tier) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if _, err := uuid.Parse(id); err != nil {
		return ErrUserNotFound
	}
	cmd, err := s.pool.Exec(ctx,
		`UPDATE users SET tier = $2 WHERE id = $1::uuid`,
		id,
		tier.String(),
	)
	if err != nil {
		return fmt.Errorf("set tier: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *PostgresStore) one(ctx context.Context, where string, arg any) (User, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var u User
	var hash, tier string
	err := s.pool.QueryRow(ctx,
		`SELECT id::text, email, name, password_hash, tier, created_at FROM users `+where,
		arg,
	).Scan(&u.ID, &u.Email, &u.Name, &hash, &tier, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("get user: %w", err)
	}

	u.PasswordHash = []byte(hash)
	if err := u.Tier.UnmarshalText([]byte(tier)); err != nil {
		return User{}, fmt.Errorf("user %s: %w", u.ID, err)
	}
	return u, nil
}
