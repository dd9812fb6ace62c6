package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/meridian-portal/meridian/internal/platform/db"
	"github.com/meridian-portal/meridian/internal/shared"
)

// Repository defines persistence operations for the auth module.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindByID(ctx context.Context, id uuid.UUID) (*Account, error)
	CreateAccount(ctx context.Context, reg Registration) (*Account, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	CreateSession(ctx context.Context, id string, userID uuid.UUID, expiresAt time.Time, ip, ua string) error
	DeleteSession(ctx context.Context, id string) error
	DeleteSessionsForUser(ctx context.Context, userID uuid.UUID) error
	CreateResetToken(ctx context.Context, tokenHash string, userID uuid.UUID, expiresAt time.Time) error
	ConsumeResetToken(ctx context.Context, tokenHash string) (uuid.UUID, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool db.Querier
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool db.Querier) *PGRepository {
	return &PGRepository{pool: pool}
}

const accountColumns = `id, email, password_hash, first_name, last_name, role, is_active, email_verified, created_at, updated_at`

func scanAccount(row pgx.Row) (*Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.FirstName, &a.LastName, &a.RoleName, &a.IsActive, &a.EmailVerified, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// FindByEmail fetches an account by email, case-insensitive.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM profiles WHERE lower(email) = lower($1)`, email)
	return scanAccount(row)
}

// FindByID fetches an account by ID.
func (r *PGRepository) FindByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM profiles WHERE id = $1`, id)
	return scanAccount(row)
}

// CreateAccount inserts a new profile with the default role. A duplicate
// email maps to shared.ErrEmailTaken.
func (r *PGRepository) CreateAccount(ctx context.Context, reg Registration) (*Account, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO profiles (email, password_hash, first_name, last_name)
		 VALUES (lower($1), $2, $3, $4)
		 RETURNING `+accountColumns,
		reg.Email, reg.PasswordHash, reg.FirstName, reg.LastName)
	account, err := scanAccount(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, shared.ErrEmailTaken
		}
		return nil, err
	}
	return account, nil
}

// UpdatePassword replaces the stored password hash.
func (r *PGRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE profiles SET password_hash = $2, updated_at = NOW() WHERE id = $1`,
		id, passwordHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// CreateSession persists login session metadata for auditing.
func (r *PGRepository) CreateSession(ctx context.Context, id string, userID uuid.UUID, expiresAt time.Time, ip, ua string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO sessions (id, user_id, expires_at, ip, ua)
		 VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''))
		 ON CONFLICT (id) DO UPDATE SET expires_at = EXCLUDED.expires_at`,
		id, userID, expiresAt.UTC(), ip, ua)
	return err
}

// DeleteSession removes a session record.
func (r *PGRepository) DeleteSession(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}

// DeleteSessionsForUser removes every session record belonging to a user.
func (r *PGRepository) DeleteSessionsForUser(ctx context.Context, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	return err
}

// CreateResetToken stores a hashed password reset token.
func (r *PGRepository) CreateResetToken(ctx context.Context, tokenHash string, userID uuid.UUID, expiresAt time.Time) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO password_reset_tokens (token_hash, user_id, expires_at) VALUES ($1, $2, $3)`,
		tokenHash, userID, expiresAt.UTC())
	return err
}

// ConsumeResetToken marks the token used and returns its owner. Expired or
// already consumed tokens map to shared.ErrTokenInvalid.
func (r *PGRepository) ConsumeResetToken(ctx context.Context, tokenHash string) (uuid.UUID, error) {
	var userID uuid.UUID
	err := r.pool.QueryRow(ctx,
		`UPDATE password_reset_tokens
		 SET used_at = NOW()
		 WHERE token_hash = $1 AND used_at IS NULL AND expires_at > NOW()
		 RETURNING user_id`,
		tokenHash).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, shared.ErrTokenInvalid
		}
		return uuid.Nil, err
	}
	return userID, nil
}

var _ Repository = (*PGRepository)(nil)
