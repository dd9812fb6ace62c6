package profiles

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/meridian-portal/meridian/internal/platform/db"
	"github.com/meridian-portal/meridian/internal/rbac"
	"github.com/meridian-portal/meridian/internal/shared"
)

// Repository provides PostgreSQL backed persistence for profiles.
type Repository struct {
	pool db.Querier
}

// NewRepository constructs a repository.
func NewRepository(pool db.Querier) *Repository {
	return &Repository{pool: pool}
}

const profileColumns = `id, email, first_name, last_name, role, is_active, email_verified, created_at, updated_at`

func scanProfile(row pgx.Row) (Profile, error) {
	var p Profile
	err := row.Scan(&p.ID, &p.Email, &p.FirstName, &p.LastName, &p.RoleName, &p.IsActive, &p.EmailVerified, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Profile{}, shared.ErrNotFound
		}
		return Profile{}, err
	}
	return p, nil
}

// GetProfile fetches a profile by ID.
func (r *Repository) GetProfile(ctx context.Context, id uuid.UUID) (Profile, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id)
	return scanProfile(row)
}

// ProfileByID implements rbac.ProfileSource.
func (r *Repository) ProfileByID(ctx context.Context, id uuid.UUID) (rbac.ProfileRecord, error) {
	p, err := r.GetProfile(ctx, id)
	if err != nil {
		return rbac.ProfileRecord{}, err
	}
	return rbac.ProfileRecord{
		ID:        p.ID,
		Email:     p.Email,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		RoleName:  p.RoleName,
		IsActive:  p.IsActive,
	}, nil
}

// ListProfiles returns one page of profiles ordered by first name, and
// the total row count for pagination.
func (r *Repository) ListProfiles(ctx context.Context, limit, offset int) ([]Profile, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+profileColumns+` FROM profiles ORDER BY first_name, last_name, id LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Profile
	for rows.Next() {
		var p Profile
		if err := rows.Scan(&p.ID, &p.Email, &p.FirstName, &p.LastName, &p.RoleName, &p.IsActive, &p.EmailVerified, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// SearchProfiles matches profiles whose first or last name contains the
// query (case-insensitive), or whose ID equals it exactly.
func (r *Repository) SearchProfiles(ctx context.Context, query string, limit int) ([]Profile, error) {
	pattern := "%" + escapeLike(query) + "%"
	var exactID any
	if id, err := uuid.Parse(strings.TrimSpace(query)); err == nil {
		exactID = id
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+profileColumns+` FROM profiles
		 WHERE first_name ILIKE $1 OR last_name ILIKE $1 OR id = $2
		 ORDER BY first_name, last_name, id
		 LIMIT $3`,
		pattern, exactID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Profile
	for rows.Next() {
		var p Profile
		if err := rows.Scan(&p.ID, &p.Email, &p.FirstName, &p.LastName, &p.RoleName, &p.IsActive, &p.EmailVerified, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateName changes the profile's name parts.
func (r *Repository) UpdateName(ctx context.Context, id uuid.UUID, firstName, lastName string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE profiles SET first_name = $2, last_name = $3, updated_at = NOW() WHERE id = $1`,
		id, firstName, lastName)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// AssignRole stores a new role for the profile. Single-statement update;
// callers resolve sessions lazily so no cross-store transaction exists.
func (r *Repository) AssignRole(ctx context.Context, id uuid.UUID, roleName string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE profiles SET role = $2, updated_at = NOW() WHERE id = $1`,
		id, roleName)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SetActive toggles the account's active flag.
func (r *Repository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE profiles SET is_active = $2, updated_at = NOW() WHERE id = $1`,
		id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeleteProfile removes the profile row together with its file metadata
// in one transaction. Session rows in Redis are not touched here: a stale
// session fails closed at role resolution.
func (r *Repository) DeleteProfile(ctx context.Context, id uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM user_files WHERE owner_id = $1`, id); err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `DELETE FROM profiles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return tx.Commit(ctx)
}

func escapeLike(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(s)
}
