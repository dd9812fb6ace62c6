package files

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/meridian-portal/meridian/internal/platform/db"
	"github.com/meridian-portal/meridian/internal/shared"
)

// ErrNameTaken is returned when the owner already has a file by that name.
var ErrNameTaken = errors.New("a file with that name already exists")

// Repository provides PostgreSQL backed persistence for file metadata.
type Repository struct {
	pool db.Querier
}

// NewRepository constructs a repository.
func NewRepository(pool db.Querier) *Repository {
	return &Repository{pool: pool}
}

const fileColumns = `id, owner_id, name, size_bytes, content_type, created_at`

// ListByOwner returns the owner's files, newest first. The folder
// placeholder object is excluded.
func (r *Repository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]File, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+fileColumns+` FROM user_files WHERE owner_id = $1 AND name <> $2 ORDER BY created_at DESC, name`,
		ownerID, placeholderName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []File
	for rows.Next() {
		var f File
		if err := rows.Scan(&f.ID, &f.OwnerID, &f.Name, &f.Size, &f.ContentType, &f.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// SearchByOwner matches the owner's files whose name contains the query,
// case-insensitive, capped at limit.
func (r *Repository) SearchByOwner(ctx context.Context, ownerID uuid.UUID, query string, limit int) ([]File, error) {
	pattern := "%" + escapeLike(query) + "%"
	rows, err := r.pool.Query(ctx,
		`SELECT `+fileColumns+` FROM user_files
		 WHERE owner_id = $1 AND name <> $2 AND name ILIKE $3
		 ORDER BY created_at DESC, name
		 LIMIT $4`,
		ownerID, placeholderName, pattern, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []File
	for rows.Next() {
		var f File
		if err := rows.Scan(&f.ID, &f.OwnerID, &f.Name, &f.Size, &f.ContentType, &f.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// GetOwned fetches one file, scoped to its owner.
func (r *Repository) GetOwned(ctx context.Context, ownerID, id uuid.UUID) (File, error) {
	var f File
	err := r.pool.QueryRow(ctx,
		`SELECT `+fileColumns+` FROM user_files WHERE id = $1 AND owner_id = $2`,
		id, ownerID).Scan(&f.ID, &f.OwnerID, &f.Name, &f.Size, &f.ContentType, &f.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return File{}, shared.ErrNotFound
		}
		return File{}, err
	}
	return f, nil
}

// Insert stores file metadata. A duplicate name within the owner's
// namespace maps to ErrNameTaken.
func (r *Repository) Insert(ctx context.Context, f File) (File, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO user_files (id, owner_id, name, size_bytes, content_type)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at`,
		f.ID, f.OwnerID, f.Name, f.Size, f.ContentType).Scan(&f.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return File{}, ErrNameTaken
		}
		return File{}, err
	}
	return f, nil
}

// DeleteOwned removes the metadata row, scoped to its owner.
func (r *Repository) DeleteOwned(ctx context.Context, ownerID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM user_files WHERE id = $1 AND owner_id = $2`,
		id, ownerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func escapeLike(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(s)
}
