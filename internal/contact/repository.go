package contact

import (
	"context"

	"github.com/google/uuid"

	"github.com/meridian-portal/meridian/internal/platform/db"
	"github.com/meridian-portal/meridian/internal/shared"
)

// Repository provides PostgreSQL backed persistence for contact messages.
type Repository struct {
	pool db.Querier
}

// NewRepository constructs a repository.
func NewRepository(pool db.Querier) *Repository {
	return &Repository{pool: pool}
}

// Insert stores a new message.
func (r *Repository) Insert(ctx context.Context, m Message) (Message, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO contact_messages (name, email, message)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		m.Name, m.Email, m.Message).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return Message{}, err
	}
	return m, nil
}

// List returns messages newest first, unreviewed before reviewed.
func (r *Repository) List(ctx context.Context, limit int) ([]Message, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, email, message, reviewed, created_at
		 FROM contact_messages
		 ORDER BY reviewed, created_at DESC
		 LIMIT $1`,
		limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.Message, &m.Reviewed, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// MarkReviewed flags a message as handled.
func (r *Repository) MarkReviewed(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE contact_messages SET reviewed = TRUE WHERE id = $1`,
		id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
