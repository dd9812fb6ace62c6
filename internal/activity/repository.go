package activity

import (
	"context"
	"time"

	"github.com/meridian-portal/meridian/internal/platform/db"
)

// Repository provides read and maintenance access to activity_logs.
// Writes go through shared.ActivityLogger.
type Repository struct {
	pool db.Querier
}

// NewRepository constructs a repository.
func NewRepository(pool db.Querier) *Repository {
	return &Repository{pool: pool}
}

const entryColumns = `id, actor_id, action, details::text, COALESCE(ip_address, ''), occurred_at`

// List returns one page of entries, newest first, plus the total count.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]LogEntry, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM activity_logs`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+entryColumns+` FROM activity_logs ORDER BY occurred_at DESC, id DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []LogEntry
	for rows.Next() {
		var e LogEntry
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.DetailsJSON, &e.IP, &e.OccurredAt); err != nil {
			return nil, 0, err
		}
		out = append(out, e)
	}
	return out, total, rows.Err()
}

// Recent returns the newest entries without pagination metadata.
func (r *Repository) Recent(ctx context.Context, limit int) ([]LogEntry, error) {
	entries, _, err := r.List(ctx, limit, 0)
	return entries, err
}

// PruneOlderThan removes entries older than the cutoff and reports how
// many rows were deleted.
func (r *Repository) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM activity_logs WHERE occurred_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
