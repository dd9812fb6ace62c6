package activity

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/meridian-portal/meridian/internal/shared"
)

const exportBatch = 500

// RepositoryPort defines data access methods for activity entries.
type RepositoryPort interface {
	List(ctx context.Context, limit, offset int) ([]LogEntry, int, error)
	Recent(ctx context.Context, limit int) ([]LogEntry, error)
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Service handles activity log reads and maintenance.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Page returns one page of entries plus pagination metadata.
func (s *Service) Page(ctx context.Context, page, perPage int) ([]LogEntry, shared.Pagination, error) {
	pagination := shared.NewPagination(page, perPage, 0)
	entries, total, err := s.repo.List(ctx, pagination.PerPage, pagination.Offset())
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return entries, shared.NewPagination(pagination.Page, pagination.PerPage, total), nil
}

// Recent returns the newest entries for the manager overview.
func (s *Service) Recent(ctx context.Context, limit int) ([]LogEntry, error) {
	return s.repo.Recent(ctx, limit)
}

// ExportCSV streams every entry as CSV, newest first.
func (s *Service) ExportCSV(ctx context.Context, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"occurred_at", "actor_id", "action", "ip", "details"}); err != nil {
		return err
	}

	for offset := 0; ; offset += exportBatch {
		entries, _, err := s.repo.List(ctx, exportBatch, offset)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			break
		}
		for _, e := range entries {
			actor := ""
			if e.ActorID != nil {
				actor = e.ActorID.String()
			}
			record := []string{
				e.OccurredAt.UTC().Format(time.RFC3339),
				actor,
				e.Action,
				e.IP,
				e.DetailsJSON,
			}
			if err := cw.Write(record); err != nil {
				return err
			}
		}
		if len(entries) < exportBatch {
			break
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("activity: flush csv: %w", err)
	}
	return nil
}

// Prune deletes entries older than the retention window.
func (s *Service) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	return s.repo.PruneOlderThan(ctx, time.Now().Add(-retention))
}
