package activity

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRepo struct {
	entries []LogEntry
	pruned  time.Time
}

func (s *stubRepo) List(_ context.Context, limit, offset int) ([]LogEntry, int, error) {
	total := len(s.entries)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return s.entries[offset:end], total, nil
}

func (s *stubRepo) Recent(ctx context.Context, limit int) ([]LogEntry, error) {
	entries, _, err := s.List(ctx, limit, 0)
	return entries, err
}

func (s *stubRepo) PruneOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.pruned = cutoff
	var kept []LogEntry
	var removed int64
	for _, e := range s.entries {
		if e.OccurredAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	s.entries = kept
	return removed, nil
}

func makeEntries(n int) []LogEntry {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	out := make([]LogEntry, n)
	for i := range out {
		actorID := uuid.New()
		out[i] = LogEntry{
			ID:          int64(n - i),
			ActorID:     &actorID,
			Action:      "LOGIN_SUCCESS",
			DetailsJSON: "{}",
			IP:          "10.0.0.1",
			OccurredAt:  base.Add(-time.Duration(i) * time.Hour),
		}
	}
	return out
}

func TestPagePagination(t *testing.T) {
	repo := &stubRepo{entries: makeEntries(250)}
	svc := NewService(repo)

	entries, pagination, err := svc.Page(context.Background(), 2, 100)
	require.NoError(t, err)
	assert.Len(t, entries, 100)
	assert.Equal(t, 250, pagination.Total)
	assert.Equal(t, 3, pagination.TotalPages)
	assert.True(t, pagination.HasPrev())
	assert.True(t, pagination.HasNext())
}

func TestExportCSV(t *testing.T) {
	entries := makeEntries(3)
	entries[1].ActorID = nil
	entries[2].DetailsJSON = `{"subject":"x"}`
	repo := &stubRepo{entries: entries}
	svc := NewService(repo)

	var buf bytes.Buffer
	require.NoError(t, svc.ExportCSV(context.Background(), &buf))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, []string{"occurred_at", "actor_id", "action", "ip", "details"}, records[0])
	assert.Equal(t, entries[0].ActorID.String(), records[1][1])
	assert.Empty(t, records[2][1])
	assert.Equal(t, `{"subject":"x"}`, records[3][4])
}

func TestExportCSVBatchesOverAllRows(t *testing.T) {
	repo := &stubRepo{entries: makeEntries(exportBatch + 17)}
	svc := NewService(repo)

	var buf bytes.Buffer
	require.NoError(t, svc.ExportCSV(context.Background(), &buf))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, exportBatch+17+1)
}

func TestPruneUsesRetentionCutoff(t *testing.T) {
	repo := &stubRepo{entries: makeEntries(48)}
	svc := NewService(repo)

	before := time.Now().Add(-24 * time.Hour)
	_, err := svc.Prune(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, before, repo.pruned, time.Minute)
}
