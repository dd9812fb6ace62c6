package profiles

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-portal/meridian/internal/shared"
)

func newMockRepo(t *testing.T) (*Repository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewRepository(mock), mock
}

func profileRows(p Profile) *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "email", "first_name", "last_name", "role", "is_active", "email_verified", "created_at", "updated_at",
	}).AddRow(p.ID, p.Email, p.FirstName, p.LastName, p.RoleName, p.IsActive, p.EmailVerified, p.CreatedAt, p.UpdatedAt)
}

func TestGetProfile(t *testing.T) {
	repo, mock := newMockRepo(t)

	now := time.Now()
	want := Profile{
		ID:        uuid.New(),
		Email:     "alice@example.com",
		FirstName: "Alice",
		LastName:  "Smith",
		RoleName:  "admin",
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	mock.ExpectQuery(`SELECT (.+) FROM profiles WHERE id = \$1`).
		WithArgs(want.ID).
		WillReturnRows(profileRows(want))

	got, err := repo.GetProfile(context.Background(), want.ID)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetProfileNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	id := uuid.New()
	mock.ExpectQuery(`SELECT (.+) FROM profiles WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "email", "first_name", "last_name", "role", "is_active", "email_verified", "created_at", "updated_at",
		}))

	_, err := repo.GetProfile(context.Background(), id)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestProfileByIDMapsRecord(t *testing.T) {
	repo, mock := newMockRepo(t)

	p := Profile{ID: uuid.New(), Email: "bob@example.com", FirstName: "Bob", RoleName: "manager", IsActive: true}
	mock.ExpectQuery(`SELECT (.+) FROM profiles WHERE id = \$1`).
		WithArgs(p.ID).
		WillReturnRows(profileRows(p))

	rec, err := repo.ProfileByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, rec.ID)
	assert.Equal(t, "manager", rec.RoleName)
	assert.True(t, rec.IsActive)
}

func TestListProfiles(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM profiles`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(42))

	p := Profile{ID: uuid.New(), Email: "carol@example.com", FirstName: "Carol", RoleName: "user", IsActive: true}
	mock.ExpectQuery(`SELECT (.+) FROM profiles ORDER BY first_name, last_name, id LIMIT \$1 OFFSET \$2`).
		WithArgs(20, 20).
		WillReturnRows(profileRows(p))

	list, total, err := repo.ListProfiles(context.Background(), 20, 20)
	require.NoError(t, err)
	assert.Equal(t, 42, total)
	require.Len(t, list, 1)
	assert.Equal(t, "Carol", list[0].FirstName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchProfilesEscapesPattern(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT (.+) FROM profiles`).
		WithArgs(`%50\%%`, nil, 10).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "email", "first_name", "last_name", "role", "is_active", "email_verified", "created_at", "updated_at",
		}))

	_, err := repo.SearchProfiles(context.Background(), "50%", 10)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchProfilesMatchesExactID(t *testing.T) {
	repo, mock := newMockRepo(t)

	id := uuid.New()
	p := Profile{ID: id, Email: "dan@example.com", FirstName: "Dan", RoleName: "user"}
	mock.ExpectQuery(`SELECT (.+) FROM profiles`).
		WithArgs("%"+id.String()+"%", id, 10).
		WillReturnRows(profileRows(p))

	got, err := repo.SearchProfiles(context.Background(), id.String(), 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, id, got[0].ID)
}

func TestAssignRoleUpdatesRow(t *testing.T) {
	repo, mock := newMockRepo(t)

	id := uuid.New()
	mock.ExpectExec(`UPDATE profiles SET role = \$2, updated_at = NOW\(\) WHERE id = \$1`).
		WithArgs(id, "manager").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.AssignRole(context.Background(), id, "manager")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignRoleMissingProfile(t *testing.T) {
	repo, mock := newMockRepo(t)

	id := uuid.New()
	mock.ExpectExec(`UPDATE profiles SET role = \$2`).
		WithArgs(id, "admin").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.AssignRole(context.Background(), id, "admin")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestDeleteProfileTransaction(t *testing.T) {
	repo, mock := newMockRepo(t)

	id := uuid.New()
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM user_files WHERE owner_id = \$1`).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))
	mock.ExpectExec(`DELETE FROM profiles WHERE id = \$1`).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()

	err := repo.DeleteProfile(context.Background(), id)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteProfileRollsBackOnError(t *testing.T) {
	repo, mock := newMockRepo(t)

	id := uuid.New()
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM user_files WHERE owner_id = \$1`).
		WithArgs(id).
		WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()

	err := repo.DeleteProfile(context.Background(), id)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
