package search

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-portal/meridian/internal/rbac"
)

type stubUsers struct {
	records   []UserRecord
	err       error
	called    bool
	gotQuery  string
	gotLimit  int
}

func (s *stubUsers) SearchUsers(_ context.Context, query string, limit int) ([]UserRecord, error) {
	s.called = true
	s.gotQuery = query
	s.gotLimit = limit
	return s.records, s.err
}

type stubFiles struct {
	records  []FileRecord
	err      error
	called   bool
	gotOwner uuid.UUID
	gotLimit int
}

func (s *stubFiles) SearchFiles(_ context.Context, ownerID uuid.UUID, query string, limit int) ([]FileRecord, error) {
	s.called = true
	s.gotOwner = ownerID
	s.gotLimit = limit
	return s.records, s.err
}

func principalWithRole(role rbac.Role) *rbac.Principal {
	return &rbac.Principal{ID: uuid.New(), Email: "someone@example.com", Role: role}
}

func TestSearchRejectsShortQuery(t *testing.T) {
	svc := NewService(&stubUsers{}, &stubFiles{})

	for _, q := range []string{"", "a", " "} {
		_, err := svc.Search(context.Background(), nil, q, ScopeAll)
		assert.ErrorIs(t, err, ErrQueryTooShort, "query %q", q)
	}
}

func TestSearchMatchesPageByTitle(t *testing.T) {
	svc := NewService(&stubUsers{}, &stubFiles{})

	resp, err := svc.Search(context.Background(), nil, "contact", ScopeAll)
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	hit := resp.Results[0]
	assert.Equal(t, "contact", hit.ID)
	assert.Equal(t, KindPage, hit.Type)
	assert.Equal(t, "Contact Us", hit.Title)
	assert.Equal(t, "Get in touch with our team", hit.Description)
	assert.Equal(t, "/contact", hit.URL)
	assert.Equal(t, 1, resp.Total)
	assert.True(t, resp.Success)
}

func TestSearchMatchesPageByDescription(t *testing.T) {
	svc := NewService(&stubUsers{}, &stubFiles{})

	resp, err := svc.Search(context.Background(), nil, "touch", ScopeAll)
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "contact", resp.Results[0].ID)
}

func TestSearchLowercasesQuery(t *testing.T) {
	svc := NewService(&stubUsers{}, &stubFiles{})

	resp, err := svc.Search(context.Background(), nil, "CONTACT", ScopeAll)
	require.NoError(t, err)
	assert.Equal(t, "contact", resp.Query)
	require.Len(t, resp.Results, 1)
}

func TestNormalizeQueryComposesUnicode(t *testing.T) {
	// Decomposed e + combining acute collapses to the composed form.
	assert.Equal(t, "café", NormalizeQuery("Café"))
}

func TestAnonymousSearchSkipsUsersAndFiles(t *testing.T) {
	users := &stubUsers{records: []UserRecord{{ID: uuid.New(), FirstName: "Alice"}}}
	files := &stubFiles{records: []FileRecord{{Name: "alice.txt"}}}
	svc := NewService(users, files)

	resp, err := svc.Search(context.Background(), nil, "alice", ScopeAll)
	require.NoError(t, err)
	assert.False(t, users.called)
	assert.False(t, files.called)
	for _, r := range resp.Results {
		assert.Equal(t, KindPage, r.Type)
	}
}

func TestNonAdminSearchSkipsUsers(t *testing.T) {
	users := &stubUsers{}
	files := &stubFiles{}
	svc := NewService(users, files)

	for _, role := range []rbac.Role{rbac.RoleUser, rbac.RoleManager} {
		users.called = false
		_, err := svc.Search(context.Background(), principalWithRole(role), "alice", ScopeAll)
		require.NoError(t, err)
		assert.False(t, users.called, "role %s must not reach the user directory", role)
		assert.True(t, files.called)
	}
}

func TestAdminSearchIncludesUsers(t *testing.T) {
	aliceID := uuid.New()
	users := &stubUsers{records: []UserRecord{{
		ID:        aliceID,
		FirstName: "Alice",
		LastName:  "Smith",
		Email:     "alice@example.com",
		Role:      "admin",
	}}}
	svc := NewService(users, &stubFiles{})

	resp, err := svc.Search(context.Background(), principalWithRole(rbac.RoleAdmin), "ali", ScopeAll)
	require.NoError(t, err)
	assert.True(t, users.called)
	assert.Equal(t, "ali", users.gotQuery)
	assert.Equal(t, 10, users.gotLimit)

	require.Len(t, resp.Results, 1)
	hit := resp.Results[0]
	assert.Equal(t, KindUser, hit.Type)
	assert.Equal(t, aliceID.String(), hit.ID)
	assert.Equal(t, "Alice Smith", hit.Title)
	assert.Equal(t, "alice@example.com", hit.Description)
	assert.Equal(t, "alice@example.com", hit.Email)
	assert.Equal(t, "admin", hit.Role)
	assert.Equal(t, "/admin/users/"+aliceID.String(), hit.URL)
}

func TestUserResultTitleFallsBackToID(t *testing.T) {
	id := uuid.New()
	users := &stubUsers{records: []UserRecord{{ID: id, Email: "ghost@example.com"}}}
	svc := NewService(users, &stubFiles{})

	resp, err := svc.Search(context.Background(), principalWithRole(rbac.RoleAdmin), "ghost", ScopeUsers)
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, id.String(), resp.Results[0].Title)
}

func TestFileSearchScopedToOwner(t *testing.T) {
	files := &stubFiles{records: []FileRecord{{Name: "report.png", Size: 2400000}}}
	svc := NewService(&stubUsers{}, files)

	p := principalWithRole(rbac.RoleUser)
	resp, err := svc.Search(context.Background(), p, "report", ScopeFiles)
	require.NoError(t, err)
	assert.Equal(t, p.ID, files.gotOwner)
	assert.Equal(t, 10, files.gotLimit)

	require.Len(t, resp.Results, 1)
	hit := resp.Results[0]
	assert.Equal(t, KindFile, hit.Type)
	assert.Equal(t, "report.png", hit.ID)
	assert.Equal(t, "report.png", hit.Title)
	assert.Equal(t, "Size: 2.29 MB", hit.Description)
	assert.Equal(t, "/dashboard/files", hit.URL)
}

func TestScopeLimitsSources(t *testing.T) {
	users := &stubUsers{}
	files := &stubFiles{}
	svc := NewService(users, files)
	admin := principalWithRole(rbac.RoleAdmin)

	resp, err := svc.Search(context.Background(), admin, "contact", ScopePages)
	require.NoError(t, err)
	assert.False(t, users.called)
	assert.False(t, files.called)
	require.Len(t, resp.Results, 1)

	users.called = false
	resp, err = svc.Search(context.Background(), admin, "contact", ScopeUsers)
	require.NoError(t, err)
	assert.True(t, users.called)
	assert.False(t, files.called)
	assert.Empty(t, resp.Results)
}

func TestUnknownScopeReturnsEmptySuccess(t *testing.T) {
	users := &stubUsers{}
	files := &stubFiles{}
	svc := NewService(users, files)

	resp, err := svc.Search(context.Background(), principalWithRole(rbac.RoleAdmin), "contact", "bogus")
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Empty(t, resp.Results)
	assert.Equal(t, 0, resp.Total)
	assert.False(t, users.called)
	assert.False(t, files.called)
}

func TestResultsOrderedPagesUsersFiles(t *testing.T) {
	users := &stubUsers{records: []UserRecord{{ID: uuid.New(), FirstName: "Contact", LastName: "Person"}}}
	files := &stubFiles{records: []FileRecord{{Name: "contact.txt", Size: 10}}}
	svc := NewService(users, files)

	resp, err := svc.Search(context.Background(), principalWithRole(rbac.RoleAdmin), "contact", ScopeAll)
	require.NoError(t, err)
	require.Len(t, resp.Results, 3)
	assert.Equal(t, KindPage, resp.Results[0].Type)
	assert.Equal(t, KindUser, resp.Results[1].Type)
	assert.Equal(t, KindFile, resp.Results[2].Type)
}

func TestMergedCapKeepsPreCapTotal(t *testing.T) {
	var userRecords []UserRecord
	for i := 0; i < 10; i++ {
		userRecords = append(userRecords, UserRecord{ID: uuid.New(), FirstName: "Ann"})
	}
	var fileRecords []FileRecord
	for i := 0; i < 10; i++ {
		fileRecords = append(fileRecords, FileRecord{Name: "ann.txt"})
	}
	svc := NewService(&stubUsers{records: userRecords}, &stubFiles{records: fileRecords})

	// "an" also matches four catalog pages, so 24 hits pre-cap.
	resp, err := svc.Search(context.Background(), principalWithRole(rbac.RoleAdmin), "an", ScopeAll)
	require.NoError(t, err)
	assert.Len(t, resp.Results, 20)
	assert.Equal(t, 24, resp.Total)

	// Files lose out to the earlier kinds under the cap.
	assert.Equal(t, KindPage, resp.Results[0].Type)
	assert.Equal(t, KindFile, resp.Results[19].Type)
}

func TestSourceErrorAbortsSearch(t *testing.T) {
	users := &stubUsers{err: errors.New("directory offline")}
	files := &stubFiles{records: []FileRecord{{Name: "contact.txt"}}}
	svc := NewService(users, files)

	_, err := svc.Search(context.Background(), principalWithRole(rbac.RoleAdmin), "contact", ScopeAll)
	assert.Error(t, err)
}

func TestFormatFileSize(t *testing.T) {
	cases := []struct {
		bytes int64
		want  string
	}{
		{0, "0 Bytes"},
		{500, "500 Bytes"},
		{1024, "1 KB"},
		{1536, "1.5 KB"},
		{2400000, "2.29 MB"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, formatFileSize(tc.bytes), "bytes %d", tc.bytes)
	}
}
