package search

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/unicode/norm"

	"github.com/meridian-portal/meridian/internal/rbac"
)

const (
	minQueryLength = 2
	userLimit      = 10
	fileLimit      = 10
	mergedLimit    = 20
)

// ErrQueryTooShort is returned for queries under the minimum length.
var ErrQueryTooShort = errors.New("query must be at least 2 characters")

// Scope names accepted in the type parameter.
const (
	ScopeAll   = "all"
	ScopePages = "pages"
	ScopeUsers = "users"
	ScopeFiles = "files"
)

// Service runs federated searches over pages, users and files.
type Service struct {
	users UserSource
	files FileSource
}

// NewService builds Service instance.
func NewService(users UserSource, files FileSource) *Service {
	return &Service{users: users, files: files}
}

// NormalizeQuery canonicalises raw query input: NFC normalisation then
// lowercasing. Matching and the echoed response query both use this form.
func NormalizeQuery(raw string) string {
	return strings.ToLower(norm.NFC.String(raw))
}

// Search validates the query and fans out to the enabled sources. The
// principal may be nil; anonymous callers only ever see page results.
// Any source failure aborts the whole search.
func (s *Service) Search(ctx context.Context, principal *rbac.Principal, rawQuery, scope string) (Response, error) {
	query := NormalizeQuery(rawQuery)
	if utf8.RuneCountInString(query) < minQueryLength {
		return Response{}, ErrQueryTooShort
	}
	if scope == "" {
		scope = ScopeAll
	}

	var (
		pageHits []Result
		userHits []Result
		fileHits []Result
	)

	g, gctx := errgroup.WithContext(ctx)

	if scope == ScopeAll || scope == ScopePages {
		g.Go(func() error {
			pageHits = matchPages(query)
			return nil
		})
	}

	if (scope == ScopeAll || scope == ScopeUsers) && principal != nil && rbac.HasRole(principal.Role, rbac.RoleAdmin) {
		g.Go(func() error {
			records, err := s.users.SearchUsers(gctx, query, userLimit)
			if err != nil {
				return err
			}
			userHits = make([]Result, 0, len(records))
			for _, u := range records {
				userHits = append(userHits, userResult(u))
			}
			return nil
		})
	}

	if (scope == ScopeAll || scope == ScopeFiles) && principal != nil {
		ownerID := principal.ID
		g.Go(func() error {
			records, err := s.files.SearchFiles(gctx, ownerID, query, fileLimit)
			if err != nil {
				return err
			}
			fileHits = make([]Result, 0, len(records))
			for _, f := range records {
				fileHits = append(fileHits, fileResult(f))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Response{}, err
	}

	// Merge order is fixed: pages, then users, then files.
	merged := make([]Result, 0, len(pageHits)+len(userHits)+len(fileHits))
	merged = append(merged, pageHits...)
	merged = append(merged, userHits...)
	merged = append(merged, fileHits...)

	total := len(merged)
	if len(merged) > mergedLimit {
		merged = merged[:mergedLimit]
	}

	return Response{Success: true, Query: query, Results: merged, Total: total}, nil
}

func userResult(u UserRecord) Result {
	title := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if title == "" {
		title = u.ID.String()
	}
	return Result{
		ID:          u.ID.String(),
		Type:        KindUser,
		Title:       title,
		Description: u.Email,
		Email:       u.Email,
		Role:        u.Role,
		URL:         "/admin/users/" + u.ID.String(),
	}
}

func fileResult(f FileRecord) Result {
	return Result{
		ID:          f.Name,
		Type:        KindFile,
		Title:       f.Name,
		Description: "Size: " + formatFileSize(f.Size),
		URL:         "/dashboard/files",
	}
}
