package search

import (
	"context"
	"math"
	"strconv"

	"github.com/google/uuid"
)

// Result kinds, in merge order.
const (
	KindPage = "page"
	KindUser = "user"
	KindFile = "file"
)

// Result is one search hit. Fields beyond id/type/title are filled
// per kind.
type Result struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`
	Email       string `json:"email,omitempty"`
	Role        string `json:"role,omitempty"`
}

// Response is the payload returned by the search endpoint. Total counts
// all matches before the merged cap is applied.
type Response struct {
	Success bool     `json:"success"`
	Query   string   `json:"query"`
	Results []Result `json:"results"`
	Total   int      `json:"total"`
}

// UserRecord is the directory view a user source returns.
type UserRecord struct {
	ID        uuid.UUID
	FirstName string
	LastName  string
	Email     string
	Role      string
}

// FileRecord is the metadata view a file source returns.
type FileRecord struct {
	Name string
	Size int64
}

// UserSource searches the user directory.
type UserSource interface {
	SearchUsers(ctx context.Context, query string, limit int) ([]UserRecord, error)
}

// FileSource searches one owner's files.
type FileSource interface {
	SearchFiles(ctx context.Context, ownerID uuid.UUID, query string, limit int) ([]FileRecord, error)
}

// formatFileSize renders a byte count the way file descriptions expect:
// two decimals at most, trailing zeros dropped.
func formatFileSize(bytes int64) string {
	if bytes == 0 {
		return "0 Bytes"
	}
	units := []string{"Bytes", "KB", "MB"}
	exp := int(math.Floor(math.Log(float64(bytes)) / math.Log(1024)))
	if exp > len(units)-1 {
		exp = len(units) - 1
	}
	value := math.Round(float64(bytes)/math.Pow(1024, float64(exp))*100) / 100
	return strconv.FormatFloat(value, 'f', -1, 64) + " " + units[exp]
}
