package view

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEngine(t *testing.T) {
	engine, err := NewEngine()
	assert.NoError(t, err, "Templates should parse without error")
	assert.NotNil(t, engine)
}

func TestRenderKnownTemplate(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	err = engine.Render(rec, "pages/home.html", TemplateData{Title: "Home"})
	require.NoError(t, err)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "<html")
}

func TestFormatSize(t *testing.T) {
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
		assert.Equal(t, tc.want, FormatSize(tc.bytes))
	}
}
