package web

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itu-devops/whoknows/internal/models"
)

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	rn, err := NewRenderer(slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return rn
}

func TestNewRenderer_ParsesAllPages(t *testing.T) {
	rn := newTestRenderer(t)
	for _, page := range pages {
		assert.Contains(t, rn.templates, page)
	}
}

func TestRender_SearchPage(t *testing.T) {
	rn := newTestRenderer(t)

	rec := httptest.NewRecorder()
	rn.Render(rec, http.StatusOK, "search", PageData{
		Title:    "Search",
		User:     &models.User{Username: "alice"},
		Flashes:  []string{"You were logged in"},
		Query:    "go",
		Language: "en",
		Results: []models.Page{
			{Title: "Go", URL: "https://example.org/go", Content: "the go language"},
		},
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Signed in as alice")
	assert.Contains(t, body, "You were logged in")
	assert.Contains(t, body, "https://example.org/go")
}

func TestRender_NoResultsIndicator(t *testing.T) {
	rn := newTestRenderer(t)

	rec := httptest.NewRecorder()
	rn.Render(rec, http.StatusOK, "search", PageData{Query: "nomatch", Language: "en"})
	assert.Contains(t, rec.Body.String(), "No results found")
}

func TestRender_EscapesQuery(t *testing.T) {
	rn := newTestRenderer(t)

	rec := httptest.NewRecorder()
	rn.Render(rec, http.StatusOK, "search", PageData{Query: `<script>alert(1)</script>`, Language: "en"})
	assert.NotContains(t, rec.Body.String(), "<script>alert(1)</script>")
}

func TestNotFound(t *testing.T) {
	rn := newTestRenderer(t)

	rec := httptest.NewRecorder()
	rn.NotFound(rec, httptest.NewRequest(http.MethodGet, "/nonexistent", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Page not found")
}
