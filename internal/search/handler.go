// Package search implements the front page, the about page, and the JSON
// search API.
package search

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/itu-devops/whoknows/internal/auth"
	"github.com/itu-devops/whoknows/internal/middleware"
	"github.com/itu-devops/whoknows/internal/models"
	"github.com/itu-devops/whoknows/internal/web"
)

type Handler struct {
	sessions *auth.SessionManager
	renderer *web.Renderer
	logger   *slog.Logger
}

func NewHandler(sessions *auth.SessionManager, renderer *web.Renderer, logger *slog.Logger) *Handler {
	return &Handler{sessions: sessions, renderer: renderer, logger: logger}
}

// query runs the shared search semantics: no q means no results, otherwise
// exact-language substring match. Non-empty queries are recorded in the
// search log; a failed log write never fails the search.
func (h *Handler) query(r *http.Request) ([]models.Page, string, string, error) {
	ctx := r.Context()
	q := r.URL.Query().Get("q")
	language := r.URL.Query().Get("language")
	if language == "" {
		language = "en"
	}
	if q == "" {
		return nil, q, language, nil
	}

	st := middleware.Store(ctx)
	if err := st.LogSearch(ctx, q); err != nil {
		h.logger.Warn("log search query", "query", q, "error", err)
	}

	results, err := st.SearchPages(ctx, q, language)
	return results, q, language, err
}

// Home renders the search page.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	results, q, language, err := h.query(r)
	if err != nil {
		h.logger.Error("search", "query", q, "error", err)
		http.Error(w, "search failed", http.StatusInternalServerError)
		return
	}
	h.renderer.Render(w, http.StatusOK, "search", web.PageData{
		Title:    "Search",
		User:     middleware.CurrentUser(r.Context()),
		Flashes:  h.sessions.TakeFlashes(r.Context(), r),
		Query:    q,
		Language: language,
		Results:  results,
	})
}

// About renders the static about page.
func (h *Handler) About(w http.ResponseWriter, r *http.Request) {
	h.renderer.Render(w, http.StatusOK, "about", web.PageData{
		Title:   "About",
		User:    middleware.CurrentUser(r.Context()),
		Flashes: h.sessions.TakeFlashes(r.Context(), r),
	})
}

// API answers GET /api/search with {"search_results": [...]}.
func (h *Handler) API(w http.ResponseWriter, r *http.Request) {
	results, q, _, err := h.query(r)
	if err != nil {
		h.logger.Error("api search", "query", q, "error", err)
		http.Error(w, `{"error":"search failed"}`, http.StatusInternalServerError)
		return
	}
	if results == nil {
		results = []models.Page{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"search_results": results})
}
