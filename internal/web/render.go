// Package web renders the server-side HTML pages.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/itu-devops/whoknows/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

// pages lists every renderable page; each is parsed together with the
// shared layout.
var pages = []string{"search", "about", "login", "register", "notfound"}

// PageData is the template context for all pages. Unused fields are simply
// ignored by pages that do not reference them.
type PageData struct {
	Title    string
	User     *models.User
	Flashes  []string
	Error    string
	Query    string
	Language string
	Results  []models.Page
}

// Renderer holds the parsed page templates.
type Renderer struct {
	templates map[string]*template.Template
	logger    *slog.Logger
}

func NewRenderer(logger *slog.Logger) (*Renderer, error) {
	templates := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		t, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+page+".html")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", page, err)
		}
		templates[page] = t
	}
	return &Renderer{templates: templates, logger: logger}, nil
}

// Render writes the named page with the given status code.
func (rn *Renderer) Render(w http.ResponseWriter, status int, page string, data PageData) {
	t, ok := rn.templates[page]
	if !ok {
		rn.logger.Error("unknown template", "page", page)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := t.ExecuteTemplate(w, "layout", data); err != nil {
		rn.logger.Error("render template", "page", page, "error", err)
	}
}

// NotFound answers unmatched routes with a generic 404 page.
func (rn *Renderer) NotFound(w http.ResponseWriter, r *http.Request) {
	rn.Render(w, http.StatusNotFound, "notfound", PageData{Title: "Not Found"})
}
