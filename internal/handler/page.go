// Package handler contains the HTTP handlers for the mood journal.
//
// Handlers are the glue between HTTP and the controller: they parse the
// request, call one controller operation and write the response. They hold no
// journal state of their own.
package handler

import (
	"html/template"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/sakif/moodmap/internal/listview"
	"github.com/sakif/moodmap/internal/model"
)

// PageHandler renders the journal page.
// Templates are parsed once at startup and reused for every request.
type PageHandler struct {
	templates *template.Template
	list      ListWidget
	logger    *slog.Logger
}

// CategoryOption is one entry in the form's category select.
type CategoryOption struct {
	Value string
	Label string
	Icon  string
}

// pageData is the template input.
type pageData struct {
	Title      string
	Categories []CategoryOption
	Items      []listview.Item
}

// NewPageHandler parses base.html and journal.html from templateDir.
// base.html defines the layout with a {{template "content" .}} slot that
// journal.html fills.
func NewPageHandler(templateDir string, list ListWidget, logger *slog.Logger) (*PageHandler, error) {
	tmpl, err := template.ParseFiles(
		filepath.Join(templateDir, "base.html"),
		filepath.Join(templateDir, "journal.html"),
	)
	if err != nil {
		return nil, err
	}

	return &PageHandler{
		templates: tmpl,
		list:      list,
		logger:    logger,
	}, nil
}

// HandleJournal serves the page with the list already rendered, so entries
// show before the map has loaded. html/template escapes every description.
//
// HTTP: GET /
func (h *PageHandler) HandleJournal(w http.ResponseWriter, r *http.Request) {
	data := pageData{
		Title: "Mood Map",
		Items: h.list.Items(),
	}
	for _, c := range model.Categories {
		data.Categories = append(data.Categories, CategoryOption{
			Value: string(c),
			Label: c.Title(),
			Icon:  c.Icon(),
		})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.ExecuteTemplate(w, "base", data); err != nil {
		h.logger.Error("failed to render template",
			slog.String("error", err.Error()),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
