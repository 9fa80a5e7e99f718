package server

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/rs/zerolog"
)

const (
	contentTypeHTML = "text/html; charset=utf-8"
	contentTypeJSON = "application/json"
)

//go:embed templates/*
var templateFiles embed.FS

// pages holds every page template, each parsed together with the layout.
type pages struct {
	login  *template.Template
	area   *template.Template
	notice *template.Template
}

func parsePages() (*pages, error) {
	login, err := ParseTemplate("login.html")
	if err != nil {
		return nil, err
	}
	area, err := ParseTemplate("area.html")
	if err != nil {
		return nil, err
	}
	notice, err := ParseTemplate("notice.html")
	if err != nil {
		return nil, err
	}
	return &pages{login: login, area: area, notice: notice}, nil
}

// ParseTemplate parses name from the embedded templates together with the
// shared layout.
func ParseTemplate(name string) (*template.Template, error) {
	return template.ParseFS(templateFiles, "templates/layout.html", "templates/"+name)
}

func render(w http.ResponseWriter, r *http.Request, tmpl *template.Template, data any) {
	w.Header().Set("Content-Type", contentTypeHTML)
	if err := tmpl.ExecuteTemplate(w, "layout", data); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("template", tmpl.Name()).Msg("failed to render template")
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
	}
}
