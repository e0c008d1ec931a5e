package server

import (
	"embed"
	"fmt"
	"html/template"

	"discotheque/pkg/models"
)

//go:embed web
var webFS embed.FS

// pageData feeds index.html
type pageData struct {
	Listing    *models.Listing
	SocketPath string
}

func parseTemplates() (*template.Template, error) {
	funcs := template.FuncMap{
		"duration": formatDuration,
	}
	t, err := template.New("").Funcs(funcs).ParseFS(webFS, "web/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return t, nil
}

// formatDuration renders seconds as m:ss, or h:mm:ss past an hour
func formatDuration(seconds int) string {
	if seconds <= 0 {
		return ""
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
