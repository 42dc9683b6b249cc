// Package web serves the server-rendered explorer screen.
package web

import (
	"embed"
	"html/template"
	"io"
	"io/fs"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/bytes"
)

//go:embed templates/*.html
var templateFiles embed.FS

//go:embed static/*
var staticFiles embed.FS

// StaticFS returns the embedded static assets with the static folder as root.
func StaticFS() (fs.FS, error) {
	return fs.Sub(staticFiles, "static")
}

// Templates renders the embedded page templates. It implements echo.Renderer.
type Templates struct {
	t *template.Template
}

// ParseTemplates parses every embedded template.
func ParseTemplates() (*Templates, error) {
	t, err := template.New("").Funcs(template.FuncMap{
		"humanBytes": func(n int64) string { return bytes.Format(n) },
	}).ParseFS(templateFiles, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Templates{t: t}, nil
}

// Render executes the named template
func (t *Templates) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	return t.t.ExecuteTemplate(w, name, data)
}
