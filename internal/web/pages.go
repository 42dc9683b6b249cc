package web

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/code-explorer/backend/internal/highlight"
	"github.com/code-explorer/backend/internal/language"
	"github.com/code-explorer/backend/internal/models"
	"github.com/code-explorer/backend/internal/upload"
	"github.com/code-explorer/backend/internal/view"
	"github.com/code-explorer/backend/internal/workspace"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Workspaces is the subset of the workspace manager the pages need.
type Workspaces interface {
	Create() *workspace.Workspace
	Touch(id string) (*workspace.Workspace, bool)
}

// Pages serves the explorer screen: uploader, file list and viewer.
type Pages struct {
	workspaces  Workspaces
	viewer      *view.Viewer
	highlighter highlight.Highlighter
	version     string
	log         zerolog.Logger
}

// NewPages creates the page handlers. The highlighter provides the
// stylesheet; nil serves an empty one.
func NewPages(workspaces Workspaces, viewer *view.Viewer, h highlight.Highlighter, version string, log zerolog.Logger) *Pages {
	return &Pages{
		workspaces:  workspaces,
		viewer:      viewer,
		highlighter: h,
		version:     version,
		log:         log.With().Str("component", "web").Logger(),
	}
}

// Register installs the renderer and the page routes. API routes should be
// registered separately.
func (p *Pages) Register(e *echo.Echo) error {
	tmpl, err := ParseTemplates()
	if err != nil {
		return err
	}
	e.Renderer = tmpl

	static, err := StaticFS()
	if err != nil {
		return err
	}

	e.GET("/", p.HandleIndex)
	e.GET("/w/:id", p.HandlePage)
	e.POST("/w/:id/upload", p.HandleUpload)
	e.POST("/w/:id/files/:fileId/select", p.HandleSelect)
	e.POST("/w/:id/files/:fileId/delete", p.HandleDelete)
	e.GET("/static/highlight.css", p.HandleHighlightCSS)
	e.StaticFS("/static", static)
	return nil
}

type pageData struct {
	WorkspaceID string
	Version     string
	Accept      string
	Status      models.UploadStatus
	Files       []view.ListItem
	EmptyList   string
	Pane        view.Pane
}

// HandleIndex opens a fresh workspace
func (p *Pages) HandleIndex(c echo.Context) error {
	ws := p.workspaces.Create()
	return c.Redirect(http.StatusSeeOther, pagePath(ws.ID))
}

// HandlePage renders the screen for one workspace. Expired workspaces start over.
func (p *Pages) HandlePage(c echo.Context) error {
	ws, ok := p.workspaces.Touch(c.Param("id"))
	if !ok {
		return c.Redirect(http.StatusSeeOther, "/")
	}

	state := ws.State()
	var selected *models.FileRecord
	if record, ok := ws.Selected(); ok {
		selected = &record
	}

	return c.Render(http.StatusOK, "page.html", pageData{
		WorkspaceID: ws.ID,
		Version:     p.version,
		Accept:      language.AcceptAttribute(),
		Status:      state.Upload,
		Files:       view.FileList(state.Registry),
		EmptyList:   view.EmptyListMessage,
		Pane:        p.viewer.Render(selected),
	})
}

// HandleUpload takes the first file of the form. Read failures surface through
// the upload status on the next render.
func (p *Pages) HandleUpload(c echo.Context) error {
	ws, ok := p.workspaces.Touch(c.Param("id"))
	if !ok {
		return c.Redirect(http.StatusSeeOther, "/")
	}

	var sources []upload.Source
	if form, err := c.MultipartForm(); err == nil {
		sources = upload.FormFileSources(form.File["file"])
	}

	if _, err := ws.Upload(sources); err != nil && !errors.Is(err, upload.ErrNoFile) {
		p.log.Debug().Err(err).Str("workspace", ws.ID).Msg("upload failed")
	}
	return c.Redirect(http.StatusSeeOther, pagePath(ws.ID))
}

// HandleSelect selects a file; unknown ids change nothing
func (p *Pages) HandleSelect(c echo.Context) error {
	ws, ok := p.workspaces.Touch(c.Param("id"))
	if !ok {
		return c.Redirect(http.StatusSeeOther, "/")
	}
	ws.Select(c.Param("fileId"))
	return c.Redirect(http.StatusSeeOther, pagePath(ws.ID))
}

// HandleDelete removes a file; unknown ids change nothing
func (p *Pages) HandleDelete(c echo.Context) error {
	ws, ok := p.workspaces.Touch(c.Param("id"))
	if !ok {
		return c.Redirect(http.StatusSeeOther, "/")
	}
	ws.Remove(c.Param("fileId"))
	return c.Redirect(http.StatusSeeOther, pagePath(ws.ID))
}

// HandleHighlightCSS serves the stylesheet of the configured highlight style
func (p *Pages) HandleHighlightCSS(c echo.Context) error {
	var buf bytes.Buffer
	if p.highlighter != nil {
		if err := p.highlighter.WriteCSS(&buf); err != nil {
			return err
		}
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "public, max-age=3600")
	return c.Blob(http.StatusOK, "text/css; charset=utf-8", buf.Bytes())
}

func pagePath(id string) string {
	return "/w/" + id
}
