// handlers_files.go - File list, selection, viewer and explain handlers
package api

import (
	"net/http"
	"strings"

	"github.com/code-explorer/backend/internal/models"
	"github.com/code-explorer/backend/internal/view"
	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"
)

// MIMEMsgpack is the content type of msgpack responses
const MIMEMsgpack = "application/msgpack"

// FileHandlerImpl implements the FileHandler interface
type FileHandlerImpl struct {
	workspaces WorkspaceStore
	viewer     *view.Viewer
	explainer  Explainer
}

// NewFileHandler creates a new file handler
func NewFileHandler(workspaces WorkspaceStore, viewer *view.Viewer, explainer Explainer) FileHandler {
	return &FileHandlerImpl{
		workspaces: workspaces,
		viewer:     viewer,
		explainer:  explainer,
	}
}

// HandleListFiles returns the file list in upload order
func (h *FileHandlerImpl) HandleListFiles(c echo.Context) error {
	ws, err := lookupWorkspace(h.workspaces, c)
	if err != nil {
		return err
	}

	snapshot := ws.Snapshot()
	return c.JSON(http.StatusOK, fileListResponse{
		Files:      view.FileList(snapshot),
		SelectedID: snapshot.SelectedID,
	})
}

// HandleGetFile returns one record including its content.
// Responds with msgpack when the client accepts it.
func (h *FileHandlerImpl) HandleGetFile(c echo.Context) error {
	ws, err := lookupWorkspace(h.workspaces, c)
	if err != nil {
		return err
	}

	id := c.Param("id")
	record, ok := ws.Get(id)
	if !ok {
		return NewNotFoundError("file", id)
	}

	if strings.Contains(c.Request().Header.Get(echo.HeaderAccept), MIMEMsgpack) {
		data, err := msgpack.Marshal(record)
		if err != nil {
			return NewInternalError("failed to encode msgpack", err)
		}
		return c.Blob(http.StatusOK, MIMEMsgpack, data)
	}

	return c.JSON(http.StatusOK, record)
}

// HandleSelectFile selects a file. Unknown ids leave the selection unchanged.
func (h *FileHandlerImpl) HandleSelectFile(c echo.Context) error {
	ws, err := lookupWorkspace(h.workspaces, c)
	if err != nil {
		return err
	}

	var req selectFileRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	if req.ID == "" {
		return NewValidationError("id")
	}

	selected := ws.Select(req.ID)
	return c.JSON(http.StatusOK, selectFileResponse{
		Selected: selected,
		Registry: ws.Snapshot(),
	})
}

// HandleDeleteFile removes a file. Unknown ids leave the registry unchanged.
func (h *FileHandlerImpl) HandleDeleteFile(c echo.Context) error {
	ws, err := lookupWorkspace(h.workspaces, c)
	if err != nil {
		return err
	}

	removed := ws.Remove(c.Param("id"))
	return c.JSON(http.StatusOK, deleteFileResponse{
		Removed:  removed,
		Registry: ws.Snapshot(),
	})
}

// HandleViewer returns the viewer pane for the selected file
func (h *FileHandlerImpl) HandleViewer(c echo.Context) error {
	ws, err := lookupWorkspace(h.workspaces, c)
	if err != nil {
		return err
	}

	var selected *models.FileRecord
	if record, ok := ws.Selected(); ok {
		selected = &record
	}
	return c.JSON(http.StatusOK, h.viewer.Render(selected))
}

// HandleExplain returns the placeholder explanation of a selection
func (h *FileHandlerImpl) HandleExplain(c echo.Context) error {
	ws, err := lookupWorkspace(h.workspaces, c)
	if err != nil {
		return err
	}

	id := c.Param("id")
	record, ok := ws.Get(id)
	if !ok {
		return NewNotFoundError("file", id)
	}

	var req explainRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}

	explanation, err := h.explainer.Explain(c.Request().Context(), record, req.Selection)
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, explanation)
}

// Request/Response types

type fileListResponse struct {
	Files      []view.ListItem `json:"files"`
	SelectedID string          `json:"selectedId,omitempty"`
}

type selectFileRequest struct {
	ID string `json:"id"`
}

type selectFileResponse struct {
	Selected bool                    `json:"selected"`
	Registry models.RegistrySnapshot `json:"registry"`
}

type deleteFileResponse struct {
	Removed  bool                    `json:"removed"`
	Registry models.RegistrySnapshot `json:"registry"`
}

type explainRequest struct {
	Selection string `json:"selection"`
}
