// handlers_workspace.go - Workspace lifetime handlers
package api

import (
	"net/http"

	"github.com/code-explorer/backend/internal/workspace"
	"github.com/labstack/echo/v4"
)

// WorkspaceHandlerImpl implements the WorkspaceHandler interface
type WorkspaceHandlerImpl struct {
	workspaces WorkspaceStore
}

// NewWorkspaceHandler creates a new workspace handler
func NewWorkspaceHandler(workspaces WorkspaceStore) WorkspaceHandler {
	return &WorkspaceHandlerImpl{workspaces: workspaces}
}

// HandleCreateWorkspace opens a new, empty workspace
func (h *WorkspaceHandlerImpl) HandleCreateWorkspace(c echo.Context) error {
	ws := h.workspaces.Create()
	return c.JSON(http.StatusCreated, ws.State())
}

// HandleGetWorkspace returns the full state of a workspace
func (h *WorkspaceHandlerImpl) HandleGetWorkspace(c echo.Context) error {
	ws, err := lookupWorkspace(h.workspaces, c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ws.State())
}

// HandleDeleteWorkspace discards a workspace and its files
func (h *WorkspaceHandlerImpl) HandleDeleteWorkspace(c echo.Context) error {
	id := c.Param("wsId")
	if id == "" {
		return NewValidationError("wsId")
	}
	if err := h.workspaces.Delete(id); err != nil {
		return NewNotFoundError("workspace", id)
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleWorkspaceStatus returns the uploader status (loading flag and error message)
func (h *WorkspaceHandlerImpl) HandleWorkspaceStatus(c echo.Context) error {
	ws, err := lookupWorkspace(h.workspaces, c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ws.Status())
}

// lookupWorkspace resolves :wsId and marks the workspace as in use
func lookupWorkspace(workspaces WorkspaceStore, c echo.Context) (*workspace.Workspace, error) {
	id := c.Param("wsId")
	if id == "" {
		return nil, NewValidationError("wsId")
	}
	ws, ok := workspaces.Touch(id)
	if !ok {
		return nil, NewNotFoundError("workspace", id)
	}
	return ws, nil
}
