// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"context"

	"github.com/code-explorer/backend/internal/models"
	"github.com/code-explorer/backend/internal/workspace"
	"github.com/labstack/echo/v4"
)

// HealthHandler handles health and metadata operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
	HandleLanguages(c echo.Context) error
}

// WorkspaceHandler handles workspace lifetime operations
type WorkspaceHandler interface {
	HandleCreateWorkspace(c echo.Context) error
	HandleGetWorkspace(c echo.Context) error
	HandleDeleteWorkspace(c echo.Context) error
	HandleWorkspaceStatus(c echo.Context) error
}

// UploadHandler handles file upload operations
type UploadHandler interface {
	HandleUploadFiles(c echo.Context) error
	HandleUploadBase64(c echo.Context) error
	HandleUploadChunk(c echo.Context) error
	HandleCompleteUpload(c echo.Context) error
}

// FileHandler handles list, selection, viewer and explain operations
type FileHandler interface {
	HandleListFiles(c echo.Context) error
	HandleGetFile(c echo.Context) error
	HandleSelectFile(c echo.Context) error
	HandleDeleteFile(c echo.Context) error
	HandleViewer(c echo.Context) error
	HandleExplain(c echo.Context) error
}

// WorkspaceStore defines the interface for workspace management
// This allows mocking in tests
type WorkspaceStore interface {
	Create() *workspace.Workspace
	Get(id string) (*workspace.Workspace, bool)
	Touch(id string) (*workspace.Workspace, bool)
	Delete(id string) error
	Count() int
}

// Explainer answers the explain-selection action
type Explainer interface {
	Explain(ctx context.Context, record models.FileRecord, selection string) (models.Explanation, error)
}

var _ WorkspaceStore = (*workspace.Manager)(nil)
