// handlers_health.go - Health check and language metadata handlers
package api

import (
	"net/http"

	"github.com/code-explorer/backend/internal/language"
	"github.com/labstack/echo/v4"
)

// HealthHandlerImpl implements the HealthHandler interface
type HealthHandlerImpl struct {
	version    string
	workspaces WorkspaceStore
	detector   *language.Detector
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(version string, workspaces WorkspaceStore, detector *language.Detector) HealthHandler {
	return &HealthHandlerImpl{
		version:    version,
		workspaces: workspaces,
		detector:   detector,
	}
}

// HandleHealth returns server health status
func (h *HealthHandlerImpl) HandleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":     "ok",
		"version":    h.version,
		"workspaces": h.workspaces.Count(),
	})
}

// HandleLanguages returns the extension table and the picker allow-list
func (h *HealthHandlerImpl) HandleLanguages(c echo.Context) error {
	return c.JSON(http.StatusOK, languagesResponse{
		Extensions: h.detector.Table(),
		Tags:       h.detector.Tags(),
		Fallback:   language.Fallback,
		Accepted:   language.AcceptedExtensions(),
		Accept:     language.AcceptAttribute(),
	})
}

type languagesResponse struct {
	Extensions map[string]string `json:"extensions"`
	Tags       []string          `json:"tags"`
	Fallback   string            `json:"fallback"`
	Accepted   []string          `json:"accepted"`
	Accept     string            `json:"accept"`
}
