// routes.go - Route registration helpers
// This file provides a clean way to register all API routes
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/code-explorer/backend/internal/language"
	"github.com/code-explorer/backend/internal/storage"
	"github.com/code-explorer/backend/internal/view"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Workspaces   WorkspaceStore
	Store        storage.Store
	Viewer       *view.Viewer
	Explainer    Explainer
	Detector     *language.Detector
	Version      string
	WSMaxMessage int // KB
	Logger       zerolog.Logger
}

// Handlers holds all handler instances
type Handlers struct {
	Health    HealthHandler
	Workspace WorkspaceHandler
	Upload    UploadHandler
	Files     FileHandler
	WebSocket *WebSocketHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	detector := deps.Detector
	if detector == nil {
		detector = language.NewDetector(nil)
	}
	return &Handlers{
		Health:    NewHealthHandler(deps.Version, deps.Workspaces, detector),
		Workspace: NewWorkspaceHandler(deps.Workspaces),
		Upload:    NewUploadHandler(deps.Workspaces, deps.Store, deps.Logger),
		Files:     NewFileHandler(deps.Workspaces, deps.Viewer, deps.Explainer),
		WebSocket: NewWebSocketHandler(deps.Workspaces, deps.WSMaxMessage, deps.Logger),
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	apiGroup := e.Group("/api")

	// Health check
	apiGroup.GET("/health", handlers.Health.HandleHealth)
	apiGroup.GET("/languages", handlers.Health.HandleLanguages)

	// Workspace routes
	wsGroup := apiGroup.Group("/workspaces")
	wsGroup.POST("", handlers.Workspace.HandleCreateWorkspace)
	wsGroup.GET("/:wsId", handlers.Workspace.HandleGetWorkspace)
	wsGroup.DELETE("/:wsId", handlers.Workspace.HandleDeleteWorkspace)
	wsGroup.GET("/:wsId/status", handlers.Workspace.HandleWorkspaceStatus)

	// Upload routes
	wsGroup.POST("/:wsId/files", handlers.Upload.HandleUploadFiles)
	wsGroup.POST("/:wsId/files/base64", handlers.Upload.HandleUploadBase64)
	wsGroup.POST("/:wsId/uploads/chunk", handlers.Upload.HandleUploadChunk)
	wsGroup.POST("/:wsId/uploads/complete", handlers.Upload.HandleCompleteUpload)

	// File routes
	wsGroup.GET("/:wsId/files", handlers.Files.HandleListFiles)
	wsGroup.GET("/:wsId/files/:id", handlers.Files.HandleGetFile)
	wsGroup.DELETE("/:wsId/files/:id", handlers.Files.HandleDeleteFile)
	wsGroup.PUT("/:wsId/selection", handlers.Files.HandleSelectFile)
	wsGroup.GET("/:wsId/viewer", handlers.Files.HandleViewer)
	wsGroup.POST("/:wsId/files/:id/explain", handlers.Files.HandleExplain)

	// WebSocket endpoint
	apiGroup.GET("/ws/workspaces/:wsId", handlers.WebSocket.HandleWebSocket)
}

// MiddlewareConfig selects the common middleware
type MiddlewareConfig struct {
	Logger            zerolog.Logger
	RequestLogging    bool
	Timeout           time.Duration
	EnableCompression bool
	CompressionLevel  int
	BodyLimit         string
	EnableCORS        bool
	AllowOrigins      []string
}

// SetupMiddleware configures common middleware
func SetupMiddleware(e *echo.Echo, cfg MiddlewareConfig) {
	// Use custom error handler
	e.HTTPErrorHandler = ErrorHandler

	// Request logging through zerolog
	if cfg.RequestLogging {
		log := cfg.Logger
		e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
			Skipper: func(c echo.Context) bool {
				path := c.Request().URL.Path
				return strings.HasSuffix(path, "/status") ||
					path == "/api/health"
			},
			LogURI:     true,
			LogStatus:  true,
			LogMethod:  true,
			LogLatency: true,
			LogError:   true,
			LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
				event := log.Info()
				if v.Error != nil || v.Status >= http.StatusInternalServerError {
					event = log.Error().Err(v.Error)
				}
				event.
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Msg("request")
				return nil
			},
		}))
	}

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 1024 * 4,
	}))

	if cfg.Timeout > 0 {
		e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
			Timeout: cfg.Timeout,
			Skipper: func(c echo.Context) bool {
				path := c.Request().URL.Path
				return strings.Contains(path, "/upload") ||
					strings.Contains(path, "/files") ||
					strings.HasPrefix(path, "/api/ws/")
			},
			ErrorMessage: "Request timeout",
		}))
	}

	// Compression middleware
	if cfg.EnableCompression {
		e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
			Level: cfg.CompressionLevel,
			Skipper: func(c echo.Context) bool {
				return strings.HasPrefix(c.Request().URL.Path, "/api/ws/")
			},
		}))
	}

	// Body limit middleware
	if cfg.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.BodyLimit))
	}

	if cfg.EnableCORS {
		origins := cfg.AllowOrigins
		if len(origins) == 0 {
			origins = []string{"*"}
		}
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: origins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		}))
	}
}
