package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/code-explorer/backend/internal/api"
	"github.com/code-explorer/backend/internal/config"
	"github.com/code-explorer/backend/internal/explain"
	"github.com/code-explorer/backend/internal/highlight"
	"github.com/code-explorer/backend/internal/language"
	"github.com/code-explorer/backend/internal/logging"
	"github.com/code-explorer/backend/internal/registry"
	"github.com/code-explorer/backend/internal/storage"
	"github.com/code-explorer/backend/internal/view"
	"github.com/code-explorer/backend/internal/web"
	"github.com/code-explorer/backend/internal/workspace"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func serve(ctx context.Context, configPath string) error {
	// Load XML configuration
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logging.New(logging.Options{
		Level:   cfg.Advanced.LogLevel,
		Console: cfg.Advanced.ConsoleLogging,
	})

	// Ensure all data directories exist
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	detector, err := newDetector(cfg, log)
	if err != nil {
		return err
	}

	// Chunk spool for large uploads
	store, err := storage.NewLocalStore(cfg.Storage.SpoolDirectory)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	maxFileSize, err := cfg.MaxFileSize()
	if err != nil {
		return err
	}

	workspaces := workspace.NewManager(workspace.Options{
		MaxWorkspaces: cfg.Workspace.MaxWorkspaces,
		RemovalPolicy: registry.ParseRemovalPolicy(cfg.Workspace.SelectionAfterDelete),
		MaxUploadSize: maxFileSize,
		Detector:      detector,
		Logger:        log,
	})

	highlighter := highlight.NewChroma(highlight.Options{
		Style:       cfg.Highlight.Style,
		LineNumbers: cfg.Highlight.LineNumbers,
		TabWidth:    cfg.Highlight.TabWidth,
	})
	viewer := view.NewViewer(highlighter)

	explainer := explain.New(log)
	defer explainer.Close()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	api.SetupMiddleware(e, api.MiddlewareConfig{
		Logger:            log,
		RequestLogging:    cfg.Advanced.EnableRequestLogging,
		Timeout:           time.Duration(cfg.Server.ReadTimeout) * time.Second,
		EnableCompression: cfg.Upload.EnableCompression,
		CompressionLevel:  cfg.Upload.CompressionLevel,
		BodyLimit:         cfg.Server.BodyLimit,
		EnableCORS:        cfg.Server.EnableCORS,
		AllowOrigins:      splitOrigins(cfg.Server.AllowOrigins),
	})

	api.RegisterRoutes(e, api.NewHandlers(&api.Dependencies{
		Workspaces:   workspaces,
		Store:        store,
		Viewer:       viewer,
		Explainer:    explainer,
		Detector:     detector,
		Version:      Version,
		WSMaxMessage: cfg.Advanced.WebSocketMaxMessageSize,
		Logger:       log,
	}))

	pages := web.NewPages(workspaces, viewer, highlighter, Version, log)
	if err := pages.Register(e); err != nil {
		return fmt.Errorf("failed to register pages: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Background cleanup of idle workspaces and abandoned chunk uploads
	go runCleanup(ctx, cfg, workspaces, store, log)

	// Configure server with settings from XML config
	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	printBanner(configPath, cfg)

	errCh := make(chan error, 1)
	go func() {
		if err := e.StartServer(s); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func newDetector(cfg *config.AppConfig, log zerolog.Logger) (*language.Detector, error) {
	if cfg.Languages.OverridesFile == "" {
		return language.NewDetector(nil), nil
	}
	overrides, err := language.LoadOverrides(cfg.Languages.OverridesFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load language overrides: %w", err)
	}
	log.Info().
		Str("file", cfg.Languages.OverridesFile).
		Int("extensions", len(overrides.Extensions)).
		Msg("loaded language overrides")
	return language.NewDetector(overrides.Extensions), nil
}

func runCleanup(ctx context.Context, cfg *config.AppConfig, workspaces *workspace.Manager, store storage.Store, log zerolog.Logger) {
	ticker := time.NewTicker(cfg.CleanupInterval())
	defer ticker.Stop()

	idle := cfg.IdleTimeout()
	if idle <= 0 {
		idle = workspace.DefaultIdleTimeout
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := workspaces.CleanupIdle(idle)
			stale := store.CleanupStale(cfg.StaleChunkAge())
			if removed > 0 || stale > 0 {
				log.Info().Int("workspaces", removed).Int("uploads", stale).Msg("cleanup")
			}
		}
	}
}

func splitOrigins(s string) []string {
	var origins []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

func printBanner(configPath string, cfg *config.AppConfig) {
	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║           Code Explorer Server                            ║\n")
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Version:    %-45s║\n", Version)
	fmt.Printf("║  Build Time: %-45s║\n", BuildTime)
	fmt.Printf("║  Style:      %-45s║\n", cfg.Highlight.Style)
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Config:    %-46s║\n", configPath)
	fmt.Printf("║  Listen:    http://%-38s║\n", cfg.GetServerAddr())
	fmt.Printf("║  Spool:     %-46s║\n", cfg.Storage.SpoolDirectory)
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")
	fmt.Printf("Open http://localhost:%d in your browser\n\n", cfg.Server.Port)
}
