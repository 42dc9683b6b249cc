// Package config provides XML-based configuration management.
package config

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/gommon/bytes"
)

// DefaultFileName is the config file created next to the executable.
const DefaultFileName = "CodeExplorer.config"

// AppConfig represents the root XML configuration structure
type AppConfig struct {
	XMLName xml.Name `xml:"CodeExplorer"`

	// Server configuration
	Server ServerConfig `xml:"Server"`

	// Storage configuration
	Storage StorageConfig `xml:"Storage"`

	// Upload configuration
	Upload UploadConfig `xml:"Upload"`

	// Workspace lifetime and behaviour
	Workspace WorkspaceConfig `xml:"Workspace"`

	// Highlighting
	Highlight HighlightConfig `xml:"Highlight"`

	// Language table overrides
	Languages LanguagesConfig `xml:"Languages"`

	// Advanced options
	Advanced AdvancedConfig `xml:"Advanced"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port         int    `xml:"Port"`
	BindAddress  string `xml:"BindAddress"`
	EnableCORS   bool   `xml:"EnableCORS"`
	AllowOrigins string `xml:"AllowOrigins"`
	ReadTimeout  int    `xml:"ReadTimeoutSeconds"`
	WriteTimeout int    `xml:"WriteTimeoutSeconds"`
	IdleTimeout  int    `xml:"IdleTimeoutSeconds"`
	BodyLimit    string `xml:"BodyLimit"`
}

// StorageConfig contains file storage settings
type StorageConfig struct {
	DataDirectory  string `xml:"DataDirectory"`
	SpoolDirectory string `xml:"SpoolDirectory"`
	// Chunk directories older than this are removed by the cleanup loop.
	StaleChunkMinutes int `xml:"StaleChunkMinutes"`
}

// UploadConfig contains upload limits
type UploadConfig struct {
	// KiB and MiB are binary units; K, KB, M and MB are decimal.
	MaxFileSize       string `xml:"MaxFileSize"`
	EnableCompression bool   `xml:"EnableCompression"`
	CompressionLevel  int    `xml:"CompressionLevel"`
}

// WorkspaceConfig contains workspace lifetime settings
type WorkspaceConfig struct {
	MaxWorkspaces          int    `xml:"MaxWorkspaces"`
	IdleTimeoutMinutes     int    `xml:"IdleTimeoutMinutes"`
	CleanupIntervalMinutes int    `xml:"CleanupIntervalMinutes"`
	SelectionAfterDelete   string `xml:"SelectionAfterDelete"` // "first" or "none"
}

// HighlightConfig contains syntax highlighting settings
type HighlightConfig struct {
	Style       string `xml:"Style"`
	LineNumbers bool   `xml:"LineNumbers"`
	TabWidth    int    `xml:"TabWidth"`
}

// LanguagesConfig points to an optional YAML file of extension overrides
type LanguagesConfig struct {
	OverridesFile string `xml:"OverridesFile"`
}

// AdvancedConfig contains advanced/tuning options
type AdvancedConfig struct {
	LogLevel                string `xml:"LogLevel"`
	ConsoleLogging          bool   `xml:"ConsoleLogging"`
	EnableRequestLogging    bool   `xml:"EnableRequestLogging"`
	WebSocketMaxMessageSize int    `xml:"WebSocketMaxMessageSizeKB"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:         8089,
			BindAddress:  "0.0.0.0",
			EnableCORS:   true,
			AllowOrigins: "*",
			ReadTimeout:  30,
			WriteTimeout: 30,
			IdleTimeout:  120,
			BodyLimit:    "32M",
		},
		Storage: StorageConfig{
			DataDirectory:     "./data",
			SpoolDirectory:    "./data/spool",
			StaleChunkMinutes: 60,
		},
		Upload: UploadConfig{
			MaxFileSize:       "10MiB",
			EnableCompression: true,
			CompressionLevel:  5,
		},
		Workspace: WorkspaceConfig{
			MaxWorkspaces:          100,
			IdleTimeoutMinutes:     30,
			CleanupIntervalMinutes: 5,
			SelectionAfterDelete:   "first",
		},
		Highlight: HighlightConfig{
			Style:       "monokai",
			LineNumbers: true,
			TabWidth:    4,
		},
		Advanced: AdvancedConfig{
			LogLevel:                "info",
			ConsoleLogging:          true,
			EnableRequestLogging:    true,
			WebSocketMaxMessageSize: 16384,
		},
	}
}

// LoadConfig loads configuration from XML file. A missing file is created
// with the defaults. Variables from a .env file in the working directory are
// loaded before environment overrides are applied.
func LoadConfig(configPath string) (*AppConfig, error) {
	// Missing .env is not an error
	_ = godotenv.Load()

	config := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := config.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	} else {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := xml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Apply environment variable overrides
	config.applyEnvironmentOverrides()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Resolve relative paths
	config.resolvePaths(filepath.Dir(configPath))

	return config, nil
}

// Save saves the configuration to XML file
func (c *AppConfig) Save(configPath string) error {
	output, err := xml.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(xml.Header + "\n<!-- Code Explorer Configuration -->\n<!-- This file is auto-generated on first run -->\n\n")
	content := append(header, output...)

	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks values that cannot be defaulted silently
func (c *AppConfig) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	if _, err := c.MaxFileSize(); err != nil {
		return err
	}
	switch c.Workspace.SelectionAfterDelete {
	case "", "first", "none":
	default:
		return fmt.Errorf("invalid SelectionAfterDelete %q: want \"first\" or \"none\"", c.Workspace.SelectionAfterDelete)
	}
	return nil
}

// applyEnvironmentOverrides allows environment variables to override config values
func (c *AppConfig) applyEnvironmentOverrides() {
	// PORT override
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	// DATA_DIR override moves the spool along with it
	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		c.Storage.DataDirectory = dataDir
		c.Storage.SpoolDirectory = filepath.Join(dataDir, "spool")
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Advanced.LogLevel = level
	}

	if style := os.Getenv("HIGHLIGHT_STYLE"); style != "" {
		c.Highlight.Style = style
	}
}

// resolvePaths converts relative paths to absolute based on config file location
func (c *AppConfig) resolvePaths(configDir string) {
	if !filepath.IsAbs(c.Storage.DataDirectory) {
		c.Storage.DataDirectory = filepath.Join(configDir, c.Storage.DataDirectory)
	}
	if !filepath.IsAbs(c.Storage.SpoolDirectory) {
		c.Storage.SpoolDirectory = filepath.Join(configDir, c.Storage.SpoolDirectory)
	}
	if c.Languages.OverridesFile != "" && !filepath.IsAbs(c.Languages.OverridesFile) {
		c.Languages.OverridesFile = filepath.Join(configDir, c.Languages.OverridesFile)
	}
}

// MaxFileSize returns the per-file upload limit in bytes
func (c *AppConfig) MaxFileSize() (int64, error) {
	n, err := bytes.Parse(c.Upload.MaxFileSize)
	if err != nil {
		return 0, fmt.Errorf("invalid MaxFileSize %q: %w", c.Upload.MaxFileSize, err)
	}
	return n, nil
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// IdleTimeout returns how long an untouched workspace lives
func (c *AppConfig) IdleTimeout() time.Duration {
	return time.Duration(c.Workspace.IdleTimeoutMinutes) * time.Minute
}

// CleanupInterval returns the period of the cleanup loop
func (c *AppConfig) CleanupInterval() time.Duration {
	if c.Workspace.CleanupIntervalMinutes <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.Workspace.CleanupIntervalMinutes) * time.Minute
}

// StaleChunkAge returns the age after which unfinished chunk uploads are dropped
func (c *AppConfig) StaleChunkAge() time.Duration {
	return time.Duration(c.Storage.StaleChunkMinutes) * time.Minute
}

// EnsureDirectories creates all necessary directories
func (c *AppConfig) EnsureDirectories() error {
	dirs := []string{
		c.Storage.DataDirectory,
		c.Storage.SpoolDirectory,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
