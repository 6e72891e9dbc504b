// Package config provides XML-based configuration management.
package config

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"github.com/labstack/gommon/log"
)

// AppConfig represents the root XML configuration structure
type AppConfig struct {
	XMLName xml.Name `xml:"InsightForge"`

	// Server configuration
	Server ServerConfig `xml:"Server"`

	// Storage configuration
	Storage StorageConfig `xml:"Storage"`

	// Processing configuration
	Processing ProcessingConfig `xml:"Processing"`

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

// StorageConfig contains file storage settings.
// Empty TempDirectory and PreferencesFile are placed under DataDirectory.
type StorageConfig struct {
	DataDirectory   string `xml:"DataDirectory"`
	TempDirectory   string `xml:"TempDirectory"`
	PreferencesFile string `xml:"PreferencesFile"`
	MaxUploadSize   string `xml:"MaxUploadSize"`
}

// ProcessingConfig contains analysis settings
type ProcessingConfig struct {
	AnalysisDelayMs        int  `xml:"AnalysisDelayMs"`
	MaxConcurrentAnalyses  int  `xml:"MaxConcurrentAnalyses"`
	SessionTimeoutMinutes  int  `xml:"SessionTimeoutMinutes"`
	CleanupIntervalMinutes int  `xml:"CleanupIntervalMinutes"`
	EnableCompression      bool `xml:"EnableCompression"`
	CompressionLevel       int  `xml:"CompressionLevel"`
}

// AdvancedConfig contains advanced/tuning options
type AdvancedConfig struct {
	LogLevel             string `xml:"LogLevel"`
	EnableRequestLogging bool   `xml:"EnableRequestLogging"`
	ShowErrorDetails     bool   `xml:"ShowErrorDetails"`
	DuckDBThreads        int    `xml:"DuckDBThreads"`
	DuckDBMemoryLimit    string `xml:"DuckDBMemoryLimit"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:         8090,
			BindAddress:  "0.0.0.0",
			EnableCORS:   true,
			AllowOrigins: "*",
			ReadTimeout:  30,
			WriteTimeout: 30,
			IdleTimeout:  120,
			BodyLimit:    "8M", // base64 JSON uploads are a third larger than the file
		},
		Storage: StorageConfig{
			DataDirectory: "./data",
			MaxUploadSize: "5MiB",
		},
		Processing: ProcessingConfig{
			AnalysisDelayMs:        1500,
			MaxConcurrentAnalyses:  3,
			SessionTimeoutMinutes:  30,
			CleanupIntervalMinutes: 5,
			EnableCompression:      true,
			CompressionLevel:       5,
		},
		Advanced: AdvancedConfig{
			LogLevel:             "info",
			EnableRequestLogging: true,
			ShowErrorDetails:     false,
			DuckDBThreads:        2,
			DuckDBMemoryLimit:    "256MB",
		},
	}
}

// LoadConfig loads configuration from XML file. A missing file is created
// with defaults. An optional .env next to the config file is loaded before
// environment overrides are applied; variables already set win.
func LoadConfig(configPath string) (*AppConfig, error) {
	configDir := filepath.Dir(configPath)

	if err := godotenv.Load(filepath.Join(configDir, ".env")); err != nil && !os.IsNotExist(err) {
		log.Warnf("[Config] Failed to load .env: %v", err)
	}

	config := DefaultConfig()

	// If file doesn't exist, create default
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

	// Resolve relative paths
	config.resolvePaths(configDir)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Save saves the configuration to XML file
func (c *AppConfig) Save(configPath string) error {
	output, err := xml.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(xml.Header + "\n<!-- InsightForge Configuration -->\n<!-- This file is auto-generated on first run -->\n\n")
	content := append(header, output...)

	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
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

	// DATA_DIR override
	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		c.Storage.DataDirectory = dataDir
	}

	if tempDir := os.Getenv("DUCKDB_TEMP_DIR"); tempDir != "" {
		c.Storage.TempDirectory = tempDir
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Advanced.LogLevel = level
	}

	if size := os.Getenv("MAX_UPLOAD_SIZE"); size != "" {
		c.Storage.MaxUploadSize = size
	}

	if delay := os.Getenv("ANALYSIS_DELAY_MS"); delay != "" {
		if d, err := strconv.Atoi(delay); err == nil {
			c.Processing.AnalysisDelayMs = d
		}
	}
}

// resolvePaths converts relative paths to absolute based on config file location
func (c *AppConfig) resolvePaths(configDir string) {
	if !filepath.IsAbs(c.Storage.DataDirectory) {
		c.Storage.DataDirectory = filepath.Join(configDir, c.Storage.DataDirectory)
	}

	if c.Storage.TempDirectory == "" {
		c.Storage.TempDirectory = filepath.Join(c.Storage.DataDirectory, "temp")
	} else if !filepath.IsAbs(c.Storage.TempDirectory) {
		c.Storage.TempDirectory = filepath.Join(configDir, c.Storage.TempDirectory)
	}

	if c.Storage.PreferencesFile == "" {
		c.Storage.PreferencesFile = filepath.Join(c.Storage.DataDirectory, "preferences.yaml")
	} else if !filepath.IsAbs(c.Storage.PreferencesFile) {
		c.Storage.PreferencesFile = filepath.Join(configDir, c.Storage.PreferencesFile)
	}
}

// Validate checks values that cannot be defaulted silently
func (c *AppConfig) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if _, err := c.MaxUploadBytes(); err != nil {
		return err
	}
	if c.Processing.AnalysisDelayMs < 0 {
		return fmt.Errorf("invalid analysis delay: %dms", c.Processing.AnalysisDelayMs)
	}
	return nil
}

// MaxUploadBytes parses Storage.MaxUploadSize ("5MiB", "5242880", ...)
func (c *AppConfig) MaxUploadBytes() (int64, error) {
	n, err := humanize.ParseBytes(c.Storage.MaxUploadSize)
	if err != nil {
		return 0, fmt.Errorf("invalid max upload size %q: %w", c.Storage.MaxUploadSize, err)
	}
	if n == 0 {
		return 0, fmt.Errorf("invalid max upload size %q: must be positive", c.Storage.MaxUploadSize)
	}
	return int64(n), nil
}

// AnalysisDelay returns the pause before suggestions are produced
func (c *AppConfig) AnalysisDelay() time.Duration {
	return time.Duration(c.Processing.AnalysisDelayMs) * time.Millisecond
}

// GetLogLevel maps Advanced.LogLevel to a logger level. Unknown values map to INFO.
func (c *AppConfig) GetLogLevel() log.Lvl {
	switch strings.ToLower(strings.TrimSpace(c.Advanced.LogLevel)) {
	case "debug":
		return log.DEBUG
	case "warn", "warning":
		return log.WARN
	case "error":
		return log.ERROR
	case "off":
		return log.OFF
	default:
		return log.INFO
	}
}

// GetAllowOrigins splits Server.AllowOrigins into a list
func (c *AppConfig) GetAllowOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.Server.AllowOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return origins
}

// GetDataDir returns the absolute data directory path
func (c *AppConfig) GetDataDir() string {
	return c.Storage.DataDirectory
}

// GetTempDir returns the directory for session row stores
func (c *AppConfig) GetTempDir() string {
	return c.Storage.TempDirectory
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// EnsureDirectories creates all necessary directories
func (c *AppConfig) EnsureDirectories() error {
	dirs := []string{
		c.Storage.DataDirectory,
		c.Storage.TempDirectory,
		filepath.Dir(c.Storage.PreferencesFile),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
