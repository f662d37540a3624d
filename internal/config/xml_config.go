// Package config provides XML-based configuration with .env and environment overrides.
package config

import (
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Storage backends for submitted inspections.
const (
	BackendMemory = "memory"
	BackendDuckDB = "duckdb"
	BackendMongo  = "mongo"
)

// AppConfig represents the root XML configuration structure
type AppConfig struct {
	XMLName xml.Name `xml:"InspectionService"`

	// Server configuration
	Server ServerConfig `xml:"Server"`

	// Storage configuration
	Storage StorageConfig `xml:"Storage"`

	// Checklist templates
	Checklist ChecklistConfig `xml:"Checklist"`

	// Draft lifecycle
	Drafts DraftsConfig `xml:"Drafts"`

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

// StorageConfig selects where inspections and photos live
type StorageConfig struct {
	Backend        string `xml:"Backend"`
	DataDirectory  string `xml:"DataDirectory"`
	ImageDirectory string `xml:"ImageDirectory"`
	DuckDBFile     string `xml:"DuckDBFile"`
	MongoURI       string `xml:"MongoURI"`
	MongoDatabase  string `xml:"MongoDatabase"`
	MaxImageSize   string `xml:"MaxImageSize"`
}

// ChecklistConfig points at the YAML checklist templates
type ChecklistConfig struct {
	TemplateDirectory string `xml:"TemplateDirectory"`
}

// DraftsConfig controls in-progress inspection forms
type DraftsConfig struct {
	MaxDrafts          int    `xml:"MaxDrafts"`
	MaxAgeMinutes      int    `xml:"MaxAgeMinutes"`
	CleanupSchedule    string `xml:"CleanupSchedule"`
	DeleteOrphanImages bool   `xml:"DeleteOrphanImages"`
}

// AdvancedConfig contains advanced/tuning options
type AdvancedConfig struct {
	LogLevel             string `xml:"LogLevel"`
	EnableRequestLogging bool   `xml:"EnableRequestLogging"`
	ListLimit            int    `xml:"ListLimit"`
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
			BodyLimit:    "64M",
		},
		Storage: StorageConfig{
			Backend:        BackendDuckDB,
			DataDirectory:  "./data",
			ImageDirectory: "./data/images",
			DuckDBFile:     "./data/inspections.duckdb",
			MongoURI:       "mongodb://localhost:27017",
			MongoDatabase:  "vistoria",
			MaxImageSize:   "16M",
		},
		Checklist: ChecklistConfig{
			TemplateDirectory: "./templates",
		},
		Drafts: DraftsConfig{
			MaxDrafts:          200,
			MaxAgeMinutes:      120,
			CleanupSchedule:    "@every 5m",
			DeleteOrphanImages: true,
		},
		Advanced: AdvancedConfig{
			LogLevel:             "info",
			EnableRequestLogging: true,
			ListLimit:            100,
		},
	}
}

// LoadConfig loads configuration from XML file. A .env file in the working
// directory is loaded first so its values take part in the overrides.
func LoadConfig(configPath string) (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed loading .env file: %w", err)
	}

	var config *AppConfig

	// If file doesn't exist, create default
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		config = DefaultConfig()
		if err := config.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	} else {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		config = DefaultConfig()
		if err := xml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	config.applyEnvironmentOverrides()
	config.resolvePaths(filepath.Dir(configPath))

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

	header := []byte(xml.Header + "\n<!-- Property Inspection Service Configuration -->\n<!-- This file is auto-generated on first run -->\n\n")
	content := append(header, output...)

	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// applyEnvironmentOverrides allows environment variables to override config values
func (c *AppConfig) applyEnvironmentOverrides() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		c.Storage.DataDirectory = dataDir
		c.Storage.ImageDirectory = filepath.Join(dataDir, "images")
		c.Storage.DuckDBFile = filepath.Join(dataDir, "inspections.duckdb")
	}

	c.Storage.Backend = getenvWithDefault("STORAGE_BACKEND", c.Storage.Backend)
	c.Storage.MongoURI = getenvWithDefault("MONGODB_URI", c.Storage.MongoURI)
	c.Storage.MongoDatabase = getenvWithDefault("MONGODB_DB_NAME", c.Storage.MongoDatabase)
	c.Advanced.LogLevel = getenvWithDefault("LOG_LEVEL", c.Advanced.LogLevel)
}

// resolvePaths converts relative paths to absolute based on config file location
func (c *AppConfig) resolvePaths(configDir string) {
	for _, p := range []*string{
		&c.Storage.DataDirectory,
		&c.Storage.ImageDirectory,
		&c.Storage.DuckDBFile,
		&c.Checklist.TemplateDirectory,
	} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(configDir, *p)
		}
	}
}

// Validate rejects settings the server cannot start with.
func (c *AppConfig) Validate() error {
	var problems []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d", c.Server.Port))
	}
	switch c.Storage.Backend {
	case BackendMemory, BackendDuckDB:
	case BackendMongo:
		if c.Storage.MongoURI == "" {
			problems = append(problems, "MongoURI is required for the mongo backend")
		}
		if c.Storage.MongoDatabase == "" {
			problems = append(problems, "MongoDatabase is required for the mongo backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown storage backend %q", c.Storage.Backend))
	}
	if c.Drafts.MaxDrafts <= 0 {
		problems = append(problems, "MaxDrafts must be positive")
	}
	if c.Drafts.MaxAgeMinutes <= 0 {
		problems = append(problems, "MaxAgeMinutes must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// EnsureDirectories creates all necessary directories
func (c *AppConfig) EnsureDirectories() error {
	dirs := []string{c.Storage.DataDirectory}
	if c.Storage.Backend != BackendMongo {
		dirs = append(dirs, c.Storage.ImageDirectory)
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
