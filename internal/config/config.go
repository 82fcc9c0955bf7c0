// Package config provides configuration management for the Framecut Agent.
// Configuration is loaded from environment variables with sensible defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	// Default values
	DefaultPort     = 8787
	DefaultLogLevel = "info"
	DefaultDataDir  = ".framecut"

	// Environment variable names
	EnvPort       = "FRAMECUT_PORT"
	EnvLogLevel   = "FRAMECUT_LOG_LEVEL"
	EnvDataDir    = "FRAMECUT_DATA_DIR"
	EnvCropRatios = "FRAMECUT_CROP_RATIOS"
	EnvExportSize = "FRAMECUT_EXPORT_SIZE"
	EnvHeadless   = "FRAMECUT_HEADLESS"

	// Database filename
	DBFilename = "framecut.db"

	// Export defaults
	DefaultExportWidth  = 1080
	DefaultExportHeight = 1080
)

// DefaultCropRatios is the aspect ratio cycle offered to clients:
// square, portrait 4:5, widescreen 16:9.
var DefaultCropRatios = []float64{1.0, 0.8, 1.7778}

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	ExportDir() string
	CropRatios() []float64
	ExportWidth() int
	ExportHeight() int
	Headless() bool
}

// EnvConfig reads configuration from environment variables
type EnvConfig struct {
	port         int
	logLevel     string
	dataDir      string
	cropRatios   []float64
	exportWidth  int
	exportHeight int
	headless     bool
}

// New creates a new EnvConfig with defaults and environment variable overrides
func New() (*EnvConfig, error) {
	cfg := &EnvConfig{
		port:         DefaultPort,
		logLevel:     DefaultLogLevel,
		dataDir:      defaultDataDir(),
		cropRatios:   DefaultCropRatios,
		exportWidth:  DefaultExportWidth,
		exportHeight: DefaultExportHeight,
	}

	// Override port from environment
	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
		}
		cfg.port = port
	}

	// Override log level from environment
	if ll := os.Getenv(EnvLogLevel); ll != "" {
		cfg.logLevel = ll
	}

	// Override data directory from environment
	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.dataDir = dd
	}

	// Override the crop ratio cycle from environment, e.g.
	// FRAMECUT_CROP_RATIOS="1.0,0.8,1.7778"
	if cr := os.Getenv(EnvCropRatios); cr != "" {
		ratios, err := parseRatios(cr)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvCropRatios, err)
		}
		cfg.cropRatios = ratios
	}

	// Override the export resolution from environment, e.g.
	// FRAMECUT_EXPORT_SIZE="1080x1080"
	if es := os.Getenv(EnvExportSize); es != "" {
		w, h, err := parseSize(es)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvExportSize, err)
		}
		cfg.exportWidth = w
		cfg.exportHeight = h
	}

	if hl := os.Getenv(EnvHeadless); hl != "" {
		cfg.headless = hl == "1" || strings.EqualFold(hl, "true")
	}

	return cfg, nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// ExportDir returns the default directory for crop export output
func (c *EnvConfig) ExportDir() string {
	return filepath.Join(c.dataDir, "exports")
}

// CropRatios returns the aspect ratio cycle, at least one entry
func (c *EnvConfig) CropRatios() []float64 {
	return c.cropRatios
}

// ExportWidth returns the preferred export output width in pixels
func (c *EnvConfig) ExportWidth() int {
	return c.exportWidth
}

// ExportHeight returns the preferred export output height in pixels
func (c *EnvConfig) ExportHeight() int {
	return c.exportHeight
}

// Headless reports whether the agent runs without a system tray
func (c *EnvConfig) Headless() bool {
	return c.headless
}

func parseRatios(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	ratios := make([]float64, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		r, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, fmt.Errorf("ratio %q: %w", part, err)
		}
		if r <= 0 {
			return nil, fmt.Errorf("ratio %q: must be positive", part)
		}
		ratios = append(ratios, r)
	}
	if len(ratios) == 0 {
		return nil, fmt.Errorf("at least one ratio is required")
	}
	return ratios, nil
}

func parseSize(s string) (int, int, error) {
	w, h, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return 0, 0, fmt.Errorf("expected WIDTHxHEIGHT, got %q", s)
	}
	width, err := strconv.Atoi(strings.TrimSpace(w))
	if err != nil {
		return 0, 0, fmt.Errorf("width: %w", err)
	}
	height, err := strconv.Atoi(strings.TrimSpace(h))
	if err != nil {
		return 0, 0, fmt.Errorf("height: %w", err)
	}
	if width < 1 || height < 1 {
		return 0, 0, fmt.Errorf("dimensions must be positive, got %dx%d", width, height)
	}
	return width, height, nil
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
