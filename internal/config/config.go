package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/menta2k/image-composer/pkg/cropper"
	"github.com/menta2k/image-composer/pkg/exporter"
	"github.com/menta2k/image-composer/pkg/upload"
)

// Config holds the application configuration
type Config struct {
	Assets    AssetsConfig      `json:"assets"`
	Preview   PreviewConfig     `json:"preview"`
	Cropper   CropperConfig     `json:"cropper"`
	Fonts     map[string]string `json:"fonts"`
	Export    ExportConfig      `json:"export"`
	Placement PlacementConfig   `json:"placement"`
	Server    ServerConfig      `json:"server"`
}

// AssetsConfig locates the catalog images
type AssetsConfig struct {
	Root string `json:"root"` // directory or http(s) base URL
}

// PreviewConfig holds the positioning surface geometry
type PreviewConfig struct {
	MaxWidth  int     `json:"max_width"`
	MaxHeight int     `json:"max_height"`
	FrameX    float64 `json:"frame_x"`
	FrameY    float64 `json:"frame_y"`
}

// CropperConfig holds configuration for the upload crop
type CropperConfig struct {
	HeightMode string `json:"height_mode"` // legacy or corrected
}

// ExportConfig holds configuration for output generation
type ExportConfig struct {
	JPEGQuality  int     `json:"jpeg_quality"`
	PDFQuality   int     `json:"pdf_quality"`
	WebPQuality  float32 `json:"webp_quality"`
	WebPLossless bool    `json:"webp_lossless"`
	PageSize     string  `json:"page_size"`
	DPI          float64 `json:"dpi"`
	Margin       float64 `json:"margin"`
	OutputDir    string  `json:"output_dir"`
}

// PlacementConfig selects how uploads are pre-positioned
type PlacementConfig struct {
	Backend        string  `json:"backend"` // none, saliency, ollama or llamacpp
	URL            string  `json:"url"`
	Model          string  `json:"model"`
	MinConfidence  float64 `json:"min_confidence"`
	TimeoutSeconds int     `json:"timeout_seconds"`
}

// ServerConfig holds the HTTP server settings
type ServerConfig struct {
	Addr        string `json:"addr"`
	Mode        string `json:"mode"` // gin mode: debug, release or test
	MaxUploadMB int    `json:"max_upload_mb"`
}

// Placement backends
const (
	BackendNone     = "none"
	BackendSaliency = "saliency"
	BackendOllama   = "ollama"
	BackendLlamaCpp = "llamacpp"
)

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Assets: AssetsConfig{
			Root: ".",
		},
		Preview: PreviewConfig{
			MaxWidth:  cropper.MaxPreviewWidth,
			MaxHeight: cropper.MaxPreviewHeight,
		},
		Cropper: CropperConfig{
			HeightMode: "legacy",
		},
		Fonts: map[string]string{},
		Export: ExportConfig{
			JPEGQuality:  92,
			PDFQuality:   92,
			WebPQuality:  90,
			WebPLossless: true,
			PageSize:     "A4",
			DPI:          300,
			Margin:       1,
			OutputDir:    "./output",
		},
		Placement: PlacementConfig{
			Backend:        BackendNone,
			URL:            "http://localhost:11434",
			Model:          "llava",
			MinConfidence:  0.3,
			TimeoutSeconds: 60,
		},
		Server: ServerConfig{
			Addr:        ":8080",
			Mode:        "release",
			MaxUploadMB: 20,
		},
	}
}

// LoadFromFile loads configuration from a JSON file. Fields missing from the
// file keep their defaults.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Preview.MaxWidth < 1 || c.Preview.MaxHeight < 1 {
		return fmt.Errorf("preview.max_width and preview.max_height must be positive")
	}

	if _, err := cropper.ParseHeightMode(c.Cropper.HeightMode); err != nil {
		return fmt.Errorf("cropper.height_mode: %w", err)
	}

	if c.Export.JPEGQuality < 1 || c.Export.JPEGQuality > 100 {
		return fmt.Errorf("export.jpeg_quality must be between 1 and 100")
	}

	if c.Export.PDFQuality < 1 || c.Export.PDFQuality > 100 {
		return fmt.Errorf("export.pdf_quality must be between 1 and 100")
	}

	if c.Export.DPI <= 0 {
		return fmt.Errorf("export.dpi must be positive")
	}

	if c.Export.Margin < 0 {
		return fmt.Errorf("export.margin cannot be negative")
	}

	switch strings.ToLower(c.Placement.Backend) {
	case "", BackendNone, BackendSaliency:
	case BackendOllama, BackendLlamaCpp:
		if c.Placement.URL == "" || c.Placement.Model == "" {
			return fmt.Errorf("placement.url and placement.model are required for %s", c.Placement.Backend)
		}
	default:
		return fmt.Errorf("placement.backend must be one of none, saliency, ollama, llamacpp")
	}

	if c.Placement.MinConfidence < 0 || c.Placement.MinConfidence > 1 {
		return fmt.Errorf("placement.min_confidence must be between 0 and 1")
	}

	if c.Server.MaxUploadMB < 1 {
		return fmt.Errorf("server.max_upload_mb must be positive")
	}

	return nil
}

// HeightMode returns the parsed crop height mode. Call Validate first.
func (c *Config) HeightMode() cropper.HeightMode {
	mode, _ := cropper.ParseHeightMode(c.Cropper.HeightMode)
	return mode
}

// UploadConfig returns the upload pipeline settings.
func (c *Config) UploadConfig() upload.Config {
	return upload.Config{
		Bounds:     cropper.Bounds{Width: c.Preview.MaxWidth, Height: c.Preview.MaxHeight},
		Frame:      cropper.Point{X: c.Preview.FrameX, Y: c.Preview.FrameY},
		HeightMode: c.HeightMode(),
	}
}

// ExportOptions returns the exporter settings.
func (c *Config) ExportOptions() exporter.Options {
	return exporter.Options{
		JPEGQuality:  c.Export.JPEGQuality,
		PDFQuality:   c.Export.PDFQuality,
		WebPQuality:  c.Export.WebPQuality,
		WebPLossless: c.Export.WebPLossless,
		PageSize:     c.Export.PageSize,
		DPI:          c.Export.DPI,
		Margin:       c.Export.Margin,
	}
}

// PlacementTimeout returns the per-request placement timeout.
func (c *Config) PlacementTimeout() time.Duration {
	if c.Placement.TimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.Placement.TimeoutSeconds) * time.Second
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "image-composer", "config.json")
}
