package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/menta2k/image-composer/pkg/cropper"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	c := Default()
	c.Cropper.HeightMode = "corrected"
	c.Fonts["Georgia"] = "/usr/share/fonts/georgia.ttf"
	if err := c.SaveToFile(path); err != nil {
		t.Fatalf("SaveToFile failed: %v", err)
	}

	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if loaded.HeightMode() != cropper.Corrected {
		t.Errorf("expected corrected height mode, got %s", loaded.HeightMode())
	}
	if loaded.Fonts["Georgia"] != "/usr/share/fonts/georgia.ttf" {
		t.Errorf("font map not preserved: %v", loaded.Fonts)
	}
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	os.WriteFile(path, []byte(`{"preview": {"frame_x": 25}}`), 0644)

	c, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if c.Preview.FrameX != 25 {
		t.Errorf("expected frame_x 25, got %f", c.Preview.FrameX)
	}
	if c.Preview.MaxWidth != 1000 || c.Export.DPI != 300 {
		t.Errorf("missing fields must keep defaults: %+v %+v", c.Preview, c.Export)
	}

	uc := c.UploadConfig()
	if uc.Frame.X != 25 || uc.Bounds.Height != 500 || uc.HeightMode != cropper.Legacy {
		t.Errorf("unexpected upload config %+v", uc)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.json")
	os.WriteFile(path, []byte("{"), 0644)
	if _, err := LoadFromFile(path); err == nil {
		t.Error("expected error for malformed file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero preview", func(c *Config) { c.Preview.MaxWidth = 0 }},
		{"height mode", func(c *Config) { c.Cropper.HeightMode = "diagonal" }},
		{"jpeg quality", func(c *Config) { c.Export.JPEGQuality = 101 }},
		{"dpi", func(c *Config) { c.Export.DPI = 0 }},
		{"backend", func(c *Config) { c.Placement.Backend = "magic" }},
		{"model backend without model", func(c *Config) {
			c.Placement.Backend = BackendOllama
			c.Placement.Model = ""
		}},
		{"confidence", func(c *Config) { c.Placement.MinConfidence = 2 }},
		{"upload size", func(c *Config) { c.Server.MaxUploadMB = 0 }},
	}

	for _, test := range tests {
		c := Default()
		test.mutate(c)
		if err := c.Validate(); err == nil {
			t.Errorf("%s: expected validation error", test.name)
		}
	}
}

func TestExportOptions(t *testing.T) {
	c := Default()
	c.Export.PageSize = "Letter"
	opts := c.ExportOptions()
	if opts.PageSize != "Letter" || opts.PDFQuality != 92 || opts.DPI != 300 {
		t.Errorf("unexpected export options %+v", opts)
	}
}

func TestGetConfigPath(t *testing.T) {
	if filepath.Base(GetConfigPath()) != "config.json" {
		t.Errorf("unexpected config path %s", GetConfigPath())
	}
}
