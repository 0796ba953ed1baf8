package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Conversion.TargetClock != 8000000 {
		t.Errorf("Expected default target clock 8000000, got %d", cfg.Conversion.TargetClock)
	}
	if !cfg.Conversion.ByteswapPCM {
		t.Error("Expected byteswap enabled by default")
	}
	if cfg.Device.VendorID != 0x1d50 || cfg.Device.ProductID != 0x6147 {
		t.Errorf("Expected default device 1d50:6147, got %04x:%04x",
			cfg.Device.VendorID, cfg.Device.ProductID)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Expected default log level info, got %s", cfg.Logging.Level)
	}
	if cfg.Web.Enabled || cfg.Metrics.Enabled || cfg.Database.Enabled {
		t.Error("Expected optional services disabled by default")
	}
}

func TestLoadFromFile(t *testing.T) {
	content := `
conversion:
  target_clock: 4000000
  byteswap_pcm: false
  write_wav: true
web:
  enabled: true
  port: 9000
logging:
  level: debug
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Conversion.TargetClock != 4000000 {
		t.Errorf("Expected target clock 4000000, got %d", cfg.Conversion.TargetClock)
	}
	if cfg.Conversion.ByteswapPCM {
		t.Error("Expected byteswap disabled")
	}
	if !cfg.Conversion.WriteWAV {
		t.Error("Expected WAV export enabled")
	}
	if !cfg.Web.Enabled || cfg.Web.Port != 9000 {
		t.Errorf("Expected web on port 9000, got %+v", cfg.Web)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Expected debug level, got %s", cfg.Logging.Level)
	}

	// Untouched sections keep their defaults.
	if cfg.Metrics.Port != 9095 {
		t.Errorf("Expected default metrics port, got %d", cfg.Metrics.Port)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			"Zero target clock",
			"conversion:\n  target_clock: 0\n",
		},
		{
			"Overfast target clock",
			"conversion:\n  target_clock: 16000000\n",
		},
		{
			"Bad web port",
			"web:\n  enabled: true\n  port: 123456\n",
		},
		{
			"Missing metrics path",
			"metrics:\n  enabled: true\n  path: \"\"\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatalf("Failed to write config: %v", err)
			}

			if _, err := Load(path); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}
