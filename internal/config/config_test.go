package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Concurrency < 1 {
		t.Errorf("default concurrency should be positive, got %d", cfg.Concurrency)
	}
	opts := cfg.TimelineOptions()
	if opts.PixelsPerUnit != 50 || opts.SnapPixels != 5 || opts.MinDuration != 60 {
		t.Errorf("unexpected timeline defaults %+v", opts)
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "reelcut.yaml", `
concurrency: 3
timeline:
  pixels_per_unit: 100
  min_zoom: 1
  max_zoom: 1000
  snap_pixels: 10
  grid_interval: 0.5
  min_duration: 30
preview:
  width: 320
  height: 180
  cache_size: 8
  cache_ttl: 5s
logging:
  level: debug
  json: true
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Concurrency != 3 {
		t.Errorf("expected concurrency 3, got %d", cfg.Concurrency)
	}
	if cfg.Timeline.PixelsPerUnit != 100 || cfg.Timeline.GridInterval != 0.5 {
		t.Errorf("timeline section not applied: %+v", cfg.Timeline)
	}
	if cfg.Preview.CacheTTL != 5*time.Second {
		t.Errorf("expected 5s cache ttl, got %v", cfg.Preview.CacheTTL)
	}
	if !cfg.Logging.JSON || cfg.Logging.Level != "debug" {
		t.Errorf("logging section not applied: %+v", cfg.Logging)
	}
	// untouched sections keep their defaults
	if cfg.Waveform.PeaksPerSecond != 50 {
		t.Errorf("expected default peaks per second, got %d", cfg.Waveform.PeaksPerSecond)
	}
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "reelcut.toml", `
concurrency = 2

[ffmpeg]
binary_path = "/opt/ffmpeg/bin/ffmpeg"
threads = 4
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Concurrency != 2 || cfg.FFmpeg.Threads != 4 {
		t.Errorf("toml values not applied: %+v", cfg)
	}
	if cfg.FFmpeg.BinaryPath != "/opt/ffmpeg/bin/ffmpeg" {
		t.Errorf("unexpected binary path %q", cfg.FFmpeg.BinaryPath)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("REELCUT_CONCURRENCY", "7")
	t.Setenv("REELCUT_LOG_LEVEL", "warn")
	t.Setenv("REELCUT_METRICS_ENABLED", "true")
	t.Setenv("REELCUT_METRICS_ADDR", "127.0.0.1:9999")

	path := writeFile(t, "reelcut.yaml", "concurrency: 3\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Concurrency != 7 {
		t.Errorf("env should override file, got %d", cfg.Concurrency)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("expected warn, got %s", cfg.Logging.Level)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Addr != "127.0.0.1:9999" {
		t.Errorf("metrics overrides not applied: %+v", cfg.Metrics)
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := writeFile(t, ".env", "REELCUT_TEST_ONLY=from-dotenv\n")
	t.Cleanup(func() { os.Unsetenv("REELCUT_TEST_ONLY") })

	if err := LoadEnv(path, filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("load env failed: %v", err)
	}
	if got := os.Getenv("REELCUT_TEST_ONLY"); got != "from-dotenv" {
		t.Errorf("expected value from .env, got %q", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero concurrency", func(c *Config) { c.Concurrency = 0 }},
		{"zoom outside range", func(c *Config) { c.Timeline.PixelsPerUnit = 5000 }},
		{"inverted zoom range", func(c *Config) { c.Timeline.MinZoom = 10; c.Timeline.MaxZoom = 5 }},
		{"negative snap", func(c *Config) { c.Timeline.SnapPixels = -1 }},
		{"empty preview", func(c *Config) { c.Preview.Width = 0 }},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }},
		{"metrics without addr", func(c *Config) { c.Metrics.Enabled = true; c.Metrics.Addr = "" }},
	}

	if err := Default().Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	for _, name := range []string{"out.yaml", "out.toml"} {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			cfg.Concurrency = 5
			cfg.Preview.CacheTTL = 2 * time.Minute
			cfg.Logging.Level = "debug"

			path := filepath.Join(t.TempDir(), "nested", name)
			if err := cfg.Save(path); err != nil {
				t.Fatalf("save failed: %v", err)
			}
			loaded, err := Load(path)
			if err != nil {
				t.Fatalf("load failed: %v", err)
			}
			if loaded.Concurrency != 5 || loaded.Preview.CacheTTL != 2*time.Minute || loaded.Logging.Level != "debug" {
				t.Errorf("round trip lost values: %+v", loaded)
			}
		})
	}
}

func TestContext(t *testing.T) {
	cfg := Default()
	cfg.Concurrency = 9
	ctx := WithConfig(context.Background(), cfg)
	if FromContext(ctx).Concurrency != 9 {
		t.Error("expected config from context")
	}
	if FromContext(context.Background()) == nil {
		t.Error("expected default config without one in context")
	}
}
