package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/keagan/reelcut/internal/timeline"
	"github.com/keagan/reelcut/pkg/util"
	"github.com/shirou/gopsutil/v3/cpu"
	"gopkg.in/yaml.v3"
)

type contextKey string

const configKey contextKey = "config"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "REELCUT_"

// Config holds all application configuration
type Config struct {
	// Core settings
	WorkDir     string `yaml:"work_dir" toml:"work_dir"`
	TempDir     string `yaml:"temp_dir" toml:"temp_dir"`
	Concurrency int    `yaml:"concurrency" toml:"concurrency"`

	Timeline TimelineConfig `yaml:"timeline" toml:"timeline"`
	FFmpeg   FFmpegConfig   `yaml:"ffmpeg" toml:"ffmpeg"`
	Preview  PreviewConfig  `yaml:"preview" toml:"preview"`
	Waveform WaveformConfig `yaml:"waveform" toml:"waveform"`
	Logging  LoggingConfig  `yaml:"logging" toml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics" toml:"metrics"`
}

type TimelineConfig struct {
	PixelsPerUnit float64 `yaml:"pixels_per_unit" toml:"pixels_per_unit"`
	MinZoom       float64 `yaml:"min_zoom" toml:"min_zoom"`
	MaxZoom       float64 `yaml:"max_zoom" toml:"max_zoom"`
	SnapPixels    float64 `yaml:"snap_pixels" toml:"snap_pixels"`
	GridInterval  float64 `yaml:"grid_interval" toml:"grid_interval"`
	MinDuration   float64 `yaml:"min_duration" toml:"min_duration"`
}

type FFmpegConfig struct {
	BinaryPath string `yaml:"binary_path" toml:"binary_path"`
	ProbePath  string `yaml:"probe_path" toml:"probe_path"`
	Threads    int    `yaml:"threads" toml:"threads"`
}

// PreviewConfig sizes rendered preview frames and the decoded frame cache.
type PreviewConfig struct {
	Width     int           `yaml:"width" toml:"width"`
	Height    int           `yaml:"height" toml:"height"`
	CacheSize int           `yaml:"cache_size" toml:"cache_size"`
	CacheTTL  time.Duration `yaml:"cache_ttl" toml:"cache_ttl"`
}

type WaveformConfig struct {
	PeaksPerSecond int `yaml:"peaks_per_second" toml:"peaks_per_second"`
	SampleRate     int `yaml:"sample_rate" toml:"sample_rate"`
}

type LoggingConfig struct {
	Level string `yaml:"level" toml:"level"`
	JSON  bool   `yaml:"json" toml:"json"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Addr    string `yaml:"addr" toml:"addr"`
}

// Load reads configuration from file or returns defaults. A .env file in
// the working directory and REELCUT_* variables override file values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = findConfigFile()
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			if err := decode(path, data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		}
	}

	if err := LoadEnv(); err != nil {
		return nil, err
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	if util.GetExtension(path) == ".toml" {
		_, err := toml.Decode(string(data), cfg)
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// LoadEnv loads .env files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

func (c *Config) applyEnv() {
	c.WorkDir = getEnv("WORK_DIR", c.WorkDir)
	c.TempDir = getEnv("TEMP_DIR", c.TempDir)
	c.Concurrency = getEnvInt("CONCURRENCY", c.Concurrency)
	c.FFmpeg.BinaryPath = getEnv("FFMPEG_PATH", c.FFmpeg.BinaryPath)
	c.FFmpeg.ProbePath = getEnv("FFPROBE_PATH", c.FFmpeg.ProbePath)
	c.FFmpeg.Threads = getEnvInt("FFMPEG_THREADS", c.FFmpeg.Threads)
	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)
	c.Logging.JSON = getEnvBool("LOG_JSON", c.Logging.JSON)
	c.Metrics.Enabled = getEnvBool("METRICS_ENABLED", c.Metrics.Enabled)
	c.Metrics.Addr = getEnv("METRICS_ADDR", c.Metrics.Addr)
}

func getEnv(key, fallback string) string {
	if s := os.Getenv(EnvPrefix + key); s != "" {
		return s
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if s := os.Getenv(EnvPrefix + key); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if s := os.Getenv(EnvPrefix + key); s != "" {
		if b, err := strconv.ParseBool(s); err == nil {
			return b
		}
	}
	return fallback
}

// Save writes configuration to file, as TOML when the path ends in .toml
func (c *Config) Save(path string) error {
	var data []byte
	if util.GetExtension(path) == ".toml" {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(c); err != nil {
			return fmt.Errorf("failed to encode config to TOML: %w", err)
		}
		data = buf.Bytes()
	} else {
		var err error
		if data, err = yaml.Marshal(c); err != nil {
			return err
		}
	}

	if err := util.EnsureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return util.WriteFileAtomic(path, data, 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1")
	}
	if c.FFmpeg.Threads < 0 {
		return fmt.Errorf("ffmpeg threads cannot be negative")
	}

	t := c.Timeline
	if t.MinZoom <= 0 || t.MaxZoom < t.MinZoom {
		return fmt.Errorf("invalid zoom range [%v, %v]", t.MinZoom, t.MaxZoom)
	}
	if t.PixelsPerUnit < t.MinZoom || t.PixelsPerUnit > t.MaxZoom {
		return fmt.Errorf("pixels per unit %v outside zoom range", t.PixelsPerUnit)
	}
	if t.SnapPixels < 0 || t.GridInterval < 0 || t.MinDuration < 0 {
		return fmt.Errorf("snap pixels, grid interval and min duration cannot be negative")
	}

	if c.Preview.Width <= 0 || c.Preview.Height <= 0 {
		return fmt.Errorf("preview size must be positive")
	}
	if c.Preview.CacheSize < 0 || c.Preview.CacheTTL < 0 {
		return fmt.Errorf("preview cache settings cannot be negative")
	}
	if c.Waveform.PeaksPerSecond <= 0 || c.Waveform.SampleRate <= 0 {
		return fmt.Errorf("waveform rates must be positive")
	}

	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s (must be trace, debug, info, warn, or error)", c.Logging.Level)
	}

	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return fmt.Errorf("metrics address cannot be empty when metrics are enabled")
	}

	return nil
}

// TimelineOptions converts the timeline section into timeline options.
func (c *Config) TimelineOptions() timeline.Options {
	return timeline.Options{
		PixelsPerUnit: c.Timeline.PixelsPerUnit,
		MinZoom:       c.Timeline.MinZoom,
		MaxZoom:       c.Timeline.MaxZoom,
		SnapPixels:    c.Timeline.SnapPixels,
		GridInterval:  c.Timeline.GridInterval,
		MinDuration:   c.Timeline.MinDuration,
	}
}

// defaultConcurrency is the logical CPU count.
func defaultConcurrency() int {
	if n, err := cpu.Counts(true); err == nil && n > 0 {
		return n
	}
	return runtime.NumCPU()
}

func defaultConfig() *Config {
	opts := timeline.DefaultOptions()
	return &Config{
		WorkDir:     "./work",
		TempDir:     filepath.Join(os.TempDir(), "reelcut"),
		Concurrency: defaultConcurrency(),
		Timeline: TimelineConfig{
			PixelsPerUnit: opts.PixelsPerUnit,
			MinZoom:       opts.MinZoom,
			MaxZoom:       opts.MaxZoom,
			SnapPixels:    opts.SnapPixels,
			GridInterval:  opts.GridInterval,
			MinDuration:   opts.MinDuration,
		},
		FFmpeg: FFmpegConfig{
			BinaryPath: "ffmpeg",
			ProbePath:  "ffprobe",
			Threads:    0,
		},
		Preview: PreviewConfig{
			Width:     640,
			Height:    360,
			CacheSize: 64,
			CacheTTL:  30 * time.Second,
		},
		Waveform: WaveformConfig{
			PeaksPerSecond: 50,
			SampleRate:     8000,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Metrics: MetricsConfig{
			Addr: ":9090",
		},
	}
}

// Default returns the built-in configuration.
func Default() *Config {
	return defaultConfig()
}

func findConfigFile() string {
	candidates := []string{
		"./reelcut.yaml",
		"./reelcut.yml",
		"./reelcut.toml",
		filepath.Join(os.Getenv("HOME"), ".reelcut", "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// WithConfig stores config in context
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from context
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configKey).(*Config); ok {
		return cfg
	}
	return defaultConfig()
}
