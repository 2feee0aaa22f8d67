package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/openxe/oxe/internal/progress"
)

// Config defines configuration for the oxe CLI.
type Config struct {
	Mirror        string        `yaml:"mirror"`
	DataDir       string        `yaml:"data_dir"`
	VideoDir      string        `yaml:"video_dir"`
	Workers       int           `yaml:"workers"`
	Split         string        `yaml:"split"`
	FPS           int           `yaml:"fps"`
	DisplayKey    string        `yaml:"display_key"`
	Model         string        `yaml:"model"`
	MaxUploadSize int64         `yaml:"max_upload_size"`
	MaxDuration   time.Duration `yaml:"max_duration"`
	Progress      bool          `yaml:"progress"`
	Retry         RetryConfig   `yaml:"retry"`
}

// RetryConfig defines retry behavior for HTTP fetches.
type RetryConfig struct {
	Attempts   int           `yaml:"attempts"`
	Backoff    time.Duration `yaml:"backoff"`
	MaxBackoff time.Duration `yaml:"max_backoff"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Mirror:        "gs://gresearch/robotics",
		DataDir:       "/datasets",
		VideoDir:      "/videos",
		Workers:       4,
		Split:         "train",
		FPS:           24,
		DisplayKey:    "image",
		Model:         "runwayml/gen4-aleph",
		MaxUploadSize: 1024 * 1024, // data URI limit of the hosted model
		MaxDuration:   5 * time.Second,
		Progress:      true,
		Retry: RetryConfig{
			Attempts:   5,
			Backoff:    time.Second,
			MaxBackoff: 30 * time.Second,
		},
	}
}

// yamlConfig is used for YAML unmarshaling with human-readable sizes and
// durations kept as strings.
type yamlConfig struct {
	Mirror        string          `yaml:"mirror"`
	DataDir       string          `yaml:"data_dir"`
	VideoDir      string          `yaml:"video_dir"`
	Workers       int             `yaml:"workers"`
	Split         string          `yaml:"split"`
	FPS           int             `yaml:"fps"`
	DisplayKey    string          `yaml:"display_key"`
	Model         string          `yaml:"model"`
	MaxUploadSize string          `yaml:"max_upload_size"`
	MaxDuration   string          `yaml:"max_duration"`
	Progress      *bool           `yaml:"progress"`
	Retry         yamlRetryConfig `yaml:"retry"`
}

type yamlRetryConfig struct {
	Attempts   int    `yaml:"attempts"`
	Backoff    string `yaml:"backoff"`
	MaxBackoff string `yaml:"max_backoff"`
}

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	cfg := Default()

	if yc.Mirror != "" {
		cfg.Mirror = yc.Mirror
	}
	if yc.DataDir != "" {
		cfg.DataDir = yc.DataDir
	}
	if yc.VideoDir != "" {
		cfg.VideoDir = yc.VideoDir
	}
	if yc.Workers != 0 {
		cfg.Workers = yc.Workers
	}
	if yc.Split != "" {
		cfg.Split = yc.Split
	}
	if yc.FPS != 0 {
		cfg.FPS = yc.FPS
	}
	if yc.DisplayKey != "" {
		cfg.DisplayKey = yc.DisplayKey
	}
	if yc.Model != "" {
		cfg.Model = yc.Model
	}
	if yc.MaxUploadSize != "" {
		size, err := progress.ParseBytes(yc.MaxUploadSize)
		if err != nil {
			return Config{}, fmt.Errorf("parse max_upload_size: %w", err)
		}
		cfg.MaxUploadSize = size
	}
	if yc.MaxDuration != "" {
		d, err := time.ParseDuration(yc.MaxDuration)
		if err != nil {
			return Config{}, fmt.Errorf("parse max_duration: %w", err)
		}
		cfg.MaxDuration = d
	}
	if yc.Progress != nil {
		cfg.Progress = *yc.Progress
	}
	if yc.Retry.Attempts != 0 {
		cfg.Retry.Attempts = yc.Retry.Attempts
	}
	if yc.Retry.Backoff != "" {
		d, err := time.ParseDuration(yc.Retry.Backoff)
		if err != nil {
			return Config{}, fmt.Errorf("parse retry.backoff: %w", err)
		}
		cfg.Retry.Backoff = d
	}
	if yc.Retry.MaxBackoff != "" {
		d, err := time.ParseDuration(yc.Retry.MaxBackoff)
		if err != nil {
			return Config{}, fmt.Errorf("parse retry.max_backoff: %w", err)
		}
		cfg.Retry.MaxBackoff = d
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the OXE_ prefix.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("OXE_MIRROR"); v != "" {
		c.Mirror = v
	}
	if v := os.Getenv("OXE_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("OXE_VIDEO_DIR"); v != "" {
		c.VideoDir = v
	}
	if v := os.Getenv("OXE_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse OXE_WORKERS: %w", err)
		}
		c.Workers = n
	}
	if v := os.Getenv("OXE_SPLIT"); v != "" {
		c.Split = v
	}
	if v := os.Getenv("OXE_FPS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse OXE_FPS: %w", err)
		}
		c.FPS = n
	}
	if v := os.Getenv("OXE_DISPLAY_KEY"); v != "" {
		c.DisplayKey = v
	}
	if v := os.Getenv("OXE_MODEL"); v != "" {
		c.Model = v
	}
	if v := os.Getenv("OXE_MAX_UPLOAD_SIZE"); v != "" {
		size, err := progress.ParseBytes(v)
		if err != nil {
			return fmt.Errorf("parse OXE_MAX_UPLOAD_SIZE: %w", err)
		}
		c.MaxUploadSize = size
	}
	if v := os.Getenv("OXE_PROGRESS"); v != "" {
		c.Progress = v == "true" || v == "1"
	}
	if v := os.Getenv("OXE_RETRY_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse OXE_RETRY_ATTEMPTS: %w", err)
		}
		c.Retry.Attempts = n
	}
	if v := os.Getenv("OXE_RETRY_BACKOFF"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse OXE_RETRY_BACKOFF: %w", err)
		}
		c.Retry.Backoff = d
	}
	if v := os.Getenv("OXE_RETRY_MAX_BACKOFF"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse OXE_RETRY_MAX_BACKOFF: %w", err)
		}
		c.Retry.MaxBackoff = d
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Mirror == "" {
		return errors.New("config: mirror is required")
	}
	if c.DataDir == "" {
		return errors.New("config: data_dir is required")
	}
	if c.VideoDir == "" {
		return errors.New("config: video_dir is required")
	}
	if c.Workers <= 0 {
		return errors.New("config: workers must be positive")
	}
	if c.FPS <= 0 {
		return errors.New("config: fps must be positive")
	}
	if c.MaxUploadSize <= 0 {
		return errors.New("config: max_upload_size must be positive")
	}
	return nil
}

// Merge merges override values into c, returning a new Config.
// Zero values in override are ignored.
func (c Config) Merge(override Config) Config {
	if override.Mirror != "" {
		c.Mirror = override.Mirror
	}
	if override.DataDir != "" {
		c.DataDir = override.DataDir
	}
	if override.VideoDir != "" {
		c.VideoDir = override.VideoDir
	}
	if override.Workers != 0 {
		c.Workers = override.Workers
	}
	if override.Split != "" {
		c.Split = override.Split
	}
	if override.FPS != 0 {
		c.FPS = override.FPS
	}
	if override.DisplayKey != "" {
		c.DisplayKey = override.DisplayKey
	}
	if override.Model != "" {
		c.Model = override.Model
	}
	if override.MaxUploadSize != 0 {
		c.MaxUploadSize = override.MaxUploadSize
	}
	if override.MaxDuration != 0 {
		c.MaxDuration = override.MaxDuration
	}
	if override.Retry.Attempts != 0 {
		c.Retry.Attempts = override.Retry.Attempts
	}
	if override.Retry.Backoff != 0 {
		c.Retry.Backoff = override.Retry.Backoff
	}
	if override.Retry.MaxBackoff != 0 {
		c.Retry.MaxBackoff = override.Retry.MaxBackoff
	}
	return c
}
