// Package config handles configuration for screen-crawler.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the crawler configuration (crawler.yaml).
type Config struct {
	// Storage
	Database       string `yaml:"database"`       // SQLite file
	ScreenshotsDir string `yaml:"screenshotsDir"` // Where screen_<id>_<hash>.png files go

	// SimilarityThreshold is the maximum visual hash distance for two
	// screens to be treated as one. Negative disables similarity matching.
	SimilarityThreshold int `yaml:"similarityThreshold"`

	Loop     LoopConfig     `yaml:"loop"`
	Executor ExecutorConfig `yaml:"executor"`
	Log      LogConfig      `yaml:"log"`
}

// LoopConfig tunes loop detection.
type LoopConfig struct {
	VisitThreshold  int `yaml:"visitThreshold"`
	RepeatThreshold int `yaml:"repeatThreshold"`
	WindowSize      int `yaml:"windowSize"`
}

// ExecutorConfig tunes the action executor. Durations are in milliseconds.
type ExecutorConfig struct {
	ToastWaitMs         int  `yaml:"toastWaitMs"`
	AutoHideKeyboard    bool `yaml:"autoHideKeyboard"`
	GlobalInputFallback bool `yaml:"globalInputFallback"`
	SwipeDurationMs     int  `yaml:"swipeDurationMs"`
	FocusDelayMs        int  `yaml:"focusDelayMs"`
	KeyboardHideDelayMs int  `yaml:"keyboardHideDelayMs"`
}

// ToastWait returns the overlay wait as a duration.
func (e ExecutorConfig) ToastWait() time.Duration { return ms(e.ToastWaitMs) }

// SwipeDuration returns the swipe gesture duration.
func (e ExecutorConfig) SwipeDuration() time.Duration { return ms(e.SwipeDurationMs) }

// FocusDelay returns the pause after focusing a field.
func (e ExecutorConfig) FocusDelay() time.Duration { return ms(e.FocusDelayMs) }

// KeyboardHideDelay returns the pause after hiding the keyboard.
func (e ExecutorConfig) KeyboardHideDelay() time.Duration { return ms(e.KeyboardHideDelayMs) }

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }

// LogConfig configures logging. File enables a rotated JSON log.
type LogConfig struct {
	Level      string `yaml:"level"`  // debug, info, warn, error
	Format     string `yaml:"format"` // console or json
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
	Compress   bool   `yaml:"compress"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Database:            filepath.Join(GetDataDir(), "screens.db"),
		ScreenshotsDir:      filepath.Join(GetDataDir(), "screenshots"),
		SimilarityThreshold: 5,
		Loop: LoopConfig{
			VisitThreshold:  3,
			RepeatThreshold: 3,
			WindowSize:      6,
		},
		Executor: ExecutorConfig{
			ToastWaitMs:         1200,
			AutoHideKeyboard:    true,
			GlobalInputFallback: true,
			SwipeDurationMs:     400,
			FocusDelayMs:        500,
			KeyboardHideDelayMs: 200,
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load loads configuration from a file. Keys absent from the file keep
// their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- user-provided config file
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.normalize()

	return cfg, nil
}

// LoadFromDir looks for crawler.yaml or crawler.yml in the directory.
func LoadFromDir(dir string) (*Config, error) {
	for _, name := range []string{"crawler.yaml", "crawler.yml"} {
		configPath := filepath.Join(dir, name)
		if _, err := os.Stat(configPath); err == nil {
			return Load(configPath)
		}
	}

	// No config file found
	return Default(), nil
}

// normalize replaces values that have no meaning with defaults.
func (c *Config) normalize() {
	def := Default()
	if c.Database == "" {
		c.Database = def.Database
	}
	if c.ScreenshotsDir == "" {
		c.ScreenshotsDir = def.ScreenshotsDir
	}
	if c.Loop.VisitThreshold <= 0 {
		c.Loop.VisitThreshold = def.Loop.VisitThreshold
	}
	if c.Loop.RepeatThreshold <= 0 {
		c.Loop.RepeatThreshold = def.Loop.RepeatThreshold
	}
	if c.Loop.WindowSize <= 0 {
		c.Loop.WindowSize = def.Loop.WindowSize
	}
	if c.Executor.ToastWaitMs < 0 {
		c.Executor.ToastWaitMs = 0
	}
	if c.Executor.SwipeDurationMs <= 0 {
		c.Executor.SwipeDurationMs = def.Executor.SwipeDurationMs
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = def.Log.Format
	}
}
