package config

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/ini.v1"

	"github.com/pared2021/honkai-star-rail-automation-sub001/internal/cv"
	"github.com/pared2021/honkai-star-rail-automation-sub001/internal/logging"
)

// Settings is everything read from settings.ini
type Settings struct {
	Engine cv.Config

	LogLevel logging.LogLevel
	LogFile  string // empty logs to stderr only

	SceneCatalog string // YAML scene list, empty uses the built-in catalog
	TemplateDir  string // base directory for relative template paths
}

// NewDefaultSettings creates settings with default values
func NewDefaultSettings() *Settings {
	return &Settings{
		Engine:      cv.DefaultConfig(),
		LogLevel:    logging.LogLevelInfo,
		TemplateDir: "templates",
	}
}

// LoadFromINI loads settings from an INI file. Missing keys keep their defaults.
func LoadFromINI(path string) (*Settings, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	settings := NewDefaultSettings()
	defaults := settings.Engine

	// Recognition
	section := cfg.Section("Recognition")
	engine := &settings.Engine
	engine.ConfidenceThreshold = section.Key("confidenceThreshold").MustFloat64(defaults.ConfidenceThreshold)
	engine.Timeout = millis(section.Key("timeoutMs").MustInt64(defaults.Timeout.Milliseconds()))
	engine.RetryCount = section.Key("retryCount").MustInt(defaults.RetryCount)
	engine.TemplateCacheSize = section.Key("templateCacheSize").MustInt(defaults.TemplateCacheSize)
	engine.ScreenshotInterval = millis(section.Key("screenshotIntervalMs").MustInt64(defaults.ScreenshotInterval.Milliseconds()))
	engine.PollInterval = millis(section.Key("pollIntervalMs").MustInt64(defaults.PollInterval.Milliseconds()))
	engine.MatchStride = section.Key("matchStride").MustInt(defaults.MatchStride)

	// Capture
	section = cfg.Section("Capture")
	engine.Display = section.Key("display").MustInt(defaults.Display)
	if bounds := strings.TrimSpace(section.Key("bounds").MustString("")); bounds != "" {
		region, err := cv.ParseRegion(bounds)
		if err != nil {
			return nil, fmt.Errorf("invalid [Capture] bounds: %w", err)
		}
		engine.CaptureBounds = &region
	}

	// Logging
	section = cfg.Section("Logging")
	level, err := logging.ParseLevel(section.Key("level").MustString(string(logging.LogLevelInfo)))
	if err != nil {
		return nil, fmt.Errorf("invalid [Logging] level: %w", err)
	}
	settings.LogLevel = level
	settings.LogFile = section.Key("file").MustString("")

	// Scenes
	section = cfg.Section("Scenes")
	settings.SceneCatalog = section.Key("catalog").MustString("")
	settings.TemplateDir = section.Key("templateDir").MustString(settings.TemplateDir)

	if err := engine.Validate(); err != nil {
		return nil, err
	}

	return settings, nil
}

// SaveToINI saves settings to an INI file
func SaveToINI(settings *Settings, path string) error {
	cfg := ini.Empty()
	engine := settings.Engine

	section := cfg.Section("Recognition")
	section.Key("confidenceThreshold").SetValue(fmt.Sprintf("%g", engine.ConfidenceThreshold))
	section.Key("timeoutMs").SetValue(fmt.Sprintf("%d", engine.Timeout.Milliseconds()))
	section.Key("retryCount").SetValue(fmt.Sprintf("%d", engine.RetryCount))
	section.Key("templateCacheSize").SetValue(fmt.Sprintf("%d", engine.TemplateCacheSize))
	section.Key("screenshotIntervalMs").SetValue(fmt.Sprintf("%d", engine.ScreenshotInterval.Milliseconds()))
	section.Key("pollIntervalMs").SetValue(fmt.Sprintf("%d", engine.PollInterval.Milliseconds()))
	section.Key("matchStride").SetValue(fmt.Sprintf("%d", engine.MatchStride))

	section = cfg.Section("Capture")
	section.Key("display").SetValue(fmt.Sprintf("%d", engine.Display))
	if engine.CaptureBounds != nil {
		section.Key("bounds").SetValue(engine.CaptureBounds.String())
	}

	section = cfg.Section("Logging")
	section.Key("level").SetValue(string(settings.LogLevel))
	section.Key("file").SetValue(settings.LogFile)

	section = cfg.Section("Scenes")
	section.Key("catalog").SetValue(settings.SceneCatalog)
	section.Key("templateDir").SetValue(settings.TemplateDir)

	if err := cfg.SaveTo(path); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}
	return nil
}

// Helper functions

func millis(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
