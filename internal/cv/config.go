package cv

import (
	"fmt"
	"time"
)

// Config holds the engine's tunables. Every field can be changed independently
// through Service.UpdateConfig.
type Config struct {
	ConfidenceThreshold float64       // 0.0-1.0, match is found at or above this
	Timeout             time.Duration // default budget for WaitForImage
	RetryCount          int           // kept for settings compatibility, polling is bounded by Timeout
	TemplateCacheSize   int           // max templates held by the store
	ScreenshotInterval  time.Duration // frames younger than this are reused
	PollInterval        time.Duration // delay between WaitForImage attempts
	MatchStride         int           // sliding window step in pixels
	Display             int           // display index handed to the capturer
	CaptureBounds       *Region       // optional crop applied to every capture
}

// DefaultConfig returns recommended settings
func DefaultConfig() Config {
	return Config{
		ConfidenceThreshold: 0.8,
		Timeout:             5000 * time.Millisecond,
		RetryCount:          3,
		TemplateCacheSize:   50,
		ScreenshotInterval:  100 * time.Millisecond,
		PollInterval:        100 * time.Millisecond,
		MatchStride:         DefaultMatchStride,
		Display:             0,
	}
}

// Validate checks that every value is usable
func (c Config) Validate() error {
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("%w: confidence threshold %.3f outside [0,1]", ErrInvalidConfig, c.ConfidenceThreshold)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: negative timeout", ErrInvalidConfig)
	}
	if c.RetryCount < 0 {
		return fmt.Errorf("%w: negative retry count", ErrInvalidConfig)
	}
	if c.TemplateCacheSize < 1 {
		return fmt.Errorf("%w: template cache size must be at least 1", ErrInvalidConfig)
	}
	if c.ScreenshotInterval < 0 || c.PollInterval < 0 {
		return fmt.Errorf("%w: negative interval", ErrInvalidConfig)
	}
	if c.MatchStride < 1 {
		return fmt.Errorf("%w: match stride must be at least 1", ErrInvalidConfig)
	}
	if c.Display < 0 {
		return fmt.Errorf("%w: negative display index", ErrInvalidConfig)
	}
	if c.CaptureBounds != nil && c.CaptureBounds.Empty() {
		return fmt.Errorf("%w: empty capture bounds", ErrInvalidConfig)
	}
	return nil
}

// clone copies the config so callers never share the bounds pointer
func (c Config) clone() Config {
	if c.CaptureBounds != nil {
		b := *c.CaptureBounds
		c.CaptureBounds = &b
	}
	return c
}
