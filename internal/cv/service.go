package cv

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pared2021/honkai-star-rail-automation-sub001/internal/events"
	"github.com/pared2021/honkai-star-rail-automation-sub001/internal/logging"
	"github.com/pared2021/honkai-star-rail-automation-sub001/pkg/templates"
)

// EngineStats combines template store and frame cache statistics
type EngineStats struct {
	Templates templates.CacheStats `json:"templates"`
	Frames    FrameStats           `json:"frames"`
}

// ServiceOption customizes a Service at construction
type ServiceOption func(*Service)

// WithLogger replaces the default "cv" component logger
func WithLogger(logger *logging.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithEventBus publishes engine events to bus
func WithEventBus(bus events.EventBus) ServiceOption {
	return func(s *Service) {
		s.bus = bus
	}
}

// WithDiffer replaces the pixel difference primitive
func WithDiffer(differ Differ) ServiceOption {
	return func(s *Service) {
		s.differ = differ
	}
}

// Service is the recognition engine. It owns its frame cache, template
// store and configuration, so independent services never share state.
// Recognition methods never fail: every error is logged and turned into a
// negative RecognitionResult.
type Service struct {
	frames *FrameCache
	store  *templates.Store
	differ Differ
	logger *logging.Logger
	bus    events.EventBus

	mu     sync.RWMutex
	config Config
}

// NewService creates a recognition engine over a capturer
func NewService(capturer Capturer, cfg Config, opts ...ServiceOption) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.clone()

	s := &Service{
		frames: NewFrameCache(capturer, cfg.ScreenshotInterval),
		store:  templates.NewStore(cfg.TemplateCacheSize),
		differ: ChannelDiffer{},
		config: cfg,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.NewLogger("cv")
	}

	s.frames.SetDisplay(cfg.Display)
	s.frames.SetBounds(cfg.CaptureBounds)

	return s, nil
}

// Logger returns the service logger
func (s *Service) Logger() *logging.Logger {
	return s.logger
}

// Config returns a copy of the current configuration
func (s *Service) Config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config.clone()
}

// UpdateConfig applies fn to a copy of the configuration and installs it if
// it validates. Cache capacity, screenshot interval, display and capture
// bounds take effect immediately.
// fn runs without the service lock held, so it may call back into the
// service.
func (s *Service) UpdateConfig(fn func(*Config)) error {
	next := s.Config()
	fn(&next)
	if err := next.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	prev := s.config
	s.config = next.clone()

	if next.TemplateCacheSize != prev.TemplateCacheSize {
		s.store.SetCapacity(next.TemplateCacheSize)
	}
	if next.ScreenshotInterval != prev.ScreenshotInterval {
		s.frames.SetInterval(next.ScreenshotInterval)
	}
	if next.Display != prev.Display {
		s.frames.SetDisplay(next.Display)
	}
	if !sameBounds(next.CaptureBounds, prev.CaptureBounds) {
		s.frames.SetBounds(next.CaptureBounds)
	}
	s.mu.Unlock()

	s.logger.DebugWithContext("Config updated", map[string]interface{}{
		"threshold":   next.ConfidenceThreshold,
		"cache_size":  next.TemplateCacheSize,
		"interval_ms": next.ScreenshotInterval.Milliseconds(),
		"display":     next.Display,
	})
	return nil
}

// SetCaptureBounds restricts captures to bounds; nil captures the whole display
func (s *Service) SetCaptureBounds(bounds *Region) error {
	return s.UpdateConfig(func(c *Config) {
		c.CaptureBounds = bounds
	})
}

// ClearCaches drops every cached template and the cached frame
func (s *Service) ClearCaches() {
	dropped := s.store.Len()
	s.store.Clear()
	s.frames.Invalidate()

	s.logger.InfoWithContext("Caches cleared", map[string]interface{}{"templates": dropped})
	s.publish(events.NewCacheClearedEvent(dropped))
}

// CacheStats returns template store and frame cache statistics
func (s *Service) CacheStats() EngineStats {
	return EngineStats{
		Templates: s.store.Stats(),
		Frames:    s.frames.Stats(),
	}
}

// Invalidate drops the cached frame so the next query captures a fresh one
func (s *Service) Invalidate() {
	s.frames.Invalidate()
}

// CaptureFrame returns the current frame, reusing one captured within the
// screenshot interval
func (s *Service) CaptureFrame(ctx context.Context) (*Frame, error) {
	frame, err := s.frames.Capture(ctx)
	if err != nil {
		s.captureFailed(err)
		return nil, err
	}
	return frame, nil
}

// SaveScreenshot captures a frame and writes it as PNG, creating parent
// directories as needed
func (s *Service) SaveScreenshot(ctx context.Context, path string) error {
	frame, err := s.CaptureFrame(ctx)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		s.logger.Error("Failed to create screenshot directory", err)
		return fmt.Errorf("failed to create screenshot directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create screenshot file: %w", err)
	}
	defer file.Close()

	if err := png.Encode(file, frame.Image); err != nil {
		return fmt.Errorf("failed to encode screenshot: %w", err)
	}
	return nil
}

// FindImage locates the template at path in the current frame.
// WithRegion limits the search area; positions stay in frame coordinates.
func (s *Service) FindImage(ctx context.Context, path string, opts ...Option) RecognitionResult {
	o := applyOptions(opts)
	frame, ok := s.frameFor(ctx, o)
	if !ok {
		return NotFound()
	}
	return s.findInFrame(frame, path, s.thresholdFor(o), o.region)
}

// FindMultipleImages captures one frame and searches it for every path
// concurrently. Every path gets an entry in the result.
func (s *Service) FindMultipleImages(ctx context.Context, paths []string, opts ...Option) map[string]RecognitionResult {
	results := make(map[string]RecognitionResult, len(paths))

	o := applyOptions(opts)
	frame, ok := s.frameFor(ctx, o)
	if !ok {
		for _, path := range paths {
			results[path] = NotFound()
		}
		return results
	}
	threshold := s.thresholdFor(o)

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, path := range paths {
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			result := s.findInFrame(frame, path, threshold, o.region)

			mu.Lock()
			results[path] = result
			mu.Unlock()
		}(path)
	}
	wg.Wait()

	return results
}

// WaitForImage polls FindImage on fresh frames until the template is found
// or timeout elapses. A negative timeout uses the configured one.
func (s *Service) WaitForImage(ctx context.Context, path string, timeout time.Duration, opts ...Option) RecognitionResult {
	cfg := s.Config()
	if timeout < 0 {
		timeout = cfg.Timeout
	}

	poller := NewPoller(cfg.PollInterval, timeout, s.logger)
	outcome := poller.Run(ctx, func(ctx context.Context) (RecognitionResult, error) {
		// Always get fresh frame when waiting
		s.frames.Invalidate()
		return s.FindImage(ctx, path, opts...), nil
	})

	switch outcome.State {
	case PollSucceeded:
		s.publish(events.NewWaitSucceededEvent(path, outcome.Result.Confidence, outcome.Attempts, outcome.Elapsed))
	case PollTimedOut:
		s.logger.InfoWithContext("Wait timed out", map[string]interface{}{
			"path":     path,
			"attempts": outcome.Attempts,
			"error":    ErrTimeout.Error(),
		})
		s.publish(events.NewWaitTimedOutEvent(path, outcome.Attempts, timeout))
	case PollCancelled:
		s.logger.DebugWithContext("Wait cancelled", map[string]interface{}{"path": path})
	}

	return outcome.Result
}

// DetectColor reports the fraction of pixels inside rng. With WithRegion the
// position is the center of the requested region.
func (s *Service) DetectColor(ctx context.Context, rng ColorRange, opts ...Option) RecognitionResult {
	if err := rng.Validate(); err != nil {
		s.logger.Warn(err.Error())
		return NotFound()
	}

	o := applyOptions(opts)
	frame, ok := s.frameFor(ctx, o)
	if !ok {
		return NotFound()
	}
	img, area, ok := s.area(frame, o.region)
	if !ok {
		return NotFound()
	}

	confidence := ColorRatio(img, rng)
	result := RecognitionResult{
		Found:      confidence >= s.thresholdFor(o),
		Confidence: confidence,
	}
	if o.region != nil {
		// Position follows the requested region even when it was clipped
		// to the frame; MatchRegion is the area actually measured.
		center := o.region.Center()
		result.Position = &center
		result.MatchRegion = &area
	}
	return result
}

// DetectText reports whether a text-like area exists. No characters are decoded.
func (s *Service) DetectText(ctx context.Context, opts ...Option) RecognitionResult {
	o := applyOptions(opts)
	frame, ok := s.frameFor(ctx, o)
	if !ok {
		return NotFound()
	}
	img, area, ok := s.area(frame, o.region)
	if !ok {
		return NotFound()
	}

	window, found := FindTextLikeWindow(img)
	if !found {
		return NotFound()
	}

	window = window.Offset(Point{X: area.X, Y: area.Y})
	center := window.Center()
	return RecognitionResult{
		Found:       true,
		Confidence:  TextConfidence,
		Position:    &center,
		MatchRegion: &window,
		Text:        "text-like region detected",
	}
}

// DetectImageDifference measures how much of the frame differs from the
// template at path. Found means the differing fraction exceeds threshold.
func (s *Service) DetectImageDifference(ctx context.Context, path string, threshold float64) RecognitionResult {
	frame, ok := s.frameFor(ctx, &cvOptions{})
	if !ok {
		return NotFound()
	}

	tmpl, err := s.store.Load(path)
	if err != nil {
		s.templateFailed(path, err)
		return NotFound()
	}

	ratio, err := DifferenceRatio(s.differ, frame.Image, tmpl.Image, threshold)
	if err != nil {
		s.logger.ErrorWithContext("Difference check failed", err, map[string]interface{}{"path": path})
		return NotFound()
	}

	result := RecognitionResult{
		Found:      ratio > threshold,
		Confidence: ratio,
	}
	if distance, err := perceptualDistance(frame.Image, tmpl.Image); err == nil {
		result.Text = fmt.Sprintf("perceptual hash distance %d", distance)
	} else {
		s.logger.DebugWithContext("Perceptual hash unavailable", map[string]interface{}{"error": err.Error()})
	}
	return result
}

// GetPixelColor returns the color at (x, y) in frame coordinates. ok is false
// when no frame is available or the point lies outside it.
func (s *Service) GetPixelColor(ctx context.Context, x, y int) (color.RGBA, bool) {
	frame, ok := s.frameFor(ctx, &cvOptions{})
	if !ok {
		return color.RGBA{}, false
	}
	if !RegionFromRect(frame.Image.Rect).Contains(Point{X: x, Y: y}) {
		s.logger.DebugWithContext("Pixel out of bounds", map[string]interface{}{
			"x": x, "y": y, "width": frame.Width(), "height": frame.Height(),
		})
		return color.RGBA{}, false
	}
	return frame.Image.RGBAAt(x, y), true
}

// Helper functions

// frameFor returns the option frame or a cached capture
func (s *Service) frameFor(ctx context.Context, o *cvOptions) (*Frame, bool) {
	if o.frame != nil {
		return o.frame, true
	}
	frame, err := s.CaptureFrame(ctx)
	if err != nil {
		return nil, false
	}
	return frame, true
}

// findInFrame loads and matches one template; all failures become NotFound
func (s *Service) findInFrame(frame *Frame, path string, threshold float64, region *Region) RecognitionResult {
	tmpl, err := s.store.Load(path)
	if err != nil {
		s.templateFailed(path, err)
		return NotFound()
	}

	img, area, ok := s.area(frame, region)
	if !ok {
		return NotFound()
	}

	match, err := Match(img, tmpl.Image, s.Config().MatchStride)
	if err != nil {
		s.logger.DebugWithContext("No valid match positions", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
		return NotFound()
	}

	offset := Point{X: area.X, Y: area.Y}
	match.Region = match.Region.Offset(offset)
	match.Position = match.Region.Center()
	return match.toRecognition(threshold)
}

// area crops frame to region, or returns the whole frame for a nil region
func (s *Service) area(frame *Frame, region *Region) (*image.RGBA, Region, bool) {
	if region == nil {
		return frame.Image, RegionFromRect(frame.Image.Rect), true
	}
	img, clipped, ok := cropImage(frame.Image, *region)
	if !ok {
		s.logger.DebugWithContext("Region outside frame", map[string]interface{}{"region": region.String()})
		return nil, Region{}, false
	}
	return img, clipped, true
}

func (s *Service) thresholdFor(o *cvOptions) float64 {
	if o.threshold != nil {
		return *o.threshold
	}
	return s.Config().ConfidenceThreshold
}

func (s *Service) captureFailed(err error) {
	display := s.Config().Display
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		s.logger.DebugWithContext("Capture cancelled", map[string]interface{}{"display": display})
		return
	}
	s.logger.ErrorWithContext("Capture unavailable", err, map[string]interface{}{"display": display})
	s.publish(events.NewCaptureUnavailableEvent(display, err))
}

func (s *Service) templateFailed(path string, err error) {
	s.logger.WarnWithContext("Template load failed", map[string]interface{}{
		"path":  path,
		"error": err.Error(),
	})
	s.publish(events.NewTemplateFailedEvent(path, err))
}

func (s *Service) publish(event events.Event) {
	if s.bus != nil {
		s.bus.TryPublish(event)
	}
}

func sameBounds(a, b *Region) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
