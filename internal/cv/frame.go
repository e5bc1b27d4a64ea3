package cv

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"
)

// Frame is one captured screen. Its pixels are never modified once returned.
type Frame struct {
	Image      *image.RGBA
	CapturedAt time.Time
	Bounds     *Region // crop applied at capture time, nil for the whole display
}

// NewFrame wraps an existing buffer, e.g. a screenshot loaded from disk
func NewFrame(img image.Image) *Frame {
	return &Frame{Image: toRGBA(img), CapturedAt: time.Now()}
}

// Width returns the frame width
func (f *Frame) Width() int { return f.Image.Rect.Dx() }

// Height returns the frame height
func (f *Frame) Height() int { return f.Image.Rect.Dy() }

// FrameStats tracks frame cache behavior
type FrameStats struct {
	Captures int64 `json:"captures"` // calls that reached the capturer
	Reuses   int64 `json:"reuses"`   // calls served from the cached frame
	Failures int64 `json:"failures"` // captures that produced no frame
}

// FrameCache holds the most recent frame and reuses it within an interval
type FrameCache struct {
	capturer Capturer

	mu         sync.Mutex
	cached     *Frame
	interval   time.Duration
	display    int
	bounds     *Region
	generation uint64 // bumped on invalidation so in-flight captures are not stored
	stats      FrameStats

	now func() time.Time
}

// NewFrameCache creates a frame cache over a capturer
func NewFrameCache(capturer Capturer, interval time.Duration) *FrameCache {
	return &FrameCache{
		capturer: capturer,
		interval: interval,
		now:      time.Now,
	}
}

// Capture returns the cached frame when it is younger than the interval,
// otherwise captures a fresh one. The lock is released while the capturer runs.
func (fc *FrameCache) Capture(ctx context.Context) (*Frame, error) {
	fc.mu.Lock()
	if fc.cached != nil && fc.now().Sub(fc.cached.CapturedAt) < fc.interval {
		frame := fc.cached
		fc.stats.Reuses++
		fc.mu.Unlock()
		return frame, nil
	}
	display := fc.display
	var bounds *Region
	if fc.bounds != nil {
		b := *fc.bounds
		bounds = &b
	}
	generation := fc.generation
	fc.stats.Captures++
	fc.mu.Unlock()

	frame, err := fc.grab(ctx, display, bounds)
	if err != nil {
		fc.mu.Lock()
		fc.stats.Failures++
		fc.mu.Unlock()
		return nil, err
	}

	fc.mu.Lock()
	if fc.generation == generation {
		fc.cached = frame
	}
	fc.mu.Unlock()

	return frame, nil
}

func (fc *FrameCache) grab(ctx context.Context, display int, bounds *Region) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if fc.capturer == nil {
		return nil, fmt.Errorf("%w: no capturer configured", ErrCaptureUnavailable)
	}

	displays, err := fc.capturer.Displays()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCaptureUnavailable, err)
	}
	if !containsDisplay(displays, display) {
		return nil, fmt.Errorf("%w: display %d not among %d active displays", ErrCaptureUnavailable, display, len(displays))
	}

	img, err := fc.capturer.Capture(display)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCaptureUnavailable, err)
	}
	if img == nil || img.Rect.Empty() {
		return nil, fmt.Errorf("%w: empty bitmap", ErrCaptureUnavailable)
	}
	img = normalize(img)

	if bounds != nil {
		cropped, clipped, ok := cropImage(img, *bounds)
		if !ok {
			return nil, fmt.Errorf("%w: capture bounds %+v outside the screen", ErrCaptureUnavailable, *bounds)
		}
		img = cropped
		bounds = &clipped
	}

	return &Frame{Image: img, CapturedAt: fc.now(), Bounds: bounds}, nil
}

func containsDisplay(displays []int, display int) bool {
	for _, d := range displays {
		if d == display {
			return true
		}
	}
	return false
}

// Invalidate forces the next capture to get a fresh frame
func (fc *FrameCache) Invalidate() {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.cached = nil
	fc.generation++
}

// SetInterval updates the reuse interval
func (fc *FrameCache) SetInterval(interval time.Duration) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.interval = interval
}

// SetDisplay selects the display to capture and drops the cached frame
func (fc *FrameCache) SetDisplay(display int) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	if fc.display != display {
		fc.display = display
		fc.cached = nil
		fc.generation++
	}
}

// SetBounds sets the crop rectangle applied to captures; nil captures the whole display
func (fc *FrameCache) SetBounds(bounds *Region) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	if bounds != nil {
		b := *bounds
		bounds = &b
	}
	fc.bounds = bounds
	fc.cached = nil
	fc.generation++
}

// Stats returns frame cache statistics
func (fc *FrameCache) Stats() FrameStats {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.stats
}
