package cv

import (
	"context"
	"errors"
	"image/color"
	"testing"
	"time"
)

// fakeClock lets tests move time by hand
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestFrameCache(capturer Capturer, interval time.Duration) (*FrameCache, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	fc := NewFrameCache(capturer, interval)
	fc.now = clock.Now
	return fc, clock
}

func TestFrameCacheReuseWithinInterval(t *testing.T) {
	capturer := newMockCapturer(patternImage(20, 20))
	fc, clock := newTestFrameCache(capturer, 100*time.Millisecond)
	ctx := context.Background()

	first, err := fc.Capture(ctx)
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}

	clock.Advance(99 * time.Millisecond)
	second, err := fc.Capture(ctx)
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	if first != second {
		t.Error("Expected the same frame within the interval")
	}
	if calls := capturer.calls.Load(); calls != 1 {
		t.Errorf("Expected 1 capture, got %d", calls)
	}

	clock.Advance(time.Millisecond)
	third, err := fc.Capture(ctx)
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	if third == first {
		t.Error("Expected a fresh frame once the interval elapsed")
	}

	stats := fc.Stats()
	if stats.Captures != 2 || stats.Reuses != 1 {
		t.Errorf("Expected 2 captures and 1 reuse, got %+v", stats)
	}
}

func TestFrameCacheInvalidate(t *testing.T) {
	capturer := newMockCapturer(patternImage(10, 10))
	fc, _ := newTestFrameCache(capturer, time.Hour)
	ctx := context.Background()

	if _, err := fc.Capture(ctx); err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	fc.Invalidate()
	if _, err := fc.Capture(ctx); err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	if calls := capturer.calls.Load(); calls != 2 {
		t.Errorf("Expected invalidation to force a capture, got %d calls", calls)
	}
}

func TestFrameCacheUnavailable(t *testing.T) {
	ctx := context.Background()

	t.Run("no displays", func(t *testing.T) {
		capturer := newMockCapturer(patternImage(10, 10))
		capturer.displays = nil
		fc, _ := newTestFrameCache(capturer, time.Second)

		_, err := fc.Capture(ctx)
		if !errors.Is(err, ErrCaptureUnavailable) {
			t.Errorf("Expected ErrCaptureUnavailable, got %v", err)
		}
		if calls := capturer.calls.Load(); calls != 0 {
			t.Errorf("Expected no capture without displays, got %d", calls)
		}
	})

	t.Run("capturer error", func(t *testing.T) {
		capturer := newMockCapturer(nil)
		capturer.err = errNoDesktop
		fc, _ := newTestFrameCache(capturer, time.Second)

		_, err := fc.Capture(ctx)
		if !errors.Is(err, ErrCaptureUnavailable) {
			t.Errorf("Expected ErrCaptureUnavailable, got %v", err)
		}
		if fc.Stats().Failures != 1 {
			t.Errorf("Expected 1 failure, got %+v", fc.Stats())
		}
	})

	t.Run("nil capturer", func(t *testing.T) {
		fc, _ := newTestFrameCache(nil, time.Second)
		if _, err := fc.Capture(ctx); !errors.Is(err, ErrCaptureUnavailable) {
			t.Errorf("Expected ErrCaptureUnavailable, got %v", err)
		}
	})

	t.Run("missing display", func(t *testing.T) {
		capturer := newMockCapturer(patternImage(10, 10))
		fc, _ := newTestFrameCache(capturer, time.Second)
		fc.SetDisplay(3)
		if _, err := fc.Capture(ctx); !errors.Is(err, ErrCaptureUnavailable) {
			t.Errorf("Expected ErrCaptureUnavailable, got %v", err)
		}
	})
}

func TestFrameCacheBounds(t *testing.T) {
	screen := solidImage(100, 80, color.RGBA{A: 255})
	marker := patternImage(10, 10)
	paste(screen, marker, 40, 30)

	capturer := newMockCapturer(screen)
	fc, _ := newTestFrameCache(capturer, time.Hour)
	ctx := context.Background()

	bounds := NewRegion(40, 30, 10, 10)
	fc.SetBounds(&bounds)
	bounds.X = 0 // the cache keeps its own copy

	frame, err := fc.Capture(ctx)
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	if frame.Width() != 10 || frame.Height() != 10 {
		t.Fatalf("Expected 10x10 frame, got %dx%d", frame.Width(), frame.Height())
	}
	if frame.Image.Rect.Min.X != 0 || frame.Image.Rect.Min.Y != 0 {
		t.Errorf("Expected zero origin, got %v", frame.Image.Rect.Min)
	}
	if Similarity(frame.Image, marker) != 1.0 {
		t.Error("Expected the cropped frame to equal the marker")
	}
	if frame.Bounds == nil || *frame.Bounds != NewRegion(40, 30, 10, 10) {
		t.Errorf("Expected frame bounds to record the crop, got %v", frame.Bounds)
	}

	// Bounds partly off screen are clipped
	clipped := NewRegion(90, 70, 50, 50)
	fc.SetBounds(&clipped)
	frame, err = fc.Capture(ctx)
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	if frame.Width() != 10 || frame.Height() != 10 {
		t.Errorf("Expected clipped 10x10 frame, got %dx%d", frame.Width(), frame.Height())
	}

	// Bounds fully off screen yield no frame
	outside := NewRegion(500, 500, 10, 10)
	fc.SetBounds(&outside)
	if _, err := fc.Capture(ctx); !errors.Is(err, ErrCaptureUnavailable) {
		t.Errorf("Expected ErrCaptureUnavailable for bounds off screen, got %v", err)
	}
}

func TestFrameCacheCancelledContext(t *testing.T) {
	capturer := newMockCapturer(patternImage(10, 10))
	fc, _ := newTestFrameCache(capturer, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := fc.Capture(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
