package cv

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/pared2021/honkai-star-rail-automation-sub001/internal/logging"
)

// mockCapturer implements Capturer for testing
type mockCapturer struct {
	mu       sync.Mutex
	img      *image.RGBA
	displays []int
	err      error
	calls    atomic.Int64
}

func newMockCapturer(img *image.RGBA) *mockCapturer {
	return &mockCapturer{img: img, displays: []int{0}}
}

func (m *mockCapturer) Displays() ([]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.displays, nil
}

func (m *mockCapturer) Capture(display int) (*image.RGBA, error) {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.img, nil
}

func (m *mockCapturer) setImage(img *image.RGBA) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.img = img
}

var errNoDesktop = errors.New("no desktop session")

// solidImage returns a w x h image filled with c
func solidImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Rect, &image.Uniform{C: c}, image.Point{}, draw.Src)
	return img
}

// patternImage returns a block with no repeated sub-window. Every channel stays
// at or below 100 and blue is never below 50, so the block never matches black.
func patternImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: uint8((7*x + 13*y) % 100),
				G: uint8((3*x + 5*y) % 100),
				B: uint8(50 + (x+y)%50),
				A: 255,
			})
		}
	}
	return img
}

// checkerImage alternates black and white pixels
func checkerImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.RGBA{A: 255}
			if (x+y)%2 == 0 {
				c = color.RGBA{R: 255, G: 255, B: 255, A: 255}
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

// paste copies src into dst with its top-left corner at (x, y)
func paste(dst, src *image.RGBA, x, y int) {
	r := image.Rect(x, y, x+src.Rect.Dx(), y+src.Rect.Dy())
	draw.Draw(dst, r, src, src.Rect.Min, draw.Src)
}

// writePNG saves img under dir and returns its path
func writePNG(t *testing.T, dir, name string, img image.Image) string {
	t.Helper()
	path := filepath.Join(dir, name)
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create %s: %v", path, err)
	}
	defer file.Close()
	if err := png.Encode(file, img); err != nil {
		t.Fatalf("Failed to encode %s: %v", path, err)
	}
	return path
}

// quietLogger discards output
func quietLogger() *logging.Logger {
	return logging.NewLogger("cv-test").SetOutput(io.Discard)
}
