package cv

import (
	"fmt"
	"image"
	"image/draw"

	"github.com/disintegration/gift"
	"github.com/kbinani/screenshot"
)

// Capturer is the frame source adapter: it lists displays and grabs a bitmap of one.
type Capturer interface {
	Displays() ([]int, error)
	Capture(display int) (*image.RGBA, error)
}

// ScreenCapturer captures real displays through github.com/kbinani/screenshot
type ScreenCapturer struct{}

// NewScreenCapturer creates a capturer for the local desktop
func NewScreenCapturer() *ScreenCapturer {
	return &ScreenCapturer{}
}

// Displays returns the indices of all active displays
func (c *ScreenCapturer) Displays() (displays []int, err error) {
	// The X11 and Windows backends panic when there is no desktop session.
	defer func() {
		if r := recover(); r != nil {
			displays, err = nil, fmt.Errorf("%w: %v", ErrCaptureUnavailable, r)
		}
	}()

	n := screenshot.NumActiveDisplays()
	displays = make([]int, n)
	for i := range displays {
		displays[i] = i
	}
	return displays, nil
}

// Capture grabs the whole of one display
func (c *ScreenCapturer) Capture(display int) (img *image.RGBA, err error) {
	defer func() {
		if r := recover(); r != nil {
			img, err = nil, fmt.Errorf("%w: %v", ErrCaptureUnavailable, r)
		}
	}()

	bounds := screenshot.GetDisplayBounds(display)
	if bounds.Empty() {
		return nil, fmt.Errorf("%w: display %d has no bounds", ErrCaptureUnavailable, display)
	}

	img, err = screenshot.CaptureRect(bounds)
	if err != nil {
		return nil, fmt.Errorf("failed to capture display %d: %w", display, err)
	}
	return normalize(img), nil
}

// normalize returns img with its origin at (0,0), copying only when needed
func normalize(img *image.RGBA) *image.RGBA {
	if img.Rect.Min == (image.Point{}) {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, img.Rect.Dx(), img.Rect.Dy()))
	draw.Draw(dst, dst.Rect, img, img.Rect.Min, draw.Src)
	return dst
}

// toRGBA converts any decoded image into a zero-origin RGBA buffer
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return normalize(rgba)
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Rect, img, b.Min, draw.Src)
	return dst
}

// cropImage copies the part of img inside r into a new zero-origin buffer.
// r is clipped to the image; ok is false when nothing remains.
func cropImage(img *image.RGBA, r Region) (*image.RGBA, Region, bool) {
	clipped := r.Rect().Intersect(img.Rect)
	if clipped.Empty() {
		return nil, Region{}, false
	}
	g := gift.New(gift.Crop(clipped))
	dst := image.NewRGBA(g.Bounds(img.Bounds()))
	g.Draw(dst, img)
	return normalize(dst), RegionFromRect(clipped), true
}

// resizeImage returns a resized private copy of img; img itself is left untouched
func resizeImage(img *image.RGBA, width, height int) *image.RGBA {
	g := gift.New(gift.Resize(width, height, gift.LinearResampling))
	dst := image.NewRGBA(g.Bounds(img.Bounds()))
	g.Draw(dst, img)
	return normalize(dst)
}
