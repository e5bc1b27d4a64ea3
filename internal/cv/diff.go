package cv

import (
	"fmt"
	"image"
	"math"

	"github.com/corona10/goimagehash"
)

// Differ counts differing pixels between two equally sized buffers
type Differ interface {
	CountDifferent(a, b *image.RGBA, channelThreshold uint8) (int, error)
}

// ChannelDiffer marks a pixel as different when any of its R, G or B values
// differ by more than the channel threshold
type ChannelDiffer struct{}

// CountDifferent implements Differ
func (ChannelDiffer) CountDifferent(a, b *image.RGBA, channelThreshold uint8) (int, error) {
	if a.Rect.Dx() != b.Rect.Dx() || a.Rect.Dy() != b.Rect.Dy() {
		return 0, fmt.Errorf("size mismatch: %dx%d vs %dx%d", a.Rect.Dx(), a.Rect.Dy(), b.Rect.Dx(), b.Rect.Dy())
	}

	limit := int(channelThreshold)
	width, height := a.Rect.Dx(), a.Rect.Dy()
	count := 0
	for y := 0; y < height; y++ {
		aIdx := a.PixOffset(a.Rect.Min.X, a.Rect.Min.Y+y)
		bIdx := b.PixOffset(b.Rect.Min.X, b.Rect.Min.Y+y)
		for x := 0; x < width; x++ {
			if abs(int(a.Pix[aIdx])-int(b.Pix[bIdx])) > limit ||
				abs(int(a.Pix[aIdx+1])-int(b.Pix[bIdx+1])) > limit ||
				abs(int(a.Pix[aIdx+2])-int(b.Pix[bIdx+2])) > limit {
				count++
			}
			aIdx += 4
			bIdx += 4
		}
	}
	return count, nil
}

// channelThresholdFor maps a 0-1 threshold onto the 0-255 channel scale
func channelThresholdFor(threshold float64) uint8 {
	v := math.Round(threshold * maxChannelValue)
	if v < 0 {
		return 0
	}
	if v > maxChannelValue {
		return maxChannelValue
	}
	return uint8(v)
}

// DifferenceRatio compares frame against reference. A reference of another
// size is resized into a private copy first; reference itself is never modified.
func DifferenceRatio(differ Differ, frame, reference *image.RGBA, threshold float64) (float64, error) {
	w, h := frame.Rect.Dx(), frame.Rect.Dy()
	if w == 0 || h == 0 {
		return 0, ErrInvalidImage
	}
	if reference.Rect.Dx() != w || reference.Rect.Dy() != h {
		reference = resizeImage(reference, w, h)
	}

	differing, err := differ.CountDifferent(frame, reference, channelThresholdFor(threshold))
	if err != nil {
		return 0, err
	}
	return float64(differing) / float64(w*h), nil
}

// perceptualDistance returns the Hamming distance between the perceptual
// hashes of two images
func perceptualDistance(a, b image.Image) (int, error) {
	ha, err := goimagehash.PerceptionHash(a)
	if err != nil {
		return 0, err
	}
	hb, err := goimagehash.PerceptionHash(b)
	if err != nil {
		return 0, err
	}
	return ha.Distance(hb)
}
