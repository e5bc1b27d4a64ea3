package cv

import (
	"image"
)

// Text-region heuristic parameters
const (
	TextWindowSize      = 10
	TextWindowStride    = 5
	TextEdgeThreshold   = 50  // summed channel difference that counts as an edge
	TextDensityRequired = 0.3 // edge fraction a window needs to look like text
	TextConfidence      = 0.8 // fixed confidence reported when text-like windows exist
)

// FindTextLikeWindow scans img on a 5px grid of 10x10 windows and returns the
// first window whose edge density exceeds 30%. A pixel is an edge when its
// summed channel difference to its right or bottom neighbour exceeds 50.
func FindTextLikeWindow(img *image.RGBA) (Region, bool) {
	bounds := img.Rect
	maxY := bounds.Max.Y - TextWindowSize
	maxX := bounds.Max.X - TextWindowSize

	for y := bounds.Min.Y; y <= maxY; y += TextWindowStride {
		for x := bounds.Min.X; x <= maxX; x += TextWindowStride {
			if edgeDensity(img, x, y) > TextDensityRequired {
				return Region{
					X:      x - bounds.Min.X,
					Y:      y - bounds.Min.Y,
					Width:  TextWindowSize,
					Height: TextWindowSize,
				}, true
			}
		}
	}
	return Region{}, false
}

// edgeDensity returns the edge fraction of the window at (x0, y0)
func edgeDensity(img *image.RGBA, x0, y0 int) float64 {
	bounds := img.Rect
	edges := 0
	for y := y0; y < y0+TextWindowSize; y++ {
		for x := x0; x < x0+TextWindowSize; x++ {
			idx := img.PixOffset(x, y)
			if x+1 < bounds.Max.X && channelDistance(img.Pix, idx, idx+4) > TextEdgeThreshold {
				edges++
				continue
			}
			if y+1 < bounds.Max.Y && channelDistance(img.Pix, idx, idx+img.Stride) > TextEdgeThreshold {
				edges++
			}
		}
	}
	return float64(edges) / float64(TextWindowSize*TextWindowSize)
}

// channelDistance sums the absolute RGB differences of two pixels in pix
func channelDistance(pix []uint8, a, b int) int {
	return abs(int(pix[a])-int(pix[b])) +
		abs(int(pix[a+1])-int(pix[b+1])) +
		abs(int(pix[a+2])-int(pix[b+2]))
}
