package cv

import (
	"image"
)

// maxChannelValue is the largest per-channel difference
const maxChannelValue = 255

// Similarity scores two equally sized buffers. For every pixel the absolute
// R, G and B differences are averaged, the per-pixel values are averaged over
// the buffer, and the result maps to max(0, 1 - avg/255). Alpha is ignored.
// Buffers of different size score 0.
func Similarity(a, b *image.RGBA) float64 {
	if a == nil || b == nil {
		return 0
	}
	w, h := a.Rect.Dx(), a.Rect.Dy()
	if w != b.Rect.Dx() || h != b.Rect.Dy() || w == 0 || h == 0 {
		return 0
	}
	sad, _ := windowSAD(a, b, a.Rect.Min.X, a.Rect.Min.Y, noLimit)
	return confidenceFromSAD(sad, w*h)
}

const noLimit = ^uint64(0)

// windowSAD sums |dR|+|dG|+|dB| between needle and the needle-sized window of
// haystack at (x, y). It stops once the running sum reaches limit and reports
// complete=false in that case.
func windowSAD(haystack, needle *image.RGBA, x, y int, limit uint64) (sad uint64, complete bool) {
	width := needle.Rect.Dx()
	height := needle.Rect.Dy()
	hBase := haystack.PixOffset(x, y)
	nBase := needle.PixOffset(needle.Rect.Min.X, needle.Rect.Min.Y)

	for ny := 0; ny < height; ny++ {
		hIdx := hBase + ny*haystack.Stride
		nIdx := nBase + ny*needle.Stride
		var row uint64
		for nx := 0; nx < width; nx++ {
			row += uint64(abs(int(haystack.Pix[hIdx]) - int(needle.Pix[nIdx])))
			row += uint64(abs(int(haystack.Pix[hIdx+1]) - int(needle.Pix[nIdx+1])))
			row += uint64(abs(int(haystack.Pix[hIdx+2]) - int(needle.Pix[nIdx+2])))
			hIdx += 4
			nIdx += 4
		}
		sad += row
		if sad >= limit {
			return sad, false
		}
	}
	return sad, true
}

// confidenceFromSAD normalizes a channel difference sum over pixels to 0-1
func confidenceFromSAD(sad uint64, pixels int) float64 {
	if pixels <= 0 {
		return 0
	}
	avg := float64(sad) / float64(pixels*3)
	conf := 1.0 - avg/maxChannelValue
	if conf < 0 {
		return 0
	}
	if conf > 1 {
		return 1
	}
	return conf
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
