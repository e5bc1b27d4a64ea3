package cv

import (
	"fmt"
	"image"
)

// ChannelRange is an inclusive [Min, Max] interval over one channel
type ChannelRange struct {
	Min uint8 `json:"min" yaml:"min"`
	Max uint8 `json:"max" yaml:"max"`
}

// Contains reports whether v lies inside the range
func (r ChannelRange) Contains(v uint8) bool {
	return v >= r.Min && v <= r.Max
}

// ColorRange is an RGB box
type ColorRange struct {
	R ChannelRange `json:"r" yaml:"r"`
	G ChannelRange `json:"g" yaml:"g"`
	B ChannelRange `json:"b" yaml:"b"`
}

// NewColorRange builds a range from min/max triplets
func NewColorRange(rMin, rMax, gMin, gMax, bMin, bMax uint8) ColorRange {
	return ColorRange{
		R: ChannelRange{Min: rMin, Max: rMax},
		G: ChannelRange{Min: gMin, Max: gMax},
		B: ChannelRange{Min: bMin, Max: bMax},
	}
}

// Validate rejects inverted channel ranges
func (c ColorRange) Validate() error {
	channels := []struct {
		name string
		rng  ChannelRange
	}{{"r", c.R}, {"g", c.G}, {"b", c.B}}
	for _, ch := range channels {
		if ch.rng.Min > ch.rng.Max {
			return fmt.Errorf("color range %s: min %d greater than max %d", ch.name, ch.rng.Min, ch.rng.Max)
		}
	}
	return nil
}

// ColorRatio returns the fraction of pixels in img whose R, G and B all fall
// inside the range
func ColorRatio(img *image.RGBA, rng ColorRange) float64 {
	bounds := img.Rect
	total := bounds.Dx() * bounds.Dy()
	if total <= 0 {
		return 0
	}

	matching := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		idx := img.PixOffset(bounds.Min.X, y)
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if rng.R.Contains(img.Pix[idx]) && rng.G.Contains(img.Pix[idx+1]) && rng.B.Contains(img.Pix[idx+2]) {
				matching++
			}
			idx += 4
		}
	}

	return float64(matching) / float64(total)
}
