package cv

import (
	"fmt"
	"image"
)

// DefaultMatchStride skips every other pixel in both axes
const DefaultMatchStride = 2

// Match slides the template over the frame at the given stride and returns the
// best scoring window. Scan order is row-major and only a strictly better
// score replaces the current best, so ties keep the earliest window.
func Match(frame, template *image.RGBA, stride int) (*TemplateMatchResult, error) {
	if frame == nil || template == nil || frame.Rect.Empty() || template.Rect.Empty() {
		return nil, ErrInvalidImage
	}
	if stride < 1 {
		stride = DefaultMatchStride
	}

	frameBounds := frame.Rect
	tw := template.Rect.Dx()
	th := template.Rect.Dy()

	// Validate dimensions
	maxY := frameBounds.Max.Y - th
	maxX := frameBounds.Max.X - tw
	if maxY < frameBounds.Min.Y || maxX < frameBounds.Min.X {
		return nil, fmt.Errorf("%w: template %dx%d, frame %dx%d",
			ErrTemplateExceedsFrame, tw, th, frameBounds.Dx(), frameBounds.Dy())
	}

	bestSAD := noLimit
	bestLocation := image.Point{}

scan:
	for y := frameBounds.Min.Y; y <= maxY; y += stride {
		for x := frameBounds.Min.X; x <= maxX; x += stride {
			// A window can only win by beating bestSAD, so stop summing once it can't.
			sad, complete := windowSAD(frame, template, x, y, bestSAD)
			if !complete || sad >= bestSAD {
				continue
			}
			bestSAD = sad
			bestLocation = image.Point{X: x, Y: y}
			if sad == 0 {
				break scan
			}
		}
	}

	origin := frameBounds.Min
	region := Region{
		X:      bestLocation.X - origin.X,
		Y:      bestLocation.Y - origin.Y,
		Width:  tw,
		Height: th,
	}

	return &TemplateMatchResult{
		Confidence: confidenceFromSAD(bestSAD, tw*th),
		Position:   region.Center(),
		Region:     region,
	}, nil
}
