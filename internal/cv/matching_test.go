package cv

import (
	"errors"
	"image"
	"image/color"
	"testing"
)

func TestMatchFindsPastedTemplate(t *testing.T) {
	tests := []struct {
		name   string
		x, y   int
		stride int
	}{
		{"origin", 0, 0, 2},
		{"even offset", 20, 10, 2},
		{"bottom right", 48, 32, 2},
		{"odd offset stride 1", 17, 9, 1},
	}

	tmpl := patternImage(16, 16)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := solidImage(64, 48, color.RGBA{A: 255})
			paste(frame, tmpl, tt.x, tt.y)

			result, err := Match(frame, tmpl, tt.stride)
			if err != nil {
				t.Fatalf("Match failed: %v", err)
			}
			if result.Confidence != 1.0 {
				t.Errorf("Expected confidence 1.0, got %f", result.Confidence)
			}
			if result.Region.X != tt.x || result.Region.Y != tt.y {
				t.Errorf("Expected region at (%d,%d), got (%d,%d)", tt.x, tt.y, result.Region.X, result.Region.Y)
			}
			if result.Region.Width != 16 || result.Region.Height != 16 {
				t.Errorf("Expected 16x16 region, got %dx%d", result.Region.Width, result.Region.Height)
			}
			if want := (Point{X: tt.x + 8, Y: tt.y + 8}); result.Position != want {
				t.Errorf("Expected center %v, got %v", want, result.Position)
			}
		})
	}
}

func TestMatchOffGridIsImperfect(t *testing.T) {
	tmpl := patternImage(12, 12)
	frame := solidImage(40, 40, color.RGBA{A: 255})
	paste(frame, tmpl, 11, 7)

	result, err := Match(frame, tmpl, 2)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if result.Confidence >= 1.0 {
		t.Errorf("Expected an imperfect score off the stride grid, got %f", result.Confidence)
	}
	if result.Region.X%2 != 0 || result.Region.Y%2 != 0 {
		t.Errorf("Expected a window on the stride grid, got (%d,%d)", result.Region.X, result.Region.Y)
	}
}

func TestMatchTieKeepsFirstWindow(t *testing.T) {
	frame := solidImage(30, 20, color.RGBA{R: 90, G: 90, B: 90, A: 255})
	tmpl := solidImage(6, 6, color.RGBA{R: 90, G: 90, B: 90, A: 255})

	result, err := Match(frame, tmpl, 2)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if result.Region.X != 0 || result.Region.Y != 0 {
		t.Errorf("Expected first window (0,0) to win ties, got (%d,%d)", result.Region.X, result.Region.Y)
	}
}

func TestMatchTemplateExceedsFrame(t *testing.T) {
	frame := solidImage(10, 10, color.RGBA{A: 255})
	tmpl := solidImage(11, 4, color.RGBA{A: 255})

	_, err := Match(frame, tmpl, 2)
	if !errors.Is(err, ErrTemplateExceedsFrame) {
		t.Errorf("Expected ErrTemplateExceedsFrame, got %v", err)
	}
}

func TestMatchTemplateSameSizeAsFrame(t *testing.T) {
	img := patternImage(10, 10)
	result, err := Match(img, img, 2)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if result.Confidence != 1.0 || result.Region.X != 0 || result.Region.Y != 0 {
		t.Errorf("Expected exact match at origin, got %+v", result)
	}
}

func TestMatchInvalidImage(t *testing.T) {
	if _, err := Match(nil, patternImage(2, 2), 2); !errors.Is(err, ErrInvalidImage) {
		t.Errorf("Expected ErrInvalidImage for nil frame, got %v", err)
	}
	empty := image.NewRGBA(image.Rect(0, 0, 0, 0))
	if _, err := Match(patternImage(4, 4), empty, 2); !errors.Is(err, ErrInvalidImage) {
		t.Errorf("Expected ErrInvalidImage for empty template, got %v", err)
	}
}

func TestMatchAgreesWithSimilarity(t *testing.T) {
	frame := patternImage(30, 30)
	tmpl := solidImage(8, 8, color.RGBA{R: 60, G: 40, B: 70, A: 255})

	result, err := Match(frame, tmpl, 2)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	window := frame.SubImage(result.Region.Rect()).(*image.RGBA)
	if got := Similarity(window, tmpl); got != result.Confidence {
		t.Errorf("Expected match confidence %f to equal window similarity %f", result.Confidence, got)
	}
}
