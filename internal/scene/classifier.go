package scene

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/pared2021/honkai-star-rail-automation-sub001/internal/cv"
	"github.com/pared2021/honkai-star-rail-automation-sub001/internal/events"
	"github.com/pared2021/honkai-star-rail-automation-sub001/internal/logging"
	"github.com/pared2021/honkai-star-rail-automation-sub001/pkg/templates"
)

// Detection contains the outcome of one scene recognition
type Detection struct {
	Scene      string    `json:"scene,omitempty"` // empty when nothing reached the threshold
	Best       string    `json:"best,omitempty"`  // highest scoring entry, even below threshold
	Confidence float64   `json:"confidence"`
	Detected   time.Time `json:"detected"`
}

// Recognized reports whether a scene was accepted
func (d *Detection) Recognized() bool {
	return d.Scene != ""
}

// Classifier matches the current frame against every scene in a catalog
type Classifier struct {
	service *cv.Service
	catalog *templates.Catalog
	bus     events.EventBus
	logger  *logging.Logger
}

// NewClassifier creates a scene classifier
func NewClassifier(service *cv.Service, catalog *templates.Catalog) *Classifier {
	return &Classifier{
		service: service,
		catalog: catalog,
		logger:  logging.NewLogger("scene"),
	}
}

// WithEventBus publishes scene.recognized events to bus
func (c *Classifier) WithEventBus(bus events.EventBus) *Classifier {
	c.bus = bus
	return c
}

// WithLogger replaces the classifier logger
func (c *Classifier) WithLogger(logger *logging.Logger) *Classifier {
	c.logger = logger
	return c
}

// Recognize returns the name of the current scene, if any
func (c *Classifier) Recognize(ctx context.Context) (string, bool) {
	d := c.RecognizeWithConfidence(ctx)
	return d.Scene, d.Recognized()
}

// RecognizeWithConfidence scores every catalog entry against one frame.
// Entries are tried in catalog order and only a strictly higher confidence
// replaces the best so far. Entries whose template file is missing are skipped.
func (c *Classifier) RecognizeWithConfidence(ctx context.Context) *Detection {
	detection := &Detection{Detected: time.Now()}

	// Get current frame (uses frame cache for performance)
	frame, err := c.service.CaptureFrame(ctx)
	if err != nil {
		return detection
	}

	for _, entry := range c.catalog.Entries() {
		if _, err := os.Stat(entry.Path); err != nil {
			c.logger.DebugWithContext("Skipping scene without template", map[string]interface{}{
				"scene": entry.Name,
				"path":  entry.Path,
			})
			continue
		}

		result := c.service.FindImage(ctx, entry.Path, cv.WithFrame(frame))
		if result.Confidence > detection.Confidence {
			detection.Confidence = result.Confidence
			detection.Best = entry.Name
		}
	}

	if detection.Best != "" && detection.Confidence >= c.service.Config().ConfidenceThreshold {
		detection.Scene = detection.Best
		c.logger.DebugWithContext("Scene recognized", map[string]interface{}{
			"scene":      detection.Scene,
			"confidence": detection.Confidence,
		})
		if c.bus != nil {
			c.bus.TryPublish(events.NewSceneRecognizedEvent(detection.Scene, detection.Confidence))
		}
	}

	return detection
}

// IsOnScene checks if the current frame shows a specific scene
func (c *Classifier) IsOnScene(ctx context.Context, name string) bool {
	scene, ok := c.Recognize(ctx)
	return ok && scene == name
}

// WaitForScene polls until one of names is recognized or timeout elapses
func (c *Classifier) WaitForScene(ctx context.Context, timeout time.Duration, names ...string) (string, error) {
	if len(names) == 0 {
		return "", fmt.Errorf("no scenes to wait for")
	}
	for _, name := range names {
		if _, ok := c.catalog.Get(name); !ok {
			return "", fmt.Errorf("scene %s not in catalog", name)
		}
	}

	var matched string
	poller := cv.NewPoller(c.service.Config().PollInterval, timeout, c.logger)
	outcome := poller.Run(ctx, func(ctx context.Context) (cv.RecognitionResult, error) {
		// Force fresh capture each check
		c.service.Invalidate()

		d := c.RecognizeWithConfidence(ctx)
		for _, name := range names {
			if d.Scene == name {
				matched = name
				return cv.RecognitionResult{Found: true, Confidence: d.Confidence}, nil
			}
		}
		return cv.NotFound(), nil
	})

	switch outcome.State {
	case cv.PollSucceeded:
		return matched, nil
	case cv.PollCancelled:
		return "", ctx.Err()
	default:
		return "", fmt.Errorf("%w waiting for scenes %v after %d attempts", cv.ErrTimeout, names, outcome.Attempts)
	}
}
