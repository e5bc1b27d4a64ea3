package cv

import "errors"

// Error types
var (
	// ErrCaptureUnavailable means no display could be captured (headless, no displays)
	ErrCaptureUnavailable = errors.New("screen capture unavailable")
	// ErrTemplateExceedsFrame means the template has no valid position inside the frame
	ErrTemplateExceedsFrame = errors.New("template exceeds frame bounds")
	// ErrTimeout means a poll exhausted its time budget
	ErrTimeout = errors.New("recognition timed out")
	// ErrInvalidConfig is returned by UpdateConfig for out-of-range values
	ErrInvalidConfig = errors.New("invalid recognition config")
	// ErrInvalidImage is returned for nil or empty pixel buffers
	ErrInvalidImage = errors.New("invalid image provided")
)
