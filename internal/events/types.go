package events

import "time"

// EventType represents different types of events in the system
type EventType string

const (
	// Capture events
	EventTypeCaptureUnavailable EventType = "capture.unavailable"

	// Template events
	EventTypeTemplateFailed EventType = "template.failed"
	EventTypeCacheCleared   EventType = "cache.cleared"

	// Wait events
	EventTypeWaitSucceeded EventType = "wait.succeeded"
	EventTypeWaitTimedOut  EventType = "wait.timed_out"

	// Scene events
	EventTypeSceneRecognized EventType = "scene.recognized"
)

// AllEventTypes lists every event type the engine emits
func AllEventTypes() []EventType {
	return []EventType{
		EventTypeCaptureUnavailable,
		EventTypeTemplateFailed,
		EventTypeCacheCleared,
		EventTypeWaitSucceeded,
		EventTypeWaitTimedOut,
		EventTypeSceneRecognized,
	}
}

// Event represents a system event with metadata
type Event struct {
	Type      EventType              // Type of event
	Source    string                 // Component that emitted event (e.g., "cv", "scene")
	Timestamp time.Time              // When the event occurred
	Data      map[string]interface{} // Event-specific data
}

// EventHandler is a function that processes an event
type EventHandler func(Event)

// SubscriptionID uniquely identifies a subscription
type SubscriptionID int64

// EventBus defines the interface for event pub/sub
type EventBus interface {
	// Subscribe registers a handler for a specific event type
	Subscribe(eventType EventType, handler EventHandler) SubscriptionID

	// Unsubscribe removes a subscription by ID
	Unsubscribe(id SubscriptionID)

	// Publish sends an event to all subscribers (blocking until queued)
	Publish(event Event)

	// TryPublish queues an event without blocking and reports whether it was queued
	TryPublish(event Event) bool

	// Stop stops the event bus and drains remaining events
	Stop()
}

// Helper functions to create common events

// NewCaptureUnavailableEvent creates a capture unavailable event
func NewCaptureUnavailableEvent(display int, err error) Event {
	return Event{
		Type:      EventTypeCaptureUnavailable,
		Source:    "cv",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"display": display,
			"error":   errorString(err),
		},
	}
}

// NewTemplateFailedEvent creates a template failure event
func NewTemplateFailedEvent(path string, err error) Event {
	return Event{
		Type:      EventTypeTemplateFailed,
		Source:    "cv",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"path":  path,
			"error": errorString(err),
		},
	}
}

// NewCacheClearedEvent creates a cache cleared event
func NewCacheClearedEvent(templatesDropped int) Event {
	return Event{
		Type:      EventTypeCacheCleared,
		Source:    "cv",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"templates_dropped": templatesDropped,
		},
	}
}

// NewWaitSucceededEvent creates a wait succeeded event
func NewWaitSucceededEvent(path string, confidence float64, attempts int, elapsed time.Duration) Event {
	return Event{
		Type:      EventTypeWaitSucceeded,
		Source:    "cv",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"path":       path,
			"confidence": confidence,
			"attempts":   attempts,
			"elapsed_ms": elapsed.Milliseconds(),
		},
	}
}

// NewWaitTimedOutEvent creates a wait timed out event
func NewWaitTimedOutEvent(path string, attempts int, timeout time.Duration) Event {
	return Event{
		Type:      EventTypeWaitTimedOut,
		Source:    "cv",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"path":       path,
			"attempts":   attempts,
			"timeout_ms": timeout.Milliseconds(),
		},
	}
}

// NewSceneRecognizedEvent creates a scene recognized event
func NewSceneRecognizedEvent(scene string, confidence float64) Event {
	return Event{
		Type:      EventTypeSceneRecognized,
		Source:    "scene",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"scene":      scene,
			"confidence": confidence,
		},
	}
}

func errorString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
