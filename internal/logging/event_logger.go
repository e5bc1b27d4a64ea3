package logging

import (
	"fmt"

	"github.com/pared2021/honkai-star-rail-automation-sub001/internal/events"
)

// EventLogger subscribes to the event bus and logs recognition events
type EventLogger struct {
	logger        *Logger
	eventBus      events.EventBus
	subscriptions []events.SubscriptionID
}

// NewEventLogger subscribes logger to every engine event type
func NewEventLogger(eventBus events.EventBus, logger *Logger) *EventLogger {
	if logger == nil {
		logger = NewLogger("events")
	}

	el := &EventLogger{
		logger:   logger,
		eventBus: eventBus,
	}

	for _, eventType := range events.AllEventTypes() {
		el.subscriptions = append(el.subscriptions, eventBus.Subscribe(eventType, el.handleEvent))
	}

	return el
}

// handleEvent logs one event; failures are warnings, everything else info
func (el *EventLogger) handleEvent(event events.Event) {
	context := map[string]interface{}{
		"event_type": string(event.Type),
		"source":     event.Source,
	}
	for k, v := range event.Data {
		context[k] = v
	}

	msg := fmt.Sprintf("Event: %s", event.Type)
	switch event.Type {
	case events.EventTypeCaptureUnavailable, events.EventTypeTemplateFailed, events.EventTypeWaitTimedOut:
		el.logger.WarnWithContext(msg, context)
	default:
		el.logger.InfoWithContext(msg, context)
	}
}

// Close removes the event logger's subscriptions
func (el *EventLogger) Close() {
	for _, id := range el.subscriptions {
		el.eventBus.Unsubscribe(id)
	}
	el.subscriptions = nil
}
