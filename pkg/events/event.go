// Package events holds the domain events published on the bus once a
// generation job settles.
package events

import (
	"strings"
	"time"
)

// SubjectPrefix namespaces every event subject on the bus.
const SubjectPrefix = "events."

type Event interface {
	EventType() string
	Payload() map[string]interface{}
	Timestamp() time.Time
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string               { return e.Type }
func (e BaseEvent) Payload() map[string]interface{} { return e.Data }
func (e BaseEvent) Timestamp() time.Time            { return e.OccurredAt }

// Subject is the bus subject an event type is published on.
func Subject(eventType string) string {
	return SubjectPrefix + eventType
}

// TypeFromSubject reverses Subject; unknown subjects come back unchanged.
func TypeFromSubject(subject string) string {
	return strings.TrimPrefix(subject, SubjectPrefix)
}

// FromPayload rebuilds an event received from the bus. The occurrence time
// is taken from the "occurred_at" field when present.
func FromPayload(subject string, data map[string]interface{}) BaseEvent {
	at := time.Now()
	if s, ok := data["occurred_at"].(string); ok {
		if parsed, err := time.Parse(time.RFC3339, s); err == nil {
			at = parsed
		}
	}
	return BaseEvent{Type: TypeFromSubject(subject), Data: data, OccurredAt: at}
}
