package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewGenerationEvent(t *testing.T) {
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	ok := NewGenerationEvent(GenerationOutcome{JobID: "j1", Status: "partial", Accepted: 2, FailedChunks: 1}, at)
	assert.Equal(t, GenerationCompleted, ok.EventType())
	assert.Equal(t, 2, ok.Payload()["accepted"])
	assert.NotContains(t, ok.Payload(), "error")
	assert.Equal(t, at, ok.Timestamp())

	failed := NewGenerationEvent(GenerationOutcome{JobID: "j2", Status: "failed", Error: "no content generated"}, at)
	assert.Equal(t, GenerationFailed, failed.EventType())
	assert.Equal(t, "no content generated", failed.Payload()["error"])
	assert.Equal(t, "2025-03-01T10:00:00Z", failed.Payload()["occurred_at"])
}

func TestSubjectRoundTrip(t *testing.T) {
	assert.Equal(t, "events.GENERATION_FAILED", Subject(GenerationFailed))
	assert.Equal(t, GenerationFailed, TypeFromSubject("events.GENERATION_FAILED"))

	e := FromPayload("events.GENERATION_COMPLETED", map[string]interface{}{"occurred_at": "2025-03-01T10:00:00Z"})
	assert.Equal(t, GenerationCompleted, e.EventType())
	assert.Equal(t, time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC), e.Timestamp())
}
