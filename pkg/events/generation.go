package events

import "time"

const (
	GenerationCompleted = "GENERATION_COMPLETED"
	GenerationFailed    = "GENERATION_FAILED"
)

// GenerationOutcome summarises a settled generation job.
type GenerationOutcome struct {
	JobID        string
	ModuleID     string
	Kind         string
	Status       string
	Accepted     int
	FailedChunks int
	Error        string
}

// NewGenerationEvent picks GENERATION_FAILED when nothing was accepted.
func NewGenerationEvent(o GenerationOutcome, at time.Time) BaseEvent {
	eventType := GenerationCompleted
	if o.Accepted == 0 {
		eventType = GenerationFailed
	}
	data := map[string]interface{}{
		"job_id":        o.JobID,
		"module_id":     o.ModuleID,
		"kind":          o.Kind,
		"status":        o.Status,
		"accepted":      o.Accepted,
		"failed_chunks": o.FailedChunks,
		"occurred_at":   at.UTC().Format(time.RFC3339),
	}
	if o.Error != "" {
		data["error"] = o.Error
	}
	return BaseEvent{Type: eventType, Data: data, OccurredAt: at}
}
