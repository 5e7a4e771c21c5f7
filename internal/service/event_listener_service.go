package service

import (
	"context"

	"ai-studykit-be/internal/pkg/logger"
	"ai-studykit-be/pkg/events"
	pktNats "ai-studykit-be/pkg/nats"
)

// EventSubscriber is the part of the NATS subscriber the listener needs.
type EventSubscriber interface {
	Subscribe(ctx context.Context, eventType, durableName string, handler pktNats.EventHandler) error
}

// IEventListener records settled generation jobs in the system log.
type IEventListener interface {
	Start(ctx context.Context) error
	Handle(ctx context.Context, event events.Event) error
}

type eventListener struct {
	subscriber EventSubscriber
	logger     logger.ILogger
}

func NewEventListener(subscriber EventSubscriber, log logger.ILogger) IEventListener {
	return &eventListener{subscriber: subscriber, logger: log}
}

func (l *eventListener) Start(ctx context.Context) error {
	for _, eventType := range []string{events.GenerationCompleted, events.GenerationFailed} {
		if err := l.subscriber.Subscribe(ctx, eventType, "studykit-audit-"+eventType, l.Handle); err != nil {
			return err
		}
	}
	return nil
}

func (l *eventListener) Handle(_ context.Context, event events.Event) error {
	details := event.Payload()
	if details == nil {
		details = map[string]interface{}{}
	}
	details["event_type"] = event.EventType()

	if event.EventType() == events.GenerationFailed {
		l.logger.Warn("EVENTS", "Generation job failed", details)
	} else {
		l.logger.Info("EVENTS", "Generation job settled", details)
	}
	return nil
}
