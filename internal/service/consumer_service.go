package service

import (
	"context"
	"encoding/json"

	"ai-studykit-be/internal/dto"
	"ai-studykit-be/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill/message"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// JobProcessor is the part of the generation service the consumer drives.
type JobProcessor interface {
	Process(ctx context.Context, req *dto.PublishGenerationMessage) error
}

type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	processor  JobProcessor
	logger     logger.ILogger
}

func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	processor JobProcessor,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber: subscriber,
		topicName:  topicName,
		processor:  processor,
		logger:     log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.PublishGenerationMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error("CONSUMER", "Failed to unmarshal message", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	cs.logger.Info("CONSUMER", "Processing generation job", map[string]interface{}{
		"job_id": payload.JobId.String(),
	})

	if err := cs.processor.Process(ctx, &payload); err != nil {
		cs.logger.Error("CONSUMER", "Generation job failed", map[string]interface{}{
			"job_id": payload.JobId.String(),
			"error":  err.Error(),
		})
		msg.Nack()
		return
	}

	msg.Ack()
}
