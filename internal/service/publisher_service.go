package service

import (
	"context"
	"encoding/json"

	"ai-studykit-be/internal/dto"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

type IPublisherService interface {
	PublishGeneration(ctx context.Context, req *dto.PublishGenerationMessage) error
}

type publisherService struct {
	topicName string
	publisher message.Publisher
}

func NewPublisherService(topicName string, publisher message.Publisher) IPublisherService {
	return &publisherService{
		topicName: topicName,
		publisher: publisher,
	}
}

func (ps *publisherService) PublishGeneration(ctx context.Context, req *dto.PublishGenerationMessage) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return err
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	return ps.publisher.Publish(ps.topicName, msg)
}
