package service

import (
	"context"

	"thrx-be/internal/constant"
	"thrx-be/internal/pkg/logger"
	"thrx-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

type IPublisherService interface {
	// Emit never blocks the turn on a delivery failure; it logs instead.
	Emit(ctx context.Context, event events.Event)
}

type publisherService struct {
	publisher message.Publisher
	topicName string
	logger    logger.ILogger
}

func NewPublisherService(publisher message.Publisher, log logger.ILogger) IPublisherService {
	return &publisherService{
		publisher: publisher,
		topicName: constant.TurnEventsTopic,
		logger:    log,
	}
}

func (ps *publisherService) Emit(ctx context.Context, event events.Event) {
	payload, err := events.Marshal(event)
	if err != nil {
		ps.logger.Error("Publisher", "Failed to encode event", map[string]interface{}{
			"type":  event.EventType(),
			"error": err.Error(),
		})
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	if chatId := events.ChatIdOf(event); chatId != "" {
		msg.Metadata.Set(events.ChatIdKey, chatId)
	}

	if err := ps.publisher.Publish(ps.topicName, msg); err != nil {
		ps.logger.Warn("Publisher", "Failed to publish event", map[string]interface{}{
			"type":  event.EventType(),
			"error": err.Error(),
		})
	}
}
