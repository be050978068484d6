package service

import (
	"context"

	"thrx-be/internal/constant"
	"thrx-be/internal/pkg/logger"
	"thrx-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
)

// EventDelivery pushes encoded events to live clients.
type EventDelivery interface {
	Deliver(ctx context.Context, chatId string, data []byte)
	Broadcast(ctx context.Context, data []byte)
}

// ExternalPublisher forwards durable events off-process (NATS).
type ExternalPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	delivery   EventDelivery
	external   ExternalPublisher
	logger     logger.ILogger
}

// NewConsumerService drains the turn event topic. external may be nil when
// no NATS server is configured.
func NewConsumerService(
	subscriber message.Subscriber,
	delivery EventDelivery,
	external ExternalPublisher,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber: subscriber,
		topicName:  constant.TurnEventsTopic,
		delivery:   delivery,
		external:   external,
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
	event, err := events.Unmarshal(msg.Payload)
	if err != nil {
		cs.logger.Error("Consumer", "Failed to unmarshal event", map[string]interface{}{"error": err.Error()})
		// Ack invalid messages to prevent infinite retry
		msg.Ack()
		return
	}

	if chatId := events.ChatIdOf(event); chatId != "" {
		cs.delivery.Deliver(ctx, chatId, msg.Payload)
	} else {
		cs.delivery.Broadcast(ctx, msg.Payload)
	}

	// Live clients already have the event, so a NATS failure is not retried.
	if cs.external != nil && events.Durable(event) {
		if err := cs.external.Publish(ctx, event); err != nil {
			cs.logger.Warn("Consumer", "Failed to forward event to NATS", map[string]interface{}{
				"type":  event.EventType(),
				"error": err.Error(),
			})
		}
	}

	msg.Ack()
}
