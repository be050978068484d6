package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"thrx-be/internal/pkg/logger"
	"thrx-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingDelivery struct {
	mu        sync.Mutex
	perChat   map[string][]string
	broadcast []string
}

func (r *recordingDelivery) Deliver(_ context.Context, chatId string, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.perChat == nil {
		r.perChat = map[string][]string{}
	}
	r.perChat[chatId] = append(r.perChat[chatId], string(data))
}

func (r *recordingDelivery) Broadcast(_ context.Context, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcast = append(r.broadcast, string(data))
}

func (r *recordingDelivery) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, v := range r.perChat {
		n += len(v)
	}
	return n, len(r.broadcast)
}

type recordingExternal struct {
	mu    sync.Mutex
	types []string
	err   error
}

func (r *recordingExternal) Publish(_ context.Context, event events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = append(r.types, event.EventType())
	return r.err
}

func (r *recordingExternal) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.types...)
}

func startBus(t *testing.T, external ExternalPublisher) (IPublisherService, *recordingDelivery) {
	t.Helper()
	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 16}, watermill.NopLogger{})
	t.Cleanup(func() { _ = pubSub.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	delivery := &recordingDelivery{}
	consumer := NewConsumerService(pubSub, delivery, external, logger.NewNopLogger())
	require.NoError(t, consumer.Consume(ctx))

	return NewPublisherService(pubSub, logger.NewNopLogger()), delivery
}

func TestEventsReachChatWatchers(t *testing.T) {
	external := &recordingExternal{}
	publisher, delivery := startBus(t, external)

	publisher.Emit(context.Background(), events.NewChatEvent(events.TypeTurnPartial, "chat-1", map[string]interface{}{"content": "He"}))
	publisher.Emit(context.Background(), events.NewChatEvent(events.TypeTurnCompleted, "chat-1", nil))

	require.Eventually(t, func() bool {
		n, _ := delivery.counts()
		return n == 2
	}, time.Second, 5*time.Millisecond)

	delivery.mu.Lock()
	first, err := events.Unmarshal([]byte(delivery.perChat["chat-1"][0]))
	delivery.mu.Unlock()
	require.NoError(t, err)
	assert.Equal(t, events.TypeTurnPartial, first.EventType())
	assert.Equal(t, "He", first.Payload()["content"])

	// partials stay local
	require.Eventually(t, func() bool { return len(external.seen()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{events.TypeTurnCompleted}, external.seen())
}

func TestGlobalEventsAreBroadcast(t *testing.T) {
	publisher, delivery := startBus(t, nil)

	publisher.Emit(context.Background(), events.BaseEvent{
		Type:       events.TypeModelLoadFinished,
		Data:       map[string]interface{}{"model": "phi3.5:latest"},
		OccurredAt: time.Now(),
	})

	require.Eventually(t, func() bool {
		_, b := delivery.counts()
		return b == 1
	}, time.Second, 5*time.Millisecond)
}

func TestExternalFailureDoesNotBlockDelivery(t *testing.T) {
	external := &recordingExternal{err: errors.New("nats down")}
	publisher, delivery := startBus(t, external)

	publisher.Emit(context.Background(), events.NewChatEvent(events.TypeTurnFailed, "chat-1", nil))
	publisher.Emit(context.Background(), events.NewChatEvent(events.TypeTurnCompleted, "chat-1", nil))

	require.Eventually(t, func() bool {
		n, _ := delivery.counts()
		return n == 2
	}, time.Second, 5*time.Millisecond)
}
