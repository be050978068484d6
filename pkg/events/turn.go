package events

import "time"

const (
	TypeChatCreated       = "chat.created"
	TypeBranchPromoted    = "branch.promoted"
	TypeTurnStarted       = "turn.started"
	TypeTurnState         = "turn.state"
	TypeTurnPartial       = "turn.partial"
	TypeTurnFallback      = "turn.fallback"
	TypeTurnCompleted     = "turn.completed"
	TypeTurnCancelled     = "turn.cancelled"
	TypeTurnFailed        = "turn.failed"
	TypeModelLoadStarted  = "model.load.started"
	TypeModelLoadFinished = "model.load.finished"
	TypeModelLoadFailed   = "model.load.failed"
)

// ChatIdKey is present in the payload of every chat scoped event.
const ChatIdKey = "chat_id"

// NewChatEvent builds an event scoped to one chat.
func NewChatEvent(eventType, chatId string, data map[string]interface{}) BaseEvent {
	payload := make(map[string]interface{}, len(data)+1)
	for k, v := range data {
		payload[k] = v
	}
	payload[ChatIdKey] = chatId
	return BaseEvent{
		Type:       eventType,
		Data:       payload,
		OccurredAt: time.Now().UTC(),
	}
}

// ChatIdOf returns the chat an event belongs to, or "" for global events.
func ChatIdOf(e Event) string {
	id, _ := e.Payload()[ChatIdKey].(string)
	return id
}

// Durable reports whether an event is worth forwarding off-process.
// Streaming partials only go to live websocket clients.
func Durable(e Event) bool {
	switch e.EventType() {
	case TypeTurnPartial, TypeTurnState:
		return false
	}
	return true
}
