package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"thrx-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ClusterChannel carries chat events between instances.
const ClusterChannel = "chat_events"

// AllChats is the key of firehose watchers, and the target that addresses
// every watcher regardless of chat.
const AllChats = "*"

type clusterMessage struct {
	ChatId  string          `json:"chat_id"`
	Origin  string          `json:"origin"`
	Message json.RawMessage `json:"message"`
}

// Hub fans turn events out to the websocket clients watching a chat.
type Hub struct {
	// ChatId -> connected clients (several tabs may watch one chat)
	clients map[string]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	// Redis connection for cross-instance communication
	rdb *redis.Client
	// instance id, used to skip our own cluster messages
	origin string

	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		rdb:        rdb,
		origin:     uuid.NewString(),
		logger:     log,
	}
}

func (h *Hub) Run(ctx context.Context) {
	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for chatId, set := range h.clients {
				for client := range set {
					close(client.Send)
				}
				delete(h.clients, chatId)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			set, ok := h.clients[client.ChatId]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[client.ChatId] = set
			}
			set[client] = struct{}{}
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"chat_id": client.ChatId})

		case client := <-h.unregister:
			h.mu.Lock()
			h.removeLocked(client)
			h.mu.Unlock()
		}
	}
}

// removeLocked drops a client and closes its queue exactly once.
func (h *Hub) removeLocked(client *Client) {
	set, ok := h.clients[client.ChatId]
	if !ok {
		return
	}
	if _, ok := set[client]; !ok {
		return
	}
	delete(set, client)
	close(client.Send)
	if len(set) == 0 {
		delete(h.clients, client.ChatId)
		h.logger.Info("Hub", "Chat has no more watchers", map[string]interface{}{"chat_id": client.ChatId})
	}
}

// Deliver sends an encoded event to every watcher of chatId, here and on
// the other instances.
func (h *Hub) Deliver(ctx context.Context, chatId string, data []byte) {
	h.deliverLocal(chatId, data)
	h.publishCluster(ctx, chatId, data)
}

// Broadcast sends an event that belongs to no chat (model loads) to everyone.
func (h *Hub) Broadcast(ctx context.Context, data []byte) {
	h.deliverLocal(AllChats, data)
	h.publishCluster(ctx, AllChats, data)
}

func (h *Hub) publishCluster(ctx context.Context, chatId string, data []byte) {
	if h.rdb == nil {
		return
	}
	payload, err := json.Marshal(clusterMessage{ChatId: chatId, Origin: h.origin, Message: data})
	if err != nil {
		return
	}
	if err := h.rdb.Publish(ctx, ClusterChannel, payload).Err(); err != nil {
		h.logger.Warn("Hub", "Cluster publish failed", map[string]interface{}{
			"chat_id": chatId,
			"error":   err.Error(),
		})
	}
}

// Watchers returns how many local clients follow chatId.
func (h *Hub) Watchers(chatId string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[chatId])
}

func (h *Hub) deliverLocal(chatId string, data []byte) {
	var slow []*Client
	send := func(client *Client) {
		select {
		case client.Send <- data:
		default:
			slow = append(slow, client)
		}
	}

	h.mu.RLock()
	if chatId == AllChats {
		for _, set := range h.clients {
			for client := range set {
				send(client)
			}
		}
	} else {
		for client := range h.clients[chatId] {
			send(client)
		}
		for client := range h.clients[AllChats] {
			send(client)
		}
	}
	h.mu.RUnlock()

	if len(slow) == 0 {
		return
	}
	h.mu.Lock()
	for _, client := range slow {
		h.logger.Warn("Hub", "Client send buffer full, dropping client", map[string]interface{}{"chat_id": chatId})
		h.removeLocked(client)
	}
	h.mu.Unlock()
}

func (h *Hub) subscribeToRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, ClusterChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var payload clusterMessage
			if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
				h.logger.Warn("Hub", "Cluster message parse error", map[string]interface{}{"error": err.Error()})
				continue
			}
			if payload.Origin == h.origin {
				continue
			}
			h.deliverLocal(payload.ChatId, payload.Message)
		}
	}
}
