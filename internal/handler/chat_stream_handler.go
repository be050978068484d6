package handler

import (
	"thrx-be/internal/pkg/logger"
	internalWS "thrx-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// ChatStreamHandler upgrades clients to a websocket that follows the turn
// events of one chat, or of all chats.
type ChatStreamHandler struct {
	hub    *internalWS.Hub
	logger logger.ILogger
}

func NewChatStreamHandler(hub *internalWS.Hub, log logger.ILogger) *ChatStreamHandler {
	return &ChatStreamHandler{
		hub:    hub,
		logger: log,
	}
}

// ServeChat streams the events of the chat in the :id param.
func (h *ChatStreamHandler) ServeChat(c *fiber.Ctx) error {
	return h.serve(c, c.Params("id"))
}

// ServeAll streams every chat's events. A client that starts a new chat
// subscribes here because the chat id is only known once the turn begins.
func (h *ChatStreamHandler) ServeAll(c *fiber.Ctx) error {
	return h.serve(c, internalWS.AllChats)
}

func (h *ChatStreamHandler) serve(c *fiber.Ctx, chatId string) error {
	if chatId == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing chat id")
	}

	// The upgrade helper hijacks the connection.
	if websocket.IsWebSocketUpgrade(c) {
		return websocket.New(func(conn *websocket.Conn) {
			h.logger.Info("ChatStreamHandler", "Starting WebSocket session", map[string]interface{}{"chat_id": chatId})
			internalWS.ServeWs(h.hub, conn, chatId)
			h.logger.Info("ChatStreamHandler", "WebSocket session ended", map[string]interface{}{"chat_id": chatId})
		})(c)
	}
	return fiber.ErrUpgradeRequired
}

// RegisterRoutes registers the websocket routes.
func (h *ChatStreamHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/ws", h.ServeAll)
	router.Get("/ws/:id", h.ServeChat)
}
