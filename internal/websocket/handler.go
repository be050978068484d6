package websocket

import (
	"github.com/gofiber/websocket/v2"
)

// ServeWs attaches a websocket connection to the events of one chat.
func ServeWs(hub *Hub, c *websocket.Conn, chatId string) {
	client := &Client{Hub: hub, Conn: c, ChatId: chatId, Send: make(chan []byte, 256)}
	client.Hub.register <- client

	go client.writePump()
	client.readPump()
}
