package websocket

import (
	"context"

	"wiki-rag-be/internal/pkg/logger"
	"wiki-rag-be/pkg/events"
	pktNats "wiki-rag-be/pkg/nats"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// Handler exposes the refresh progress stream as a websocket endpoint and
// feeds the hub from the event bus.
type Handler struct {
	hub    *Hub
	logger logger.ILogger
}

func NewHandler(hub *Hub, log logger.ILogger) *Handler {
	return &Handler{hub: hub, logger: log}
}

func (h *Handler) RegisterRoutes(r fiber.Router) {
	ws := r.Group("/ws/v1")
	ws.Use(func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	ws.Get("progress", websocket.New(func(conn *websocket.Conn) {
		ServeWs(h.hub, conn)
	}))
}

// BindEventBus subscribes the hub to the refresh lifecycle events so that
// progress reaches the browser regardless of which instance indexed the
// document.
func (h *Handler) BindEventBus(subscriber *pktNats.Subscriber) error {
	return subscriber.Subscribe("wiki.>", "progress-push", func(ctx context.Context, event events.Event) error {
		h.hub.Broadcast(event)
		return nil
	})
}

// ServeWs registers the connection with the hub and starts its pumps.
func ServeWs(hub *Hub, c *websocket.Conn) {
	client := &Client{Hub: hub, Conn: c, Send: make(chan []byte, 256)}
	client.Hub.register <- client

	go client.writePump()
	client.readPump() // runs in the handler goroutine
}
