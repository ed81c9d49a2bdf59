package handler

import (
	"sync"

	"github.com/arkanata/talentsift/internal/events"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type WSHandler struct {
	hub    *events.Hub
	logger *zap.Logger
}

func NewWSHandler(hub *events.Hub, logger *zap.Logger) *WSHandler {
	return &WSHandler{hub: hub, logger: logger}
}

func (h *WSHandler) RegisterRoutes(app *fiber.App) {
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(h.serve))
}

// wsConn wraps the fiber websocket connection so the hub can address it by
// a stable id. WriteJSON is serialized because the hub may publish from
// multiple goroutines.
type wsConn struct {
	id string
	mu sync.Mutex
	ws *websocket.Conn
}

func (c *wsConn) ID() string { return c.id }

func (c *wsConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteJSON(v)
}

type subscribeMessage struct {
	Action string `json:"action"`
	Topic  string `json:"topic"`
}

// serve keeps the connection subscribed for its lifetime. The initial topic
// comes from the query string; further subscribe/unsubscribe messages can be
// sent over the socket.
func (h *WSHandler) serve(ws *websocket.Conn) {
	conn := &wsConn{id: uuid.New().String(), ws: ws}
	defer func() {
		h.hub.CloseConn(conn)
		_ = ws.Close()
	}()

	topic := ws.Query("topic", events.StatsTopic)
	h.hub.Subscribe(conn, topic)
	h.logger.Debug("websocket connected",
		zap.String("conn_id", conn.id), zap.String("topic", topic))

	for {
		var msg subscribeMessage
		if err := ws.ReadJSON(&msg); err != nil {
			return
		}
		if msg.Topic == "" {
			continue
		}
		switch msg.Action {
		case "subscribe":
			h.hub.Subscribe(conn, msg.Topic)
		case "unsubscribe":
			h.hub.Unsubscribe(conn, msg.Topic)
		}
	}
}
