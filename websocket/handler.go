package websocket

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"medequip-backend/config"
	"medequip-backend/token"
)

// AuthService defines a token validator interface
type AuthService interface {
	VerifyToken(token string) (*token.Payload, error)
}

// JobSnapshots returns the last stored state of a job, if any.
type JobSnapshots interface {
	Snapshot(ctx context.Context, jobID string) (interface{}, error)
}

// WsHandler upgrades job progress requests and registers the clients.
type WsHandler struct {
	hub       *Hub
	auth      AuthService
	snapshots JobSnapshots
}

func NewWsHandler(hub *Hub, auth AuthService, snapshots JobSnapshots) *WsHandler {
	return &WsHandler{hub: hub, auth: auth, snapshots: snapshots}
}

// HandleWebSocket serves GET /ws/imports/:jobID.
func (h *WsHandler) HandleWebSocket(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	tokenStr := c.Cookies("access_token")
	if tokenStr == "" {
		config.Logger.Warn("WebSocket connection attempted without access token cookie")
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required - no access token cookie found",
		})
	}

	payload, err := h.auth.VerifyToken(tokenStr)
	if err != nil {
		config.Logger.Warn("Invalid access token for WebSocket", zap.Error(err))
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid or expired token",
		})
	}

	jobID := c.Params("jobID")
	if _, err := uuid.Parse(jobID); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid job ID format",
		})
	}

	return websocket.New(func(conn *websocket.Conn) {
		client := &Client{
			ID:    uuid.New(),
			Email: payload.Email,
			Conn:  conn,
			Hub:   h.hub,
			Send:  make(chan WebSocketMessage, 256),
			Jobs:  map[string]bool{jobID: true},
		}
		h.hub.register <- client

		config.Logger.Info("WebSocket client registered",
			zap.String("clientID", client.ID.String()),
			zap.String("email", client.Email),
			zap.String("jobID", jobID),
		)

		h.sendSnapshot(client, jobID)

		go client.writePump()
		client.readPump()
	})(c)
}

// sendSnapshot lets a late subscriber catch up with a job already under way.
func (h *WsHandler) sendSnapshot(client *Client, jobID string) {
	if h.snapshots == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	state, err := h.snapshots.Snapshot(ctx, jobID)
	if err != nil || state == nil {
		return
	}
	client.SendMessage(WebSocketMessage{
		Type:      MessageTypeSnapshot,
		JobID:     jobID,
		Payload:   state,
		Timestamp: time.Now(),
	})
}

// readPump accepts subscribe and unsubscribe requests until the peer goes away.
func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(64 * 1024)
	c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		var msg WebSocketMessage
		if err := c.Conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				config.Logger.Warn("WebSocket unexpected close",
					zap.String("clientID", c.ID.String()),
					zap.Error(err),
				)
			}
			return
		}

		switch msg.Type {
		case MessageTypeSubscribe:
			if _, err := uuid.Parse(msg.JobID); err != nil {
				c.sendError("Invalid job ID format")
				continue
			}
			c.SubscribeToJob(msg.JobID)
		case MessageTypeUnsubscribe:
			c.UnsubscribeFromJob(msg.JobID)
		default:
			c.sendError("Unknown message type: " + string(msg.Type))
		}
	}
}

// writePump sends queued messages and keeps the connection alive
func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteJSON(message); err != nil {
				config.Logger.Debug("WebSocket write error",
					zap.String("clientID", c.ID.String()),
					zap.Error(err),
				)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) sendError(message string) {
	c.SendMessage(WebSocketMessage{
		Type:      MessageTypeError,
		Payload:   map[string]interface{}{"message": message},
		Timestamp: time.Now(),
	})
}

// SendMessage queues msg without blocking; a full buffer drops it.
func (c *Client) SendMessage(msg WebSocketMessage) bool {
	defer func() {
		// the hub may have closed Send after an unregister
		recover()
	}()
	select {
	case c.Send <- msg:
		return true
	default:
		return false
	}
}
