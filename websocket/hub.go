package websocket

import (
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	imports "medequip-backend/imports/services"
)

type MessageType string

const (
	MessageTypeProgress    MessageType = "IMPORT_PROGRESS"
	MessageTypeResult      MessageType = "IMPORT_RESULT"
	MessageTypeFailed      MessageType = "IMPORT_FAILED"
	MessageTypeSnapshot    MessageType = "JOB_SNAPSHOT"
	MessageTypeSubscribe   MessageType = "SUBSCRIBE"
	MessageTypeUnsubscribe MessageType = "UNSUBSCRIBE"
	MessageTypeError       MessageType = "ERROR"
)

type WebSocketMessage struct {
	Type      MessageType `json:"type"`
	JobID     string      `json:"jobId,omitempty"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

type Client struct {
	ID    uuid.UUID
	Email string
	Conn  *websocket.Conn
	Hub   *Hub
	Send  chan WebSocketMessage
	Jobs  map[string]bool
	mu    sync.RWMutex
}

// Hub fans import events out to the clients watching each job.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.drop(client)
			h.mu.Unlock()
		}
	}
}

// drop must be called with h.mu held.
func (h *Hub) drop(client *Client) {
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.Send)
	}
}

// PublishJobEvent converts an engine event into a message for the job's subscribers.
func (h *Hub) PublishJobEvent(ev imports.Event) {
	msgType := MessageTypeProgress
	switch ev.Type {
	case imports.EventResult:
		msgType = MessageTypeResult
	case imports.EventError:
		msgType = MessageTypeFailed
	}
	h.BroadcastToJob(ev.JobID, WebSocketMessage{
		Type:      msgType,
		JobID:     ev.JobID,
		Payload:   ev,
		Timestamp: time.Now(),
	})
}

// BroadcastToJob sends a message to every client subscribed to jobID. Clients
// whose send buffer is full are disconnected.
func (h *Hub) BroadcastToJob(jobID string, message WebSocketMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		if !client.IsSubscribedToJob(jobID) {
			continue
		}
		select {
		case client.Send <- message:
		default:
			h.drop(client)
		}
	}
}

func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) GetJobSubscribers(jobID string) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var subscribers []*Client
	for client := range h.clients {
		if client.IsSubscribedToJob(jobID) {
			subscribers = append(subscribers, client)
		}
	}
	return subscribers
}

func (c *Client) SubscribeToJob(jobID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Jobs == nil {
		c.Jobs = make(map[string]bool)
	}
	c.Jobs[jobID] = true
}

func (c *Client) UnsubscribeFromJob(jobID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.Jobs, jobID)
}

func (c *Client) IsSubscribedToJob(jobID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Jobs[jobID]
}
