package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"

	"github.com/makeasinger/genqueue/internal/model"
)

// Client represents a WebSocket client
type Client struct {
	JobID string
	Conn  *websocket.Conn
	Send  chan []byte
}

// Hub fans job events out to the WebSocket clients watching each job.
// It is registered as an engine observer.
type Hub struct {
	// Clients grouped by job ID
	clients map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *BroadcastMessage

	mu sync.RWMutex
}

// BroadcastMessage represents a message to broadcast
type BroadcastMessage struct {
	JobID   string
	Message []byte
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *BroadcastMessage, 256),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.JobID] == nil {
				h.clients[client.JobID] = make(map[*Client]bool)
			}
			h.clients[client.JobID][client] = true
			h.mu.Unlock()
			slog.Debug("websocket client registered", "job_id", client.JobID)

		case client := <-h.unregister:
			h.mu.Lock()
			h.dropLocked(client)
			h.mu.Unlock()
			slog.Debug("websocket client unregistered", "job_id", client.JobID)

		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients[msg.JobID] {
				select {
				case client.Send <- msg.Message:
				default:
					// Slow reader; the writer goroutine closes the socket.
					h.dropLocked(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) dropLocked(client *Client) {
	clients, ok := h.clients[client.JobID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.Send)
	if len(clients) == 0 {
		delete(h.clients, client.JobID)
	}
}

// Register adds a new client
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Subscribers returns how many clients watch jobID
func (h *Hub) Subscribers(jobID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[jobID])
}

// Publish implements scheduler.Observer. It never blocks; messages are
// dropped when the broadcast buffer is full.
func (h *Hub) Publish(evt model.JobEvent) {
	data, err := EncodeEvent(evt)
	if err != nil {
		slog.Error("failed to marshal websocket message", "job_id", evt.Job.ID, "error", err)
		return
	}
	select {
	case h.broadcast <- &BroadcastMessage{JobID: evt.Job.ID, Message: data}:
	default:
		slog.Warn("websocket broadcast buffer full, dropping message", "job_id", evt.Job.ID, "type", evt.Type)
	}
}

// EncodeEvent renders a job event as the message clients receive
func EncodeEvent(evt model.JobEvent) ([]byte, error) {
	job := evt.Job
	switch evt.Type {
	case model.JobEventCompleted:
		versions := job.Versions
		if versions == nil {
			versions = []model.Version{}
		}
		return json.Marshal(model.WSCompleteMessage{
			Type:     model.WSMessageTypeComplete,
			JobID:    job.ID,
			Versions: versions,
		})

	case model.JobEventFailed:
		return json.Marshal(model.WSErrorMessage{
			Type:  model.WSMessageTypeError,
			JobID: job.ID,
			Error: model.WSError{Code: "GENERATION_FAILED", Message: job.Error},
		})

	case model.JobEventCancelled:
		return json.Marshal(model.WSErrorMessage{
			Type:  model.WSMessageTypeCancelled,
			JobID: job.ID,
			Error: model.WSError{Code: "JOB_CANCELLED", Message: "Job was cancelled"},
		})

	case model.JobEventRemoved:
		return json.Marshal(model.WSErrorMessage{
			Type:  model.WSMessageTypeError,
			JobID: job.ID,
			Error: model.WSError{Code: "JOB_REMOVED", Message: "Job was removed"},
		})
	}

	typ := model.WSMessageTypeProgress
	if evt.Type == model.JobEventQueued {
		typ = model.WSMessageTypeQueued
	}
	return json.Marshal(model.WSProgressMessage{
		Type:        typ,
		JobID:       job.ID,
		Progress:    job.Progress,
		Status:      job.Status,
		Position:    job.Position,
		CurrentStep: job.CurrentStep,
	})
}

// HandleConnection serves one WebSocket connection. initial, when not nil,
// is sent before any broadcast so the client starts from the job's current
// state.
func (h *Hub) HandleConnection(c *websocket.Conn, jobID string, initial []byte) {
	client := &Client{
		JobID: jobID,
		Conn:  c,
		Send:  make(chan []byte, 256),
	}
	if initial != nil {
		client.Send <- initial
	}

	h.Register(client)
	defer h.Unregister(client)

	// Start writer goroutine
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case message, ok := <-client.Send:
				if !ok {
					c.WriteMessage(websocket.CloseMessage, []byte{})
					c.Close()
					return
				}
				if err := c.WriteMessage(websocket.TextMessage, message); err != nil {
					return
				}

			case <-ticker.C:
				// Send ping for keep-alive
				if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	// Reader loop
	for {
		_, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("websocket error", "job_id", jobID, "error", err)
			}
			break
		}

		var msg model.WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}

		if msg.Type == model.WSMessageTypePing {
			pong, _ := json.Marshal(model.WSMessage{Type: model.WSMessageTypePong})
			h.mu.RLock()
			_, live := h.clients[jobID][client]
			if live {
				select {
				case client.Send <- pong:
				default:
				}
			}
			h.mu.RUnlock()
		}
	}
}
