package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/rs/zerolog/log"

	"github.com/sellerfunnel/api/internal/model"
)

const (
	sendBuffer   = 64
	pingInterval = 30 * time.Second

	// finalDeliveryTimeout bounds how long a job waits to hand over its
	// terminal snapshot when the broadcast queue is full.
	finalDeliveryTimeout = 2 * time.Second
)

// Conn is the part of a websocket connection the hub uses.
type Conn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
}

// JobLookup resolves the current snapshot of a job.
type JobLookup interface {
	Lookup(id string) (model.JobSnapshot, error)
}

type outbound struct {
	data  []byte
	final bool
}

// Client represents a WebSocket client
type Client struct {
	JobID string
	Conn  Conn
	send  chan outbound
	pong  chan struct{}
}

// BroadcastMessage represents a message to broadcast
type BroadcastMessage struct {
	JobID   string
	Message []byte
	Final   bool
}

// Hub fans job snapshots out to the connections watching each job.
type Hub struct {
	// Clients grouped by job ID
	clients map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *BroadcastMessage
	stopped    chan struct{}

	mu sync.RWMutex
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *BroadcastMessage, 256),
		stopped:    make(chan struct{}),
	}
}

// Run starts the hub's main loop and returns when ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.stopped)
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
			log.Debug().Str("component", "websocket").Str("job_id", client.JobID).Msg("Client registered")

		case client := <-h.unregister:
			h.remove(client)
			log.Debug().Str("component", "websocket").Str("job_id", client.JobID).Msg("Client unregistered")

		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients[msg.JobID] {
				select {
				case client.send <- outbound{data: msg.Message, final: msg.Final}:
				default:
					// Slow reader; drop it rather than stall every job.
					h.dropLocked(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(client)
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
	close(client.send)
	if len(clients) == 0 {
		delete(h.clients, client.JobID)
	}
}

// Subscribers returns the number of connections watching jobID.
func (h *Hub) Subscribers(jobID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[jobID])
}

// OnUpdate broadcasts a job snapshot. A progress update never blocks the
// publishing job: when the hub is backed up it is dropped, and the next one
// supersedes it. The terminal snapshot has no successor, so it waits up to
// finalDeliveryTimeout for room in the queue.
func (h *Hub) OnUpdate(s model.JobSnapshot) {
	data, final, err := encodeSnapshot(s)
	if err != nil {
		log.Error().Str("component", "websocket").Err(err).Msg("Failed to marshal job snapshot")
		return
	}
	msg := &BroadcastMessage{JobID: s.JobID, Message: data, Final: final}

	select {
	case h.broadcast <- msg:
		return
	default:
	}

	if !final {
		log.Warn().Str("component", "websocket").Str("job_id", s.JobID).Msg("Broadcast queue full, update dropped")
		return
	}

	timer := time.NewTimer(finalDeliveryTimeout)
	defer timer.Stop()
	select {
	case h.broadcast <- msg:
	case <-h.stopped:
	case <-timer.C:
		log.Error().Str("component", "websocket").Str("job_id", s.JobID).Msg("Broadcast queue full, final update dropped")
	}
}

func encodeSnapshot(s model.JobSnapshot) ([]byte, bool, error) {
	if s.Status.Terminal() {
		data, err := json.Marshal(model.WSCompleteMessage{Type: model.WSMessageTypeComplete, Job: s})
		return data, true, err
	}
	data, err := json.Marshal(model.WSProgressMessage{Type: model.WSMessageTypeProgress, Job: s})
	return data, false, err
}

func encodeError(jobID, code, message string) []byte {
	data, _ := json.Marshal(model.WSErrorMessage{
		Type:  model.WSMessageTypeError,
		JobID: jobID,
		Error: model.WSError{Code: code, Message: message},
	})
	return data
}

// HandleConnection streams a job's progress to c until the job ends or the
// peer goes away. The current snapshot is sent first.
func (h *Hub) HandleConnection(c Conn, jobID string, jobs JobLookup) {
	client := &Client{
		JobID: jobID,
		Conn:  c,
		send:  make(chan outbound, sendBuffer),
		pong:  make(chan struct{}, 1),
	}

	select {
	case h.register <- client:
	case <-h.stopped:
		_ = c.WriteMessage(websocket.CloseMessage, []byte{})
		return
	}
	defer func() {
		select {
		case h.unregister <- client:
		case <-h.stopped:
		}
	}()

	// Looked up after registering, so no update between the two is lost.
	snapshot, err := jobs.Lookup(jobID)
	if err != nil {
		_ = c.WriteMessage(websocket.TextMessage, encodeError(jobID, "NOT_FOUND", "Job not found"))
		_ = c.WriteMessage(websocket.CloseMessage, []byte{})
		return
	}
	data, final, err := encodeSnapshot(snapshot)
	if err != nil {
		return
	}
	if err := c.WriteMessage(websocket.TextMessage, data); err != nil || final {
		_ = c.WriteMessage(websocket.CloseMessage, []byte{})
		return
	}

	done := make(chan struct{})
	go h.readLoop(client, done)

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-client.send:
			if !ok {
				_ = c.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.WriteMessage(websocket.TextMessage, msg.data); err != nil {
				return
			}
			if msg.final {
				_ = c.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

		case <-client.pong:
			data, _ := json.Marshal(model.WSMessage{Type: model.WSMessageTypePong})
			if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-done:
			return
		}
	}
}

// readLoop forwards client pings to the writer and reports when the peer
// disconnects.
func (h *Hub) readLoop(client *Client, done chan<- struct{}) {
	defer close(done)
	for {
		_, message, err := client.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Str("component", "websocket").Str("job_id", client.JobID).Err(err).Msg("WebSocket error")
			}
			return
		}

		var msg model.WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		if msg.Type == model.WSMessageTypePing {
			select {
			case client.pong <- struct{}{}:
			default:
			}
		}
	}
}
