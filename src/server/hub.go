package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/lucasbarnes96/truenorth-index/src/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Hub Pattern Implementation
// -----------------------------------------------------------------------------

// handleWebsockets is the main Hub loop
func (s *FastAPIServer) handleWebsockets() {
	for {
		select {
		case client := <-s.register:
			s.stateMutex.Lock()
			s.clients[client] = struct{}{}
			state := s.latestState
			s.stateMutex.Unlock()

			// Send current snapshot on connect
			if state != nil {
				client.send <- state
			}

		case client := <-s.unregister:
			s.stateMutex.Lock()
			if _, ok := s.clients[client]; ok {
				delete(s.clients, client)
				close(client.send)
			}
			s.stateMutex.Unlock()

		case message := <-s.broadcast:
			// Update state and broadcast
			s.stateMutex.Lock()
			s.latestState = message

			// Broadcast to all clients
			for client := range s.clients {
				select {
				case client.send <- message:
					// Message sent successfully
				default:
					// Client too slow, disconnect to prevent Hub blocking
					delete(s.clients, client)
					close(client.send)
				}
			}
			s.stateMutex.Unlock()

		case <-s.quit:
			s.stateMutex.Lock()
			for client := range s.clients {
				delete(s.clients, client)
				close(client.send)
			}
			s.stateMutex.Unlock()
			return
		}
	}
}

// -----------------------------------------------------------------------------
// Data Exchange Interface Implementation
// -----------------------------------------------------------------------------

// UpdateLatest replaces the cached snapshot without waking any client. Used
// when the pipeline and the server share a process and the run has nothing
// new to push.
func (s *FastAPIServer) UpdateLatest(data interface{}) {
	snapshot, ok := data.(*models.MNowcastSnapshot)
	if !ok {
		s.Logger.Info("UpdateLatest expected *MNowcastSnapshot, got %T", data)
		return
	}

	s.stateMutex.Lock()
	s.latestState = &models.MLatestData{
		Type:      "UPDATE",
		Snapshot:  snapshot,
		Timestamp: time.Now().Unix(),
	}
	s.stateMutex.Unlock()
}

// -----------------------------------------------------------------------------

// Broadcast wraps a snapshot and queues it for every connected client.
func (s *FastAPIServer) Broadcast(message interface{}) {
	snapshot, ok := message.(*models.MNowcastSnapshot)
	if !ok {
		// Log error but don't crash
		s.Logger.Info("Broadcast expected *MNowcastSnapshot, got %T", message)
		return
	}

	// Convert to the typed envelope BEFORE entering the channel so the Hub
	// loop does no data processing.
	state := &models.MLatestData{
		Type:      "UPDATE",
		Snapshot:  snapshot,
		Timestamp: time.Now().Unix(),
	}

	// The buffer (set in NewFastAPIServer) absorbs bursts; with one
	// snapshot per pipeline run it never fills in practice.
	s.broadcast <- state
}

// -----------------------------------------------------------------------------
// WebSocket Handlers
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := &Client{
		hub:  s,
		conn: conn,
		// Buffered channel to prevent blocking the Hub loop
		send: make(chan *models.MLatestData, 256),
	}

	s.register <- client

	// Start goroutines for reading/writing
	go client.writePump()
	go client.readPump()
}

// -----------------------------------------------------------------------------
// Client Message Handling
// -----------------------------------------------------------------------------

// HandleClientMessage answers subscribe commands with the current snapshot.
// There is nothing to filter: the state is one nowcast, every client sees the
// same thing.
func (s *FastAPIServer) HandleClientMessage(client *Client, message []byte) {
	var cmd models.MSubscribeCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		s.Logger.Info("Failed to parse client command: %v, disconnecting client", err)
		client.conn.Close()
		return
	}

	if cmd.Command != "subscribe" {
		return
	}

	s.stateMutex.RLock()
	state := s.latestState
	s.stateMutex.RUnlock()

	response := &models.MLatestData{
		Type:      "INITIAL",
		Timestamp: time.Now().Unix(),
	}
	if state != nil {
		response.Snapshot = state.Snapshot
	}

	// Use select to avoid blocking if client's send buffer is full
	select {
	case client.send <- response:
	default:
		// Client buffer full; the Hub loop prunes it on the next broadcast.
	}
}
