package websocket

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"ppemonitor/internal/logger"
)

// writeWait bounds a single delivery. Broadcast returns within about writeWait
// however many clients have stopped reading.
const writeWait = 250 * time.Millisecond

// Conn is the part of *websocket.Conn the hub needs.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type deadliner interface {
	SetWriteDeadline(t time.Time) error
}

// client serialises writes to one connection; gorilla allows a single concurrent writer.
type client struct {
	conn Conn
	mu   sync.Mutex
}

func (c *client) send(message []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if d, ok := c.conn.(deadliner); ok {
		if err := d.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			return fmt.Errorf("set write deadline: %w", err)
		}
	}
	return c.conn.WriteMessage(websocket.TextMessage, message)
}

// HubService keeps the set of live viewer connections and fans text
// messages out to them. The most recent message is kept for late joiners.
type HubService struct {
	clients     map[Conn]*client
	lastMessage string
	hasLast     bool
	mutex       sync.RWMutex
	logger      *logger.Logger
}

func NewHubService(logger *logger.Logger) *HubService {
	return &HubService{
		clients: make(map[Conn]*client),
		logger:  logger,
	}
}

// Register adds a connection. Registering the same connection twice is a no-op.
func (h *HubService) Register(conn Conn) {
	h.mutex.Lock()
	if _, ok := h.clients[conn]; !ok {
		h.clients[conn] = &client{conn: conn}
	}
	total := len(h.clients)
	h.mutex.Unlock()

	h.logger.Info("Client connected. Total: %d", total)
}

// Unregister removes and closes a connection. Unknown connections are ignored.
func (h *HubService) Unregister(conn Conn) {
	h.mutex.Lock()
	_, ok := h.clients[conn]
	if ok {
		delete(h.clients, conn)
	}
	total := len(h.clients)
	h.mutex.Unlock()

	if !ok {
		return
	}
	conn.Close()
	h.logger.Info("Client disconnected. Total: %d", total)
}

// Broadcast stores message as the last message and delivers it to every
// registered connection. A failed delivery is logged and skipped; the
// connection stays registered until its handler sees the disconnect.
func (h *HubService) Broadcast(message string) {
	h.mutex.Lock()
	h.lastMessage = message
	h.hasLast = true
	targets := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		targets = append(targets, c)
	}
	h.mutex.Unlock()

	if len(targets) == 0 {
		h.logger.Info("No active connections to send message %q to", message)
		return
	}

	payload := []byte(message)
	var wg sync.WaitGroup
	for _, c := range targets {
		wg.Add(1)
		go func(c *client) {
			defer wg.Done()
			if err := c.send(payload); err != nil {
				h.logger.Error("Error sending message: %v", err)
			}
		}(c)
	}
	wg.Wait()
}

// SendTo delivers message to a single connection, sharing the registered
// connection's write lock when there is one.
func (h *HubService) SendTo(conn Conn, message string) error {
	h.mutex.RLock()
	c, ok := h.clients[conn]
	h.mutex.RUnlock()

	if !ok {
		c = &client{conn: conn}
	}
	return c.send([]byte(message))
}

// LastMessage returns the most recent broadcast payload, if any.
func (h *HubService) LastMessage() (string, bool) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.lastMessage, h.hasLast
}

func (h *HubService) GetClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}
