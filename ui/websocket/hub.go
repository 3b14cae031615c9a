package websocket

import (
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	domainTopic "github.com/AzielCF/az-chat/domains/topic"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

var (
	ErrConnectionNotFound = errors.New("connection not found")
	ErrConnectionClosed   = errors.New("connection closed")
	ErrSlowConsumer       = errors.New("outbound queue full, connection dropped")
)

const writeTimeout = 10 * time.Second

// wsConn is the part of *websocket.Conn the hub writes through.
type wsConn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

type HubStats struct {
	Connections   int   `json:"connections"`
	Delivered     int64 `json:"delivered"`
	SlowConsumers int64 `json:"slowConsumers"`
	WriteErrors   int64 `json:"writeErrors"`
}

// Hub owns the live connections and implements topic.Deliverer. Each
// connection has a bounded outbound queue drained by its own writer; a
// delivery that finds the queue full drops the connection instead of waiting.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client

	buffer       int
	pingInterval time.Duration

	delivered     int64
	slowConsumers int64
	writeErrors   int64
}

type client struct {
	id         string
	conn       wsConn
	send       chan []byte
	done       chan struct{}
	writerDone chan struct{}
	closeOnce  sync.Once
}

func NewHub(buffer int, pingInterval time.Duration) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	return &Hub{
		clients:      make(map[string]*client),
		buffer:       buffer,
		pingInterval: pingInterval,
	}
}

func (h *Hub) Register(id string, conn wsConn) {
	c := &client{
		id:         id,
		conn:       conn,
		send:       make(chan []byte, h.buffer),
		done:       make(chan struct{}),
		writerDone: make(chan struct{}),
	}

	h.mu.Lock()
	h.clients[id] = c
	h.mu.Unlock()

	go h.writePump(c)
	logrus.Debugf("[WS] Connection %s registered", id)
}

// Unregister closes the connection and waits for its writer, so the socket
// is never written after the handler returns.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	c, ok := h.clients[id]
	delete(h.clients, id)
	h.mu.Unlock()

	if !ok {
		return
	}
	c.shutdown()
	<-c.writerDone
	logrus.Debugf("[WS] Connection %s unregistered", id)
}

func (h *Hub) Deliver(connectionID string, evt domainTopic.Event) error {
	h.mu.RLock()
	c, ok := h.clients[connectionID]
	h.mu.RUnlock()
	if !ok {
		return ErrConnectionNotFound
	}

	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	select {
	case <-c.done:
		return ErrConnectionClosed
	default:
	}

	select {
	case c.send <- data:
		atomic.AddInt64(&h.delivered, 1)
		return nil
	default:
		atomic.AddInt64(&h.slowConsumers, 1)
		logrus.Warnf("[WS] Connection %s outbound queue full, dropping it", connectionID)
		c.shutdown()
		return ErrSlowConsumer
	}
}

func (h *Hub) writePump(c *client) {
	defer close(c.writerDone)

	var ping <-chan time.Time
	if h.pingInterval > 0 {
		ticker := time.NewTicker(h.pingInterval)
		defer ticker.Stop()
		ping = ticker.C
	}

	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			if err := h.write(c, websocket.TextMessage, data); err != nil {
				return
			}
		case <-ping:
			if err := h.write(c, websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) write(c *client, messageType int, data []byte) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.conn.WriteMessage(messageType, data); err != nil {
		atomic.AddInt64(&h.writeErrors, 1)
		logrus.Debugf("[WS] Write to %s failed: %v", c.id, err)
		c.shutdown()
		return err
	}
	return nil
}

// CloseAll drops every connection; used at shutdown.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.shutdown()
	}
	if len(clients) > 0 {
		logrus.Infof("[WS] Closed %d connections", len(clients))
	}
}

func (h *Hub) Stats() HubStats {
	h.mu.RLock()
	n := len(h.clients)
	h.mu.RUnlock()

	return HubStats{
		Connections:   n,
		Delivered:     atomic.LoadInt64(&h.delivered),
		SlowConsumers: atomic.LoadInt64(&h.slowConsumers),
		WriteErrors:   atomic.LoadInt64(&h.writeErrors),
	}
}

func (c *client) shutdown() {
	c.closeOnce.Do(func() {
		close(c.done)
		// Close is safe alongside a pending write; WriteMessage is not
		_ = c.conn.Close()
	})
}
