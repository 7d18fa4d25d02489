package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"cabinbook/internal/events"
	"cabinbook/internal/pkg/logger"
)

const (
	MessageResourceChanged = "resource.changed"

	sendBuffer = 16
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

// Message is what subscribers receive when a resource's availability changes.
type Message struct {
	Type               string      `json:"type"`
	Event              events.Type `json:"event"`
	ContainerID        int64       `json:"container_id"`
	ResourceID         int64       `json:"resource_id"`
	PreviousResourceID int64       `json:"previous_resource_id,omitempty"`
	ReservationID      int64       `json:"reservation_id"`
	StartDate          time.Time   `json:"start_date"`
	EndDate            time.Time   `json:"end_date"`
}

// Subscriber is one websocket connection listening to a container.
type Subscriber struct {
	containerID int64
	conn        *websocket.Conn
	send        chan []byte
	once        sync.Once
}

func (c *Subscriber) close() {
	c.once.Do(func() { close(c.send) })
}

// Hub fans reservation events out to websocket subscribers of a container.
// It implements events.Publisher.
type Hub struct {
	subscribers map[int64]map[*Subscriber]struct{}
	mutex       sync.RWMutex
	log         *logger.Logger
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		subscribers: make(map[int64]map[*Subscriber]struct{}),
		log:         log,
	}
}

// Register subscribes conn to containerID and starts its writer.
func (h *Hub) Register(containerID int64, conn *websocket.Conn) *Subscriber {
	c := &Subscriber{containerID: containerID, conn: conn, send: make(chan []byte, sendBuffer)}

	h.mutex.Lock()
	if h.subscribers[containerID] == nil {
		h.subscribers[containerID] = make(map[*Subscriber]struct{})
	}
	h.subscribers[containerID][c] = struct{}{}
	h.mutex.Unlock()

	go h.writeLoop(c)
	return c
}

func (h *Hub) Unregister(c *Subscriber) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if subs, ok := h.subscribers[c.containerID]; ok {
		if _, ok := subs[c]; ok {
			delete(subs, c)
			c.close()
		}
		if len(subs) == 0 {
			delete(h.subscribers, c.containerID)
		}
	}
}

// writeLoop is the only goroutine writing to the connection.
func (h *Hub) writeLoop(c *Subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Publish broadcasts e to the subscribers of its container. Slow subscribers
// whose buffer is full are dropped.
func (h *Hub) Publish(_ context.Context, e events.Event) error {
	payload, err := json.Marshal(Message{
		Type:               MessageResourceChanged,
		Event:              e.Type,
		ContainerID:        e.ContainerID,
		ResourceID:         e.ResourceID,
		PreviousResourceID: e.PreviousResourceID,
		ReservationID:      e.ReservationID,
		StartDate:          e.StartDate,
		EndDate:            e.EndDate,
	})
	if err != nil {
		return err
	}

	var slow []*Subscriber
	h.mutex.RLock()
	for c := range h.subscribers[e.ContainerID] {
		select {
		case c.send <- payload:
		default:
			slow = append(slow, c)
		}
	}
	h.mutex.RUnlock()

	for _, c := range slow {
		h.log.Warn("dropping slow websocket subscriber", "container_id", c.containerID)
		h.Unregister(c)
	}
	return nil
}

func (h *Hub) Subscribers(containerID int64) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.subscribers[containerID])
}

func (h *Hub) Close() error {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for id, subs := range h.subscribers {
		for c := range subs {
			c.close()
		}
		delete(h.subscribers, id)
	}
	return nil
}
