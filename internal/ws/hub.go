package ws

import (
	"encoding/json"
	"sync"
	"time"

	"go-productguard/internal/scope"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Message is the envelope every dashboard client receives.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
	SentAt  time.Time   `json:"sent_at"`
}

// Conn is the part of *websocket.Conn the hub uses.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type subscriber struct {
	conn  Conn
	scope scope.Scope
}

type event struct {
	companyID uuid.UUID
	data      []byte
}

// Hub delivers queue events to dashboard sessions. Each connection carries
// the scope of the user that opened it and only receives events of
// companies that scope allows.
type Hub struct {
	Clients    map[Conn]scope.Scope
	Register   chan subscriber
	Unregister chan Conn
	Broadcast  chan event
	mutex      sync.Mutex
	log        *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		Clients:    make(map[Conn]scope.Scope),
		Register:   make(chan subscriber),
		Unregister: make(chan Conn),
		Broadcast:  make(chan event),
		log:        log,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case sub := <-h.Register:
			h.mutex.Lock()
			h.Clients[sub.conn] = sub.scope
			h.mutex.Unlock()
			h.log.Debug("ws client connected",
				zap.String("actor", sub.scope.ActorID()),
				zap.Int("clients", h.ClientCount()),
			)

		case conn := <-h.Unregister:
			h.mutex.Lock()
			if _, ok := h.Clients[conn]; ok {
				delete(h.Clients, conn)
				conn.Close()
			}
			h.mutex.Unlock()

		case ev := <-h.Broadcast:
			h.mutex.Lock()
			for conn, sc := range h.Clients {
				if !scope.Allows(sc, ev.companyID) {
					continue
				}
				if err := conn.WriteMessage(websocket.TextMessage, ev.data); err != nil {
					conn.Close()
					delete(h.Clients, conn)
				}
			}
			h.mutex.Unlock()
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.Clients)
}

// Publish queues an event of companyID without blocking the caller.
func (h *Hub) Publish(name string, companyID uuid.UUID, payload interface{}) {
	msg, err := json.Marshal(Message{Type: name, Payload: payload, SentAt: time.Now().UTC()})
	if err != nil {
		h.log.Error("ws marshal failed", zap.String("event", name), zap.Error(err))
		return
	}
	go func() {
		h.Broadcast <- event{companyID: companyID, data: msg}
	}()
}

// Serve registers conn under sc and blocks until the client goes away.
func (h *Hub) Serve(conn Conn, sc scope.Scope) {
	h.Register <- subscriber{conn: conn, scope: sc}
	defer func() {
		h.Unregister <- conn
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
