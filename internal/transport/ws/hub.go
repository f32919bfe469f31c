package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"imageset-go/internal/domain/eventbus"
	"imageset-go/internal/platform/logging"
)

const writeTimeout = 5 * time.Second

// ReloadMessage is pushed to connected dev-server clients whenever a
// derivative run completes, so pages can refresh their image sets.
type ReloadMessage struct {
	Event      string `json:"event"`
	SourcePath string `json:"source_path"`
	Artifacts  int    `json:"artifacts"`
	CacheHit   bool   `json:"cache_hit"`
}

// Hub tracks live-reload websocket clients and broadcasts build events
// to them.
type Hub struct {
	logger   *logging.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[string]*websocket.Conn

	subscribeOnce sync.Once
}

// NewHub builds a fresh reload hub.
func NewHub(logger *logging.Logger) *Hub {
	return &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[string]*websocket.Conn),
	}
}

// Register wires the reload endpoint onto the engine and subscribes the
// hub to invocation events.
func (h *Hub) Register(engine *gin.Engine) error {
	engine.GET("/reload", h.handleConnect)

	var err error
	h.subscribeOnce.Do(func() {
		err = eventbus.GetAsync().Subscribe(eventbus.EventInvocationCompleted, h.onInvocationCompleted)
	})
	return err
}

func (h *Hub) handleConnect(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("reload websocket upgrade failed: %v", err)
		return
	}

	id := uuid.NewString()
	h.mu.Lock()
	h.clients[id] = conn
	h.mu.Unlock()
	h.logger.Debug("reload client connected: %s", id)

	// Drain the read side so pings and close frames are processed.
	go func() {
		defer h.drop(id)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) onInvocationCompleted(event eventbus.InvocationEvent) {
	h.Broadcast(ReloadMessage{
		Event:      "reload",
		SourcePath: event.SourcePath,
		Artifacts:  event.Artifacts,
		CacheHit:   event.CacheHit,
	})
}

// Broadcast sends the message to every connected client, dropping the
// ones whose write fails.
func (h *Hub) Broadcast(msg ReloadMessage) {
	h.mu.Lock()
	conns := make(map[string]*websocket.Conn, len(h.clients))
	for id, conn := range h.clients {
		conns[id] = conn
	}
	h.mu.Unlock()

	for id, conn := range conns {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteJSON(msg); err != nil {
			h.logger.Debug("reload client %s dropped: %v", id, err)
			h.drop(id)
		}
	}
}

func (h *Hub) drop(id string) {
	h.mu.Lock()
	conn, ok := h.clients[id]
	if ok {
		delete(h.clients, id)
	}
	h.mu.Unlock()
	if ok {
		conn.Close()
	}
}

// CloseAll terminates every client connection.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, conn := range h.clients {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"),
			time.Now().Add(writeTimeout))
		conn.Close()
		delete(h.clients, id)
	}
}

// Count reports the number of connected reload clients.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
