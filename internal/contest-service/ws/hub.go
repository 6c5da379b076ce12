package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/radieske/pari-contest-platform/pkg/contracts/events"
)

// Hub gerencia as inscrições WebSocket por contest e repassa os eventos
type Hub struct {
	upgrader websocket.Upgrader
	log      *zap.Logger

	mu sync.RWMutex
	// contest id -> conexões inscritas
	subs map[uint32]map[*conn]struct{}
}

// conn serializa as escritas (gorilla aceita um writer por vez)
type conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *conn) write(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(2 * time.Second))
	return c.ws.WriteJSON(v)
}

func NewHub(log *zap.Logger, allowOrigin func(r *http.Request) bool) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{CheckOrigin: allowOrigin},
		log:      log,
		subs:     make(map[uint32]map[*conn]struct{}),
	}
}

// HandleWS atende um cliente até ele desconectar
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	c := &conn{ws: ws}
	defer func() {
		h.drop(c)
		_ = ws.Close()
	}()

	for {
		var msg ClientMsg
		if err := ws.ReadJSON(&msg); err != nil {
			return
		}
		switch msg.Type {
		case "subscribe":
			h.mu.Lock()
			if _, ok := h.subs[msg.ContestID]; !ok {
				h.subs[msg.ContestID] = make(map[*conn]struct{})
			}
			h.subs[msg.ContestID][c] = struct{}{}
			h.mu.Unlock()
			_ = c.write(map[string]any{"type": "subscribed", "contest_id": msg.ContestID})
		case "unsubscribe":
			h.mu.Lock()
			h.unsubscribe(c, msg.ContestID)
			h.mu.Unlock()
		case "ping":
			_ = c.write(map[string]string{"type": "pong"})
		}
	}
}

func (h *Hub) unsubscribe(c *conn, id uint32) {
	if m, ok := h.subs[id]; ok {
		delete(m, c)
		if len(m) == 0 {
			delete(h.subs, id)
		}
	}
}

func (h *Hub) drop(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id := range h.subs {
		h.unsubscribe(c, id)
	}
}

// Subscribers retorna quantas conexões acompanham um contest
func (h *Hub) Subscribers(contestID uint32) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[contestID])
}

// Broadcast envia e para as conexões inscritas no contest. Eventos sem
// contest não são repassados
func (h *Hub) Broadcast(e events.ContestEvent) {
	if !e.HasContest() {
		return
	}
	h.mu.RLock()
	conns := make([]*conn, 0, len(h.subs[e.ContestID]))
	for c := range h.subs[e.ContestID] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		if err := c.write(e); err != nil {
			h.log.Debug("ws write failed", zap.Uint32("contest_id", e.ContestID), zap.Error(err))
		}
	}
}

// Payload decodifica uma mensagem do Pub/Sub em evento de contest
func Payload(raw string) (events.ContestEvent, error) {
	var e events.ContestEvent
	err := json.Unmarshal([]byte(raw), &e)
	return e, err
}
