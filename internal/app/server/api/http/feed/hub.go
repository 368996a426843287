package feed

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/exp/slog"

	"ireport/internal/app/server/api/http/middleware/auth"
	"ireport/internal/domain/incident"
	"ireport/internal/domain/staff"
)

const writeTimeout = 10 * time.Second

// Hub раздает события вставок и правок инцидентов подписанным консолям.
// Реализует incident.Notifier: сервис публикует событие после каждой
// успешной записи в базу.
type Hub struct {
	sessions staff.Sessioner
	log      *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}

	// гарантирует не более одного писателя на соединение
	writeMu sync.Mutex
}

func NewHub(sessions staff.Sessioner, log *slog.Logger) *Hub {
	return &Hub{
		sessions: sessions,
		log:      log.With("component", "feed_hub"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]struct{}),
	}
}

// ServeHTTP апгрейдит соединение после проверки сессии. Токен берется из
// заголовка Authorization или из query-параметра token.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token, ok := auth.BearerToken(r.Header.Get("Authorization"))
	if !ok {
		token = r.URL.Query().Get("token")
	}
	if token == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	staffID, err := h.sessions.ValidateSession(r.Context(), token)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()
	h.log.Info("feed subscriber connected", "staff_id", staffID, "subscribers", h.subscribers())

	// Читаем до разрыва, входящие сообщения игнорируются
	go h.readLoop(conn)
}

func (h *Hub) readLoop(conn *websocket.Conn) {
	defer h.drop(conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Publish рассылает событие всем подписчикам; клиент с ошибкой записи
// отключается
func (h *Hub) Publish(ev incident.FeedEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		h.log.Error("failed to marshal feed event", "error", err)
		return
	}

	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	for _, conn := range conns {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.log.Warn("feed write failed, dropping subscriber", "error", err)
			h.drop(conn)
		}
	}
}

func (h *Hub) subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	_, present := h.clients[conn]
	delete(h.clients, conn)
	h.mu.Unlock()
	if present {
		conn.Close()
	}
}
