package cloud

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/exp/slog"

	"ireport/internal/domain/incident"
)

const reconnectDelay = 5 * time.Second

// Feed — websocket-подписка на live-ленту изменений облака. Переподключение
// при обрыве — обязанность этого транспорта; потребитель только получает
// события и смену состояния соединения.
type Feed struct {
	client  *Client
	log     *slog.Logger
	mu      sync.RWMutex
	onState func(connected bool)
}

func NewFeed(client *Client, log *slog.Logger) *Feed {
	return &Feed{
		client: client,
		log:    log.With("component", "cloud_feed"),
	}
}

// OnStateChange регистрирует колбэк смены состояния соединения
func (f *Feed) OnStateChange(fn func(connected bool)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onState = fn
}

// Run держит подписку до отмены контекста, вызывая handler на каждое событие.
// Обрыв соединения приводит к смене состояния и повторному подключению.
func (f *Feed) Run(ctx context.Context, handler func(incident.FeedEvent)) {
	wsURL := strings.Replace(f.client.BaseURL(), "http", "ws", 1) + "/api/v1/feed"

	for {
		if ctx.Err() != nil {
			return
		}

		if err := f.subscribe(ctx, wsURL, handler); err != nil {
			f.log.Warn("Подписка на ленту оборвана", "error", err)
		}
		f.setConnected(false)

		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

func (f *Feed) subscribe(ctx context.Context, wsURL string, handler func(incident.FeedEvent)) error {
	header := http.Header{}
	if token := f.client.Token(); token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return err
	}
	if resp != nil {
		defer resp.Body.Close()
	}
	defer conn.Close()

	f.log.Info("Подписка на ленту изменений установлена")
	f.setConnected(true)

	// Чтение блокирует, поэтому закрываем соединение по отмене контекста
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		var event incident.FeedEvent
		if err := json.Unmarshal(data, &event); err != nil {
			f.log.Warn("Нечитаемое событие ленты", "error", err)
			continue
		}

		handler(event)
	}
}

func (f *Feed) setConnected(connected bool) {
	f.mu.RLock()
	fn := f.onState
	f.mu.RUnlock()
	if fn != nil {
		fn(connected)
	}
}
