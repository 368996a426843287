package reporter

import (
	"context"
	"time"

	"golang.org/x/exp/slog"
)

// HealthChecker — минимальный контракт для проверки доступности облака
type HealthChecker interface {
	Health(ctx context.Context) error
}

// ConnectivityWatcher опрашивает облако и сообщает о переходах
// offline -> online. Это только триггер: успешный опрос не гарантирует,
// что последующая отправка не упадет.
type ConnectivityWatcher struct {
	checker  HealthChecker
	log      *slog.Logger
	interval time.Duration
	onOnline func()
	online   bool
}

func NewConnectivityWatcher(checker HealthChecker, interval time.Duration, log *slog.Logger) *ConnectivityWatcher {
	return &ConnectivityWatcher{
		checker:  checker,
		log:      log.With("component", "connectivity"),
		interval: interval,
	}
}

// OnOnline регистрирует колбэк перехода offline -> online
func (w *ConnectivityWatcher) OnOnline(fn func()) {
	w.onOnline = fn
}

// Run опрашивает облако до отмены контекста
func (w *ConnectivityWatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.check(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.check(ctx)
		}
	}
}

func (w *ConnectivityWatcher) check(ctx context.Context) {
	err := w.checker.Health(ctx)
	nowOnline := err == nil

	if nowOnline && !w.online {
		w.log.Info("Соединение с облаком восстановлено")
		if w.onOnline != nil {
			w.onOnline()
		}
	}
	if !nowOnline && w.online {
		w.log.Warn("Соединение с облаком потеряно", "error", err)
	}

	w.online = nowOnline
}
