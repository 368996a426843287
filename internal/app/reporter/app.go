package reporter

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/exp/slog"

	"ireport/internal/app/cloud"
	"ireport/internal/app/reporter/config"
)

// App — приложение клиента-репортера: durable-очередь, облачный клиент и
// наблюдатель связности
type App struct {
	config  *config.Config
	log     *slog.Logger
	storage *SQLiteStorage
	cloud   *cloud.Client
	queue   *OfflineQueue
	watcher *ConnectivityWatcher
}

func New(cfg *config.Config, log *slog.Logger) (*App, error) {
	cloudClient := cloud.NewClient(cfg.ServerAddress, cfg.EnableTLS, log)

	storage, err := NewSQLiteStorage(cfg.DataPath)
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации локального хранилища: %w", err)
	}

	app := &App{
		config:  cfg,
		log:     log,
		storage: storage,
		cloud:   cloudClient,
		queue:   NewOfflineQueue(storage, cloudClient, log),
	}

	app.watcher = NewConnectivityWatcher(cloudClient,
		time.Duration(cfg.ConnectivityInterval)*time.Second, log)

	return app, nil
}

// Queue возвращает офлайн-очередь
func (a *App) Queue() *OfflineQueue {
	return a.queue
}

// Storage возвращает локальное хранилище
func (a *App) Storage() *SQLiteStorage {
	return a.storage
}

// Submit подает репорт: при живой сети — прямой путь в облако, иначе (или
// при любой ошибке отправки) репорт уходит в офлайн-очередь. Вызывающий
// никогда не получает ошибку сети — худший исход это "поставлено в очередь".
func (a *App) Submit(ctx context.Context, sub *QueuedSubmission) (queued bool, err error) {
	if err := a.cloud.Health(ctx); err == nil {
		if err := a.queue.SubmitDirect(ctx, sub); err == nil {
			a.log.Info("Репорт отправлен напрямую", "submission_id", sub.ID)
			return false, nil
		}
		a.log.Warn("Прямая отправка не удалась, ставим в очередь", "submission_id", sub.ID)
	}

	if err := a.queue.Enqueue(sub); err != nil {
		return false, err
	}
	return true, nil
}

// StartBackground запускает наблюдатель связности; переход offline -> online
// и непустая очередь на старте запускают проход репликации
func (a *App) StartBackground(ctx context.Context) {
	a.watcher.OnOnline(func() {
		a.replayIfPending(ctx)
	})

	if count, err := a.queue.Count(); err == nil && count > 0 {
		a.log.Info("В очереди есть неотправленные репорты", "count", count)
		go a.replayIfPending(ctx)
	}

	go a.watcher.Run(ctx)
}

func (a *App) replayIfPending(ctx context.Context) {
	count, err := a.queue.Count()
	if err != nil || count == 0 {
		return
	}

	result, err := a.queue.ReplayAll(ctx, ReplayHooks{})
	if err != nil {
		if err != ErrReplayInProgress {
			a.log.Error("Ошибка репликации очереди", "error", err)
		}
		return
	}
	a.log.Info("Очередь реплицирована", "successful", result.Successful, "failed", result.Failed)
}

func (a *App) Close() error {
	return a.storage.Close()
}
