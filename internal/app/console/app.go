package console

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/exp/slog"

	"ireport/internal/app/cloud"
	"ireport/internal/app/console/config"
)

// App — приложение консоли оперативной службы: локальное зеркало, менеджер
// синхронизации и подписка на живую ленту
type App struct {
	config   *config.Config
	log      *slog.Logger
	storage  *SQLiteStorage
	cloud    *cloud.Client
	sync     *SyncManager
	realtime *RealtimeMergeHandler
	feed     *cloud.Feed
}

func New(cfg *config.Config, log *slog.Logger) (*App, error) {
	cloudClient := cloud.NewClient(cfg.ServerAddress, cfg.EnableTLS, log)

	storage, err := NewSQLiteStorage(cfg.DataPath)
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации локального зеркала: %w", err)
	}

	syncManager := NewSyncManager(cloudClient, storage,
		time.Duration(cfg.SyncInterval)*time.Second, log)

	app := &App{
		config:   cfg,
		log:      log,
		storage:  storage,
		cloud:    cloudClient,
		sync:     syncManager,
		realtime: NewRealtimeMergeHandler(storage, syncManager, log),
		feed:     cloud.NewFeed(cloudClient, log),
	}

	if token, err := app.loadToken(); err == nil {
		cloudClient.SetToken(token)
	}

	return app, nil
}

// Storage возвращает локальное зеркало
func (a *App) Storage() *SQLiteStorage {
	return a.storage
}

// Sync возвращает менеджер синхронизации
func (a *App) Sync() *SyncManager {
	return a.sync
}

// Cloud возвращает облачный клиент
func (a *App) Cloud() *cloud.Client {
	return a.cloud
}

// Login выполняет вход и сохраняет токен сессии на диск
func (a *App) Login(ctx context.Context, email, password string) error {
	token, err := a.cloud.Login(ctx, email, password)
	if err != nil {
		return err
	}
	a.cloud.SetToken(token)
	return a.saveToken(token)
}

// Authenticated сообщает, есть ли сохраненная сессия
func (a *App) Authenticated() bool {
	return a.cloud.Token() != ""
}

// StartBackground запускает автоматическую синхронизацию и подписку на
// живую ленту; обе работают до отмены контекста
func (a *App) StartBackground(ctx context.Context) {
	a.feed.OnStateChange(a.realtime.HandleStateChange)
	go a.feed.Run(ctx, a.realtime.HandleEvent)
	go a.sync.StartAutoSync(ctx)
}

func (a *App) loadToken() (string, error) {
	data, err := os.ReadFile(a.config.TokenPath)
	if err != nil {
		return "", err
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", fmt.Errorf("файл токена пуст")
	}
	return token, nil
}

func (a *App) saveToken(token string) error {
	if err := os.WriteFile(a.config.TokenPath, []byte(token), 0600); err != nil {
		return fmt.Errorf("ошибка сохранения токена: %w", err)
	}
	return nil
}

func (a *App) Close() error {
	return a.storage.Close()
}
