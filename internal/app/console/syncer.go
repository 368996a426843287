package console

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	"ireport/internal/domain/incident"
)

const (
	// pushBatchSize — сколько старейших элементов очереди пуша берет один проход
	pushBatchSize = 50
	// maxPushAttempts — потолок попыток для элемента очереди пуша
	maxPushAttempts = 5
)

// CloudSyncAPI — операции облака, нужные проходам синхронизации
type CloudSyncAPI interface {
	ListChanges(ctx context.Context, since time.Time) ([]incident.Incident, time.Time, error)
	GetIncidentUpdatedAt(ctx context.Context, id uuid.UUID) (time.Time, error)
	UpdateIncidentStatus(ctx context.Context, id uuid.UUID, req incident.StatusUpdateRequest) error
	AppendHistory(ctx context.Context, entry incident.StatusHistoryEntry) error
}

// MirrorStore — операции локального зеркала, нужные синхронизации
type MirrorStore interface {
	GetIncident(id uuid.UUID) (*incident.Incident, error)
	MergeCloudIncident(cloud *incident.Incident) (bool, error)
	MarkIncidentSynced(id uuid.UUID) error
	ListOutbound(limit int) ([]*OutboundChange, error)
	DeleteOutbound(id int64) error
	IncrementOutboundAttempts(id int64, lastError string) (int, error)
	MoveOutboundToDeadLetter(item *OutboundChange) error
	UnsyncedHistory() ([]*incident.StatusHistoryEntry, error)
	MarkHistorySynced(id int64) error
	Watermark() (time.Time, error)
	SetWatermark(t time.Time) error
	PendingCount() (int, error)
	DeadLetterCount() (int, error)
}

// Status — снимок состояния синхронизации для UI-слоя
type Status struct {
	Connected    bool      `json:"connected"`
	LastSync     time.Time `json:"last_sync"`
	PendingCount int       `json:"pending_count"`
	DeadLettered int       `json:"dead_lettered"`
	Syncing      bool      `json:"syncing"`
}

// SyncManager ведет проходы pull -> push -> reconcile-history. Один проход
// за раз: повторный триггер при выполняющемся проходе — no-op.
type SyncManager struct {
	cloud CloudSyncAPI
	store MirrorStore
	log   *slog.Logger

	interval time.Duration

	mu                sync.Mutex
	syncing           bool
	status            Status
	statusObservers   []func(Status)
	incidentObservers []func(incident.Incident)
}

func NewSyncManager(cloud CloudSyncAPI, store MirrorStore, interval time.Duration, log *slog.Logger) *SyncManager {
	return &SyncManager{
		cloud:    cloud,
		store:    store,
		log:      log.With("component", "sync_manager"),
		interval: interval,
	}
}

// OnStatusChange регистрирует наблюдателя статуса синхронизации; вызывается
// после каждого прохода и при смене состояния соединения
func (m *SyncManager) OnStatusChange(fn func(Status)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statusObservers = append(m.statusObservers, fn)
}

// OnIncidentUpdated регистрирует наблюдателя слияний отдельных записей
// (вызывается realtime-обработчиком)
func (m *SyncManager) OnIncidentUpdated(fn func(incident.Incident)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.incidentObservers = append(m.incidentObservers, fn)
}

// Status возвращает копию текущего статуса
func (m *SyncManager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Syncing сообщает, выполняется ли проход
func (m *SyncManager) Syncing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.syncing
}

// StartAutoSync гоняет проходы по таймеру до отмены контекста
func (m *SyncManager) StartAutoSync(ctx context.Context) {
	m.log.Info("Запуск автоматической синхронизации", "interval", m.interval)

	if err := m.SyncNow(ctx); err != nil {
		m.log.Error("Ошибка начальной синхронизации", "error", err)
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.log.Info("Автоматическая синхронизация остановлена")
			return
		case <-ticker.C:
			if err := m.SyncNow(ctx); err != nil {
				m.log.Error("Ошибка синхронизации", "error", err)
			}
		}
	}
}

// SyncNow выполняет один проход: pull, push, reconcile-history. Если проход
// уже идет, триггер игнорируется.
func (m *SyncManager) SyncNow(ctx context.Context) error {
	m.mu.Lock()
	if m.syncing {
		m.mu.Unlock()
		return nil
	}
	m.syncing = true
	m.status.Syncing = true
	m.mu.Unlock()
	m.notifyStatus()

	var passErr error

	if err := m.pullFromCloud(ctx); err != nil {
		m.log.Error("Ошибка pull-прохода", "error", err)
		passErr = err
	}
	if err := m.pushToCloud(ctx); err != nil {
		m.log.Error("Ошибка push-прохода", "error", err)
		if passErr == nil {
			passErr = err
		}
	}
	if err := m.reconcileHistory(ctx); err != nil {
		m.log.Error("Ошибка сверки истории", "error", err)
		if passErr == nil {
			passErr = err
		}
	}

	m.mu.Lock()
	m.syncing = false
	m.status.Syncing = false
	m.status.Connected = passErr == nil
	if passErr == nil {
		m.status.LastSync = time.Now()
	}
	if pending, err := m.store.PendingCount(); err == nil {
		m.status.PendingCount = pending
	}
	if dead, err := m.store.DeadLetterCount(); err == nil {
		m.status.DeadLettered = dead
	}
	m.mu.Unlock()
	m.notifyStatus()

	return passErr
}

// pullFromCloud забирает инциденты с updated_at >= watermark и сливает их в
// зеркало; watermark продвигается только после успешной обработки пачки
func (m *SyncManager) pullFromCloud(ctx context.Context) error {
	since, err := m.store.Watermark()
	if err != nil {
		return err
	}

	incidents, serverTime, err := m.cloud.ListChanges(ctx, since)
	if err != nil {
		return fmt.Errorf("ошибка выборки изменений: %w", err)
	}

	merged := 0
	for i := range incidents {
		ok, err := m.store.MergeCloudIncident(&incidents[i])
		if err != nil {
			return fmt.Errorf("ошибка слияния инцидента %s: %w", incidents[i].ID, err)
		}
		if ok {
			merged++
		}
	}

	// Серверное время защищает watermark от рассинхрона локальных часов
	next := serverTime
	if next.IsZero() {
		next = time.Now()
	}
	if err := m.store.SetWatermark(next); err != nil {
		return err
	}

	m.log.Debug("Pull завершен", "fetched", len(incidents), "merged", merged, "since", since)
	return nil
}

// pushToCloud отправляет до pushBatchSize старейших локальных правок.
// Конфликт (облачная метка строго новее локальной) разрешается в пользу
// облака: элемент снимается без пуша, следующий pull принесет облачную
// версию. Ошибки отдельных элементов не прерывают проход.
func (m *SyncManager) pushToCloud(ctx context.Context) error {
	items, err := m.store.ListOutbound(pushBatchSize)
	if err != nil {
		return err
	}

	for _, item := range items {
		if item.TableName != "incidents" || item.Action != "update" {
			m.log.Warn("Неизвестный элемент очереди пуша, снимаем",
				"table", item.TableName, "action", item.Action)
			if err := m.store.DeleteOutbound(item.ID); err != nil {
				m.log.Error("Не удалось снять элемент очереди", "error", err)
			}
			continue
		}

		if err := m.pushOne(ctx, item); err != nil {
			m.failOutbound(item, err)
		}
	}

	return nil
}

func (m *SyncManager) pushOne(ctx context.Context, item *OutboundChange) error {
	id, err := uuid.Parse(item.RecordID)
	if err != nil {
		// Нечитаемый id не станет читаемым при повторе
		m.log.Error("Нечитаемый record_id в очереди пуша", "record_id", item.RecordID)
		return m.store.DeleteOutbound(item.ID)
	}

	local, err := m.store.GetIncident(id)
	if err != nil {
		if errors.Is(err, incident.ErrNotFound) {
			return m.store.DeleteOutbound(item.ID)
		}
		return err
	}

	cloudUpdatedAt, err := m.cloud.GetIncidentUpdatedAt(ctx, id)
	if err != nil {
		return fmt.Errorf("ошибка чтения облачной версии: %w", err)
	}

	// Cloud wins: при строго более новой облачной метке правка снимается
	if cloudUpdatedAt.After(local.UpdatedAt) {
		m.log.Info("Конфликт: облачная версия новее, правка снята",
			"incident_id", id, "local", local.UpdatedAt, "cloud", cloudUpdatedAt)
		return m.store.DeleteOutbound(item.ID)
	}

	err = m.cloud.UpdateIncidentStatus(ctx, id, incident.StatusUpdateRequest{
		Status:    local.Status,
		UpdatedAt: local.UpdatedAt,
		UpdatedBy: local.UpdatedBy,
	})
	if err != nil {
		return fmt.Errorf("ошибка пуша правки: %w", err)
	}

	if err := m.store.DeleteOutbound(item.ID); err != nil {
		return err
	}
	return m.store.MarkIncidentSynced(id)
}

func (m *SyncManager) failOutbound(item *OutboundChange, cause error) {
	attempts, err := m.store.IncrementOutboundAttempts(item.ID, cause.Error())
	if err != nil {
		m.log.Error("Не удалось обновить счетчик попыток", "error", err)
		return
	}

	if attempts >= maxPushAttempts {
		item.Attempts = attempts
		item.LastError = cause.Error()
		m.log.Warn("Правка исчерпала попытки, переносим в dead-letter",
			"record_id", item.RecordID, "attempts", attempts)
		if err := m.store.MoveOutboundToDeadLetter(item); err != nil {
			m.log.Error("Не удалось перенести правку в dead-letter", "error", err)
		}
	}
}

// reconcileHistory пушит неотправленные записи истории по возрастанию
// changed_at. Потолка попыток нет: неудачные записи повторяются в следующем
// проходе.
func (m *SyncManager) reconcileHistory(ctx context.Context) error {
	entries, err := m.store.UnsyncedHistory()
	if err != nil {
		return err
	}

	var firstErr error
	for _, entry := range entries {
		if err := m.cloud.AppendHistory(ctx, *entry); err != nil {
			m.log.Warn("Не удалось отправить запись истории",
				"history_id", entry.ID, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if err := m.store.MarkHistorySynced(entry.ID); err != nil {
			m.log.Error("Не удалось пометить запись истории", "error", err)
		}
	}

	return firstErr
}

// SetConnected обновляет флаг соединения (используется realtime-подпиской)
func (m *SyncManager) SetConnected(connected bool) {
	m.mu.Lock()
	changed := m.status.Connected != connected
	m.status.Connected = connected
	m.mu.Unlock()
	if changed {
		m.notifyStatus()
	}
}

func (m *SyncManager) notifyStatus() {
	m.mu.Lock()
	status := m.status
	observers := make([]func(Status), len(m.statusObservers))
	copy(observers, m.statusObservers)
	m.mu.Unlock()

	for _, fn := range observers {
		fn(status)
	}
}

func (m *SyncManager) notifyIncident(inc incident.Incident) {
	m.mu.Lock()
	observers := make([]func(incident.Incident), len(m.incidentObservers))
	copy(observers, m.incidentObservers)
	m.mu.Unlock()

	for _, fn := range observers {
		fn(inc)
	}
}
