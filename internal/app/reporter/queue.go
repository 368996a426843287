package reporter

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	"ireport/internal/domain/incident"
)

// maxRetries — потолок попыток для одного элемента очереди. Достигший его
// элемент переносится в dead-letter и в проходе считается failed.
const maxRetries = 3

// ErrReplayInProgress возвращается, когда проход репликации уже выполняется
var ErrReplayInProgress = errors.New("репликация очереди уже выполняется")

// CloudAPI — операции облака, нужные очереди для репликации
type CloudAPI interface {
	UploadMedia(ctx context.Context, path string, data []byte, contentType string) (string, error)
	InsertIncident(ctx context.Context, req incident.CreateRequest) (*incident.Incident, error)
	FindNearestStation(ctx context.Context, lat, lon float64, agency incident.AgencyType) (*incident.Station, error)
	AssignStation(ctx context.Context, req incident.AssignStationRequest) error
}

// QueueStorage — durable-хранилище очереди
type QueueStorage interface {
	SaveSubmission(sub *QueuedSubmission) error
	ListSubmissions() ([]*QueuedSubmission, error)
	DeleteSubmission(id string) error
	IncrementRetry(id string, lastError string) error
	MoveToDeadLetter(sub *QueuedSubmission, reason string) error
	QueueCount() (int, error)
}

// ReplayResult — итог одного прохода репликации
type ReplayResult struct {
	Successful int
	Failed     int
}

// ReplayHooks — необязательные колбэки прогресса для UI-слоя
type ReplayHooks struct {
	OnProgress    func(current, total int)
	OnItemSuccess func(id string)
	OnItemError   func(id string, err error)
}

// OfflineQueue — офлайн-очередь подачи репортов. Enqueue никогда не ходит в
// сеть; ReplayAll обрабатывает элементы строго последовательно и защищен от
// параллельных вызовов.
type OfflineQueue struct {
	storage QueueStorage
	cloud   CloudAPI
	log     *slog.Logger

	mu        sync.Mutex
	replaying bool
}

func NewOfflineQueue(storage QueueStorage, cloud CloudAPI, log *slog.Logger) *OfflineQueue {
	return &OfflineQueue{
		storage: storage,
		cloud:   cloud,
		log:     log.With("component", "offline_queue"),
	}
}

// Enqueue сохраняет репорт в durable-очередь и сразу возвращается
func (q *OfflineQueue) Enqueue(sub *QueuedSubmission) error {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	if sub.Timestamp.IsZero() {
		sub.Timestamp = time.Now()
	}
	sub.RetryCount = 0

	if err := q.storage.SaveSubmission(sub); err != nil {
		return err
	}

	q.log.Info("Репорт поставлен в офлайн-очередь", "submission_id", sub.ID)
	return nil
}

// SubmitDirect отправляет репорт в облако, минуя очередь (онлайн-путь)
func (q *OfflineQueue) SubmitDirect(ctx context.Context, sub *QueuedSubmission) error {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	if sub.Timestamp.IsZero() {
		sub.Timestamp = time.Now()
	}
	return q.replayOne(ctx, sub)
}

// Count возвращает число элементов в очереди
func (q *OfflineQueue) Count() (int, error) {
	return q.storage.QueueCount()
}

// ReplayAll последовательно отправляет всю очередь в облако. Повторный вызов
// во время выполняющегося прохода возвращает ErrReplayInProgress: два
// параллельных прохода могли бы дважды загрузить медиа одного элемента.
func (q *OfflineQueue) ReplayAll(ctx context.Context, hooks ReplayHooks) (ReplayResult, error) {
	q.mu.Lock()
	if q.replaying {
		q.mu.Unlock()
		return ReplayResult{}, ErrReplayInProgress
	}
	q.replaying = true
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		q.replaying = false
		q.mu.Unlock()
	}()

	subs, err := q.storage.ListSubmissions()
	if err != nil {
		return ReplayResult{}, err
	}

	var result ReplayResult
	for i, sub := range subs {
		if hooks.OnProgress != nil {
			hooks.OnProgress(i+1, len(subs))
		}

		if sub.RetryCount >= maxRetries {
			q.log.Warn("Элемент исчерпал попытки, переносим в dead-letter",
				"submission_id", sub.ID, "retry_count", sub.RetryCount)
			if err := q.storage.MoveToDeadLetter(sub, sub.LastError); err != nil {
				q.log.Error("Не удалось перенести элемент в dead-letter", "error", err)
			}
			result.Failed++
			if hooks.OnItemError != nil {
				hooks.OnItemError(sub.ID, fmt.Errorf("превышен лимит попыток (%d)", maxRetries))
			}
			continue
		}

		if err := q.replayOne(ctx, sub); err != nil {
			q.log.Warn("Ошибка отправки репорта, элемент остается в очереди",
				"submission_id", sub.ID, "error", err)
			if serr := q.storage.IncrementRetry(sub.ID, err.Error()); serr != nil {
				q.log.Error("Не удалось обновить счетчик попыток", "error", serr)
			}
			result.Failed++
			if hooks.OnItemError != nil {
				hooks.OnItemError(sub.ID, err)
			}
			continue
		}

		// Элемент удаляется из очереди только после успешной вставки записи
		if err := q.storage.DeleteSubmission(sub.ID); err != nil {
			q.log.Error("Не удалось удалить отправленный элемент", "error", err)
		}
		result.Successful++
		if hooks.OnItemSuccess != nil {
			hooks.OnItemSuccess(sub.ID)
		}
	}

	q.log.Info("Проход репликации завершен",
		"successful", result.Successful, "failed", result.Failed)
	return result, nil
}

func (q *OfflineQueue) replayOne(ctx context.Context, sub *QueuedSubmission) error {
	// Медиа грузятся под префиксом элемента, чтобы осиротевшие блобы можно
	// было потом найти по отсутствующему инциденту
	mediaURLs := make([]string, 0, len(sub.MediaPaths))
	for _, path := range sub.MediaPaths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("ошибка чтения медиафайла %s: %w", path, err)
		}

		contentType := mime.TypeByExtension(filepath.Ext(path))
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		remotePath := fmt.Sprintf("incidents/%s/%s", sub.ID, filepath.Base(path))
		url, err := q.cloud.UploadMedia(ctx, remotePath, data, contentType)
		if err != nil {
			return fmt.Errorf("ошибка загрузки медиа %s: %w", path, err)
		}
		mediaURLs = append(mediaURLs, url)
	}

	inc, err := q.cloud.InsertIncident(ctx, incident.CreateRequest{
		AgencyType:      sub.AgencyType,
		ReporterID:      sub.ReporterID,
		ReporterName:    sub.ReporterName,
		ReporterAge:     sub.ReporterAge,
		Description:     sub.Description,
		Latitude:        sub.Latitude,
		Longitude:       sub.Longitude,
		LocationAddress: sub.LocationAddress,
		MediaURLs:       mediaURLs,
		CreatedAt:       sub.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("ошибка создания инцидента: %w", err)
	}

	// Best-effort: автоназначение ближайшей станции. Неудача не проваливает
	// элемент — инцидент уже создан.
	q.assignNearestStation(ctx, inc)

	return nil
}

func (q *OfflineQueue) assignNearestStation(ctx context.Context, inc *incident.Incident) {
	station, err := q.cloud.FindNearestStation(ctx, inc.Latitude, inc.Longitude, inc.AgencyType)
	if err != nil {
		q.log.Warn("Не удалось найти ближайшую станцию", "incident_id", inc.ID, "error", err)
		return
	}

	err = q.cloud.AssignStation(ctx, incident.AssignStationRequest{
		IncidentID: inc.ID,
		StationID:  station.ID,
	})
	if err != nil {
		q.log.Warn("Не удалось привязать станцию", "incident_id", inc.ID, "error", err)
		return
	}

	q.log.Info("Инцидент привязан к станции",
		"incident_id", inc.ID, "station", station.Name, "distance_km", station.DistanceKm)
}
