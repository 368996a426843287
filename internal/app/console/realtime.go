package console

import (
	"golang.org/x/exp/slog"

	"ireport/internal/domain/incident"
)

// RealtimeMergeHandler сливает события живой ленты в локальное зеркало.
// Работает независимо от проходов синхронизации: слияние идемпотентно и
// подчиняется тому же правилу разрешения конфликтов.
type RealtimeMergeHandler struct {
	store MirrorStore
	sync  *SyncManager
	log   *slog.Logger
}

func NewRealtimeMergeHandler(store MirrorStore, sync *SyncManager, log *slog.Logger) *RealtimeMergeHandler {
	return &RealtimeMergeHandler{
		store: store,
		sync:  sync,
		log:   log.With("component", "realtime"),
	}
}

// HandleEvent обрабатывает одно событие ленты
func (h *RealtimeMergeHandler) HandleEvent(ev incident.FeedEvent) {
	switch ev.Type {
	case incident.FeedInsert, incident.FeedUpdate:
	default:
		h.log.Debug("Неизвестный тип события ленты", "type", ev.Type)
		return
	}

	merged, err := h.store.MergeCloudIncident(&ev.Incident)
	if err != nil {
		h.log.Error("Ошибка слияния события ленты",
			"incident_id", ev.Incident.ID, "error", err)
		return
	}

	if merged {
		h.log.Debug("Событие ленты слито",
			"incident_id", ev.Incident.ID, "type", ev.Type)
		h.sync.notifyIncident(ev.Incident)
	}
}

// HandleStateChange передает состояние подписки в статус синхронизации
func (h *RealtimeMergeHandler) HandleStateChange(connected bool) {
	if connected {
		h.log.Info("Подписка на живую ленту установлена")
	} else {
		h.log.Warn("Подписка на живую ленту потеряна")
	}
	h.sync.SetConnected(connected)
}
