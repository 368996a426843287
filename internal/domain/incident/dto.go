package incident

import (
	"time"

	"github.com/google/uuid"
)

// CreateRequest — полезная нагрузка создания инцидента. Временные метки
// created_at клиентская (момент подачи репорта), updated_at назначает сервер.
type CreateRequest struct {
	AgencyType      AgencyType `json:"agency_type"`
	ReporterID      string     `json:"reporter_id,omitempty"`
	ReporterName    string     `json:"reporter_name,omitempty"`
	ReporterAge     int        `json:"reporter_age,omitempty"`
	Description     string     `json:"description"`
	Latitude        float64    `json:"latitude"`
	Longitude       float64    `json:"longitude"`
	LocationAddress string     `json:"location_address,omitempty"`
	MediaURLs       []string   `json:"media_urls"`
	CreatedAt       time.Time  `json:"created_at"`
}

// StatusUpdateRequest — пуш локальной правки статуса в облако
type StatusUpdateRequest struct {
	Status    Status    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
	UpdatedBy string    `json:"updated_by"`
}

// ChangesResponse — страница инкрементальной выборки updated_at >= since,
// отсортированная по возрастанию updated_at
type ChangesResponse struct {
	Incidents  []Incident `json:"incidents"`
	ServerTime time.Time  `json:"server_time"`
}

// FeedEventType — тип события live-ленты
type FeedEventType string

const (
	FeedInsert FeedEventType = "insert"
	FeedUpdate FeedEventType = "update"
)

// FeedEvent — событие live-ленты изменений облака
type FeedEvent struct {
	Type     FeedEventType `json:"type"`
	Incident Incident      `json:"incident"`
}

// AssignStationRequest — best-effort привязка инцидента к ближайшей станции
type AssignStationRequest struct {
	IncidentID uuid.UUID `json:"incident_id"`
	StationID  int64     `json:"station_id"`
}
