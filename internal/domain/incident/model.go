package incident

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// AgencyType — агентство, которому адресован репорт
type AgencyType string

const (
	AgencyPNP    AgencyType = "pnp"    // полиция
	AgencyBFP    AgencyType = "bfp"    // пожарная служба
	AgencyPDRRMO AgencyType = "pdrrmo" // служба ЧС
)

// Status — статус обработки инцидента
type Status string

const (
	StatusPending    Status = "pending"
	StatusAssigned   Status = "assigned"
	StatusResponding Status = "responding"
	StatusResolved   Status = "resolved"
	StatusDismissed  Status = "dismissed"
)

var (
	ErrNotFound      = errors.New("incident not found")
	ErrInvalidAgency = errors.New("unknown agency type")
	ErrInvalidStatus = errors.New("unknown incident status")
)

// Incident — запись об инциденте.
//
// Поля identity/происхождения неизменяемы после создания; мутируют только
// Status, UpdatedAt и UpdatedBy. CloudUpdatedAt и Synced существуют только
// в локальном зеркале консоли: CloudUpdatedAt — значение облачного
// updated_at на момент последнего успешного слияния (никогда не
// откатывается назад), Synced — "локальная копия не содержит правок, еще
// не отраженных в облаке".
type Incident struct {
	ID              uuid.UUID  `json:"id"`
	AgencyType      AgencyType `json:"agency_type"`
	ReporterID      string     `json:"reporter_id,omitempty"`
	ReporterName    string     `json:"reporter_name,omitempty"`
	ReporterAge     int        `json:"reporter_age,omitempty"`
	Description     string     `json:"description"`
	Status          Status     `json:"status"`
	Latitude        float64    `json:"latitude"`
	Longitude       float64    `json:"longitude"`
	LocationAddress string     `json:"location_address,omitempty"`
	MediaURLs       []string   `json:"media_urls"`
	StationID       *int64     `json:"station_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	UpdatedBy       string     `json:"updated_by,omitempty"`

	// Только в локальном зеркале, в облако не сериализуются.
	CloudUpdatedAt time.Time `json:"-"`
	Synced         bool      `json:"-"`
}

// StatusHistoryEntry — append-only факт смены статуса. После создания не
// изменяется никогда, кроме флага Synced.
type StatusHistoryEntry struct {
	ID         int64     `json:"id,omitempty"`
	IncidentID uuid.UUID `json:"incident_id"`
	Status     Status    `json:"status"`
	Notes      string    `json:"notes,omitempty"`
	ChangedBy  string    `json:"changed_by"`
	ChangedAt  time.Time `json:"changed_at"`
	Synced     bool      `json:"-"`
}

// Station — станция агентства для автоназначения ближайшего респондера
type Station struct {
	ID         int64      `json:"id"`
	Name       string     `json:"name"`
	AgencyType AgencyType `json:"agency_type"`
	Latitude   float64    `json:"latitude"`
	Longitude  float64    `json:"longitude"`
	DistanceKm float64    `json:"distance_km,omitempty"`
}

// ParseAgency валидирует строковый тип агентства
func ParseAgency(s string) (AgencyType, error) {
	switch AgencyType(s) {
	case AgencyPNP, AgencyBFP, AgencyPDRRMO:
		return AgencyType(s), nil
	}
	return "", ErrInvalidAgency
}

// ParseStatus валидирует строковый статус
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusAssigned, StatusResponding, StatusResolved, StatusDismissed:
		return Status(s), nil
	}
	return "", ErrInvalidStatus
}

// CloudWins — единое правило слияния для pull-прохода и realtime-обработчика.
// Облачная версия записывается в зеркало, если локальной копии нет, локальная
// копия полностью синхронизирована, либо облачный updated_at строго новее.
// При равных метках несинхронизированная локальная правка сохраняется.
func CloudWins(local *Incident, cloudUpdatedAt time.Time) bool {
	if local == nil {
		return true
	}
	if local.Synced {
		return true
	}
	return cloudUpdatedAt.After(local.UpdatedAt)
}
