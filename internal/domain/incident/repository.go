package incident

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, inc *Incident) error
	Get(ctx context.Context, id uuid.UUID) (*Incident, error)
	ListChanges(ctx context.Context, since time.Time) ([]Incident, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status, updatedAt time.Time, updatedBy string) error
	AssignStation(ctx context.Context, incidentID uuid.UUID, stationID int64, updatedAt time.Time) error
}

type HistoryRepository interface {
	Append(ctx context.Context, entry *StatusHistoryEntry) (int64, error)
}

type StationRepository interface {
	Nearest(ctx context.Context, lat, lon float64, agency AgencyType) (*Station, error)
}
