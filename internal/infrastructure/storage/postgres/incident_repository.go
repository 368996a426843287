package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/exp/slog"

	"ireport/internal/domain/incident"
)

type IncidentRepository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewIncidentRepository(pool *pgxpool.Pool, log *slog.Logger) *IncidentRepository {
	return &IncidentRepository{
		pool: pool,
		log:  log.With("component", "incident_repository"),
	}
}

const incidentColumns = `id, agency_type, reporter_id, reporter_name, reporter_age,
       description, status, latitude, longitude, location_address,
       media_urls, station_id, created_at, updated_at, updated_by`

func (r *IncidentRepository) Create(ctx context.Context, inc *incident.Incident) error {
	const query = `
		INSERT INTO incidents (id, agency_type, reporter_id, reporter_name, reporter_age,
		                       description, status, latitude, longitude, location_address,
		                       media_urls, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.pool.Exec(ctx, query,
		inc.ID, inc.AgencyType, nullIfEmpty(inc.ReporterID), nullIfEmpty(inc.ReporterName),
		inc.ReporterAge, inc.Description, inc.Status, inc.Latitude, inc.Longitude,
		nullIfEmpty(inc.LocationAddress), inc.MediaURLs, inc.CreatedAt, inc.UpdatedAt)
	if err != nil {
		r.log.Error("failed to create incident", "incident_id", inc.ID, "error", err)
		return fmt.Errorf("create incident: %w", err)
	}
	return nil
}

func (r *IncidentRepository) Get(ctx context.Context, id uuid.UUID) (*incident.Incident, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+incidentColumns+` FROM incidents WHERE id = $1`, id)

	inc, err := r.scanIncident(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, incident.ErrNotFound
		}
		r.log.Error("failed to get incident", "incident_id", id, "error", err)
		return nil, fmt.Errorf("get incident: %w", err)
	}
	return inc, nil
}

// ListChanges — инкрементальная выборка для pull-прохода клиентов:
// updated_at >= since, по возрастанию updated_at
func (r *IncidentRepository) ListChanges(ctx context.Context, since time.Time) ([]incident.Incident, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+incidentColumns+` FROM incidents
         WHERE updated_at >= $1 ORDER BY updated_at ASC`, since)
	if err != nil {
		r.log.Error("failed to list changes", "since", since, "error", err)
		return nil, fmt.Errorf("list changes: %w", err)
	}
	defer rows.Close()

	var incidents []incident.Incident
	for rows.Next() {
		inc, err := r.scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}
		incidents = append(incidents, *inc)
	}
	return incidents, rows.Err()
}

func (r *IncidentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status incident.Status,
	updatedAt time.Time, updatedBy string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE incidents SET status = $1, updated_at = $2, updated_by = $3 WHERE id = $4`,
		status, updatedAt, nullIfEmpty(updatedBy), id)
	if err != nil {
		r.log.Error("failed to update status", "incident_id", id, "error", err)
		return fmt.Errorf("update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return incident.ErrNotFound
	}
	return nil
}

func (r *IncidentRepository) AssignStation(ctx context.Context, incidentID uuid.UUID,
	stationID int64, updatedAt time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE incidents SET station_id = $1, updated_at = $2 WHERE id = $3`,
		stationID, updatedAt, incidentID)
	if err != nil {
		r.log.Error("failed to assign station",
			"incident_id", incidentID, "station_id", stationID, "error", err)
		return fmt.Errorf("assign station: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return incident.ErrNotFound
	}
	return nil
}

func (r *IncidentRepository) scanIncident(row pgx.Row) (*incident.Incident, error) {
	var inc incident.Incident
	var reporterID, reporterName, locationAddress, updatedBy *string
	var reporterAge *int
	var stationID *int64

	err := row.Scan(&inc.ID, &inc.AgencyType, &reporterID, &reporterName, &reporterAge,
		&inc.Description, &inc.Status, &inc.Latitude, &inc.Longitude, &locationAddress,
		&inc.MediaURLs, &stationID, &inc.CreatedAt, &inc.UpdatedAt, &updatedBy)
	if err != nil {
		return nil, err
	}

	if reporterID != nil {
		inc.ReporterID = *reporterID
	}
	if reporterName != nil {
		inc.ReporterName = *reporterName
	}
	if reporterAge != nil {
		inc.ReporterAge = *reporterAge
	}
	if locationAddress != nil {
		inc.LocationAddress = *locationAddress
	}
	if updatedBy != nil {
		inc.UpdatedBy = *updatedBy
	}
	inc.StationID = stationID
	if inc.MediaURLs == nil {
		inc.MediaURLs = []string{}
	}

	return &inc, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
