package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/exp/slog"

	"ireport/internal/domain/incident"
)

type StationRepository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewStationRepository(pool *pgxpool.Pool, log *slog.Logger) *StationRepository {
	return &StationRepository{
		pool: pool,
		log:  log.With("component", "station_repository"),
	}
}

// Nearest ищет ближайшую станцию агентства по формуле гаверсинусов,
// расстояние возвращается в километрах
func (r *StationRepository) Nearest(ctx context.Context, lat, lon float64, agency incident.AgencyType) (*incident.Station, error) {
	const query = `
		SELECT id, name, agency_type, latitude, longitude,
		       6371 * acos(
		           least(1.0, cos(radians($1)) * cos(radians(latitude)) *
		           cos(radians(longitude) - radians($2)) +
		           sin(radians($1)) * sin(radians(latitude)))
		       ) AS distance_km
		FROM stations
		WHERE agency_type = $3
		ORDER BY distance_km ASC
		LIMIT 1`

	var st incident.Station
	err := r.pool.QueryRow(ctx, query, lat, lon, agency).
		Scan(&st.ID, &st.Name, &st.AgencyType, &st.Latitude, &st.Longitude, &st.DistanceKm)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, incident.ErrNotFound
		}
		r.log.Error("failed to find nearest station", "agency", agency, "error", err)
		return nil, fmt.Errorf("nearest station: %w", err)
	}
	return &st, nil
}
