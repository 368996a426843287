package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/exp/slog"

	"ireport/internal/domain/incident"
)

type HistoryRepository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewHistoryRepository(pool *pgxpool.Pool, log *slog.Logger) *HistoryRepository {
	return &HistoryRepository{
		pool: pool,
		log:  log.With("component", "history_repository"),
	}
}

// Append добавляет запись истории статусов; таблица append-only
func (r *HistoryRepository) Append(ctx context.Context, entry *incident.StatusHistoryEntry) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO status_history (incident_id, status, notes, changed_by, changed_at)
         VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		entry.IncidentID, entry.Status, nullIfEmpty(entry.Notes), entry.ChangedBy, entry.ChangedAt).
		Scan(&id)
	if err != nil {
		r.log.Error("failed to append history",
			"incident_id", entry.IncidentID, "error", err)
		return 0, fmt.Errorf("append history: %w", err)
	}
	return id, nil
}
