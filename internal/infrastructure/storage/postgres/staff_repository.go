package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/exp/slog"

	"ireport/internal/domain/incident"
	"ireport/internal/domain/staff"
)

type StaffRepository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewStaffRepository(pool *pgxpool.Pool, log *slog.Logger) *StaffRepository {
	return &StaffRepository{
		pool: pool,
		log:  log,
	}
}

func (r *StaffRepository) Create(ctx context.Context, email, name, agency, passwordHash string) (int, error) {
	var staffID int
	err := r.pool.QueryRow(ctx,
		`INSERT INTO staff (email, name, agency_type, password_hash)
         VALUES ($1, $2, NULLIF($3, ''), $4) RETURNING id`,
		email, name, agency, passwordHash).Scan(&staffID)
	return staffID, err
}

func (r *StaffRepository) FindByEmail(ctx context.Context, email string) (staff.Staff, error) {
	var st staff.Staff
	var agency *string
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, name, agency_type, password_hash FROM staff WHERE email = $1`, email).
		Scan(&st.ID, &st.Email, &st.Name, &agency, &st.Password)
	if err != nil {
		return st, fmt.Errorf("staff not found")
	}
	if agency != nil {
		st.Agency = incident.AgencyType(*agency)
	}

	return st, nil
}

type SessionRepository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewSessionRepository(pool *pgxpool.Pool, log *slog.Logger) *SessionRepository {
	return &SessionRepository{
		pool: pool,
		log:  log,
	}
}

func (r *SessionRepository) Create(ctx context.Context, staffID int, tokenHash string, expiresAt time.Time) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO sessions (staff_id, token_hash, expires_at)
         VALUES ($1, decode($2, 'hex'), $3)`,
		staffID, tokenHash, expiresAt)
	return err
}

func (r *SessionRepository) Validate(ctx context.Context, tokenHash string) (int, error) {
	var staffID int
	err := r.pool.QueryRow(ctx,
		`SELECT staff_id FROM sessions
         WHERE token_hash = decode($1, 'hex') AND expires_at > NOW()`,
		tokenHash).Scan(&staffID)
	if err != nil {
		return 0, fmt.Errorf("invalid session")
	}
	return staffID, nil
}
