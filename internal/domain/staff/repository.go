package staff

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, email, name, agency, passwordHash string) (int, error)
	FindByEmail(ctx context.Context, email string) (Staff, error)
}

type SessionRepository interface {
	Create(ctx context.Context, staffID int, tokenHash string, expiresAt time.Time) error
	Validate(ctx context.Context, tokenHash string) (int, error)
}
