package staff

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"

	"golang.org/x/exp/slog"
)

const sessionTTL = 24 * time.Hour

type Sessioner interface {
	CreateSession(ctx context.Context, staffID int) (string, error)
	ValidateSession(ctx context.Context, token string) (int, error)
}

type SessionService struct {
	repo SessionRepository
	log  *slog.Logger
}

func NewSessionService(repo SessionRepository, log *slog.Logger) *SessionService {
	return &SessionService{
		repo: repo,
		log:  log,
	}
}

// CreateSession выдает непрозрачный токен; в базе хранится только его хэш
func (s *SessionService) CreateSession(ctx context.Context, staffID int) (string, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}

	token := base64.URLEncoding.EncodeToString(tokenBytes)
	tokenHash := sha256.Sum256([]byte(token))

	expiresAt := time.Now().Add(sessionTTL)
	if err := s.repo.Create(ctx, staffID, hex.EncodeToString(tokenHash[:]), expiresAt); err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}

	return token, nil
}

func (s *SessionService) ValidateSession(ctx context.Context, token string) (int, error) {
	tokenHash := sha256.Sum256([]byte(token))

	return s.repo.Validate(ctx, hex.EncodeToString(tokenHash[:]))
}
