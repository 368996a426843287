package staff

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/exp/slog"

	"ireport/internal/domain/incident"
)

const minPasswordLen = 8

type Servicer interface {
	Register(ctx context.Context, email, name string, agency incident.AgencyType, password string) (int, error)
	Authenticate(ctx context.Context, email, password string) (Staff, error)
}

type Service struct {
	repo Repository
	log  *slog.Logger
}

func NewService(repo Repository, log *slog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log,
	}
}

func (s *Service) Register(ctx context.Context, email, name string, agency incident.AgencyType, password string) (int, error) {
	if err := validateRegister(email, password); err != nil {
		s.log.Debug("validation failed", "email", email, "error", err)
		return 0, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if agency != "" {
		if _, err := incident.ParseAgency(string(agency)); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, fmt.Errorf("хэш пароля: %w", err)
	}

	return s.repo.Create(ctx, email, name, string(agency), string(hash))
}

func (s *Service) Authenticate(ctx context.Context, email, password string) (Staff, error) {
	st, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return Staff{}, ErrInvalidAuth
	}

	if err := bcrypt.CompareHashAndPassword([]byte(st.Password), []byte(password)); err != nil {
		return Staff{}, ErrInvalidAuth
	}

	return st, nil
}

func validateRegister(email, password string) error {
	if !strings.Contains(email, "@") {
		return fmt.Errorf("email must contain @")
	}
	if len(password) < minPasswordLen {
		return fmt.Errorf("password must be at least %d characters", minPasswordLen)
	}
	return nil
}
