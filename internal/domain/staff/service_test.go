package staff

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/exp/slog"

	"ireport/internal/domain/incident"
)

// MockRepository is a mock implementation of the Repository interface for testing
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, email, name, agency, passwordHash string) (int, error) {
	args := m.Called(ctx, email, name, agency, passwordHash)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) FindByEmail(ctx context.Context, email string) (Staff, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(Staff), args.Error(1)
}

// MockSessionRepository is a mock implementation of the SessionRepository interface
type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Create(ctx context.Context, staffID int, tokenHash string, expiresAt time.Time) error {
	args := m.Called(ctx, staffID, tokenHash, expiresAt)
	return args.Error(0)
}

func (m *MockSessionRepository) Validate(ctx context.Context, tokenHash string) (int, error) {
	args := m.Called(ctx, tokenHash)
	return args.Int(0), args.Error(1)
}

func TestService_Register(t *testing.T) {
	mockRepo := new(MockRepository)
	logger := slog.Default()
	service := NewService(mockRepo, logger)

	email := "operator@bfp.gov.ph"
	password := "strongpassword1"

	// We can't predict the exact hash, so check that Create is called with a non-empty hash
	mockRepo.On("Create", mock.Anything, email, "Juan", "bfp", mock.MatchedBy(func(hash string) bool {
		return hash != ""
	})).Return(7, nil)

	staffID, err := service.Register(context.Background(), email, "Juan", incident.AgencyBFP, password)
	assert.NoError(t, err)
	assert.Equal(t, 7, staffID)

	mockRepo.AssertExpectations(t)
}

func TestService_Register_InvalidInput(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, slog.Default())

	_, err := service.Register(context.Background(), "not-an-email", "Juan", incident.AgencyBFP, "strongpassword1")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = service.Register(context.Background(), "operator@bfp.gov.ph", "Juan", incident.AgencyBFP, "short")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = service.Register(context.Background(), "operator@bfp.gov.ph", "Juan", "navy", "strongpassword1")
	assert.ErrorIs(t, err, ErrInvalidInput)

	mockRepo.AssertNotCalled(t, "Create")
}

func TestService_Authenticate_Success(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, slog.Default())

	email := "operator@bfp.gov.ph"
	password := "strongpassword1"

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	assert.NoError(t, err)

	mockRepo.On("FindByEmail", mock.Anything, email).Return(Staff{
		ID:       7,
		Email:    email,
		Agency:   incident.AgencyBFP,
		Password: string(hash),
	}, nil)

	st, err := service.Authenticate(context.Background(), email, password)
	assert.NoError(t, err)
	assert.Equal(t, 7, st.ID)

	mockRepo.AssertExpectations(t)
}

func TestService_Authenticate_WrongPassword(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, slog.Default())

	hash, err := bcrypt.GenerateFromPassword([]byte("rightpassword1"), bcrypt.DefaultCost)
	assert.NoError(t, err)

	mockRepo.On("FindByEmail", mock.Anything, "operator@bfp.gov.ph").Return(Staff{
		ID:       7,
		Password: string(hash),
	}, nil)

	_, err = service.Authenticate(context.Background(), "operator@bfp.gov.ph", "wrongpassword1")
	assert.ErrorIs(t, err, ErrInvalidAuth)
}

func TestService_Authenticate_UnknownStaff(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, slog.Default())

	mockRepo.On("FindByEmail", mock.Anything, "ghost@bfp.gov.ph").Return(Staff{}, errors.New("no rows"))

	_, err := service.Authenticate(context.Background(), "ghost@bfp.gov.ph", "strongpassword1")
	assert.ErrorIs(t, err, ErrInvalidAuth)
}

func TestSessionService_CreateAndValidate(t *testing.T) {
	mockRepo := new(MockSessionRepository)
	service := NewSessionService(mockRepo, slog.Default())

	staffID := 7

	var savedHash string
	mockRepo.On("Create", mock.Anything, staffID, mock.MatchedBy(func(hash string) bool {
		savedHash = hash
		return hash != ""
	}), mock.MatchedBy(func(expiresAt time.Time) bool {
		return expiresAt.After(time.Now())
	})).Return(nil)

	token, err := service.CreateSession(context.Background(), staffID)
	assert.NoError(t, err)
	// base64 encoded 32 bytes is 44 characters with padding
	assert.Len(t, token, 44)

	mockRepo.On("Validate", mock.Anything, savedHash).Return(staffID, nil)

	gotID, err := service.ValidateSession(context.Background(), token)
	assert.NoError(t, err)
	assert.Equal(t, staffID, gotID)

	mockRepo.AssertExpectations(t)
}

func TestSessionService_Create_RepositoryError(t *testing.T) {
	mockRepo := new(MockSessionRepository)
	service := NewSessionService(mockRepo, slog.Default())

	mockRepo.On("Create", mock.Anything, 7, mock.AnythingOfType("string"),
		mock.AnythingOfType("time.Time")).Return(errors.New("database error"))

	_, err := service.CreateSession(context.Background(), 7)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "database error")
}
