package incident

import (
	"context"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/exp/slog"

	domain "ireport/internal/domain/incident"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Create(ctx context.Context, req domain.CreateRequest) (*domain.Incident, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Incident), args.Error(1)
}

func (m *MockService) Get(ctx context.Context, id uuid.UUID) (*domain.Incident, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Incident), args.Error(1)
}

func (m *MockService) ListChanges(ctx context.Context, since time.Time) (domain.ChangesResponse, error) {
	args := m.Called(ctx, since)
	return args.Get(0).(domain.ChangesResponse), args.Error(1)
}

func (m *MockService) UpdateStatus(ctx context.Context, id uuid.UUID, req domain.StatusUpdateRequest) (*domain.Incident, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Incident), args.Error(1)
}

func (m *MockService) AppendHistory(ctx context.Context, entry domain.StatusHistoryEntry) (int64, error) {
	args := m.Called(ctx, entry)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockService) NearestStation(ctx context.Context, lat, lon float64, agency domain.AgencyType) (*domain.Station, error) {
	args := m.Called(ctx, lat, lon, agency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Station), args.Error(1)
}

func (m *MockService) AssignStation(ctx context.Context, req domain.AssignStationRequest) (*domain.Incident, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Incident), args.Error(1)
}

func newTestHandler(service domain.Servicer) *Handler {
	return NewHandler(service, slog.Default(), huma.Middlewares{}, huma.Middlewares{})
}

func TestHandler_create(t *testing.T) {
	mockService := new(MockService)
	handler := newTestHandler(mockService)

	req := domain.CreateRequest{
		AgencyType:  domain.AgencyPNP,
		Description: "Ограбление",
		Latitude:    13.62,
		Longitude:   123.18,
	}
	created := &domain.Incident{
		ID:         uuid.New(),
		AgencyType: domain.AgencyPNP,
		Status:     domain.StatusPending,
	}
	mockService.On("Create", mock.Anything, req).Return(created, nil)

	output, err := handler.create(context.Background(), &createInput{Body: req})
	assert.NoError(t, err)
	assert.Equal(t, created.ID, output.Body.ID)
	assert.Equal(t, domain.StatusPending, output.Body.Status)

	mockService.AssertExpectations(t)
}

func TestHandler_create_InvalidInput(t *testing.T) {
	mockService := new(MockService)
	handler := newTestHandler(mockService)

	mockService.On("Create", mock.Anything, mock.Anything).Return(nil, domain.ErrInvalidInput)

	_, err := handler.create(context.Background(), &createInput{})
	assert.Error(t, err)

	var statusErr huma.StatusError
	assert.ErrorAs(t, err, &statusErr)
	assert.Equal(t, 422, statusErr.GetStatus())
}

func TestHandler_changes(t *testing.T) {
	mockService := new(MockService)
	handler := newTestHandler(mockService)

	since := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	mockService.On("ListChanges", mock.Anything, since).Return(domain.ChangesResponse{
		Incidents:  []domain.Incident{{ID: uuid.New()}},
		ServerTime: time.Now().UTC(),
	}, nil)

	output, err := handler.changes(context.Background(), &changesInput{
		Since: since.Format(time.RFC3339Nano),
	})
	assert.NoError(t, err)
	assert.Len(t, output.Body.Incidents, 1)
	assert.False(t, output.Body.ServerTime.IsZero())

	mockService.AssertExpectations(t)
}

func TestHandler_changes_EmptySinceMeansEpoch(t *testing.T) {
	mockService := new(MockService)
	handler := newTestHandler(mockService)

	mockService.On("ListChanges", mock.Anything, mock.MatchedBy(func(since time.Time) bool {
		return since.Equal(time.Unix(0, 0))
	})).Return(domain.ChangesResponse{ServerTime: time.Now().UTC()}, nil)

	output, err := handler.changes(context.Background(), &changesInput{})
	assert.NoError(t, err)
	assert.NotNil(t, output.Body.Incidents)

	mockService.AssertExpectations(t)
}

func TestHandler_updateStatus(t *testing.T) {
	mockService := new(MockService)
	handler := newTestHandler(mockService)

	id := uuid.New()
	req := domain.StatusUpdateRequest{
		Status:    domain.StatusResponding,
		UpdatedAt: time.Now().UTC(),
		UpdatedBy: "operator-1",
	}
	mockService.On("UpdateStatus", mock.Anything, id, req).Return(&domain.Incident{
		ID:     id,
		Status: domain.StatusResponding,
	}, nil)

	output, err := handler.updateStatus(context.Background(), &statusInput{
		ID:   id.String(),
		Body: req,
	})
	assert.NoError(t, err)
	assert.Equal(t, domain.StatusResponding, output.Body.Status)

	mockService.AssertExpectations(t)
}

func TestHandler_updateStatus_NotFound(t *testing.T) {
	mockService := new(MockService)
	handler := newTestHandler(mockService)

	id := uuid.New()
	mockService.On("UpdateStatus", mock.Anything, id, mock.Anything).Return(nil, domain.ErrNotFound)

	_, err := handler.updateStatus(context.Background(), &statusInput{ID: id.String()})
	var statusErr huma.StatusError
	assert.ErrorAs(t, err, &statusErr)
	assert.Equal(t, 404, statusErr.GetStatus())
}

func TestHandler_find_BadID(t *testing.T) {
	mockService := new(MockService)
	handler := newTestHandler(mockService)

	_, err := handler.find(context.Background(), &findInput{ID: "not-a-uuid"})
	var statusErr huma.StatusError
	assert.ErrorAs(t, err, &statusErr)
	assert.Equal(t, 422, statusErr.GetStatus())

	mockService.AssertNotCalled(t, "Get")
}

func TestHandler_assign(t *testing.T) {
	mockService := new(MockService)
	handler := newTestHandler(mockService)

	id := uuid.New()
	stationID := int64(3)
	mockService.On("AssignStation", mock.Anything, domain.AssignStationRequest{
		IncidentID: id,
		StationID:  stationID,
	}).Return(&domain.Incident{ID: id, StationID: &stationID}, nil)

	output, err := handler.assign(context.Background(), &assignInput{
		ID:   id.String(),
		Body: assignRequest{StationID: stationID},
	})
	assert.NoError(t, err)
	assert.Equal(t, stationID, *output.Body.StationID)

	mockService.AssertExpectations(t)
}
