package incident

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"
)

var ErrInvalidInput = errors.New("invalid input")

// Notifier получает события после каждого инсерта и правки статуса; живая
// лента консолей подписана через него. Допускается nil.
type Notifier interface {
	Publish(ev FeedEvent)
}

type Servicer interface {
	Create(ctx context.Context, req CreateRequest) (*Incident, error)
	Get(ctx context.Context, id uuid.UUID) (*Incident, error)
	ListChanges(ctx context.Context, since time.Time) (ChangesResponse, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, req StatusUpdateRequest) (*Incident, error)
	AppendHistory(ctx context.Context, entry StatusHistoryEntry) (int64, error)
	NearestStation(ctx context.Context, lat, lon float64, agency AgencyType) (*Station, error)
	AssignStation(ctx context.Context, req AssignStationRequest) (*Incident, error)
}

type Service struct {
	repo     Repository
	history  HistoryRepository
	stations StationRepository
	notifier Notifier
	log      *slog.Logger
}

func NewService(repo Repository, history HistoryRepository, stations StationRepository,
	notifier Notifier, log *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		history:  history,
		stations: stations,
		notifier: notifier,
		log:      log.With("component", "incident_service"),
	}
}

// Create принимает репорт. created_at — клиентский момент подачи (пустой
// заменяется серверным временем), updated_at всегда назначает сервер.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Incident, error) {
	if _, err := ParseAgency(string(req.AgencyType)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if req.Description == "" {
		return nil, fmt.Errorf("%w: empty description", ErrInvalidInput)
	}

	now := time.Now().UTC()
	createdAt := req.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	inc := &Incident{
		ID:              uuid.New(),
		AgencyType:      req.AgencyType,
		ReporterID:      req.ReporterID,
		ReporterName:    req.ReporterName,
		ReporterAge:     req.ReporterAge,
		Description:     req.Description,
		Status:          StatusPending,
		Latitude:        req.Latitude,
		Longitude:       req.Longitude,
		LocationAddress: req.LocationAddress,
		MediaURLs:       req.MediaURLs,
		CreatedAt:       createdAt,
		UpdatedAt:       now,
	}
	if inc.MediaURLs == nil {
		inc.MediaURLs = []string{}
	}

	if err := s.repo.Create(ctx, inc); err != nil {
		s.log.Error("failed to create incident", "error", err)
		return nil, fmt.Errorf("create incident: %w", err)
	}

	s.log.Info("incident created", "incident_id", inc.ID, "agency", inc.AgencyType)
	s.publish(FeedEvent{Type: FeedInsert, Incident: *inc})
	return inc, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Incident, error) {
	return s.repo.Get(ctx, id)
}

// ListChanges отдает инциденты с updated_at >= since по возрастанию вместе с
// серверным временем для продвижения watermark клиента
func (s *Service) ListChanges(ctx context.Context, since time.Time) (ChangesResponse, error) {
	incidents, err := s.repo.ListChanges(ctx, since)
	if err != nil {
		s.log.Error("failed to list changes", "since", since, "error", err)
		return ChangesResponse{}, fmt.Errorf("list changes: %w", err)
	}

	return ChangesResponse{
		Incidents:  incidents,
		ServerTime: time.Now().UTC(),
	}, nil
}

// UpdateStatus применяет правку статуса. Присланный updated_at сохраняется
// как есть: это метка правки на стороне консоли, и от нее зависит разрешение
// конфликтов при последующих pull.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, req StatusUpdateRequest) (*Incident, error) {
	if _, err := ParseStatus(string(req.Status)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	updatedAt := req.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	if err := s.repo.UpdateStatus(ctx, id, req.Status, updatedAt, req.UpdatedBy); err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.log.Error("failed to update status", "incident_id", id, "error", err)
		}
		return nil, err
	}

	inc, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	s.publish(FeedEvent{Type: FeedUpdate, Incident: *inc})
	return inc, nil
}

// AppendHistory принимает запись истории статусов; записи append-only и
// никогда не изменяются
func (s *Service) AppendHistory(ctx context.Context, entry StatusHistoryEntry) (int64, error) {
	if _, err := ParseStatus(string(entry.Status)); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if entry.ChangedAt.IsZero() {
		entry.ChangedAt = time.Now().UTC()
	}

	id, err := s.history.Append(ctx, &entry)
	if err != nil {
		s.log.Error("failed to append history", "incident_id", entry.IncidentID, "error", err)
		return 0, fmt.Errorf("append history: %w", err)
	}
	return id, nil
}

func (s *Service) NearestStation(ctx context.Context, lat, lon float64, agency AgencyType) (*Station, error) {
	if _, err := ParseAgency(string(agency)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return s.stations.Nearest(ctx, lat, lon, agency)
}

// AssignStation привязывает инцидент к станции. updated_at продвигается,
// чтобы привязка дошла до зеркал консолей следующим pull.
func (s *Service) AssignStation(ctx context.Context, req AssignStationRequest) (*Incident, error) {
	now := time.Now().UTC()
	if err := s.repo.AssignStation(ctx, req.IncidentID, req.StationID, now); err != nil {
		return nil, err
	}

	inc, err := s.repo.Get(ctx, req.IncidentID)
	if err != nil {
		return nil, err
	}

	s.publish(FeedEvent{Type: FeedUpdate, Incident: *inc})
	return inc, nil
}

func (s *Service) publish(ev FeedEvent) {
	if s.notifier == nil {
		return
	}
	s.notifier.Publish(ev)
}
