package incident

import (
	"context"
	"errors"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	domain "ireport/internal/domain/incident"
)

type Handler struct {
	service          domain.Servicer
	log              *slog.Logger
	middleware       huma.Middlewares
	publicMiddleware huma.Middlewares
}

// NewHandler создает обработчик инцидентов. middleware вешается на
// операции консолей, publicMiddleware — на публичные операции репортеров.
func NewHandler(service domain.Servicer, log *slog.Logger, middleware, publicMiddleware huma.Middlewares) *Handler {
	return &Handler{
		service:          service,
		log:              log,
		middleware:       middleware,
		publicMiddleware: publicMiddleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.createOp(), h.create)
	huma.Register(api, h.changesOp(), h.changes)
	huma.Register(api, h.findOp(), h.find)
	huma.Register(api, h.updateStatusOp(), h.updateStatus)
	huma.Register(api, h.assignOp(), h.assign)
}

func (h *Handler) create(ctx context.Context, input *createInput) (*createOutput, error) {
	inc, err := h.service.Create(ctx, input.Body)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return nil, huma.Error422UnprocessableEntity(err.Error())
		}
		return nil, err
	}

	return &createOutput{Body: *inc}, nil
}

func (h *Handler) changes(ctx context.Context, input *changesInput) (*changesOutput, error) {
	since := time.Unix(0, 0).UTC()
	if input.Since != "" {
		parsed, err := time.Parse(time.RFC3339Nano, input.Since)
		if err != nil {
			return nil, huma.Error422UnprocessableEntity("invalid since timestamp: " + err.Error())
		}
		since = parsed
	}

	resp, err := h.service.ListChanges(ctx, since)
	if err != nil {
		return nil, err
	}
	if resp.Incidents == nil {
		resp.Incidents = []domain.Incident{}
	}

	return &changesOutput{Body: resp}, nil
}

func (h *Handler) find(ctx context.Context, input *findInput) (*findOutput, error) {
	id, err := uuid.Parse(input.ID)
	if err != nil {
		return nil, huma.Error422UnprocessableEntity("invalid incident id")
	}

	inc, err := h.service.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, huma.Error404NotFound("incident not found")
		}
		return nil, err
	}

	return &findOutput{Body: *inc}, nil
}

func (h *Handler) updateStatus(ctx context.Context, input *statusInput) (*statusOutput, error) {
	id, err := uuid.Parse(input.ID)
	if err != nil {
		return nil, huma.Error422UnprocessableEntity("invalid incident id")
	}

	inc, err := h.service.UpdateStatus(ctx, id, input.Body)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			return nil, huma.Error404NotFound("incident not found")
		case errors.Is(err, domain.ErrInvalidInput):
			return nil, huma.Error422UnprocessableEntity(err.Error())
		}
		return nil, err
	}

	return &statusOutput{Body: *inc}, nil
}

func (h *Handler) assign(ctx context.Context, input *assignInput) (*assignOutput, error) {
	id, err := uuid.Parse(input.ID)
	if err != nil {
		return nil, huma.Error422UnprocessableEntity("invalid incident id")
	}

	inc, err := h.service.AssignStation(ctx, domain.AssignStationRequest{
		IncidentID: id,
		StationID:  input.Body.StationID,
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, huma.Error404NotFound("incident not found")
		}
		return nil, err
	}

	return &assignOutput{Body: *inc}, nil
}
