package station

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	domain "ireport/internal/domain/incident"
)

type Handler struct {
	service    domain.Servicer
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(service domain.Servicer, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{
		service:    service,
		log:        log,
		middleware: middleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.nearestOp(), h.nearest)
}

func (h *Handler) nearest(ctx context.Context, input *nearestInput) (*nearestOutput, error) {
	st, err := h.service.NearestStation(ctx, input.Lat, input.Lon, domain.AgencyType(input.Agency))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			return nil, huma.Error422UnprocessableEntity(err.Error())
		case errors.Is(err, domain.ErrNotFound):
			return nil, huma.Error404NotFound("no station for agency")
		}
		return nil, err
	}

	return &nearestOutput{Body: *st}, nil
}
