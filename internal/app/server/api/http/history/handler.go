package history

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
	huma.Register(api, h.appendOp(), h.append)
}

func (h *Handler) append(ctx context.Context, input *appendInput) (*appendOutput, error) {
	id, err := h.service.AppendHistory(ctx, input.Body)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return nil, huma.Error422UnprocessableEntity(err.Error())
		}
		return nil, err
	}

	return &appendOutput{
		Body: appendResponse{ID: id, Status: "Ok"},
	}, nil
}
