package media

import (
	"context"
	"encoding/base64"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"
)

type Handler struct {
	store      *Store
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(store *Store, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{
		store:      store,
		log:        log,
		middleware: middleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.uploadOp(), h.upload)
}

func (h *Handler) upload(_ context.Context, input *uploadInput) (*uploadOutput, error) {
	data, err := base64.StdEncoding.DecodeString(input.Body.Data)
	if err != nil {
		return nil, huma.Error422UnprocessableEntity("invalid base64 data: " + err.Error())
	}

	url, err := h.store.Save(input.Body.Path, data)
	if err != nil {
		if errors.Is(err, ErrBadPath) {
			return nil, huma.Error422UnprocessableEntity("bad media path")
		}
		h.log.Error("failed to save media", "path", input.Body.Path, "error", err)
		return nil, err
	}

	return &uploadOutput{
		Body: UploadResponse{URL: url, Status: "Ok"},
	}, nil
}
