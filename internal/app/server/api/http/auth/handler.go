package auth

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"ireport/internal/domain/incident"
	"ireport/internal/domain/staff"
)

type Handler struct {
	service    staff.Servicer
	sessions   staff.Sessioner
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(service staff.Servicer, sessions staff.Sessioner, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{
		service:    service,
		sessions:   sessions,
		log:        log,
		middleware: middleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.loginOp(), h.login)
	huma.Register(api, h.registerOp(), h.register)
}

func (h *Handler) login(ctx context.Context, input *loginInput) (*loginOutput, error) {
	st, err := h.service.Authenticate(ctx, input.Body.Email, input.Body.Password)
	if err != nil {
		return &loginOutput{
			Body: LoginResponse{
				Status: "Error",
				Error:  "Invalid credentials",
			},
		}, nil
	}

	token, err := h.sessions.CreateSession(ctx, st.ID)
	if err != nil {
		h.log.Error("failed to create session", "staff_id", st.ID, "error", err)
		return nil, huma.Error500InternalServerError("create session")
	}

	return &loginOutput{
		Body: LoginResponse{
			Token:  token,
			Name:   st.Name,
			Agency: string(st.Agency),
			Status: "Ok",
		},
	}, nil
}

func (h *Handler) register(ctx context.Context, input *registerInput) (*registerOutput, error) {
	staffID, err := h.service.Register(ctx, input.Body.Email, input.Body.Name,
		incident.AgencyType(input.Body.Agency), input.Body.Password)
	if err != nil {
		return &registerOutput{
			Body: RegisterResponse{Status: "Error", Error: err.Error()},
		}, nil
	}

	return &registerOutput{
		Body: RegisterResponse{ID: staffID, Status: "Ok"},
	}, nil
}
