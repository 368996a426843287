package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"ireport/internal/domain/staff"
)

type Auth struct {
	sessions staff.Sessioner
	log      *slog.Logger
}

func New(sessions staff.Sessioner, log *slog.Logger) *Auth {
	return &Auth{
		sessions: sessions,
		log:      log.With("component", "auth_middleware"),
	}
}

type contextKey string

const StaffIDKey contextKey = "staffID"

// Middleware возвращает middleware для Huma с сигнатурой func(ctx Context, next func(Context))
func (a *Auth) Middleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		token, ok := BearerToken(ctx.Header("Authorization"))
		if !ok {
			a.log.Debug("missing bearer token")
			writeUnauthorized(ctx)
			return
		}

		staffID, err := a.sessions.ValidateSession(ctx.Context(), token)
		if err != nil {
			a.log.Debug("session validation failed", "error", err)
			writeUnauthorized(ctx)
			return
		}

		newCtx := context.WithValue(ctx.Context(), StaffIDKey, staffID)
		next(huma.WithContext(ctx, newCtx))
	}
}

func writeUnauthorized(ctx huma.Context) {
	ctx.SetStatus(http.StatusUnauthorized)
	ctx.SetHeader("Content-Type", "application/json")
	_ = json.NewEncoder(ctx.BodyWriter()).Encode(map[string]string{
		"error": "Unauthorized",
	})
}

// BearerToken извлекает токен из заголовка Authorization
func BearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) || len(header) == len(prefix) {
		return "", false
	}
	return header[len(prefix):], true
}

func GetStaffID(ctx context.Context) (int, bool) {
	staffID, ok := ctx.Value(StaffIDKey).(int)
	return staffID, ok
}
