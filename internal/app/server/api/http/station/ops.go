package station

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) nearestOp() huma.Operation {
	return huma.Operation{
		OperationID: "stations-nearest",
		Method:      http.MethodGet,
		Path:        "/api/v1/stations/nearest",
		Summary:     "Ближайшая станция агентства",
		Description: "Гаверсинус по координатам репорта; используется для best-effort автопривязки.",
		Tags:        []string{"stations"},
		Middlewares: h.middleware,
	}
}
