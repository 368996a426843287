package media

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) uploadOp() huma.Operation {
	return huma.Operation{
		OperationID: "media-upload",
		Method:      http.MethodPost,
		Path:        "/api/v1/media",
		Summary:     "Загрузить медиафайл репорта",
		Description: "Публичный эндпоинт; файл передается в base64, в ответе — публичный URL.",
		Tags:        []string{"media"},
		Middlewares: h.middleware,
	}
}
