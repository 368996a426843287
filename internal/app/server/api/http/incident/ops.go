package incident

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) createOp() huma.Operation {
	return huma.Operation{
		OperationID: "incidents-create",
		Method:      http.MethodPost,
		Path:        "/api/v1/incidents",
		Summary:     "Подать репорт об инциденте",
		Description: "Публичный эндпоинт для мобильных репортеров. created_at — клиентский момент подачи, updated_at назначает сервер.",
		Tags:        []string{"incidents"},
		Middlewares: h.publicMiddleware,
	}
}

func (h *Handler) changesOp() huma.Operation {
	return huma.Operation{
		OperationID: "incidents-changes",
		Method:      http.MethodGet,
		Path:        "/api/v1/incidents/changes",
		Summary:     "Инкрементальная выборка изменений",
		Description: "Инциденты с updated_at >= since по возрастанию, вместе с серверным временем для продвижения watermark.",
		Tags:        []string{"incidents", "sync"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}

func (h *Handler) findOp() huma.Operation {
	return huma.Operation{
		OperationID: "incidents-find",
		Method:      http.MethodGet,
		Path:        "/api/v1/incidents/{id}",
		Summary:     "Получить инцидент",
		Tags:        []string{"incidents"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}

func (h *Handler) updateStatusOp() huma.Operation {
	return huma.Operation{
		OperationID: "incidents-update-status",
		Method:      http.MethodPatch,
		Path:        "/api/v1/incidents/{id}/status",
		Summary:     "Правка статуса инцидента",
		Description: "Принимает пуш локальной правки консоли; присланный updated_at сохраняется как есть.",
		Tags:        []string{"incidents"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}

func (h *Handler) assignOp() huma.Operation {
	return huma.Operation{
		OperationID: "incidents-assign",
		Method:      http.MethodPost,
		Path:        "/api/v1/incidents/{id}/assign",
		Summary:     "Привязать инцидент к станции",
		Tags:        []string{"incidents", "stations"},
		Middlewares: h.publicMiddleware,
	}
}
