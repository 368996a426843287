package history

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) appendOp() huma.Operation {
	return huma.Operation{
		OperationID: "history-append",
		Method:      http.MethodPost,
		Path:        "/api/v1/history",
		Summary:     "Добавить запись истории статусов",
		Description: "Записи append-only; консоли досылают их отдельно от правок статуса.",
		Tags:        []string{"history", "sync"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}
