package history

import (
	domain "ireport/internal/domain/incident"
)

type appendInput struct {
	Body domain.StatusHistoryEntry
}

type appendOutput struct {
	Body appendResponse
}

type appendResponse struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}
