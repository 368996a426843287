package incident

import (
	domain "ireport/internal/domain/incident"
)

type createInput struct {
	Body domain.CreateRequest
}

type createOutput struct {
	Body domain.Incident
}

type changesInput struct {
	Since string `query:"since" doc:"Нижняя граница updated_at в формате RFC3339; пусто — с начала времен"`
}

type changesOutput struct {
	Body domain.ChangesResponse
}

type findInput struct {
	ID string `path:"id" format:"uuid"`
}

type findOutput struct {
	Body domain.Incident
}

type statusInput struct {
	ID   string `path:"id" format:"uuid"`
	Body domain.StatusUpdateRequest
}

type statusOutput struct {
	Body domain.Incident
}

type assignInput struct {
	ID   string `path:"id" format:"uuid"`
	Body assignRequest
}

type assignRequest struct {
	StationID int64 `json:"station_id" validate:"required"`
}

type assignOutput struct {
	Body domain.Incident
}
