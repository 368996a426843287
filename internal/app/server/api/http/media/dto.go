package media

type uploadInput struct {
	Body UploadRequest
}

type uploadOutput struct {
	Body UploadResponse
}

type UploadRequest struct {
	Path        string `json:"path" validate:"required" doc:"Относительный путь вида incidents/<submission_id>/<file>"`
	ContentType string `json:"content_type,omitempty"`
	Data        string `json:"data" validate:"required" doc:"Содержимое файла в base64"`
}

type UploadResponse struct {
	URL    string `json:"url"`
	Status string `json:"status"`
}
