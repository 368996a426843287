package auth

type loginInput struct {
	Body LoginRequest
}

type loginOutput struct {
	Body LoginResponse
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

type LoginResponse struct {
	Token  string `json:"token"`
	Name   string `json:"name,omitempty"`
	Agency string `json:"agency,omitempty"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type registerInput struct {
	Body RegisterRequest
}

type registerOutput struct {
	Body RegisterResponse
}

type RegisterRequest struct {
	Email    string `json:"email" validate:"required"`
	Name     string `json:"name" validate:"required"`
	Agency   string `json:"agency,omitempty" doc:"pnp, bfp или pdrrmo; пусто — доступ ко всем"`
	Password string `json:"password" validate:"required,min=8"`
}

type RegisterResponse struct {
	ID     int    `json:"staff_id"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}
