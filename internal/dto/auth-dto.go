package dto

import "github.com/SundayYogurt/identity_service/internal/domain"

type RegisterRequest struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Name     string  `json:"name,omitempty"`
	Surnames string  `json:"surnames,omitempty"`
	NIF      *string `json:"nif,omitempty"`
}

type UserLogin struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type VerifyCodeRequest struct {
	Code string `json:"code"`
}

// AuthUser is the minimal view returned with a token.
type AuthUser struct {
	Email  string        `json:"email"`
	Role   domain.Role   `json:"role"`
	Status domain.Status `json:"status"`
}

type AuthResponse struct {
	Token string   `json:"token"`
	User  AuthUser `json:"user"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
