package types

import (
	"time"

	"github.com/classtrack-dev/classtrack/internal/authz"
	"github.com/classtrack-dev/classtrack/internal/models"
)

type UserResponse struct {
	ID        uint       `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	Role      authz.Role `json:"role"`
	CreatedAt time.Time  `json:"created_at"`
}

func NewUserResponse(user models.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Name:      user.Name,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
	}
}

type RegistrationRequestResponse struct {
	ID          uint                      `json:"id"`
	Username    string                    `json:"username"`
	Email       string                    `json:"email"`
	Name        string                    `json:"name"`
	Role        authz.Role                `json:"role"`
	Status      models.RegistrationStatus `json:"status"`
	RequestedAt time.Time                 `json:"requested_at"`
	ProcessedAt *time.Time                `json:"processed_at"`
}

func NewRegistrationRequestResponse(request models.RegistrationRequest) RegistrationRequestResponse {
	return RegistrationRequestResponse{
		ID:          request.ID,
		Username:    request.Username,
		Email:       request.Email,
		Name:        request.Name,
		Role:        request.Role,
		Status:      request.Status,
		RequestedAt: request.RequestedAt,
		ProcessedAt: request.ProcessedAt,
	}
}
